package catalog

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/servicebot/core/telegram/state"
	"github.com/m3rciful/servicebot/internal/apperr"
	"github.com/m3rciful/servicebot/internal/model"
	"github.com/m3rciful/servicebot/internal/normalize"
	"github.com/m3rciful/servicebot/internal/tokens"
	"github.com/m3rciful/servicebot/internal/upstream"
)

type stubAPI struct {
	mu sync.Mutex

	categories []model.Category
	products   []model.Product
	services   []model.Service
	detail     normalize.CategoryWithProducts
	detailErr  error
	byCategory []model.Product
	product    model.Product
	productErr error
	service    model.Service
	serviceErr error

	calls map[string]int
}

func (s *stubAPI) hit(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.calls == nil {
		s.calls = make(map[string]int)
	}
	s.calls[name]++
}

func (s *stubAPI) count(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[name]
}

func (s *stubAPI) Categories(context.Context) ([]model.Category, error) {
	s.hit("categories")
	return s.categories, nil
}

func (s *stubAPI) Category(context.Context, string) (normalize.CategoryWithProducts, error) {
	s.hit("category")
	return s.detail, s.detailErr
}

func (s *stubAPI) Products(context.Context) ([]model.Product, error) {
	s.hit("products")
	return s.products, nil
}

func (s *stubAPI) ProductsByCategory(context.Context, string) ([]model.Product, error) {
	s.hit("products_by_category")
	return s.byCategory, nil
}

func (s *stubAPI) Product(context.Context, string) (model.Product, error) {
	s.hit("product")
	return s.product, s.productErr
}

func (s *stubAPI) Services(context.Context) ([]model.Service, error) {
	s.hit("services")
	return s.services, nil
}

func (s *stubAPI) Service(context.Context, string) (model.Service, error) {
	s.hit("service")
	return s.service, s.serviceErr
}

func makeProducts(n int) []model.Product {
	out := make([]model.Product, n)
	for i := range out {
		id := fmt.Sprintf("p%d", i+1)
		out[i] = model.Product{ID: id, Code: id, Name: "Товар " + id, Price: model.NumericPrice(100)}
	}
	return out
}

var key = state.Key{ChatID: 1, UserID: 1}

func newBrowser(api API) (*Browser, *state.Store) {
	st := state.NewStore(state.Options{TTL: time.Minute})
	return New(api, st), st
}

func TestPageNavigationClampsWithoutRefetch(t *testing.T) {
	api := &stubAPI{products: makeProducts(25)}
	b, _ := newBrowser(api)
	ctx := context.Background()

	l, err := b.Products(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, 1, l.Page)
	assert.Equal(t, 3, l.TotalPages)
	assert.Equal(t, 25, l.Total)
	assert.Len(t, l.Products, 10)
	assert.False(t, l.HasPrev())
	assert.True(t, l.HasNext())

	l, err = b.Page(ctx, key, tokens.Products, 4)
	require.NoError(t, err)
	assert.Equal(t, 3, l.Page)
	assert.Len(t, l.Products, 5)
	assert.Equal(t, "p21", l.Products[0].ID)
	assert.Equal(t, 25, l.Total)

	again, err := b.Page(ctx, key, tokens.Products, 4)
	require.NoError(t, err)
	assert.Equal(t, l, again)

	l, err = b.Page(ctx, key, tokens.Products, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, l.Page)

	assert.Equal(t, 1, api.count("products"))
}

func TestCursorsAreIndependent(t *testing.T) {
	cats := make([]model.Category, 15)
	for i := range cats {
		id := fmt.Sprintf("c%d", i)
		cats[i] = model.Category{ID: id, Code: id, Name: id}
	}
	api := &stubAPI{products: makeProducts(25), categories: cats}
	b, _ := newBrowser(api)
	ctx := context.Background()

	_, err := b.Products(ctx, key)
	require.NoError(t, err)
	_, err = b.Categories(ctx, key)
	require.NoError(t, err)

	_, err = b.Page(ctx, key, tokens.Products, 3)
	require.NoError(t, err)
	l, err := b.Page(ctx, key, tokens.Categories, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, l.Page)
	assert.Len(t, l.Categories, 5)

	back, err := b.Back(ctx, key, tokens.Products)
	require.NoError(t, err)
	assert.Equal(t, 3, back.Page)
	assert.Equal(t, 1, api.count("products"))
}

func TestEmptyDataset(t *testing.T) {
	b, _ := newBrowser(&stubAPI{})
	l, err := b.Services(context.Background(), key)
	require.NoError(t, err)
	assert.True(t, l.Empty())
	assert.Equal(t, 1, l.Page)
	assert.Equal(t, 1, l.TotalPages)
	assert.Empty(t, l.Services)
}

func TestLostCursorAsksToReselect(t *testing.T) {
	api := &stubAPI{products: makeProducts(25), services: []model.Service{{ID: "s1"}}}
	b, st := newBrowser(api)
	ctx := context.Background()

	_, err := b.Products(ctx, key)
	require.NoError(t, err)
	l, err := b.Page(ctx, key, tokens.Products, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, l.Page)

	st.Clear(key)
	_, err = b.Back(ctx, key, tokens.Products)
	require.ErrorIs(t, err, apperr.ErrLookup)
	assert.Contains(t, apperr.UserMessage(err), "выберите товар из списка снова")

	_, err = b.Page(ctx, key, tokens.Products, 3)
	require.ErrorIs(t, err, apperr.ErrLookup)

	_, err = b.Page(ctx, key, tokens.Services, 2)
	require.ErrorIs(t, err, apperr.ErrLookup)
	assert.Contains(t, apperr.UserMessage(err), "выберите услугу из списка снова")

	_, err = b.Page(ctx, key, tokens.Categories, 2)
	require.ErrorIs(t, err, apperr.ErrLookup)
	assert.Contains(t, apperr.UserMessage(err), "выберите категорию из списка снова")

	assert.Equal(t, 1, api.count("products"))
	assert.Zero(t, api.count("services"))
	assert.Zero(t, api.count("categories"))
}

func TestCategoryProductsWithoutSelectionFails(t *testing.T) {
	b, _ := newBrowser(&stubAPI{})
	_, err := b.Page(context.Background(), key, tokens.CategoryProducts, 2)
	require.ErrorIs(t, err, apperr.ErrLookup)
	assert.Contains(t, apperr.UserMessage(err), "категории")
}

func TestUnknownDataset(t *testing.T) {
	b, _ := newBrowser(&stubAPI{})
	_, err := b.Page(context.Background(), key, "orders", 1)
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestCategoryProductsPrefersDetail(t *testing.T) {
	api := &stubAPI{
		categories: []model.Category{{ID: "c1", Code: "K1", Name: "Масла"}},
		detail:     normalize.CategoryWithProducts{Category: model.Category{ID: "c1", Code: "K1"}, Products: makeProducts(3)},
		byCategory: makeProducts(12),
	}
	b, _ := newBrowser(api)
	ctx := context.Background()
	_, err := b.Categories(ctx, key)
	require.NoError(t, err)

	l, err := b.CategoryProducts(ctx, key, "c1")
	require.NoError(t, err)
	assert.Equal(t, tokens.CategoryProducts, l.Dataset)
	assert.Equal(t, "Масла", l.Category.Name)
	assert.Equal(t, 3, l.Total)
	assert.Zero(t, api.count("products_by_category"))
}

func TestCategoryProductsFallsBack(t *testing.T) {
	api := &stubAPI{
		categories: []model.Category{{ID: "c1", Code: "K1", Name: "Масла"}},
		detailErr:  apperr.Rejected("catalog.category", 404, "not found"),
		byCategory: makeProducts(12),
	}
	b, _ := newBrowser(api)
	ctx := context.Background()
	_, err := b.Categories(ctx, key)
	require.NoError(t, err)

	l, err := b.CategoryProducts(ctx, key, "c1")
	require.NoError(t, err)
	assert.Equal(t, 12, l.Total)
	assert.Equal(t, 2, l.TotalPages)

	l, err = b.Page(ctx, key, tokens.CategoryProducts, 2)
	require.NoError(t, err)
	assert.Len(t, l.Products, 2)
	assert.Equal(t, "c1", l.Category.ID)
	assert.Equal(t, 1, api.count("products_by_category"))
}

func TestCategoryRoundTripAgainstUpstream(t *testing.T) {
	var (
		mu    sync.Mutex
		paths []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		paths = append(paths, r.URL.Path)
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/catalog/categories":
			_, _ = io.WriteString(w, `{"status":200,"data":{"categories":[{"Идентификатор":{"id":"c-1"},"Код":"K1","Наименование":"Масла"}]}}`)
		case "/api/catalog/categories/K1":
			_, _ = io.WriteString(w, `{"status":200,"data":{"category":{"Идентификатор":"c-1","Код":"K1","Наименование":"Масла"},"products":[]}}`)
		case "/api/catalog/products/category/K1":
			_, _ = io.WriteString(w, `{"status":200,"data":[{"id":"p1","name":"Масло 5W-30","price":1200},"Фильтр"]}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	client := upstream.New(upstream.Config{BaseURL: srv.URL, Timeout: time.Second})
	b, _ := newBrowser(client)
	ctx := context.Background()

	cats, err := b.Categories(ctx, key)
	require.NoError(t, err)
	require.Len(t, cats.Categories, 1)
	listed := cats.Categories[0]
	assert.Equal(t, "c-1", listed.ID)

	l, err := b.CategoryProducts(ctx, key, listed.ID)
	require.NoError(t, err)
	assert.Equal(t, listed.ID, l.Category.ID)
	require.Len(t, l.Products, 2)
	assert.Equal(t, "Фильтр", l.Products[1].Name)

	mu.Lock()
	defer mu.Unlock()
	assert.Contains(t, paths, "/api/catalog/categories/K1")
	assert.Contains(t, paths, "/api/catalog/products/category/K1")
}

func TestProductLookupFailure(t *testing.T) {
	products := makeProducts(2)
	products[1].Code = ""
	api := &stubAPI{products: products}
	b, _ := newBrowser(api)
	ctx := context.Background()
	_, err := b.Products(ctx, key)
	require.NoError(t, err)

	_, err = b.Product(ctx, key, "p2")
	require.ErrorIs(t, err, apperr.ErrLookup)
	assert.Equal(t, msgProductLookup, apperr.UserMessage(err))

	_, err = b.Product(ctx, key, "missing")
	require.ErrorIs(t, err, apperr.ErrLookup)
	assert.Zero(t, api.count("product"))
}

func TestProductDetailOriginAndSchemaFallback(t *testing.T) {
	api := &stubAPI{
		categories: []model.Category{{ID: "c1", Code: "c1", Name: "Шины"}},
		byCategory: makeProducts(3),
		productErr: apperr.Schema("catalog.product", "product payload not recognised"),
	}
	b, _ := newBrowser(api)
	ctx := context.Background()
	_, err := b.Categories(ctx, key)
	require.NoError(t, err)
	_, err = b.CategoryProducts(ctx, key, "c1")
	require.NoError(t, err)

	d, err := b.Product(ctx, key, "p2")
	require.NoError(t, err)
	assert.Equal(t, tokens.CategoryProducts, d.Origin)
	assert.True(t, d.Partial)
	assert.Equal(t, "Товар p2", d.Product.Name)
}

func TestProductDetailUpstreamError(t *testing.T) {
	api := &stubAPI{
		products:   makeProducts(1),
		productErr: apperr.Unavailable("catalog.product", fmt.Errorf("dial tcp: refused")),
	}
	b, _ := newBrowser(api)
	ctx := context.Background()
	_, err := b.Products(ctx, key)
	require.NoError(t, err)

	d, err := b.Product(ctx, key, "p1")
	require.ErrorIs(t, err, apperr.ErrUnavailable)
	assert.Equal(t, tokens.Products, d.Origin)
}

func TestServiceDetail(t *testing.T) {
	api := &stubAPI{
		services: []model.Service{{ID: "s1", Code: "S-1", Name: "Замена масла"}, {ID: "s2", Name: "Без кода"}},
		service:  model.Service{ID: "s1", Code: "S-1", Name: "Замена масла", Duration: 45},
	}
	b, _ := newBrowser(api)
	ctx := context.Background()
	_, err := b.Services(ctx, key)
	require.NoError(t, err)

	d, err := b.Service(ctx, key, "s1")
	require.NoError(t, err)
	assert.Equal(t, 45, d.Service.Duration)
	assert.False(t, d.Partial)

	_, err = b.Service(ctx, key, "s2")
	require.ErrorIs(t, err, apperr.ErrLookup)
	assert.Equal(t, msgServiceLookup, apperr.UserMessage(err))
	assert.Equal(t, 1, api.count("service"))
}

func TestForgetDropsCursors(t *testing.T) {
	api := &stubAPI{products: makeProducts(3)}
	b, _ := newBrowser(api)
	ctx := context.Background()
	_, err := b.Products(ctx, key)
	require.NoError(t, err)

	b.Forget(key)
	_, err = b.Product(ctx, key, "p1")
	assert.ErrorIs(t, err, apperr.ErrLookup)
	_, err = b.Page(ctx, key, tokens.Products, 2)
	assert.ErrorIs(t, err, apperr.ErrLookup)
	assert.Equal(t, 1, api.count("products"))
}
