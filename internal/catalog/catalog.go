// Package catalog implements catalog browsing for one conversation: list
// fetches, page moves over the held lists and detail lookups.
package catalog

import (
	"context"
	"errors"
	"log/slog"

	"github.com/m3rciful/servicebot/core/logger"
	"github.com/m3rciful/servicebot/core/telegram/state"
	"github.com/m3rciful/servicebot/internal/apperr"
	"github.com/m3rciful/servicebot/internal/model"
	"github.com/m3rciful/servicebot/internal/normalize"
	"github.com/m3rciful/servicebot/internal/paging"
	"github.com/m3rciful/servicebot/internal/tokens"
)

const component = "catalog"

const (
	msgProductLookup  = "Не удалось найти код товара. Пожалуйста, выберите товар из списка снова."
	msgServiceLookup  = "Не удалось найти код услуги. Пожалуйста, выберите услугу из списка снова."
	msgCategoryLookup = "Не удалось найти код категории. Пожалуйста, выберите категорию из списка снова."

	tempCategory = "catalog.category"
	tempOrigin   = "catalog.origin"
)

// API is the catalog part of the upstream client.
type API interface {
	Categories(ctx context.Context) ([]model.Category, error)
	Category(ctx context.Context, code string) (normalize.CategoryWithProducts, error)
	Products(ctx context.Context) ([]model.Product, error)
	ProductsByCategory(ctx context.Context, code string) ([]model.Product, error)
	Product(ctx context.Context, code string) (model.Product, error)
	Services(ctx context.Context) ([]model.Service, error)
	Service(ctx context.Context, code string) (model.Service, error)
}

// Listing is one page of a dataset ready for display. Only the slice that
// matches Dataset is filled.
type Listing struct {
	Dataset    string
	Page       int
	TotalPages int
	Total      int
	// Category is the selected category of a category_products listing.
	Category model.Category

	Products   []model.Product
	Services   []model.Service
	Categories []model.Category
}

// HasPrev reports whether a previous page exists.
func (l Listing) HasPrev() bool { return l.Page > 1 }

// HasNext reports whether a next page exists.
func (l Listing) HasNext() bool { return l.Page < l.TotalPages }

// Empty reports whether the dataset holds no items at all.
func (l Listing) Empty() bool { return l.Total == 0 }

// ProductDetail is a product screen. Origin is the dataset the product was
// picked from and drives the back button. Partial marks a detail built from
// the listed record because the upstream detail was not recognised.
type ProductDetail struct {
	Product model.Product
	Origin  string
	Partial bool
}

// ServiceDetail is a service screen.
type ServiceDetail struct {
	Service model.Service
	Partial bool
}

// Browser keeps one cursor per dataset in the session store.
type Browser struct {
	api   API
	store *state.Store
}

// New builds a Browser.
func New(api API, store *state.Store) *Browser {
	return &Browser{api: api, store: store}
}

// Categories fetches the category list and opens its first page.
func (b *Browser) Categories(ctx context.Context, key state.Key) (Listing, error) {
	items, err := b.api.Categories(ctx)
	if err != nil {
		return Listing{Dataset: tokens.Categories}, err
	}
	b.logList(ctx, tokens.Categories, len(items))
	return categoriesListing(hold(b.store, key, tokens.Categories, items)), nil
}

// Products fetches every product and opens the first page.
func (b *Browser) Products(ctx context.Context, key state.Key) (Listing, error) {
	items, err := b.api.Products(ctx)
	if err != nil {
		return Listing{Dataset: tokens.Products}, err
	}
	b.logList(ctx, tokens.Products, len(items))
	b.store.SetTemp(key, tempOrigin, tokens.Products)
	return productsListing(tokens.Products, hold(b.store, key, tokens.Products, items)), nil
}

// Services fetches every service and opens the first page.
func (b *Browser) Services(ctx context.Context, key state.Key) (Listing, error) {
	items, err := b.api.Services(ctx)
	if err != nil {
		return Listing{Dataset: tokens.Services}, err
	}
	b.logList(ctx, tokens.Services, len(items))
	return servicesListing(hold(b.store, key, tokens.Services, items)), nil
}

// CategoryProducts opens the products of the category listed under id. The
// category detail is asked first; when it carries no products the
// products-by-category endpoint is used instead.
func (b *Browser) CategoryProducts(ctx context.Context, key state.Key, id string) (Listing, error) {
	cat, ok := find(b.store, key, tokens.Categories, func(c model.Category) bool { return c.ID == id })
	if !ok {
		cat = model.Category{ID: id, Code: id}
	}
	code := cat.LookupKey()
	if code == "" {
		return Listing{Dataset: tokens.CategoryProducts}, apperr.Lookup("catalog.category", msgCategoryLookup)
	}

	var products []model.Product
	detail, err := b.api.Category(ctx, code)
	if err == nil {
		products = detail.Products
		if cat.Name == "" {
			cat.Name = detail.Category.Name
		}
		if cat.Description == "" {
			cat.Description = detail.Category.Description
		}
	} else {
		logger.Debug(ctx, component, "category.detail_fallback",
			slog.String("code", code),
			slog.String("err_code", string(apperr.KindOf(err))),
		)
	}
	if len(products) == 0 {
		products, err = b.api.ProductsByCategory(ctx, code)
		if err != nil {
			return Listing{Dataset: tokens.CategoryProducts, Category: cat}, err
		}
	}

	b.logList(ctx, tokens.CategoryProducts, len(products))
	b.store.SetTemp(key, tempCategory, cat)
	b.store.SetTemp(key, tempOrigin, tokens.CategoryProducts)
	l := productsListing(tokens.CategoryProducts, hold(b.store, key, tokens.CategoryProducts, products))
	l.Category = cat
	return l, nil
}

// Page moves the cursor of dataset to page n by re-slicing the held list.
// A session that lost the list gets a lookup failure.
func (b *Browser) Page(ctx context.Context, key state.Key, dataset string, n int) (Listing, error) {
	return b.show(ctx, key, dataset, n, false)
}

// Back redraws dataset at the page its cursor points to.
func (b *Browser) Back(ctx context.Context, key state.Key, dataset string) (Listing, error) {
	return b.show(ctx, key, dataset, 0, true)
}

func (b *Browser) show(ctx context.Context, key state.Key, dataset string, n int, current bool) (Listing, error) {
	var (
		l     Listing
		found bool
	)
	switch dataset {
	case tokens.Categories:
		var w window[model.Category]
		w, found = move[model.Category](b.store, key, dataset, n, current)
		l = categoriesListing(w)
	case tokens.Services:
		var w window[model.Service]
		w, found = move[model.Service](b.store, key, dataset, n, current)
		l = servicesListing(w)
	case tokens.Products, tokens.CategoryProducts:
		var w window[model.Product]
		w, found = move[model.Product](b.store, key, dataset, n, current)
		l = productsListing(dataset, w)
		if dataset == tokens.CategoryProducts {
			l.Category, _ = b.selectedCategory(key)
		}
		if found {
			b.store.SetTemp(key, tempOrigin, dataset)
		}
	default:
		return Listing{Dataset: dataset}, apperr.Validation("catalog.page", "unknown dataset "+dataset)
	}
	if found {
		return l, nil
	}

	logger.Warn(ctx, component, "cursor.missing", slog.String("dataset", dataset))
	return Listing{Dataset: dataset}, b.lostCursor(key, dataset)
}

// lostCursor asks to pick from a fresh list. Page moves never go upstream.
func (b *Browser) lostCursor(key state.Key, dataset string) error {
	switch dataset {
	case tokens.Categories:
		return apperr.Lookup("catalog.page", msgCategoryLookup)
	case tokens.Services:
		return apperr.Lookup("catalog.page", msgServiceLookup)
	case tokens.CategoryProducts:
		if _, ok := b.selectedCategory(key); !ok {
			return apperr.Lookup("catalog.category", msgCategoryLookup)
		}
	}
	return apperr.Lookup("catalog.page", msgProductLookup)
}

// Product opens the detail of a listed product.
func (b *Browser) Product(ctx context.Context, key state.Key, id string) (ProductDetail, error) {
	byID := func(p model.Product) bool { return p.ID == id }
	origin := b.origin(key)
	listed, ok := find(b.store, key, origin, byID)
	if !ok {
		other := tokens.Products
		if origin == tokens.Products {
			other = tokens.CategoryProducts
		}
		if listed, ok = find(b.store, key, other, byID); ok {
			origin = other
		}
	}
	out := ProductDetail{Origin: origin}
	if !ok || listed.LookupKey() == "" {
		logger.Warn(ctx, component, "lookup.fail", slog.String("entity", tokens.Product), slog.Bool("listed", ok))
		return out, apperr.Lookup("catalog.product", msgProductLookup)
	}

	p, err := b.api.Product(ctx, listed.LookupKey())
	switch {
	case err == nil:
		out.Product = p
	case errors.Is(err, apperr.ErrSchema):
		out.Product, out.Partial = listed, true
	default:
		return out, err
	}
	return out, nil
}

// Service opens the detail of a listed service.
func (b *Browser) Service(ctx context.Context, key state.Key, id string) (ServiceDetail, error) {
	listed, ok := find(b.store, key, tokens.Services, func(s model.Service) bool { return s.ID == id })
	if !ok || listed.LookupKey() == "" {
		logger.Warn(ctx, component, "lookup.fail", slog.String("entity", tokens.Service), slog.Bool("listed", ok))
		return ServiceDetail{}, apperr.Lookup("catalog.service", msgServiceLookup)
	}

	s, err := b.api.Service(ctx, listed.LookupKey())
	switch {
	case err == nil:
		return ServiceDetail{Service: s}, nil
	case errors.Is(err, apperr.ErrSchema):
		return ServiceDetail{Service: listed, Partial: true}, nil
	}
	return ServiceDetail{}, err
}

// Forget drops every cursor of key.
func (b *Browser) Forget(key state.Key) {
	for _, ds := range []string{tokens.Categories, tokens.Products, tokens.Services, tokens.CategoryProducts} {
		b.store.ClearTemp(key, cursorKey(ds))
	}
	b.store.ClearTemp(key, tempCategory)
	b.store.ClearTemp(key, tempOrigin)
}

func (b *Browser) selectedCategory(key state.Key) (model.Category, bool) {
	v, ok := b.store.Temp(key, tempCategory)
	if !ok {
		return model.Category{}, false
	}
	c, ok := v.(model.Category)
	return c, ok
}

func (b *Browser) origin(key state.Key) string {
	if v, ok := b.store.Temp(key, tempOrigin); ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return tokens.Products
}

func (b *Browser) logList(ctx context.Context, dataset string, n int) {
	logger.Info(ctx, component, "catalog.list",
		slog.String("dataset", dataset),
		slog.Int("count", n),
		slog.Int("pages", paging.TotalPages(n, paging.PageSize)),
	)
}

func cursorKey(dataset string) string { return "cursor." + dataset }

// window is a page together with the length of the whole list.
type window[T any] struct {
	paging.Page[T]
	total int
}

// hold replaces the cursor of dataset and returns its first page.
func hold[T any](s *state.Store, key state.Key, dataset string, items []T) window[T] {
	c := paging.NewCursor(items)
	s.SetTemp(key, cursorKey(dataset), c)
	return window[T]{Page: c.Current(), total: len(items)}
}

// move repositions the cursor under the session lock. current keeps the
// cursor where it is.
func move[T any](s *state.Store, key state.Key, dataset string, n int, current bool) (window[T], bool) {
	var (
		w     window[T]
		found bool
	)
	s.View(key, func(sess *state.Session) {
		c, ok := sess.Temp[cursorKey(dataset)].(*paging.Cursor[T])
		if !ok {
			return
		}
		found = true
		w.total = len(c.Items)
		if current {
			w.Page = c.Current()
			return
		}
		w.Page = c.Goto(n)
	})
	return w, found
}

func find[T any](s *state.Store, key state.Key, dataset string, fn func(T) bool) (T, bool) {
	var (
		v  T
		ok bool
	)
	s.View(key, func(sess *state.Session) {
		c, _ := sess.Temp[cursorKey(dataset)].(*paging.Cursor[T])
		v, ok = c.Find(fn)
	})
	return v, ok
}

func categoriesListing(w window[model.Category]) Listing {
	return Listing{Dataset: tokens.Categories, Page: w.Page.Page, TotalPages: w.TotalPages, Total: w.total, Categories: w.Items}
}

func servicesListing(w window[model.Service]) Listing {
	return Listing{Dataset: tokens.Services, Page: w.Page.Page, TotalPages: w.TotalPages, Total: w.total, Services: w.Items}
}

func productsListing(dataset string, w window[model.Product]) Listing {
	return Listing{Dataset: dataset, Page: w.Page.Page, TotalPages: w.TotalPages, Total: w.total, Products: w.Items}
}
