package normalize

import (
	"context"

	"github.com/m3rciful/servicebot/internal/model"
)

var (
	idKeys          = []string{"id", "Идентификатор", "code", "Код"}
	codeKeys        = []string{"code", "Код"}
	nameKeys        = []string{"name", "Наименование"}
	priceKeys       = []string{"price", "Цена"}
	descriptionKeys = []string{"description", "Описание"}
)

const (
	defaultProductName  = "Товар"
	defaultServiceName  = "Услуга"
	defaultCategoryName = "Категория"
	untitled            = "Без названия"
)

// CategoryWithProducts is a category together with the products it lists.
type CategoryWithProducts struct {
	Category model.Category
	Products []model.Product
}

// Categories normalizes a category list payload.
func Categories(ctx context.Context, raw any) []model.Category {
	list := collection(ctx, KindCategoryList, raw, "categories", "data", "items")
	out := make([]model.Category, 0, len(list))
	for i, item := range list {
		if c, ok := categoryFrom(ctx, KindCategoryList, i, item); ok {
			out = append(out, c)
		}
	}
	return out
}

// CategoryDetail normalizes {"category": {...}, "products": [...]}. The
// returned flag is false when the category object is missing or unusable.
func CategoryDetail(ctx context.Context, raw any) (CategoryWithProducts, bool) {
	var detail CategoryWithProducts
	m, ok := raw.(map[string]any)
	if !ok {
		anomaly(ctx, KindCategoryDetail, "malformed_payload", -1, raw)
		detail.Category = model.Category{Name: defaultCategoryName}
		return detail, false
	}
	rec, _ := unwrap(m, "category")
	detail.Category = categoryRecord(rec)
	if list, ok := m["products"].([]any); ok {
		detail.Products = productList(ctx, KindCategoryDetail, list, defaultProductName)
	}
	if detail.Category.ID == "" {
		anomaly(ctx, KindCategoryDetail, "missing_id", -1, raw)
		return detail, false
	}
	return detail, true
}

// Products normalizes a product list payload.
func Products(ctx context.Context, raw any) []model.Product {
	list := collection(ctx, KindProductList, raw, "products", "data", "items")
	return productList(ctx, KindProductList, list, defaultProductName)
}

// Product normalizes a product detail payload. A stub with default fields
// and false is returned when the payload is not recognised.
func Product(ctx context.Context, raw any) (model.Product, bool) {
	if s, ok := raw.(string); ok && s != "" {
		return liftProduct(s), true
	}
	rec, ok := unwrap(raw, "product")
	if !ok {
		anomaly(ctx, KindProductDetail, "malformed_payload", -1, raw)
		return model.Product{Name: untitled, Price: model.PriceOnRequest()}, false
	}
	p := productRecord(rec, untitled)
	if p.ID == "" {
		anomaly(ctx, KindProductDetail, "missing_id", -1, raw)
		return p, false
	}
	return p, true
}

// Services normalizes a service list payload.
func Services(ctx context.Context, raw any) []model.Service {
	list := collection(ctx, KindServiceList, raw, "services", "data", "items")
	out := make([]model.Service, 0, len(list))
	for i, item := range list {
		switch v := item.(type) {
		case map[string]any:
			s := serviceRecord(record(v))
			if s.ID == "" {
				anomaly(ctx, KindServiceList, "missing_id", i, item)
				continue
			}
			out = append(out, s)
		case string:
			if v == "" {
				anomaly(ctx, KindServiceList, "empty_string", i, item)
				continue
			}
			out = append(out, model.Service{ID: v, Code: v, Name: v, Price: model.PriceOnRequest()})
		default:
			anomaly(ctx, KindServiceList, "malformed_record", i, item)
		}
	}
	return out
}

// Service normalizes a service detail payload.
func Service(ctx context.Context, raw any) (model.Service, bool) {
	rec, ok := unwrap(raw, "service")
	if !ok {
		anomaly(ctx, KindServiceDetail, "malformed_payload", -1, raw)
		return model.Service{Name: defaultServiceName, Price: model.PriceOnRequest()}, false
	}
	s := serviceRecord(rec)
	if s.ID == "" {
		anomaly(ctx, KindServiceDetail, "missing_id", -1, raw)
		return s, false
	}
	return s, true
}

func productList(ctx context.Context, kind Kind, list []any, defaultName string) []model.Product {
	out := make([]model.Product, 0, len(list))
	for i, item := range list {
		switch v := item.(type) {
		case map[string]any:
			p := productRecord(record(v), defaultName)
			if p.ID == "" {
				anomaly(ctx, kind, "missing_id", i, item)
				continue
			}
			out = append(out, p)
		case string:
			if v == "" {
				anomaly(ctx, kind, "empty_string", i, item)
				continue
			}
			out = append(out, liftProduct(v))
		default:
			anomaly(ctx, kind, "malformed_record", i, item)
		}
	}
	return out
}

func productRecord(r record, defaultName string) model.Product {
	p := model.Product{
		ID:           r.ident(idKeys...),
		Code:         r.ident(codeKeys...),
		Name:         r.text(nameKeys...),
		Price:        r.price(priceKeys...),
		Description:  r.text(descriptionKeys...),
		Stock:        r.count("stock", "КоличествоНаСкладе"),
		MinStock:     r.count("min_stock", "МинимальныйЗапас"),
		CategoryID:   r.ident("category_id", "category", "Категория"),
		CategoryName: r.text("category_name", "КатегорияНаименование"),
		Supplier:     r.text("supplier", "ПоставщикНаименование"),
	}
	// Canonical records identify themselves by "id" and use it as the code.
	if p.Code == "" && r.has("id") {
		p.Code = p.ID
	}
	if p.Name == "" {
		p.Name = defaultName
	}
	if p.CategoryName == "" {
		if nested, ok := r.object("category", "Категория"); ok {
			p.CategoryName = nested.text(nameKeys...)
		}
	}
	if in, ok := r.flag("in_stock", "ВНаличии"); ok {
		p.InStock = in
	} else {
		p.InStock = p.Stock > 0
	}
	return p
}

func liftProduct(s string) model.Product {
	return model.Product{ID: s, Code: s, Name: s, Price: model.PriceOnRequest()}
}

func serviceRecord(r record) model.Service {
	s := model.Service{
		ID:          r.ident(idKeys...),
		Code:        r.ident(codeKeys...),
		Name:        r.text(nameKeys...),
		Price:       r.price(priceKeys...),
		Description: r.text(descriptionKeys...),
		Duration:    r.count("duration", "execution_time", "Длительность", "ВремяВыполнения"),
	}
	if s.Code == "" && r.has("id") {
		s.Code = s.ID
	}
	if s.Name == "" {
		s.Name = defaultServiceName
	}
	return s
}

func categoryFrom(ctx context.Context, kind Kind, index int, item any) (model.Category, bool) {
	switch v := item.(type) {
	case map[string]any:
		c := categoryRecord(record(v))
		if c.ID == "" {
			anomaly(ctx, kind, "missing_id", index, item)
			return c, false
		}
		return c, true
	case string:
		if v == "" {
			anomaly(ctx, kind, "empty_string", index, item)
			return model.Category{}, false
		}
		return model.Category{ID: v, Code: v, Name: v}, true
	}
	anomaly(ctx, kind, "malformed_record", index, item)
	return model.Category{}, false
}

// categoryRecord always yields a lookup code: categories without one are
// reachable by their id.
func categoryRecord(r record) model.Category {
	c := model.Category{
		ID:          r.ident(idKeys...),
		Code:        r.ident(codeKeys...),
		Name:        r.text(nameKeys...),
		Description: r.text(descriptionKeys...),
	}
	if c.Code == "" {
		c.Code = c.ID
	}
	if c.Name == "" {
		c.Name = defaultCategoryName
	}
	return c
}
