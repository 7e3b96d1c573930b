package upstream

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/m3rciful/servicebot/internal/apperr"
	"github.com/m3rciful/servicebot/internal/model"
	"github.com/m3rciful/servicebot/internal/normalize"
)

// Probe checks the upstream test endpoint.
func (c *Client) Probe(ctx context.Context) error {
	resp, err := c.Do(ctx, http.MethodGet, probePath, nil, nil)
	if err != nil {
		return err
	}
	if !resp.OK() {
		return rejected("probe", resp)
	}
	return nil
}

// Categories lists catalog categories.
func (c *Client) Categories(ctx context.Context) ([]model.Category, error) {
	resp, err := c.get(ctx, "catalog.categories", "/api/catalog/categories")
	if err != nil {
		return nil, err
	}
	return normalize.Categories(ctx, resp.Data), nil
}

// Category fetches one category with its products.
func (c *Client) Category(ctx context.Context, code string) (normalize.CategoryWithProducts, error) {
	if err := requireCode("catalog.category", code); err != nil {
		return normalize.CategoryWithProducts{}, err
	}
	resp, err := c.get(ctx, "catalog.category", "/api/catalog/categories/"+url.PathEscape(code))
	if err != nil {
		return normalize.CategoryWithProducts{}, err
	}
	detail, ok := normalize.CategoryDetail(ctx, resp.Data)
	if !ok {
		return detail, apperr.Schema("catalog.category", "category payload not recognised")
	}
	return detail, nil
}

// Products lists every product.
func (c *Client) Products(ctx context.Context) ([]model.Product, error) {
	resp, err := c.get(ctx, "catalog.products", "/api/catalog/products")
	if err != nil {
		return nil, err
	}
	return normalize.Products(ctx, resp.Data), nil
}

// ProductsByCategory lists the products of one category.
func (c *Client) ProductsByCategory(ctx context.Context, code string) ([]model.Product, error) {
	if err := requireCode("catalog.products_by_category", code); err != nil {
		return nil, err
	}
	resp, err := c.get(ctx, "catalog.products_by_category", "/api/catalog/products/category/"+url.PathEscape(code))
	if err != nil {
		return nil, err
	}
	return normalize.Products(ctx, resp.Data), nil
}

// Product fetches one product. On a schema mismatch the stub is returned
// together with a Schema error.
func (c *Client) Product(ctx context.Context, code string) (model.Product, error) {
	if err := requireCode("catalog.product", code); err != nil {
		return model.Product{}, err
	}
	resp, err := c.get(ctx, "catalog.product", "/api/catalog/products/"+url.PathEscape(code))
	if err != nil {
		return model.Product{}, err
	}
	p, ok := normalize.Product(ctx, resp.Data)
	if !ok {
		return p, apperr.Schema("catalog.product", "product payload not recognised")
	}
	return p, nil
}

// Services lists every service.
func (c *Client) Services(ctx context.Context) ([]model.Service, error) {
	resp, err := c.get(ctx, "catalog.services", "/api/catalog/services")
	if err != nil {
		return nil, err
	}
	return normalize.Services(ctx, resp.Data), nil
}

// Service fetches one service.
func (c *Client) Service(ctx context.Context, code string) (model.Service, error) {
	if err := requireCode("catalog.service", code); err != nil {
		return model.Service{}, err
	}
	resp, err := c.get(ctx, "catalog.service", "/api/catalog/services/"+url.PathEscape(code))
	if err != nil {
		return model.Service{}, err
	}
	s, ok := normalize.Service(ctx, resp.Data)
	if !ok {
		return s, apperr.Schema("catalog.service", "service payload not recognised")
	}
	return s, nil
}

// History returns the purchase history of a phone number.
func (c *Client) History(ctx context.Context, phone string) ([]model.Order, error) {
	if strings.TrimSpace(phone) == "" {
		return nil, apperr.Lookup("history", "phone is unknown")
	}
	resp, err := c.Do(ctx, http.MethodGet, "/api/history/", url.Values{"phone": {phone}}, nil)
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, rejected("history", resp)
	}
	return normalize.Orders(ctx, resp.Data), nil
}

func (c *Client) get(ctx context.Context, op, path string) (Response, error) {
	resp, err := c.Do(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return resp, err
	}
	if !resp.OK() {
		return resp, rejected(op, resp)
	}
	return resp, nil
}

func requireCode(op, code string) error {
	if strings.TrimSpace(code) == "" {
		return apperr.Lookup(op, "empty lookup code")
	}
	return nil
}
