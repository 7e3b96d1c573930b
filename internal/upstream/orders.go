package upstream

import (
	"context"
	"net/http"
	"net/url"

	"github.com/m3rciful/servicebot/internal/apperr"
	"github.com/m3rciful/servicebot/internal/model"
	"github.com/m3rciful/servicebot/internal/normalize"
)

type statusQuery struct {
	Type string `json:"type"`
}

type statusUpdate struct {
	Status string `json:"status"`
	Type   string `json:"type"`
}

// Orders lists every order visible to staff.
func (c *Client) Orders(ctx context.Context) ([]model.Order, error) {
	resp, err := c.get(ctx, "orders.list", "/orders")
	if err != nil {
		return nil, err
	}
	if _, bare := resp.Data.([]any); !bare && !resp.Has("orders") {
		return nil, apperr.Schema("orders.list", "orders key missing")
	}
	return normalize.Orders(ctx, resp.Data), nil
}

// OrderByNumber fetches one order.
func (c *Client) OrderByNumber(ctx context.Context, number string) (model.Order, error) {
	if err := requireCode("orders.detail", number); err != nil {
		return model.Order{}, err
	}
	resp, err := c.get(ctx, "orders.detail", "/orders/by-number/"+url.PathEscape(number))
	if err != nil {
		return model.Order{}, err
	}
	o, ok := normalize.Order(ctx, resp.Data)
	if !ok || !resp.Has("order") {
		return o, apperr.Schema("orders.detail", "order key missing")
	}
	return o, nil
}

// Statuses lists the valid status codes with their labels.
func (c *Client) Statuses(ctx context.Context) ([]model.Status, error) {
	resp, err := c.get(ctx, "orders.statuses", "/orders/statuses/list")
	if err != nil {
		return nil, err
	}
	if !resp.Has("statuses") {
		return nil, apperr.Schema("orders.statuses", "statuses key missing")
	}
	return normalize.Statuses(ctx, resp.Data), nil
}

// Status returns the current status code of an order of the given type.
func (c *Client) Status(ctx context.Context, number, orderType string) (model.Status, error) {
	if err := requireCode("orders.status", number); err != nil {
		return model.Status{}, err
	}
	resp, err := c.Do(ctx, http.MethodPost, "/orders/"+url.PathEscape(number)+"/status", nil, statusQuery{Type: orderType})
	if err != nil {
		return model.Status{}, err
	}
	if !resp.OK() {
		return model.Status{}, rejected("orders.status", resp)
	}
	st, ok := normalize.CurrentStatus(ctx, resp.Data)
	if !ok {
		return st, apperr.Schema("orders.status", "status key missing")
	}
	return st, nil
}

// UpdateStatus moves an order to a new status. The answer must carry both
// the new status and its timestamp.
func (c *Client) UpdateStatus(ctx context.Context, number, code, orderType string) (model.StatusChange, error) {
	if err := requireCode("orders.update_status", number); err != nil {
		return model.StatusChange{}, err
	}
	resp, err := c.Do(ctx, http.MethodPut, "/orders/"+url.PathEscape(number)+"/status", nil, statusUpdate{Status: code, Type: orderType})
	if err != nil {
		return model.StatusChange{}, err
	}
	if !resp.OK() {
		return model.StatusChange{}, rejected("orders.update_status", resp)
	}
	ch, ok := normalize.StatusChange(ctx, resp.Data)
	if !ok {
		return ch, apperr.Schema("orders.update_status", "status or updated_at missing")
	}
	return ch, nil
}
