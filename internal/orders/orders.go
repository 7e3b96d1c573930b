// Package orders is the staff workflow over the upstream order endpoints:
// list, detail, status choices and status transitions.
package orders

import (
	"context"
	"log/slog"
	"strings"

	"github.com/m3rciful/servicebot/core/logger"
	"github.com/m3rciful/servicebot/core/telegram/state"
	"github.com/m3rciful/servicebot/internal/apperr"
	"github.com/m3rciful/servicebot/internal/model"
	"github.com/m3rciful/servicebot/internal/paging"
	"github.com/m3rciful/servicebot/internal/tokens"
)

const component = "orders"

// Operation names as shown in error texts.
const (
	OpList     = "получении списка заказов"
	OpDetail   = "получении деталей заказа"
	OpStatuses = "получении списка статусов"
	OpStatus   = "получении текущего статуса"
	OpUpdate   = "обновлении статуса заказа"

	msgListLookup = "Не удалось найти список заказов. Пожалуйста, откройте список заказов снова."

	unknownStatus = "Неизвестно"
	unknownError  = "Неизвестная ошибка"
)

// API is the order part of the upstream client.
type API interface {
	Orders(ctx context.Context) ([]model.Order, error)
	OrderByNumber(ctx context.Context, number string) (model.Order, error)
	Statuses(ctx context.Context) ([]model.Status, error)
	Status(ctx context.Context, number, orderType string) (model.Status, error)
	UpdateStatus(ctx context.Context, number, code, orderType string) (model.StatusChange, error)
}

// Formatter renders the detail view of an order. The workflow uses the same
// formatter for the first render and for the render after a status change.
type Formatter func(model.Order) string

// OpError names the workflow operation that failed.
type OpError struct {
	Op  string
	Err error
}

func (e *OpError) Error() string { return "orders: " + e.Op + ": " + e.Err.Error() }

func (e *OpError) Unwrap() error { return e.Err }

// Code feeds the err_code log attribute.
func (e *OpError) Code() string { return string(apperr.KindOf(e.Err)) }

// UserMessage is the text shown to staff.
func (e *OpError) UserMessage() string {
	msg := strings.TrimSpace(apperr.UserMessage(e.Err))
	if msg == "" {
		msg = unknownError
	}
	return "❌ Ошибка при " + e.Op + ": " + msg
}

// Listing is one page of the order list.
type Listing struct {
	Orders     []model.Order
	Page       int
	TotalPages int
	Total      int
}

// HasPrev reports whether a previous page exists.
func (l Listing) HasPrev() bool { return l.Page > 1 }

// HasNext reports whether a next page exists.
func (l Listing) HasNext() bool { return l.Page < l.TotalPages }

// Detail is a rendered order.
type Detail struct {
	Order model.Order
	Text  string
}

// Choices is the status picker of one order.
type Choices struct {
	Number   string
	Current  model.Status
	Statuses []model.Status
}

// Result is the outcome of a status change. DetailErr is set when the
// change went through but the order could not be fetched again.
type Result struct {
	Number    string
	Change    model.StatusChange
	Label     string
	Detail    Detail
	DetailErr error
}

// Workflow serves one staff desk. OrderType selects customer or service-bay
// orders for the status endpoints.
type Workflow struct {
	api       API
	store     *state.Store
	orderType string
	format    Formatter
}

// New builds a Workflow.
func New(api API, store *state.Store, orderType string, format Formatter) *Workflow {
	return &Workflow{api: api, store: store, orderType: orderType, format: format}
}

// OrderType returns the order type the workflow works with.
func (w *Workflow) OrderType() string { return w.orderType }

// List fetches every order and opens the first page.
func (w *Workflow) List(ctx context.Context, key state.Key) (Listing, error) {
	list, err := w.api.Orders(ctx)
	if err != nil {
		return Listing{}, w.fail(ctx, OpList, "", err)
	}
	c := paging.NewCursor(list)
	w.store.SetTemp(key, cursorKey, c)
	logger.Info(ctx, component, "orders.list", slog.Int("count", len(list)))
	return listing(c.Current(), len(list)), nil
}

// Page moves the order list to page n. A session that lost the list gets a
// lookup failure asking to open the list again.
func (w *Workflow) Page(ctx context.Context, key state.Key, n int) (Listing, error) {
	var (
		l     Listing
		found bool
	)
	w.store.View(key, func(s *state.Session) {
		c, ok := s.Temp[cursorKey].(*paging.Cursor[model.Order])
		if !ok {
			return
		}
		found = true
		l = listing(c.Goto(n), len(c.Items))
	})
	if found {
		return l, nil
	}
	logger.Warn(ctx, component, "cursor.missing", slog.Int("page", n))
	return Listing{}, apperr.Lookup("orders.page", msgListLookup)
}

// Detail fetches one order and renders it.
func (w *Workflow) Detail(ctx context.Context, number string) (Detail, error) {
	o, err := w.api.OrderByNumber(ctx, number)
	if err != nil {
		return Detail{}, w.fail(ctx, OpDetail, number, err)
	}
	if o.Number == "" {
		o.Number = number
	}
	return Detail{Order: o, Text: w.format(o)}, nil
}

// StatusChoices loads the valid statuses and the current one.
func (w *Workflow) StatusChoices(ctx context.Context, number string) (Choices, error) {
	statuses, err := w.api.Statuses(ctx)
	if err != nil {
		return Choices{}, w.fail(ctx, OpStatuses, number, err)
	}
	current, err := w.api.Status(ctx, number, w.orderType)
	if err != nil {
		return Choices{}, w.fail(ctx, OpStatus, number, err)
	}
	current.Label = Label(statuses, current.Code, unknownStatus)
	return Choices{Number: number, Current: current, Statuses: statuses}, nil
}

// SetStatus moves an order to code. On success the status names are loaded
// again to label the new status and the order detail is re-rendered.
func (w *Workflow) SetStatus(ctx context.Context, number, code string) (Result, error) {
	change, err := w.api.UpdateStatus(ctx, number, code, w.orderType)
	if err != nil {
		return Result{Number: number}, w.fail(ctx, OpUpdate, number, err)
	}
	res := Result{Number: number, Change: change}

	res.Label = change.Status.Code
	if statuses, err := w.api.Statuses(ctx); err == nil {
		res.Label = Label(statuses, change.Status.Code, change.Status.Code)
	} else {
		logger.Warn(ctx, component, "orders.status_names",
			slog.String("order", number),
			slog.String("err_code", string(apperr.KindOf(err))),
		)
	}
	res.Change.Status.Label = res.Label

	logger.Info(ctx, component, "orders.status_set",
		slog.String("order", number),
		slog.String("status", change.Status.Code),
		slog.String("order_type", w.orderType),
	)

	res.Detail, res.DetailErr = w.Detail(ctx, number)
	return res, nil
}

// Label resolves the human name of code, or fallback.
func Label(statuses []model.Status, code, fallback string) string {
	for _, s := range statuses {
		if s.Code == code && s.Label != "" {
			return s.Label
		}
	}
	return fallback
}

const cursorKey = "cursor." + tokens.Orders

func (w *Workflow) fail(ctx context.Context, op, number string, err error) error {
	logger.Warn(ctx, component, "orders.fail",
		slog.String("op", op),
		slog.String("order", number),
		slog.String("err_code", string(apperr.KindOf(err))),
		slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
	)
	return &OpError{Op: op, Err: err}
}

func listing(p paging.Page[model.Order], total int) Listing {
	return Listing{Orders: p.Items, Page: p.Page, TotalPages: p.TotalPages, Total: total}
}
