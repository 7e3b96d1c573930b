package orders

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/servicebot/core/telegram/state"
	"github.com/m3rciful/servicebot/internal/apperr"
	"github.com/m3rciful/servicebot/internal/model"
)

type fakeOrders struct {
	mu sync.Mutex

	orders      []model.Order
	order       model.Order
	orderErr    error
	statuses    []model.Status
	statusesErr error
	current     model.Status
	statusErr   error
	change      model.StatusChange
	updateErr   error

	calls     map[string]int
	orderType string
}

func (f *fakeOrders) hit(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	f.calls[name]++
}

func (f *fakeOrders) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeOrders) Orders(context.Context) ([]model.Order, error) {
	f.hit("orders")
	return f.orders, nil
}

func (f *fakeOrders) OrderByNumber(_ context.Context, number string) (model.Order, error) {
	f.hit("order")
	if f.orderErr != nil {
		return model.Order{}, f.orderErr
	}
	o := f.order
	o.Number = number
	return o, nil
}

func (f *fakeOrders) Statuses(context.Context) ([]model.Status, error) {
	f.hit("statuses")
	return f.statuses, f.statusesErr
}

func (f *fakeOrders) Status(_ context.Context, _ string, orderType string) (model.Status, error) {
	f.hit("status")
	f.orderType = orderType
	return f.current, f.statusErr
}

func (f *fakeOrders) UpdateStatus(_ context.Context, _, code, orderType string) (model.StatusChange, error) {
	f.hit("update")
	f.orderType = orderType
	if f.updateErr != nil {
		return model.StatusChange{}, f.updateErr
	}
	ch := f.change
	ch.Status.Code = code
	return ch, nil
}

var (
	key      = state.Key{ChatID: 5, UserID: 5}
	statuses = []model.Status{{Code: "1", Label: "Новый"}, {Code: "2", Label: "В работе"}}
)

type countingFormatter struct {
	mu    sync.Mutex
	calls int
}

func (c *countingFormatter) format(o model.Order) string {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
	return "order #" + o.Number + " " + o.Status.Code
}

func newWorkflow(api API) (*Workflow, *countingFormatter) {
	f := &countingFormatter{}
	st := state.NewStore(state.Options{TTL: time.Minute})
	return New(api, st, model.OrderKindServiceBay, f.format), f
}

func TestSetStatusRelabelsAndRerenders(t *testing.T) {
	api := &fakeOrders{
		statuses: statuses,
		order:    model.Order{Status: model.Status{Code: "2"}},
		change:   model.StatusChange{UpdatedAt: model.Timestamp{Raw: "2024-05-01T10:00:00"}},
	}
	w, f := newWorkflow(api)
	ctx := context.Background()

	res, err := w.SetStatus(ctx, "42", "2")
	require.NoError(t, err)
	assert.Equal(t, "В работе", res.Label)
	assert.Equal(t, "В работе", res.Change.Status.Label)
	assert.Equal(t, "2024-05-01T10:00:00", res.Change.UpdatedAt.Raw)
	require.NoError(t, res.DetailErr)
	assert.Equal(t, model.OrderKindServiceBay, api.orderType)

	first, err := w.Detail(ctx, "42")
	require.NoError(t, err)
	assert.Equal(t, first.Text, res.Detail.Text)
	assert.Equal(t, 2, f.calls)
	assert.Equal(t, 1, api.count("statuses"))
}

func TestSetStatusFailureNamesOperation(t *testing.T) {
	api := &fakeOrders{updateErr: apperr.Rejected("orders.update_status", 400, "Недопустимый статус")}
	w, f := newWorkflow(api)

	_, err := w.SetStatus(context.Background(), "42", "9")
	require.Error(t, err)

	var opErr *OpError
	require.ErrorAs(t, err, &opErr)
	assert.Equal(t, OpUpdate, opErr.Op)
	assert.Equal(t, "❌ Ошибка при обновлении статуса заказа: Недопустимый статус", opErr.UserMessage())
	assert.ErrorIs(t, err, apperr.ErrRejected)
	assert.Equal(t, 1, api.count("update"), "status changes are never retried")
	assert.Zero(t, api.count("statuses"))
	assert.Zero(t, f.calls)
}

func TestSetStatusKeepsCodeWhenNamesUnavailable(t *testing.T) {
	api := &fakeOrders{statusesErr: apperr.Unavailable("orders.statuses", errors.New("refused"))}
	w, _ := newWorkflow(api)

	res, err := w.SetStatus(context.Background(), "42", "3")
	require.NoError(t, err)
	assert.Equal(t, "3", res.Label)
}

func TestSetStatusDetailFailureIsSeparate(t *testing.T) {
	api := &fakeOrders{statuses: statuses, orderErr: apperr.Schema("orders.detail", "order key missing")}
	w, _ := newWorkflow(api)

	res, err := w.SetStatus(context.Background(), "42", "1")
	require.NoError(t, err)
	assert.Equal(t, "Новый", res.Label)
	require.Error(t, res.DetailErr)
	var opErr *OpError
	require.ErrorAs(t, res.DetailErr, &opErr)
	assert.Equal(t, OpDetail, opErr.Op)
}

func TestStatusChoices(t *testing.T) {
	api := &fakeOrders{statuses: statuses, current: model.Status{Code: "1"}}
	w, _ := newWorkflow(api)

	ch, err := w.StatusChoices(context.Background(), "7")
	require.NoError(t, err)
	assert.Equal(t, "Новый", ch.Current.Label)
	assert.Len(t, ch.Statuses, 2)

	api.current = model.Status{Code: "99"}
	ch, err = w.StatusChoices(context.Background(), "7")
	require.NoError(t, err)
	assert.Equal(t, "Неизвестно", ch.Current.Label)
}

func TestStatusChoicesFailures(t *testing.T) {
	api := &fakeOrders{statusesErr: apperr.Rejected("orders.statuses", 500, "")}
	w, _ := newWorkflow(api)

	_, err := w.StatusChoices(context.Background(), "7")
	var opErr *OpError
	require.ErrorAs(t, err, &opErr)
	assert.Equal(t, OpStatuses, opErr.Op)
	assert.Equal(t, "❌ Ошибка при получении списка статусов: операция не выполнена (код 500)", opErr.UserMessage())

	api.statusesErr = nil
	api.statuses = statuses
	api.statusErr = apperr.Schema("orders.status", "status key missing")
	_, err = w.StatusChoices(context.Background(), "7")
	require.ErrorAs(t, err, &opErr)
	assert.Equal(t, OpStatus, opErr.Op)
	assert.Equal(t, "schema_mismatch", opErr.Code())
}

func TestListPagination(t *testing.T) {
	list := make([]model.Order, 23)
	for i := range list {
		list[i] = model.Order{Number: fmt.Sprint(i + 1)}
	}
	api := &fakeOrders{orders: list}
	w, _ := newWorkflow(api)
	ctx := context.Background()

	l, err := w.List(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, 3, l.TotalPages)
	assert.Equal(t, 23, l.Total)
	assert.Len(t, l.Orders, 10)

	l, err = w.Page(ctx, key, 7)
	require.NoError(t, err)
	assert.Equal(t, 3, l.Page)
	assert.Len(t, l.Orders, 3)
	assert.Equal(t, "21", l.Orders[0].Number)
	assert.Equal(t, 1, api.count("orders"))
}

func TestPageWithoutListAsksToReopen(t *testing.T) {
	api := &fakeOrders{orders: []model.Order{{Number: "1"}}}
	w, _ := newWorkflow(api)

	_, err := w.Page(context.Background(), key, 2)
	require.ErrorIs(t, err, apperr.ErrLookup)
	assert.Contains(t, apperr.UserMessage(err), "откройте список заказов снова")
	assert.Zero(t, api.count("orders"))
}

func TestLabel(t *testing.T) {
	assert.Equal(t, "В работе", Label(statuses, "2", "x"))
	assert.Equal(t, "x", Label(statuses, "5", "x"))
	assert.Equal(t, "x", Label([]model.Status{{Code: "5"}}, "5", "x"))
}
