package normalize

import (
	"context"

	"github.com/m3rciful/servicebot/internal/model"
)

var (
	orderNumberKeys = []string{"number", "Номер", "id", "Идентификатор"}
	orderItemKeys   = []string{"items", "Товары", "Позиции"}
)

// Orders normalizes an order list or purchase history payload. Records
// without a number and without an id are dropped.
func Orders(ctx context.Context, raw any) []model.Order {
	list := collection(ctx, KindOrderList, raw, "orders", "data", "items")
	out := make([]model.Order, 0, len(list))
	for i, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			anomaly(ctx, KindOrderList, "malformed_record", i, item)
			continue
		}
		o := orderRecord(record(m))
		if o.Number == "" {
			anomaly(ctx, KindOrderList, "missing_number", i, item)
			continue
		}
		out = append(out, o)
	}
	return out
}

// Order normalizes {"order": {...}}.
func Order(ctx context.Context, raw any) (model.Order, bool) {
	rec, ok := unwrap(raw, "order")
	if !ok {
		anomaly(ctx, KindOrderDetail, "malformed_payload", -1, raw)
		return model.Order{}, false
	}
	o := orderRecord(rec)
	if o.Number == "" {
		anomaly(ctx, KindOrderDetail, "missing_number", -1, raw)
		return o, false
	}
	return o, true
}

// Statuses normalizes {"statuses": [{"id", "name"}]}.
func Statuses(ctx context.Context, raw any) []model.Status {
	list := collection(ctx, KindStatusList, raw, "statuses", "data")
	out := make([]model.Status, 0, len(list))
	for i, item := range list {
		switch v := item.(type) {
		case map[string]any:
			st := statusRecord(record(v))
			if st.Code == "" {
				anomaly(ctx, KindStatusList, "missing_id", i, item)
				continue
			}
			out = append(out, st)
		case string:
			if v != "" {
				out = append(out, model.Status{Code: v, Label: v})
				continue
			}
			anomaly(ctx, KindStatusList, "empty_string", i, item)
		default:
			anomaly(ctx, KindStatusList, "malformed_record", i, item)
		}
	}
	return out
}

// CurrentStatus normalizes {"status": <code>}. The label is left empty and
// is resolved against the status list by the caller.
func CurrentStatus(ctx context.Context, raw any) (model.Status, bool) {
	rec, ok := unwrap(raw, "data")
	if !ok {
		anomaly(ctx, KindStatusCurrent, "malformed_payload", -1, raw)
		return model.Status{}, false
	}
	st := statusField(rec)
	if st.Code == "" {
		anomaly(ctx, KindStatusCurrent, "missing_status", -1, raw)
		return st, false
	}
	return st, true
}

// StatusChange normalizes {"status": <code>, "updated_at": <ts>}. Both keys
// are required.
func StatusChange(ctx context.Context, raw any) (model.StatusChange, bool) {
	rec, ok := unwrap(raw, "data")
	if !ok {
		anomaly(ctx, KindStatusChange, "malformed_payload", -1, raw)
		return model.StatusChange{}, false
	}
	ch := model.StatusChange{
		Status:    statusField(rec),
		UpdatedAt: rec.timestamp("updated_at", "updatedAt", "ДатаИзменения"),
	}
	if inner, ok := rec.object("order"); ok {
		ch.Order = orderRecord(inner)
	}
	if ch.Status.Code == "" || ch.UpdatedAt.IsZero() {
		anomaly(ctx, KindStatusChange, "missing_keys", -1, raw)
		return ch, false
	}
	return ch, true
}

func orderRecord(r record) model.Order {
	o := model.Order{
		ID:        r.ident("id", "Идентификатор"),
		Number:    r.ident(orderNumberKeys...),
		Kind:      r.text("type", "kind", "Тип"),
		Date:      r.timestamp("date", "Дата"),
		Status:    statusField(r),
		Comment:   r.text("comment", "Комментарий"),
		Car:       r.text("car", "Автомобиль"),
		Mechanic:  r.text("mechanic", "Механик"),
		StartDate: r.timestamp("start_date", "ДатаНачала"),
		EndDate:   r.timestamp("end_date", "ДатаОкончания"),
	}
	if f, ok := r.number("amount", "Сумма"); ok {
		o.Amount = f
	}
	if c, ok := r.object("client", "Клиент"); ok {
		o.Client = model.Client{
			Name:  c.text("name", "Наименование"),
			Phone: c.text("phone", "Телефон"),
		}
	} else {
		o.Client.Name = r.text("client", "Клиент")
	}
	if v, ok := r.value(orderItemKeys...); ok {
		if list, ok := v.([]any); ok {
			o.Items = orderItems(list)
		}
	}
	return o
}

func orderItems(list []any) []model.OrderItem {
	out := make([]model.OrderItem, 0, len(list))
	for _, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		r := record(m)
		it := model.OrderItem{
			Name:     r.text("name", "Наименование"),
			Quantity: r.count("quantity", "Количество"),
		}
		if it.Quantity < 1 {
			it.Quantity = 1
		}
		if f, ok := r.number("price", "Цена"); ok {
			it.UnitPrice = f
		}
		if f, ok := r.number("amount", "Сумма"); ok {
			it.Amount = f
		} else {
			it.Amount = it.UnitPrice * float64(it.Quantity)
		}
		out = append(out, it)
	}
	return out
}

// statusField reads a status given either as a bare code or as {"id", "name"}.
func statusField(r record) model.Status {
	if nested, ok := r.object("status", "Статус"); ok {
		return statusRecord(nested)
	}
	code := r.text("status", "Статус")
	return model.Status{Code: code, Label: code}
}

func statusRecord(r record) model.Status {
	st := model.Status{
		Code:  r.ident("id", "code", "Код", "Идентификатор"),
		Label: r.text("name", "label", "Наименование"),
	}
	if st.Label == "" {
		st.Label = st.Code
	}
	return st
}
