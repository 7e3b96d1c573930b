// Package normalize reshapes raw upstream payloads into the canonical model.
//
// Upstream payloads vary per endpoint and per record: English or localized
// keys, nested or flat identifiers, bare strings instead of objects. Every
// entity kind has one normalizer that walks a fixed field-precedence chain.
// Normalizers never fail: unrecognised shapes are logged, malformed records
// are skipped and detail payloads fall back to a stub with default fields.
package normalize

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/m3rciful/servicebot/core/logger"
)

const component = "normalize"

// Kind names the payload shape expected from an endpoint.
type Kind string

const (
	KindCategoryList   Kind = "category_list"
	KindCategoryDetail Kind = "category_detail"
	KindProductList    Kind = "product_list"
	KindProductDetail  Kind = "product_detail"
	KindServiceList    Kind = "service_list"
	KindServiceDetail  Kind = "service_detail"
	KindOrderList      Kind = "order_list"
	KindOrderDetail    Kind = "order_detail"
	KindStatusList     Kind = "status_list"
	KindStatusCurrent  Kind = "status_current"
	KindStatusChange   Kind = "status_change"
	KindAuth           Kind = "auth"
	KindHistory        Kind = "history"
	KindProbe          Kind = "probe"
	KindUnknown        Kind = "unknown"
)

// KindForPath maps a request method and path onto the payload kind. The
// "/api" prefix and any query string are ignored.
func KindForPath(method, path string) Kind {
	p := path
	if i := strings.IndexByte(p, '?'); i >= 0 {
		p = p[:i]
	}
	p = strings.TrimPrefix(p, "/api")
	p = strings.Trim(p, "/")
	if p == "" {
		return KindUnknown
	}
	seg := strings.Split(p, "/")

	switch seg[0] {
	case "test":
		return KindProbe
	case "auth":
		return KindAuth
	case "history":
		return KindHistory
	case "catalog":
		if len(seg) < 2 {
			return KindUnknown
		}
		switch seg[1] {
		case "categories":
			if len(seg) == 2 {
				return KindCategoryList
			}
			return KindCategoryDetail
		case "products":
			if len(seg) == 2 || (len(seg) >= 3 && seg[2] == "category") {
				return KindProductList
			}
			return KindProductDetail
		case "services":
			if len(seg) == 2 {
				return KindServiceList
			}
			return KindServiceDetail
		}
	case "orders":
		switch {
		case len(seg) == 1:
			return KindOrderList
		case seg[1] == "by-number":
			return KindOrderDetail
		case seg[1] == "statuses":
			return KindStatusList
		case len(seg) == 3 && seg[2] == "status":
			if strings.EqualFold(method, "PUT") {
				return KindStatusChange
			}
			return KindStatusCurrent
		}
	}
	return KindUnknown
}

// Normalize dispatches raw by kind and returns the canonical entity or list.
func Normalize(ctx context.Context, kind Kind, raw any) any {
	switch kind {
	case KindCategoryList:
		return Categories(ctx, raw)
	case KindCategoryDetail:
		detail, _ := CategoryDetail(ctx, raw)
		return detail
	case KindProductList:
		return Products(ctx, raw)
	case KindProductDetail:
		p, _ := Product(ctx, raw)
		return p
	case KindServiceList:
		return Services(ctx, raw)
	case KindServiceDetail:
		s, _ := Service(ctx, raw)
		return s
	case KindOrderList, KindHistory:
		return Orders(ctx, raw)
	case KindOrderDetail:
		o, _ := Order(ctx, raw)
		return o
	case KindStatusList:
		return Statuses(ctx, raw)
	case KindStatusCurrent:
		st, _ := CurrentStatus(ctx, raw)
		return st
	case KindStatusChange:
		ch, _ := StatusChange(ctx, raw)
		return ch
	case KindAuth:
		u, _ := User(ctx, raw)
		return u
	}
	anomaly(ctx, kind, "unknown_kind", -1, raw)
	return nil
}

// collection extracts the record list from a bare array or from an object
// holding the list under one of keys.
func collection(ctx context.Context, kind Kind, raw any, keys ...string) []any {
	switch v := raw.(type) {
	case []any:
		return v
	case map[string]any:
		for _, k := range keys {
			if list, ok := v[k].([]any); ok {
				return list
			}
		}
		anomaly(ctx, kind, "list_not_found", -1, raw)
		return nil
	case nil:
		return nil
	}
	anomaly(ctx, kind, "malformed_payload", -1, raw)
	return nil
}

// unwrap returns the object stored under one of keys, or raw itself when it
// is an object without such a key.
func unwrap(raw any, keys ...string) (record, bool) {
	m, ok := raw.(map[string]any)
	if !ok {
		return nil, false
	}
	for _, k := range keys {
		if inner, ok := m[k].(map[string]any); ok {
			return record(inner), true
		}
	}
	return record(m), true
}

func anomaly(ctx context.Context, kind Kind, reason string, index int, raw any) {
	attrs := []slog.Attr{
		slog.String("kind", string(kind)),
		slog.String("reason", reason),
		slog.String("type", fmt.Sprintf("%T", raw)),
	}
	if index >= 0 {
		attrs = append(attrs, slog.Int("index", index))
	}
	logger.Warn(ctx, component, "payload.anomaly", attrs...)
}
