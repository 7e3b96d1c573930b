package normalize

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/m3rciful/servicebot/internal/model"
)

// record is one decoded upstream object.
type record map[string]any

// value returns the first key present with a non-nil value.
func (r record) value(keys ...string) (any, bool) {
	for _, k := range keys {
		if v, ok := r[k]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

func (r record) has(key string) bool {
	_, ok := r[key]
	return ok
}

// text walks the precedence chain and returns the first non-empty scalar.
func (r record) text(keys ...string) string {
	for _, k := range keys {
		if s, ok := scalarString(r[k]); ok && s != "" {
			return s
		}
	}
	return ""
}

// ident walks the precedence chain like text but also accepts an object
// carrying its own "id", unwrapping it one level.
func (r record) ident(keys ...string) string {
	for _, k := range keys {
		if s, ok := identString(r[k]); ok && s != "" {
			return s
		}
	}
	return ""
}

func (r record) number(keys ...string) (float64, bool) {
	for _, k := range keys {
		if f, ok := numberValue(r[k]); ok {
			return f, true
		}
	}
	return 0, false
}

// count returns a non-negative integer, 0 when absent or malformed.
func (r record) count(keys ...string) int {
	f, ok := r.number(keys...)
	if !ok || f <= 0 {
		return 0
	}
	return int(math.Round(f))
}

func (r record) flag(keys ...string) (bool, bool) {
	for _, k := range keys {
		if b, ok := boolValue(r[k]); ok {
			return b, true
		}
	}
	return false, false
}

func (r record) object(keys ...string) (record, bool) {
	for _, k := range keys {
		if m, ok := r[k].(map[string]any); ok {
			return record(m), true
		}
	}
	return nil, false
}

func (r record) price(keys ...string) model.Price {
	v, ok := r.value(keys...)
	if !ok {
		return model.PriceOnRequest()
	}
	if f, ok := numberValue(v); ok {
		return model.NumericPrice(f)
	}
	if s, ok := scalarString(v); ok {
		return model.TextPrice(s)
	}
	return model.PriceOnRequest()
}

func (r record) timestamp(keys ...string) model.Timestamp {
	return parseTimestamp(r.text(keys...))
}

func scalarString(v any) (string, bool) {
	switch x := v.(type) {
	case string:
		return strings.TrimSpace(x), true
	case json.Number:
		return x.String(), true
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), true
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32), true
	case int:
		return strconv.Itoa(x), true
	case int64:
		return strconv.FormatInt(x, 10), true
	case bool:
		return strconv.FormatBool(x), true
	}
	return "", false
}

// identString unwraps {"id": ...} one level. Deeper nesting is absent.
func identString(v any) (string, bool) {
	if m, ok := v.(map[string]any); ok {
		for _, k := range []string{"id", "Идентификатор"} {
			if s, ok := scalarString(m[k]); ok && s != "" {
				return s, true
			}
		}
		return "", false
	}
	return scalarString(v)
}

func numberValue(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	case string:
		s := strings.TrimSpace(x)
		s = strings.ReplaceAll(s, " ", "")
		s = strings.ReplaceAll(s, " ", "")
		// A lone comma is the decimal separator. Next to a dot, or repeated,
		// commas group thousands.
		if strings.Contains(s, ".") || strings.Count(s, ",") > 1 {
			s = strings.ReplaceAll(s, ",", "")
		} else {
			s = strings.ReplaceAll(s, ",", ".")
		}
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

func boolValue(v any) (bool, bool) {
	switch x := v.(type) {
	case bool:
		return x, true
	case string:
		switch strings.ToLower(strings.TrimSpace(x)) {
		case "true", "1", "да", "yes":
			return true, true
		case "false", "0", "нет", "no":
			return false, true
		}
	}
	if f, ok := numberValue(v); ok {
		return f != 0, true
	}
	return false, false
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

func parseTimestamp(s string) model.Timestamp {
	if s == "" {
		return model.Timestamp{}
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return model.Timestamp{Time: t, Raw: s}
		}
	}
	return model.Timestamp{Raw: s}
}
