package logger

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"runtime/debug"
	"sort"
	"strconv"
	"strings"
	"time"
)

const tsLayout = "2006-01-02T15:04:05.000Z07:00"

type handlerOptions struct {
	level  slog.Leveler
	out    *lineWriter
	errOut *lineWriter
	json   bool
	order  []string
	stacks bool
}

// handler flattens attributes into one flat map and renders it as JSON or
// key=value text in a stable key order.
type handler struct {
	opts   handlerOptions
	attrs  []slog.Attr
	prefix string
}

func newHandler(opts handlerOptions) *handler {
	if opts.level == nil {
		opts.level = slog.LevelInfo
	}
	if opts.order == nil {
		opts.order = defaultKeyOrder
	}
	return &handler{opts: opts}
}

func (h *handler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.opts.level.Level()
}

func (h *handler) Handle(ctx context.Context, r slog.Record) error {
	if h.opts.out == nil {
		return fmt.Errorf("logger: writer not initialized")
	}
	fields := h.fields(ctx, r)
	line, err := h.render(fields)
	if err != nil {
		return err
	}
	line = append(line, '\n')
	if r.Level >= slog.LevelError && h.opts.errOut != nil {
		if err := h.opts.errOut.Write(line); err != nil {
			return err
		}
	}
	return h.opts.out.Write(line)
}

func (h *handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = append(append([]slog.Attr(nil), h.attrs...), qualify(h.prefix, attrs)...)
	return &clone
}

func (h *handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.prefix = join(h.prefix, name)
	return &clone
}

func (h *handler) fields(ctx context.Context, r slog.Record) map[string]any {
	f := make(map[string]any, 16)
	ts := r.Time.UTC()
	f["ts"] = ts.Truncate(time.Millisecond).Format(tsLayout)
	f["level"] = levelName(r.Level.String())
	if h.opts.json {
		f["ts_unix_nano"] = ts.UnixNano()
	}

	for _, a := range h.attrs {
		put(f, "", a)
	}
	r.Attrs(func(a slog.Attr) bool {
		put(f, h.prefix, a)
		return true
	})
	fromContext(ctx, f)

	if rid, ok := f["rid"].(string); ok {
		if short := CompactRID(rid); short != rid {
			if h.opts.json {
				f["rid_full"] = rid
			}
			f["rid"] = short
		}
	}
	if s, _ := f["event"].(string); s == "" {
		f["event"] = or(r.Message, "unknown")
	}
	if s, _ := f["component"].(string); s == "" {
		f["component"] = "app"
	}
	if h.opts.stacks && r.Level >= slog.LevelError {
		if _, ok := f["stack"]; !ok {
			f["stack"] = string(debug.Stack())
		}
	}
	normalize(f)
	return f
}

func put(f map[string]any, prefix string, a slog.Attr) {
	key := join(prefix, a.Key)
	v := a.Value.Resolve()
	if v.Kind() == slog.KindGroup {
		for _, child := range v.Group() {
			put(f, key, child)
		}
		return
	}
	if key == "" {
		return
	}
	if k, val, ok := convert(key, v); ok {
		f[k] = val
	}
}

func convert(key string, v slog.Value) (string, any, bool) {
	switch v.Kind() {
	case slog.KindString:
		return key, strings.TrimSpace(v.String()), true
	case slog.KindBool:
		return key, v.Bool(), true
	case slog.KindInt64:
		return key, v.Int64(), true
	case slog.KindUint64:
		if u := v.Uint64(); u <= math.MaxInt64 {
			return key, int64(u), true
		}
		return key, v.Uint64(), true
	case slog.KindFloat64:
		return key, v.Float64(), true
	case slog.KindDuration:
		return msKey(key), RoundMS(v.Duration()).Milliseconds(), true
	case slog.KindTime:
		return key, v.Time().UTC().Format(time.RFC3339Nano), true
	}
	switch x := v.Any().(type) {
	case nil:
		return key, nil, false
	case error:
		return key, x.Error(), true
	case time.Duration:
		return msKey(key), RoundMS(x).Milliseconds(), true
	case fmt.Stringer:
		return key, x.String(), true
	default:
		return key, fmt.Sprint(x), true
	}
}

// msKey renames duration keys so the unit is visible: "duration" becomes
// "duration_ms" and "startup_duration" becomes "startup_duration_ms".
func msKey(key string) string {
	if strings.HasSuffix(key, "_ms") {
		return key
	}
	return key + "_ms"
}

func fromContext(ctx context.Context, f map[string]any) {
	m := MetaFrom(ctx)
	setDefault(f, "rid", m.RID, m.RID != "")
	setDefault(f, "update_id", m.UpdateID, m.UpdateID != 0)
	setDefault(f, "user_id", m.UserID, m.UserID != 0)
	setDefault(f, "chat_id", m.ChatID, m.ChatID != 0)
	setDefault(f, "handler", m.Handler, m.Handler != "")
}

func setDefault(f map[string]any, key string, v any, present bool) {
	if !present {
		return
	}
	if _, ok := f[key]; !ok {
		f[key] = v
	}
}

func normalize(f map[string]any) {
	if s, ok := f["status"].(string); ok {
		f["status"] = strings.ToLower(s)
	}
	if s, ok := f["outcome"].(string); ok && !inSet(outcomes, strings.ToLower(s)) {
		delete(f, "outcome")
	}
	if s, ok := f["cache"].(string); ok && !inSet(caches, strings.ToLower(s)) {
		delete(f, "cache")
	}
	for k, v := range f {
		s, isString := v.(string)
		switch {
		case inSet(secretKeys, k):
			f[k] = "[redacted]"
		case isString && inSet(personalKeys, k):
			f[k] = mask(s)
		case isString && s == "":
			delete(f, k)
		}
	}
}

// mask keeps the last two runes of a phone number or the first rune and the
// domain of an e-mail address.
func mask(s string) string {
	r := []rune(s)
	if at := strings.LastIndexByte(s, '@'); at > 0 {
		return string(r[0]) + "***" + s[at:]
	}
	if len(r) <= 2 {
		return "***"
	}
	return "***" + string(r[len(r)-2:])
}

func (h *handler) render(f map[string]any) ([]byte, error) {
	keys := ordered(f, h.opts.order)
	var b strings.Builder
	if h.opts.json {
		b.WriteByte('{')
		for i, k := range keys {
			data, err := json.Marshal(f[k])
			if err != nil {
				return nil, err
			}
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(strconv.Quote(k))
			b.WriteByte(':')
			b.Write(data)
		}
		b.WriteByte('}')
		return []byte(b.String()), nil
	}
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(kvValue(f[k]))
	}
	return []byte(b.String()), nil
}

func ordered(f map[string]any, order []string) []string {
	keys := make([]string, 0, len(f))
	seen := make(map[string]bool, len(f))
	for _, k := range order {
		if _, ok := f[k]; ok && !seen[k] {
			keys = append(keys, k)
			seen[k] = true
		}
	}
	rest := make([]string, 0, len(f)-len(keys))
	for k := range f {
		if !seen[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	return append(keys, rest...)
}

func kvValue(v any) string {
	s := fmt.Sprint(v)
	if strings.IndexFunc(s, func(r rune) bool { return r <= ' ' || r == '=' || r == '"' }) >= 0 {
		return strconv.Quote(s)
	}
	return s
}

func qualify(prefix string, attrs []slog.Attr) []slog.Attr {
	if prefix == "" {
		return attrs
	}
	out := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		out[i] = slog.Attr{Key: join(prefix, a.Key), Value: a.Value}
	}
	return out
}

func join(prefix, key string) string {
	switch {
	case prefix == "":
		return key
	case key == "":
		return prefix
	}
	return prefix + "." + key
}

func or(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
