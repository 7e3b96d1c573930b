package logger

import "strings"

// defaultKeyOrder puts identity first, then the bot domain, then errors.
// Keys not listed follow in alphabetical order.
var defaultKeyOrder = []string{
	"ts", "level", "component", "event", "status",
	"rid", "rid_full", "ts_unix_nano",
	"update_id", "user_id", "chat_id", "chat_type", "handler", "cb_key",
	"flow", "state", "dataset", "page", "pages", "entity", "order", "order_type",
	"op", "kind", "method", "path", "http_code", "attempt", "attempts",
	"outcome", "duration_ms", "messages", "kb", "count",
	"namespace", "backend", "cache",
	"payload", "text_len", "username", "lang",
	"mode", "listen", "public_url", "addr", "db", "host", "port",
	"err", "err_code", "error_kind", "cause",
}

var levelNames = map[string]string{
	"debug":   "DEBUG",
	"info":    "INFO",
	"warn":    "WARN",
	"warning": "WARN",
	"error":   "ERROR",
}

// Outcome and cache values outside these sets are dropped.
var (
	outcomes = setOf("ok", "fail", "skip", "cancelled", "rate_limited")
	caches   = setOf("hit", "miss", "refresh")
)

// secretKeys are replaced entirely; personal keys are masked.
var (
	secretKeys   = setOf("password", "token", "api_password", "bot_token")
	personalKeys = setOf("phone", "email")
)

func setOf(values ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(values))
	for _, v := range values {
		m[v] = struct{}{}
	}
	return m
}

func levelName(l string) string {
	if n, ok := levelNames[strings.ToLower(l)]; ok {
		return n
	}
	return strings.ToUpper(l)
}

func inSet(set map[string]struct{}, v string) bool {
	_, ok := set[v]
	return ok
}
