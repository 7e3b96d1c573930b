package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func capture(t *testing.T, asJSON bool) (*slog.Logger, func() string) {
	t.Helper()
	buf := &bytes.Buffer{}
	w := newLineWriter([]io.Writer{buf}, 8)
	h := newHandler(handlerOptions{level: slog.LevelDebug, out: w, json: asJSON})
	return slog.New(h), func() string {
		require.NoError(t, w.Close())
		return strings.TrimSpace(buf.String())
	}
}

func TestKVLineOrder(t *testing.T) {
	log, read := capture(t, false)
	ctx := ForUpdate(context.Background(), 42, 9, 7)
	log.LogAttrs(ctx, slog.LevelInfo, "dialog.step",
		slog.String("component", "dialog"),
		slog.String("event", "dialog.step"),
		slog.String("status", "OK"),
		slog.String("flow", "register"),
		slog.Duration("duration", 1500*time.Microsecond),
	)

	tokens := strings.Split(read(), " ")
	want := []string{"ts=", "level=INFO", "component=dialog", "event=dialog.step", "status=ok", "rid=16.9.7", "update_id=42", "user_id=7", "chat_id=9", "flow=register", "duration_ms=2"}
	require.Len(t, tokens, len(want))
	for i, prefix := range want {
		assert.True(t, strings.HasPrefix(tokens[i], prefix), "token %d = %s, want %s", i, tokens[i], prefix)
	}
}

func TestJSONKeepsFullRID(t *testing.T) {
	log, read := capture(t, true)
	log.LogAttrs(WithRID(context.Background(), "100:200:300"), slog.LevelWarn, "upstream.request",
		slog.String("component", "upstream"),
		slog.Any("err", errors.New("timeout")),
	)

	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(read()), &got))
	assert.Equal(t, "2s.5k.8c", got["rid"])
	assert.Equal(t, "100:200:300", got["rid_full"])
	assert.Equal(t, "WARN", got["level"])
	assert.Equal(t, "timeout", got["err"])
	assert.Contains(t, got, "ts_unix_nano")
}

func TestSecretsAreRedacted(t *testing.T) {
	log, read := capture(t, false)
	log.LogAttrs(context.Background(), slog.LevelInfo, "auth.login",
		slog.String("password", "hunter2"),
		slog.String("phone", "9161234567"),
		slog.String("email", "ivan@example.com"),
		slog.String("outcome", "weird"),
	)

	line := read()
	assert.Contains(t, line, "password=[redacted]")
	assert.Contains(t, line, "phone=***67")
	assert.Contains(t, line, "email=i***@example.com")
	assert.NotContains(t, line, "hunter2")
	assert.NotContains(t, line, "outcome=")
}

func TestGroupsAndHandlerAttrs(t *testing.T) {
	log, read := capture(t, false)
	log.With("component", "ops").WithGroup("http").Info("request", "code", 200)

	line := read()
	assert.Contains(t, line, "component=ops")
	assert.Contains(t, line, "http.code=200")
	assert.Contains(t, line, "event=request")
}

func TestSampler(t *testing.T) {
	s := newSampler(1, 3)
	var passed int
	for range 9 {
		if s.Allow() {
			passed++
		}
	}
	assert.Equal(t, 3, passed)

	s.Set(0, 0)
	assert.True(t, s.Allow())
}

func TestParseRatio(t *testing.T) {
	cases := map[string][2]int{
		"":     {1, 50},
		"2/10": {2, 10},
		"20":   {1, 20},
		"0":    {0, 0},
		"x/y":  {1, 50},
	}
	for in, want := range cases {
		keep, window := parseRatio(in)
		assert.Equal(t, want, [2]int{keep, window}, in)
	}
}

func TestHelpersDropRecordsBeforeInit(t *testing.T) {
	prev := L
	L = nil
	defer func() { L = prev }()
	assert.NotPanics(t, func() { Info(context.Background(), "app", "noop") })
}

func TestSanitizeLimit(t *testing.T) {
	assert.Equal(t, "ab\tc", SanitizeLimit("a\x00b\tc\u200b", 10))
	assert.Equal(t, "При", SanitizeLimit("Привет", 3))
	assert.Empty(t, SanitizeLimit("x", 0))
	assert.Equal(t, "abc", CompactRID("abc"))
}
