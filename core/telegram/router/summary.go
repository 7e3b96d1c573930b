// Package router turns registry entries into telebot routes and writes one
// summary log line per handled update.
package router

import (
	"errors"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/servicebot/core/logger"
	tghelpers "github.com/m3rciful/servicebot/core/telegram/helpers"
)

// Observer receives one call per handled update.
type Observer func(handler, outcome string)

var observer atomic.Pointer[Observer]

// SetObserver installs a process-wide handler observer. nil removes it.
func SetObserver(o Observer) {
	if o == nil {
		observer.Store(nil)
		return
	}
	observer.Store(&o)
}

const (
	outcomeOK   = "ok"
	outcomeFail = "fail"
	outcomeSkip = "skip"
)

// handled runs fn as handler name and logs the summary.
func handled(c tele.Context, name string, fn tele.HandlerFunc, extras ...slog.Attr) error {
	start := time.Now()
	tghelpers.WithHandler(c, name)
	err := fn(c)
	outcome := outcomeOK
	if err != nil {
		outcome = outcomeFail
	}
	summarize(c, name, outcome, start, err, extras...)
	return err
}

// skipped logs an update nobody handled.
func skipped(c tele.Context, name string) error {
	summarize(c, name, outcomeSkip, time.Now(), nil)
	return nil
}

func summarize(c tele.Context, name, outcome string, start time.Time, err error, extras ...slog.Attr) {
	if o := observer.Load(); o != nil {
		(*o)(name, outcome)
	}
	ctx := tghelpers.WithHandler(c, name)
	msgs, kb := tghelpers.Counters(c)
	attrs := make([]slog.Attr, 0, 8+len(extras))
	attrs = append(attrs,
		slog.String("outcome", outcome),
		slog.Int("messages", msgs),
		slog.Bool("kb", kb),
		slog.Duration("duration", logger.RoundMS(time.Since(start))),
	)
	if err != nil {
		attrs = append(attrs,
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
			slog.String("err_code", errCode(err)),
		)
	}
	attrs = append(attrs, extras...)
	level := slog.LevelInfo
	if err != nil {
		level = slog.LevelWarn
	}
	logger.Log(ctx, level, "tg", "handler.handled", attrs...)
}

// handlerName turns "/Start Now" into "start_now".
func handlerName(raw string) string {
	raw = strings.TrimPrefix(strings.TrimSpace(raw), "/")
	if raw == "" {
		return "unknown"
	}
	return strings.ToLower(strings.ReplaceAll(raw, " ", "_"))
}

type coded interface{ Code() string }

func errCode(err error) string {
	var c coded
	if errors.As(err, &c) {
		if code := strings.TrimSpace(c.Code()); code != "" {
			return code
		}
	}
	return "internal"
}
