// Package logger is the process-wide structured logger. Every record carries
// a component and an event name; update metadata travels in the context.
package logger

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/m3rciful/servicebot/core/buildinfo"
	coreconfig "github.com/m3rciful/servicebot/core/config"
)

var (
	mu      sync.Mutex
	started bool
	stopped bool

	mainOut *lineWriter
	errOut  *lineWriter
	files   []io.Closer

	levelVar slog.LevelVar
	debugs   = newSampler(1, 50)
	traceAll bool

	// L is the base logger. It stays nil until Init, and the helpers below
	// drop records until then.
	L *slog.Logger
)

// Init configures the global logger. Calls after the first one are no-ops.
func Init(cfg *coreconfig.Config) error {
	mu.Lock()
	defer mu.Unlock()
	if started {
		return nil
	}
	if cfg == nil {
		cfg = &coreconfig.Config{}
	}
	lc := cfg.Logging

	levelVar.Set(parseLevel(lc.Level))
	debugs.Set(parseRatio(lc.DebugSample))
	traceAll = truthy(os.Getenv("LOG_TRACE"))

	mainSinks, errSinks, closers, err := sinks(lc)
	if err != nil {
		return err
	}
	files = closers
	mainOut = newLineWriter(mainSinks, 256)
	if len(errSinks) > 0 {
		errOut = newLineWriter(errSinks, 64)
	}

	L = slog.New(newHandler(handlerOptions{
		level:  &levelVar,
		out:    mainOut,
		errOut: errOut,
		json:   pickJSON(lc),
		order:  keyOrder(lc.KeysOrder),
		stacks: truthy(lc.Stacks),
	}))
	slog.SetDefault(L)
	started = true

	Info(context.Background(), "app", "startup",
		slog.String("go_version", runtime.Version()),
		slog.String("build_version", buildinfo.Version),
		slog.String("build_commit", buildinfo.Commit),
		slog.String("build_time", buildinfo.Date),
		slog.String("cfg_profile", profile(lc)),
	)
	return nil
}

// Shutdown drains buffered lines and closes log files.
func Shutdown() error {
	mu.Lock()
	defer mu.Unlock()
	if !started || stopped {
		return nil
	}
	stopped = true

	var errs []error
	for _, w := range []*lineWriter{mainOut, errOut} {
		if w != nil {
			errs = append(errs, w.Close())
		}
	}
	for _, c := range files {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

// Flush blocks until queued lines reach their sinks.
func Flush() error {
	var errs []error
	for _, w := range []*lineWriter{mainOut, errOut} {
		if w != nil {
			errs = append(errs, w.Flush())
		}
	}
	return errors.Join(errs...)
}

// Log writes one event. It is the single entry point behind the level
// helpers.
func Log(ctx context.Context, level slog.Level, component, event string, attrs ...slog.Attr) {
	l := L
	if l == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if !l.Enabled(ctx, level) {
		return
	}
	head := make([]slog.Attr, 0, len(attrs)+2)
	if c := strings.TrimSpace(component); c != "" {
		head = append(head, slog.String("component", c))
	}
	head = append(head, slog.String("event", event))
	l.LogAttrs(ctx, level, event, append(head, attrs...)...)
}

// Debug logs a debug event of component.
func Debug(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Log(ctx, slog.LevelDebug, component, event, attrs...)
}

// Info logs an info event of component.
func Info(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Log(ctx, slog.LevelInfo, component, event, attrs...)
}

// Warn logs a warning event of component.
func Warn(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Log(ctx, slog.LevelWarn, component, event, attrs...)
}

// Error logs an error event of component.
func Error(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Log(ctx, slog.LevelError, component, event, attrs...)
}

// SampleDebug reports whether a high-volume debug event should be written.
// LOG_TRACE=1 disables sampling.
func SampleDebug() bool {
	return traceAll || debugs.Allow()
}

func sinks(lc coreconfig.LoggingConfig) (main, errs []io.Writer, closers []io.Closer, err error) {
	main = []io.Writer{os.Stdout}
	dir := strings.TrimSpace(lc.Dir)
	if dir == "" {
		return main, nil, nil, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, nil, nil, errors.Join(errors.New("logger: create log dir"), err)
	}
	if name := strings.TrimSpace(lc.BotFile); name != "" {
		f := rotating(lc, filepath.Join(dir, name))
		main = append(main, f)
		closers = append(closers, f)
	}
	if name := strings.TrimSpace(lc.ErrorsFile); name != "" {
		f := rotating(lc, filepath.Join(dir, name))
		errs = append(errs, f)
		closers = append(closers, f)
	}
	return main, errs, closers, nil
}

func rotating(lc coreconfig.LoggingConfig, path string) *lumberjack.Logger {
	size := lc.MaxSizeMB
	if size <= 0 {
		size = 20
	}
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    size,
		MaxBackups: lc.MaxBackups,
		MaxAge:     lc.MaxAgeDays,
		Compress:   lc.Compress,
	}
}

func pickJSON(lc coreconfig.LoggingConfig) bool {
	switch strings.ToLower(strings.TrimSpace(lc.Format)) {
	case "json":
		return true
	case "kv", "text", "pretty":
		return false
	}
	p := profile(lc)
	return p != "debug" && p != "dev"
}

func keyOrder(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "default" {
		return defaultKeyOrder
	}
	var order []string
	for _, k := range strings.Split(raw, ",") {
		if k = strings.TrimSpace(k); k != "" {
			order = append(order, k)
		}
	}
	if len(order) == 0 {
		return defaultKeyOrder
	}
	return order
}

func parseLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

func profile(lc coreconfig.LoggingConfig) string {
	if p := strings.ToLower(strings.TrimSpace(lc.Profile)); p != "" {
		return p
	}
	return "prod"
}

func truthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}
