// Package sender runs outbound Telegram calls off the handler goroutine.
package sender

import (
	"context"
	"crypto/tls"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"regexp"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/servicebot/core/logger"
	"github.com/m3rciful/servicebot/core/netutil"
)

const component = "tg.sender"

var (
	// ErrQueueClosed is returned after Close.
	ErrQueueClosed = errors.New("telegram sender: queue closed")
	// ErrQueueFull is returned when the shard of a chat is saturated.
	ErrQueueFull = errors.New("telegram sender: queue full")

	tokenRe = regexp.MustCompile(`bot[0-9]+:[A-Za-z0-9_-]+`)
)

// Options tune the dispatcher. Zero values pick defaults.
type Options struct {
	QueueSize    int
	Workers      int
	MaxRetries   int
	RetryBackoff time.Duration
	// MaxDuration bounds the time spent on one job including retries.
	MaxDuration time.Duration
	// PerSecond caps outbound calls across all chats.
	PerSecond float64
}

type job struct {
	ctx      context.Context
	action   string
	endpoint string
	run      func() error
	done     chan error
}

// Dispatcher executes Telegram calls with retries. Jobs of one chat always
// land on the same worker, so a chat sees its messages in enqueue order.
type Dispatcher struct {
	opts    Options
	shards  []chan job
	limiter *rate.Limiter
	wg      sync.WaitGroup

	mu     sync.RWMutex
	closed bool

	errs atomic.Uint64
}

// NewDispatcher starts the workers.
func NewDispatcher(opts Options) *Dispatcher {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 64
	}
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = 2 * time.Second
	}
	if opts.MaxDuration <= 0 {
		opts.MaxDuration = 12 * time.Second
	}
	if opts.PerSecond <= 0 {
		opts.PerSecond = 25
	}
	d := &Dispatcher{
		opts:    opts,
		shards:  make([]chan job, opts.Workers),
		limiter: rate.NewLimiter(rate.Limit(opts.PerSecond), max(1, int(opts.PerSecond))),
	}
	d.wg.Add(opts.Workers)
	for i := range d.shards {
		d.shards[i] = make(chan job, opts.QueueSize)
		go d.worker(d.shards[i])
	}
	return d
}

// Enqueue schedules run for chatID and returns at once.
func (d *Dispatcher) Enqueue(ctx context.Context, chatID int64, action, endpoint string, run func() error) error {
	return d.submit(chatID, job{ctx: ctx, action: action, endpoint: endpoint, run: run})
}

// Call schedules run for chatID and waits for its result. Use it when the
// caller needs the outcome but ordering with queued sends still matters.
func (d *Dispatcher) Call(ctx context.Context, chatID int64, action, endpoint string, run func() error) error {
	done := make(chan error, 1)
	if err := d.submit(chatID, job{ctx: ctx, action: action, endpoint: endpoint, run: run, done: done}); err != nil {
		return err
	}
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) submit(chatID int64, j job) error {
	if j.run == nil {
		return errors.New("telegram sender: nil run function")
	}
	if j.ctx == nil {
		j.ctx = context.Background()
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrQueueClosed
	}
	select {
	case d.shards[shard(chatID, len(d.shards))] <- j:
		return nil
	default:
		return ErrQueueFull
	}
}

// ErrorCount returns the number of jobs that failed for good.
func (d *Dispatcher) ErrorCount() uint64 { return d.errs.Load() }

// Close stops accepting jobs and waits for queued ones to finish.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		for _, s := range d.shards {
			close(s)
		}
	}
	d.mu.Unlock()
	d.wg.Wait()
}

func (d *Dispatcher) worker(jobs <-chan job) {
	defer d.wg.Done()
	for j := range jobs {
		err := d.execute(j)
		if j.done != nil {
			j.done <- err
		}
	}
}

func (d *Dispatcher) execute(j job) error {
	ctx, cancel := context.WithTimeout(j.ctx, d.opts.MaxDuration)
	defer cancel()
	start := time.Now()
	attempts := d.opts.MaxRetries + 1

	var err error
retry:
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = d.limiter.Wait(ctx); err != nil {
			break retry
		}
		if err = j.run(); err == nil {
			logger.Debug(j.ctx, component, "send.ok", attrs(j,
				slog.Int("attempt", attempt),
				slog.Duration("duration", time.Since(start)),
			)...)
			return nil
		}
		if !netutil.ShouldRetry(err) || attempt == attempts {
			break retry
		}
		delay := d.opts.RetryBackoff * time.Duration(attempt)
		logger.Debug(j.ctx, component, "send.retry", attrs(j,
			slog.Int("attempt", attempt),
			slog.Duration("delay", delay),
		)...)
		select {
		case <-ctx.Done():
			err = ctx.Err()
			break retry
		case <-time.After(delay):
		}
	}

	d.errs.Add(1)
	logger.Error(j.ctx, component, "send.fail", attrs(j,
		slog.String("status", "fail"),
		slog.String("err", redactToken(err)),
		slog.String("error_kind", classify(err)),
		slog.Int("attempts", attempts),
		slog.Duration("duration", time.Since(start)),
	)...)
	return err
}

func attrs(j job, extra ...slog.Attr) []slog.Attr {
	out := make([]slog.Attr, 0, len(extra)+2)
	out = append(out, slog.String("action", j.action))
	if j.endpoint != "" {
		out = append(out, slog.String("endpoint", j.endpoint))
	}
	return append(out, extra...)
}

func shard(chatID int64, n int) int {
	if chatID < 0 {
		chatID = -chatID
	}
	return int(chatID % int64(n))
}

// classify names the failure family for dashboards.
func classify(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return "dns"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "timeout"
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return "dial"
	}
	var alert tls.AlertError
	if errors.As(err, &alert) {
		return "tls"
	}
	switch code := apiStatus(err); {
	case code == http.StatusTooManyRequests:
		return "flood"
	case code >= 500:
		return "http_5xx"
	case code >= 400:
		return "http_4xx"
	}
	return "unknown"
}

func apiStatus(err error) int {
	var apiErr *tele.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	var flood tele.FloodError
	if errors.As(err, &flood) {
		return http.StatusTooManyRequests
	}
	var group tele.GroupError
	if errors.As(err, &group) {
		return http.StatusBadRequest
	}
	return 0
}

func redactToken(err error) string {
	if err == nil {
		return ""
	}
	return logger.SanitizeLimit(tokenRe.ReplaceAllString(err.Error(), "bot<redacted>"), 256)
}
