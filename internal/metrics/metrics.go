// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "servicebot"

// Metrics groups every collector of one process.
type Metrics struct {
	Registry *prometheus.Registry

	upstreamRequests  *prometheus.CounterVec
	upstreamLatency   *prometheus.HistogramVec
	handlerTotal      *prometheus.CounterVec
	dialogTransitions *prometheus.CounterVec
	sessionsExpired   prometheus.Counter
	cleanupFailures   prometheus.Counter
	rateLimited       prometheus.Counter
}

// New registers all collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		upstreamRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_requests_total",
			Help:      "Upstream API calls by endpoint kind and status class.",
		}, []string{"kind", "code"}),
		upstreamLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upstream_request_seconds",
			Help:      "Upstream API call latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"kind"}),
		handlerTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "handler_total",
			Help:      "Telegram handler executions by outcome.",
		}, []string{"handler", "outcome"}),
		dialogTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dialog_transitions_total",
			Help:      "Dialog steps by flow, state and result.",
		}, []string{"flow", "state", "result"}),
		sessionsExpired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_expired_total",
			Help:      "Conversation sessions evicted by TTL.",
		}),
		cleanupFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cleanup_failures_total",
			Help:      "Pending message deletions that failed.",
		}),
		rateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_total",
			Help:      "Updates dropped by the per-user rate limiter.",
		}),
	}
	m.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.upstreamRequests,
		m.upstreamLatency,
		m.handlerTotal,
		m.dialogTransitions,
		m.sessionsExpired,
		m.cleanupFailures,
		m.rateLimited,
	)
	return m
}

// ObserveUpstream records one upstream call. A nil receiver is a no-op.
func (m *Metrics) ObserveUpstream(kind string, status int, took time.Duration) {
	if m == nil {
		return
	}
	m.upstreamRequests.WithLabelValues(kind, statusClass(status)).Inc()
	m.upstreamLatency.WithLabelValues(kind).Observe(took.Seconds())
}

// HandlerDone records a finished Telegram handler.
func (m *Metrics) HandlerDone(handler, outcome string) {
	if m == nil {
		return
	}
	m.handlerTotal.WithLabelValues(handler, outcome).Inc()
}

// DialogStep records one dialog transition attempt.
func (m *Metrics) DialogStep(flow, state, result string) {
	if m == nil {
		return
	}
	m.dialogTransitions.WithLabelValues(flow, state, result).Inc()
}

// SessionExpired counts a TTL eviction.
func (m *Metrics) SessionExpired() {
	if m == nil {
		return
	}
	m.sessionsExpired.Inc()
}

// CleanupFailed counts a failed message deletion.
func (m *Metrics) CleanupFailed() {
	if m == nil {
		return
	}
	m.cleanupFailures.Inc()
}

// RateLimited counts a dropped update.
func (m *Metrics) RateLimited() {
	if m == nil {
		return
	}
	m.rateLimited.Inc()
}

func statusClass(status int) string {
	if status < 100 || status > 599 {
		return "other"
	}
	return strconv.Itoa(status/100) + "xx"
}
