// Package metrics defines the Prometheus collectors exported by the server.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "homestore"

// Result labels.
const (
	ResultSuccess  = "success"
	ResultInvalid  = "invalid"
	ResultFailure  = "failure"
	ResultRejected = "rejected"
)

// Metrics holds every collector. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry prometheus.Gatherer

	LoginsTotal        *prometheus.CounterVec
	RegistrationsTotal *prometheus.CounterVec
	CarryoversTotal    *prometheus.CounterVec
	CartRowsReassigned prometheus.Counter
	OrderCacheTotal    *prometheus.CounterVec
	SessionsPurged     prometheus.Counter
	HTTPRequestsTotal  *prometheus.CounterVec
	HTTPDuration       *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		registry: reg,
		LoginsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "logins_total",
			Help:      "Login attempts by result.",
		}, []string{"result"}),
		RegistrationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "registrations_total",
			Help:      "Registration attempts by result.",
		}, []string{"result"}),
		CarryoversTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cart_carryovers_total",
			Help:      "Cart carryovers by mode.",
		}, []string{"mode"}),
		CartRowsReassigned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cart_rows_reassigned_total",
			Help:      "Cart rows moved from anonymous sessions to users.",
		}),
		OrderCacheTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_cache_requests_total",
			Help:      "Order history cache lookups by outcome (hit, miss, error).",
		}, []string{"outcome"}),
		SessionsPurged: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_purged_total",
			Help:      "Expired sessions removed by the janitor.",
		}),
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status code.",
		}, []string{"route", "method", "code"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
	}

	reg.MustRegister(
		m.LoginsTotal,
		m.RegistrationsTotal,
		m.CarryoversTotal,
		m.CartRowsReassigned,
		m.OrderCacheTotal,
		m.SessionsPurged,
		m.HTTPRequestsTotal,
		m.HTTPDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Login records a login attempt.
func (m *Metrics) Login(result string) {
	if m == nil {
		return
	}
	m.LoginsTotal.WithLabelValues(result).Inc()
}

// Registration records a registration attempt.
func (m *Metrics) Registration(result string) {
	if m == nil {
		return
	}
	m.RegistrationsTotal.WithLabelValues(result).Inc()
}

// Carryover records a cart carryover and the rows it moved.
func (m *Metrics) Carryover(mode string, reassigned int64) {
	if m == nil {
		return
	}
	m.CarryoversTotal.WithLabelValues(mode).Inc()
	m.CartRowsReassigned.Add(float64(reassigned))
}

// OrderCache records an order cache lookup outcome.
func (m *Metrics) OrderCache(outcome string) {
	if m == nil {
		return
	}
	m.OrderCacheTotal.WithLabelValues(outcome).Inc()
}

// Purged records sessions removed by the janitor.
func (m *Metrics) Purged(n int64) {
	if m == nil {
		return
	}
	m.SessionsPurged.Add(float64(n))
}

// ObserveHTTP records one served request.
func (m *Metrics) ObserveHTTP(route, method string, code int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(route, method, strconv.Itoa(code)).Inc()
	m.HTTPDuration.WithLabelValues(route, method).Observe(elapsed.Seconds())
}
