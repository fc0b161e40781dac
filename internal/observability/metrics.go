package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the service's prometheus collectors. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	registry           *prometheus.Registry
	requests           *prometheus.CounterVec
	requestDuration    *prometheus.HistogramVec
	errors             *prometheus.CounterVec
	completions        *prometheus.CounterVec
	completionDuration prometheus.Histogram
	openTickets        prometheus.Gauge
	activeGrants       prometheus.Gauge
	revocations        *prometheus.CounterVec
}

// NewMetrics registers collectors on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name: "http_request_duration_seconds",
			Help: "Duration of HTTP requests in seconds",
		}, []string{"method", "path"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_errors_total",
			Help: "Total number of HTTP error responses by code",
		}, []string{"method", "path", "code"}),
		completions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "completion_requests_total",
			Help: "Completion provider calls by outcome",
		}, []string{"outcome"}),
		completionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "completion_request_duration_seconds",
			Help:    "Duration of completion provider calls in seconds",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30, 60},
		}),
		openTickets: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "support_tickets_open",
			Help: "Number of tickets currently in the conversation store",
		}),
		activeGrants: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "subscription_grants_active",
			Help: "Number of active subscription grants",
		}),
		revocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "subscription_revocations_total",
			Help: "Subscription revocations attempted by the sweep, by outcome",
		}, []string{"outcome"}),
	}
	m.registry.MustRegister(
		m.requests,
		m.requestDuration,
		m.errors,
		m.completions,
		m.completionDuration,
		m.openTickets,
		m.activeGrants,
		m.revocations,
	)
	return m
}

// Registry exposes the registry for the /metrics handler.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(method, path, code).Inc()
}

// RecordCompletion tracks a completion provider call.
func (m *Metrics) RecordCompletion(outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.completions.WithLabelValues(outcome).Inc()
	m.completionDuration.Observe(duration.Seconds())
}

// SetOpenTickets sets the open ticket gauge.
func (m *Metrics) SetOpenTickets(n int) {
	if m == nil {
		return
	}
	m.openTickets.Set(float64(n))
}

// SetActiveGrants sets the active grant gauge.
func (m *Metrics) SetActiveGrants(n int) {
	if m == nil {
		return
	}
	m.activeGrants.Set(float64(n))
}

// RecordRevocation counts a sweep revocation attempt.
func (m *Metrics) RecordRevocation(outcome string) {
	if m == nil {
		return
	}
	m.revocations.WithLabelValues(outcome).Inc()
}
