// Package metrics exposes Prometheus metrics for the console: HTTP traffic,
// backend calls, circuit breaker state and event bus activity.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/travy/admin-hub/internal/domain/shared"
	"github.com/travy/admin-hub/pkg/circuitbreaker"
)

const namespace = "admin_hub"

// Metrics holds every collector. Each instance owns its registry so tests
// can build as many as they like.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequests    *prometheus.CounterVec
	HTTPDuration    *prometheus.HistogramVec
	BackendRequests *prometheus.CounterVec
	BackendDuration *prometheus.HistogramVec
	BreakerState    *prometheus.GaugeVec
	EventsPublished *prometheus.CounterVec
	HandlerFailures *prometheus.CounterVec
	HandlerDuration *prometheus.HistogramVec
}

// New registers all collectors on a fresh registry, plus the Go and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		HTTPRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_response_time_seconds",
				Help:      "Histogram of response times",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		BackendRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "backend_requests_total",
				Help:      "Requests sent to the REST backend, by status (0 = no response)",
			},
			[]string{"method", "status"},
		),
		BackendDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "backend_request_seconds",
				Help:      "Backend request latency",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method"},
		),
		BreakerState: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "circuit_breaker_state",
				Help:      "Circuit breaker state (0 closed, 1 open, 2 half-open)",
			},
			[]string{"name"},
		),
		EventsPublished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "events_published_total",
				Help:      "Domain events published on the bus",
			},
			[]string{"type"},
		),
		HandlerFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "event_handler_failures_total",
				Help:      "Event handlers that returned an error or panicked",
			},
			[]string{"type"},
		),
		HandlerDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "event_handler_seconds",
				Help:      "Event handler latency",
				Buckets:   []float64{.001, .005, .01, .05, .1, .5, 1, 5},
			},
			[]string{"type"},
		),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveHTTP records one served request. route is the mux pattern, not the raw path.
func (m *Metrics) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// BackendRequest implements backend.RequestObserver.
func (m *Metrics) BackendRequest(method string, status int, elapsed time.Duration) {
	m.BackendRequests.WithLabelValues(method, strconv.Itoa(status)).Inc()
	m.BackendDuration.WithLabelValues(method).Observe(elapsed.Seconds())
}

// BreakerStateChanged is a circuitbreaker state change callback.
func (m *Metrics) BreakerStateChanged(name string, _, to circuitbreaker.State) {
	m.BreakerState.WithLabelValues(name).Set(float64(to))
}

// EventPublished implements messaging.Observer.
func (m *Metrics) EventPublished(t shared.EventType) {
	m.EventsPublished.WithLabelValues(string(t)).Inc()
}

// HandlerFinished implements messaging.Observer.
func (m *Metrics) HandlerFinished(t shared.EventType, elapsed time.Duration, err error) {
	m.HandlerDuration.WithLabelValues(string(t)).Observe(elapsed.Seconds())
	if err != nil {
		m.HandlerFailures.WithLabelValues(string(t)).Inc()
	}
}
