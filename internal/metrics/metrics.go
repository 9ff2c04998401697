package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns the collectors exported on /metrics.
type Metrics struct {
	registry *prometheus.Registry

	requests       *prometheus.CounterVec
	duration       *prometheus.HistogramVec
	renderFailures prometheus.Counter
	loadErrors     prometheus.Counter
}

// New registers the collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "podread_http_requests_total",
			Help: "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "podread_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		renderFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "podread_render_failures_total",
			Help: "Episodes that failed to render.",
		}),
		loadErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "podread_dataset_load_errors_total",
			Help: "Failed dataset loads.",
		}),
	}

	m.registry.MustRegister(
		m.requests,
		m.duration,
		m.renderFailures,
		m.loadErrors,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveRequest records one finished request.
func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.duration.WithLabelValues(route).Observe(elapsed.Seconds())
}

// RenderFailed counts an episode render error.
func (m *Metrics) RenderFailed() {
	if m == nil {
		return
	}
	m.renderFailures.Inc()
}

// LoadFailed counts a dataset load error.
func (m *Metrics) LoadFailed() {
	if m == nil {
		return
	}
	m.loadErrors.Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
