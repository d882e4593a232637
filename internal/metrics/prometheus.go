package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusRecorder exports metrics through a Prometheus registry.
type PrometheusRecorder struct {
	registry *prometheus.Registry

	gateDecisions    *prometheus.CounterVec
	usageIncrements  *prometheus.CounterVec
	usageResets      prometheus.Counter
	generations      *prometheus.CounterVec
	externalDuration *prometheus.HistogramVec
	externalErrors   *prometheus.CounterVec
	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
}

// NewPrometheus creates and registers all metrics on registry.
func NewPrometheus(registry *prometheus.Registry) *PrometheusRecorder {
	m := &PrometheusRecorder{
		registry: registry,
		gateDecisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quickai_gate_decisions_total",
				Help: "Usage gate decisions",
			},
			[]string{"feature", "decision"},
		),
		usageIncrements: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quickai_usage_increments_total",
				Help: "Free usage counter increments",
			},
			[]string{"status"},
		),
		usageResets: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "quickai_usage_resets_total",
				Help: "Free usage counters reset for premium callers",
			},
		),
		generations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quickai_generations_total",
				Help: "Generation requests by feature and outcome",
			},
			[]string{"feature", "status"},
		),
		externalDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "quickai_external_call_duration_seconds",
				Help:    "Duration of calls to external AI and storage services",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 30, 60},
			},
			[]string{"service"},
		),
		externalErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quickai_external_call_errors_total",
				Help: "Failed calls to external services",
			},
			[]string{"service"},
		),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quickai_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "quickai_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}

	registry.MustRegister(
		m.gateDecisions,
		m.usageIncrements,
		m.usageResets,
		m.generations,
		m.externalDuration,
		m.externalErrors,
		m.httpRequests,
		m.httpDuration,
	)

	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *PrometheusRecorder) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// IncGateDecision records a gate decision.
func (m *PrometheusRecorder) IncGateDecision(feature string, allowed bool) {
	decision := "allowed"
	if !allowed {
		decision = "denied"
	}
	m.gateDecisions.WithLabelValues(feature, decision).Inc()
}

// IncUsageIncrement records a usage counter write.
func (m *PrometheusRecorder) IncUsageIncrement(status string) {
	m.usageIncrements.WithLabelValues(status).Inc()
}

// IncUsageReset records a premium counter reset.
func (m *PrometheusRecorder) IncUsageReset() {
	m.usageResets.Inc()
}

// IncGeneration records a generation outcome.
func (m *PrometheusRecorder) IncGeneration(feature, status string) {
	m.generations.WithLabelValues(feature, status).Inc()
}

// ObserveExternalCall records the duration and outcome of an external call.
func (m *PrometheusRecorder) ObserveExternalCall(service string, duration time.Duration, failed bool) {
	m.externalDuration.WithLabelValues(service).Observe(duration.Seconds())
	if failed {
		m.externalErrors.WithLabelValues(service).Inc()
	}
}

// ObserveHTTPRequest records a served HTTP request.
func (m *PrometheusRecorder) ObserveHTTPRequest(method, route string, status int, duration time.Duration) {
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}
