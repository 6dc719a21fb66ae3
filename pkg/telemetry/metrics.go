package telemetry

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"
)

// Metrics provides Prometheus metrics for the reconciliation engine. A nil
// *Metrics is a valid no-op collector, so the transport and reconciler never
// need to guard their observations.
type Metrics struct {
	config MetricsConfig

	// API transport metrics
	apiRequests *prometheus.CounterVec
	apiDuration *prometheus.HistogramVec

	// Reconciliation metrics
	decisions       *prometheus.CounterVec
	driftDetections *prometheus.CounterVec
	driftedFields   *prometheus.HistogramVec

	// Error metrics
	errorsByKind *prometheus.CounterVec

	registry *prometheus.Registry
}

// NewMetrics creates a new metrics collector with the given configuration.
// A disabled configuration yields a nil collector, which is safe to use.
func NewMetrics(cfg MetricsConfig) (*Metrics, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	namespace := cfg.Namespace
	if namespace == "" {
		namespace = "zpa_engine"
	}
	buckets := cfg.DefaultHistogramBuckets
	if len(buckets) == 0 {
		buckets = prometheus.DefBuckets
	}

	registry := prometheus.NewRegistry()

	m := &Metrics{
		config:   cfg,
		registry: registry,

		apiRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "api_requests_total",
				Help:      "Total number of management API requests",
			},
			[]string{"method", "status"},
		),
		apiDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "api_request_duration_seconds",
				Help:      "Duration of management API requests in seconds",
				Buckets:   buckets,
			},
			[]string{"method"},
		),
		decisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "reconcile_decisions_total",
				Help:      "Total reconciliation decisions by resource kind",
			},
			[]string{"kind", "decision"},
		),
		driftDetections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "drift_detections_total",
				Help:      "Total drift detections by resource kind",
			},
			[]string{"kind"},
		),
		driftedFields: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "drifted_fields",
				Help:      "Number of drifted fields per detection",
				Buckets:   []float64{1, 2, 3, 5, 8, 13, 21},
			},
			[]string{"kind"},
		),
		errorsByKind: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_total",
				Help:      "Total engine errors by classification",
			},
			[]string{"error_kind"},
		),
	}

	collectors := []prometheus.Collector{
		m.apiRequests, m.apiDuration,
		m.decisions, m.driftDetections, m.driftedFields,
		m.errorsByKind,
	}
	for _, c := range collectors {
		if err := registry.Register(c); err != nil {
			return nil, err
		}
	}

	return m, nil
}

// ObserveAPIRequest records one management API request. A status of zero
// means the request never produced a response.
func (m *Metrics) ObserveAPIRequest(method string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.apiRequests.WithLabelValues(method, strconv.Itoa(status)).Inc()
	m.apiDuration.WithLabelValues(method).Observe(elapsed.Seconds())
}

// CountDecision records one reconciliation decision.
func (m *Metrics) CountDecision(kind, decision string) {
	if m == nil {
		return
	}
	m.decisions.WithLabelValues(kind, decision).Inc()
}

// CountDrift records one drift detection and the number of drifted fields.
func (m *Metrics) CountDrift(kind string, fields int) {
	if m == nil {
		return
	}
	m.driftDetections.WithLabelValues(kind).Inc()
	m.driftedFields.WithLabelValues(kind).Observe(float64(fields))
}

// CountError records one classified engine error.
func (m *Metrics) CountError(errorKind string) {
	if m == nil {
		return
	}
	m.errorsByKind.WithLabelValues(errorKind).Inc()
}

// Handler returns an HTTP handler exposing the metrics registry, for
// embedders that run the engine inside a long-lived process.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Gather collects the current metric families, primarily for tests.
func (m *Metrics) Gather() ([]*dto.MetricFamily, error) {
	if m == nil {
		return nil, nil
	}
	return m.registry.Gather()
}
