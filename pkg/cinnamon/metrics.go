package cinnamon

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsConfig configures the dispatch metrics
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "cinnamon")
	Namespace string

	// ConstLabels are constant labels added to all metrics
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for dispatch duration.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// Metrics holds the Prometheus collectors updated by a Dispatcher
type Metrics struct {
	dispatchTotal    *prometheus.CounterVec
	dispatchDuration *prometheus.HistogramVec
	violationsTotal  *prometheus.CounterVec
}

// NewMetrics registers the dispatch collectors with config.Registry
func NewMetrics(config MetricsConfig) *Metrics {
	if config.Namespace == "" {
		config.Namespace = "cinnamon"
	}
	if config.Buckets == nil {
		config.Buckets = prometheus.DefBuckets
	}
	if config.Registry == nil {
		config.Registry = prometheus.DefaultRegisterer
	}
	factory := promauto.With(config.Registry)

	return &Metrics{
		dispatchTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Name:        "dispatch_total",
			Help:        "Total number of dispatched requests by handler, action and outcome",
			ConstLabels: config.ConstLabels,
		}, []string{"handler", "action", "outcome"}),

		dispatchDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Name:        "dispatch_duration_seconds",
			Help:        "Dispatch duration in seconds, rendering included",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"handler", "action"}),

		violationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Name:        "binding_violations_total",
			Help:        "Total number of advisory binding violations recorded",
			ConstLabels: config.ConstLabels,
		}, []string{"handler", "action"}),
	}
}

// observe records one finished dispatch. Unresolved routes are labelled
// with empty handler and action names to bound cardinality.
func (m *Metrics) observe(handler, action string, kind ErrorKind, violations int, elapsed time.Duration) {
	if m == nil {
		return
	}
	outcome := "ok"
	if kind != 0 {
		outcome = kind.String()
	}
	if kind == NotFoundKind {
		handler, action = "", ""
	}
	m.dispatchTotal.WithLabelValues(handler, action, outcome).Inc()
	m.dispatchDuration.WithLabelValues(handler, action).Observe(elapsed.Seconds())
	if violations > 0 {
		m.violationsTotal.WithLabelValues(handler, action).Add(float64(violations))
	}
}
