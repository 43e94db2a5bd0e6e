package audit

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	resolutionsTotal *prometheus.CounterVec
	storeErrorsTotal *prometheus.CounterVec
	resolveDuration  *prometheus.HistogramVec

	// Registration guard
	metricsOnce       sync.Once
	metricsRegistered bool
)

// InitMetrics registers all Prometheus metrics. Call once at startup when
// metrics are enabled; Record is a no-op until then.
func InitMetrics() {
	metricsOnce.Do(func() {
		resolutionsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "confres_resolutions_total",
				Help: "Total resolution operations by source tier and outcome",
			},
			[]string{"operation", "tier", "outcome"},
		)

		storeErrorsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "confres_store_errors_total",
				Help: "Total transient backing-store failures observed",
			},
			[]string{"operation"},
		)

		resolveDuration = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "confres_resolve_duration_seconds",
				Help:    "Duration of resolve operations in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
			},
			[]string{"tier"},
		)

		metricsRegistered = true
	})
}

// MetricsSink feeds audit events into Prometheus counters.
type MetricsSink struct{}

// NewMetricsSink creates a MetricsSink. Metrics must have been initialized
// via InitMetrics for events to be recorded.
func NewMetricsSink() *MetricsSink {
	return &MetricsSink{}
}

// Record implements Sink.
func (m *MetricsSink) Record(e Event) {
	if !metricsRegistered {
		return
	}

	if resolutionsTotal != nil {
		resolutionsTotal.WithLabelValues(e.Operation, e.SourceTier, e.Outcome).Inc()
	}

	if e.Outcome == "degraded" && storeErrorsTotal != nil {
		storeErrorsTotal.WithLabelValues(e.Operation).Inc()
	}

	if e.Operation == "resolve" && resolveDuration != nil {
		resolveDuration.WithLabelValues(e.SourceTier).Observe(e.Duration.Seconds())
	}
}
