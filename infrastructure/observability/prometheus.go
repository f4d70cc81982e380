// Package observability provides Prometheus-backed metrics collection
// for the ingestion, aggregation, and advice pipelines.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ahrav/go-tactician/internal/ports"
)

// PrometheusMetrics implements the MetricsCollector interface using
// Prometheus. Latencies land in a shared histogram keyed by operation,
// counters and gauges are routed by metric name.
type PrometheusMetrics struct {
	operationLatency *prometheus.HistogramVec
	operationCounter *prometheus.CounterVec
	systemGauges     *prometheus.GaugeVec
}

// NewPrometheusMetrics creates a PrometheusMetrics instance and registers
// its metrics in the global Prometheus registry. Call at most once per
// process.
func NewPrometheusMetrics() *PrometheusMetrics {
	return &PrometheusMetrics{
		operationLatency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tactician_operation_duration_seconds",
				Help:    "Execution time of pipeline operations.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation", "provider"},
		),
		operationCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tactician_operations_total",
				Help: "Total number of pipeline operations performed.",
			},
			[]string{"metric", "provider"},
		),
		systemGauges: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "tactician_system_state",
				Help: "Current system state values, keyed by metric name.",
			},
			[]string{"metric"},
		),
	}
}

// RecordLatency implements the MetricsCollector interface by recording
// operation latency in a Prometheus histogram.
func (pm *PrometheusMetrics) RecordLatency(
	operation string, duration time.Duration, labels map[string]string,
) {
	pm.operationLatency.WithLabelValues(operation, providerLabel(labels)).
		Observe(duration.Seconds())
}

// RecordCounter implements the MetricsCollector interface by incrementing
// Prometheus counters.
func (pm *PrometheusMetrics) RecordCounter(
	metric string, value float64, labels map[string]string,
) {
	pm.operationCounter.WithLabelValues(metric, providerLabel(labels)).Add(value)
}

// RecordGauge implements the MetricsCollector interface by setting
// Prometheus gauge values.
func (pm *PrometheusMetrics) RecordGauge(
	metric string, value float64, labels map[string]string,
) {
	pm.systemGauges.WithLabelValues(metric).Set(value)
}

func providerLabel(labels map[string]string) string {
	if p, ok := labels["provider"]; ok {
		return p
	}
	return "none"
}

// Compile-time verification that PrometheusMetrics implements MetricsCollector.
var _ ports.MetricsCollector = (*PrometheusMetrics)(nil)
