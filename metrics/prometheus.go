package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusCollector exports envelope operation metrics to Prometheus
type PrometheusCollector struct {
	operations *prometheus.CounterVec   // by operation
	errors     *prometheus.CounterVec   // by operation and error_type
	duration   *prometheus.HistogramVec // by operation
}

// NewPrometheusCollector creates the collector and registers its vectors
// with reg. An empty namespace defaults to "mfp".
func NewPrometheusCollector(reg prometheus.Registerer, namespace string) (*PrometheusCollector, error) {
	if namespace == "" {
		namespace = "mfp"
	}

	c := &PrometheusCollector{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "envelope",
			Name:      "operations_total",
			Help:      "Total number of envelope operations",
		}, []string{"operation"}),

		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "envelope",
			Name:      "errors_total",
			Help:      "Total number of failed envelope operations",
		}, []string{"operation", "error_type"}),

		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "envelope",
			Name:      "operation_duration_seconds",
			Help:      "Envelope operation duration in seconds",
			Buckets:   []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05},
		}, []string{"operation"}),
	}

	for _, col := range []prometheus.Collector{c.operations, c.errors, c.duration} {
		if err := reg.Register(col); err != nil {
			return nil, fmt.Errorf("metrics: register: %w", err)
		}
	}

	return c, nil
}

// IncrementMessageCount implements Collector
func (c *PrometheusCollector) IncrementMessageCount(operation string) {
	c.operations.WithLabelValues(operation).Inc()
}

// RecordProcessingTime implements Collector
func (c *PrometheusCollector) RecordProcessingTime(operation string, duration time.Duration) {
	c.duration.WithLabelValues(operation).Observe(duration.Seconds())
}

// IncrementErrorCount implements Collector
func (c *PrometheusCollector) IncrementErrorCount(operation string, errorType string) {
	c.errors.WithLabelValues(operation, errorType).Inc()
}
