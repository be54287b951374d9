package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusSink implements Sink using Prometheus collectors. Metric
// observations are in-process counter/histogram updates and therefore never
// block the instrumented operation.
type PrometheusSink struct {
	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	spansTotal        *prometheus.CounterVec
}

// NewPrometheusSink creates a Prometheus-backed sink and registers its
// collectors with the given registerer (prometheus.DefaultRegisterer if nil).
func NewPrometheusSink(reg prometheus.Registerer) *PrometheusSink {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PrometheusSink{
		operationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "conclave_operations_total",
				Help: "Total number of instrumented operations by name and status",
			},
			[]string{"operation", "status"},
		),
		operationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "conclave_operation_duration_seconds",
				Help:    "Duration of instrumented operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		spansTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "conclave_spans_total",
				Help: "Total number of recorded spans by name and outcome",
			},
			[]string{"span", "outcome"},
		),
	}
	reg.MustRegister(s.operationsTotal, s.operationDuration, s.spansTotal)
	return s
}

// RecordMetric implements Sink.
func (s *PrometheusSink) RecordMetric(r MetricRecord) {
	status := "success"
	if !r.Success {
		status = "error"
	}
	s.operationsTotal.WithLabelValues(r.Name, status).Inc()
	s.operationDuration.WithLabelValues(r.Name).Observe(r.Duration.Seconds())
}

// RecordSpan implements Sink.
func (s *PrometheusSink) RecordSpan(r SpanRecord) {
	outcome := "ok"
	if r.Error != "" {
		outcome = "error"
	}
	s.spansTotal.WithLabelValues(r.Name, outcome).Inc()
}
