package telemetry

import "github.com/conclave-ai/conclave/logging"

// LogSink writes telemetry records to a structured logger at debug level.
// Intended for development setups without a metrics backend.
type LogSink struct {
	logger logging.Logger
}

// NewLogSink creates a sink writing to the given logger.
func NewLogSink(logger logging.Logger) *LogSink {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	return &LogSink{logger: logger}
}

// RecordMetric implements Sink.
func (s *LogSink) RecordMetric(r MetricRecord) {
	s.logger.Debug("metric", "name", r.Name, "duration", r.Duration, "success", r.Success)
}

// RecordSpan implements Sink.
func (s *LogSink) RecordSpan(r SpanRecord) {
	s.logger.Debug("span", "name", r.Name, "duration", r.Duration(), "error", r.Error)
}
