package telemetry

import (
	"time"

	"github.com/conclave-ai/conclave/logging"
)

// MetricRecord is a write-only success/failure + duration observation for a
// named operation.
type MetricRecord struct {
	Name      string
	Duration  time.Duration
	Success   bool
	Tags      map[string]string
	Timestamp time.Time
}

// SpanRecord brackets one unit of work. Start and End are captured by the
// wrapper; End never precedes Start within a single call.
type SpanRecord struct {
	Name      string
	Start     time.Time
	End       time.Time
	Tags      map[string]string
	Error     string
	Timestamp time.Time
}

// Duration returns the span's elapsed time.
func (s SpanRecord) Duration() time.Duration { return s.End.Sub(s.Start) }

// Sink receives telemetry records. Implementations must be fire-and-forget:
// they must not block or fail the calling operation.
type Sink interface {
	RecordMetric(MetricRecord)
	RecordSpan(SpanRecord)
}

// NoOpSink discards all records. Useful for testing or when telemetry is disabled.
type NoOpSink struct{}

// RecordMetric discards the record.
func (NoOpSink) RecordMetric(MetricRecord) {}

// RecordSpan discards the record.
func (NoOpSink) RecordSpan(SpanRecord) {}

// MultiSink fans records out to multiple sinks in order.
type MultiSink []Sink

// RecordMetric forwards the record to every sink.
func (m MultiSink) RecordMetric(r MetricRecord) {
	for _, s := range m {
		s.RecordMetric(r)
	}
}

// RecordSpan forwards the record to every sink.
func (m MultiSink) RecordSpan(r SpanRecord) {
	for _, s := range m {
		s.RecordSpan(r)
	}
}

// Telemetry wraps units of work with span and metric recording. It is purely
// observational: it never converts a failure into success or vice versa, and
// never retries.
type Telemetry struct {
	sink   Sink
	logger logging.Logger
}

// New creates a Telemetry wrapper. A nil sink disables recording; a nil
// logger disables logging.
func New(sink Sink, logger logging.Logger) *Telemetry {
	if sink == nil {
		sink = NoOpSink{}
	}
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	return &Telemetry{sink: sink, logger: logger}
}

// Instrument runs fn, emitting a SpanRecord bracketing its execution and a
// MetricRecord for success/failure and duration. fn's error is returned
// unchanged.
func (t *Telemetry) Instrument(name string, tags map[string]string, fn func() error) error {
	start := time.Now()
	err := fn()
	t.emit(name, tags, start, err)
	return err
}

// Observe is the value-returning counterpart of Telemetry.Instrument for
// units of work producing a result.
func Observe[T any](t *Telemetry, name string, tags map[string]string, fn func() (T, error)) (T, error) {
	start := time.Now()
	res, err := fn()
	t.emit(name, tags, start, err)
	return res, err
}

func (t *Telemetry) emit(name string, tags map[string]string, start time.Time, err error) {
	end := time.Now()
	span := SpanRecord{Name: name, Start: start, End: end, Tags: tags, Timestamp: end}
	if err != nil {
		span.Error = err.Error()
	}
	t.sink.RecordSpan(span)
	t.sink.RecordMetric(MetricRecord{Name: name, Duration: end.Sub(start), Success: err == nil, Tags: tags, Timestamp: end})
	t.logger.Debug("operation observed", "operation", name, "duration", end.Sub(start), "success", err == nil)
}
