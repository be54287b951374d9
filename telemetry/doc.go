// Package telemetry provides explicit wrapping of units of work with timing,
// span and metric recording. The wrapper is purely observational: it never
// alters the outcome of the wrapped operation and never retries.
//
// Records flow to a Sink, which must be fire-and-forget. Built-in sinks:
//
//   - PrometheusSink backed by prometheus/client_golang collectors
//   - LogSink writing debug entries to a logging.Logger
//   - NoOpSink discarding everything
//   - MultiSink fanning out to several sinks
package telemetry
