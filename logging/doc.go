// Package logging provides a minimal logging interface and adapters for Conclave.
//
// The Logger interface defines the standard logging methods (Debug, Info, Warn, Error)
// that the substrate and agent adapters use for observability. This package includes:
//
//   - Logger interface for dependency injection
//   - SlogAdapter wrapping Go's structured logging
//   - NoOpLogger for silent operation (testing, minimal setups)
//   - WithComponent/WithSession scoped loggers and domain helpers
//     (UpstreamCall, Consultation, Turn) used by the substrate
//
// Usage:
//
//	logger := logging.NewSlogLogger(logging.LogLevelInfo, "json", false)
//	cc, err := conclave.New(dialer, func(o *conclave.Options) { o.Logger = logger })
//
// The design intentionally keeps the interface minimal to avoid vendor lock-in
// while supporting structured logging where available.
package logging
