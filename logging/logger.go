package logging

import (
	"log/slog"
	"os"
	"time"
)

// LogLevel represents different logging levels.
// LogLevel is a thin enum for user friendly level configuration decoupled from slog.
type LogLevel int

const (
	// LogLevelDebug is the debug logging level.
	LogLevelDebug LogLevel = iota
	// LogLevelInfo is the informational logging level.
	LogLevelInfo
	// LogLevelWarn is the warning logging level.
	LogLevelWarn
	// LogLevelError is the error logging level.
	LogLevelError
)

// String returns the string representation of the log level.
func (l LogLevel) String() string {
	switch l {
	case LogLevelDebug:
		return "DEBUG"
	case LogLevelInfo:
		return "INFO"
	case LogLevelWarn:
		return "WARN"
	case LogLevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

func slogLevel(l LogLevel) slog.Level {
	switch l {
	case LogLevelDebug:
		return slog.LevelDebug
	case LogLevelInfo:
		return slog.LevelInfo
	case LogLevelWarn:
		return slog.LevelWarn
	case LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Logger defines the minimal logging interface for Conclave.
// This allows users to provide their own logger implementation or use the built-in adapters.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// SlogAdapter wraps *slog.Logger to implement the Logger interface.
type SlogAdapter struct {
	*slog.Logger
}

// Debug logs a debug message.
func (s *SlogAdapter) Debug(msg string, args ...any) { s.Logger.Debug(msg, args...) }

// Info logs an informational message.
func (s *SlogAdapter) Info(msg string, args ...any) { s.Logger.Info(msg, args...) }

// Warn logs a warning message.
func (s *SlogAdapter) Warn(msg string, args ...any) { s.Logger.Warn(msg, args...) }

// Error logs an error message.
func (s *SlogAdapter) Error(msg string, args ...any) { s.Logger.Error(msg, args...) }

// NewSlogAdapter creates a Logger from *slog.Logger.
func NewSlogAdapter(logger *slog.Logger) Logger {
	return &SlogAdapter{Logger: logger}
}

// NewDefaultSlogLogger creates a Logger using slog.Default().
func NewDefaultSlogLogger() Logger {
	return NewSlogAdapter(slog.Default())
}

// NewSlogLogger creates a Logger writing to stdout at the given level. Format
// is "text" or "json" (the default).
func NewSlogLogger(level LogLevel, format string, addSource bool) Logger {
	opts := &slog.HandlerOptions{Level: slogLevel(level), AddSource: addSource}
	var handler slog.Handler
	if format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	return NewSlogAdapter(slog.New(handler))
}

// NoOpLogger discards all log messages. Useful for testing or when logging is disabled.
type NoOpLogger struct{}

// Debug logs a debug message.
func (NoOpLogger) Debug(string, ...any) {}

// Info logs an informational message.
func (NoOpLogger) Info(string, ...any) {}

// Warn logs a warning message.
func (NoOpLogger) Warn(string, ...any) {}

// Error logs an error message.
func (NoOpLogger) Error(string, ...any) {}

// scopedLogger attaches fixed attributes to every entry of the wrapped Logger.
type scopedLogger struct {
	base  Logger
	attrs []any
}

func (s *scopedLogger) with(args []any) []any {
	merged := make([]any, 0, len(s.attrs)+len(args))
	merged = append(merged, s.attrs...)
	return append(merged, args...)
}

func (s *scopedLogger) Debug(msg string, args ...any) { s.base.Debug(msg, s.with(args)...) }
func (s *scopedLogger) Info(msg string, args ...any)  { s.base.Info(msg, s.with(args)...) }
func (s *scopedLogger) Warn(msg string, args ...any)  { s.base.Warn(msg, s.with(args)...) }
func (s *scopedLogger) Error(msg string, args ...any) { s.base.Error(msg, s.with(args)...) }

// WithComponent returns a Logger tagging every entry with the logical
// component (pool, client, session, consult, agent).
func WithComponent(l Logger, component string) Logger {
	return &scopedLogger{base: l, attrs: []any{"component", component}}
}

// WithSession returns a Logger tagging every entry with the session id.
func WithSession(l Logger, sessionID string) Logger {
	return &scopedLogger{base: l, attrs: []any{"session_id", sessionID}}
}

// UpstreamCall records one model call: latency, token usage and outcome.
func UpstreamCall(l Logger, provider, model string, tokens int, dur time.Duration, err error) {
	args := []any{"provider", provider, "model", model, "token_count", tokens, "duration", dur}
	if err != nil {
		l.Error("upstream call failed", append(args, "error", err)...)
		return
	}
	l.Info("upstream call completed", args...)
}

// Consultation records one peer agent consultation and its outcome.
func Consultation(l Logger, target string, dur time.Duration, err error) {
	args := []any{"target_agent", target, "duration", dur}
	if err != nil {
		l.Error("consultation failed", append(args, "error", err)...)
		return
	}
	l.Info("consultation completed", args...)
}

// Turn records aggregate details for one handled query. Callers pass a
// session-scoped logger so entries carry the session id.
func Turn(l Logger, agent, finalState, intentLabel string, dur time.Duration, err error) {
	args := []any{"agent", agent, "final_state", finalState, "intent", intentLabel, "duration", dur}
	if err != nil {
		l.Error("turn failed", append(args, "error", err)...)
		return
	}
	l.Info("turn completed", args...)
}
