package upstream

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// TransientError marks an error as retryable regardless of its message.
// Providers wrap network and rate-limit class failures with it so the
// resilient client does not have to guess.
type TransientError struct {
	Err error
}

// Error implements the error interface.
func (e *TransientError) Error() string { return fmt.Sprintf("transient: %v", e.Err) }

// Unwrap exposes the underlying cause.
func (e *TransientError) Unwrap() error { return e.Err }

// MarkTransient wraps err as transient. Returns nil for a nil err.
func MarkTransient(err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Err: err}
}

// IsTransient reports whether err belongs to the transient class (network,
// timeout, rate-limit, 5xx-equivalent). Only transient failures are retried;
// permanent failures (bad request, auth) and context cancellation are not.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	// Never retry context cancellation or deadline exceeded.
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var te *TransientError
	if errors.As(err, &te) {
		return true
	}

	errStr := strings.ToLower(err.Error())

	// Network / timeout class.
	if strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "connection") ||
		strings.Contains(errStr, "network") ||
		strings.Contains(errStr, "temporary") ||
		strings.Contains(errStr, "eof") {
		return true
	}

	// Rate limiting.
	if strings.Contains(errStr, "rate") || strings.Contains(errStr, "429") {
		return true
	}

	// Server errors (5xx).
	if strings.Contains(errStr, "500") ||
		strings.Contains(errStr, "502") ||
		strings.Contains(errStr, "503") ||
		strings.Contains(errStr, "504") {
		return true
	}

	// Client errors and everything unclassified are permanent.
	return false
}
