package core

import (
	"errors"
	"fmt"
)

// Sentinel errors of the substrate's failure taxonomy. Components wrap these
// with %w so callers can branch with errors.Is regardless of added detail.
var (
	// ErrPoolExhausted is returned when no connection handle becomes free
	// within the pool's wait timeout. Callers should fail the query rather
	// than retry indefinitely.
	ErrPoolExhausted = errors.New("connection pool exhausted")

	// ErrPoolClosed is returned when acquiring from a pool that has been
	// drained and closed.
	ErrPoolClosed = errors.New("connection pool closed")

	// ErrUpstreamUnavailable is returned when the resilient client exhausted
	// its retry budget against the upstream AI service.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	// ErrAgentNotFound is returned by the consultation router when no handler
	// is registered for the target agent id. Non-retryable.
	ErrAgentNotFound = errors.New("agent not found")

	// ErrConsultationTimeout is returned when a peer agent handler exceeded
	// the router's sub-deadline.
	ErrConsultationTimeout = errors.New("consultation timeout")

	// ErrConsultationFailed is returned when a peer agent handler raised an
	// internal fault. Treated like a timeout for caller-visible purposes.
	ErrConsultationFailed = errors.New("consultation failed")

	// ErrSessionNotFound is returned by durable persistence backends for an
	// unknown session id. The session store absorbs it by creating an empty
	// context; it never reaches adapter callers.
	ErrSessionNotFound = errors.New("session not found")
)

// TurnError is the structured terminal error surfaced to an agent adapter's
// caller: a machine-readable kind plus a human-readable message. A query that
// fails terminally returns a TurnError, never a partial response.
type TurnError struct {
	Kind    string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *TurnError) Error() string {
	if e.Message == "" {
		return e.Kind
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap exposes the underlying cause for errors.Is / errors.As.
func (e *TurnError) Unwrap() error { return e.Err }

// NewTurnError builds a TurnError wrapping cause. The kind is derived from the
// taxonomy sentinel found in cause's chain, or "internal" if none matches.
func NewTurnError(message string, cause error) *TurnError {
	return &TurnError{Kind: KindOf(cause), Message: message, Err: cause}
}

// KindOf maps an error chain to its taxonomy kind string.
func KindOf(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrPoolExhausted):
		return "pool_exhausted"
	case errors.Is(err, ErrPoolClosed):
		return "pool_closed"
	case errors.Is(err, ErrUpstreamUnavailable):
		return "upstream_unavailable"
	case errors.Is(err, ErrAgentNotFound):
		return "agent_not_found"
	case errors.Is(err, ErrConsultationTimeout):
		return "consultation_timeout"
	case errors.Is(err, ErrConsultationFailed):
		return "consultation_failed"
	default:
		return "internal"
	}
}
