package client

import (
	"math/rand/v2"
	"time"
)

// RetryConfig defines the retry budget and backoff schedule for transient
// upstream failures.
type RetryConfig struct {
	MaxAttempts int           `json:"max_attempts"`  // attempts including the initial call
	BaseDelay   time.Duration `json:"base_delay"`    // delay before the first retry
	MaxDelay    time.Duration `json:"max_delay"`     // cap on the backoff schedule
	Jitter      bool          `json:"jitter"`        // randomize to avoid synchronized retries
}

// DefaultRetryConfig provides reasonable defaults for retry behavior.
var DefaultRetryConfig = RetryConfig{
	MaxAttempts: 3,
	BaseDelay:   100 * time.Millisecond,
	MaxDelay:    10 * time.Second,
	Jitter:      true,
}

// Delay computes the backoff before the retry following the given attempt
// (1-based): base doubled per attempt, capped at MaxDelay, with ±10% uniform
// jitter when enabled. A zero MaxDelay leaves the schedule uncapped.
func (c RetryConfig) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := c.BaseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if c.MaxDelay > 0 && delay >= c.MaxDelay {
			delay = c.MaxDelay
			break
		}
	}
	if c.MaxDelay > 0 && delay > c.MaxDelay {
		delay = c.MaxDelay
	}
	if c.Jitter && delay > 0 {
		jitter := time.Duration((rand.Float64()*0.2 - 0.1) * float64(delay))
		delay += jitter
	}
	return delay
}
