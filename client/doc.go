// Package client provides the resilient upstream access path shared by all
// agents. It composes the connection pool, response cache, telemetry wrapper
// and a transient-failure retry policy behind a single Generate operation.
//
// Failure policy: transient failures (network, rate-limit, 5xx class) are
// retried with exponential backoff and jitter up to a configured attempt
// budget, releasing and reacquiring the pool handle between attempts.
// Permanent failures and caller cancellation are surfaced immediately.
// Exhausted retries surface core.ErrUpstreamUnavailable. Failures are never
// cached.
package client
