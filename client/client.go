package client

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/conclave-ai/conclave/cache"
	"github.com/conclave-ai/conclave/core"
	"github.com/conclave-ai/conclave/logging"
	"github.com/conclave-ai/conclave/pool"
	"github.com/conclave-ai/conclave/telemetry"
	"github.com/conclave-ai/conclave/upstream"
)

// Options configures a Client.
type Options struct {
	// Retry controls the transient-failure retry budget and backoff.
	Retry RetryConfig
	// CacheTTL is how long successful responses stay cached.
	CacheTTL time.Duration
	// Telemetry wraps cache lookups and upstream calls. Defaults to a
	// no-op wrapper.
	Telemetry *telemetry.Telemetry
	// Logger for client events. Defaults to NoOp.
	Logger logging.Logger
}

// Client is the resilient access path to the upstream AI service shared by
// all agents: fingerprint -> cache -> pooled handle -> instrumented call ->
// retry with exponential backoff. One explicitly constructed instance is
// passed by reference to every consumer; there is no ambient singleton.
type Client struct {
	pool   *pool.Pool
	cache  *cache.Cache[*core.Response]
	retry  RetryConfig
	ttl    time.Duration
	tel    *telemetry.Telemetry
	logger logging.Logger
}

// New creates a Client over the given pool and response cache.
func New(p *pool.Pool, c *cache.Cache[*core.Response], optFns ...func(o *Options)) *Client {
	opts := Options{
		Retry:    DefaultRetryConfig,
		CacheTTL: 5 * time.Minute,
		Logger:   logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Telemetry == nil {
		opts.Telemetry = telemetry.New(telemetry.NoOpSink{}, opts.Logger)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	return &Client{
		pool:   p,
		cache:  c,
		retry:  opts.Retry,
		ttl:    opts.CacheTTL,
		tel:    opts.Telemetry,
		logger: opts.Logger,
	}
}

// Generate performs one generation against the upstream service. Cache hits
// return immediately; misses go through a pooled handle with retries on
// transient failures. Failures are never cached, and the caller's deadline is
// honored between attempts: a retry is not started once it has elapsed.
func (c *Client) Generate(ctx context.Context, req core.Request) (*core.Response, error) {
	fp := cache.Fingerprint(req)

	if resp, ok := c.cache.Get(fp); ok {
		_ = c.tel.Instrument("generate", map[string]string{"outcome": "cache_hit"}, func() error { return nil })
		hit := *resp
		hit.Cached = true
		return &hit, nil
	}

	resp, err := c.callWithRetry(ctx, req)
	if err != nil {
		return nil, err
	}
	c.cache.Put(fp, resp, c.ttl)
	return resp, nil
}

func (c *Client) callWithRetry(ctx context.Context, req core.Request) (*core.Response, error) {
	var lastErr error
	for attempt := 1; attempt <= c.retry.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("generate aborted before attempt %d: %w", attempt, err)
		}

		resp, err := c.callOnce(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		// Pool exhaustion is local capacity pressure, not an upstream fault:
		// retrying would wait on the same depleted pool. Surface it as-is so
		// callers can branch on the taxonomy sentinel.
		if errors.Is(err, core.ErrPoolExhausted) || errors.Is(err, core.ErrPoolClosed) {
			return nil, err
		}
		if !upstream.IsTransient(err) {
			return nil, fmt.Errorf("permanent upstream failure: %w", err)
		}
		c.logger.Warn("transient upstream failure", "attempt", attempt, "max_attempts", c.retry.MaxAttempts, "error", err)

		if attempt == c.retry.MaxAttempts {
			break
		}
		if !c.sleep(ctx, c.retry.Delay(attempt)) {
			return nil, fmt.Errorf("generate aborted during backoff: %w", ctx.Err())
		}
	}
	return nil, fmt.Errorf("%w after %d attempts: %w", core.ErrUpstreamUnavailable, c.retry.MaxAttempts, lastErr)
}

// callOnce acquires a handle, performs one instrumented upstream call and
// releases the handle, marking it unhealthy on failure so the pool replaces
// it before the next attempt.
func (c *Client) callOnce(ctx context.Context, req core.Request) (*core.Response, error) {
	h, err := c.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer c.pool.Release(h)

	info := h.Provider().Info()
	tags := map[string]string{"provider": info.Provider, "model": req.Model}
	start := time.Now()
	resp, err := telemetry.Observe(c.tel, "upstream_call", tags, func() (*core.Response, error) {
		return h.Provider().Generate(ctx, req)
	})
	if err != nil {
		logging.UpstreamCall(c.logger, info.Provider, req.Model, 0, time.Since(start), err)
		h.MarkUnhealthy()
		return nil, err
	}
	logging.UpstreamCall(c.logger, info.Provider, req.Model, resp.Usage.TotalTokens, time.Since(start), nil)
	return resp, nil
}

// sleep waits for d or until ctx is done; reports whether the full delay
// elapsed.
func (c *Client) sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
