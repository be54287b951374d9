package client

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conclave-ai/conclave/cache"
	"github.com/conclave-ai/conclave/core"
	"github.com/conclave-ai/conclave/pool"
	"github.com/conclave-ai/conclave/upstream"
)

// scriptedProvider fails a configured number of calls before succeeding.
type scriptedProvider struct {
	calls    atomic.Int64
	failures int64
	err      error
}

func (s *scriptedProvider) Generate(ctx context.Context, req core.Request) (*core.Response, error) {
	n := s.calls.Add(1)
	if n <= s.failures {
		return nil, s.err
	}
	return &core.Response{ID: core.NewID(), Model: req.Model, Content: "ok", FinishReason: "stop"}, nil
}

func (s *scriptedProvider) Info() upstream.Info {
	return upstream.Info{Name: "scripted", Provider: "mock"}
}

func newTestClient(t *testing.T, p upstream.Provider, retry RetryConfig) (*Client, *cache.Cache[*core.Response]) {
	t.Helper()
	pl, err := pool.New(func(ctx context.Context) (upstream.Provider, error) { return p, nil },
		func(o *pool.Options) { o.Size = 2; o.WaitTimeout = time.Second })
	require.NoError(t, err)
	t.Cleanup(func() { pl.Close() })

	ch := cache.New[*core.Response](func(o *cache.Options) { o.JanitorInterval = 0 })
	t.Cleanup(ch.Stop)

	return New(pl, ch, func(o *Options) {
		o.Retry = retry
		o.CacheTTL = time.Minute
	}), ch
}

func fastRetry(maxAttempts int) RetryConfig {
	return RetryConfig{MaxAttempts: maxAttempts, BaseDelay: time.Millisecond, MaxDelay: 10 * time.Millisecond}
}

func testRequest(prompt string) core.Request {
	return core.Request{Model: "m1", Messages: []core.Message{{Role: "user", Content: prompt}}, Params: map[string]any{"temp": 0}}
}

func TestClient_Generate_Success(t *testing.T) {
	p := &scriptedProvider{}
	c, _ := newTestClient(t, p, fastRetry(3))

	resp, err := c.Generate(context.Background(), testRequest("hello"))
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Content)
	assert.False(t, resp.Cached)
	assert.EqualValues(t, 1, p.calls.Load())
}

func TestClient_Generate_CacheHit(t *testing.T) {
	p := &scriptedProvider{}
	c, _ := newTestClient(t, p, fastRetry(3))

	req := testRequest("hello")
	_, err := c.Generate(context.Background(), req)
	require.NoError(t, err)

	resp, err := c.Generate(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, resp.Cached)
	assert.EqualValues(t, 1, p.calls.Load(), "second call served from cache")
}

func TestClient_Generate_RetriesTransient(t *testing.T) {
	p := &scriptedProvider{failures: 2, err: upstream.MarkTransient(errors.New("connection reset"))}
	c, _ := newTestClient(t, p, fastRetry(3))

	resp, err := c.Generate(context.Background(), testRequest("hello"))
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Content)
	assert.EqualValues(t, 3, p.calls.Load())
}

func TestClient_Generate_ExhaustsRetries(t *testing.T) {
	// Success would come on the 4th call, but max-attempts is 3: the 4th is
	// never tried and the client fails with UpstreamUnavailable.
	p := &scriptedProvider{failures: 3, err: upstream.MarkTransient(errors.New("timeout"))}
	c, _ := newTestClient(t, p, fastRetry(3))

	_, err := c.Generate(context.Background(), testRequest("hello"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrUpstreamUnavailable))
	assert.EqualValues(t, 3, p.calls.Load())
}

func TestClient_Generate_PermanentFailureNotRetried(t *testing.T) {
	p := &scriptedProvider{failures: 10, err: errors.New("401 unauthorized")}
	c, _ := newTestClient(t, p, fastRetry(3))

	_, err := c.Generate(context.Background(), testRequest("hello"))
	require.Error(t, err)
	assert.False(t, errors.Is(err, core.ErrUpstreamUnavailable))
	assert.EqualValues(t, 1, p.calls.Load())
}

func TestClient_Generate_FailuresNotCached(t *testing.T) {
	p := &scriptedProvider{failures: 3, err: upstream.MarkTransient(errors.New("503"))}
	c, ch := newTestClient(t, p, fastRetry(3))

	_, err := c.Generate(context.Background(), testRequest("hello"))
	require.Error(t, err)
	assert.Equal(t, 0, ch.Len())

	// Upstream recovered; the same request must now succeed from upstream.
	resp, err := c.Generate(context.Background(), testRequest("hello"))
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Content)
}

func TestClient_Generate_DeadlineStopsRetry(t *testing.T) {
	p := &scriptedProvider{failures: 100, err: upstream.MarkTransient(errors.New("timeout"))}
	c, _ := newTestClient(t, p, RetryConfig{MaxAttempts: 10, BaseDelay: 50 * time.Millisecond, MaxDelay: time.Second})

	ctx, cancel := context.WithTimeout(context.Background(), 75*time.Millisecond)
	defer cancel()

	_, err := c.Generate(ctx, testRequest("hello"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Less(t, p.calls.Load(), int64(10), "deadline stopped the retry loop early")
}

func TestClient_Generate_PoolExhaustionNotRetried(t *testing.T) {
	p := &scriptedProvider{}
	pl, err := pool.New(func(ctx context.Context) (upstream.Provider, error) { return p, nil },
		func(o *pool.Options) { o.Size = 1; o.WaitTimeout = 50 * time.Millisecond })
	require.NoError(t, err)
	t.Cleanup(func() { pl.Close() })

	ch := cache.New[*core.Response](func(o *cache.Options) { o.JanitorInterval = 0 })
	t.Cleanup(ch.Stop)
	c := New(pl, ch, func(o *Options) { o.Retry = fastRetry(3) })

	// Hold the only handle so every acquire times out.
	h, err := pl.Acquire(context.Background())
	require.NoError(t, err)
	defer pl.Release(h)

	start := time.Now()
	_, err = c.Generate(context.Background(), testRequest("hello"))
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrPoolExhausted), "taxonomy sentinel survives: %v", err)
	assert.False(t, errors.Is(err, core.ErrUpstreamUnavailable))
	assert.Less(t, elapsed, 120*time.Millisecond, "single wait, no retry against the depleted pool")
	assert.EqualValues(t, 0, p.calls.Load())
}

func TestClient_Generate_RetryExhaustionKeepsCauseChain(t *testing.T) {
	cause := upstream.MarkTransient(errors.New("timeout"))
	p := &scriptedProvider{failures: 10, err: cause}
	c, _ := newTestClient(t, p, fastRetry(2))

	_, err := c.Generate(context.Background(), testRequest("hello"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrUpstreamUnavailable))
	assert.True(t, errors.Is(err, cause), "last upstream error stays in the chain")
	assert.True(t, upstream.IsTransient(err))
}

func TestRetryConfig_Delay(t *testing.T) {
	cfg := RetryConfig{MaxAttempts: 5, BaseDelay: 100 * time.Millisecond, MaxDelay: 350 * time.Millisecond}

	assert.Equal(t, 100*time.Millisecond, cfg.Delay(1))
	assert.Equal(t, 200*time.Millisecond, cfg.Delay(2))
	assert.Equal(t, 350*time.Millisecond, cfg.Delay(3), "capped at max delay")
	assert.Equal(t, 350*time.Millisecond, cfg.Delay(9))
}

func TestRetryConfig_DelayZeroMaxDelayUncapped(t *testing.T) {
	cfg := RetryConfig{MaxAttempts: 4, BaseDelay: 100 * time.Millisecond}

	assert.Equal(t, 100*time.Millisecond, cfg.Delay(1))
	assert.Equal(t, 200*time.Millisecond, cfg.Delay(2), "doubling continues without a cap")
	assert.Equal(t, 400*time.Millisecond, cfg.Delay(3))
}

func TestRetryConfig_DelayJitterBounded(t *testing.T) {
	cfg := RetryConfig{MaxAttempts: 3, BaseDelay: 100 * time.Millisecond, MaxDelay: time.Second, Jitter: true}
	for i := 0; i < 100; i++ {
		d := cfg.Delay(2)
		assert.GreaterOrEqual(t, d, 180*time.Millisecond)
		assert.LessOrEqual(t, d, 220*time.Millisecond)
	}
}
