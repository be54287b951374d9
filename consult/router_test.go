package consult

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conclave-ai/conclave/core"
)

func okHandler(answer string) Handler {
	return func(ctx context.Context, req Request) (Response, error) {
		return Response{Answer: answer, Status: "ok"}, nil
	}
}

func TestRouter_Consult(t *testing.T) {
	r := NewRouter()
	r.Register("coach", okHandler("do intervals"))

	resp, err := r.Consult(context.Background(), "coach", "how to get faster?", core.NewContext("s1"))
	require.NoError(t, err)
	assert.Equal(t, "do intervals", resp.Answer)
	assert.Equal(t, "ok", resp.Status)
	assert.Greater(t, resp.Latency, time.Duration(0))
}

func TestRouter_AgentNotFound_NoRetry(t *testing.T) {
	var calls atomic.Int64
	r := NewRouter()
	r.Register("other", func(ctx context.Context, req Request) (Response, error) {
		calls.Add(1)
		return Response{}, nil
	})

	_, err := r.Consult(context.Background(), "missing", "q", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrAgentNotFound))
	assert.EqualValues(t, 0, calls.Load())
}

func TestRouter_SubDeadlineEnforced(t *testing.T) {
	r := NewRouter(func(o *Options) { o.Timeout = 200 * time.Millisecond })
	r.Register("slow", func(ctx context.Context, req Request) (Response, error) {
		select {
		case <-time.After(500 * time.Millisecond):
			return Response{Answer: "too late"}, nil
		case <-ctx.Done():
			return Response{}, ctx.Err()
		}
	})

	start := time.Now()
	_, err := r.Consult(context.Background(), "slow", "q", nil)
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrConsultationTimeout))
	assert.Less(t, elapsed, 400*time.Millisecond, "timed out at the sub-deadline, not handler latency")
	assert.GreaterOrEqual(t, elapsed, 150*time.Millisecond)
}

func TestRouter_SubDeadlineBelowCallerBudget(t *testing.T) {
	r := NewRouter(func(o *Options) { o.Timeout = 10 * time.Second })
	r.Register("slow", func(ctx context.Context, req Request) (Response, error) {
		<-ctx.Done()
		return Response{}, ctx.Err()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := r.Consult(ctx, "slow", "q", nil)
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrConsultationTimeout))
	// The router's 80% budget fires before the caller's own deadline.
	assert.Less(t, elapsed, 100*time.Millisecond)

	// The caller still has budget left to record the failed turn.
	assert.NoError(t, ctx.Err())
}

func TestRouter_HandlerErrorIsConsultationFailed(t *testing.T) {
	r := NewRouter()
	r.Register("flaky", func(ctx context.Context, req Request) (Response, error) {
		return Response{}, errors.New("internal fault")
	})

	_, err := r.Consult(context.Background(), "flaky", "q", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrConsultationFailed))
}

func TestRouter_PanicContained(t *testing.T) {
	r := NewRouter()
	r.Register("bomb", func(ctx context.Context, req Request) (Response, error) {
		panic("boom")
	})

	_, err := r.Consult(context.Background(), "bomb", "q", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrConsultationFailed))
}

func TestRouter_TargetGetsSnapshotNotOriginal(t *testing.T) {
	callerCtx := core.NewContext("s1")
	callerCtx.MergeState(map[string]any{"plan": "5k"})

	r := NewRouter()
	r.Register("peer", func(ctx context.Context, req Request) (Response, error) {
		// Peer sees the caller's state but mutations stay local to the snapshot.
		assert.Equal(t, "5k", req.Context.State["plan"])
		req.Context.State["plan"] = "marathon"
		return Response{Answer: "ack", ContextDelta: map[string]any{"peer_note": "reviewed"}}, nil
	})

	resp, err := r.Consult(context.Background(), "peer", "q", callerCtx)
	require.NoError(t, err)
	assert.Equal(t, "5k", callerCtx.State["plan"], "caller context not mutated by peer")
	assert.Equal(t, "reviewed", resp.ContextDelta["peer_note"])
}

func TestRouter_Registered(t *testing.T) {
	r := NewRouter()
	assert.False(t, r.Registered("a"))
	r.Register("a", okHandler("x"))
	assert.True(t, r.Registered("a"))
}
