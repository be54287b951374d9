package session

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/conclave-ai/conclave/core"
)

type mockPersistence struct {
	mock.Mock
}

func (m *mockPersistence) Load(ctx context.Context, sessionID string) (*core.Context, error) {
	args := m.Called(ctx, sessionID)
	if c := args.Get(0); c != nil {
		return c.(*core.Context), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockPersistence) Save(ctx context.Context, c *core.Context) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

// Interface compliance (compile-time assertions)
var (
	_ Persistence = (*InMemoryPersistence)(nil)
	_ Persistence = (*SQLitePersistence)(nil)
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s := NewStore(nil)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_Get_CreatesOnFirstAccess(t *testing.T) {
	s := newTestStore(t)

	c, err := s.Get(context.Background(), "sess-1")
	require.NoError(t, err)
	assert.Equal(t, "sess-1", c.SessionID)
	assert.Empty(t, c.Turns)
}

func TestStore_Update_ReadOwnWrite(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	turn := core.NewTurn("how do I train?", "start slow")
	_, err := s.Update(ctx, "sess-1", Mutation{Turn: &turn, StateDelta: map[string]any{"plan": "5k"}})
	require.NoError(t, err)

	c, err := s.Get(ctx, "sess-1")
	require.NoError(t, err)
	require.Len(t, c.Turns, 1)
	assert.Equal(t, "how do I train?", c.Turns[0].UserInput)
	assert.Equal(t, "5k", c.State["plan"])
}

func TestStore_Update_LastWriterWins(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.Update(ctx, "sess-1", Mutation{StateDelta: map[string]any{"k": "v1", "other": 1}})
	require.NoError(t, err)
	c, err := s.Update(ctx, "sess-1", Mutation{StateDelta: map[string]any{"k": "v2"}})
	require.NoError(t, err)

	assert.Equal(t, "v2", c.State["k"])
	assert.Equal(t, 1, c.State["other"])
}

func TestStore_SnapshotsAreIsolated(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	c1, err := s.Get(ctx, "sess-1")
	require.NoError(t, err)
	c1.State["rogue"] = true
	c1.AppendTurn(core.NewTurn("x", "y"))

	c2, err := s.Get(ctx, "sess-1")
	require.NoError(t, err)
	assert.NotContains(t, c2.State, "rogue")
	assert.Empty(t, c2.Turns)
}

func TestStore_SameSessionSerialized(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	const writers = 8
	const turnsEach = 20
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < turnsEach; j++ {
				turn := core.NewTurn(fmt.Sprintf("q-%d-%d", n, j), "a")
				_, err := s.Update(ctx, "shared", Mutation{Turn: &turn})
				assert.NoError(t, err)
			}
		}(i)
	}
	wg.Wait()

	c, err := s.Get(ctx, "shared")
	require.NoError(t, err)
	assert.Len(t, c.Turns, writers*turnsEach, "no update lost under concurrency")
}

func TestStore_SessionsIndependent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.Update(ctx, "a", Mutation{StateDelta: map[string]any{"who": "a"}})
	require.NoError(t, err)
	_, err = s.Update(ctx, "b", Mutation{StateDelta: map[string]any{"who": "b"}})
	require.NoError(t, err)

	ca, _ := s.Get(ctx, "a")
	cb, _ := s.Get(ctx, "b")
	assert.Equal(t, "a", ca.State["who"])
	assert.Equal(t, "b", cb.State["who"])
}

func TestStore_LockMapReapedAfterOperations(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 50; i++ {
		sid := fmt.Sprintf("sess-%d", i)
		turn := core.NewTurn("q", "a")
		_, err := s.Update(ctx, sid, Mutation{Turn: &turn})
		require.NoError(t, err)
		_, err = s.Get(ctx, sid)
		require.NoError(t, err)
	}

	s.mu.Lock()
	entries := len(s.locks)
	s.mu.Unlock()
	assert.Zero(t, entries, "lock map bounded by in-flight operations, not session count")
}

func TestStore_DurableFallbackAfterHotExpiry(t *testing.T) {
	durable := NewInMemoryPersistence()
	s := NewStore(durable, func(o *Options) { o.HotTTL = 20 * time.Millisecond })
	defer s.Close()
	ctx := context.Background()

	turn := core.NewTurn("q", "a")
	_, err := s.Update(ctx, "sess-1", Mutation{Turn: &turn})
	require.NoError(t, err)

	time.Sleep(40 * time.Millisecond) // hot entry expires

	c, err := s.Get(ctx, "sess-1")
	require.NoError(t, err)
	assert.Len(t, c.Turns, 1, "cold session reloaded from durable store")
}

func TestStore_Update_SavesDurablyBeforeReturning(t *testing.T) {
	durable := &mockPersistence{}
	durable.On("Load", mock.Anything, "sess-1").Return(nil, core.ErrSessionNotFound).Once()
	durable.On("Save", mock.Anything, mock.MatchedBy(func(c *core.Context) bool {
		return c.SessionID == "sess-1" && len(c.Turns) == 1
	})).Return(nil).Once()

	s := NewStore(durable)
	defer s.Close()

	turn := core.NewTurn("q", "a")
	_, err := s.Update(context.Background(), "sess-1", Mutation{Turn: &turn})
	require.NoError(t, err)
	durable.AssertExpectations(t)
}

func TestStore_Update_SurfacesSaveFailure(t *testing.T) {
	durable := &mockPersistence{}
	durable.On("Load", mock.Anything, "sess-1").Return(nil, core.ErrSessionNotFound)
	durable.On("Save", mock.Anything, mock.Anything).Return(fmt.Errorf("disk full"))

	s := NewStore(durable)
	defer s.Close()

	turn := core.NewTurn("q", "a")
	_, err := s.Update(context.Background(), "sess-1", Mutation{Turn: &turn})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}

func TestInMemoryPersistence_NotFound(t *testing.T) {
	p := NewInMemoryPersistence()
	_, err := p.Load(context.Background(), "nope")
	assert.ErrorIs(t, err, core.ErrSessionNotFound)
}
