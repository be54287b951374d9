package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(capacity int) *Cache[string] {
	return New[string](func(o *Options) {
		o.Capacity = capacity
		o.JanitorInterval = 0 // exercise opportunistic purge only
	})
}

func TestCache_PutGet(t *testing.T) {
	c := newTestCache(8)
	defer c.Stop()

	c.Put("f1", "response", time.Minute)

	got, ok := c.Get("f1")
	require.True(t, ok)
	assert.Equal(t, "response", got)

	_, ok = c.Get("unknown")
	assert.False(t, ok)
}

func TestCache_TTLExpiry(t *testing.T) {
	c := newTestCache(8)
	defer c.Stop()

	c.Put("f1", "response", 30*time.Millisecond)

	_, ok := c.Get("f1")
	require.True(t, ok)

	time.Sleep(50 * time.Millisecond)
	_, ok = c.Get("f1")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len(), "expired entry purged on access")
}

func TestCache_LRUEviction(t *testing.T) {
	c := newTestCache(3)
	defer c.Stop()

	c.Put("a", "1", time.Minute)
	c.Put("b", "2", time.Minute)
	c.Put("c", "3", time.Minute)

	// Touch "a" so "b" becomes least recently used.
	_, ok := c.Get("a")
	require.True(t, ok)

	c.Put("d", "4", time.Minute)

	_, ok = c.Get("b")
	assert.False(t, ok, "LRU entry evicted")
	for _, k := range []string{"a", "c", "d"} {
		_, ok := c.Get(k)
		assert.True(t, ok, "entry %q survived", k)
	}
	assert.EqualValues(t, 1, c.Stats().Evictions)
}

func TestCache_EvictionPrefersExpired(t *testing.T) {
	c := newTestCache(2)
	defer c.Stop()

	c.Put("fresh", "1", time.Minute)
	c.Put("stale", "2", 10*time.Millisecond)
	time.Sleep(20 * time.Millisecond)

	// "fresh" is at the LRU end, but the expired entry must go first.
	c.Put("new", "3", time.Minute)

	_, ok := c.Get("fresh")
	assert.True(t, ok)
	_, ok = c.Get("new")
	assert.True(t, ok)
}

func TestCache_PutReplaces(t *testing.T) {
	c := newTestCache(8)
	defer c.Stop()

	c.Put("f1", "old", time.Minute)
	c.Put("f1", "new", time.Minute)

	got, ok := c.Get("f1")
	require.True(t, ok)
	assert.Equal(t, "new", got)
	assert.Equal(t, 1, c.Len())
}

func TestCache_Janitor(t *testing.T) {
	c := New[string](func(o *Options) {
		o.Capacity = 8
		o.JanitorInterval = 20 * time.Millisecond
	})
	defer c.Stop()

	c.Put("f1", "v", 10*time.Millisecond)
	assert.Eventually(t, func() bool { return c.Len() == 0 }, time.Second, 10*time.Millisecond)
}

func TestCache_ConcurrentAccess(t *testing.T) {
	c := newTestCache(128)
	defer c.Stop()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				key := fmt.Sprintf("k%d", j%32)
				c.Put(key, fmt.Sprintf("v%d-%d", n, j), time.Minute)
				c.Get(key)
			}
		}(i)
	}
	wg.Wait()
	assert.LessOrEqual(t, c.Len(), 128)
}

func TestCache_Delete(t *testing.T) {
	c := newTestCache(8)
	defer c.Stop()

	c.Put("f1", "v", time.Minute)
	c.Delete("f1")
	_, ok := c.Get("f1")
	assert.False(t, ok)
}
