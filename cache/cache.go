package cache

import (
	"container/list"
	"sync"
	"sync/atomic"
	"time"
)

// entry is one fingerprint -> value binding with its expiry.
type entry[V any] struct {
	key       string
	value     V
	expiresAt time.Time
}

// Options configures a Cache.
type Options struct {
	// Capacity bounds the number of live entries. Least-recently-used
	// unexpired entries are evicted under capacity pressure.
	Capacity int
	// JanitorInterval is how often expired entries are purged in the
	// background. Zero disables the janitor; expired entries are still
	// purged opportunistically on access.
	JanitorInterval time.Duration
}

// Cache is a concurrency-safe capacity-bounded TTL cache with LRU eviction.
// It is a performance layer, not a source of truth: a miss must always be
// satisfiable by recomputing from upstream.
type Cache[V any] struct {
	mu       sync.Mutex
	capacity int
	ll       *list.List // front = most recently used
	items    map[string]*list.Element

	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64

	janitorStop chan struct{}
	janitorOnce sync.Once
}

// New creates a Cache with the given options.
func New[V any](optFns ...func(o *Options)) *Cache[V] {
	opts := Options{Capacity: 1024, JanitorInterval: time.Minute}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Capacity <= 0 {
		opts.Capacity = 1024
	}
	c := &Cache[V]{
		capacity:    opts.Capacity,
		ll:          list.New(),
		items:       make(map[string]*list.Element),
		janitorStop: make(chan struct{}),
	}
	if opts.JanitorInterval > 0 {
		go c.janitor(opts.JanitorInterval)
	}
	return c
}

// Get returns the value bound to key, or the zero value and false on a miss.
// Expired entries are treated as misses and purged on the spot.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		c.misses.Add(1)
		var zero V
		return zero, false
	}
	en := el.Value.(*entry[V])
	if time.Now().After(en.expiresAt) {
		c.removeLocked(el)
		c.misses.Add(1)
		var zero V
		return zero, false
	}
	c.ll.MoveToFront(el)
	c.hits.Add(1)
	return en.value, true
}

// Put binds key to value for ttl. An existing binding is replaced and its
// recency refreshed. When the cache is full the least-recently-used entry is
// evicted, preferring already-expired entries.
func (c *Cache[V]) Put(key string, value V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	expiresAt := time.Now().Add(ttl)
	if el, ok := c.items[key]; ok {
		en := el.Value.(*entry[V])
		en.value = value
		en.expiresAt = expiresAt
		c.ll.MoveToFront(el)
		return
	}

	if c.ll.Len() >= c.capacity {
		if !c.purgeOneExpiredLocked() {
			c.evictLRULocked()
		}
	}
	el := c.ll.PushFront(&entry[V]{key: key, value: value, expiresAt: expiresAt})
	c.items[key] = el
}

// Delete removes the binding for key if present.
func (c *Cache[V]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[key]; ok {
		c.removeLocked(el)
	}
}

// Len returns the current number of entries, expired ones included until purged.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}

// Stop terminates the background janitor. Safe to call multiple times.
func (c *Cache[V]) Stop() {
	c.janitorOnce.Do(func() { close(c.janitorStop) })
}

// Stats is a snapshot of cache counters.
type Stats struct {
	Entries   int   `json:"entries"`
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
	Evictions int64 `json:"evictions"`
}

// Stats returns current cache counters.
func (c *Cache[V]) Stats() Stats {
	return Stats{Entries: c.Len(), Hits: c.hits.Load(), Misses: c.misses.Load(), Evictions: c.evictions.Load()}
}

func (c *Cache[V]) janitor(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.purgeExpired()
		case <-c.janitorStop:
			return
		}
	}
}

func (c *Cache[V]) purgeExpired() {
	now := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	var next *list.Element
	for el := c.ll.Front(); el != nil; el = next {
		next = el.Next()
		if now.After(el.Value.(*entry[V]).expiresAt) {
			c.removeLocked(el)
		}
	}
}

// purgeOneExpiredLocked removes one expired entry if any exists, scanning from
// the LRU end. Reports whether an entry was removed.
func (c *Cache[V]) purgeOneExpiredLocked() bool {
	now := time.Now()
	for el := c.ll.Back(); el != nil; el = el.Prev() {
		if now.After(el.Value.(*entry[V]).expiresAt) {
			c.removeLocked(el)
			return true
		}
	}
	return false
}

func (c *Cache[V]) evictLRULocked() {
	if el := c.ll.Back(); el != nil {
		c.removeLocked(el)
		c.evictions.Add(1)
	}
}

func (c *Cache[V]) removeLocked(el *list.Element) {
	c.ll.Remove(el)
	delete(c.items, el.Value.(*entry[V]).key)
}
