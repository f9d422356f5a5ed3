// Package cache provides a thread-safe, size- and time-bounded key/value
// store with LRU eviction and hit/miss statistics.
package cache

import (
	"container/list"
	"sync"
	"time"
)

// compositeDelimiter joins primary and secondary key parts. The unit
// separator cannot appear in well-formed keys, so joined keys never collide
// with single keys.
const compositeDelimiter = "\x1f"

type entry[V any] struct {
	insertedAt time.Time
	elem       *list.Element
	key        string
	value      V
}

// Cache is a bounded LRU cache with lazy TTL expiration. A zero TTL disables
// expiry. All operations are safe for concurrent use.
type Cache[V any] struct {
	now     func() time.Time
	entries map[string]*entry[V]
	order   *list.List // front = most recently used
	ttl     time.Duration
	maxSize int
	hits    int64
	misses  int64
	mu      sync.Mutex
}

// Stats reports cache occupancy and effectiveness.
type Stats struct {
	Size    int
	MaxSize int
	Hits    int64
	Misses  int64
	HitRate float64
}

// New creates a cache holding at most maxSize entries, each valid for ttl
// after its last Set.
func New[V any](maxSize int, ttl time.Duration) *Cache[V] {
	if maxSize <= 0 {
		maxSize = 1
	}
	return &Cache[V]{
		entries: make(map[string]*entry[V]),
		order:   list.New(),
		maxSize: maxSize,
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get returns the value for key and marks it most recently used. A present
// but expired entry counts as a miss and is evicted as a side effect.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	e, ok := c.entries[key]
	if !ok {
		c.misses++
		return zero, false
	}

	if c.expired(e) {
		c.remove(e)
		c.misses++
		return zero, false
	}

	c.order.MoveToFront(e.elem)
	c.hits++
	return e.value, true
}

// GetPair is the composite-key variant of Get.
func (c *Cache[V]) GetPair(primary, secondary string) (V, bool) {
	return c.Get(primary + compositeDelimiter + secondary)
}

// Set inserts or replaces the value for key, resetting its timestamp. When
// the cache exceeds its capacity, least-recently-used entries are evicted
// until it is back at capacity.
func (c *Cache[V]) Set(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.value = value
		e.insertedAt = c.now()
		c.order.MoveToFront(e.elem)
		return
	}

	e := &entry[V]{key: key, value: value, insertedAt: c.now()}
	e.elem = c.order.PushFront(e)
	c.entries[key] = e

	for len(c.entries) > c.maxSize {
		oldest := c.order.Back()
		if oldest == nil {
			break
		}
		c.remove(oldest.Value.(*entry[V]))
	}
}

// SetPair is the composite-key variant of Set.
func (c *Cache[V]) SetPair(primary, secondary string, value V) {
	c.Set(primary+compositeDelimiter+secondary, value)
}

// Delete removes the entry for key if present.
func (c *Cache[V]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		c.remove(e)
	}
}

// Clear removes all entries. Hit/miss counters persist across clears so
// operational statistics survive invalidation.
func (c *Cache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*entry[V])
	c.order.Init()
}

// Stats returns a snapshot of the cache counters.
func (c *Cache[V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Stats{
		Size:    len(c.entries),
		MaxSize: c.maxSize,
		Hits:    c.hits,
		Misses:  c.misses,
	}
	if total := s.Hits + s.Misses; total > 0 {
		s.HitRate = float64(s.Hits) / float64(total)
	}
	return s
}

func (c *Cache[V]) expired(e *entry[V]) bool {
	return c.ttl > 0 && c.now().Sub(e.insertedAt) > c.ttl
}

func (c *Cache[V]) remove(e *entry[V]) {
	c.order.Remove(e.elem)
	delete(c.entries, e.key)
}
