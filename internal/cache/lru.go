package cache

import (
	"sync"
	"time"
)

var _ Cache[int] = (*LRUCache[int])(nil)

// LRUCache bounds entries by count and age. A maxSize below one keeps a
// single entry; a ttl of zero or less never expires entries.
//
// Recency is a logical clock bumped on every read and write, so eviction
// scans the map. The caches here hold a handful of ledger snapshots.
type LRUCache[T any] struct {
	mu      sync.Mutex
	maxSize int
	ttl     time.Duration
	entries map[string]*entry[T]
	tick    uint64
	now     func() time.Time
}

type entry[T any] struct {
	value    T
	storedAt time.Time
	lastUse  uint64
}

func NewLRUCache[T any](maxSize int, ttl time.Duration) *LRUCache[T] {
	return &LRUCache[T]{
		maxSize: max(maxSize, 1),
		ttl:     ttl,
		entries: make(map[string]*entry[T]),
		now:     time.Now,
	}
}

func (c *LRUCache[T]) stale(e *entry[T], now time.Time) bool {
	return c.ttl > 0 && now.Sub(e.storedAt) > c.ttl
}

// Get returns the entry and marks it as recently used. A stale entry is
// removed and reported as a miss.
func (c *LRUCache[T]) Get(key string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		var zero T
		return zero, false
	}
	if c.stale(e, c.now()) {
		delete(c.entries, key)
		var zero T
		return zero, false
	}
	c.tick++
	e.lastUse = c.tick
	return e.value, true
}

// Set stores value under key, restarting its ttl, then evicts the least
// recently used entries over capacity.
func (c *LRUCache[T]) Set(key string, value T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.tick++
	c.entries[key] = &entry[T]{value: value, storedAt: c.now(), lastUse: c.tick}
	for len(c.entries) > c.maxSize {
		c.evictOldest()
	}
}

func (c *LRUCache[T]) evictOldest() {
	var (
		victim string
		oldest uint64
		found  bool
	)
	for k, e := range c.entries {
		if !found || e.lastUse < oldest {
			victim, oldest, found = k, e.lastUse, true
		}
	}
	if found {
		delete(c.entries, victim)
	}
}

func (c *LRUCache[T]) Delete(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

func (c *LRUCache[T]) Purge() {
	c.mu.Lock()
	clear(c.entries)
	c.mu.Unlock()
}

// CleanExpired drops stale entries and returns how many went.
func (c *LRUCache[T]) CleanExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for k, e := range c.entries {
		if c.stale(e, now) {
			delete(c.entries, k)
			removed++
		}
	}
	return removed
}

func (c *LRUCache[T]) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
