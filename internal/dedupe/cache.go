// Package dedupe remembers recently seen keys, such as message ids carried by
// notifications that an at-least-once bus may redeliver.
package dedupe

import (
	"sync"
	"time"
)

type entry[K comparable] struct {
	key K
	ts  time.Time
}

// Cache keeps a bounded set of keys seen within a ttl window.
type Cache[K comparable] struct {
	mu       sync.Mutex
	items    map[K]time.Time
	order    []entry[K]
	capacity int
	ttl      time.Duration
	now      func() time.Time
}

// NewCache creates a cache with the provided capacity and ttl.
func NewCache[K comparable](capacity int, ttl time.Duration) *Cache[K] {
	if capacity <= 0 {
		capacity = 1
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Cache[K]{
		items:    make(map[K]time.Time, capacity),
		order:    make([]entry[K], 0, capacity),
		capacity: capacity,
		ttl:      ttl,
		now:      time.Now,
	}
}

// IsSeen reports whether key was marked inside the ttl window.
// It does not mark the key; use MarkSeen or Observe for that.
func (c *Cache[K]) IsSeen(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seenLocked(key, c.now())
}

// MarkSeen records key.
func (c *Cache[K]) MarkSeen(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.markLocked(key, c.now())
}

// Observe marks key and reports whether it had already been seen.
func (c *Cache[K]) Observe(key K) bool {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.seenLocked(key, now) {
		return true
	}
	c.markLocked(key, now)
	return false
}

// Len returns the number of tracked keys.
func (c *Cache[K]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

func (c *Cache[K]) seenLocked(key K, now time.Time) bool {
	ts, ok := c.items[key]
	return ok && now.Sub(ts) <= c.ttl
}

func (c *Cache[K]) markLocked(key K, now time.Time) {
	c.items[key] = now
	c.order = append(c.order, entry[K]{key: key, ts: now})
	c.compact(now)
}

func (c *Cache[K]) compact(now time.Time) {
	cutoff := now.Add(-c.ttl)

	for len(c.order) > 0 && (len(c.items) > c.capacity || c.order[0].ts.Before(cutoff)) {
		oldest := c.order[0]
		c.order = c.order[1:]

		if ts, ok := c.items[oldest.key]; ok && ts.Equal(oldest.ts) {
			delete(c.items, oldest.key)
		}
	}
}
