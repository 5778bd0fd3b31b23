package dedupe

import "time"

// SetClock replaces the time source.
func (c *Cache[K]) SetClock(now func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}
