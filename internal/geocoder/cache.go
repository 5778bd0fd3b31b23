package geocoder

import (
	"context"
	"sync"

	"github.com/DeafMist/conflict-radar/backend/internal/models"
)

// PersistentCache is the cross-process tier. Get returns (nil, nil) on a miss.
// Put must not overwrite an existing key.
type PersistentCache interface {
	GetGeocode(ctx context.Context, key string) (*models.GeoResult, error)
	PutGeocode(ctx context.Context, key string, result models.GeoResult) error
}

// memoryCache remembers resolved and unresolved lookups for the process lifetime.
// A stored nil result marks a place that failed to resolve.
type memoryCache struct {
	mu    sync.RWMutex
	items map[string]*models.GeoResult
}

func newMemoryCache() *memoryCache {
	return &memoryCache{items: make(map[string]*models.GeoResult)}
}

// get returns the cached result and whether the key was present at all.
func (c *memoryCache) get(key string) (*models.GeoResult, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	res, ok := c.items[key]
	if !ok || res == nil {
		return nil, ok
	}
	cp := *res
	return &cp, true
}

func (c *memoryCache) put(key string, res *models.GeoResult) {
	var stored *models.GeoResult
	if res != nil {
		cp := *res
		stored = &cp
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = stored
}

func (c *memoryCache) len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}
