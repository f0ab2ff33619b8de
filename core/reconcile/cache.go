package reconcile

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"
)

// IndexCache holds store-side key indices for previews, keyed by kind.
// Imports must call Invalidate after they commit.
type IndexCache struct {
	ttl     time.Duration
	mu      sync.RWMutex
	entries map[Kind]*cachedIndex
	sf      singleflight.Group
}

type cachedIndex struct {
	keys  map[string]struct{}
	built time.Time
}

// NewIndexCache creates a cache. A zero ttl disables caching.
func NewIndexCache(ttl time.Duration) *IndexCache {
	return &IndexCache{
		ttl:     ttl,
		entries: make(map[Kind]*cachedIndex),
	}
}

func (c *IndexCache) fresh(e *cachedIndex) bool {
	return c.ttl > 0 && time.Since(e.built) <= c.ttl
}

// Load returns the store keys of src, from cache when fresh.
// Concurrent misses for the same kind share a single query.
func (c *IndexCache) Load(ctx context.Context, src IndexSource, db *gorm.DB) (map[string]struct{}, error) {
	if c == nil || c.ttl == 0 {
		return src.LoadStoreKeys(ctx, db)
	}

	kind := src.Kind()

	c.mu.RLock()
	e, ok := c.entries[kind]
	c.mu.RUnlock()
	if ok && c.fresh(e) {
		return e.keys, nil
	}

	result, err, _ := c.sf.Do(string(kind), func() (interface{}, error) {
		c.mu.RLock()
		e, ok := c.entries[kind]
		c.mu.RUnlock()
		if ok && c.fresh(e) {
			return e.keys, nil
		}

		keys, err := src.LoadStoreKeys(ctx, db)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.entries[kind] = &cachedIndex{keys: keys, built: time.Now()}
		c.mu.Unlock()
		return keys, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(map[string]struct{}), nil
}

// Invalidate drops every cached index.
func (c *IndexCache) Invalidate() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.entries = make(map[Kind]*cachedIndex)
	c.mu.Unlock()
}
