// Package cache keeps a parsed catalog in memory for a fixed time.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/dom/tft-catalog/internal/domain"
)

// DefaultTTL is how long a loaded catalog is served before the source is read again.
const DefaultTTL = time.Hour

// Source produces a catalog from persisted storage.
type Source interface {
	Load(ctx context.Context) (domain.Catalog, error)
}

// CatalogCache is a read-through cache over a Source. Concurrent callers that
// find it stale each load the source; loads are not coalesced.
type CatalogCache struct {
	source Source
	ttl    time.Duration
	now    func() time.Time

	mu       sync.Mutex
	catalog  domain.Catalog
	loadedAt time.Time
	loaded   bool
	// gen changes on every Invalidate and store. A load only stores its
	// result if gen is unchanged since the load started.
	gen uint64
}

type Option func(*CatalogCache)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(c *CatalogCache) {
		c.now = now
	}
}

func New(source Source, ttl time.Duration, opts ...Option) *CatalogCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c := &CatalogCache{
		source: source,
		ttl:    ttl,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the cached catalog while it is younger than the TTL and reloads
// it from the source otherwise. A failed load returns the error and leaves the
// cache as it was. A load that overlaps an Invalidate is not stored.
func (c *CatalogCache) Get(ctx context.Context) (domain.Catalog, error) {
	now := c.now()

	c.mu.Lock()
	if c.loaded && now.Sub(c.loadedAt) < c.ttl {
		catalog := c.catalog
		c.mu.Unlock()
		return catalog, nil
	}
	gen := c.gen
	c.mu.Unlock()

	catalog, err := c.source.Load(ctx)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	// An Invalidate or a newer load got in first; serve this result to the
	// caller but keep it out of the cache.
	if c.gen == gen {
		c.catalog = catalog
		c.loadedAt = now
		c.loaded = true
		c.gen++
	}
	c.mu.Unlock()

	return catalog, nil
}

// Invalidate makes the next Get reload from the source.
func (c *CatalogCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.catalog = nil
	c.loaded = false
	c.loadedAt = time.Time{}
	c.gen++
}

// LoadedAt reports when the catalog was last loaded.
func (c *CatalogCache) LoadedAt() (time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loadedAt, c.loaded
}
