package geocode

import (
	"context"
	"crypto/sha256"
	"fmt"
	"sync"
	"time"

	"github.com/sells-group/addrmap/internal/model"
)

// CacheEntry is a cached provider answer for one normalized address. Only
// matches and confirmed non-matches are cached; transport and credential
// failures never are.
type CacheEntry struct {
	Matched   bool
	Latitude  float64
	Longitude float64
	Dong      string
	Refined   string
	Kind      model.Kind
	CachedAt  time.Time
}

// Cache stores lookups keyed by CacheKey. Get returns (nil, nil) on a miss.
type Cache interface {
	Get(ctx context.Context, key string) (*CacheEntry, error)
	Put(ctx context.Context, key string, e CacheEntry) error
}

// CacheKey returns the SHA-256 hex digest of a normalized address.
func CacheKey(normalized string) string {
	h := sha256.Sum256([]byte(normalized))
	return fmt.Sprintf("%x", h)
}

func entryFromResult(res *model.GeocodeResult) CacheEntry {
	return CacheEntry{
		Matched:   true,
		Latitude:  res.Latitude,
		Longitude: res.Longitude,
		Dong:      res.Dong,
		Refined:   res.Refined,
		Kind:      res.Kind,
	}
}

func (e *CacheEntry) result(addr string) *model.GeocodeResult {
	return &model.GeocodeResult{
		Latitude:  e.Latitude,
		Longitude: e.Longitude,
		Dong:      e.Dong,
		Refined:   e.Refined,
		Address:   addr,
		Kind:      e.Kind,
	}
}

// MemoryCache is an in-process Cache with an optional TTL.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]CacheEntry
	ttl     time.Duration

	// nowFunc allows test injection of time.
	nowFunc func() time.Time
}

// NewMemoryCache creates a MemoryCache. A ttl of zero keeps entries forever.
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]CacheEntry),
		ttl:     ttl,
		nowFunc: time.Now,
	}
}

// Get implements Cache.
func (c *MemoryCache) Get(_ context.Context, key string) (*CacheEntry, error) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	if c.ttl > 0 && c.nowFunc().Sub(e.CachedAt) > c.ttl {
		c.evict(key, e.CachedAt)
		return nil, nil
	}
	return &e, nil
}

// evict removes key only if it still holds the entry cached at seen. A Put
// that landed after the read is kept.
func (c *MemoryCache) evict(key string, seen time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cur, ok := c.entries[key]; ok && cur.CachedAt.Equal(seen) {
		delete(c.entries, key)
	}
}

// Put implements Cache.
func (c *MemoryCache) Put(_ context.Context, key string, e CacheEntry) error {
	e.CachedAt = c.nowFunc()
	c.mu.Lock()
	c.entries[key] = e
	c.mu.Unlock()
	return nil
}

// Len returns the number of cached entries, expired ones included.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
