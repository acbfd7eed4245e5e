package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/mpetrie/taskboard-api/internal/cache"
)

// MemoryCache implements cache.Cache with an in-process map for testing.
// TTLs are recorded but never enforced; tests that care about expiry
// delete keys explicitly.
type MemoryCache struct {
	mu     sync.Mutex
	values map[string][]byte
	ttls   map[string]time.Duration

	// Custom behavior functions
	GetFn    func(ctx context.Context, key string) ([]byte, error)
	SetFn    func(ctx context.Context, key string, value []byte, ttl time.Duration) error
	DeleteFn func(ctx context.Context, key string) error

	// Call tracking for verification
	GetCount    int
	SetCount    int
	DeleteCount int
}

// NewMemoryCache creates an empty MemoryCache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		values: make(map[string][]byte),
		ttls:   make(map[string]time.Duration),
	}
}

// Get implements the cache.Cache interface
func (c *MemoryCache) Get(ctx context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	c.GetCount++
	c.mu.Unlock()

	if c.GetFn != nil {
		return c.GetFn(ctx, key)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	value, ok := c.values[key]
	if !ok {
		return nil, cache.ErrCacheMiss
	}
	return value, nil
}

// Set implements the cache.Cache interface
func (c *MemoryCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	c.SetCount++
	c.mu.Unlock()

	if c.SetFn != nil {
		return c.SetFn(ctx, key, value, ttl)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[key] = value
	c.ttls[key] = ttl
	return nil
}

// Delete implements the cache.Cache interface
func (c *MemoryCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	c.DeleteCount++
	c.mu.Unlock()

	if c.DeleteFn != nil {
		return c.DeleteFn(ctx, key)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.values, key)
	delete(c.ttls, key)
	return nil
}

// Has reports whether key currently holds a value.
func (c *MemoryCache) Has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.values[key]
	return ok
}

// TTLFor returns the ttl recorded by the last Set for key.
func (c *MemoryCache) TTLFor(key string) time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ttls[key]
}
