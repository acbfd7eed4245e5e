// Package cache defines the shared-cache collaborator interface and the
// two cache protocols built on it: the per-user session token cache and
// the task listing cache. Both are process-external shared state and are
// injected into the components that need them, never held as globals, so
// the access gate and the task service stay testable with in-memory
// fakes.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrCacheMiss is returned by Get when no value exists for the key.
// A miss is never an error condition for callers; it only signals that
// the source of truth must be consulted.
var ErrCacheMiss = errors.New("cache: key not found")

// Cache is the minimal contract required from a shared cache backend.
// Each individual operation is assumed atomic; no multi-key transactions
// are required or assumed.
type Cache interface {
	// Get returns the value stored under key, or ErrCacheMiss.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key, overwriting any existing value.
	// A zero ttl means no expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes the key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
}
