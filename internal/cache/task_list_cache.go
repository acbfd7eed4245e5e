package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mpetrie/taskboard-api/internal/platform/logger"
	"github.com/mpetrie/taskboard-api/internal/store"
	"github.com/vmihailenco/msgpack/v5"
)

// listingKey is the single fixed key holding the current listing
// snapshot. Only one listing view is cached at a time; the fingerprint
// inside the envelope decides whether a read may use it.
const listingKey = "tasks:listing"

// listingEnvelope is the value stored under listingKey: a snapshot plus
// the fingerprint of the query it was computed for.
type listingEnvelope struct {
	Fingerprint uint64          `msgpack:"fp"`
	Snapshot    *store.TaskListing `msgpack:"snap"`
}

// TaskListCache is the cache-aside layer in front of the task store's
// listing query.
//
// The read path checks the cache first and falls back to the store on a
// miss; every task mutation must call Invalidate synchronously before its
// response is produced ("invalidate-on-write"). Concurrent mutations can
// race with readers repopulating the key; that is safe because a miss is
// always safe.
type TaskListCache struct {
	cache  Cache
	ttl    time.Duration
	logger *slog.Logger
}

// NewTaskListCache creates a TaskListCache over the given backend with
// the given snapshot expiry.
func NewTaskListCache(cache Cache, ttl time.Duration, log *slog.Logger) *TaskListCache {
	if log == nil {
		log = slog.Default()
	}
	return &TaskListCache{
		cache:  cache,
		ttl:    ttl,
		logger: log.With(slog.String("component", "task_list_cache")),
	}
}

// Get returns the cached snapshot if one exists and it was computed for
// the given query. Returns ErrCacheMiss when the key is absent or the
// cached view belongs to a different filter/sort/pagination tuple.
func (c *TaskListCache) Get(ctx context.Context, query store.TaskQuery) (*store.TaskListing, error) {
	log := logger.FromContextOrDefault(ctx, c.logger)

	raw, err := c.cache.Get(ctx, listingKey)
	if err != nil {
		if errors.Is(err, ErrCacheMiss) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("failed to read listing cache: %w", err)
	}

	var envelope listingEnvelope
	if err := msgpack.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("failed to decode listing cache entry: %w", err)
	}

	if envelope.Fingerprint != QueryFingerprint(query) {
		// Cached view was computed for different parameters; serving it
		// would answer the wrong question.
		log.Debug("listing cache fingerprint mismatch, treating as miss")
		return nil, ErrCacheMiss
	}

	log.Debug("listing cache hit")
	return envelope.Snapshot, nil
}

// Put stores the snapshot as the current cached view for the given query,
// overwriting any existing value.
func (c *TaskListCache) Put(ctx context.Context, query store.TaskQuery, snapshot *store.TaskListing) error {
	envelope := listingEnvelope{
		Fingerprint: QueryFingerprint(query),
		Snapshot:    snapshot,
	}

	raw, err := msgpack.Marshal(&envelope)
	if err != nil {
		return fmt.Errorf("failed to encode listing snapshot: %w", err)
	}

	if err := c.cache.Set(ctx, listingKey, raw, c.ttl); err != nil {
		return fmt.Errorf("failed to write listing cache: %w", err)
	}
	return nil
}

// Invalidate unconditionally deletes the cached listing. It is idempotent
// and must be called as part of every task mutation, before the
// mutation's response is produced.
func (c *TaskListCache) Invalidate(ctx context.Context) error {
	if err := c.cache.Delete(ctx, listingKey); err != nil {
		return fmt.Errorf("failed to invalidate listing cache: %w", err)
	}
	return nil
}
