// Package rediscache implements the cache.Cache interface on top of a
// Redis instance using the go-redis client.
package rediscache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mpetrie/taskboard-api/internal/cache"
	"github.com/mpetrie/taskboard-api/internal/config"
	"github.com/redis/go-redis/v9"
)

// Store is a Redis-backed cache.Cache.
type Store struct {
	client *redis.Client
}

// Ensure Store implements cache.Cache
var _ cache.Cache = (*Store)(nil)

// New connects to Redis using the given configuration and verifies the
// connection with a ping.
func New(ctx context.Context, cfg config.RedisConfig) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return &Store{client: client}, nil
}

// Get implements cache.Cache.Get.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, cache.ErrCacheMiss
		}
		return nil, fmt.Errorf("redis get %q: %w", key, err)
	}
	return value, nil
}

// Set implements cache.Cache.Set.
func (s *Store) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %q: %w", key, err)
	}
	return nil
}

// Delete implements cache.Cache.Delete.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis del %q: %w", key, err)
	}
	return nil
}

// Close releases the underlying client connections.
func (s *Store) Close() error {
	return s.client.Close()
}
