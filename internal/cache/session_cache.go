package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// sessionKeyPrefix namespaces the per-user current-token entries.
const sessionKeyPrefix = "session:token:"

// SessionCache maps a user ID to that user's currently valid session
// token. At most one live token per user is honored at a time: saving a
// new token overwrites the previous one, so the latest login wins and any
// earlier session is silently superseded. Deleting the entry forces the
// user to log in again (server-side forced logout).
type SessionCache struct {
	cache Cache
	ttl   time.Duration
}

// NewSessionCache creates a SessionCache over the given backend. The ttl
// should match the session token lifetime so the cache entry and the
// token expire together.
func NewSessionCache(cache Cache, ttl time.Duration) *SessionCache {
	return &SessionCache{
		cache: cache,
		ttl:   ttl,
	}
}

// Save records token as the user's current session token, overwriting any
// prior token for that user.
func (s *SessionCache) Save(ctx context.Context, userID uuid.UUID, token string) error {
	if err := s.cache.Set(ctx, sessionKey(userID), []byte(token), s.ttl); err != nil {
		return fmt.Errorf("failed to save session token: %w", err)
	}
	return nil
}

// Get returns the user's current session token, or ErrCacheMiss if the
// user has no live session.
func (s *SessionCache) Get(ctx context.Context, userID uuid.UUID) (string, error) {
	value, err := s.cache.Get(ctx, sessionKey(userID))
	if err != nil {
		return "", err
	}
	return string(value), nil
}

// Delete removes the user's session token, invalidating the session
// immediately. Deleting an absent entry is a no-op.
func (s *SessionCache) Delete(ctx context.Context, userID uuid.UUID) error {
	return s.cache.Delete(ctx, sessionKey(userID))
}

func sessionKey(userID uuid.UUID) string {
	return sessionKeyPrefix + userID.String()
}
