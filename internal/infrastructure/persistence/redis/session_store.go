package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/travy/admin-hub/internal/domain/session"
	"github.com/travy/admin-hub/internal/domain/shared"
)

// PrefixSession is the key segment for sessions.
const PrefixSession = "session"

// SessionStore implements session.Store on top of Cache.
// Expiry is delegated to Redis key TTLs.
type SessionStore struct {
	cache *Cache
}

// NewSessionStore creates a session store.
func NewSessionStore(cache *Cache) *SessionStore {
	return &SessionStore{cache: cache}
}

// SessionKey returns the Redis key for a session id.
func (s *SessionStore) SessionKey(id string) string {
	return s.cache.Key(PrefixSession, id)
}

// Get implements session.Store.
func (s *SessionStore) Get(ctx context.Context, id string) (*session.Session, error) {
	if id == "" {
		return nil, shared.ErrSessionNotFound
	}

	var sess session.Session
	if err := s.cache.Get(ctx, s.SessionKey(id), &sess); err != nil {
		if errors.Is(err, ErrCacheMiss) {
			return nil, shared.ErrSessionNotFound
		}
		return nil, shared.WrapError("session", "Get", shared.ErrServiceUnavailable, "session store unavailable", err)
	}
	return &sess, nil
}

// Set implements session.Store. A non-positive ttl stores without expiry.
func (s *SessionStore) Set(ctx context.Context, sess *session.Session, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	if err := s.cache.Set(ctx, s.SessionKey(sess.ID), sess, ttl); err != nil {
		return shared.WrapError("session", "Set", shared.ErrServiceUnavailable,
			fmt.Sprintf("store session %s", sess.ID), err)
	}
	return nil
}

// Clear implements session.Store.
func (s *SessionStore) Clear(ctx context.Context, id string) error {
	if err := s.cache.Delete(ctx, s.SessionKey(id)); err != nil {
		return shared.WrapError("session", "Clear", shared.ErrServiceUnavailable, "session store unavailable", err)
	}
	return nil
}
