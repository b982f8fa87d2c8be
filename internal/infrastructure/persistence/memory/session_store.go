// Package memory provides an in-process session store for tests and
// single-instance development runs.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/travy/admin-hub/internal/domain/session"
	"github.com/travy/admin-hub/internal/domain/shared"
)

type entry struct {
	session   session.Session
	expiresAt time.Time
}

// SessionStore keeps sessions in a map guarded by a mutex.
type SessionStore struct {
	mu      sync.RWMutex
	entries map[string]entry
	now     func() time.Time
}

// NewSessionStore creates an empty store. now may be nil.
func NewSessionStore(now func() time.Time) *SessionStore {
	if now == nil {
		now = time.Now
	}
	return &SessionStore{
		entries: make(map[string]entry),
		now:     now,
	}
}

// Get implements session.Store.
func (s *SessionStore) Get(_ context.Context, id string) (*session.Session, error) {
	s.mu.RLock()
	e, ok := s.entries[id]
	s.mu.RUnlock()

	if !ok || (!e.expiresAt.IsZero() && s.now().After(e.expiresAt)) {
		return nil, shared.ErrSessionNotFound
	}
	cp := e.session
	return &cp, nil
}

// Set implements session.Store.
func (s *SessionStore) Set(_ context.Context, sess *session.Session, ttl time.Duration) error {
	e := entry{session: *sess}
	if ttl > 0 {
		e.expiresAt = s.now().Add(ttl)
	}

	s.mu.Lock()
	s.entries[sess.ID] = e
	s.mu.Unlock()
	return nil
}

// Clear implements session.Store.
func (s *SessionStore) Clear(_ context.Context, id string) error {
	s.mu.Lock()
	delete(s.entries, id)
	s.mu.Unlock()
	return nil
}

// Len returns the number of stored sessions, expired ones included.
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
