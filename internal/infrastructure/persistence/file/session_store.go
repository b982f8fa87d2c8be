// Package file persists adminctl sessions as YAML in the user's config dir.
package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/travy/admin-hub/internal/domain/session"
	"github.com/travy/admin-hub/internal/domain/shared"
)

// DefaultFileName is the session file inside the adminctl config dir.
const DefaultFileName = "session.yaml"

// document is the on-disk layout.
type document struct {
	Sessions map[string]storedSession `yaml:"sessions"`
}

type storedSession struct {
	Session   session.Session `yaml:"session"`
	ExpiresAt time.Time       `yaml:"store_expires_at,omitempty"`
}

// SessionStore implements session.Store with a single YAML file.
// The file is rewritten atomically and readable only by its owner.
type SessionStore struct {
	mu   sync.Mutex
	path string
	now  func() time.Time
}

// DefaultPath returns <user config dir>/admin-hub/session.yaml.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve config dir: %w", err)
	}
	return filepath.Join(dir, "admin-hub", DefaultFileName), nil
}

// NewSessionStore creates a store at path. now may be nil.
func NewSessionStore(path string, now func() time.Time) *SessionStore {
	if now == nil {
		now = time.Now
	}
	return &SessionStore{path: path, now: now}
}

// Path returns the backing file path.
func (s *SessionStore) Path() string {
	return s.path
}

// Get implements session.Store.
func (s *SessionStore) Get(_ context.Context, id string) (*session.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	stored, ok := doc.Sessions[id]
	if !ok || (!stored.ExpiresAt.IsZero() && s.now().After(stored.ExpiresAt)) {
		return nil, shared.ErrSessionNotFound
	}
	sess := stored.Session
	return &sess, nil
}

// Set implements session.Store.
func (s *SessionStore) Set(_ context.Context, sess *session.Session, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return err
	}
	stored := storedSession{Session: *sess}
	if ttl > 0 {
		stored.ExpiresAt = s.now().Add(ttl)
	}
	doc.Sessions[sess.ID] = stored
	return s.save(doc)
}

// Clear implements session.Store.
func (s *SessionStore) Clear(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := doc.Sessions[id]; !ok {
		return nil
	}
	delete(doc.Sessions, id)
	return s.save(doc)
}

func (s *SessionStore) load() (*document, error) {
	doc := &document{Sessions: make(map[string]storedSession)}

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return doc, nil
	}
	if err != nil {
		return nil, shared.WrapError("session", "Load", shared.ErrServiceUnavailable, "read session file", err)
	}
	if err := yaml.Unmarshal(data, doc); err != nil {
		return nil, shared.WrapError("session", "Load", shared.ErrInvalidFormat, "corrupt session file "+s.path, err)
	}
	if doc.Sessions == nil {
		doc.Sessions = make(map[string]storedSession)
	}
	return doc, nil
}

func (s *SessionStore) save(doc *document) error {
	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal sessions: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return shared.WrapError("session", "Save", shared.ErrServiceUnavailable, "create session dir", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".session-*.yaml")
	if err != nil {
		return shared.WrapError("session", "Save", shared.ErrServiceUnavailable, "create temp file", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return shared.WrapError("session", "Save", shared.ErrServiceUnavailable, "write session file", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return shared.WrapError("session", "Save", shared.ErrServiceUnavailable, "chmod session file", err)
	}
	if err := tmp.Close(); err != nil {
		return shared.WrapError("session", "Save", shared.ErrServiceUnavailable, "close session file", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return shared.WrapError("session", "Save", shared.ErrServiceUnavailable, "replace session file", err)
	}
	return nil
}
