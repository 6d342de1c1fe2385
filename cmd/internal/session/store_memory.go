package session

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

// InMemoryStore is the dev and test fallback when no database is configured.
// Every Get returns a deep copy so readers never observe in-flight writes.
type InMemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewInMemoryStore constructs an in-memory Store implementation.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{sessions: make(map[string]*Session)}
}

// Close closes the store (noop for in-memory).
func (s *InMemoryStore) Close() error { return nil }

// Create stores a new session aggregate.
func (s *InMemoryStore) Create(ctx context.Context, sess *Session) error {
	if sess == nil || sess.ID == "" {
		return errors.New("invalid session")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[sess.ID]; ok {
		return errors.New("duplicate session id")
	}
	s.sessions[sess.ID] = sess.Clone()
	return nil
}

// Get returns a snapshot of the session or ErrNotFound.
func (s *InMemoryStore) Get(ctx context.Context, id string) (*Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return sess.Clone(), nil
}

// Update replaces the stored aggregate.
func (s *InMemoryStore) Update(ctx context.Context, sess *Session) error {
	if sess == nil || sess.ID == "" {
		return errors.New("invalid session")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[sess.ID]; !ok {
		return ErrNotFound
	}
	s.sessions[sess.ID] = sess.Clone()
	return nil
}

// Delete removes the session if present.
func (s *InMemoryStore) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[id]; !ok {
		return ErrNotFound
	}
	delete(s.sessions, id)
	return nil
}

// ListFor returns summaries of sessions involving identity, newest first.
func (s *InMemoryStore) ListFor(ctx context.Context, identity string) ([]Summary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Summary
	for _, sess := range s.sessions {
		if sess.Involves(identity) {
			out = append(out, sess.Summary())
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// Sweep removes sessions created before cutoff, regardless of status.
func (s *InMemoryStore) Sweep(ctx context.Context, cutoff time.Time) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, sess := range s.sessions {
		if sess.CreatedAt.Before(cutoff) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed, nil
}
