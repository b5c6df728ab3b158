package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/loopworks/ironloop/workflow"
)

// MemoryStore is an in-process session store. It hands out deep copies so
// callers cannot mutate shared state behind the store's back.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*workflow.Session
}

// NewMemoryStore creates an empty in-memory session store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*workflow.Session),
	}
}

// Get retrieves a session by ID.
func (s *MemoryStore) Get(_ context.Context, sessionID string) (*workflow.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", workflow.ErrSessionNotFound, sessionID)
	}
	return session.Clone(), nil
}

// Put stores a session, overwriting any previous record.
func (s *MemoryStore) Put(_ context.Context, session *workflow.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[session.SessionID] = session.Clone()
	return nil
}

// Len returns the number of stored sessions.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
