package rag

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Session is the session-scoped state object passed into pipeline calls.
// The collected item batch is the only state that outlives a retrieval call:
// a later Select reuses it unchanged as the retrieval corpus.
type Session struct {
	ID         uuid.UUID
	CreatedAt  time.Time
	LastActive time.Time

	mu    sync.Mutex
	items []SearchResultItem
}

func NewSession() *Session {
	now := time.Now()
	return &Session{
		ID:         uuid.New(),
		CreatedAt:  now,
		LastActive: now,
	}
}

// SetItems replaces the collected batch with the result of a new collection.
func (s *Session) SetItems(items []SearchResultItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = items
	s.LastActive = time.Now()
}

// Items returns a copy of the collected batch.
func (s *Session) Items() []SearchResultItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.LastActive = time.Now()
	out := make([]SearchResultItem, len(s.items))
	copy(out, s.items)
	return out
}

// Reset discards the collected batch.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = nil
	s.LastActive = time.Now()
}
