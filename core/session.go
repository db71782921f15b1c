package core

import (
	"sync"
	"time"
)

// Session is the conversational context for one opaque session id. It owns an
// ordered, append-only sequence of turns; insertion order is chronology.
//
// Contract:
//   - AddTurn updates the Updated timestamp
//   - Turns returns a defensive copy to avoid external mutation
//   - Clone performs deep copies for safe divergence
type Session struct {
	ID      string    `json:"id"`
	History []Turn    `json:"history"`
	Created time.Time `json:"created"`
	Updated time.Time `json:"updated"`
	mu      sync.RWMutex
}

// NewSession creates an empty session with the given id.
func NewSession(id string) *Session {
	now := time.Now().UTC()
	return &Session{ID: id, History: []Turn{}, Created: now, Updated: now}
}

// AddTurn appends a turn to the history updating the Updated timestamp.
func (s *Session) AddTurn(t Turn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.History = append(s.History, t)
	s.Updated = time.Now().UTC()
}

// Turns returns a defensive copy of the full turn slice.
func (s *Session) Turns() []Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	turns := make([]Turn, len(s.History))
	copy(turns, s.History)
	return turns
}

// Len returns the number of recorded turns.
func (s *Session) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.History)
}

// LastUpdated returns the time of the most recent append.
func (s *Session) LastUpdated() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Updated
}

// Clone returns a deep copy of the session safe for independent mutation.
func (s *Session) Clone() *Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	clone := &Session{ID: s.ID, History: make([]Turn, len(s.History)), Created: s.Created, Updated: s.Updated}
	copy(clone.History, s.History)
	return clone
}

// SessionStore persists sessions and their append-only turn history. An
// unknown session id is treated as a new session, never an error.
type SessionStore interface {
	// Get returns the session for id, creating an empty one lazily.
	Get(id string) (*Session, error)

	// AppendTurn adds a turn to the session, creating it if needed.
	AppendTurn(id string, t Turn) error
}
