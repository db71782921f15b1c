package session

import (
	"sync"
	"time"

	"github.com/schedbot/schedbot/core"
)

// InMemoryStore is a volatile SessionStore implementation storing sessions in
// a process local map. It is safe for concurrent access. Each returned
// session is cloned to prevent external mutation of internal state.
//
// With a TTL configured, a background janitor evicts sessions whose last
// update is older than the TTL. Without one, sessions live for the process
// lifetime.
type InMemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*core.Session
	ttl      time.Duration
	done     chan struct{}
	stopOnce sync.Once
}

// InMemoryOptions configure an InMemoryStore.
type InMemoryOptions struct {
	// TTL evicts sessions idle longer than this. Zero disables eviction.
	TTL time.Duration

	// SweepInterval controls how often the janitor scans for expired
	// sessions.
	SweepInterval time.Duration
}

// NewInMemoryStore constructs an empty in-memory session store.
func NewInMemoryStore(optFns ...func(o *InMemoryOptions)) *InMemoryStore {
	opts := InMemoryOptions{
		SweepInterval: time.Minute,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	s := &InMemoryStore{
		sessions: make(map[string]*core.Session),
		ttl:      opts.TTL,
		done:     make(chan struct{}),
	}
	if s.ttl > 0 {
		go s.janitor(opts.SweepInterval)
	}
	return s
}

// Get returns an existing session (clone) or creates a new one lazily.
func (s *InMemoryStore) Get(sessionID string) (*core.Session, error) {
	s.mu.RLock()
	if sess, ok := s.sessions[sessionID]; ok {
		defer s.mu.RUnlock()
		return sess.Clone(), nil
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getOrCreateLocked(sessionID).Clone(), nil
}

// AppendTurn adds a turn to an existing or newly created session.
func (s *InMemoryStore) AppendTurn(sessionID string, t core.Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.getOrCreateLocked(sessionID).AddTurn(t)
	return nil
}

// Len returns the number of live sessions.
func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Close stops the eviction janitor. Safe to call multiple times.
func (s *InMemoryStore) Close() error {
	s.stopOnce.Do(func() { close(s.done) })
	return nil
}

// getOrCreateLocked returns the stored session for the id, allocating one if
// needed; caller must hold the write lock.
func (s *InMemoryStore) getOrCreateLocked(sessionID string) *core.Session {
	sess, ok := s.sessions[sessionID]
	if !ok {
		sess = core.NewSession(sessionID)
		s.sessions[sessionID] = sess
	}
	return sess
}

func (s *InMemoryStore) janitor(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case now := <-ticker.C:
			s.evictExpired(now)
		}
	}
}

func (s *InMemoryStore) evictExpired(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, sess := range s.sessions {
		if now.Sub(sess.LastUpdated()) > s.ttl {
			delete(s.sessions, id)
		}
	}
}
