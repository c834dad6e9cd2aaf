package session

import (
	"fmt"
	"sync"
	"time"
)

// Store defines pluggable session storage. MemoryStore is the default;
// RedisStore backs single-node deployments that want sessions to survive
// a gateway restart mid-engagement.
type Store interface {
	// Get retrieves a copy of a session by ID. Returns nil, nil if not found.
	Get(sessionID string) (*Session, error)

	// Update runs fn on the session under that session's lock, creating the
	// session lazily if absent. This is the linearization point for all
	// per-turn state: merge, counters, latches, and the escalation decision
	// all happen inside fn.
	Update(sessionID string, fn func(*Session)) error

	// Delete removes a session.
	Delete(sessionID string) error

	// Close releases background resources.
	Close()
}

// MemoryStore is the in-memory Store. Thread-safe, with TTL-based cleanup
// of idle sessions so the table does not grow without bound.
type MemoryStore struct {
	sessions map[string]*Session
	mu       sync.RWMutex
	locks    *keyedMutex

	maxAge     time.Duration // idle TTL before a session is dropped
	cleanupTTL time.Duration // cleanup sweep interval

	stopCleanup chan struct{}
	cleanupOnce sync.Once
}

// StoreOption is a functional option for configuring MemoryStore.
type StoreOption func(*MemoryStore)

// WithMaxAge sets the idle TTL for sessions before cleanup.
func WithMaxAge(d time.Duration) StoreOption {
	return func(s *MemoryStore) {
		s.maxAge = d
	}
}

// WithCleanupInterval sets how often the cleanup routine runs.
func WithCleanupInterval(d time.Duration) StoreOption {
	return func(s *MemoryStore) {
		s.cleanupTTL = d
	}
}

// NewMemoryStore creates an in-memory session store.
// An engagement is a bounded-duration workflow, so the default idle TTL is
// generous (24h) rather than aggressive.
func NewMemoryStore(opts ...StoreOption) *MemoryStore {
	s := &MemoryStore{
		sessions:    make(map[string]*Session),
		locks:       newKeyedMutex(),
		maxAge:      24 * time.Hour,
		cleanupTTL:  5 * time.Minute,
		stopCleanup: make(chan struct{}),
	}

	for _, opt := range opts {
		opt(s)
	}

	go s.cleanupLoop()

	return s
}

// Get retrieves a session copy by ID. Returns nil, nil if not found.
func (s *MemoryStore) Get(sessionID string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, nil // not found is not an error
	}

	// Stale sessions are treated as gone; actual removal happens in the
	// cleanup loop.
	if time.Since(sess.LastTurnAt) > s.maxAge {
		return nil, nil
	}

	return sess.Clone(), nil
}

// Update runs fn under the session's lock, creating the session if needed.
// fn operates on a working copy that is swapped in afterwards, so stored
// sessions are never mutated in place and Get never observes a half-applied
// turn.
func (s *MemoryStore) Update(sessionID string, fn func(*Session)) error {
	if sessionID == "" {
		return fmt.Errorf("session ID is required")
	}

	unlock := s.locks.Lock(sessionID)
	defer unlock()

	s.mu.RLock()
	stored, ok := s.sessions[sessionID]
	s.mu.RUnlock()

	var sess *Session
	if !ok || time.Since(stored.LastTurnAt) > s.maxAge {
		sess = newSession(sessionID)
	} else {
		sess = stored.Clone()
	}

	fn(sess)

	s.mu.Lock()
	s.sessions[sessionID] = sess
	s.mu.Unlock()
	return nil
}

// Delete removes a session.
func (s *MemoryStore) Delete(sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, sessionID)
	return nil
}

// Close stops the cleanup goroutine.
func (s *MemoryStore) Close() {
	s.cleanupOnce.Do(func() {
		close(s.stopCleanup)
	})
}

func (s *MemoryStore) cleanupLoop() {
	ticker := time.NewTicker(s.cleanupTTL)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.cleanup()
		case <-s.stopCleanup:
			return
		}
	}
}

func (s *MemoryStore) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for id, sess := range s.sessions {
		if now.Sub(sess.LastTurnAt) > s.maxAge {
			delete(s.sessions, id)
		}
	}
}

// Stats returns current store statistics.
func (s *MemoryStore) Stats() StoreStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := StoreStats{
		SessionCount: len(s.sessions),
	}

	for _, sess := range s.sessions {
		stats.TotalTurns += sess.MessageCount
		if sess.Detected {
			stats.DetectedCount++
		}
		if sess.CallbackSent {
			stats.ReportedCount++
		}
	}

	return stats
}

// StoreStats contains session store statistics.
type StoreStats struct {
	SessionCount  int `json:"session_count"`
	TotalTurns    int `json:"total_turns"`
	DetectedCount int `json:"detected_count"`
	ReportedCount int `json:"reported_count"`
}

// Ensure MemoryStore implements Store
var _ Store = (*MemoryStore)(nil)
