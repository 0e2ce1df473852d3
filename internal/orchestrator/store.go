// Package orchestrator holds the coordinator turn algorithm, the sequential
// specialist pipeline, and the in-memory session store that ties them
// together.
package orchestrator

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/loanintake/intake-engine/internal/model"
)

// Store is a thread-safe in-memory registry of ConversationSessions with
// idle-TTL eviction. Per-session operations serialize through the
// session's own lock (model.ConversationSession.Lock/Unlock); the coarse
// RWMutex here only ever guards the map itself, never a suspending
// operation.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*model.ConversationSession

	cleanupInterval time.Duration
	idleTimeout     time.Duration
	stop            chan struct{}
	stopOnce        sync.Once
}

// NewStore creates an empty store. Start must be called separately to run
// the periodic eviction sweep; a zero-value idleTimeout/cleanupInterval
// pair is valid — Cleanup can still be invoked directly (e.g. from the
// admin endpoint) without a background loop running.
func NewStore(idleTimeout, cleanupInterval time.Duration) *Store {
	return &Store{
		sessions:        make(map[string]*model.ConversationSession),
		idleTimeout:     idleTimeout,
		cleanupInterval: cleanupInterval,
		stop:            make(chan struct{}),
	}
}

// GetOrCreate resolves a session: an empty id creates a
// fresh session with a generated urlsafe id; a known id returns the
// existing session; an unknown non-empty id creates a new session under
// that id (never a 404 at this layer — SessionNotFound is an admin-path-only
// error).
func (s *Store) GetOrCreate(id string) *model.ConversationSession {
	now := time.Now()

	if id == "" {
		id = uuid.NewString()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[id]; ok {
		return sess
	}
	sess := model.NewConversationSession(id, now)
	s.sessions[id] = sess
	return sess
}

// Get returns the session for id, or ok=false if none exists.
func (s *Store) Get(id string) (*model.ConversationSession, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	return sess, ok
}

// Delete removes a session unconditionally, returning whether it existed.
func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return false
	}
	delete(s.sessions, id)
	return true
}

// List returns a snapshot of every session, sorted by nothing in
// particular — the admin endpoint is not order-sensitive.
func (s *Store) List() []model.Snapshot {
	s.mu.RLock()
	ids := make([]*model.ConversationSession, 0, len(s.sessions))
	for _, sess := range s.sessions {
		ids = append(ids, sess)
	}
	s.mu.RUnlock()

	out := make([]model.Snapshot, 0, len(ids))
	for _, sess := range ids {
		sess.Lock()
		out = append(out, sess.ToSnapshot())
		sess.Unlock()
	}
	return out
}

// Count returns the number of active sessions, for the health endpoint.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Cleanup removes every session whose last activity is older than
// now−idleCutoff, returning the ids removed. The cutoff is always computed
// by subtracting a duration from the current instant — never by subtracting
// from the Hour() field of the current instant, which silently wraps at
// midnight and evicts nothing on most days.
//
// The scan runs without holding the map lock across any per-session access:
// a snapshot of every session is taken under RLock, each one is then checked
// under its own session lock, and an expired one is deleted under a brief
// write Lock of the map.
func (s *Store) Cleanup(idleCutoff time.Duration) []string {
	cutoff := time.Now().Add(-idleCutoff)

	s.mu.RLock()
	candidates := make([]*model.ConversationSession, 0)
	for _, sess := range s.sessions {
		candidates = append(candidates, sess)
	}
	s.mu.RUnlock()

	var removed []string
	for _, sess := range candidates {
		sess.Lock()
		expired := sess.LastActivity.Before(cutoff)
		id := sess.ID
		sess.Unlock()
		if !expired {
			continue
		}
		s.mu.Lock()
		delete(s.sessions, id)
		s.mu.Unlock()
		removed = append(removed, id)
	}
	return removed
}

// Start launches the periodic eviction goroutine. A zero or negative
// cleanupInterval disables it (no goroutine is started).
func (s *Store) Start() {
	if s.cleanupInterval <= 0 {
		return
	}
	go s.cleanupLoop()
}

func (s *Store) cleanupLoop() {
	ticker := time.NewTicker(s.cleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.Cleanup(s.idleTimeout)
		}
	}
}

// Stop ends the background eviction goroutine. Safe to call multiple times
// or when Start was never called.
func (s *Store) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
}
