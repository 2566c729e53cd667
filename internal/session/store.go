package session

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"

	hcotel "github.com/SaketSinghRajput/honeycomb/internal/otel"
)

var tracer = hcotel.Tracer("github.com/SaketSinghRajput/honeycomb/internal/session")

// Store is a concurrency-safe in-memory session registry. The store lock
// only guards the map; turn processing serializes on the per-session lock,
// so sessions with different IDs proceed fully in parallel.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewStore creates an empty session store.
func NewStore() *Store {
	return &Store{sessions: make(map[string]*Session)}
}

// Acquire returns the session for id locked for exclusive use, creating it
// if absent. A session swept between lookup and lock is detected through
// its removed flag and the lookup retried, so callers never mutate state
// that has already left the store.
func (s *Store) Acquire(ctx context.Context, id string) *Session {
	for {
		sess := s.getOrCreate(ctx, id)
		sess.mu.Lock()
		if sess.removed {
			sess.mu.Unlock()
			continue
		}
		return sess
	}
}

// AcquireExisting is Acquire without the create: it locks the session for
// id or reports that no live session exists.
func (s *Store) AcquireExisting(id string) (*Session, bool) {
	for {
		s.mu.RLock()
		sess, ok := s.sessions[id]
		s.mu.RUnlock()
		if !ok {
			return nil, false
		}
		sess.mu.Lock()
		if sess.removed {
			sess.mu.Unlock()
			continue
		}
		return sess, true
	}
}

// View returns a consistent snapshot of an existing session without
// creating one. It briefly takes the session lock, so it waits out an
// in-flight turn.
func (s *Store) View(id string) (*Snapshot, bool) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.removed {
		return nil, false
	}
	snap := sess.snapshotLocked()
	return &snap, true
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// getOrCreate resolves or registers the session for id. It never touches
// the per-session lock while holding the store lock.
func (s *Store) getOrCreate(ctx context.Context, id string) *Session {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if ok {
		return sess
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[id]; ok {
		return sess
	}

	now := time.Now().UTC()
	sess = &Session{ID: id, CreatedAt: now, LastActive: now}
	s.sessions[id] = sess
	sessionsCreated.Add(ctx, 1)
	activeGauge.Record(ctx, int64(len(s.sessions)))
	return sess
}

// SweepExpired removes sessions whose last activity is at least maxAge in
// the past and returns how many were removed. A maxAge of zero sweeps
// everything idle, which is the shutdown path. Sessions with an in-flight
// turn hold their lock, so TryLock failing means live and they are
// skipped; they become sweepable again on the next pass.
func (s *Store) SweepExpired(ctx context.Context, maxAge time.Duration) int {
	ctx, span := tracer.Start(ctx, "session.sweep")
	defer span.End()

	cutoff := time.Now().UTC().Add(-maxAge)

	s.mu.RLock()
	candidates := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		candidates = append(candidates, sess)
	}
	s.mu.RUnlock()

	removed := 0
	for _, sess := range candidates {
		if !sess.mu.TryLock() {
			continue
		}
		if sess.removed || sess.LastActive.After(cutoff) {
			sess.mu.Unlock()
			continue
		}
		sess.removed = true
		s.mu.Lock()
		delete(s.sessions, sess.ID)
		s.mu.Unlock()
		sess.mu.Unlock()
		removed++
	}

	if removed > 0 {
		sessionsSwept.Add(ctx, int64(removed))
	}
	s.mu.RLock()
	activeGauge.Record(ctx, int64(len(s.sessions)))
	s.mu.RUnlock()

	span.SetAttributes(
		attribute.Int("session.swept", removed),
		attribute.Int("session.remaining", s.Len()),
	)
	return removed
}
