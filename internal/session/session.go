// Package session holds in-memory honeypot conversation state with
// per-session mutual exclusion. State is not persisted: a restart
// forgets live conversations, only emitted reports survive (in the
// archive).
package session

import (
	"sync"
	"time"

	"github.com/SaketSinghRajput/honeycomb/internal/intel"
)

// Exchange is one completed conversation turn: what the caller said and
// what the agent answered.
type Exchange struct {
	User      string `json:"user"`
	Assistant string `json:"assistant"`
}

// Session is the mutable state of one honeypot conversation. All fields
// after the guard are protected by the per-session lock: hold it via
// Store.Acquire or Store.AcquireExisting while reading or writing them.
type Session struct {
	mu      sync.Mutex
	removed bool

	ID           string
	History      []Exchange
	TurnCount    int
	Items        []intel.Item
	Terminated   bool
	CallbackSent bool
	CreatedAt    time.Time
	LastActive   time.Time
}

// Release unlocks a session obtained from Acquire or AcquireExisting.
func (sess *Session) Release() {
	sess.mu.Unlock()
}

// Touch updates the activity timestamp. Caller must hold the session lock.
func (sess *Session) Touch() {
	sess.LastActive = time.Now().UTC()
}

// Snapshot is a consistent read-only view of a session's counters.
type Snapshot struct {
	ID           string    `json:"session_id"`
	TurnCount    int       `json:"turn_count"`
	HistoryLen   int       `json:"history_length"`
	ItemCount    int       `json:"extracted_info_count"`
	Terminated   bool      `json:"terminated"`
	CallbackSent bool      `json:"callback_sent"`
	LastActive   time.Time `json:"last_active"`
}

// snapshotLocked builds a Snapshot. Caller must hold the session lock.
func (sess *Session) snapshotLocked() Snapshot {
	return Snapshot{
		ID:           sess.ID,
		TurnCount:    sess.TurnCount,
		HistoryLen:   len(sess.History),
		ItemCount:    len(sess.Items),
		Terminated:   sess.Terminated,
		CallbackSent: sess.CallbackSent,
		LastActive:   sess.LastActive,
	}
}
