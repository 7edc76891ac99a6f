// Copyright 2026 The Tether Authors
// SPDX-License-Identifier: Apache-2.0

package bridge

import "sync"

// Registry owns the bidirectional maps between the three identifier
// spaces (connection, session, thread) plus the per-session card
// reference. It is pure in-memory state: every operation is O(1) and
// total — absence is a valid outcome, not an error.
//
// A single mutex guards all four maps so that a lookup never observes
// a half-applied binding. No other component touches these maps
// directly.
type Registry struct {
	mu sync.Mutex

	sessionToConn   map[string]string
	connToSession   map[string]string
	sessionToThread map[string]int64
	threadToSession map[int64]string
	sessionToCard   map[string]CardRef
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		sessionToConn:   make(map[string]string),
		connToSession:   make(map[string]string),
		sessionToThread: make(map[string]int64),
		threadToSession: make(map[int64]string),
		sessionToCard:   make(map[string]CardRef),
	}
}

// BindConnection binds a session to its current connection, latest
// wins. A prior connection's reverse entry is left in place — it is
// evicted when that connection disconnects (UnbindConnection checks
// it no longer owns the session).
func (r *Registry) BindConnection(sessionID, connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessionToConn[sessionID] = connID
	r.connToSession[connID] = sessionID
}

// SessionByConnection resolves the session a connection belongs to.
func (r *Registry) SessionByConnection(connID string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sessionID, ok := r.connToSession[connID]
	return sessionID, ok
}

// ConnectionBySession resolves a session's live connection.
func (r *Registry) ConnectionBySession(sessionID string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	connID, ok := r.sessionToConn[sessionID]
	return connID, ok
}

// BindThread records the session's workspace thread in both
// directions. Called at most once per session; the lifecycle manager
// guards against rebinding by checking ThreadBySession first.
func (r *Registry) BindThread(sessionID string, threadID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessionToThread[sessionID] = threadID
	r.threadToSession[threadID] = sessionID
}

// ThreadBySession resolves a session's thread.
func (r *Registry) ThreadBySession(sessionID string) (int64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	threadID, ok := r.sessionToThread[sessionID]
	return threadID, ok
}

// SessionByThread resolves which session owns a thread.
func (r *Registry) SessionByThread(threadID int64) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sessionID, ok := r.threadToSession[threadID]
	return sessionID, ok
}

// SetCard stores the opaque edit handle for a session's summary card.
func (r *Registry) SetCard(sessionID string, ref CardRef) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessionToCard[sessionID] = ref
}

// Card retrieves a session's card reference.
func (r *Registry) Card(sessionID string) (CardRef, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ref, ok := r.sessionToCard[sessionID]
	return ref, ok
}

// UnbindConnection removes the connection↔session entries for a
// dropped connection. Session, thread, and card bindings survive so
// the visitor can reconnect and resume. If the session has already
// been rebound to a newer connection, the newer binding is preserved.
func (r *Registry) UnbindConnection(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if sessionID, ok := r.connToSession[connID]; ok {
		if r.sessionToConn[sessionID] == connID {
			delete(r.sessionToConn, sessionID)
		}
	}
	delete(r.connToSession, connID)
}

// ForgetSession drops the session→connection mapping only, so a
// closed session stops routing to a live connection. Thread and card
// mappings are intentionally retained: late agent activity in a
// closed thread must still be attributable.
func (r *Registry) ForgetSession(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessionToConn, sessionID)
}

// SessionInfo is a point-in-time view of one session's bindings, for
// the ops socket.
type SessionInfo struct {
	SessionID string `cbor:"session_id" json:"session_id"`
	ThreadID  int64  `cbor:"thread_id,omitempty" json:"thread_id,omitempty"`
	Connected bool   `cbor:"connected" json:"connected"`
	HasCard   bool   `cbor:"has_card" json:"has_card"`
}

// Sessions returns a snapshot of every session the registry knows
// about: any session with a thread, card, or live connection.
func (r *Registry) Sessions() []SessionInfo {
	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[string]bool)
	for sessionID := range r.sessionToThread {
		seen[sessionID] = true
	}
	for sessionID := range r.sessionToCard {
		seen[sessionID] = true
	}
	for sessionID := range r.sessionToConn {
		seen[sessionID] = true
	}

	infos := make([]SessionInfo, 0, len(seen))
	for sessionID := range seen {
		_, connected := r.sessionToConn[sessionID]
		_, hasCard := r.sessionToCard[sessionID]
		infos = append(infos, SessionInfo{
			SessionID: sessionID,
			ThreadID:  r.sessionToThread[sessionID],
			Connected: connected,
			HasCard:   hasCard,
		})
	}
	return infos
}
