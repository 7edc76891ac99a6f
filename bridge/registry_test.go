// Copyright 2026 The Tether Authors
// SPDX-License-Identifier: Apache-2.0

package bridge

import "testing"

func TestRegistryLatestConnectionWins(t *testing.T) {
	r := NewRegistry()
	r.BindConnection("sess-1", "conn-a")
	r.BindConnection("sess-1", "conn-b")

	if connID, _ := r.ConnectionBySession("sess-1"); connID != "conn-b" {
		t.Fatalf("ConnectionBySession = %q, want conn-b", connID)
	}
	// Both reverse entries resolve until the stale one disconnects.
	if sessionID, _ := r.SessionByConnection("conn-a"); sessionID != "sess-1" {
		t.Fatalf("SessionByConnection(conn-a) = %q, want sess-1", sessionID)
	}
	if sessionID, _ := r.SessionByConnection("conn-b"); sessionID != "sess-1" {
		t.Fatalf("SessionByConnection(conn-b) = %q, want sess-1", sessionID)
	}
}

func TestRegistryUnbindPreservesNewerBinding(t *testing.T) {
	r := NewRegistry()
	r.BindConnection("sess-1", "conn-a")
	r.BindConnection("sess-1", "conn-b")

	// The stale connection's teardown must not evict the rebound one.
	r.UnbindConnection("conn-a")

	if connID, ok := r.ConnectionBySession("sess-1"); !ok || connID != "conn-b" {
		t.Fatalf("ConnectionBySession = (%q, %v), want (conn-b, true)", connID, ok)
	}
	if _, ok := r.SessionByConnection("conn-a"); ok {
		t.Fatal("stale reverse entry survived UnbindConnection")
	}

	r.UnbindConnection("conn-b")
	if _, ok := r.ConnectionBySession("sess-1"); ok {
		t.Fatal("forward entry survived unbinding its own connection")
	}
}

func TestRegistryThreadBindings(t *testing.T) {
	r := NewRegistry()
	r.BindThread("sess-1", 42)

	if threadID, ok := r.ThreadBySession("sess-1"); !ok || threadID != 42 {
		t.Fatalf("ThreadBySession = (%d, %v), want (42, true)", threadID, ok)
	}
	if sessionID, ok := r.SessionByThread(42); !ok || sessionID != "sess-1" {
		t.Fatalf("SessionByThread = (%q, %v), want (sess-1, true)", sessionID, ok)
	}
	if _, ok := r.ThreadBySession("sess-2"); ok {
		t.Fatal("unknown session resolved a thread")
	}
}

func TestRegistryForgetSessionKeepsThread(t *testing.T) {
	r := NewRegistry()
	r.BindConnection("sess-1", "conn-a")
	r.BindThread("sess-1", 42)
	r.SetCard("sess-1", CardRef{ChatID: 1, MessageID: 7})

	r.ForgetSession("sess-1")

	if _, ok := r.ConnectionBySession("sess-1"); ok {
		t.Fatal("closed session still routes to a connection")
	}
	if _, ok := r.ThreadBySession("sess-1"); !ok {
		t.Fatal("thread binding did not survive ForgetSession")
	}
	if _, ok := r.Card("sess-1"); !ok {
		t.Fatal("card reference did not survive ForgetSession")
	}
}

func TestRegistrySessionsSnapshot(t *testing.T) {
	r := NewRegistry()
	r.BindConnection("sess-live", "conn-a")
	r.BindThread("sess-live", 42)
	r.SetCard("sess-live", CardRef{ChatID: 1, MessageID: 7})
	r.BindThread("sess-closed", 43)

	infos := r.Sessions()
	if len(infos) != 2 {
		t.Fatalf("Sessions returned %d entries, want 2", len(infos))
	}
	byID := make(map[string]SessionInfo, len(infos))
	for _, info := range infos {
		byID[info.SessionID] = info
	}

	live := byID["sess-live"]
	if !live.Connected || !live.HasCard || live.ThreadID != 42 {
		t.Fatalf("sess-live snapshot = %+v", live)
	}
	closed := byID["sess-closed"]
	if closed.Connected || closed.HasCard || closed.ThreadID != 43 {
		t.Fatalf("sess-closed snapshot = %+v", closed)
	}
}
