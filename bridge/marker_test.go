// Copyright 2026 The Tether Authors
// SPDX-License-Identifier: Apache-2.0

package bridge

import "testing"

func TestParseLeadingMarker(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		sessionID string
		rest      string
		ok        bool
	}{
		{
			name:      "marker with text",
			text:      "#a1b2c3 hello there",
			sessionID: "a1b2c3",
			rest:      "hello there",
			ok:        true,
		},
		{
			name:      "long id",
			text:      "#deadbeefcafe0123 please hold",
			sessionID: "deadbeefcafe0123",
			rest:      "please hold",
			ok:        true,
		},
		{
			name:      "uppercase hex",
			text:      "#A1B2C3 reply",
			sessionID: "A1B2C3",
			rest:      "reply",
			ok:        true,
		},
		{
			name:      "multiline relay text",
			text:      "#a1b2c3 first line\nsecond line",
			sessionID: "a1b2c3",
			rest:      "first line\nsecond line",
			ok:        true,
		},
		{name: "marker without text", text: "#a1b2c3", ok: false},
		{name: "marker with only whitespace", text: "#a1b2c3   ", ok: false},
		{name: "too short", text: "#a1b2c hello", ok: false},
		{name: "not hex", text: "#zzzzzz hello", ok: false},
		{name: "marker not leading", text: "see #a1b2c3 hello", ok: false},
		{name: "plain text", text: "hello there", ok: false},
		{name: "empty", text: "", ok: false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			sessionID, rest, ok := ParseLeadingMarker(tc.text)
			if ok != tc.ok {
				t.Fatalf("ParseLeadingMarker(%q) ok = %v, want %v", tc.text, ok, tc.ok)
			}
			if sessionID != tc.sessionID || rest != tc.rest {
				t.Fatalf("ParseLeadingMarker(%q) = (%q, %q), want (%q, %q)",
					tc.text, sessionID, rest, tc.sessionID, tc.rest)
			}
		})
	}
}

func TestFindMarker(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		sessionID string
		ok        bool
	}{
		{
			name:      "marker mid-text",
			text:      "🔰 Thread opened for Session #deadbeef01. ID: [#deadbeef01]",
			sessionID: "deadbeef01",
			ok:        true,
		},
		{
			name:      "marker at start",
			text:      "#a1b2c3 extra",
			sessionID: "a1b2c3",
			ok:        true,
		},
		{
			name:      "first of several wins",
			text:      "#aaaaaa then #bbbbbb",
			sessionID: "aaaaaa",
			ok:        true,
		},
		{name: "too short", text: "issue #12345", ok: false},
		{name: "no marker", text: "nothing here", ok: false},
		{name: "empty", text: "", ok: false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			sessionID, ok := FindMarker(tc.text)
			if ok != tc.ok || sessionID != tc.sessionID {
				t.Fatalf("FindMarker(%q) = (%q, %v), want (%q, %v)",
					tc.text, sessionID, ok, tc.sessionID, tc.ok)
			}
		})
	}
}

func TestNewSessionID(t *testing.T) {
	first := NewSessionID()
	second := NewSessionID()
	if first == second {
		t.Fatalf("NewSessionID returned the same id twice: %q", first)
	}
	for _, id := range []string{first, second} {
		if len(id) != 16 {
			t.Fatalf("NewSessionID() = %q, want 16 hex characters", id)
		}
		if got, ok := FindMarker("#" + id); !ok || got != id {
			t.Fatalf("minted id %q does not satisfy the marker grammar", id)
		}
	}
}
