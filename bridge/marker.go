// Copyright 2026 The Tether Authors
// SPDX-License-Identifier: Apache-2.0

package bridge

import "regexp"

// Inline marker grammar: "#" followed by 6 to 32 hex characters,
// case-insensitive. The marker lets agents address a session from
// anywhere in the group without being inside its thread. The format
// is load-bearing — operators have reply habits built around it — so
// it must not change.
//
// A leading marker ("#a1b2c3 take this text") carries its own relay
// text after whitespace. A bare marker anywhere in a quoted message
// ("Session #a1b2c3 ...") identifies the session for a reply whose
// own text is relayed as-is.
var (
	leadingMarkerPattern = regexp.MustCompile(`(?s)^#([0-9a-fA-F]{6,32})\s+(.+)$`)
	inlineMarkerPattern  = regexp.MustCompile(`#([0-9a-fA-F]{6,32})`)
)

// ParseLeadingMarker matches text against the leading-marker form and
// returns the session id and the remaining relay text. ok is false
// when text does not start with a marker followed by more text.
func ParseLeadingMarker(text string) (sessionID, rest string, ok bool) {
	match := leadingMarkerPattern.FindStringSubmatch(text)
	if match == nil {
		return "", "", false
	}
	return match[1], match[2], true
}

// FindMarker returns the first inline marker's session id anywhere in
// text.
func FindMarker(text string) (sessionID string, ok bool) {
	match := inlineMarkerPattern.FindStringSubmatch(text)
	if match == nil {
		return "", false
	}
	return match[1], true
}
