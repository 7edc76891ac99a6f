// Copyright 2026 The Tether Authors
// SPDX-License-Identifier: Apache-2.0

package channel

import "encoding/json"

// Event names on the visitor channel. The set and shapes are part of
// the public widget contract and must stay compatible with deployed
// widgets.
const (
	// Inbound.
	EventHello         = "hello"
	EventClientMessage = "client_message"
	EventClientEnd     = "client_end"

	// Outbound.
	EventSession       = "session"
	EventServerAck     = "server_ack"
	EventAdminMessage  = "admin_message"
	EventSessionClosed = "session_closed"
)

// Envelope frames every message in both directions: one event name
// plus an event-specific payload.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// ClientMessage is the payload of a client_message event.
type ClientMessage struct {
	Text string `json:"text"`
}

// Ack is the payload of a server_ack event. Error is set only when OK
// is false.
type Ack struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// AdminMessage is the payload of an admin_message event. TS is Unix
// milliseconds.
type AdminMessage struct {
	Text string `json:"text"`
	TS   int64  `json:"ts"`
}

// Closed is the payload of a session_closed event. Cause is "admin"
// or "client".
type Closed struct {
	Cause string `json:"cause"`
}
