// Copyright 2026 The Tether Authors
// SPDX-License-Identifier: Apache-2.0

package bridge

import "context"

// Cause classifies who ended a session.
type Cause string

const (
	// CauseAdmin means an agent closed the session (button, reply
	// keyboard, slash command, or ops socket).
	CauseAdmin Cause = "admin"
	// CauseClient means the visitor ended the session explicitly.
	CauseClient Cause = "client"
)

// CardRef is an opaque handle to a previously posted workspace
// message, sufficient to edit it in place later. For each session it
// points at the summary card in the requests thread.
type CardRef struct {
	ChatID    int64
	MessageID int64
}

// IsZero reports whether the ref points at nothing.
func (r CardRef) IsZero() bool { return r.MessageID == 0 }

// Controls selects the interactive controls attached to an outgoing
// workspace message.
type Controls int

const (
	// ControlsNone attaches nothing.
	ControlsNone Controls = iota
	// ControlsCard attaches the card's inline close button, whose
	// callback payload carries the session id.
	ControlsCard
	// ControlsCloseKeyboard attaches the persistent reply keyboard
	// with the close-ticket label.
	ControlsCloseKeyboard
)

// MessageOptions qualifies a Workspace.SendMessage call.
type MessageOptions struct {
	// ThreadID addresses a thread within the agent group; zero means
	// the group's general timeline.
	ThreadID int64
	// Controls selects attached interactive controls.
	Controls Controls
	// SessionID is the session the controls address. Required when
	// Controls is ControlsCard.
	SessionID string
	// Pin pins the message in the chat after posting.
	Pin bool
}

// Workspace is the chat-workspace adapter the bridge posts through.
// Implementations scope all operations to the single agent group
// configured at startup.
type Workspace interface {
	// CreateThread creates a new discussion thread named title and
	// returns its workspace-assigned id.
	CreateThread(ctx context.Context, title string) (int64, error)

	// SendMessage posts text per opts and returns a reference usable
	// with EditMessage.
	SendMessage(ctx context.Context, text string, opts MessageOptions) (CardRef, error)

	// EditMessage rewrites a previously posted message in place.
	EditMessage(ctx context.Context, ref CardRef, text string) error

	// StripControls removes the persistent reply keyboard from a
	// thread, posting a short closed notice as the vehicle.
	StripControls(ctx context.Context, threadID int64) error
}

// Notifier delivers structured events to a visitor's live connection.
// All methods are best-effort: a returned error means the frame was
// not delivered (visitor already gone), never that the session is in
// a bad state.
type Notifier interface {
	// SessionResolved tells the connection which session id it is
	// bound to, echoing a proposed id or announcing a minted one.
	SessionResolved(connID, sessionID string) error

	// Ack reports the outcome of a visitor message attempt.
	// errorReason is set only when ok is false.
	Ack(connID string, ok bool, errorReason string) error

	// AgentMessage relays an agent reply, timestamped in Unix
	// milliseconds.
	AgentMessage(connID, text string, ts int64) error

	// SessionClosed tells the visitor the session ended and why.
	SessionClosed(connID string, cause string) error
}

// AgentEvent is a validated agent-side workspace message, trimmed to
// what routing needs. The transport glue filters out bot-authored and
// non-group messages before constructing one.
type AgentEvent struct {
	// ThreadID is the thread the message was posted in; zero when
	// posted to the group's general timeline.
	ThreadID int64
	// Text is the message text (or media caption).
	Text string
	// ReplyToText is the text of the quoted message when the event
	// is a reply, empty otherwise.
	ReplyToText string
	// Actor is the human-readable handle of the agent.
	Actor string
}

// CallbackEvent is a button press on a card's inline keyboard.
type CallbackEvent struct {
	// Data is the button payload (e.g. "close:<session id>").
	Data string
	// Actor is the handle of the pressing agent.
	Actor string
	// Card references the message carrying the button.
	Card CardRef
}
