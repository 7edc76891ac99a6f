// Copyright 2026 The Tether Authors
// SPDX-License-Identifier: Apache-2.0

package bridge

import (
	"context"
	"strings"
)

// ackSendFailed is the structured failure reason visitors see when a
// message could not be placed in the workspace.
const ackSendFailed = "send_failed"

// HandleHello binds a connection to a session: the visitor's proposed
// id when present, a freshly minted one otherwise. The resolved id is
// echoed back so the visitor can persist it for reconnects.
func (b *Bridge) HandleHello(ctx context.Context, connID, proposedSessionID string) {
	sessionID := strings.TrimSpace(proposedSessionID)
	if sessionID == "" {
		sessionID = NewSessionID()
	}

	b.registry.BindConnection(sessionID, connID)
	b.logger.Info("visitor connected",
		"session_id", sessionID,
		"conn_id", connID,
	)

	if err := b.notifier.SessionResolved(connID, sessionID); err != nil {
		b.logger.Debug("session echo failed", "conn_id", connID, "error", err)
	}
}

// HandleClientMessage routes one visitor message. Messages from
// connections that never said hello, and empty messages, are dropped
// before any side effect. The session's very first message takes the
// first-contact path (card, audit line, thread, mirrored copy);
// everything after relays straight into the thread. Either way the
// visitor gets a structured acknowledgment.
func (b *Bridge) HandleClientMessage(ctx context.Context, connID, text string) {
	sessionID, ok := b.registry.SessionByConnection(connID)
	clean := strings.TrimSpace(text)
	if !ok || clean == "" {
		b.logger.Debug("dropping visitor message",
			"conn_id", connID,
			"bound", ok,
			"empty", clean == "",
		)
		return
	}

	b.logger.Info("visitor message",
		"session_id", sessionID,
		"text", truncate(clean, 80),
	)

	_, hasCard := b.registry.Card(sessionID)
	_, hasThread := b.registry.ThreadBySession(sessionID)
	if !hasCard && !hasThread {
		b.firstContact(ctx, sessionID, connID, clean)
		return
	}
	b.relay(ctx, sessionID, connID, clean)
}

// firstContact runs the one-time sequence for a session's first
// message: summary card into the requests thread, "opened" audit
// line, thread creation, and a mirrored copy of the message into the
// new thread — in that order, before the acknowledgment. The card
// and thread steps gate the ack; the audit line and the mirrored
// copy are best-effort.
func (b *Bridge) firstContact(ctx context.Context, sessionID, connID, text string) {
	cardCtx, cancelCard := b.callContext(ctx)
	defer cancelCard()
	ref, err := b.workspace.SendMessage(cardCtx, cardText(sessionID, text), MessageOptions{
		ThreadID:  b.requestsThreadID,
		Controls:  ControlsCard,
		SessionID: sessionID,
	})
	if err != nil {
		b.logger.Error("card post failed", "session_id", sessionID, "error", err)
		b.ack(connID, false, ackSendFailed)
		return
	}
	b.registry.SetCard(sessionID, ref)
	b.logger.Info("card posted", "session_id", sessionID, "message_id", ref.MessageID)

	if err := b.audit(ctx, auditOpened(sessionID)); err != nil {
		b.logger.Error("audit open failed", "session_id", sessionID, "error", err)
	}

	threadID, err := b.ensureThread(ctx, sessionID)
	if err != nil {
		b.logger.Error("thread creation failed", "session_id", sessionID, "error", err)
		b.ack(connID, false, ackSendFailed)
		return
	}

	mirrorCtx, cancelMirror := b.callContext(ctx)
	defer cancelMirror()
	if _, err := b.workspace.SendMessage(mirrorCtx, visitorText(sessionID, text), MessageOptions{ThreadID: threadID}); err != nil {
		b.logger.Error("mirror to thread failed", "session_id", sessionID, "error", err)
	}

	b.ack(connID, true, "")
}

// relay posts a follow-up visitor message into the session's thread.
func (b *Bridge) relay(ctx context.Context, sessionID, connID, text string) {
	threadID, err := b.ensureThread(ctx, sessionID)
	if err != nil {
		b.logger.Error("thread creation failed", "session_id", sessionID, "error", err)
		b.ack(connID, false, ackSendFailed)
		return
	}

	sendCtx, cancel := b.callContext(ctx)
	defer cancel()
	if _, err := b.workspace.SendMessage(sendCtx, visitorText(sessionID, text), MessageOptions{ThreadID: threadID}); err != nil {
		b.logger.Error("relay to thread failed", "session_id", sessionID, "error", err)
		b.ack(connID, false, ackSendFailed)
		return
	}

	b.ack(connID, true, "")
}

func (b *Bridge) ack(connID string, ok bool, reason string) {
	if err := b.notifier.Ack(connID, ok, reason); err != nil {
		b.logger.Debug("ack delivery failed", "conn_id", connID, "error", err)
	}
}

// HandleClientEnd is the visitor's explicit goodbye: the session is
// closed with cause "client" and the connection unbound.
func (b *Bridge) HandleClientEnd(ctx context.Context, connID string) {
	sessionID, ok := b.registry.SessionByConnection(connID)
	if !ok {
		return
	}
	b.logger.Info("visitor ended session", "session_id", sessionID, "conn_id", connID)

	b.CloseSession(ctx, sessionID, CauseClient, "")
	b.registry.UnbindConnection(connID)
}

// HandleDisconnect handles a bare transport drop: only the stale
// connection mapping is evicted. The session stays open — the visitor
// may reconnect with the same id and resume, and agents can still
// close the session later.
func (b *Bridge) HandleDisconnect(connID string) {
	b.registry.UnbindConnection(connID)
	b.logger.Debug("connection dropped", "conn_id", connID)
}

// HandleAgentMessage routes one agent-side workspace message. The
// close reply-keyboard label short-circuits to a close when pressed
// inside a session thread. Otherwise the target session resolves, in
// order: by thread id, by a leading inline marker in the text (which
// is stripped from the relay), or by a marker in the quoted message
// of a reply. Unresolvable messages and messages to sessions without
// a live connection are dropped quietly — agents chat in unrelated
// threads all the time.
func (b *Bridge) HandleAgentMessage(ctx context.Context, event AgentEvent) {
	if event.Text == ReplyCloseLabel && event.ThreadID != 0 {
		sessionID, ok := b.registry.SessionByThread(event.ThreadID)
		if !ok {
			b.logger.Debug("close control in unknown thread", "thread_id", event.ThreadID)
			return
		}
		b.CloseSession(ctx, sessionID, CauseAdmin, event.Actor)
		if err := b.audit(ctx, auditClosedVia("thread keyboard", sessionID)); err != nil {
			b.logger.Error("audit failed", "session_id", sessionID, "error", err)
		}
		return
	}

	sessionID, relayText := b.resolveAgentTarget(event)
	if sessionID == "" || relayText == "" {
		b.logger.Debug("agent message unroutable", "thread_id", event.ThreadID)
		return
	}

	connID, ok := b.registry.ConnectionBySession(sessionID)
	if !ok {
		b.logger.Info("visitor offline, dropping agent message", "session_id", sessionID)
		return
	}

	if err := b.notifier.AgentMessage(connID, relayText, b.clock.Now().UnixMilli()); err != nil {
		b.logger.Error("agent message delivery failed",
			"session_id", sessionID,
			"conn_id", connID,
			"error", err,
		)
		return
	}
	b.logger.Info("agent message relayed",
		"session_id", sessionID,
		"text", truncate(relayText, 80),
	)
}

// resolveAgentTarget applies the three-stage session resolution for
// an ordinary agent message.
func (b *Bridge) resolveAgentTarget(event AgentEvent) (sessionID, relayText string) {
	if event.ThreadID != 0 {
		if id, ok := b.registry.SessionByThread(event.ThreadID); ok {
			return id, event.Text
		}
	}
	if id, rest, ok := ParseLeadingMarker(event.Text); ok {
		return id, rest
	}
	if event.ReplyToText != "" {
		if id, ok := FindMarker(event.ReplyToText); ok {
			return id, event.Text
		}
	}
	return "", ""
}

// HandleCallback processes a button press on a session card. Only the
// "close:<id>" payload is recognized: it closes the session and
// additionally edits the originating card, covering cards posted
// before the process restarted (the registry no longer knows them,
// but the button still references a session id).
func (b *Bridge) HandleCallback(ctx context.Context, event CallbackEvent) {
	payload, ok := strings.CutPrefix(event.Data, "close:")
	if !ok {
		b.logger.Debug("unknown callback payload", "data", event.Data)
		return
	}
	sessionID := strings.TrimSpace(payload)
	if sessionID == "" {
		return
	}

	b.CloseSession(ctx, sessionID, CauseAdmin, event.Actor)

	if !event.Card.IsZero() {
		editCtx, cancel := b.callContext(ctx)
		defer cancel()
		if err := b.workspace.EditMessage(editCtx, event.Card, cardClosedText(sessionID, CauseAdmin)); err != nil {
			b.logger.Error("card edit failed", "session_id", sessionID, "error", err)
		}
	}

	if err := b.audit(ctx, auditClosedVia("card", sessionID)); err != nil {
		b.logger.Error("audit failed", "session_id", sessionID, "error", err)
	}
}

// HandleCloseCommand processes the slash-style close command. The
// session resolves by thread id, then by a marker in the quoted
// message. On a miss the agent gets a usage hint where they typed; on
// success the session closes and a confirmation lands in the same
// place.
func (b *Bridge) HandleCloseCommand(ctx context.Context, event AgentEvent) {
	var sessionID string
	if event.ThreadID != 0 {
		sessionID, _ = b.registry.SessionByThread(event.ThreadID)
	}
	if sessionID == "" && event.ReplyToText != "" {
		sessionID, _ = FindMarker(event.ReplyToText)
	}

	if sessionID == "" {
		replyCtx, cancel := b.callContext(ctx)
		defer cancel()
		if _, err := b.workspace.SendMessage(replyCtx, closeUsage, MessageOptions{ThreadID: event.ThreadID}); err != nil {
			b.logger.Error("usage reply failed", "thread_id", event.ThreadID, "error", err)
		}
		return
	}

	b.CloseSession(ctx, sessionID, CauseAdmin, event.Actor)

	confirmCtx, cancel := b.callContext(ctx)
	defer cancel()
	if _, err := b.workspace.SendMessage(confirmCtx, closeConfirm(sessionID), MessageOptions{ThreadID: event.ThreadID}); err != nil {
		b.logger.Error("close confirmation failed", "session_id", sessionID, "error", err)
	}

	if err := b.audit(ctx, auditClosedVia("close command", sessionID)); err != nil {
		b.logger.Error("audit failed", "session_id", sessionID, "error", err)
	}
}

// truncate clips s for log lines.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "…"
}
