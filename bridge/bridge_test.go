// Copyright 2026 The Tether Authors
// SPDX-License-Identifier: Apache-2.0

package bridge

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/tether-support/tether/lib/clock"
)

// fakeWorkspace records every workspace call in order and hands out
// sequential thread and message ids.
type fakeWorkspace struct {
	mu    sync.Mutex
	calls []workspaceCall

	nextThreadID int64
	nextMsgID    int64

	failCreate bool
	failSend   bool
}

type workspaceCall struct {
	method   string // "createThread", "send", "edit", "strip"
	text     string
	opts     MessageOptions
	ref      CardRef
	threadID int64
}

func (w *fakeWorkspace) CreateThread(ctx context.Context, title string) (int64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.calls = append(w.calls, workspaceCall{method: "createThread", text: title})
	if w.failCreate {
		return 0, errors.New("thread creation refused")
	}
	w.nextThreadID++
	return 100 + w.nextThreadID, nil
}

func (w *fakeWorkspace) SendMessage(ctx context.Context, text string, opts MessageOptions) (CardRef, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.calls = append(w.calls, workspaceCall{method: "send", text: text, opts: opts})
	if w.failSend {
		return CardRef{}, errors.New("send refused")
	}
	w.nextMsgID++
	return CardRef{ChatID: 1, MessageID: w.nextMsgID}, nil
}

func (w *fakeWorkspace) EditMessage(ctx context.Context, ref CardRef, text string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.calls = append(w.calls, workspaceCall{method: "edit", text: text, ref: ref})
	return nil
}

func (w *fakeWorkspace) StripControls(ctx context.Context, threadID int64) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.calls = append(w.calls, workspaceCall{method: "strip", threadID: threadID})
	return nil
}

func (w *fakeWorkspace) snapshot() []workspaceCall {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]workspaceCall(nil), w.calls...)
}

func (w *fakeWorkspace) count(method string) int {
	n := 0
	for _, call := range w.snapshot() {
		if call.method == method {
			n++
		}
	}
	return n
}

// sendsTo returns the texts sent into one thread, in order.
func (w *fakeWorkspace) sendsTo(threadID int64) []string {
	var texts []string
	for _, call := range w.snapshot() {
		if call.method == "send" && call.opts.ThreadID == threadID {
			texts = append(texts, call.text)
		}
	}
	return texts
}

// fakeNotifier records every visitor-bound event in order.
type fakeNotifier struct {
	mu     sync.Mutex
	events []notifierEvent
}

type notifierEvent struct {
	kind   string // "session", "ack", "agent", "closed"
	connID string
	text   string
	ok     bool
	reason string
	cause  string
	ts     int64
}

func (n *fakeNotifier) SessionResolved(connID, sessionID string) error {
	n.record(notifierEvent{kind: "session", connID: connID, text: sessionID})
	return nil
}

func (n *fakeNotifier) Ack(connID string, ok bool, errorReason string) error {
	n.record(notifierEvent{kind: "ack", connID: connID, ok: ok, reason: errorReason})
	return nil
}

func (n *fakeNotifier) AgentMessage(connID, text string, ts int64) error {
	n.record(notifierEvent{kind: "agent", connID: connID, text: text, ts: ts})
	return nil
}

func (n *fakeNotifier) SessionClosed(connID string, cause string) error {
	n.record(notifierEvent{kind: "closed", connID: connID, cause: cause})
	return nil
}

func (n *fakeNotifier) record(event notifierEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
}

func (n *fakeNotifier) byKind(kind string) []notifierEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []notifierEvent
	for _, event := range n.events {
		if event.kind == kind {
			out = append(out, event)
		}
	}
	return out
}

const (
	testRequestsThread = int64(10)
	testLogsThread     = int64(20)
)

func newTestBridge(t *testing.T) (*Bridge, *fakeWorkspace, *fakeNotifier) {
	t.Helper()
	workspace := &fakeWorkspace{}
	notifier := &fakeNotifier{}
	b, err := New(Config{
		Workspace:        workspace,
		Notifier:         notifier,
		RequestsThreadID: testRequestsThread,
		LogsThreadID:     testLogsThread,
		Clock:            clock.Fake(time.Unix(1700000000, 0)),
		Logger:           slog.New(slog.DiscardHandler),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return b, workspace, notifier
}

// sessionOf resolves the session id the bridge echoed to a connection.
func sessionOf(t *testing.T, notifier *fakeNotifier, connID string) string {
	t.Helper()
	for _, event := range notifier.byKind("session") {
		if event.connID == connID {
			return event.text
		}
	}
	t.Fatalf("no session event for connection %q", connID)
	return ""
}

func TestHelloMintsDistinctSessionIDs(t *testing.T) {
	b, _, notifier := newTestBridge(t)
	ctx := context.Background()

	b.HandleHello(ctx, "conn-1", "")
	b.HandleHello(ctx, "conn-2", "  ")

	first := sessionOf(t, notifier, "conn-1")
	second := sessionOf(t, notifier, "conn-2")
	if first == "" || second == "" {
		t.Fatalf("minted empty session id: %q, %q", first, second)
	}
	if first == second {
		t.Fatalf("two hellos minted the same session id %q", first)
	}
}

func TestHelloEchoesProposedID(t *testing.T) {
	b, _, notifier := newTestBridge(t)

	b.HandleHello(context.Background(), "conn-1", " a1b2c3d4e5f60718 ")

	if got := sessionOf(t, notifier, "conn-1"); got != "a1b2c3d4e5f60718" {
		t.Fatalf("echoed session id = %q, want a1b2c3d4e5f60718", got)
	}
}

func TestMessageBeforeHelloDropped(t *testing.T) {
	b, workspace, notifier := newTestBridge(t)

	b.HandleClientMessage(context.Background(), "conn-1", "hello?")

	if calls := workspace.snapshot(); len(calls) != 0 {
		t.Fatalf("workspace touched for an unbound connection: %+v", calls)
	}
	if acks := notifier.byKind("ack"); len(acks) != 0 {
		t.Fatalf("unexpected acks: %+v", acks)
	}
	if sessions := b.Sessions(); len(sessions) != 0 {
		t.Fatalf("registry grew entries: %+v", sessions)
	}
}

func TestEmptyMessageDropped(t *testing.T) {
	b, workspace, _ := newTestBridge(t)
	ctx := context.Background()

	b.HandleHello(ctx, "conn-1", "a1b2c3d4e5f60718")
	b.HandleClientMessage(ctx, "conn-1", "   \n ")

	if calls := workspace.snapshot(); len(calls) != 0 {
		t.Fatalf("workspace touched for a blank message: %+v", calls)
	}
}

func TestFirstContactSequence(t *testing.T) {
	b, workspace, notifier := newTestBridge(t)
	ctx := context.Background()

	b.HandleHello(ctx, "conn-1", "a1b2c3d4e5f60718")
	b.HandleClientMessage(ctx, "conn-1", "my printer is on fire")

	calls := workspace.snapshot()
	if len(calls) != 5 {
		t.Fatalf("got %d workspace calls, want 5: %+v", len(calls), calls)
	}

	card := calls[0]
	if card.method != "send" || card.opts.ThreadID != testRequestsThread {
		t.Fatalf("first call is not the card post: %+v", card)
	}
	if card.opts.Controls != ControlsCard || card.opts.SessionID != "a1b2c3d4e5f60718" {
		t.Fatalf("card controls wrong: %+v", card.opts)
	}
	if !strings.Contains(card.text, "my printer is on fire") {
		t.Fatalf("card text missing visitor message: %q", card.text)
	}

	audit := calls[1]
	if audit.method != "send" || audit.opts.ThreadID != testLogsThread {
		t.Fatalf("second call is not the audit line: %+v", audit)
	}

	if calls[2].method != "createThread" {
		t.Fatalf("third call is not thread creation: %+v", calls[2])
	}

	starter := calls[3]
	if starter.method != "send" || starter.opts.Controls != ControlsCloseKeyboard || !starter.opts.Pin {
		t.Fatalf("starter message wrong: %+v", starter)
	}
	if _, ok := FindMarker(starter.text); !ok {
		t.Fatalf("starter text carries no session marker: %q", starter.text)
	}

	mirror := calls[4]
	if mirror.method != "send" || mirror.opts.ThreadID != starter.opts.ThreadID {
		t.Fatalf("mirror did not land in the new thread: %+v", mirror)
	}
	if !strings.Contains(mirror.text, "my printer is on fire") {
		t.Fatalf("mirror text missing visitor message: %q", mirror.text)
	}

	acks := notifier.byKind("ack")
	if len(acks) != 1 || !acks[0].ok {
		t.Fatalf("acks = %+v, want one successful ack", acks)
	}
}

func TestFollowUpRelaysWithoutNewThread(t *testing.T) {
	b, workspace, notifier := newTestBridge(t)
	ctx := context.Background()

	b.HandleHello(ctx, "conn-1", "a1b2c3d4e5f60718")
	b.HandleClientMessage(ctx, "conn-1", "first")
	b.HandleClientMessage(ctx, "conn-1", "second")
	b.HandleClientMessage(ctx, "conn-1", "third")

	if got := workspace.count("createThread"); got != 1 {
		t.Fatalf("thread created %d times, want 1", got)
	}
	threadID := int64(101)
	texts := workspace.sendsTo(threadID)
	// starter + mirror + two relays
	if len(texts) != 4 {
		t.Fatalf("thread received %d messages, want 4: %q", len(texts), texts)
	}
	if !strings.Contains(texts[3], "third") {
		t.Fatalf("last relay = %q, want to contain %q", texts[3], "third")
	}

	acks := notifier.byKind("ack")
	if len(acks) != 3 {
		t.Fatalf("got %d acks, want 3", len(acks))
	}
	for _, ack := range acks {
		if !ack.ok {
			t.Fatalf("negative ack: %+v", ack)
		}
	}
}

func TestCardFailureAcksError(t *testing.T) {
	b, workspace, notifier := newTestBridge(t)
	workspace.failSend = true
	ctx := context.Background()

	b.HandleHello(ctx, "conn-1", "a1b2c3d4e5f60718")
	b.HandleClientMessage(ctx, "conn-1", "hello")

	acks := notifier.byKind("ack")
	if len(acks) != 1 || acks[0].ok || acks[0].reason != "send_failed" {
		t.Fatalf("acks = %+v, want one send_failed", acks)
	}
	if got := workspace.count("createThread"); got != 0 {
		t.Fatalf("thread created despite card failure")
	}

	// The registry must not remember a card that was never posted, so
	// the next message retries first contact from the top.
	workspace.failSend = false
	b.HandleClientMessage(ctx, "conn-1", "hello again")
	if got := workspace.count("createThread"); got != 1 {
		t.Fatalf("retry created %d threads, want 1", got)
	}
	acks = notifier.byKind("ack")
	if len(acks) != 2 || !acks[1].ok {
		t.Fatalf("acks after retry = %+v", acks)
	}
}

func TestThreadFailureLeavesRegistryClean(t *testing.T) {
	b, workspace, notifier := newTestBridge(t)
	workspace.failCreate = true
	ctx := context.Background()

	b.HandleHello(ctx, "conn-1", "a1b2c3d4e5f60718")
	b.HandleClientMessage(ctx, "conn-1", "hello")

	acks := notifier.byKind("ack")
	if len(acks) != 1 || acks[0].ok {
		t.Fatalf("acks = %+v, want one failure", acks)
	}

	workspace.failCreate = false
	b.HandleClientMessage(ctx, "conn-1", "still there?")
	if got := workspace.count("createThread"); got != 2 {
		t.Fatalf("expected a fresh creation attempt, got %d total", got)
	}
	acks = notifier.byKind("ack")
	if len(acks) != 2 || !acks[1].ok {
		t.Fatalf("acks after retry = %+v", acks)
	}
}

func TestAgentReplyByThreadID(t *testing.T) {
	b, _, notifier := newTestBridge(t)
	ctx := context.Background()

	b.HandleHello(ctx, "conn-1", "a1b2c3d4e5f60718")
	b.HandleClientMessage(ctx, "conn-1", "help")

	b.HandleAgentMessage(ctx, AgentEvent{ThreadID: 101, Text: "on it", Actor: "@agent"})

	agent := notifier.byKind("agent")
	if len(agent) != 1 || agent[0].connID != "conn-1" || agent[0].text != "on it" {
		t.Fatalf("agent relays = %+v", agent)
	}
	if agent[0].ts != time.Unix(1700000000, 0).UnixMilli() {
		t.Fatalf("timestamp = %d, want clock time", agent[0].ts)
	}
}

func TestAgentLeadingMarker(t *testing.T) {
	b, _, notifier := newTestBridge(t)
	ctx := context.Background()

	b.HandleHello(ctx, "conn-1", "a1b2c3")

	b.HandleAgentMessage(ctx, AgentEvent{Text: "#a1b2c3 hello there", Actor: "@agent"})

	agent := notifier.byKind("agent")
	if len(agent) != 1 || agent[0].connID != "conn-1" {
		t.Fatalf("agent relays = %+v", agent)
	}
	if agent[0].text != "hello there" {
		t.Fatalf("relay text = %q, want marker stripped", agent[0].text)
	}
}

func TestAgentReplyQuoteMarker(t *testing.T) {
	b, _, notifier := newTestBridge(t)
	ctx := context.Background()

	b.HandleHello(ctx, "conn-1", "deadbeef01")

	b.HandleAgentMessage(ctx, AgentEvent{
		Text:        "try turning it off and on",
		ReplyToText: "👤 Visitor [#deadbeef01] (deadbeef):\nhelp",
		Actor:       "@agent",
	})

	agent := notifier.byKind("agent")
	if len(agent) != 1 || agent[0].connID != "conn-1" {
		t.Fatalf("agent relays = %+v", agent)
	}
	if agent[0].text != "try turning it off and on" {
		t.Fatalf("relay text = %q, want full text", agent[0].text)
	}
}

func TestAgentMessageUnroutableDropped(t *testing.T) {
	b, _, notifier := newTestBridge(t)

	b.HandleAgentMessage(context.Background(), AgentEvent{Text: "lunch anyone?", Actor: "@agent"})

	if agent := notifier.byKind("agent"); len(agent) != 0 {
		t.Fatalf("unroutable chatter relayed: %+v", agent)
	}
}

func TestAgentRelayAfterBareDisconnect(t *testing.T) {
	b, workspace, notifier := newTestBridge(t)
	ctx := context.Background()

	b.HandleHello(ctx, "conn-1", "a1b2c3d4e5f60718")
	b.HandleClientMessage(ctx, "conn-1", "help")
	b.HandleDisconnect("conn-1")

	before := len(workspace.snapshot())
	b.HandleAgentMessage(ctx, AgentEvent{ThreadID: 101, Text: "anyone there?", Actor: "@agent"})

	if agent := notifier.byKind("agent"); len(agent) != 0 {
		t.Fatalf("relayed to a dropped connection: %+v", agent)
	}
	if after := len(workspace.snapshot()); after != before {
		t.Fatal("offline relay attempt produced workspace side effects")
	}
	// Thread binding stays intact so a later close command resolves.
	if _, ok := b.registry.SessionByThread(101); !ok {
		t.Fatal("thread binding lost after bare disconnect")
	}
}

func TestClientEndClosesSession(t *testing.T) {
	b, workspace, notifier := newTestBridge(t)
	ctx := context.Background()

	b.HandleHello(ctx, "conn-1", "a1b2c3d4e5f60718")
	b.HandleClientMessage(ctx, "conn-1", "help")
	b.HandleClientEnd(ctx, "conn-1")

	closed := notifier.byKind("closed")
	if len(closed) != 1 || closed[0].cause != string(CauseClient) {
		t.Fatalf("closed events = %+v", closed)
	}
	if workspace.count("strip") != 1 {
		t.Fatal("close keyboard not stripped")
	}
	if workspace.count("edit") != 1 {
		t.Fatal("card not edited on close")
	}
	if _, ok := b.registry.ConnectionBySession("a1b2c3d4e5f60718"); ok {
		t.Fatal("closed session still routes to the connection")
	}
}

func TestDoubleCloseIsHarmless(t *testing.T) {
	b, workspace, notifier := newTestBridge(t)
	ctx := context.Background()

	b.HandleHello(ctx, "conn-1", "a1b2c3d4e5f60718")
	b.HandleClientMessage(ctx, "conn-1", "help")

	b.CloseSession(ctx, "a1b2c3d4e5f60718", CauseClient, "")
	b.CloseSession(ctx, "a1b2c3d4e5f60718", CauseAdmin, "@agent")

	if got := workspace.count("createThread"); got != 1 {
		t.Fatalf("double close created %d threads, want 1", got)
	}
	// The visitor is told exactly once: the second close finds no
	// connection to notify.
	closed := notifier.byKind("closed")
	if len(closed) != 1 || closed[0].cause != string(CauseClient) {
		t.Fatalf("closed events = %+v", closed)
	}
}

func TestCloseKeyboardLabel(t *testing.T) {
	b, workspace, notifier := newTestBridge(t)
	ctx := context.Background()

	b.HandleHello(ctx, "conn-1", "a1b2c3d4e5f60718")
	b.HandleClientMessage(ctx, "conn-1", "help")

	b.HandleAgentMessage(ctx, AgentEvent{ThreadID: 101, Text: ReplyCloseLabel, Actor: "@agent"})

	closed := notifier.byKind("closed")
	if len(closed) != 1 || closed[0].cause != string(CauseAdmin) {
		t.Fatalf("closed events = %+v", closed)
	}
	if agent := notifier.byKind("agent"); len(agent) != 0 {
		t.Fatalf("close label relayed as chat: %+v", agent)
	}
	if workspace.count("strip") != 1 {
		t.Fatal("close keyboard not stripped")
	}
}

func TestCallbackClose(t *testing.T) {
	b, workspace, notifier := newTestBridge(t)
	ctx := context.Background()

	b.HandleHello(ctx, "conn-1", "a1b2c3d4e5f60718")
	b.HandleClientMessage(ctx, "conn-1", "help")

	card := CardRef{ChatID: 1, MessageID: 1}
	b.HandleCallback(ctx, CallbackEvent{Data: "close:a1b2c3d4e5f60718", Actor: "@agent", Card: card})

	closed := notifier.byKind("closed")
	if len(closed) != 1 || closed[0].cause != string(CauseAdmin) {
		t.Fatalf("closed events = %+v", closed)
	}
	edited := false
	for _, call := range workspace.snapshot() {
		if call.method == "edit" && call.ref == card {
			edited = true
		}
	}
	if !edited {
		t.Fatal("originating card not edited")
	}
}

func TestCallbackUnknownPayloadIgnored(t *testing.T) {
	b, workspace, _ := newTestBridge(t)

	b.HandleCallback(context.Background(), CallbackEvent{Data: "snooze:a1b2c3", Actor: "@agent"})

	if calls := workspace.snapshot(); len(calls) != 0 {
		t.Fatalf("unknown payload produced side effects: %+v", calls)
	}
}

func TestCloseCommandByThread(t *testing.T) {
	b, workspace, notifier := newTestBridge(t)
	ctx := context.Background()

	b.HandleHello(ctx, "conn-1", "a1b2c3d4e5f60718")
	b.HandleClientMessage(ctx, "conn-1", "help")

	b.HandleCloseCommand(ctx, AgentEvent{ThreadID: 101, Text: "/close", Actor: "@agent"})

	closed := notifier.byKind("closed")
	if len(closed) != 1 || closed[0].cause != string(CauseAdmin) {
		t.Fatalf("closed events = %+v", closed)
	}
	confirmed := false
	for _, text := range workspace.sendsTo(101) {
		if strings.Contains(text, "closed") {
			confirmed = true
		}
	}
	if !confirmed {
		t.Fatal("no confirmation posted in the thread")
	}
}

func TestCloseCommandUsageHint(t *testing.T) {
	b, workspace, notifier := newTestBridge(t)
	ctx := context.Background()

	b.HandleCloseCommand(ctx, AgentEvent{ThreadID: 999, Text: "/close", Actor: "@agent"})

	if closed := notifier.byKind("closed"); len(closed) != 0 {
		t.Fatalf("unresolvable close closed something: %+v", closed)
	}
	texts := workspace.sendsTo(999)
	if len(texts) != 1 || texts[0] != closeUsage {
		t.Fatalf("usage hint = %q", texts)
	}
}
