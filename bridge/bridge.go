// Copyright 2026 The Tether Authors
// SPDX-License-Identifier: Apache-2.0

package bridge

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/tether-support/tether/lib/clock"
)

// Config holds the collaborators and fixed workspace locations for a
// Bridge.
type Config struct {
	// Workspace is the chat-workspace adapter. Required.
	Workspace Workspace
	// Notifier delivers events to visitor connections. Required.
	Notifier Notifier
	// RequestsThreadID is the fixed thread receiving one summary
	// card per session. Required.
	RequestsThreadID int64
	// LogsThreadID is the fixed audit thread. Required.
	LogsThreadID int64
	// CallTimeout bounds each individual workspace call. Defaults to
	// 10 seconds.
	CallTimeout time.Duration
	// Clock is the time source for agent message timestamps. If nil,
	// the real clock is used.
	Clock clock.Clock
	// Logger receives structured log output. If nil, slog.Default()
	// is used.
	Logger *slog.Logger
}

// defaultCallTimeout bounds a single workspace API call when the
// config does not say otherwise.
const defaultCallTimeout = 10 * time.Second

// Bridge is the session registry and message-routing state machine.
// One instance serves the whole process; all methods are safe for
// concurrent use (the registry serializes map access, and every side
// effect tolerates racing duplicates).
type Bridge struct {
	registry  *Registry
	workspace Workspace
	notifier  Notifier

	requestsThreadID int64
	logsThreadID     int64
	callTimeout      time.Duration

	clock  clock.Clock
	logger *slog.Logger
}

// New creates a Bridge.
func New(config Config) (*Bridge, error) {
	if config.Workspace == nil {
		return nil, fmt.Errorf("bridge: Workspace is required")
	}
	if config.Notifier == nil {
		return nil, fmt.Errorf("bridge: Notifier is required")
	}
	if config.RequestsThreadID == 0 {
		return nil, fmt.Errorf("bridge: RequestsThreadID is required")
	}
	if config.LogsThreadID == 0 {
		return nil, fmt.Errorf("bridge: LogsThreadID is required")
	}

	callTimeout := config.CallTimeout
	if callTimeout == 0 {
		callTimeout = defaultCallTimeout
	}
	clk := config.Clock
	if clk == nil {
		clk = clock.Real()
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Bridge{
		registry:         NewRegistry(),
		workspace:        config.Workspace,
		notifier:         config.Notifier,
		requestsThreadID: config.RequestsThreadID,
		logsThreadID:     config.LogsThreadID,
		callTimeout:      callTimeout,
		clock:            clk,
		logger:           logger,
	}, nil
}

// Sessions returns a snapshot of the registry for the ops socket.
func (b *Bridge) Sessions() []SessionInfo {
	return b.registry.Sessions()
}

// callContext bounds one workspace call. The parent context still
// applies, so shutdown cancels in-flight calls.
func (b *Bridge) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, b.callTimeout)
}

// audit posts one line to the fixed audit thread, best-effort.
func (b *Bridge) audit(ctx context.Context, text string) error {
	callCtx, cancel := b.callContext(ctx)
	defer cancel()
	_, err := b.workspace.SendMessage(callCtx, text, MessageOptions{ThreadID: b.logsThreadID})
	return err
}
