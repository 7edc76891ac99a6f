// Copyright 2026 The Tether Authors
// SPDX-License-Identifier: Apache-2.0

package ops

import (
	"context"
	"fmt"
	"time"

	"github.com/tether-support/tether/bridge"
	"github.com/tether-support/tether/lib/codec"
	"github.com/tether-support/tether/lib/version"
)

// SessionController is the slice of the bridge the operator actions
// drive.
type SessionController interface {
	Sessions() []bridge.SessionInfo
	CloseSession(ctx context.Context, sessionID string, cause bridge.Cause, actor string)
}

// Status is the "status" action's response payload.
type Status struct {
	Version       string `cbor:"version"`
	UptimeSeconds int64  `cbor:"uptime_seconds"`
	Sessions      int    `cbor:"sessions"`
	Connected     int    `cbor:"connected"`
}

// Register installs the operator actions on server:
//
//   - status: process version, uptime, session counts
//   - sessions: the full session table
//   - close: force-close one session (params: session_id)
func Register(server *Server, controller SessionController) {
	started := time.Now()

	server.Handle("status", func(ctx context.Context, raw []byte) (any, error) {
		sessions := controller.Sessions()
		connected := 0
		for _, session := range sessions {
			if session.Connected {
				connected++
			}
		}
		return Status{
			Version:       version.Info(),
			UptimeSeconds: int64(time.Since(started).Seconds()),
			Sessions:      len(sessions),
			Connected:     connected,
		}, nil
	})

	server.Handle("sessions", func(ctx context.Context, raw []byte) (any, error) {
		return controller.Sessions(), nil
	})

	server.Handle("close", func(ctx context.Context, raw []byte) (any, error) {
		var request struct {
			SessionID string `cbor:"session_id"`
		}
		if err := codec.Unmarshal(raw, &request); err != nil {
			return nil, fmt.Errorf("invalid close request: %w", err)
		}
		if request.SessionID == "" {
			return nil, fmt.Errorf("missing required field: session_id")
		}

		known := false
		for _, session := range controller.Sessions() {
			if session.SessionID == request.SessionID {
				known = true
				break
			}
		}
		if !known {
			return nil, fmt.Errorf("unknown session %q", request.SessionID)
		}

		controller.CloseSession(ctx, request.SessionID, bridge.CauseAdmin, "ops")
		return nil, nil
	})
}
