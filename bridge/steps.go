// Copyright 2026 The Tether Authors
// SPDX-License-Identifier: Apache-2.0

package bridge

import "context"

// step is one unit of a best-effort side-effect sequence.
type step struct {
	name string
	run  func(ctx context.Context) error
}

// runSteps executes every step in order regardless of failures. Each
// failure is logged with the step name and session id, then execution
// continues. Every step must tolerate "already done" states.
func (b *Bridge) runSteps(ctx context.Context, sessionID string, steps []step) {
	for _, s := range steps {
		if err := s.run(ctx); err != nil {
			b.logger.Error("close step failed",
				"step", s.name,
				"session_id", sessionID,
				"error", err,
			)
		}
	}
}
