// Copyright 2026 The Tether Authors
// SPDX-License-Identifier: Apache-2.0

package bridge

import "fmt"

// ThreadCreationError reports that the workspace refused to create a
// session's thread (typically missing topic permissions for the bot).
// The session cannot proceed without a thread, so callers must
// surface the failure to the initiating flow; nothing is bound in the
// registry when this is returned.
type ThreadCreationError struct {
	SessionID string
	Err       error
}

func (e *ThreadCreationError) Error() string {
	return fmt.Sprintf("bridge: creating thread for session %s: %v", e.SessionID, e.Err)
}

func (e *ThreadCreationError) Unwrap() error { return e.Err }
