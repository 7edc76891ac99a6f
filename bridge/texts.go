// Copyright 2026 The Tether Authors
// SPDX-License-Identifier: Apache-2.0

package bridge

import "fmt"

// ReplyCloseLabel is the fixed reply-keyboard label agents press to
// close a session from inside its thread. The router matches it
// verbatim, so the workspace adapter must render exactly this string
// on the keyboard.
const ReplyCloseLabel = "❌ Close ticket"

// All agent-facing wording lives here so that the lifecycle and
// router code reads as control flow, not string assembly.

func threadTitle(sessionID string) string {
	return "Session #" + sessionID
}

func starterText(sessionID string) string {
	return fmt.Sprintf("🔰 Thread opened for Session #%s. ID: [#%s]", sessionID, sessionID)
}

func cardText(sessionID, message string) string {
	return fmt.Sprintf("🆘 New support request\nSession: #%s\n\nMessage:\n%s", sessionID, message)
}

func visitorText(sessionID, message string) string {
	short := sessionID
	if len(short) > 8 {
		short = short[:8]
	}
	return fmt.Sprintf("👤 Visitor [#%s] (%s):\n%s", sessionID, short, message)
}

func auditOpened(sessionID string) string {
	return fmt.Sprintf("🟢 Session opened · Session #%s", sessionID)
}

func auditClosed(sessionID string, cause Cause, actor string) string {
	if cause == CauseAdmin {
		if actor != "" {
			return fmt.Sprintf("⛔️ Session #%s closed by admin %s", sessionID, actor)
		}
		return fmt.Sprintf("⛔️ Session #%s closed by admin", sessionID)
	}
	return fmt.Sprintf("🔴 Visitor left the chat · Session #%s", sessionID)
}

// auditClosedVia is the per-entry-point confirmation posted to the
// audit thread in addition to the close sequence's own line, naming
// which control triggered the close.
func auditClosedVia(entry, sessionID string) string {
	return fmt.Sprintf("⛔️ Closed via %s · Session #%s", entry, sessionID)
}

func threadClosedNotice(sessionID string, cause Cause) string {
	if cause == CauseAdmin {
		return fmt.Sprintf("⛔️ Dialog #%s closed by admin", sessionID)
	}
	return fmt.Sprintf("🔴 Visitor left the chat #%s", sessionID)
}

func cardClosedText(sessionID string, cause Cause) string {
	if cause == CauseAdmin {
		return fmt.Sprintf("❌ Dialog #%s closed by admin.", sessionID)
	}
	return fmt.Sprintf("❌ Dialog #%s closed by the visitor.", sessionID)
}

func closeConfirm(sessionID string) string {
	return fmt.Sprintf("⛔️ Dialog #%s closed.", sessionID)
}

// closeUsage is the reply when a close command cannot resolve a
// session.
const closeUsage = "Could not find a session id. Run the command inside a session thread or reply to a visitor message."
