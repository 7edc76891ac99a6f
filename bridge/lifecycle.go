// Copyright 2026 The Tether Authors
// SPDX-License-Identifier: Apache-2.0

package bridge

import "context"

// ensureThread returns the session's workspace thread, creating it on
// first need. Idempotent: once a thread is bound it is returned
// forever and never recreated.
//
// Creation is two workspace calls — the thread itself, then the
// pinned starter message carrying the session marker and the
// persistent close keyboard. Nothing is bound until both succeed, so
// a failure leaves the registry untouched and the next attempt starts
// clean. A starter failure can orphan a workspace thread.
func (b *Bridge) ensureThread(ctx context.Context, sessionID string) (int64, error) {
	if threadID, ok := b.registry.ThreadBySession(sessionID); ok {
		return threadID, nil
	}

	createCtx, cancel := b.callContext(ctx)
	defer cancel()
	threadID, err := b.workspace.CreateThread(createCtx, threadTitle(sessionID))
	if err != nil {
		return 0, &ThreadCreationError{SessionID: sessionID, Err: err}
	}

	starterCtx, cancelStarter := b.callContext(ctx)
	defer cancelStarter()
	_, err = b.workspace.SendMessage(starterCtx, starterText(sessionID), MessageOptions{
		ThreadID:  threadID,
		Controls:  ControlsCloseKeyboard,
		SessionID: sessionID,
		Pin:       true,
	})
	if err != nil {
		return 0, &ThreadCreationError{SessionID: sessionID, Err: err}
	}

	b.registry.BindThread(sessionID, threadID)
	b.logger.Info("thread created",
		"session_id", sessionID,
		"thread_id", threadID,
	)
	return threadID, nil
}

// CloseSession tears a session down: audit line, thread notice plus
// keyboard strip, card edit, visitor notification, and finally the
// connection unbinding. Each step is independently fault-tolerant and
// tolerates having already run, so calling CloseSession twice — or
// concurrently from racing close paths — never throws and never
// repeats a thread creation. actor names the closing agent for admin
// closes and is ignored for client closes.
func (b *Bridge) CloseSession(ctx context.Context, sessionID string, cause Cause, actor string) {
	b.logger.Info("closing session",
		"session_id", sessionID,
		"cause", string(cause),
		"actor", actor,
	)

	b.runSteps(ctx, sessionID, []step{
		{name: "audit", run: func(ctx context.Context) error {
			return b.audit(ctx, auditClosed(sessionID, cause, actor))
		}},
		{name: "thread-notice", run: func(ctx context.Context) error {
			threadID, ok := b.registry.ThreadBySession(sessionID)
			if !ok {
				return nil
			}
			noticeCtx, cancel := b.callContext(ctx)
			defer cancel()
			if _, err := b.workspace.SendMessage(noticeCtx, threadClosedNotice(sessionID, cause), MessageOptions{ThreadID: threadID}); err != nil {
				return err
			}
			stripCtx, cancelStrip := b.callContext(ctx)
			defer cancelStrip()
			return b.workspace.StripControls(stripCtx, threadID)
		}},
		{name: "card-edit", run: func(ctx context.Context) error {
			ref, ok := b.registry.Card(sessionID)
			if !ok {
				return nil
			}
			editCtx, cancel := b.callContext(ctx)
			defer cancel()
			return b.workspace.EditMessage(editCtx, ref, cardClosedText(sessionID, cause))
		}},
		{name: "notify-visitor", run: func(ctx context.Context) error {
			connID, ok := b.registry.ConnectionBySession(sessionID)
			if !ok {
				return nil
			}
			return b.notifier.SessionClosed(connID, string(cause))
		}},
		{name: "forget", run: func(ctx context.Context) error {
			b.registry.ForgetSession(sessionID)
			return nil
		}},
	})
}
