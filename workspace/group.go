// Copyright 2026 The Tether Authors
// SPDX-License-Identifier: Apache-2.0

package workspace

import (
	"context"
	"log/slog"

	"github.com/tether-support/tether/bridge"
)

// Group scopes a Client to the single agent group and adapts it to the
// bridge's workspace surface. All thread and message operations land
// in this group; the bridge never sees chat ids except inside opaque
// card references.
type Group struct {
	client  *Client
	groupID int64
	logger  *slog.Logger
}

// NewGroup creates a Group adapter over client for the given group
// chat id.
func NewGroup(client *Client, groupID int64, logger *slog.Logger) *Group {
	if logger == nil {
		logger = slog.Default()
	}
	return &Group{client: client, groupID: groupID, logger: logger}
}

// CreateThread creates a forum topic in the group.
func (g *Group) CreateThread(ctx context.Context, title string) (int64, error) {
	return g.client.CreateForumTopic(ctx, g.groupID, title)
}

// SendMessage posts text into the group, attaching the controls the
// options ask for. The returned ref addresses the posted message for
// later edits.
func (g *Group) SendMessage(ctx context.Context, text string, opts bridge.MessageOptions) (bridge.CardRef, error) {
	request := SendMessageRequest{
		ChatID:   g.groupID,
		ThreadID: opts.ThreadID,
		Text:     text,
	}
	switch opts.Controls {
	case bridge.ControlsCard:
		request.ReplyMarkup = InlineKeyboardMarkup{
			InlineKeyboard: [][]InlineKeyboardButton{{
				{Text: "❌ Close dialog", CallbackData: "close:" + opts.SessionID},
			}},
		}
	case bridge.ControlsCloseKeyboard:
		request.ReplyMarkup = ReplyKeyboardMarkup{
			Keyboard: [][]KeyboardButton{{
				{Text: bridge.ReplyCloseLabel},
			}},
			ResizeKeyboard: true,
		}
	}

	message, err := g.client.SendMessage(ctx, request)
	if err != nil {
		return bridge.CardRef{}, err
	}

	if opts.Pin {
		if err := g.client.PinMessage(ctx, message.Chat.ID, message.MessageID); err != nil {
			// A missing pin is cosmetic; the thread still works.
			g.logger.Warn("pin failed",
				"message_id", message.MessageID,
				"error", err,
			)
		}
	}

	return bridge.CardRef{ChatID: message.Chat.ID, MessageID: message.MessageID}, nil
}

// EditMessage rewrites a previously posted message in place.
func (g *Group) EditMessage(ctx context.Context, ref bridge.CardRef, text string) error {
	return g.client.EditMessageText(ctx, ref.ChatID, ref.MessageID, text)
}

// StripControls removes the persistent reply keyboard from a thread.
// Keyboard removal rides on a message, so a short closed notice is
// posted as the vehicle.
func (g *Group) StripControls(ctx context.Context, threadID int64) error {
	_, err := g.client.SendMessage(ctx, SendMessageRequest{
		ChatID:      g.groupID,
		ThreadID:    threadID,
		Text:        "Dialog closed.",
		ReplyMarkup: ReplyKeyboardRemove{RemoveKeyboard: true},
	})
	return err
}
