// Copyright 2026 The Tether Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"log/slog"

	"github.com/tether-support/tether/bridge"
	"github.com/tether-support/tether/workspace"
)

// router is the slice of the bridge the dispatcher drives.
type router interface {
	HandleAgentMessage(ctx context.Context, event bridge.AgentEvent)
	HandleCallback(ctx context.Context, event bridge.CallbackEvent)
	HandleCloseCommand(ctx context.Context, event bridge.AgentEvent)
}

// workspaceAPI is the slice of the workspace client the dispatcher
// calls directly (everything else goes through the bridge).
type workspaceAPI interface {
	AnswerCallbackQuery(ctx context.Context, callbackQueryID string) error
	SendMessage(ctx context.Context, request workspace.SendMessageRequest) (*workspace.Message, error)
}

// dispatcher turns raw workspace updates into bridge events. It
// filters out everything the bridge must never see: bot-authored
// messages (including the bridge's own posts) and chats other than
// the configured agent group.
type dispatcher struct {
	client  workspaceAPI
	bridge  router
	groupID int64
	logger  *slog.Logger
}

func (d *dispatcher) dispatch(ctx context.Context, update workspace.Update) {
	switch {
	case update.CallbackQuery != nil:
		d.dispatchCallback(ctx, update.CallbackQuery)
	case update.Message != nil:
		d.dispatchMessage(ctx, update.Message)
	}
}

func (d *dispatcher) dispatchCallback(ctx context.Context, query *workspace.CallbackQuery) {
	// Acknowledge first so the agent's client stops spinning even if
	// routing below drops the press.
	if err := d.client.AnswerCallbackQuery(ctx, query.ID); err != nil {
		d.logger.Warn("callback ack failed", "callback_id", query.ID, "error", err)
	}

	event := bridge.CallbackEvent{
		Data:  query.Data,
		Actor: query.From.Handle(),
	}
	if query.Message != nil {
		event.Card = bridge.CardRef{
			ChatID:    query.Message.Chat.ID,
			MessageID: query.Message.MessageID,
		}
	}
	d.bridge.HandleCallback(ctx, event)
}

func (d *dispatcher) dispatchMessage(ctx context.Context, message *workspace.Message) {
	if message.From != nil && message.From.IsBot {
		return
	}

	text := message.BodyText()

	// /chatid answers in any chat: agents run it while wiring up a
	// new group, before the config points at it.
	if command(text) == "/chatid" {
		d.reply(ctx, message, chatIDReply(message.Chat.ID, message.MessageThreadID))
		return
	}

	if !message.Chat.IsGroup() || message.Chat.ID != d.groupID {
		return
	}
	if text == "" {
		return
	}

	event := bridge.AgentEvent{
		ThreadID: message.MessageThreadID,
		Text:     text,
		Actor:    message.From.Handle(),
	}
	if message.ReplyToMessage != nil {
		event.ReplyToText = message.ReplyToMessage.BodyText()
	}

	if command(text) == "/close" {
		d.bridge.HandleCloseCommand(ctx, event)
		return
	}
	d.bridge.HandleAgentMessage(ctx, event)
}

func (d *dispatcher) reply(ctx context.Context, message *workspace.Message, text string) {
	_, err := d.client.SendMessage(ctx, workspace.SendMessageRequest{
		ChatID:   message.Chat.ID,
		ThreadID: message.MessageThreadID,
		Text:     text,
	})
	if err != nil {
		d.logger.Warn("reply failed", "chat_id", message.Chat.ID, "error", err)
	}
}
