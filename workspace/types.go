// Copyright 2026 The Tether Authors
// SPDX-License-Identifier: Apache-2.0

package workspace

import "fmt"

// Update is one inbound workspace event. Exactly one of the pointer
// fields is set per update; the bridge only subscribes to messages and
// callback queries.
type Update struct {
	UpdateID      int64          `json:"update_id"`
	Message       *Message       `json:"message,omitempty"`
	CallbackQuery *CallbackQuery `json:"callback_query,omitempty"`
}

// Message is a workspace chat message.
type Message struct {
	MessageID       int64    `json:"message_id"`
	MessageThreadID int64    `json:"message_thread_id,omitempty"`
	From            *User    `json:"from,omitempty"`
	Chat            Chat     `json:"chat"`
	Date            int64    `json:"date"`
	Text            string   `json:"text,omitempty"`
	Caption         string   `json:"caption,omitempty"`
	ReplyToMessage  *Message `json:"reply_to_message,omitempty"`
}

// BodyText returns the message text, falling back to the media caption.
// Agents sometimes reply to visitors with captioned screenshots; the
// caption carries the routable text in that case.
func (m *Message) BodyText() string {
	if m.Text != "" {
		return m.Text
	}
	return m.Caption
}

// User is a workspace account.
type User struct {
	ID       int64  `json:"id"`
	IsBot    bool   `json:"is_bot"`
	Username string `json:"username,omitempty"`
}

// Handle returns the best human-readable identifier for a user: the
// @username when set, otherwise the numeric id.
func (u *User) Handle() string {
	if u == nil {
		return ""
	}
	if u.Username != "" {
		return "@" + u.Username
	}
	return fmt.Sprintf("%d", u.ID)
}

// Chat identifies the conversation a message belongs to.
type Chat struct {
	ID   int64  `json:"id"`
	Type string `json:"type"` // "private", "group", "supergroup", "channel"
}

// IsGroup reports whether the chat is a group or supergroup. The
// bridge ignores everything else on the agent side.
func (c Chat) IsGroup() bool {
	return c.Type == "group" || c.Type == "supergroup"
}

// CallbackQuery is a button press on an inline keyboard.
type CallbackQuery struct {
	ID      string   `json:"id"`
	From    *User    `json:"from,omitempty"`
	Message *Message `json:"message,omitempty"`
	Data    string   `json:"data,omitempty"`
}

// ForumTopic is the result of createForumTopic.
type ForumTopic struct {
	MessageThreadID int64  `json:"message_thread_id"`
	Name            string `json:"name"`
}

// WebhookInfo is the result of getWebhookInfo.
type WebhookInfo struct {
	URL                string `json:"url"`
	PendingUpdateCount int    `json:"pending_update_count"`
	LastErrorDate      int64  `json:"last_error_date,omitempty"`
	LastErrorMessage   string `json:"last_error_message,omitempty"`
}

// InlineKeyboardMarkup attaches URL/callback buttons under a message.
type InlineKeyboardMarkup struct {
	InlineKeyboard [][]InlineKeyboardButton `json:"inline_keyboard"`
}

// InlineKeyboardButton is one inline button. Exactly one of URL or
// CallbackData is set.
type InlineKeyboardButton struct {
	Text         string `json:"text"`
	URL          string `json:"url,omitempty"`
	CallbackData string `json:"callback_data,omitempty"`
}

// ReplyKeyboardMarkup shows a persistent reply keyboard to agents in
// a thread.
type ReplyKeyboardMarkup struct {
	Keyboard       [][]KeyboardButton `json:"keyboard"`
	ResizeKeyboard bool               `json:"resize_keyboard,omitempty"`
}

// KeyboardButton is one reply-keyboard label. Pressing it sends the
// label text as an ordinary message, which the router matches as a
// textual control.
type KeyboardButton struct {
	Text string `json:"text"`
}

// ReplyKeyboardRemove strips any reply keyboard from the client UI.
type ReplyKeyboardRemove struct {
	RemoveKeyboard bool `json:"remove_keyboard"`
}
