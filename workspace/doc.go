// Copyright 2026 The Tether Authors
// SPDX-License-Identifier: Apache-2.0

// Package workspace is the chat-workspace side of the Tether bridge: a
// hand-rolled Telegram Bot API client plus the two update delivery
// mechanisms (long-poll pull and webhook push).
//
// [Client] covers the handful of Bot API methods the bridge needs —
// forum topic creation, message send/edit, keyboards, callback
// acknowledgement, and webhook management. All calls go through one
// doCall core that handles the request/response envelope and turns
// API-level failures into typed [*APIError] values.
//
// [Group] scopes a Client to the single agent group chat and
// implements the bridge's workspace operations (thread creation with a
// pinned starter, controlled message posting, card edits, keyboard
// stripping).
//
// [RunUpdateLoop] long-polls getUpdates and feeds each update to a
// handler; [WebhookHandler] is the push-mode equivalent. The bridge
// core is agnostic to which one is running.
package workspace
