// Copyright 2026 The Tether Authors
// SPDX-License-Identifier: Apache-2.0

package workspace

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/tether-support/tether/lib/netutil"
)

// ClientConfig holds configuration for creating a Client.
type ClientConfig struct {
	// APIURL is the base URL of the Bot API
	// (e.g. "https://api.telegram.org").
	APIURL string
	// Token is the bot token. Required.
	Token string
	// HTTPClient is used for all requests. If nil, http.DefaultClient
	// is used.
	HTTPClient *http.Client
	// Logger is used for structured logging. If nil, slog.Default()
	// is used.
	Logger *slog.Logger
}

// Client is a Bot API client. It covers the subset of methods the
// bridge uses; every call goes through doCall, which handles the
// request/response envelope and typed API errors.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a new Bot API client.
func NewClient(config ClientConfig) (*Client, error) {
	if config.APIURL == "" {
		return nil, fmt.Errorf("workspace: APIURL is required")
	}
	if config.Token == "" {
		return nil, fmt.Errorf("workspace: Token is required")
	}
	if _, err := url.Parse(config.APIURL); err != nil {
		return nil, fmt.Errorf("workspace: invalid APIURL %q: %w", config.APIURL, err)
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL:    strings.TrimRight(config.APIURL, "/"),
		token:      config.Token,
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// envelope is the Bot API response wrapper shared by every method.
type envelope struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result,omitempty"`
	ErrorCode   int             `json:"error_code,omitempty"`
	Description string          `json:"description,omitempty"`
}

// doCall performs one Bot API method call. Parameters are sent as a
// JSON body; the decoded result field is unmarshaled into result when
// result is non-nil. API-level failures ({"ok":false}) return a
// *APIError.
func (c *Client) doCall(ctx context.Context, method string, params any, result any) error {
	var body *bytes.Reader
	if params != nil {
		encoded, err := json.Marshal(params)
		if err != nil {
			return fmt.Errorf("workspace: encoding %s params: %w", method, err)
		}
		body = bytes.NewReader(encoded)
	} else {
		body = bytes.NewReader(nil)
	}

	requestURL := c.baseURL + "/bot" + c.token + "/" + method
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, requestURL, body)
	if err != nil {
		return fmt.Errorf("workspace: creating %s request: %w", method, err)
	}
	request.Header.Set("Content-Type", "application/json")

	response, err := c.httpClient.Do(request)
	if err != nil {
		return fmt.Errorf("workspace: %s request failed: %w", method, err)
	}
	defer response.Body.Close()

	responseBody, err := netutil.ReadResponse(response.Body)
	if err != nil {
		return fmt.Errorf("workspace: reading %s response: %w", method, err)
	}

	var env envelope
	if err := json.Unmarshal(responseBody, &env); err != nil {
		// Non-JSON response. Should not happen with the real API,
		// but fail loud with the raw body.
		return fmt.Errorf("workspace: unexpected %d response from %s: %s",
			response.StatusCode, method, string(responseBody))
	}

	if !env.OK {
		return &APIError{Code: env.ErrorCode, Description: env.Description}
	}

	if result != nil {
		if err := json.Unmarshal(env.Result, result); err != nil {
			return fmt.Errorf("workspace: parsing %s result: %w", method, err)
		}
	}
	return nil
}

// CreateForumTopic creates a new forum topic (thread) in a group chat
// and returns its thread id.
func (c *Client) CreateForumTopic(ctx context.Context, chatID int64, name string) (int64, error) {
	params := map[string]any{
		"chat_id": chatID,
		"name":    name,
	}
	var topic ForumTopic
	if err := c.doCall(ctx, "createForumTopic", params, &topic); err != nil {
		return 0, fmt.Errorf("workspace: createForumTopic: %w", err)
	}
	return topic.MessageThreadID, nil
}

// SendMessageRequest holds sendMessage parameters. ThreadID zero means
// the chat's general timeline. ReplyMarkup, when set, must be one of
// InlineKeyboardMarkup, ReplyKeyboardMarkup, or ReplyKeyboardRemove.
type SendMessageRequest struct {
	ChatID      int64
	ThreadID    int64
	Text        string
	ReplyMarkup any
}

// SendMessage posts a message and returns it (the caller keeps the
// message id when it needs to edit the message later).
func (c *Client) SendMessage(ctx context.Context, request SendMessageRequest) (*Message, error) {
	params := map[string]any{
		"chat_id": request.ChatID,
		"text":    request.Text,
	}
	if request.ThreadID != 0 {
		params["message_thread_id"] = request.ThreadID
	}
	if request.ReplyMarkup != nil {
		params["reply_markup"] = request.ReplyMarkup
	}
	var message Message
	if err := c.doCall(ctx, "sendMessage", params, &message); err != nil {
		return nil, fmt.Errorf("workspace: sendMessage: %w", err)
	}
	return &message, nil
}

// EditMessageText rewrites the text of a previously sent message in
// place. Editing also drops any inline keyboard unless one is resent,
// which is exactly what closing a card wants.
func (c *Client) EditMessageText(ctx context.Context, chatID, messageID int64, text string) error {
	params := map[string]any{
		"chat_id":    chatID,
		"message_id": messageID,
		"text":       text,
	}
	if err := c.doCall(ctx, "editMessageText", params, nil); err != nil {
		return fmt.Errorf("workspace: editMessageText: %w", err)
	}
	return nil
}

// PinMessage pins a message in its chat without notifying members.
func (c *Client) PinMessage(ctx context.Context, chatID, messageID int64) error {
	params := map[string]any{
		"chat_id":              chatID,
		"message_id":           messageID,
		"disable_notification": true,
	}
	if err := c.doCall(ctx, "pinChatMessage", params, nil); err != nil {
		return fmt.Errorf("workspace: pinChatMessage: %w", err)
	}
	return nil
}

// AnswerCallbackQuery acknowledges a button press so the agent's
// client stops showing a progress spinner.
func (c *Client) AnswerCallbackQuery(ctx context.Context, callbackQueryID string) error {
	params := map[string]any{
		"callback_query_id": callbackQueryID,
	}
	if err := c.doCall(ctx, "answerCallbackQuery", params, nil); err != nil {
		return fmt.Errorf("workspace: answerCallbackQuery: %w", err)
	}
	return nil
}

// GetUpdates long-polls for new updates. timeout is the server-side
// hold in seconds; offset acknowledges all updates below it.
func (c *Client) GetUpdates(ctx context.Context, offset int64, timeout int) ([]Update, error) {
	params := map[string]any{
		"offset":          offset,
		"timeout":         timeout,
		"allowed_updates": []string{"message", "callback_query"},
	}
	var updates []Update
	if err := c.doCall(ctx, "getUpdates", params, &updates); err != nil {
		return nil, fmt.Errorf("workspace: getUpdates: %w", err)
	}
	return updates, nil
}

// GetWebhookInfo returns the currently registered webhook, if any.
func (c *Client) GetWebhookInfo(ctx context.Context) (*WebhookInfo, error) {
	var info WebhookInfo
	if err := c.doCall(ctx, "getWebhookInfo", nil, &info); err != nil {
		return nil, fmt.Errorf("workspace: getWebhookInfo: %w", err)
	}
	return &info, nil
}

// SetWebhook registers webhookURL for update push delivery.
func (c *Client) SetWebhook(ctx context.Context, webhookURL string) error {
	params := map[string]any{
		"url":             webhookURL,
		"allowed_updates": []string{"message", "callback_query"},
	}
	if err := c.doCall(ctx, "setWebhook", params, nil); err != nil {
		return fmt.Errorf("workspace: setWebhook: %w", err)
	}
	return nil
}

// DeleteWebhook removes any registered webhook, switching the account
// back to long-poll delivery. Pending updates are kept.
func (c *Client) DeleteWebhook(ctx context.Context) error {
	params := map[string]any{
		"drop_pending_updates": false,
	}
	if err := c.doCall(ctx, "deleteWebhook", params, nil); err != nil {
		return fmt.Errorf("workspace: deleteWebhook: %w", err)
	}
	return nil
}
