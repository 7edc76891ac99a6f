// Copyright 2026 The Tether Authors
// SPDX-License-Identifier: Apache-2.0

package workspace

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/tether-support/tether/lib/clock"
	"github.com/tether-support/tether/lib/netutil"
)

// UpdateHandler consumes one inbound update. Handlers are invoked
// sequentially in update order.
type UpdateHandler func(ctx context.Context, update Update)

const (
	// longPollTimeout is the server-side hold for getUpdates, in
	// seconds.
	longPollTimeout = 30

	updateRetryDelay    = 1 * time.Second
	updateRetryDelayMax = 30 * time.Second
)

// RunUpdateLoop long-polls for updates until ctx is canceled, handing
// each update to handler. Poll failures back off exponentially and the
// loop keeps going; only context cancellation ends it.
func RunUpdateLoop(ctx context.Context, client *Client, handler UpdateHandler, clk clock.Clock, logger *slog.Logger) error {
	if clk == nil {
		clk = clock.Real()
	}
	if logger == nil {
		logger = slog.Default()
	}

	var offset int64
	delay := updateRetryDelay
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		updates, err := client.GetUpdates(ctx, offset, longPollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logger.Warn("update poll failed", "error", err, "retry_in", delay)
			clk.Sleep(delay)
			delay = min(delay*2, updateRetryDelayMax)
			continue
		}
		delay = updateRetryDelay

		for _, update := range updates {
			offset = update.UpdateID + 1
			handler(ctx, update)
		}
	}
}

// maxWebhookBody bounds a pushed update. Real updates are a few KB.
const maxWebhookBody = 1 << 20

// WebhookHandler returns an http.Handler that decodes one pushed
// update per POST and hands it to handler. The push sender retries on
// non-200 responses, so malformed bodies are answered 200 after
// logging: redelivery would fail the same way.
func WebhookHandler(handler UpdateHandler, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var update Update
		body := http.MaxBytesReader(w, r.Body, maxWebhookBody)
		if err := netutil.DecodeResponse(body, &update); err != nil {
			logger.Warn("malformed webhook update", "error", err)
			w.WriteHeader(http.StatusOK)
			return
		}

		handler(r.Context(), update)
		w.WriteHeader(http.StatusOK)
	})
}
