// Copyright 2026 The Tether Authors
// SPDX-License-Identifier: Apache-2.0

// Package channel is the visitor-facing websocket endpoint. It owns
// the connection set, frames events as small JSON envelopes, and
// hands validated inbound events to a routing handler. It knows
// nothing about sessions or the workspace: the handler resolves those.
package channel
