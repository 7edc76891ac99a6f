// Copyright 2026 The Tether Authors
// SPDX-License-Identifier: Apache-2.0

// Package ops exposes a local operator interface over a Unix socket:
// process status, the live session table, and forced session close.
// The protocol is one CBOR request and one CBOR response per
// connection.
package ops
