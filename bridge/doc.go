// Copyright 2026 The Tether Authors
// SPDX-License-Identifier: Apache-2.0

// Package bridge is the routing core of Tether: it decides, for every
// inbound event, which support session it belongs to, which side to
// notify, and how the session's state changes.
//
// A session is a logical conversation between one anonymous visitor
// and the support team. Three identifier spaces meet here:
//
//   - connection ids: ephemeral, assigned by the duplex-channel
//     transport, valid for one websocket connection
//   - session ids: durable for the process lifetime, visitor-proposed
//     or minted server-side as collision-resistant hex
//   - thread ids: assigned by the chat workspace, one thread per
//     session, created lazily and never recreated
//
// [Registry] owns the maps between these spaces. [Bridge] mutates the
// registry and drives the side effects: on a session's first message
// it posts a summary card to a fixed requests thread, logs to a fixed
// audit thread, creates the session's workspace thread, and mirrors
// the message into it; subsequent messages relay straight into the
// thread. Agent messages travel the other way, resolved to a session
// by thread id or by the #hexid inline marker convention. Either side
// can close: the close sequence is five independent best-effort steps,
// each tolerating repeats, so concurrent or duplicate closes degrade
// into harmless no-ops instead of errors.
//
// Conceptually a session moves UNINITIALIZED → ACTIVE(no thread) →
// ACTIVE(threaded) → CLOSED. CLOSED is soft: thread and card bindings
// survive so that late agent replies into a closed thread can still be
// attributed (and dropped quietly when the visitor is gone) rather
// than crashing or misrouting.
//
// The bridge talks to its collaborators through the [Workspace] and
// [Notifier] interfaces; transports depend on this package, never the
// other way around.
package bridge
