// Copyright 2026 The Tether Authors
// SPDX-License-Identifier: Apache-2.0

package bridge

import (
	"crypto/rand"
	"encoding/hex"
)

// sessionIDBytes is the entropy of a minted session id. 8 random
// bytes give a 16-character hex id: comfortably inside the inline
// marker grammar (6–32 hex chars) and collision-resistant for the
// lifetime of a single process.
const sessionIDBytes = 8

// NewSessionID mints a fresh session id as lowercase hex. Minted ids
// always satisfy the inline marker grammar, so agents can address
// them with the #hexid convention.
func NewSessionID() string {
	buffer := make([]byte, sessionIDBytes)
	rand.Read(buffer) // never fails; see crypto/rand docs
	return hex.EncodeToString(buffer)
}
