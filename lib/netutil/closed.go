// Copyright 2026 The Tether Authors
// SPDX-License-Identifier: Apache-2.0

package netutil

import (
	"errors"
	"io"
	"net"
	"syscall"
)

// IsExpectedCloseError reports whether err is a normal connection
// termination: EOF, closed connection, broken pipe, or connection reset.
// These errors occur when a visitor's browser drops the duplex channel and
// the server's in-flight read or write fails as a result.
//
// Visitors close their side abruptly (tab close, navigation, network loss),
// so the surviving side sees ECONNRESET and EPIPE as often as clean EOF.
// All four are expected and should not be logged as errors.
func IsExpectedCloseError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
		return true
	}
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return errno == syscall.EPIPE || errno == syscall.ECONNRESET
	}
	return false
}
