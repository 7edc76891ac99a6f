// Copyright 2026 The Tether Authors
// SPDX-License-Identifier: Apache-2.0

package netutil

import (
	"errors"
	"io"
	"net"
	"strings"
	"syscall"
	"testing"
)

func TestReadResponse(t *testing.T) {
	data, err := ReadResponse(strings.NewReader(`{"ok":true}`))
	if err != nil {
		t.Fatalf("ReadResponse failed: %v", err)
	}
	if string(data) != `{"ok":true}` {
		t.Errorf("unexpected body: %s", data)
	}
}

func TestDecodeResponse(t *testing.T) {
	var result struct {
		OK bool `json:"ok"`
	}
	if err := DecodeResponse(strings.NewReader(`{"ok":true}`), &result); err != nil {
		t.Fatalf("DecodeResponse failed: %v", err)
	}
	if !result.OK {
		t.Error("expected ok=true")
	}

	if err := DecodeResponse(strings.NewReader("not json"), &result); err == nil {
		t.Error("expected error for invalid JSON")
	}
}

func TestIsExpectedCloseError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"EOF", io.EOF, true},
		{"wrapped EOF", errors.Join(errors.New("read"), io.EOF), true},
		{"net.ErrClosed", net.ErrClosed, true},
		{"EPIPE", syscall.EPIPE, true},
		{"ECONNRESET", syscall.ECONNRESET, true},
		{"other errno", syscall.EACCES, false},
		{"arbitrary", errors.New("boom"), false},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := IsExpectedCloseError(test.err); got != test.want {
				t.Errorf("IsExpectedCloseError(%v) = %v, want %v", test.err, got, test.want)
			}
		})
	}
}
