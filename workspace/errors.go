// Copyright 2026 The Tether Authors
// SPDX-License-Identifier: Apache-2.0

package workspace

import (
	"errors"
	"fmt"
)

// APIError represents a structured error response from the Bot API.
// Callers can use errors.As to extract the structured information:
//
//	var apiErr *workspace.APIError
//	if errors.As(err, &apiErr) {
//	    if apiErr.Code == 403 { ... }
//	}
type APIError struct {
	// Code is the Bot API error_code (mirrors HTTP status codes:
	// 400 bad request, 403 forbidden, 429 too many requests).
	Code int `json:"error_code"`
	// Description is the human-readable error from the API.
	Description string `json:"description"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("workspace: api error %d: %s", e.Code, e.Description)
}

// IsAPIError checks whether err is a *APIError with the given code.
func IsAPIError(err error, code int) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == code
	}
	return false
}
