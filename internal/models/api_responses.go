// Praetor - Route Authorization and Security Middleware for Content Platforms
// Copyright 2026 M. Castellan (praetor-sec)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/praetor-sec/praetor

package models

import "time"

// Error codes used in API error envelopes.
const (
	CodeUnauthorized  = "UNAUTHORIZED"
	CodeForbidden     = "FORBIDDEN"
	CodeRateLimited   = "RATE_LIMITED"
	CodeBlocked       = "BLOCKED"
	CodeInternalError = "INTERNAL_ERROR"
	CodeInvalidInput  = "INVALID_INPUT"
)

// ErrorEnvelope is the standardized error response body for API routes.
//
// Example:
//
//	{
//	  "success": false,
//	  "error": {
//	    "code": "UNAUTHORIZED",
//	    "message": "Authentication required",
//	    "details": {
//	      "reason": "no_token",
//	      "path": "/api/admin/users",
//	      "requestId": "4f1a..."
//	    },
//	    "timestamp": "2026-08-26T12:00:00Z"
//	  }
//	}
type ErrorEnvelope struct {
	Success bool     `json:"success"`
	Error   ErrorBody `json:"error"`
}

// ErrorBody carries the machine-readable error code, a human-readable
// message, and correlation details for offline investigation.
type ErrorBody struct {
	Code      string       `json:"code"`
	Message   string       `json:"message"`
	Details   ErrorDetails `json:"details"`
	Timestamp time.Time    `json:"timestamp"`
}

// ErrorDetails correlates the response with the emitted security event.
type ErrorDetails struct {
	Reason    string `json:"reason,omitempty"`
	Path      string `json:"path"`
	RequestID string `json:"requestId"`
}

// NewErrorEnvelope builds an error envelope with the current timestamp.
func NewErrorEnvelope(code, message, reason, path, requestID string) *ErrorEnvelope {
	return &ErrorEnvelope{
		Success: false,
		Error: ErrorBody{
			Code:    code,
			Message: message,
			Details: ErrorDetails{
				Reason:    reason,
				Path:      path,
				RequestID: requestID,
			},
			Timestamp: time.Now().UTC(),
		},
	}
}

// APIResponse is the standardized success wrapper for the admin API.
type APIResponse struct {
	Status   string      `json:"status"`
	Data     interface{} `json:"data,omitempty"`
	Metadata Metadata    `json:"metadata"`
	Error    *APIError   `json:"error,omitempty"`
}

// Metadata contains response metadata for observability.
type Metadata struct {
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
}

// APIError carries structured error details for admin API responses.
type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}
