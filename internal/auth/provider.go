// Praetor - Route Authorization and Security Middleware for Content Platforms
// Copyright 2026 M. Castellan (praetor-sec)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/praetor-sec/praetor

// Package auth extracts and verifies caller identity from incoming
// requests. The pipeline depends only on the TokenProvider interface;
// the JWT provider is the default implementation and the breaker
// wrapper bounds retrieval latency against a slow identity backend.
package auth

import (
	"context"
	"errors"
	"net/http"

	"github.com/praetor-sec/praetor/internal/models"
)

var (
	// ErrNoToken means the request carried no credentials at all.
	ErrNoToken = errors.New("auth: no token present")

	// ErrInvalidToken means credentials were present but failed
	// verification (bad signature, expired, malformed claims).
	ErrInvalidToken = errors.New("auth: invalid token")

	// ErrTokenUnavailable means token retrieval itself failed: the
	// provider timed out or its circuit is open. Callers treat this the
	// same as an unauthenticated request rather than failing open.
	ErrTokenUnavailable = errors.New("auth: token retrieval unavailable")
)

// TokenProvider retrieves the verified identity for a request.
//
// Implementations must return ErrNoToken when the request is anonymous
// and ErrInvalidToken when credentials fail verification. Any other
// error is an infrastructure failure.
type TokenProvider interface {
	GetToken(ctx context.Context, r *http.Request) (*models.AuthToken, error)
}
