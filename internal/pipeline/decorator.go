// Praetor - Route Authorization and Security Middleware for Content Platforms
// Copyright 2026 M. Castellan (praetor-sec)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/praetor-sec/praetor

package pipeline

import (
	"context"
	"net/http"

	"github.com/praetor-sec/praetor/internal/auth"
	"github.com/praetor-sec/praetor/internal/logging"
	"github.com/praetor-sec/praetor/internal/models"
)

// PermissionChecker decides whether an authenticated caller holds a
// single permission. It is the narrow interface used by the per-handler
// decorator, as opposed to the role-based evaluator the whole-app
// pipeline uses.
type PermissionChecker interface {
	HasPermission(token *models.AuthToken, perm models.Permission) bool
}

type tokenContextKey struct{}

// TokenFromContext returns the authenticated caller placed in the
// request context by RequirePermissions, or nil.
func TokenFromContext(ctx context.Context) *models.AuthToken {
	token, _ := ctx.Value(tokenContextKey{}).(*models.AuthToken)
	return token
}

// RequirePermissions wraps a single handler with authentication and a
// permission check, for routes registered outside the whole-app
// middleware. The caller is allowed when ANY of the required permissions
// is held. The verified token is placed in the request context.
func RequirePermissions(tokens auth.TokenProvider, checker PermissionChecker, required ...models.Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := logging.RequestIDFromContext(r.Context())
			if requestID == "" {
				requestID = logging.GenerateRequestID()
				r = r.WithContext(logging.ContextWithRequestID(r.Context(), requestID))
			}
			w.Header().Set("x-request-id", requestID)

			token, err := tokens.GetToken(r.Context(), r)
			if err != nil {
				writeJSONError(w, http.StatusUnauthorized,
					models.NewErrorEnvelope(models.CodeUnauthorized,
						"Authentication required", authFailureReason(err),
						r.URL.Path, requestID))
				return
			}

			allowed := false
			for _, perm := range required {
				if checker.HasPermission(token, perm) {
					allowed = true
					break
				}
			}
			if !allowed {
				writeJSONError(w, http.StatusForbidden,
					models.NewErrorEnvelope(models.CodeForbidden,
						"Insufficient permissions", "insufficient_permissions",
						r.URL.Path, requestID))
				return
			}

			next.ServeHTTP(w, r.WithContext(
				context.WithValue(r.Context(), tokenContextKey{}, token)))
		})
	}
}

// RolePermissionChecker adapts the role evaluator to the per-handler
// checker interface by reading the caller's role from the token.
type RolePermissionChecker struct {
	Evaluator PermissionEvaluator
}

// HasPermission reports whether the token's role holds perm.
func (c RolePermissionChecker) HasPermission(token *models.AuthToken, perm models.Permission) bool {
	if token == nil {
		return false
	}
	return c.Evaluator.HasPermission(token.Role, []models.Permission{perm})
}
