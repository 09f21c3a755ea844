// Praetor - Route Authorization and Security Middleware for Content Platforms
// Copyright 2026 M. Castellan (praetor-sec)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/praetor-sec/praetor

package pipeline

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/praetor-sec/praetor/internal/auth"
	"github.com/praetor-sec/praetor/internal/models"
)

// grantChecker allows a fixed permission set regardless of role.
type grantChecker struct {
	granted map[string]bool
}

func (c grantChecker) HasPermission(token *models.AuthToken, perm models.Permission) bool {
	return c.granted[perm.String()]
}

func TestRequirePermissionsAllowsGrantedCaller(t *testing.T) {
	tokens := &stubTokens{token: &models.AuthToken{ID: "u1", Role: "EDITOR"}}
	checker := grantChecker{granted: map[string]bool{"products:update:all": true}}

	var seen *models.AuthToken
	handler := RequirePermissions(tokens, checker,
		models.Permission{Resource: "products", Action: "update", Scope: "all"},
	)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = TokenFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("POST", "/api/products/5", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if seen == nil || seen.ID != "u1" {
		t.Errorf("context token = %+v, want the verified caller", seen)
	}
	if w.Header().Get("x-request-id") == "" {
		t.Error("x-request-id should be set")
	}
}

func TestRequirePermissionsAnyOfSemantics(t *testing.T) {
	tokens := &stubTokens{token: &models.AuthToken{ID: "u1", Role: "EDITOR"}}
	checker := grantChecker{granted: map[string]bool{"media:upload": true}}

	handler := RequirePermissions(tokens, checker,
		models.Permission{Resource: "products", Action: "update", Scope: "all"},
		models.Permission{Resource: "media", Action: "upload"},
	)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("POST", "/api/media", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 when any required permission is held", w.Code)
	}
}

func TestRequirePermissionsRejectsAnonymous(t *testing.T) {
	tokens := &stubTokens{err: auth.ErrNoToken}
	handler := RequirePermissions(tokens, grantChecker{},
		models.Permission{Resource: "products", Action: "read"},
	)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler must not run")
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/api/products", nil))

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
	env := decodeEnvelope(t, w)
	if env.Error.Code != models.CodeUnauthorized || env.Error.Details.Reason != "no_token" {
		t.Errorf("envelope = %+v, want UNAUTHORIZED/no_token", env.Error)
	}
}

func TestRequirePermissionsRejectsInsufficient(t *testing.T) {
	tokens := &stubTokens{token: &models.AuthToken{ID: "u1", Role: "VIEWER"}}
	handler := RequirePermissions(tokens, grantChecker{},
		models.Permission{Resource: "users", Action: "delete", Scope: "all"},
	)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler must not run")
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("DELETE", "/api/users/9", nil))

	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", w.Code)
	}
	env := decodeEnvelope(t, w)
	if env.Error.Code != models.CodeForbidden {
		t.Errorf("code = %q, want FORBIDDEN", env.Error.Code)
	}
}

func TestTokenFromContextEmpty(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	if token := TokenFromContext(r.Context()); token != nil {
		t.Errorf("TokenFromContext = %+v, want nil", token)
	}
}

func TestRolePermissionChecker(t *testing.T) {
	checker := RolePermissionChecker{Evaluator: &stubEvaluator{grants: map[string]bool{"ADMIN": true}}}

	perm := models.Permission{Resource: "settings", Action: "manage", Scope: "all"}
	if !checker.HasPermission(&models.AuthToken{Role: "ADMIN"}, perm) {
		t.Error("ADMIN should hold the permission")
	}
	if checker.HasPermission(&models.AuthToken{Role: "VIEWER"}, perm) {
		t.Error("VIEWER should not hold the permission")
	}
	if checker.HasPermission(nil, perm) {
		t.Error("nil token should never hold a permission")
	}
}
