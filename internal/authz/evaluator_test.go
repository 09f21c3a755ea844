// Praetor - Route Authorization and Security Middleware for Content Platforms
// Copyright 2026 M. Castellan (praetor-sec)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/praetor-sec/praetor

package authz

import (
	"testing"

	"github.com/praetor-sec/praetor/internal/models"
)

func newTestEvaluator(t *testing.T) *Evaluator {
	t.Helper()
	e, err := NewEvaluator(DefaultConfig())
	if err != nil {
		t.Fatalf("NewEvaluator: %v", err)
	}
	t.Cleanup(e.Close)
	return e
}

func TestAdminWildcardSatisfiesEverything(t *testing.T) {
	e := newTestEvaluator(t)

	requirements := [][]models.Permission{
		{perm("products", "read", "all")},
		{perm("users", "delete", "all")},
		{perm("settings", "manage", "all")},
		{perm("nonexistent", "export", "own")},
	}

	for _, req := range requirements {
		if !e.HasPermission(RoleAdmin, req) {
			t.Errorf("ADMIN denied %+v", req)
		}
	}
}

func TestEditorGrants(t *testing.T) {
	e := newTestEvaluator(t)

	tests := []struct {
		name string
		req  models.Permission
		want bool
	}{
		{"products read via manage", perm("products", "read", "all"), true},
		{"products delete via manage", perm("products", "delete", "all"), true},
		{"media update via manage", perm("media", "update", "all"), true},
		{"orders read all", perm("orders", "read", "all"), true},
		{"orders update denied", perm("orders", "update", "all"), false},
		{"users denied entirely", perm("users", "read", "all"), false},
		{"settings denied", perm("settings", "manage", "all"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := e.HasPermission(RoleEditor, []models.Permission{tt.req}); got != tt.want {
				t.Errorf("EDITOR %+v = %v, want %v", tt.req, got, tt.want)
			}
		})
	}
}

func TestViewerGrants(t *testing.T) {
	e := newTestEvaluator(t)

	tests := []struct {
		name string
		req  models.Permission
		want bool
	}{
		{"products read", perm("products", "read", "all"), true},
		{"products create denied", perm("products", "create", "all"), false},
		{"orders read own", perm("orders", "read", "own"), true},
		{"orders read all denied", perm("orders", "read", "all"), false},
		{"users read denied", perm("users", "read", "all"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := e.HasPermission(RoleViewer, []models.Permission{tt.req}); got != tt.want {
				t.Errorf("VIEWER %+v = %v, want %v", tt.req, got, tt.want)
			}
		})
	}
}

func TestUnknownRoleDenied(t *testing.T) {
	e := newTestEvaluator(t)

	if e.HasPermission("INTRUDER", []models.Permission{perm("products", "read", "all")}) {
		t.Error("unknown role was granted a permission")
	}
	if e.HasPermission("", []models.Permission{perm("products", "read", "all")}) {
		t.Error("empty role was granted a permission")
	}
}

func TestEmptyRequirementsDenied(t *testing.T) {
	e := newTestEvaluator(t)

	if e.HasPermission(RoleAdmin, nil) {
		t.Error("empty requirement list should deny, even for ADMIN")
	}
}

func TestAnyOfSemantics(t *testing.T) {
	e := newTestEvaluator(t)

	// VIEWER cannot create products but can read them; any-of must allow.
	required := []models.Permission{
		perm("products", "create", "all"),
		perm("products", "read", "all"),
	}
	if !e.HasPermission(RoleViewer, required) {
		t.Error("any-of semantics: satisfied second requirement should allow")
	}
}

func TestDecisionCacheConsistency(t *testing.T) {
	e := newTestEvaluator(t)
	req := []models.Permission{perm("products", "read", "all")}

	first := e.HasPermission(RoleViewer, req)
	second := e.HasPermission(RoleViewer, req)
	if first != second {
		t.Errorf("cached decision diverged: first %v, second %v", first, second)
	}
}

func TestGrantsInspection(t *testing.T) {
	e := newTestEvaluator(t)

	if rows := e.Grants(RoleAdmin); len(rows) == 0 {
		t.Error("expected at least one grant row for ADMIN")
	}
	if rows := e.Grants("INTRUDER"); len(rows) != 0 {
		t.Errorf("unexpected grants for unknown role: %v", rows)
	}
}
