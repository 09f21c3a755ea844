// Praetor - Route Authorization and Security Middleware for Content Platforms
// Copyright 2026 M. Castellan (praetor-sec)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/praetor-sec/praetor

package authz

import "github.com/praetor-sec/praetor/internal/models"

// GrantSatisfies reports whether a granted permission satisfies a required
// one. A grant g satisfies a requirement r when:
//
//  1. g is the super-admin wildcard (resource "*", action "manage"), or
//  2. g.Resource == r.Resource, g's action is "manage" or equals r's
//     action, and the scopes are compatible: a requirement without a scope
//     is always compatible; a grant scoped "all" covers everything;
//     otherwise the scopes must be equal (so "own" satisfies only "own").
func GrantSatisfies(grant, req models.Permission) bool {
	if grant.Resource == models.ResourceWildcard && grant.Action == models.ActionManage {
		return true
	}

	if grant.Resource != req.Resource {
		return false
	}

	if grant.Action != models.ActionManage && grant.Action != req.Action {
		return false
	}

	return scopeCompatible(grant.Scope, req.Scope)
}

// scopeCompatible implements the scope rules of GrantSatisfies.
func scopeCompatible(grantScope, reqScope string) bool {
	switch {
	case reqScope == "":
		return true
	case grantScope == models.ScopeAll:
		return true
	default:
		return grantScope == reqScope
	}
}
