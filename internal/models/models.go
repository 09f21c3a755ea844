// Praetor - Route Authorization and Security Middleware for Content Platforms
// Copyright 2026 M. Castellan (praetor-sec)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/praetor-sec/praetor

// Package models defines the shared data types for route authorization:
// permissions, route configurations, auth tokens, and security events.
//
// These types carry no behavior beyond simple accessors and constructors;
// the matching, resolution, and evaluation logic lives in the routes,
// authz, and pipeline packages.
package models

import "time"

// Scope values for permissions.
const (
	// ScopeOwn limits a permission to the caller's own resources.
	ScopeOwn = "own"

	// ScopeAll grants a permission over every resource of the type.
	ScopeAll = "all"
)

// Well-known actions. Any string is a valid action; "manage" is special:
// a grant with action "manage" satisfies every action on its resource.
const (
	ActionRead   = "read"
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
	ActionManage = "manage"
	ActionExport = "export"
)

// ResourceWildcard combined with ActionManage forms the super-admin grant
// that subsumes every permission.
const ResourceWildcard = "*"

// Permission describes an allowed operation as a (resource, action, scope)
// triple. Resource and Action are always present; Scope is optional.
type Permission struct {
	Resource string `json:"resource" validate:"required"`
	Action   string `json:"action" validate:"required"`
	Scope    string `json:"scope,omitempty" validate:"omitempty,oneof=own all"`
}

// String renders the permission as resource:action[:scope] for logs and
// deny reasons.
func (p Permission) String() string {
	s := p.Resource + ":" + p.Action
	if p.Scope != "" {
		s += ":" + p.Scope
	}
	return s
}

// RouteConfig maps a route pattern to its protection requirements.
//
// Pattern is a /-separated path template where a segment [name] binds one
// path segment and [...name] binds the remainder of the path.
type RouteConfig struct {
	Pattern     string       `json:"pattern" validate:"required,routepattern"`
	Permissions []Permission `json:"permissions" validate:"dive"`
	Description string       `json:"description" validate:"required"`

	// IsPublic marks the route reachable without authentication.
	// A public route should carry no permissions.
	IsPublic bool `json:"isPublic,omitempty"`

	// RequiresAuth marks the route as needing a valid session but no
	// specific permission.
	RequiresAuth bool `json:"requiresAuth,omitempty"`

	// Methods restricts the config to specific HTTP methods.
	// Empty means the config applies to every method.
	Methods []string `json:"methods,omitempty" validate:"dive,httpmethod"`

	// RateLimit optionally overrides the limiter tier for this route.
	RateLimit *RouteRateLimit `json:"rateLimit,omitempty"`

	// CacheTTL is a caching hint for downstream handlers, in seconds.
	CacheTTL int `json:"cacheTtl,omitempty"`
}

// RouteRateLimit is a per-route rate limit hint.
// Window strings use the form "<n><unit>" with unit one of s, m, h, d.
type RouteRateLimit struct {
	Requests int    `json:"requests" validate:"gt=0"`
	Window   string `json:"window" validate:"rlwindow"`
}

// RouteMatch is the result of matching a concrete path against the table.
type RouteMatch struct {
	Pattern     string            `json:"pattern"`
	Permissions []Permission      `json:"permissions"`
	Params      map[string]string `json:"params"`
	IsMatch     bool              `json:"isMatch"`
}

// AuthToken is the caller identity supplied by the external token provider.
// The core reads only ID and Role.
type AuthToken struct {
	ID    string `json:"id"`
	Role  string `json:"role"`
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
}

// SecurityResult classifies the outcome of an authorization attempt.
type SecurityResult string

const (
	ResultSuccess      SecurityResult = "SUCCESS"
	ResultUnauthorized SecurityResult = "UNAUTHORIZED"
	ResultForbidden    SecurityResult = "FORBIDDEN"
	ResultRateLimited  SecurityResult = "RATE_LIMITED"
	ResultBlocked      SecurityResult = "BLOCKED"
)

// SecurityEvent is the append-only telemetry record produced once per
// non-bypassed request. Events are forwarded to the audit sink immediately
// and never mutated afterwards.
type SecurityEvent struct {
	UserID    string         `json:"userId"`
	UserRole  string         `json:"userRole"`
	Pathname  string         `json:"pathname"`
	Result    SecurityResult `json:"result"`
	Reason    string         `json:"reason"`
	IPAddress string         `json:"ipAddress"`
	UserAgent string         `json:"userAgent"`
	Timestamp time.Time      `json:"timestamp"`
	RequestID string         `json:"requestId"`

	// AttemptedEscalation flags FORBIDDEN results against the admin
	// namespace by a non-admin caller.
	AttemptedEscalation bool `json:"attemptedEscalation,omitempty"`
}
