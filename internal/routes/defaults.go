// Praetor - Route Authorization and Security Middleware for Content Platforms
// Copyright 2026 M. Castellan (praetor-sec)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/praetor-sec/praetor

package routes

import "github.com/praetor-sec/praetor/internal/models"

// DefaultConfigs returns the built-in route-permission table for a content
// management deployment. Declaration order matters: static routes precede
// the dynamic patterns that share their prefix.
func DefaultConfigs() []models.RouteConfig {
	return []models.RouteConfig{
		// Public surface
		{
			Pattern:     "/",
			Description: "Site home",
			IsPublic:    true,
		},
		{
			Pattern:     "/auth/login",
			Description: "Login page",
			IsPublic:    true,
		},
		{
			Pattern:     "/api/auth/[...provider]",
			Description: "Identity provider callback namespace",
			IsPublic:    true,
		},
		{
			Pattern:     "/api/public/[...path]",
			Description: "Public read-only API",
			IsPublic:    true,
		},
		{
			Pattern:     "/health",
			Description: "Liveness probe",
			IsPublic:    true,
		},
		{
			Pattern:     "/metrics",
			Description: "Prometheus scrape endpoint",
			IsPublic:    true,
		},

		// Authenticated, no specific permission
		{
			Pattern:      "/dashboard",
			Description:  "User dashboard",
			RequiresAuth: true,
		},
		{
			Pattern:      "/profile",
			Description:  "Own profile page",
			RequiresAuth: true,
		},
		{
			Pattern:      "/api/profile",
			Description:  "Own profile API",
			RequiresAuth: true,
		},

		// Admin web routes
		{
			Pattern:     "/admin",
			Description: "Admin overview",
			Permissions: []models.Permission{
				{Resource: "admin", Action: models.ActionRead, Scope: models.ScopeAll},
			},
		},
		{
			Pattern:     "/admin/users",
			Description: "User management",
			Permissions: []models.Permission{
				{Resource: "users", Action: models.ActionRead, Scope: models.ScopeAll},
			},
		},
		{
			Pattern:     "/admin/users/[id]",
			Description: "User detail",
			Permissions: []models.Permission{
				{Resource: "users", Action: models.ActionRead, Scope: models.ScopeAll},
			},
		},
		{
			Pattern:     "/admin/products",
			Description: "Product catalog management",
			Permissions: []models.Permission{
				{Resource: "products", Action: models.ActionRead, Scope: models.ScopeAll},
			},
		},
		{
			Pattern:     "/admin/products/new",
			Description: "Product creation form",
			Permissions: []models.Permission{
				{Resource: "products", Action: models.ActionCreate, Scope: models.ScopeAll},
			},
		},
		{
			Pattern:     "/admin/products/[id]/edit",
			Description: "Product editor",
			Permissions: []models.Permission{
				{Resource: "products", Action: models.ActionUpdate, Scope: models.ScopeAll},
			},
		},
		{
			Pattern:     "/admin/media/[...path]",
			Description: "Media library",
			Permissions: []models.Permission{
				{Resource: "media", Action: models.ActionRead, Scope: models.ScopeAll},
			},
		},
		{
			Pattern:     "/admin/settings",
			Description: "Site settings",
			Permissions: []models.Permission{
				{Resource: "settings", Action: models.ActionManage, Scope: models.ScopeAll},
			},
		},

		// Admin API routes, split by method
		{
			Pattern:     "/api/admin/users",
			Description: "List users",
			Methods:     []string{"GET"},
			Permissions: []models.Permission{
				{Resource: "users", Action: models.ActionRead, Scope: models.ScopeAll},
			},
		},
		{
			Pattern:     "/api/admin/users",
			Description: "Create user",
			Methods:     []string{"POST"},
			Permissions: []models.Permission{
				{Resource: "users", Action: models.ActionCreate, Scope: models.ScopeAll},
			},
		},
		{
			Pattern:     "/api/admin/users/[id]",
			Description: "Update or delete a user",
			Methods:     []string{"PUT", "PATCH", "DELETE"},
			Permissions: []models.Permission{
				{Resource: "users", Action: models.ActionManage, Scope: models.ScopeAll},
			},
		},
		{
			Pattern:     "/api/products",
			Description: "List products",
			Methods:     []string{"GET"},
			Permissions: []models.Permission{
				{Resource: "products", Action: models.ActionRead, Scope: models.ScopeAll},
			},
		},
		{
			Pattern:     "/api/products",
			Description: "Create product",
			Methods:     []string{"POST"},
			Permissions: []models.Permission{
				{Resource: "products", Action: models.ActionCreate, Scope: models.ScopeAll},
			},
			RateLimit: &models.RouteRateLimit{Requests: 30, Window: "1m"},
		},
		{
			Pattern:     "/api/products/[id]",
			Description: "Read a product",
			Methods:     []string{"GET"},
			Permissions: []models.Permission{
				{Resource: "products", Action: models.ActionRead, Scope: models.ScopeAll},
			},
		},
		{
			Pattern:     "/api/products/[id]",
			Description: "Update or delete a product",
			Methods:     []string{"PUT", "PATCH", "DELETE"},
			Permissions: []models.Permission{
				{Resource: "products", Action: models.ActionManage, Scope: models.ScopeAll},
			},
		},
		{
			Pattern:     "/api/orders",
			Description: "List own orders",
			Methods:     []string{"GET"},
			Permissions: []models.Permission{
				{Resource: "orders", Action: models.ActionRead, Scope: models.ScopeOwn},
			},
		},
		{
			Pattern:     "/api/export/[resource]",
			Description: "Bulk data export",
			Methods:     []string{"POST"},
			Permissions: []models.Permission{
				{Resource: "reports", Action: models.ActionExport, Scope: models.ScopeAll},
			},
			RateLimit: &models.RouteRateLimit{Requests: 5, Window: "1h"},
		},

		// Security administration surface. The rest pattern catches the
		// route table, block set and threat endpoints in one config.
		{
			Pattern:     "/api/admin/security/[...path]",
			Description: "Route table, block set and threat administration",
			Permissions: []models.Permission{
				{Resource: "settings", Action: models.ActionManage, Scope: models.ScopeAll},
			},
		},
	}
}
