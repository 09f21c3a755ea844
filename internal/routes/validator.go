// Praetor - Route Authorization and Security Middleware for Content Platforms
// Copyright 2026 M. Castellan (praetor-sec)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/praetor-sec/praetor

package routes

import (
	"fmt"
	"sort"
	"strings"

	"github.com/praetor-sec/praetor/internal/models"
	"github.com/praetor-sec/praetor/internal/validation"
)

// ValidateConfigs returns hard errors for a set of route configs:
// malformed fields (empty pattern or description, bad permission entries,
// non-standard HTTP verbs, malformed rate-limit windows, non-positive
// rate-limit counts) and duplicate (pattern, methods) pairs.
//
// An empty result means every entry is importable.
func ValidateConfigs(configs []models.RouteConfig) []string {
	var errs []string

	seen := make(map[string]int)
	for i := range configs {
		if verr := validation.ValidateStruct(&configs[i]); verr != nil {
			for _, msg := range verr.Messages() {
				errs = append(errs, fmt.Sprintf("entry %d (%s): %s", i, configs[i].Pattern, msg))
			}
		}

		key := dedupeKey(configs[i])
		if prev, dup := seen[key]; dup {
			errs = append(errs, fmt.Sprintf(
				"entry %d (%s): duplicate pattern/methods pair (first declared at entry %d)",
				i, configs[i].Pattern, prev))
		} else {
			seen[key] = i
		}
	}

	return errs
}

// Lint returns non-fatal warnings for a set of route configs: public routes
// carrying permissions, and routes that are neither public nor auth-only nor
// permission-protected.
func Lint(configs []models.RouteConfig) []string {
	var warnings []string

	for i := range configs {
		cfg := &configs[i]

		if cfg.IsPublic && len(cfg.Permissions) > 0 {
			warnings = append(warnings, fmt.Sprintf(
				"route %s is public but declares %d permissions; they will never be checked",
				cfg.Pattern, len(cfg.Permissions)))
		}

		if !cfg.IsPublic && !cfg.RequiresAuth && len(cfg.Permissions) == 0 {
			warnings = append(warnings, fmt.Sprintf(
				"route %s is unprotected: not public, no permissions, no auth requirement",
				cfg.Pattern))
		}
	}

	return warnings
}

// dedupeKey builds the identity of a (pattern, methods) pair. Methods are
// upper-cased and sorted so declaration order and casing do not hide
// duplicates.
func dedupeKey(cfg models.RouteConfig) string {
	methods := make([]string, len(cfg.Methods))
	for i, m := range cfg.Methods {
		methods[i] = strings.ToUpper(m)
	}
	sort.Strings(methods)
	return cfg.Pattern + "|" + strings.Join(methods, ",")
}
