// Praetor - Route Authorization and Security Middleware for Content Platforms
// Copyright 2026 M. Castellan (praetor-sec)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/praetor-sec/praetor

package routes

import (
	"errors"
	"fmt"
	"sync"

	"github.com/goccy/go-json"

	"github.com/praetor-sec/praetor/internal/logging"
	"github.com/praetor-sec/praetor/internal/models"
)

// Table errors.
var (
	// ErrPatternNotFound is returned by mutators when no config has the
	// exact pattern string.
	ErrPatternNotFound = errors.New("route pattern not found")

	// ErrPatternExists is returned by AddRouteConfig for a duplicate pattern.
	ErrPatternExists = errors.New("route pattern already exists")
)

// ImportError reports why an import was rejected. Entries holds one message
// per failing import entry; the table is left untouched when it is non-empty.
type ImportError struct {
	Entries []string
}

// Error implements the error interface.
func (e *ImportError) Error() string {
	return fmt.Sprintf("route config import rejected: %d invalid entries", len(e.Entries))
}

// Table is an ordered collection of route configurations. Declaration order
// encodes precedence for dynamic patterns: more specific static routes
// should be declared before broader dynamic ones under the same prefix.
//
// All methods are safe for concurrent use.
type Table struct {
	mu      sync.RWMutex
	configs []models.RouteConfig
	matcher *Matcher
}

// NewTable creates a table seeded with the given configs, in order.
// Configuration problems that are warnings (public routes with permissions,
// unprotected routes) are logged but do not prevent construction.
func NewTable(configs []models.RouteConfig) *Table {
	t := &Table{
		configs: make([]models.RouteConfig, len(configs)),
		matcher: NewMatcher(),
	}
	copy(t.configs, configs)

	for _, w := range Lint(t.configs) {
		logging.Warn().Str("component", "routes").Msg(w)
	}

	return t
}

// Matcher exposes the table's pattern matcher.
func (t *Table) Matcher() *Matcher {
	return t.matcher
}

// FindRouteConfig returns the best-matching configuration for a path and
// method, or nil when none matches. An exact string match on the pattern
// takes precedence over pattern matching; among pattern matches, declaration
// order wins. A config with no methods list matches every method.
func (t *Table) FindRouteConfig(path, method string) *models.RouteConfig {
	normalized := NormalizePath(path)

	t.mu.RLock()
	defer t.mu.RUnlock()

	for i := range t.configs {
		if t.configs[i].Pattern == normalized && methodAllowed(t.configs[i].Methods, method) {
			cfg := cloneConfig(t.configs[i])
			return &cfg
		}
	}

	for i := range t.configs {
		if methodAllowed(t.configs[i].Methods, method) && t.matcher.Matches(t.configs[i].Pattern, normalized) {
			cfg := cloneConfig(t.configs[i])
			return &cfg
		}
	}

	return nil
}

// MatchRoute resolves a path and method to a RouteMatch with extracted
// parameters. Returns a RouteMatch with IsMatch false when nothing matches.
func (t *Table) MatchRoute(path, method string) models.RouteMatch {
	cfg := t.FindRouteConfig(path, method)
	if cfg == nil {
		return models.RouteMatch{Params: map[string]string{}}
	}

	return models.RouteMatch{
		Pattern:     cfg.Pattern,
		Permissions: cfg.Permissions,
		Params:      t.matcher.ExtractParams(cfg.Pattern, path),
		IsMatch:     true,
	}
}

// GetRoutePermissions returns the permissions required for a path and
// method. Returns an empty slice when no config matches or the matched
// config carries no permissions.
func (t *Table) GetRoutePermissions(path, method string) []models.Permission {
	cfg := t.FindRouteConfig(path, method)
	if cfg == nil || len(cfg.Permissions) == 0 {
		return []models.Permission{}
	}
	return cfg.Permissions
}

// IsPublicRoute reports whether a matching config marks the path public.
func (t *Table) IsPublicRoute(path string) bool {
	cfg := t.FindRouteConfig(path, "")
	return cfg != nil && cfg.IsPublic
}

// RequiresAuthOnly reports whether the path needs a valid session but no
// specific permission.
func (t *Table) RequiresAuthOnly(path string) bool {
	cfg := t.FindRouteConfig(path, "")
	return cfg != nil && cfg.RequiresAuth && len(cfg.Permissions) == 0
}

// AddRouteConfig appends a config to the table. Returns ErrPatternExists
// when a config with the same pattern string is already present.
func (t *Table) AddRouteConfig(cfg models.RouteConfig) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i := range t.configs {
		if t.configs[i].Pattern == cfg.Pattern {
			return ErrPatternExists
		}
	}

	t.configs = append(t.configs, cloneConfig(cfg))
	t.matcher.Invalidate(cfg.Pattern)

	logging.Info().Str("component", "routes").Str("pattern", cfg.Pattern).Msg("Route config added")
	return nil
}

// RouteConfigUpdate is a partial update applied by UpdateRouteConfig.
// Nil fields are left unchanged.
type RouteConfigUpdate struct {
	Permissions  *[]models.Permission
	Description  *string
	IsPublic     *bool
	RequiresAuth *bool
	Methods      *[]string
	RateLimit    **models.RouteRateLimit
	CacheTTL     *int
}

// UpdateRouteConfig applies a partial update to the config whose pattern
// string equals pattern exactly (no pattern matching). Returns
// ErrPatternNotFound when absent.
func (t *Table) UpdateRouteConfig(pattern string, update RouteConfigUpdate) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i := range t.configs {
		if t.configs[i].Pattern != pattern {
			continue
		}

		if update.Permissions != nil {
			t.configs[i].Permissions = append([]models.Permission(nil), (*update.Permissions)...)
		}
		if update.Description != nil {
			t.configs[i].Description = *update.Description
		}
		if update.IsPublic != nil {
			t.configs[i].IsPublic = *update.IsPublic
		}
		if update.RequiresAuth != nil {
			t.configs[i].RequiresAuth = *update.RequiresAuth
		}
		if update.Methods != nil {
			t.configs[i].Methods = append([]string(nil), (*update.Methods)...)
		}
		if update.RateLimit != nil {
			t.configs[i].RateLimit = *update.RateLimit
		}
		if update.CacheTTL != nil {
			t.configs[i].CacheTTL = *update.CacheTTL
		}

		t.matcher.Invalidate(pattern)
		logging.Info().Str("component", "routes").Str("pattern", pattern).Msg("Route config updated")
		return nil
	}

	return ErrPatternNotFound
}

// RemoveRouteConfig removes the config whose pattern string equals pattern
// exactly. Returns ErrPatternNotFound when absent.
func (t *Table) RemoveRouteConfig(pattern string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i := range t.configs {
		if t.configs[i].Pattern == pattern {
			t.configs = append(t.configs[:i], t.configs[i+1:]...)
			t.matcher.Invalidate(pattern)
			logging.Info().Str("component", "routes").Str("pattern", pattern).Msg("Route config removed")
			return nil
		}
	}

	return ErrPatternNotFound
}

// All returns a copy of every config in declaration order.
func (t *Table) All() []models.RouteConfig {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]models.RouteConfig, len(t.configs))
	for i := range t.configs {
		out[i] = cloneConfig(t.configs[i])
	}
	return out
}

// Export serializes the table as a JSON array of route configs.
func (t *Table) Export() ([]byte, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	data, err := json.MarshalIndent(t.configs, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("export route configs: %w", err)
	}
	return data, nil
}

// Import validates every entry of a JSON array of route configs and
// atomically replaces the table only if all entries pass. On failure it
// returns an *ImportError listing per-entry problems and leaves the table
// untouched.
func (t *Table) Import(data []byte) error {
	var incoming []models.RouteConfig
	if err := json.Unmarshal(data, &incoming); err != nil {
		return &ImportError{Entries: []string{fmt.Sprintf("invalid JSON: %v", err)}}
	}

	if errs := ValidateConfigs(incoming); len(errs) > 0 {
		return &ImportError{Entries: errs}
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	old := t.configs
	t.configs = make([]models.RouteConfig, len(incoming))
	for i := range incoming {
		t.configs[i] = cloneConfig(incoming[i])
	}

	// Invalidate compiled matchers for every pattern that changed hands.
	for i := range old {
		t.matcher.Invalidate(old[i].Pattern)
	}
	for i := range incoming {
		t.matcher.Invalidate(incoming[i].Pattern)
	}

	logging.Info().Str("component", "routes").Int("count", len(incoming)).Msg("Route table imported")
	return nil
}

// cloneConfig deep-copies a config so callers cannot mutate table state.
func cloneConfig(cfg models.RouteConfig) models.RouteConfig {
	out := cfg
	out.Permissions = append([]models.Permission(nil), cfg.Permissions...)
	out.Methods = append([]string(nil), cfg.Methods...)
	if cfg.RateLimit != nil {
		rl := *cfg.RateLimit
		out.RateLimit = &rl
	}
	return out
}
