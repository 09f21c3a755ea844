// Praetor - Route Authorization and Security Middleware for Content Platforms
// Copyright 2026 M. Castellan (praetor-sec)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/praetor-sec/praetor

// Package authz evaluates roles against required permissions using a
// Casbin enforcer. The role grant lists are immutable configuration loaded
// from an embedded policy; the matcher delegates to GrantSatisfies so the
// wildcard, manage-implies-everything, and scope rules live in one place.
package authz

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	fileadapter "github.com/casbin/casbin/v2/persist/file-adapter"

	"github.com/praetor-sec/praetor/internal/logging"
	"github.com/praetor-sec/praetor/internal/models"
)

//go:embed model.conf
var embeddedModel string

//go:embed policy.csv
var embeddedPolicy string

// Role names of the fixed grant table.
const (
	RoleAdmin  = "ADMIN"
	RoleEditor = "EDITOR"
	RoleViewer = "VIEWER"
)

// Config holds configuration for the permission evaluator.
type Config struct {
	// ModelPath overrides the embedded Casbin model when set and readable.
	ModelPath string

	// PolicyPath overrides the embedded grant table when set and readable.
	PolicyPath string

	// CacheEnabled enables decision caching.
	CacheEnabled bool

	// CacheTTL is how long to cache decisions.
	CacheTTL time.Duration
}

// DefaultConfig returns default evaluator configuration.
func DefaultConfig() *Config {
	return &Config{
		CacheEnabled: true,
		CacheTTL:     5 * time.Minute,
	}
}

// Evaluator decides whether a role satisfies required permissions.
// It is safe for concurrent use; decisions are pure reads over the fixed
// grant table.
type Evaluator struct {
	config   *Config
	enforcer *casbin.SyncedEnforcer
	cache    *decisionCache
}

// NewEvaluator creates an evaluator backed by the embedded model and policy,
// or by the file overrides in config.
func NewEvaluator(config *Config) (*Evaluator, error) {
	if config == nil {
		config = DefaultConfig()
	}

	var m model.Model
	var err error

	if config.ModelPath != "" && fileExists(config.ModelPath) {
		m, err = model.NewModelFromFile(config.ModelPath)
	} else {
		m, err = model.NewModelFromString(embeddedModel)
	}
	if err != nil {
		return nil, fmt.Errorf("load casbin model: %w", err)
	}

	var enforcer *casbin.SyncedEnforcer
	if config.PolicyPath != "" && fileExists(config.PolicyPath) {
		adapter := fileadapter.NewAdapter(config.PolicyPath)
		enforcer, err = casbin.NewSyncedEnforcer(m, adapter)
	} else {
		enforcer, err = casbin.NewSyncedEnforcer(m)
		if err == nil {
			err = loadEmbeddedPolicy(enforcer, embeddedPolicy)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("create casbin enforcer: %w", err)
	}

	enforcer.AddFunction("permMatch", permMatchFunc)

	e := &Evaluator{
		config:   config,
		enforcer: enforcer,
	}

	if config.CacheEnabled {
		e.cache = newDecisionCache(config.CacheTTL)
	}

	return e, nil
}

// permMatchFunc adapts GrantSatisfies to the Casbin matcher function
// signature: permMatch(r.res, r.act, r.scope, p.res, p.act, p.scope).
func permMatchFunc(args ...interface{}) (interface{}, error) {
	if len(args) != 6 {
		return false, errors.New("permMatch expects 6 arguments")
	}

	vals := make([]string, 6)
	for i, a := range args {
		s, ok := a.(string)
		if !ok {
			return false, fmt.Errorf("permMatch argument %d is not a string", i)
		}
		vals[i] = s
	}

	req := models.Permission{Resource: vals[0], Action: vals[1], Scope: vals[2]}
	grant := models.Permission{Resource: vals[3], Action: vals[4], Scope: vals[5]}

	return GrantSatisfies(grant, req), nil
}

// loadEmbeddedPolicy parses and loads the embedded policy CSV.
func loadEmbeddedPolicy(enforcer *casbin.SyncedEnforcer, policy string) error {
	for _, line := range strings.Split(policy, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.Split(line, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}

		switch parts[0] {
		case "p":
			if len(parts) >= 5 {
				if _, err := enforcer.AddPolicy(parts[1], parts[2], parts[3], parts[4]); err != nil {
					return fmt.Errorf("add policy %v: %w", parts[1:], err)
				}
			}
		case "g":
			if len(parts) >= 3 {
				if _, err := enforcer.AddGroupingPolicy(parts[1], parts[2]); err != nil {
					return fmt.Errorf("add grouping policy %v: %w", parts[1:], err)
				}
			}
		}
	}
	return nil
}

// HasPermission reports whether the role satisfies at least one of the
// required permissions. An empty or unknown role has an empty grant list
// and is always denied; an empty requirement list is vacuously denied.
func (e *Evaluator) HasPermission(role string, required []models.Permission) bool {
	start := time.Now()

	for _, req := range required {
		allowed, cacheHit, err := e.check(role, req)
		if err != nil {
			logging.Error().Err(err).
				Str("role", role).
				Str("permission", req.String()).
				Msg("Permission evaluation error")
			RecordEvalError()
			continue
		}
		if allowed {
			RecordDecision(role, req.Resource, req.Action, true, time.Since(start), cacheHit)
			return true
		}
	}

	res, act := "", ""
	if len(required) > 0 {
		res, act = required[0].Resource, required[0].Action
	}
	RecordDecision(role, res, act, false, time.Since(start), false)
	return false
}

// check evaluates a single role/permission pair, consulting the cache first.
func (e *Evaluator) check(role string, req models.Permission) (allowed, cacheHit bool, err error) {
	if e.cache != nil {
		if allowed, ok := e.cache.get(role, req); ok {
			return allowed, true, nil
		}
	}

	allowed, err = e.enforcer.Enforce(role, req.Resource, req.Action, req.Scope)
	if err != nil {
		return false, false, fmt.Errorf("enforce: %w", err)
	}

	if e.cache != nil {
		e.cache.set(role, req, allowed)
	}

	return allowed, false, nil
}

// Grants returns the raw grant rows for a role, for the admin inspection API.
func (e *Evaluator) Grants(role string) [][]string {
	//nolint:errcheck // GetFilteredPolicy only fails if the enforcer is nil
	rows, _ := e.enforcer.GetFilteredPolicy(0, role)
	return rows
}

// Close stops the evaluator and its cache janitor.
func (e *Evaluator) Close() {
	if e.cache != nil {
		e.cache.stop()
	}
}

// fileExists checks if a file exists.
func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
