// Praetor - Route Authorization and Security Middleware for Content Platforms
// Copyright 2026 M. Castellan (praetor-sec)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/praetor-sec/praetor

// Package routes implements route pattern matching and the route-permission
// table that maps incoming paths to required permissions.
//
// Patterns are /-separated path templates. A segment "[name]" binds exactly
// one path segment; "[...name]" binds the non-empty remainder of the path,
// slashes included. Matching is case-sensitive on path segments.
package routes

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
)

// placeholderPattern locates [name] and [...name] tokens inside a pattern.
var placeholderPattern = regexp.MustCompile(`\[(\.\.\.)?([A-Za-z0-9_]+)\]`)

// compiledPattern is a route pattern compiled to an anchored regexp with
// its parameter names in declaration order.
type compiledPattern struct {
	re     *regexp.Regexp
	params []string
}

// Matcher compiles route patterns to regular expressions and caches the
// result per pattern string. Compilation happens on first use; table
// mutations invalidate the affected entry.
type Matcher struct {
	mu    sync.RWMutex
	cache map[string]*compiledPattern
}

// NewMatcher creates a matcher with an empty compilation cache.
func NewMatcher() *Matcher {
	return &Matcher{
		cache: make(map[string]*compiledPattern),
	}
}

// NormalizePath strips a trailing slash from a path. The root "/" is never
// stripped.
func NormalizePath(path string) string {
	if len(path) > 1 && strings.HasSuffix(path, "/") {
		return strings.TrimRight(path, "/")
	}
	if path == "" {
		return "/"
	}
	return path
}

// Matches reports whether path matches pattern. The path is normalized
// before comparison. Malformed patterns never match.
func (m *Matcher) Matches(pattern, path string) bool {
	cp, err := m.compiled(pattern)
	if err != nil {
		return false
	}
	return cp.re.MatchString(NormalizePath(path))
}

// ExtractParams returns the parameter bindings for a path that matches
// pattern. Returns an empty map when the path does not match or the pattern
// has no placeholders.
func (m *Matcher) ExtractParams(pattern, path string) map[string]string {
	params := make(map[string]string)

	cp, err := m.compiled(pattern)
	if err != nil {
		return params
	}

	groups := cp.re.FindStringSubmatch(NormalizePath(path))
	if groups == nil {
		return params
	}

	// groups[0] is the full match; captures align with declaration order.
	for i, name := range cp.params {
		if i+1 < len(groups) {
			params[name] = groups[i+1]
		}
	}

	return params
}

// Invalidate drops the cached compilation for a pattern. Called by the
// table on add/update/remove.
func (m *Matcher) Invalidate(pattern string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.cache, pattern)
}

// compiled returns the cached compilation for pattern, compiling on first use.
func (m *Matcher) compiled(pattern string) (*compiledPattern, error) {
	m.mu.RLock()
	cp, ok := m.cache[pattern]
	m.mu.RUnlock()
	if ok {
		return cp, nil
	}

	cp, err := compilePattern(pattern)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.cache[pattern] = cp
	m.mu.Unlock()

	return cp, nil
}

// compilePattern converts a route pattern into an anchored regexp.
// Literal portions are quoted; "[name]" becomes "([^/]+)" and "[...name]"
// becomes "(.+)" so a rest parameter always binds at least one character.
func compilePattern(pattern string) (*compiledPattern, error) {
	normalized := NormalizePath(pattern)

	var sb strings.Builder
	sb.WriteString("^")

	var params []string
	last := 0

	for _, loc := range placeholderPattern.FindAllStringSubmatchIndex(normalized, -1) {
		sb.WriteString(regexp.QuoteMeta(normalized[last:loc[0]]))

		rest := loc[2] != -1
		name := normalized[loc[4]:loc[5]]
		params = append(params, name)

		if rest {
			sb.WriteString("(.+)")
		} else {
			sb.WriteString("([^/]+)")
		}

		last = loc[1]
	}

	sb.WriteString(regexp.QuoteMeta(normalized[last:]))
	sb.WriteString("$")

	re, err := regexp.Compile(sb.String())
	if err != nil {
		return nil, fmt.Errorf("compile pattern %q: %w", pattern, err)
	}

	return &compiledPattern{re: re, params: params}, nil
}

// methodAllowed reports whether a config's method list permits the given
// method. An empty list permits every method; comparison is case-insensitive.
func methodAllowed(methods []string, method string) bool {
	if len(methods) == 0 || method == "" {
		return true
	}

	method = strings.ToUpper(method)
	for _, m := range methods {
		if strings.ToUpper(m) == method {
			return true
		}
	}
	return false
}
