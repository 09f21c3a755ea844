// Praetor - Route Authorization and Security Middleware for Content Platforms
// Copyright 2026 M. Castellan (praetor-sec)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/praetor-sec/praetor

// Package ratelimit provides the request rate limiters used by the
// authorization pipeline: a fixed-window counter with violation tracking
// and auto-blocking, plus sliding-window and token-bucket variants for
// callers that need them.
//
// All limiter state is owned by the instance, never process-global, so
// tests can create isolated limiters and production can run several tiers
// side by side.
package ratelimit

import (
	"sync"
	"time"
)

// BlockedViolations is the sentinel violation count reported for keys in
// the block set.
const BlockedViolations = 999

// DefaultAutoBlockThreshold is the number of violating windows after which
// a key is blocked until explicitly unblocked.
const DefaultAutoBlockThreshold = 5

// Config selects the budget for a single Check call.
type Config struct {
	// Limit is the number of requests allowed per window.
	Limit int

	// Window is the length of the fixed window.
	Window time.Duration
}

// Result reports the outcome of a Check call.
type Result struct {
	// Success is false when the request exceeds the budget or the key is
	// blocked.
	Success bool

	// Limit echoes the configured per-window budget.
	Limit int

	// Remaining is the budget left in the current window.
	Remaining int

	// Reset is when the current window expires.
	Reset time.Time

	// RetryAfter is the whole seconds until the window resets, rounded up.
	// Zero on success.
	RetryAfter int

	// Violations is the number of violating windows accumulated by the key,
	// or BlockedViolations when the key is blocked.
	Violations int
}

// entry tracks one client key's fixed window.
// count resets when the window expires; violations persist across windows.
type entry struct {
	count         int
	expiry        time.Time
	violations    int
	lastViolation time.Time
}

// Options configures a Limiter.
type Options struct {
	// AutoBlockThreshold is the violation count that triggers a permanent
	// block. Zero uses DefaultAutoBlockThreshold.
	AutoBlockThreshold int

	// Now overrides the clock, for deterministic tests.
	Now func() time.Time
}

// Limiter is a fixed-window rate limiter keyed by client identity.
// It is safe for concurrent use.
type Limiter struct {
	mu        sync.Mutex
	entries   map[string]*entry
	blocked   map[string]struct{}
	threshold int
	now       func() time.Time
}

// New creates a limiter.
func New(opts Options) *Limiter {
	if opts.AutoBlockThreshold <= 0 {
		opts.AutoBlockThreshold = DefaultAutoBlockThreshold
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Limiter{
		entries:   make(map[string]*entry),
		blocked:   make(map[string]struct{}),
		threshold: opts.AutoBlockThreshold,
		now:       opts.Now,
	}
}

// Check consumes one request from the key's budget. Blocked keys
// short-circuit to failure regardless of window state.
func (l *Limiter) Check(key string, cfg Config) Result {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()

	if _, isBlocked := l.blocked[key]; isBlocked {
		RecordCheck("blocked")
		return Result{
			Success:    false,
			Limit:      cfg.Limit,
			Remaining:  0,
			Reset:      now,
			RetryAfter: 0,
			Violations: BlockedViolations,
		}
	}

	e, ok := l.entries[key]
	if !ok || !now.Before(e.expiry) {
		// Fresh window; accumulated violations carry over.
		fresh := &entry{
			count:  0,
			expiry: now.Add(cfg.Window),
		}
		if ok {
			fresh.violations = e.violations
			fresh.lastViolation = e.lastViolation
		}
		e = fresh
		l.entries[key] = e
	}

	if e.count >= cfg.Limit {
		e.violations++
		e.lastViolation = now

		if e.violations >= l.threshold {
			l.blocked[key] = struct{}{}
			RecordAutoBlock()
		}

		RecordCheck("limited")
		return Result{
			Success:    false,
			Limit:      cfg.Limit,
			Remaining:  0,
			Reset:      e.expiry,
			RetryAfter: ceilSeconds(e.expiry.Sub(now)),
			Violations: e.violations,
		}
	}

	e.count++
	RecordCheck("allowed")
	return Result{
		Success:    true,
		Limit:      cfg.Limit,
		Remaining:  cfg.Limit - e.count,
		Reset:      e.expiry,
		Violations: e.violations,
	}
}

// IsBlocked reports whether a key is in the block set.
func (l *Limiter) IsBlocked(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.blocked[key]
	return ok
}

// Block adds a key to the block set. Used by the threat tracker when a key
// crosses the suspicious-IP threshold.
func (l *Limiter) Block(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.blocked[key] = struct{}{}
}

// Unblock removes a key from the block set and clears its accumulated
// violations. This is an explicit administrative operation.
func (l *Limiter) Unblock(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	_, ok := l.blocked[key]
	delete(l.blocked, key)
	delete(l.entries, key)
	return ok
}

// BlockedKeys returns the keys currently in the block set.
func (l *Limiter) BlockedKeys() []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	keys := make([]string, 0, len(l.blocked))
	for k := range l.blocked {
		keys = append(keys, k)
	}
	return keys
}

// Sweep removes entries whose window has expired and returns how many were
// removed. Blocked-set entries persist until explicitly unblocked.
func (l *Limiter) Sweep() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	removed := 0
	for key, e := range l.entries {
		if !now.Before(e.expiry) {
			delete(l.entries, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked window entries, for inspection.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// ceilSeconds converts a duration to whole seconds, rounding up.
func ceilSeconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	secs := int(d / time.Second)
	if d%time.Second != 0 {
		secs++
	}
	return secs
}
