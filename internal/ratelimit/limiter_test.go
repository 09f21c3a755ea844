// Praetor - Route Authorization and Security Middleware for Content Platforms
// Copyright 2026 M. Castellan (praetor-sec)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/praetor-sec/praetor

package ratelimit

import (
	"testing"
	"time"
)

// testClock is a manually advanced clock for deterministic window tests.
type testClock struct {
	current time.Time
}

func newTestClock() *testClock {
	return &testClock{current: time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	return c.current
}

func (c *testClock) Advance(d time.Duration) {
	c.current = c.current.Add(d)
}

func TestLimiterAllowsUpToLimit(t *testing.T) {
	clock := newTestClock()
	l := New(Options{Now: clock.Now})
	cfg := Config{Limit: 3, Window: time.Minute}

	for i := 0; i < 3; i++ {
		res := l.Check("client", cfg)
		if !res.Success {
			t.Fatalf("request %d: expected success", i+1)
		}
		if res.Remaining != 3-i-1 {
			t.Errorf("request %d: Remaining = %d, want %d", i+1, res.Remaining, 3-i-1)
		}
		if res.Limit != 3 {
			t.Errorf("request %d: Limit = %d, want 3", i+1, res.Limit)
		}
	}

	res := l.Check("client", cfg)
	if res.Success {
		t.Fatal("request over budget should fail")
	}
	if res.Remaining != 0 {
		t.Errorf("Remaining = %d, want 0", res.Remaining)
	}
	if res.Violations != 1 {
		t.Errorf("Violations = %d, want 1", res.Violations)
	}
}

func TestLimiterWindowReset(t *testing.T) {
	clock := newTestClock()
	l := New(Options{Now: clock.Now})
	cfg := Config{Limit: 2, Window: time.Minute}

	l.Check("client", cfg)
	l.Check("client", cfg)
	if res := l.Check("client", cfg); res.Success {
		t.Fatal("third request within window should fail")
	}

	clock.Advance(time.Minute + time.Second)

	res := l.Check("client", cfg)
	if !res.Success {
		t.Fatal("request in fresh window should succeed")
	}
	if res.Remaining != 1 {
		t.Errorf("Remaining = %d, want 1", res.Remaining)
	}
	// Violations accumulated in earlier windows persist.
	if res.Violations != 1 {
		t.Errorf("Violations = %d, want 1 carried over", res.Violations)
	}
}

func TestLimiterRetryAfterRoundsUp(t *testing.T) {
	clock := newTestClock()
	l := New(Options{Now: clock.Now})
	cfg := Config{Limit: 1, Window: time.Minute}

	l.Check("client", cfg)
	clock.Advance(30*time.Second + 500*time.Millisecond)

	res := l.Check("client", cfg)
	if res.Success {
		t.Fatal("expected failure")
	}
	// 29.5s remain in the window; Retry-After must round up to whole seconds.
	if res.RetryAfter != 30 {
		t.Errorf("RetryAfter = %d, want 30", res.RetryAfter)
	}
	if !res.Reset.Equal(clock.current.Add(29*time.Second + 500*time.Millisecond)) {
		t.Errorf("Reset = %v, want end of original window", res.Reset)
	}
}

func TestLimiterAutoBlockAfterThresholdViolations(t *testing.T) {
	clock := newTestClock()
	l := New(Options{AutoBlockThreshold: 5, Now: clock.Now})
	cfg := Config{Limit: 1, Window: time.Minute}

	// Five distinct violating windows.
	for w := 0; w < 5; w++ {
		if res := l.Check("client", cfg); !res.Success {
			t.Fatalf("window %d: first request should succeed", w+1)
		}
		res := l.Check("client", cfg)
		if res.Success {
			t.Fatalf("window %d: second request should fail", w+1)
		}
		if res.Violations != w+1 && res.Violations != BlockedViolations {
			t.Errorf("window %d: Violations = %d, want %d", w+1, res.Violations, w+1)
		}
		clock.Advance(2 * time.Minute)
	}

	if !l.IsBlocked("client") {
		t.Fatal("key should be blocked after 5 violating windows")
	}

	// Even in a fresh window the blocked key fails immediately with the
	// sentinel violation count.
	res := l.Check("client", cfg)
	if res.Success {
		t.Fatal("blocked key must not succeed")
	}
	if res.Violations != BlockedViolations {
		t.Errorf("Violations = %d, want %d", res.Violations, BlockedViolations)
	}
	if res.RetryAfter != 0 {
		t.Errorf("RetryAfter = %d, want 0 for blocked key", res.RetryAfter)
	}
}

func TestLimiterRepeatedFailuresAccumulateViolations(t *testing.T) {
	clock := newTestClock()
	l := New(Options{AutoBlockThreshold: 5, Now: clock.Now})
	cfg := Config{Limit: 1, Window: time.Minute}

	l.Check("client", cfg)
	// Many failures inside the same window each increment the counter, so a
	// hammering client can be blocked without waiting for distinct windows.
	for i := 0; i < 5; i++ {
		res := l.Check("client", cfg)
		if res.Success {
			t.Fatalf("attempt %d should fail", i+1)
		}
	}

	if !l.IsBlocked("client") {
		t.Fatal("key should be blocked after reaching the violation threshold")
	}
}

func TestLimiterBlockAndUnblock(t *testing.T) {
	clock := newTestClock()
	l := New(Options{Now: clock.Now})
	cfg := Config{Limit: 10, Window: time.Minute}

	l.Block("10.0.0.9")
	if !l.IsBlocked("10.0.0.9") {
		t.Fatal("Block should add key to block set")
	}
	if res := l.Check("10.0.0.9", cfg); res.Success {
		t.Fatal("blocked key should fail Check")
	}

	if !l.Unblock("10.0.0.9") {
		t.Fatal("Unblock should report the key was blocked")
	}
	if l.IsBlocked("10.0.0.9") {
		t.Fatal("key should no longer be blocked")
	}
	if res := l.Check("10.0.0.9", cfg); !res.Success {
		t.Fatal("unblocked key should pass Check")
	}
	if res := l.Check("10.0.0.9", cfg); res.Violations != 0 {
		t.Errorf("Violations = %d, want 0 after Unblock cleared state", res.Violations)
	}

	if l.Unblock("never-blocked") {
		t.Error("Unblock of unknown key should report false")
	}
}

func TestLimiterBlockedKeys(t *testing.T) {
	l := New(Options{})
	l.Block("a")
	l.Block("b")

	keys := l.BlockedKeys()
	if len(keys) != 2 {
		t.Fatalf("BlockedKeys returned %d keys, want 2", len(keys))
	}
	seen := map[string]bool{}
	for _, k := range keys {
		seen[k] = true
	}
	if !seen["a"] || !seen["b"] {
		t.Errorf("BlockedKeys = %v, want a and b", keys)
	}
}

func TestLimiterSweep(t *testing.T) {
	clock := newTestClock()
	l := New(Options{Now: clock.Now})
	cfg := Config{Limit: 5, Window: time.Minute}

	l.Check("expired", cfg)
	l.Block("blocked")

	clock.Advance(30 * time.Second)
	l.Check("fresh", cfg)

	clock.Advance(45 * time.Second)

	removed := l.Sweep()
	if removed != 1 {
		t.Errorf("Sweep removed %d entries, want 1", removed)
	}
	if l.Len() != 1 {
		t.Errorf("Len = %d, want 1", l.Len())
	}
	// The block set is untouched by sweeping.
	if !l.IsBlocked("blocked") {
		t.Error("Sweep must not remove blocked keys")
	}
}

func TestLimiterKeysAreIndependent(t *testing.T) {
	clock := newTestClock()
	l := New(Options{Now: clock.Now})
	cfg := Config{Limit: 1, Window: time.Minute}

	if res := l.Check("alice", cfg); !res.Success {
		t.Fatal("alice should succeed")
	}
	if res := l.Check("alice", cfg); res.Success {
		t.Fatal("alice should be over budget")
	}
	if res := l.Check("bob", cfg); !res.Success {
		t.Fatal("bob has an independent budget")
	}
}

func TestCeilSeconds(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want int
	}{
		{0, 0},
		{-time.Second, 0},
		{time.Second, 1},
		{1500 * time.Millisecond, 2},
		{time.Minute, 60},
		{time.Millisecond, 1},
	}
	for _, tt := range tests {
		if got := ceilSeconds(tt.d); got != tt.want {
			t.Errorf("ceilSeconds(%v) = %d, want %d", tt.d, got, tt.want)
		}
	}
}
