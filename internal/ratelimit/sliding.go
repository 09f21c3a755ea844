// Praetor - Route Authorization and Security Middleware for Content Platforms
// Copyright 2026 M. Castellan (praetor-sec)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/praetor-sec/praetor

package ratelimit

import (
	"sync"
	"time"
)

// SlidingWindow is a rate limiter that counts individual request timestamps
// inside a rolling window. More precise than the fixed window at the cost
// of memory proportional to the request rate.
type SlidingWindow struct {
	mu      sync.Mutex
	history map[string][]time.Time
	now     func() time.Time
}

// NewSlidingWindow creates a sliding-window limiter.
func NewSlidingWindow(now func() time.Time) *SlidingWindow {
	if now == nil {
		now = time.Now
	}
	return &SlidingWindow{
		history: make(map[string][]time.Time),
		now:     now,
	}
}

// Check consumes one request from the key's budget. Requests older than the
// window are evicted before counting.
func (s *SlidingWindow) Check(key string, cfg Config) Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	cutoff := now.Add(-cfg.Window)

	kept := s.history[key][:0]
	for _, ts := range s.history[key] {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}

	if len(kept) >= cfg.Limit {
		s.history[key] = kept
		oldest := kept[0]
		reset := oldest.Add(cfg.Window)
		return Result{
			Success:    false,
			Limit:      cfg.Limit,
			Remaining:  0,
			Reset:      reset,
			RetryAfter: ceilSeconds(reset.Sub(now)),
		}
	}

	s.history[key] = append(kept, now)
	return Result{
		Success:   true,
		Limit:     cfg.Limit,
		Remaining: cfg.Limit - len(kept) - 1,
		Reset:     now.Add(cfg.Window),
	}
}

// Sweep drops keys whose entire history has aged past the window.
func (s *SlidingWindow) Sweep(window time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-window)
	removed := 0
	for key, times := range s.history {
		if len(times) == 0 || !times[len(times)-1].After(cutoff) {
			delete(s.history, key)
			removed++
		}
	}
	return removed
}
