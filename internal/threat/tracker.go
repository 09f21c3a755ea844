// Praetor - Route Authorization and Security Middleware for Content Platforms
// Copyright 2026 M. Castellan (praetor-sec)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/praetor-sec/praetor

// Package threat classifies streams of security events into threat signals:
// brute-force (repeated UNAUTHORIZED results per identity), privilege
// escalation (FORBIDDEN against the admin namespace), and suspicious IPs
// (rolling violation counts across result types). Suspicious IPs past the
// auto-block threshold are handed to a Blocker, normally the pipeline's
// rate limiter.
//
// Tracking is best-effort telemetry: it never blocks request processing
// and losing a sweep race only keeps an entry alive one extra cycle.
package threat

import (
	"strings"
	"sync"
	"time"

	"github.com/praetor-sec/praetor/internal/logging"
	"github.com/praetor-sec/praetor/internal/models"
)

// SignalType identifies a detected threat pattern.
type SignalType string

const (
	SignalBruteForce          SignalType = "brute_force"
	SignalPrivilegeEscalation SignalType = "privilege_escalation"
	SignalSuspiciousIP        SignalType = "suspicious_ip"
)

// Signal is a detected threat occurrence.
type Signal struct {
	Type  SignalType
	Key   string
	Count int
}

// Config holds the tracker thresholds. The defaults mirror hand-tuned
// values; deployments should treat them as starting points, not tuned
// production limits.
type Config struct {
	// BruteForceThreshold is the number of UNAUTHORIZED results per
	// identity inside BruteForceWindow that raises a brute-force signal.
	BruteForceThreshold int

	// BruteForceWindow bounds the brute-force count.
	BruteForceWindow time.Duration

	// SuspiciousIPThreshold is the rolling violation count per IP that
	// raises a suspicious-IP signal.
	SuspiciousIPThreshold int

	// AutoBlockThreshold is the rolling violation count per IP that feeds
	// the IP block set.
	AutoBlockThreshold int

	// AdminPathPrefixes are the namespaces whose FORBIDDEN results count
	// as privilege-escalation attempts.
	AdminPathPrefixes []string

	// FailedAttemptTTL is how long failed-attempt history is retained.
	FailedAttemptTTL time.Duration

	// SuspiciousIPTTL is how long per-IP violation history is retained.
	SuspiciousIPTTL time.Duration
}

// DefaultConfig returns the tracker defaults.
func DefaultConfig() Config {
	return Config{
		BruteForceThreshold:   5,
		BruteForceWindow:      15 * time.Minute,
		SuspiciousIPThreshold: 5,
		AutoBlockThreshold:    10,
		AdminPathPrefixes:     []string{"/admin", "/api/admin"},
		FailedAttemptTTL:      time.Hour,
		SuspiciousIPTTL:       24 * time.Hour,
	}
}

// Blocker receives IPs that crossed the auto-block threshold.
type Blocker interface {
	Block(key string)
}

// Tracker accumulates per-identity and per-IP violation history.
// It is safe for concurrent use.
type Tracker struct {
	config  Config
	blocker Blocker
	now     func() time.Time

	mu             sync.Mutex
	failedAttempts map[string][]time.Time
	ipViolations   map[string][]time.Time
	blockedIPs     map[string]bool
}

// NewTracker creates a tracker. blocker may be nil when auto-blocking is
// not wired (tests, passive deployments).
func NewTracker(config Config, blocker Blocker) *Tracker {
	if config.BruteForceThreshold <= 0 {
		config.BruteForceThreshold = 5
	}
	if config.BruteForceWindow <= 0 {
		config.BruteForceWindow = 15 * time.Minute
	}
	if config.SuspiciousIPThreshold <= 0 {
		config.SuspiciousIPThreshold = 5
	}
	if config.AutoBlockThreshold <= 0 {
		config.AutoBlockThreshold = 10
	}
	if len(config.AdminPathPrefixes) == 0 {
		config.AdminPathPrefixes = []string{"/admin", "/api/admin"}
	}
	if config.FailedAttemptTTL <= 0 {
		config.FailedAttemptTTL = time.Hour
	}
	if config.SuspiciousIPTTL <= 0 {
		config.SuspiciousIPTTL = 24 * time.Hour
	}

	return &Tracker{
		config:         config,
		blocker:        blocker,
		now:            time.Now,
		failedAttempts: make(map[string][]time.Time),
		ipViolations:   make(map[string][]time.Time),
		blockedIPs:     make(map[string]bool),
	}
}

// SetClock overrides the tracker's clock, for deterministic tests.
func (t *Tracker) SetClock(now func() time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.now = now
}

// RecordEvent folds one security event into the tracking state and returns
// any signals it raised.
func (t *Tracker) RecordEvent(ev *models.SecurityEvent) []Signal {
	if ev == nil {
		return nil
	}

	var signals []Signal

	switch ev.Result {
	case models.ResultUnauthorized:
		if s := t.recordFailedAttempt(ev); s != nil {
			signals = append(signals, *s)
		}
		signals = t.appendIPViolation(signals, ev.IPAddress)

	case models.ResultForbidden:
		if t.isAdminPath(ev.Pathname) {
			signals = append(signals, Signal{
				Type: SignalPrivilegeEscalation,
				Key:  identityKey(ev),
			})
			RecordSignal(string(SignalPrivilegeEscalation))
			logging.Warn().
				Str("component", "threat").
				Str("identity", identityKey(ev)).
				Str("path", ev.Pathname).
				Str("role", ev.UserRole).
				Msg("Privilege escalation attempt")
		}
		signals = t.appendIPViolation(signals, ev.IPAddress)

	case models.ResultRateLimited, models.ResultBlocked:
		signals = t.appendIPViolation(signals, ev.IPAddress)
	}

	return signals
}

// recordFailedAttempt tracks UNAUTHORIZED results per identity and raises
// a brute-force signal past the threshold.
func (t *Tracker) recordFailedAttempt(ev *models.SecurityEvent) *Signal {
	key := identityKey(ev)

	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	cutoff := now.Add(-t.config.BruteForceWindow)

	kept := t.failedAttempts[key][:0]
	for _, ts := range t.failedAttempts[key] {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	kept = append(kept, now)
	t.failedAttempts[key] = kept

	if len(kept) < t.config.BruteForceThreshold {
		return nil
	}

	RecordSignal(string(SignalBruteForce))
	logging.Warn().
		Str("component", "threat").
		Str("identity", key).
		Int("attempts", len(kept)).
		Msg("Brute force pattern detected")

	return &Signal{Type: SignalBruteForce, Key: key, Count: len(kept)}
}

// appendIPViolation tracks one violation for an IP and raises the
// suspicious-IP signal (and the auto-block feed) past the thresholds.
func (t *Tracker) appendIPViolation(signals []Signal, ip string) []Signal {
	if ip == "" {
		return signals
	}

	t.mu.Lock()

	now := t.now()
	cutoff := now.Add(-t.config.SuspiciousIPTTL)

	kept := t.ipViolations[ip][:0]
	for _, ts := range t.ipViolations[ip] {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	kept = append(kept, now)
	t.ipViolations[ip] = kept

	count := len(kept)
	shouldBlock := count >= t.config.AutoBlockThreshold && !t.blockedIPs[ip]
	if shouldBlock {
		t.blockedIPs[ip] = true
	}

	t.mu.Unlock()

	if count >= t.config.SuspiciousIPThreshold {
		signals = append(signals, Signal{Type: SignalSuspiciousIP, Key: ip, Count: count})
		RecordSignal(string(SignalSuspiciousIP))
	}

	if shouldBlock {
		logging.Warn().
			Str("component", "threat").
			Str("ip", ip).
			Int("violations", count).
			Msg("Suspicious IP auto-blocked")
		RecordAutoBlock()
		if t.blocker != nil {
			t.blocker.Block(ip)
		}
	}

	return signals
}

// isAdminPath reports whether a path falls in an admin namespace.
func (t *Tracker) isAdminPath(path string) bool {
	for _, prefix := range t.config.AdminPathPrefixes {
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			return true
		}
	}
	return false
}

// IsAdminPath reports whether a path falls in the tracker's admin
// namespaces. Used by the pipeline for the escalation flag on events.
func (t *Tracker) IsAdminPath(path string) bool {
	return t.isAdminPath(path)
}

// FailedAttempts returns the current failed-attempt count for an identity.
func (t *Tracker) FailedAttempts(identity string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.failedAttempts[identity])
}

// Violations returns the current rolling violation count for an IP.
func (t *Tracker) Violations(ip string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.ipViolations[ip])
}

// Sweep evicts failed-attempt history older than FailedAttemptTTL and IP
// violation history older than SuspiciousIPTTL. Returns how many keys were
// dropped entirely.
func (t *Tracker) Sweep() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	removed := 0

	attemptCutoff := now.Add(-t.config.FailedAttemptTTL)
	for key, times := range t.failedAttempts {
		kept := times[:0]
		for _, ts := range times {
			if ts.After(attemptCutoff) {
				kept = append(kept, ts)
			}
		}
		if len(kept) == 0 {
			delete(t.failedAttempts, key)
			removed++
		} else {
			t.failedAttempts[key] = kept
		}
	}

	ipCutoff := now.Add(-t.config.SuspiciousIPTTL)
	for ip, times := range t.ipViolations {
		kept := times[:0]
		for _, ts := range times {
			if ts.After(ipCutoff) {
				kept = append(kept, ts)
			}
		}
		if len(kept) == 0 {
			delete(t.ipViolations, ip)
			delete(t.blockedIPs, ip)
			removed++
		} else {
			t.ipViolations[ip] = kept
		}
	}

	return removed
}

// identityKey prefers the user ID and falls back to the client IP.
func identityKey(ev *models.SecurityEvent) string {
	if ev.UserID != "" {
		return ev.UserID
	}
	return ev.IPAddress
}
