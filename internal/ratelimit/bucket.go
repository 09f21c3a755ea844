// Praetor - Route Authorization and Security Middleware for Content Platforms
// Copyright 2026 M. Castellan (praetor-sec)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/praetor-sec/praetor

package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// TokenBucket is a per-key token-bucket limiter built on golang.org/x/time.
// Each key owns a bucket with the given capacity, refilled at refillRate
// tokens per second; a request consumes one token if available.
type TokenBucket struct {
	mu         sync.Mutex
	buckets    map[string]*bucketEntry
	capacity   int
	refillRate float64
}

type bucketEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewTokenBucket creates a token-bucket limiter.
func NewTokenBucket(capacity int, refillRate float64) *TokenBucket {
	if capacity <= 0 {
		capacity = 1
	}
	if refillRate <= 0 {
		refillRate = 1
	}
	return &TokenBucket{
		buckets:    make(map[string]*bucketEntry),
		capacity:   capacity,
		refillRate: refillRate,
	}
}

// Allow consumes one token for the key, creating a full bucket on first use.
func (t *TokenBucket) Allow(key string) bool {
	t.mu.Lock()
	b, ok := t.buckets[key]
	if !ok {
		b = &bucketEntry{
			limiter: rate.NewLimiter(rate.Limit(t.refillRate), t.capacity),
		}
		t.buckets[key] = b
	}
	b.lastSeen = time.Now()
	t.mu.Unlock()

	return b.limiter.Allow()
}

// Tokens reports the key's currently available tokens, for inspection.
func (t *TokenBucket) Tokens(key string) float64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	b, ok := t.buckets[key]
	if !ok {
		return float64(t.capacity)
	}
	return b.limiter.Tokens()
}

// Sweep removes buckets idle longer than maxIdle.
func (t *TokenBucket) Sweep(maxIdle time.Duration) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	cutoff := time.Now().Add(-maxIdle)
	removed := 0
	for key, b := range t.buckets {
		if b.lastSeen.Before(cutoff) {
			delete(t.buckets, key)
			removed++
		}
	}
	return removed
}
