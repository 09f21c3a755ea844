// Praetor - Route Authorization and Security Middleware for Content Platforms
// Copyright 2026 M. Castellan (praetor-sec)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/praetor-sec/praetor

package ratelimit

import (
	"testing"
	"time"
)

func TestTokenBucketStartsFull(t *testing.T) {
	b := NewTokenBucket(3, 0.001)

	for i := 0; i < 3; i++ {
		if !b.Allow("k") {
			t.Fatalf("request %d should be allowed from a full bucket", i+1)
		}
	}
	if b.Allow("k") {
		t.Fatal("drained bucket should reject")
	}
}

func TestTokenBucketKeysAreIndependent(t *testing.T) {
	b := NewTokenBucket(1, 0.001)

	if !b.Allow("alice") {
		t.Fatal("alice should be allowed")
	}
	if b.Allow("alice") {
		t.Fatal("alice should be drained")
	}
	if !b.Allow("bob") {
		t.Fatal("bob has an independent bucket")
	}
}

func TestTokenBucketTokensInspection(t *testing.T) {
	b := NewTokenBucket(5, 0.001)

	if got := b.Tokens("unseen"); got != 5 {
		t.Errorf("Tokens for unseen key = %v, want capacity 5", got)
	}

	b.Allow("k")
	if got := b.Tokens("k"); got >= 5 {
		t.Errorf("Tokens after one request = %v, want < 5", got)
	}
}

func TestTokenBucketClampsInvalidArguments(t *testing.T) {
	b := NewTokenBucket(0, -1)

	if !b.Allow("k") {
		t.Fatal("clamped bucket should still allow one request")
	}
}

func TestTokenBucketSweep(t *testing.T) {
	b := NewTokenBucket(2, 1)

	b.Allow("idle")
	time.Sleep(10 * time.Millisecond)

	if removed := b.Sweep(time.Millisecond); removed != 1 {
		t.Errorf("Sweep removed %d buckets, want 1", removed)
	}
	if removed := b.Sweep(time.Minute); removed != 0 {
		t.Errorf("second Sweep removed %d buckets, want 0", removed)
	}
}
