// Praetor - Route Authorization and Security Middleware for Content Platforms
// Copyright 2026 M. Castellan (praetor-sec)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/praetor-sec/praetor

package audit

import (
	"testing"

	"github.com/praetor-sec/praetor/internal/models"
)

func TestLogSinkDrainsOnClose(t *testing.T) {
	s := NewLogSink(16)

	for i := 0; i < 10; i++ {
		s.Record(&models.SecurityEvent{
			Result:   models.ResultSuccess,
			Pathname: "/api/products",
			Reason:   "public_route",
		})
	}

	// Close waits for the writer to flush everything queued.
	s.Close()
}

func TestLogSinkRecordAfterCloseIsSafe(t *testing.T) {
	s := NewLogSink(4)
	s.Close()

	// Must not panic or block.
	s.Record(&models.SecurityEvent{Result: models.ResultForbidden})
}

func TestLogSinkCloseIsIdempotent(t *testing.T) {
	s := NewLogSink(4)
	s.Close()
	s.Close()
}

func TestLogSinkNilEventIgnored(t *testing.T) {
	s := NewLogSink(4)
	defer s.Close()

	s.Record(nil)
}

func TestLogSinkOverflowDoesNotBlock(t *testing.T) {
	s := NewLogSink(1)
	defer s.Close()

	// Flood well past capacity; Record must return promptly even if the
	// writer falls behind. Completion of the loop is the assertion.
	for i := 0; i < 1000; i++ {
		s.Record(&models.SecurityEvent{Result: models.ResultRateLimited})
	}
}
