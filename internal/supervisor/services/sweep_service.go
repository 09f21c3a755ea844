// Praetor - Route Authorization and Security Middleware for Content Platforms
// Copyright 2026 M. Castellan (praetor-sec)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/praetor-sec/praetor

// Package services wraps the background workers as suture services.
package services

import (
	"context"
	"time"

	"github.com/praetor-sec/praetor/internal/logging"
)

// Sweeper is a store that can evict expired entries. Satisfied by the
// rate limiter and the threat tracker.
type Sweeper interface {
	Sweep() int
}

// SweepService runs a Sweeper on a fixed interval as a supervised
// service. Sweeps never hold locks across the tick boundary; losing a
// race with an in-flight request just keeps an entry one extra cycle.
type SweepService struct {
	sweeper  Sweeper
	interval time.Duration
	name     string
}

// NewSweepService creates a sweep service.
func NewSweepService(name string, sweeper Sweeper, interval time.Duration) *SweepService {
	return &SweepService{
		sweeper:  sweeper,
		interval: interval,
		name:     name,
	}
}

// Serve implements suture.Service. Returns ctx.Err() on shutdown.
func (s *SweepService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			removed := s.sweeper.Sweep()
			if removed > 0 {
				logging.Debug().
					Str("component", "sweep").
					Str("service", s.name).
					Int("removed", removed).
					Msg("Sweep completed")
			}
		}
	}
}

// String implements fmt.Stringer for suture log messages.
func (s *SweepService) String() string {
	return s.name
}
