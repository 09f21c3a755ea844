// Praetor - Route Authorization and Security Middleware for Content Platforms
// Copyright 2026 M. Castellan (praetor-sec)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/praetor-sec/praetor

package auth

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/praetor-sec/praetor/internal/logging"
	"github.com/praetor-sec/praetor/internal/models"
	gobreaker "github.com/sony/gobreaker/v2"
)

// DefaultTokenTimeout bounds a single token retrieval. A hung identity
// backend must degrade to UNAUTHORIZED rather than stall the pipeline.
const DefaultTokenTimeout = 5 * time.Second

// BreakerConfig configures the resilient token provider.
type BreakerConfig struct {
	// Timeout bounds a single GetToken call. Defaults to
	// DefaultTokenTimeout.
	Timeout time.Duration

	// MaxRequests allowed through in half-open state.
	MaxRequests uint32

	// Interval resets failure counts in the closed state.
	Interval time.Duration

	// RecoveryTimeout is how long the circuit stays open before probing.
	RecoveryTimeout time.Duration
}

// BreakerProvider wraps a TokenProvider with a per-call timeout and a
// circuit breaker. Infrastructure failures (timeouts, open circuit)
// surface as ErrTokenUnavailable; ErrNoToken and ErrInvalidToken pass
// through without tripping the breaker since they are expected outcomes,
// not backend failures.
type BreakerProvider struct {
	inner   TokenProvider
	cb      *gobreaker.CircuitBreaker[*models.AuthToken]
	timeout time.Duration
}

// NewBreakerProvider wraps a token provider with breaker protection.
func NewBreakerProvider(inner TokenProvider, cfg BreakerConfig) *BreakerProvider {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTokenTimeout
	}
	if cfg.MaxRequests == 0 {
		cfg.MaxRequests = 3
	}
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	if cfg.RecoveryTimeout <= 0 {
		cfg.RecoveryTimeout = 30 * time.Second
	}

	cb := gobreaker.NewCircuitBreaker[*models.AuthToken](gobreaker.Settings{
		Name:        "token-provider",
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.RecoveryTimeout,

		// Open after 60% failures with at least 10 calls in the window.
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= 0.6
		},

		// Credential problems are caller errors, not backend failures.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNoToken) || errors.Is(err, ErrInvalidToken)
		},

		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().
				Str("component", "auth").
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Token provider circuit state change")
		},
	})

	return &BreakerProvider{inner: inner, cb: cb, timeout: cfg.Timeout}
}

// GetToken retrieves a token with timeout and breaker protection.
func (p *BreakerProvider) GetToken(ctx context.Context, r *http.Request) (*models.AuthToken, error) {
	token, err := p.cb.Execute(func() (*models.AuthToken, error) {
		callCtx, cancel := context.WithTimeout(ctx, p.timeout)
		defer cancel()

		done := make(chan struct{})
		var (
			tok    *models.AuthToken
			tokErr error
		)
		go func() {
			tok, tokErr = p.inner.GetToken(callCtx, r.WithContext(callCtx))
			close(done)
		}()

		select {
		case <-done:
			return tok, tokErr
		case <-callCtx.Done():
			return nil, callCtx.Err()
		}
	})
	if err != nil {
		if errors.Is(err, ErrNoToken) || errors.Is(err, ErrInvalidToken) {
			return nil, err
		}
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			logging.Warn().
				Str("component", "auth").
				Err(err).
				Msg("Token retrieval rejected by circuit breaker")
		}
		return nil, errors.Join(ErrTokenUnavailable, err)
	}
	return token, nil
}
