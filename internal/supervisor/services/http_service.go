// Praetor - Route Authorization and Security Middleware for Content Platforms
// Copyright 2026 M. Castellan (praetor-sec)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/praetor-sec/praetor

package services

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/praetor-sec/praetor/internal/logging"
)

// HTTPService runs an http.Server as a supervised service with graceful
// shutdown on context cancellation.
type HTTPService struct {
	server          *http.Server
	shutdownTimeout time.Duration
	name            string
}

// NewHTTPService wraps a configured http.Server.
func NewHTTPService(server *http.Server, shutdownTimeout time.Duration) *HTTPService {
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	return &HTTPService{
		server:          server,
		shutdownTimeout: shutdownTimeout,
		name:            "http-server",
	}
}

// Serve implements suture.Service. Listens until the context is canceled,
// then drains in-flight requests within the shutdown timeout.
func (s *HTTPService) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		logging.Info().
			Str("component", "http").
			Str("addr", s.server.Addr).
			Msg("HTTP server listening")
		errCh <- s.server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()

		if err := s.server.Shutdown(shutdownCtx); err != nil {
			logging.Err(err).Str("component", "http").Msg("HTTP server shutdown failed")
			return err
		}
		logging.Info().Str("component", "http").Msg("HTTP server stopped")
		return ctx.Err()
	}
}

// String implements fmt.Stringer for suture log messages.
func (s *HTTPService) String() string {
	return s.name
}
