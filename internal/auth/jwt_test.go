// Praetor - Route Authorization and Security Middleware for Content Platforms
// Copyright 2026 M. Castellan (praetor-sec)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/praetor-sec/praetor

package auth

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var testSecret = []byte("test-signing-secret-0123456789ab")

func signToken(t *testing.T, secret []byte, mutate func(*sessionClaims)) string {
	t.Helper()

	claims := &sessionClaims{
		Role: "EDITOR",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-42",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	if mutate != nil {
		mutate(claims)
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		t.Fatalf("signing token: %v", err)
	}
	return signed
}

func newTestProvider(t *testing.T, cfg JWTConfig) *JWTProvider {
	t.Helper()
	if cfg.Secret == nil {
		cfg.Secret = testSecret
	}
	p, err := NewJWTProvider(cfg)
	if err != nil {
		t.Fatalf("NewJWTProvider: %v", err)
	}
	return p
}

func TestNewJWTProviderRequiresSecret(t *testing.T) {
	if _, err := NewJWTProvider(JWTConfig{}); err == nil {
		t.Fatal("expected error for missing secret")
	}
}

func TestGetTokenFromCookie(t *testing.T) {
	p := newTestProvider(t, JWTConfig{})

	r := httptest.NewRequest("GET", "/api/orders", nil)
	r.Header.Set("Cookie", DefaultSessionCookie+"="+signToken(t, testSecret, func(c *sessionClaims) {
		c.Email = "ed@example.com"
		c.Name = "Ed"
	}))

	token, err := p.GetToken(context.Background(), r)
	if err != nil {
		t.Fatalf("GetToken: %v", err)
	}
	if token.ID != "user-42" || token.Role != "EDITOR" {
		t.Errorf("token = %+v, want ID user-42 role EDITOR", token)
	}
	if token.Email != "ed@example.com" || token.Name != "Ed" {
		t.Errorf("token = %+v, want email and name claims mapped", token)
	}
}

func TestGetTokenFromBearerHeader(t *testing.T) {
	p := newTestProvider(t, JWTConfig{})

	r := httptest.NewRequest("GET", "/api/orders", nil)
	r.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, nil))

	token, err := p.GetToken(context.Background(), r)
	if err != nil {
		t.Fatalf("GetToken: %v", err)
	}
	if token.ID != "user-42" {
		t.Errorf("token.ID = %q, want user-42", token.ID)
	}
}

func TestBearerHeaderWinsOverCookie(t *testing.T) {
	p := newTestProvider(t, JWTConfig{})

	headerToken := signToken(t, testSecret, func(c *sessionClaims) { c.Subject = "header-user" })
	cookieToken := signToken(t, testSecret, func(c *sessionClaims) { c.Subject = "cookie-user" })

	r := httptest.NewRequest("GET", "/api/orders", nil)
	r.Header.Set("Authorization", "Bearer "+headerToken)
	r.Header.Set("Cookie", DefaultSessionCookie+"="+cookieToken)

	token, err := p.GetToken(context.Background(), r)
	if err != nil {
		t.Fatalf("GetToken: %v", err)
	}
	if token.ID != "header-user" {
		t.Errorf("token.ID = %q, want header-user", token.ID)
	}
}

func TestGetTokenNoCredentials(t *testing.T) {
	p := newTestProvider(t, JWTConfig{})

	r := httptest.NewRequest("GET", "/api/orders", nil)
	if _, err := p.GetToken(context.Background(), r); !errors.Is(err, ErrNoToken) {
		t.Errorf("err = %v, want ErrNoToken", err)
	}
}

func TestGetTokenInvalid(t *testing.T) {
	p := newTestProvider(t, JWTConfig{})

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not-a-jwt"},
		{"wrong secret", signToken(t, []byte("some-other-secret-value-padpad"), nil)},
		{"expired", signToken(t, testSecret, func(c *sessionClaims) {
			c.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Hour))
		})},
		{"missing role", signToken(t, testSecret, func(c *sessionClaims) { c.Role = "" })},
		{"missing subject", signToken(t, testSecret, func(c *sessionClaims) { c.Subject = "" })},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/api/orders", nil)
			r.Header.Set("Authorization", "Bearer "+tt.token)
			if _, err := p.GetToken(context.Background(), r); !errors.Is(err, ErrInvalidToken) {
				t.Errorf("err = %v, want ErrInvalidToken", err)
			}
		})
	}
}

func TestGetTokenRejectsMissingExpiry(t *testing.T) {
	p := newTestProvider(t, JWTConfig{})

	r := httptest.NewRequest("GET", "/api/orders", nil)
	r.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, func(c *sessionClaims) {
		c.ExpiresAt = nil
	}))

	if _, err := p.GetToken(context.Background(), r); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("err = %v, want ErrInvalidToken for token without exp", err)
	}
}

func TestGetTokenIssuerEnforced(t *testing.T) {
	p := newTestProvider(t, JWTConfig{Issuer: "praetor"})

	good := signToken(t, testSecret, func(c *sessionClaims) { c.Issuer = "praetor" })
	bad := signToken(t, testSecret, func(c *sessionClaims) { c.Issuer = "someone-else" })

	r := httptest.NewRequest("GET", "/", nil)
	r.Header.Set("Authorization", "Bearer "+good)
	if _, err := p.GetToken(context.Background(), r); err != nil {
		t.Errorf("matching issuer rejected: %v", err)
	}

	r = httptest.NewRequest("GET", "/", nil)
	r.Header.Set("Authorization", "Bearer "+bad)
	if _, err := p.GetToken(context.Background(), r); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("err = %v, want ErrInvalidToken for wrong issuer", err)
	}
}

func TestCustomCookieName(t *testing.T) {
	p := newTestProvider(t, JWTConfig{CookieName: "praetor-session"})

	r := httptest.NewRequest("GET", "/", nil)
	r.Header.Set("Cookie", "praetor-session="+signToken(t, testSecret, nil))

	token, err := p.GetToken(context.Background(), r)
	if err != nil {
		t.Fatalf("GetToken: %v", err)
	}
	if token.ID != "user-42" {
		t.Errorf("token.ID = %q, want user-42", token.ID)
	}
}
