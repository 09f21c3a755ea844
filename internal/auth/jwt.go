// Praetor - Route Authorization and Security Middleware for Content Platforms
// Copyright 2026 M. Castellan (praetor-sec)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/praetor-sec/praetor

package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/praetor-sec/praetor/internal/models"
)

// DefaultSessionCookie is the cookie the JWT provider reads when no
// Authorization header is present.
const DefaultSessionCookie = "session-token"

// JWTConfig configures the JWT token provider.
type JWTConfig struct {
	// Secret is the HMAC signing key. Required.
	Secret []byte

	// CookieName is the session cookie to read. Defaults to
	// DefaultSessionCookie.
	CookieName string

	// Issuer, when set, is enforced against the token's iss claim.
	Issuer string
}

// sessionClaims is the claim set carried by session tokens.
type sessionClaims struct {
	Role  string `json:"role"`
	Email string `json:"email"`
	Name  string `json:"name"`
	jwt.RegisteredClaims
}

// JWTProvider verifies HMAC-signed session tokens from the session
// cookie or an Authorization: Bearer header. The header wins when both
// are present.
type JWTProvider struct {
	secret     []byte
	cookieName string
	parser     *jwt.Parser
}

// NewJWTProvider creates a JWT token provider.
func NewJWTProvider(cfg JWTConfig) (*JWTProvider, error) {
	if len(cfg.Secret) == 0 {
		return nil, fmt.Errorf("auth: JWT secret is required")
	}

	cookieName := cfg.CookieName
	if cookieName == "" {
		cookieName = DefaultSessionCookie
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}),
		jwt.WithExpirationRequired(),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}

	return &JWTProvider{
		secret:     cfg.Secret,
		cookieName: cookieName,
		parser:     jwt.NewParser(opts...),
	}, nil
}

// GetToken extracts and verifies the session token from a request.
// Returns ErrNoToken when no credentials are present and ErrInvalidToken
// when verification fails.
func (p *JWTProvider) GetToken(ctx context.Context, r *http.Request) (*models.AuthToken, error) {
	raw := p.rawToken(r)
	if raw == "" {
		return nil, ErrNoToken
	}

	claims := &sessionClaims{}
	_, err := p.parser.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return p.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if claims.Subject == "" || claims.Role == "" {
		return nil, fmt.Errorf("%w: missing subject or role claim", ErrInvalidToken)
	}

	return &models.AuthToken{
		ID:    claims.Subject,
		Role:  claims.Role,
		Email: claims.Email,
		Name:  claims.Name,
	}, nil
}

// rawToken pulls the raw token string from the Authorization header or
// the session cookie.
func (p *JWTProvider) rawToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		if token, ok := strings.CutPrefix(header, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}

	cookie, err := r.Cookie(p.cookieName)
	if err != nil || cookie.Value == "" {
		return ""
	}
	return cookie.Value
}
