// Confera - Jitsi Meet Operations Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/confera

package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/goccy/go-json"
	"github.com/tomtom215/confera/internal/config"
	"github.com/tomtom215/confera/internal/logging"
)

type contextKey string

const (
	usernameContextKey contextKey = "auth_username"
	roleContextKey     contextKey = "auth_role"
)

// Middleware enforces the configured authentication mode on protected
// routes.
type Middleware struct {
	mode  string
	jwt   *JWTManager
	basic *BasicAuthManager
}

// NewMiddleware builds the middleware for the configured mode. Mode
// "none" disables authentication entirely and is intended for
// deployments behind a trusted reverse proxy.
func NewMiddleware(cfg *config.SecurityConfig) (*Middleware, error) {
	mw := &Middleware{mode: cfg.AuthMode}

	switch cfg.AuthMode {
	case config.AuthModeNone:
		logging.Warn().Msg("Authentication is disabled; all API routes are unprotected")
	case config.AuthModeJWT:
		manager, err := NewJWTManager(cfg)
		if err != nil {
			return nil, fmt.Errorf("jwt auth: %w", err)
		}
		mw.jwt = manager
	case config.AuthModeBasic:
		manager, err := NewBasicAuthManager(cfg.AdminUsername, cfg.AdminPassword)
		if err != nil {
			return nil, fmt.Errorf("basic auth: %w", err)
		}
		mw.basic = manager
	default:
		return nil, fmt.Errorf("unknown auth mode %q", cfg.AuthMode)
	}

	return mw, nil
}

// JWTManager returns the session token manager, nil unless mode is jwt.
func (mw *Middleware) JWTManager() *JWTManager {
	return mw.jwt
}

// BasicManager returns the basic credentials manager, nil unless mode
// is basic.
func (mw *Middleware) BasicManager() *BasicAuthManager {
	return mw.basic
}

// Mode returns the active authentication mode.
func (mw *Middleware) Mode() string {
	return mw.mode
}

// Authenticate wraps a handler with the configured authentication
// check. On success the username and role are placed on the request
// context.
func (mw *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch mw.mode {
		case config.AuthModeNone:
			next.ServeHTTP(w, r.WithContext(withIdentity(r.Context(), "anonymous", "admin")))

		case config.AuthModeJWT:
			token := bearerToken(r)
			if token == "" {
				mw.unauthorized(w, "missing bearer token")
				return
			}
			claims, err := mw.jwt.ValidateToken(token)
			if err != nil {
				mw.unauthorized(w, "invalid or expired token")
				return
			}
			next.ServeHTTP(w, r.WithContext(withIdentity(r.Context(), claims.Username, claims.Role)))

		case config.AuthModeBasic:
			username, err := mw.basic.ValidateCredentials(r.Header.Get("Authorization"))
			if err != nil {
				w.Header().Set("WWW-Authenticate", mw.basic.GetWWWAuthenticateHeader())
				mw.unauthorized(w, "invalid credentials")
				return
			}
			next.ServeHTTP(w, r.WithContext(withIdentity(r.Context(), username, "admin")))

		default:
			mw.unauthorized(w, "authentication misconfigured")
		}
	})
}

// bearerToken extracts the session token from the Authorization header,
// falling back to the access_token query parameter for clients that
// cannot set headers.
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return r.URL.Query().Get("access_token")
}

func (mw *Middleware) unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"success": false,
		"error": map[string]string{
			"code":    "UNAUTHORIZED",
			"message": message,
		},
	})
}

func withIdentity(ctx context.Context, username, role string) context.Context {
	ctx = context.WithValue(ctx, usernameContextKey, username)
	return context.WithValue(ctx, roleContextKey, role)
}

// UsernameFromContext returns the authenticated username, empty when
// the request did not pass through Authenticate.
func UsernameFromContext(ctx context.Context) string {
	if username, ok := ctx.Value(usernameContextKey).(string); ok {
		return username
	}
	return ""
}

// RoleFromContext returns the authenticated role.
func RoleFromContext(ctx context.Context) string {
	if role, ok := ctx.Value(roleContextKey).(string); ok {
		return role
	}
	return ""
}
