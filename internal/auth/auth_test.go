// Confera - Jitsi Meet Operations Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/confera

package auth

import (
	"encoding/base64"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/tomtom215/confera/internal/config"
	"github.com/tomtom215/confera/internal/logging"
)

const testSecret = "test-secret-that-is-long-enough-for-jwt"

func init() {
	logging.Init(logging.Config{Level: "info", Format: "console", Output: io.Discard})
}

func newJWTManager(t *testing.T) *JWTManager {
	t.Helper()
	m, err := NewJWTManager(&config.SecurityConfig{
		JWTSecret:      testSecret,
		SessionTimeout: time.Hour,
	})
	if err != nil {
		t.Fatalf("NewJWTManager failed: %v", err)
	}
	return m
}

func TestNewJWTManagerRequiresSecret(t *testing.T) {
	_, err := NewJWTManager(&config.SecurityConfig{})
	if err == nil {
		t.Fatal("expected error for empty secret")
	}
}

func TestJWTGenerateAndValidate(t *testing.T) {
	m := newJWTManager(t)

	token, err := m.GenerateToken("alice", "admin")
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	claims, err := m.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken failed: %v", err)
	}
	if claims.Username != "alice" {
		t.Errorf("expected username 'alice', got %q", claims.Username)
	}
	if claims.Role != "admin" {
		t.Errorf("expected role 'admin', got %q", claims.Role)
	}
}

func TestJWTValidateRejectsTampered(t *testing.T) {
	m := newJWTManager(t)

	token, err := m.GenerateToken("alice", "admin")
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	if _, err := m.ValidateToken(token + "x"); err == nil {
		t.Error("expected tampered token to fail validation")
	}
	if _, err := m.ValidateToken("not-a-token"); err == nil {
		t.Error("expected malformed token to fail validation")
	}
}

func TestJWTValidateRejectsWrongSecret(t *testing.T) {
	m := newJWTManager(t)
	other, err := NewJWTManager(&config.SecurityConfig{
		JWTSecret:      "another-secret-that-is-also-long-enough",
		SessionTimeout: time.Hour,
	})
	if err != nil {
		t.Fatalf("NewJWTManager failed: %v", err)
	}

	token, err := other.GenerateToken("alice", "admin")
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}
	if _, err := m.ValidateToken(token); err == nil {
		t.Error("expected token signed with different secret to fail")
	}
}

func TestJWTValidateRejectsExpired(t *testing.T) {
	m, err := NewJWTManager(&config.SecurityConfig{
		JWTSecret:      testSecret,
		SessionTimeout: -time.Minute,
	})
	if err != nil {
		t.Fatalf("NewJWTManager failed: %v", err)
	}

	token, err := m.GenerateToken("alice", "admin")
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}
	if _, err := m.ValidateToken(token); err == nil {
		t.Error("expected expired token to fail validation")
	}
}

func TestBasicAuthValidateCredentials(t *testing.T) {
	m, err := NewBasicAuthManager("admin", "changeme123")
	if err != nil {
		t.Fatalf("NewBasicAuthManager failed: %v", err)
	}

	header := "Basic " + base64.StdEncoding.EncodeToString([]byte("admin:changeme123"))
	username, err := m.ValidateCredentials(header)
	if err != nil {
		t.Fatalf("ValidateCredentials failed: %v", err)
	}
	if username != "admin" {
		t.Errorf("expected username 'admin', got %q", username)
	}

	bad := "Basic " + base64.StdEncoding.EncodeToString([]byte("admin:wrong"))
	if _, err := m.ValidateCredentials(bad); err == nil {
		t.Error("expected wrong password to be rejected")
	}
	if _, err := m.ValidateCredentials("Bearer abc"); err == nil {
		t.Error("expected non-basic header to be rejected")
	}
}

func TestBasicAuthRejectsShortPassword(t *testing.T) {
	if _, err := NewBasicAuthManager("admin", "short"); err == nil {
		t.Error("expected short password to be rejected")
	}
}

func TestMiddlewareModeNone(t *testing.T) {
	mw, err := NewMiddleware(&config.SecurityConfig{AuthMode: config.AuthModeNone})
	if err != nil {
		t.Fatalf("NewMiddleware failed: %v", err)
	}

	var gotUsername string
	handler := mw.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUsername = UsernameFromContext(r.Context())
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/servers", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 in none mode, got %d", rec.Code)
	}
	if gotUsername != "anonymous" {
		t.Errorf("expected anonymous identity, got %q", gotUsername)
	}
}

func TestMiddlewareModeJWT(t *testing.T) {
	cfg := &config.SecurityConfig{
		AuthMode:       config.AuthModeJWT,
		JWTSecret:      testSecret,
		SessionTimeout: time.Hour,
	}
	mw, err := NewMiddleware(cfg)
	if err != nil {
		t.Fatalf("NewMiddleware failed: %v", err)
	}

	handler := mw.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	// No token.
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/servers", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without token, got %d", rec.Code)
	}

	// Valid token in Authorization header.
	token, err := mw.JWTManager().GenerateToken("alice", "admin")
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/servers", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Errorf("expected 204 with valid token, got %d", rec.Code)
	}

	// Valid token as query parameter.
	req = httptest.NewRequest(http.MethodGet, "/api/v1/servers?access_token="+token, nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Errorf("expected 204 with query token, got %d", rec.Code)
	}
}

func TestMiddlewareModeBasic(t *testing.T) {
	cfg := &config.SecurityConfig{
		AuthMode:      config.AuthModeBasic,
		AdminUsername: "admin",
		AdminPassword: "changeme123",
	}
	mw, err := NewMiddleware(cfg)
	if err != nil {
		t.Fatalf("NewMiddleware failed: %v", err)
	}

	handler := mw.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/servers", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without credentials, got %d", rec.Code)
	}
	if rec.Header().Get("WWW-Authenticate") == "" {
		t.Error("expected WWW-Authenticate header on 401")
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/servers", nil)
	req.SetBasicAuth("admin", "changeme123")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Errorf("expected 204 with valid credentials, got %d", rec.Code)
	}
}
