// Confera - Jitsi Meet Operations Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/confera

package jitsi

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/tomtom215/confera/internal/models"
)

func testTokenServer() *models.JitsiServer {
	return &models.JitsiServer{
		Name:      "meet-1",
		BaseURL:   "https://meet.example.com",
		AppID:     "confera_app",
		AppSecret: "super-secret-signing-key",
	}
}

func parseRoomToken(t *testing.T, signed, secret string) jwt.MapClaims {
	t.Helper()

	token, err := jwt.Parse(signed, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		t.Fatalf("failed to parse token: %v", err)
	}
	if !token.Valid {
		t.Fatal("expected token to be valid")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		t.Fatalf("unexpected claims type %T", token.Claims)
	}
	return claims
}

func TestGenerateRoomTokenClaims(t *testing.T) {
	server := testTokenServer()

	signed, err := GenerateRoomToken(server, TokenOptions{
		Room: "Weekly Standup",
		User: TokenUser{
			Name:  "Alice",
			Email: "alice@example.com",
		},
		Moderator:   true,
		ExpiryHours: 2,
	})
	if err != nil {
		t.Fatalf("GenerateRoomToken failed: %v", err)
	}

	claims := parseRoomToken(t, signed, server.AppSecret)

	if got := claims["room"]; got != "weekly-standup" {
		t.Errorf("room claim = %v, want weekly-standup", got)
	}
	if got := claims["iss"]; got != "confera_app" {
		t.Errorf("iss claim = %v, want confera_app", got)
	}
	if got := claims["aud"]; got != "jitsi" {
		t.Errorf("aud claim = %v, want jitsi", got)
	}
	if got := claims["sub"]; got != "meet.example.com" {
		t.Errorf("sub claim = %v, want meet.example.com", got)
	}

	context, ok := claims["context"].(map[string]interface{})
	if !ok {
		t.Fatalf("context claim missing or wrong type: %v", claims["context"])
	}
	user, ok := context["user"].(map[string]interface{})
	if !ok {
		t.Fatalf("context.user missing: %v", context)
	}
	if user["name"] != "Alice" {
		t.Errorf("user name = %v, want Alice", user["name"])
	}
	if user["moderator"] != true {
		t.Errorf("user moderator = %v, want true", user["moderator"])
	}

	features, ok := context["features"].(map[string]interface{})
	if !ok {
		t.Fatalf("context.features missing: %v", context)
	}
	if features["recording"] != true {
		t.Errorf("default recording feature = %v, want true", features["recording"])
	}

	exp, ok := claims["exp"].(float64)
	if !ok {
		t.Fatalf("exp claim missing: %v", claims["exp"])
	}
	wantExp := time.Now().Add(2 * time.Hour).Unix()
	if diff := int64(exp) - wantExp; diff < -60 || diff > 60 {
		t.Errorf("exp = %d, want within a minute of %d", int64(exp), wantExp)
	}
}

func TestGenerateRoomTokenWildcardRoom(t *testing.T) {
	server := testTokenServer()

	signed, err := GenerateRoomToken(server, TokenOptions{
		User: TokenUser{Name: "Bob"},
	})
	if err != nil {
		t.Fatalf("GenerateRoomToken failed: %v", err)
	}

	claims := parseRoomToken(t, signed, server.AppSecret)
	if got := claims["room"]; got != "*" {
		t.Errorf("room claim = %v, want *", got)
	}
}

func TestGenerateRoomTokenCustomFeatures(t *testing.T) {
	server := testTokenServer()

	signed, err := GenerateRoomToken(server, TokenOptions{
		Room:     "demo",
		Features: map[string]bool{"recording": false, "transcription": true},
	})
	if err != nil {
		t.Fatalf("GenerateRoomToken failed: %v", err)
	}

	claims := parseRoomToken(t, signed, server.AppSecret)
	context := claims["context"].(map[string]interface{})
	features := context["features"].(map[string]interface{})
	if features["recording"] != false {
		t.Errorf("recording feature = %v, want false", features["recording"])
	}
	if features["transcription"] != true {
		t.Errorf("transcription feature = %v, want true", features["transcription"])
	}
}

func TestGenerateRoomTokenRequiresSecret(t *testing.T) {
	server := testTokenServer()
	server.AppSecret = ""

	if _, err := GenerateRoomToken(server, TokenOptions{Room: "demo"}); err == nil {
		t.Fatal("expected error for server without app secret")
	}
}

func TestGenerateRoomTokenWrongSecretRejected(t *testing.T) {
	server := testTokenServer()

	signed, err := GenerateRoomToken(server, TokenOptions{Room: "demo"})
	if err != nil {
		t.Fatalf("GenerateRoomToken failed: %v", err)
	}

	_, err = jwt.Parse(signed, func(token *jwt.Token) (interface{}, error) {
		return []byte("a-different-secret"), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err == nil {
		t.Fatal("expected validation to fail with the wrong secret")
	}
}

func TestCleanRoomName(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"lowercase passthrough", "standup", "standup"},
		{"mixed case", "TeamSync", "teamsync"},
		{"spaces to dashes", "Weekly Team Sync", "weekly-team-sync"},
		{"surrounding whitespace", "  demo  ", "demo"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanRoomName(tt.in); got != tt.want {
				t.Errorf("CleanRoomName(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestMeetingURL(t *testing.T) {
	server := &models.JitsiServer{BaseURL: "https://meet.example.com/"}

	got := MeetingURL(server, "Weekly Standup", "")
	if got != "https://meet.example.com/weekly-standup" {
		t.Errorf("MeetingURL without token = %q", got)
	}

	got = MeetingURL(server, "demo", "tok.en.value")
	if !strings.HasPrefix(got, "https://meet.example.com/demo?jwt=") {
		t.Errorf("MeetingURL with token = %q", got)
	}
}
