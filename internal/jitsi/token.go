// Confera - Jitsi Meet Operations Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/confera

package jitsi

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/tomtom215/confera/internal/models"
)

// TokenUser identifies the meeting participant inside a room token.
type TokenUser struct {
	Name   string `json:"name"`
	Email  string `json:"email,omitempty"`
	Avatar string `json:"avatar,omitempty"`
}

// TokenOptions controls room token generation.
type TokenOptions struct {
	// Room restricts the token to one room. Empty means any room ("*").
	Room      string
	User      TokenUser
	Moderator bool
	// ExpiryHours defaults to 24 when zero.
	ExpiryHours int
	// Features overrides the default feature flags.
	Features map[string]bool
}

// defaultTokenFeatures are the feature flags granted unless overridden.
func defaultTokenFeatures() map[string]bool {
	return map[string]bool{
		"livestreaming":  true,
		"recording":      true,
		"transcription":  false,
		"outbound-call":  false,
		"screen-sharing": true,
	}
}

// GenerateRoomToken mints an HS256 JWT accepted by Jitsi deployments
// configured for token authentication. The token carries the Jitsi
// context claim with user identity and feature flags.
func GenerateRoomToken(server *models.JitsiServer, opts TokenOptions) (string, error) {
	if server.AppSecret == "" {
		return "", fmt.Errorf("server %s has no app secret configured", server.Name)
	}

	room := CleanRoomName(opts.Room)
	if room == "" {
		room = "*"
	}

	expiryHours := opts.ExpiryHours
	if expiryHours <= 0 {
		expiryHours = 24
	}

	features := opts.Features
	if features == nil {
		features = defaultTokenFeatures()
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"context": map[string]interface{}{
			"user": map[string]interface{}{
				"name":      opts.User.Name,
				"email":     opts.User.Email,
				"avatar":    opts.User.Avatar,
				"moderator": opts.Moderator,
			},
			"features": features,
		},
		"room": room,
		"iss":  server.AppID,
		"aud":  "jitsi",
		"sub":  server.Host(),
		"iat":  now.Unix(),
		"nbf":  now.Unix(),
		"exp":  now.Add(time.Duration(expiryHours) * time.Hour).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(server.AppSecret))
	if err != nil {
		return "", fmt.Errorf("failed to sign room token: %w", err)
	}
	return signed, nil
}

// CleanRoomName normalizes a room name for URLs and JIDs: trimmed,
// spaces collapsed to dashes, lowercased.
func CleanRoomName(name string) string {
	name = strings.TrimSpace(name)
	name = strings.ReplaceAll(name, " ", "-")
	return strings.ToLower(name)
}

// MeetingURL builds the join URL for a room, appending the token as the
// jwt query parameter when present.
func MeetingURL(server *models.JitsiServer, roomName, token string) string {
	base := strings.TrimRight(server.BaseURL, "/")
	meetingURL := base + "/" + url.PathEscape(CleanRoomName(roomName))
	if token != "" {
		meetingURL += "?jwt=" + url.QueryEscape(token)
	}
	return meetingURL
}
