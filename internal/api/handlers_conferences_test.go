// Confera - Jitsi Meet Operations Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/confera

package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/tomtom215/confera/internal/models"
)

// mustCreateConference seeds a conference row directly.
func (e *testEnv) mustCreateConference(serverID, room, status string) *models.Conference {
	e.t.Helper()
	now := time.Now()
	conf := &models.Conference{
		ServerID:  serverID,
		RoomName:  room,
		Status:    status,
		StartedAt: &now,
	}
	if err := e.db.CreateConference(context.Background(), conf); err != nil {
		e.t.Fatalf("failed to seed conference: %v", err)
	}
	return conf
}

func TestCreateMeeting(t *testing.T) {
	env := newTestEnv(t)
	server := env.mustCreateServer("meet-1", true)

	resp := env.do(http.MethodPost, "/api/v1/conferences", map[string]interface{}{
		"room_name":    "Planning Meeting",
		"display_name": "Q3 Planning",
		"user_name":    "Alice",
		"moderator":    true,
	}, nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want 201", resp.StatusCode)
	}

	data := dataMap(t, decodeEnvelope(t, resp))
	token, _ := data["token"].(string)
	if token == "" {
		t.Fatal("expected a room token for a server with an app secret")
	}
	meetingURL, _ := data["meeting_url"].(string)
	if !strings.HasPrefix(meetingURL, "https://meet.example.com/planning-meeting?jwt=") {
		t.Errorf("meeting_url = %q", meetingURL)
	}

	parsed, err := jwt.Parse(token, func(token *jwt.Token) (interface{}, error) {
		return []byte(server.AppSecret), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil || !parsed.Valid {
		t.Fatalf("room token does not validate against the server secret: %v", err)
	}
	claims := parsed.Claims.(jwt.MapClaims)
	if claims["room"] != "planning-meeting" {
		t.Errorf("room claim = %v", claims["room"])
	}

	conference, ok := data["conference"].(map[string]interface{})
	if !ok {
		t.Fatalf("conference payload missing: %v", data)
	}
	if conference["status"] != models.ConferenceScheduled {
		t.Errorf("status = %v, want scheduled", conference["status"])
	}
	if conference["room_name"] != "planning-meeting" {
		t.Errorf("room_name = %v", conference["room_name"])
	}
}

func TestCreateMeetingWithoutAppSecret(t *testing.T) {
	env := newTestEnv(t)
	server := env.mustCreateServer("meet-open", true)
	server.AppSecret = ""
	if err := env.db.UpdateServer(context.Background(), server); err != nil {
		t.Fatal(err)
	}

	resp := env.do(http.MethodPost, "/api/v1/conferences", map[string]interface{}{
		"room_name": "open-room",
	}, nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want 201", resp.StatusCode)
	}
	data := dataMap(t, decodeEnvelope(t, resp))
	if data["token"] != "" {
		t.Errorf("token = %v, want empty for open deployment", data["token"])
	}
	if data["meeting_url"] != "https://meet.example.com/open-room" {
		t.Errorf("meeting_url = %v", data["meeting_url"])
	}
}

func TestCreateMeetingNoServer(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(http.MethodPost, "/api/v1/conferences", map[string]interface{}{
		"room_name": "orphan",
	}, nil)
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404 with no server configured", resp.StatusCode)
	}
}

func TestListConferencesFilters(t *testing.T) {
	env := newTestEnv(t)
	server := env.mustCreateServer("meet-1", true)
	env.mustCreateConference(server.ID, "standup", models.ConferenceActive)
	env.mustCreateConference(server.ID, "retro", models.ConferenceEnded)

	resp := env.do(http.MethodGet, "/api/v1/conferences?status=active", nil, nil)
	envelope := decodeEnvelope(t, resp)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if envelope.Meta.Pagination == nil || envelope.Meta.Pagination.TotalItems != 1 {
		t.Errorf("pagination = %+v, want 1 active conference", envelope.Meta.Pagination)
	}

	resp = env.do(http.MethodGet, "/api/v1/conferences?q=retro", nil, nil)
	envelope = decodeEnvelope(t, resp)
	if envelope.Meta.Pagination == nil || envelope.Meta.Pagination.TotalItems != 1 {
		t.Errorf("search pagination = %+v, want 1 match", envelope.Meta.Pagination)
	}
}

func TestGetConferenceDetail(t *testing.T) {
	env := newTestEnv(t)
	server := env.mustCreateServer("meet-1", true)
	conf := env.mustCreateConference(server.ID, "standup", models.ConferenceActive)

	participant := &models.Participant{
		ConferenceID:  conf.ID,
		ParticipantID: "endpoint-1",
		Name:          "Alice",
		JoinedAt:      time.Now(),
	}
	if err := env.db.CreateParticipant(context.Background(), participant); err != nil {
		t.Fatal(err)
	}

	resp := env.do(http.MethodGet, fmt.Sprintf("/api/v1/conferences/%d", conf.ID), nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	data := dataMap(t, decodeEnvelope(t, resp))
	participants, ok := data["participants"].([]interface{})
	if !ok || len(participants) != 1 {
		t.Errorf("participants = %v, want 1 entry", data["participants"])
	}
	if _, ok := data["recordings"].([]interface{}); !ok {
		t.Errorf("recordings missing from detail payload: %v", data["recordings"])
	}
}

func TestDeleteConferenceEndpoint(t *testing.T) {
	env := newTestEnv(t)
	server := env.mustCreateServer("meet-1", true)
	conf := env.mustCreateConference(server.ID, "standup", models.ConferenceEnded)

	resp := env.do(http.MethodDelete, fmt.Sprintf("/api/v1/conferences/%d", conf.ID), nil, nil)
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("delete status = %d, want 200", resp.StatusCode)
	}

	resp = env.do(http.MethodGet, fmt.Sprintf("/api/v1/conferences/%d", conf.ID), nil, nil)
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("get after delete status = %d, want 404", resp.StatusCode)
	}
}

func TestGenerateTokenEndpoint(t *testing.T) {
	env := newTestEnv(t)
	server := env.mustCreateServer("meet-1", true)

	resp := env.do(http.MethodPost, "/api/v1/tokens", map[string]interface{}{
		"room":      "standup",
		"user_name": "Alice",
		"moderator": true,
	}, nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want 201", resp.StatusCode)
	}
	data := dataMap(t, decodeEnvelope(t, resp))
	token, _ := data["token"].(string)
	if token == "" {
		t.Fatal("expected a token")
	}
	if data["server_id"] != server.ID {
		t.Errorf("server_id = %v, want %s", data["server_id"], server.ID)
	}
	if _, ok := data["meeting_url"]; !ok {
		t.Error("expected meeting_url for a concrete room")
	}

	// Expiry falls back to the settings default.
	if data["expiry_hours"] != float64(24) {
		t.Errorf("expiry_hours = %v, want 24", data["expiry_hours"])
	}
}

func TestGenerateTokenWildcardOmitsURL(t *testing.T) {
	env := newTestEnv(t)
	env.mustCreateServer("meet-1", true)

	resp := env.do(http.MethodPost, "/api/v1/tokens", map[string]interface{}{
		"room": "*",
	}, nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want 201", resp.StatusCode)
	}
	data := dataMap(t, decodeEnvelope(t, resp))
	if _, ok := data["meeting_url"]; ok {
		t.Error("wildcard token must not carry a meeting URL")
	}
}

func TestGenerateTokenRequiresAppSecret(t *testing.T) {
	env := newTestEnv(t)
	server := env.mustCreateServer("meet-open", true)
	server.AppSecret = ""
	if err := env.db.UpdateServer(context.Background(), server); err != nil {
		t.Fatal(err)
	}

	resp := env.do(http.MethodPost, "/api/v1/tokens", map[string]interface{}{
		"room": "standup",
	}, nil)
	envelope := decodeEnvelope(t, resp)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
	if envelope.Error == nil || envelope.Error.Code != CodeValidationError {
		t.Errorf("error = %+v, want %s", envelope.Error, CodeValidationError)
	}
}
