// Confera - Jitsi Meet Operations Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/confera

package api

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"testing"

	"github.com/goccy/go-json"

	"github.com/tomtom215/confera/internal/models"
)

const webhookPath = "/api/v1/webhooks/jitsi"

// setWebhookSettings adjusts the stored settings for a test.
func (e *testEnv) setWebhookSettings(enabled bool, secret string) {
	e.t.Helper()
	ctx := context.Background()
	settings, err := e.db.GetSettings(ctx)
	if err != nil {
		e.t.Fatalf("failed to load settings: %v", err)
	}
	settings.EnableWebhooks = enabled
	settings.WebhookSecret = secret
	if err := e.db.UpdateSettings(ctx, settings); err != nil {
		e.t.Fatalf("failed to update settings: %v", err)
	}
}

func (e *testEnv) postWebhook(payload interface{}, headers map[string]string) *http.Response {
	e.t.Helper()
	return e.do(http.MethodPost, webhookPath, payload, headers)
}

func signBody(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestReceiveWebhookDisabled(t *testing.T) {
	env := newTestEnv(t)
	env.setWebhookSettings(false, "")

	resp := env.postWebhook(map[string]string{"eventType": "ROOM_CREATED", "room": "demo"}, nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", resp.StatusCode)
	}
	envelope := decodeEnvelope(t, resp)
	if envelope.Error == nil || envelope.Error.Code != CodeForbidden {
		t.Errorf("error = %+v, want code %s", envelope.Error, CodeForbidden)
	}
}

func TestReceiveWebhookRoomCreated(t *testing.T) {
	env := newTestEnv(t)
	server := env.mustCreateServer("meet-1", true)

	resp := env.postWebhook(map[string]interface{}{
		"eventType": "ROOM_CREATED",
		"room":      "standup",
	}, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	data := dataMap(t, decodeEnvelope(t, resp))
	if data["event_type"] != "ROOM_CREATED" {
		t.Errorf("event_type = %v", data["event_type"])
	}
	if data["processed"] != true {
		t.Errorf("processed = %v, want true", data["processed"])
	}

	conf, err := env.db.GetActiveConferenceByRoom(context.Background(), server.ID, "standup")
	if err != nil {
		t.Fatalf("expected active conference: %v", err)
	}
	if conf.Status != models.ConferenceActive {
		t.Errorf("status = %q, want active", conf.Status)
	}
}

func TestReceiveWebhookSignatureVerification(t *testing.T) {
	env := newTestEnv(t)
	env.mustCreateServer("meet-1", true)
	env.setWebhookSettings(true, "hook-secret")

	body, _ := json.Marshal(map[string]string{"eventType": "ROOM_CREATED", "room": "signed"})

	// Missing signature.
	req, _ := http.NewRequest(http.MethodPost, env.ts.URL+webhookPath, bytes.NewReader(body))
	resp, err := env.ts.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("missing signature status = %d, want 401", resp.StatusCode)
	}

	// Wrong signature.
	req, _ = http.NewRequest(http.MethodPost, env.ts.URL+webhookPath, bytes.NewReader(body))
	req.Header.Set("X-Jitsi-Signature", signBody(body, "wrong-secret"))
	resp, err = env.ts.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("wrong signature status = %d, want 401", resp.StatusCode)
	}

	// Valid signature.
	req, _ = http.NewRequest(http.MethodPost, env.ts.URL+webhookPath, bytes.NewReader(body))
	req.Header.Set("X-Jitsi-Signature", signBody(body, "hook-secret"))
	resp, err = env.ts.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("valid signature status = %d, want 200", resp.StatusCode)
	}
}

func TestReceiveWebhookMalformed(t *testing.T) {
	env := newTestEnv(t)

	req, _ := http.NewRequest(http.MethodPost, env.ts.URL+webhookPath, bytes.NewReader([]byte("{not json")))
	resp, err := env.ts.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}

	// Valid JSON without an event type is also rejected.
	resp = env.postWebhook(map[string]string{"room": "demo"}, nil)
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("missing eventType status = %d, want 400", resp.StatusCode)
	}
}

func TestReceiveWebhookParticipantJoinedIdempotent(t *testing.T) {
	env := newTestEnv(t)
	server := env.mustCreateServer("meet-1", true)

	join := map[string]interface{}{
		"eventType": "PARTICIPANT_JOINED",
		"room":      "standup",
		"data": map[string]interface{}{
			"participantId": "endpoint-1",
			"name":          "Alice",
			"moderator":     true,
		},
	}

	for i := 0; i < 2; i++ {
		resp := env.postWebhook(join, nil)
		_ = resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("delivery %d status = %d, want 200", i, resp.StatusCode)
		}
	}

	ctx := context.Background()
	conf, err := env.db.GetActiveConferenceByRoom(ctx, server.ID, "standup")
	if err != nil {
		t.Fatalf("expected active conference: %v", err)
	}
	if conf.TotalParticipants != 1 {
		t.Errorf("TotalParticipants = %d, want 1 after redelivery", conf.TotalParticipants)
	}
	if conf.MaxParticipants != 1 {
		t.Errorf("MaxParticipants = %d, want 1", conf.MaxParticipants)
	}

	active, err := env.db.CountActiveParticipants(ctx, conf.ID)
	if err != nil {
		t.Fatal(err)
	}
	if active != 1 {
		t.Errorf("active participants = %d, want 1", active)
	}
}

func TestReceiveWebhookParticipantLifecycle(t *testing.T) {
	env := newTestEnv(t)
	server := env.mustCreateServer("meet-1", true)

	resp := env.postWebhook(map[string]interface{}{
		"eventType": "PARTICIPANT_JOINED",
		"room":      "standup",
		"data":      map[string]interface{}{"participantId": "endpoint-1", "name": "Alice"},
	}, nil)
	_ = resp.Body.Close()

	resp = env.postWebhook(map[string]interface{}{
		"eventType": "PARTICIPANT_LEFT",
		"room":      "standup",
		"data":      map[string]interface{}{"participantId": "endpoint-1", "disconnectReason": "left"},
	}, nil)
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("leave status = %d, want 200", resp.StatusCode)
	}

	ctx := context.Background()
	conf, err := env.db.GetActiveConferenceByRoom(ctx, server.ID, "standup")
	if err != nil {
		t.Fatal(err)
	}
	active, err := env.db.CountActiveParticipants(ctx, conf.ID)
	if err != nil {
		t.Fatal(err)
	}
	if active != 0 {
		t.Errorf("active participants = %d, want 0 after leave", active)
	}
}

func TestReceiveWebhookRoomDestroyed(t *testing.T) {
	env := newTestEnv(t)
	server := env.mustCreateServer("meet-1", true)

	resp := env.postWebhook(map[string]string{"eventType": "ROOM_CREATED", "room": "ephemeral"}, nil)
	_ = resp.Body.Close()

	resp = env.postWebhook(map[string]string{"eventType": "ROOM_DESTROYED", "room": "ephemeral"}, nil)
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("destroy status = %d, want 200", resp.StatusCode)
	}

	if _, err := env.db.GetActiveConferenceByRoom(context.Background(), server.ID, "ephemeral"); err == nil {
		t.Error("expected no active conference after ROOM_DESTROYED")
	}
}

func TestReceiveWebhookRecordingLifecycle(t *testing.T) {
	env := newTestEnv(t)
	server := env.mustCreateServer("meet-1", true)

	resp := env.postWebhook(map[string]interface{}{
		"eventType": "RECORDING_STARTED",
		"room":      "standup",
		"data": map[string]interface{}{
			"recordingSessionId": "rec-session-1",
			"recordingMode":      "file",
		},
	}, nil)
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("start status = %d, want 200", resp.StatusCode)
	}

	ctx := context.Background()
	rec, err := env.db.GetRecordingBySessionID(ctx, "rec-session-1")
	if err != nil {
		t.Fatalf("expected recording row: %v", err)
	}
	if rec.Status != models.RecordingInProgress {
		t.Errorf("status = %q, want in_progress", rec.Status)
	}

	conf, err := env.db.GetActiveConferenceByRoom(ctx, server.ID, "standup")
	if err != nil {
		t.Fatal(err)
	}
	if !conf.IsRecorded {
		t.Error("expected conference marked as recorded")
	}

	resp = env.postWebhook(map[string]interface{}{
		"eventType": "RECORDING_STOPPED",
		"room":      "standup",
		"data": map[string]interface{}{
			"recordingSessionId": "rec-session-1",
			"filePath":           "/recordings/standup.mp4",
			"duration":           125.0,
		},
	}, nil)
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("stop status = %d, want 200", resp.StatusCode)
	}

	rec, err = env.db.GetRecordingBySessionID(ctx, "rec-session-1")
	if err != nil {
		t.Fatal(err)
	}
	if rec.Status != models.RecordingCompleted {
		t.Errorf("status = %q, want completed", rec.Status)
	}
	if rec.FilePath != "/recordings/standup.mp4" {
		t.Errorf("FilePath = %q", rec.FilePath)
	}
	if rec.DurationSeconds != 125 {
		t.Errorf("DurationSeconds = %d, want 125", rec.DurationSeconds)
	}
}

func TestReceiveWebhookRecordingFailed(t *testing.T) {
	env := newTestEnv(t)
	env.mustCreateServer("meet-1", true)

	resp := env.postWebhook(map[string]interface{}{
		"eventType": "RECORDING_STOPPED",
		"room":      "standup",
		"data": map[string]interface{}{
			"recordingSessionId": "rec-broken",
			"error":              "jibri crashed",
		},
	}, nil)
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	rec, err := env.db.GetRecordingBySessionID(context.Background(), "rec-broken")
	if err != nil {
		t.Fatal(err)
	}
	if rec.Status != models.RecordingFailed {
		t.Errorf("status = %q, want failed", rec.Status)
	}
	if rec.ErrorMessage != "jibri crashed" {
		t.Errorf("ErrorMessage = %q", rec.ErrorMessage)
	}
}

func TestReceiveWebhookStoresEventLog(t *testing.T) {
	env := newTestEnv(t)
	env.mustCreateServer("meet-1", true)

	resp := env.postWebhook(map[string]string{"eventType": "ROOM_CREATED", "room": "audited"}, nil)
	_ = resp.Body.Close()

	// Unknown event types are stored under OTHER.
	resp = env.postWebhook(map[string]string{"eventType": "SOMETHING_NEW", "room": "audited"}, nil)
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unknown event status = %d, want 200", resp.StatusCode)
	}

	resp = env.do(http.MethodGet, "/api/v1/events?room=audited", nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list status = %d, want 200", resp.StatusCode)
	}
	envelope := decodeEnvelope(t, resp)
	if envelope.Meta.Pagination == nil || envelope.Meta.Pagination.TotalItems != 2 {
		t.Errorf("pagination = %+v, want 2 stored events", envelope.Meta.Pagination)
	}
}
