// Confera - Jitsi Meet Operations Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/confera

package api

import (
	"context"
	"net/http"
	"testing"
)

func TestGetSettingsDefaults(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(http.MethodGet, "/api/v1/settings", nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	data := dataMap(t, decodeEnvelope(t, resp))
	if data["refresh_interval_seconds"] != float64(5) {
		t.Errorf("refresh_interval_seconds = %v, want 5", data["refresh_interval_seconds"])
	}
	if data["enable_webhooks"] != true {
		t.Errorf("enable_webhooks = %v, want true", data["enable_webhooks"])
	}
	if data["webhook_secret_set"] != false {
		t.Errorf("webhook_secret_set = %v, want false", data["webhook_secret_set"])
	}
	// The secret itself never appears.
	if _, leaked := data["webhook_secret"]; leaked {
		t.Error("webhook_secret must not be serialized")
	}
}

func TestUpdateSettings(t *testing.T) {
	env := newTestEnv(t)

	body := map[string]interface{}{
		"refresh_interval_seconds": 10,
		"default_jwt_expiry_hours": 48,
		"enable_webhooks":          true,
		"webhook_secret":           "hook-secret",
		"dark_mode":                true,
		"show_bandwidth_graphs":    true,
		"max_recent_conferences":   25,
		"notify_on_new_conference": true,
		"notify_on_high_load":      true,
		"high_load_threshold":      0.8,
	}
	resp := env.do(http.MethodPut, "/api/v1/settings", body, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	data := dataMap(t, decodeEnvelope(t, resp))
	if data["refresh_interval_seconds"] != float64(10) {
		t.Errorf("refresh_interval_seconds = %v, want 10", data["refresh_interval_seconds"])
	}
	if data["webhook_secret_set"] != true {
		t.Errorf("webhook_secret_set = %v, want true", data["webhook_secret_set"])
	}

	// Omitting webhook_secret keeps the stored one.
	delete(body, "webhook_secret")
	resp = env.do(http.MethodPut, "/api/v1/settings", body, nil)
	data = dataMap(t, decodeEnvelope(t, resp))
	if data["webhook_secret_set"] != true {
		t.Errorf("webhook_secret_set = %v, want true after omission", data["webhook_secret_set"])
	}

	settings, err := env.db.GetSettings(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if settings.WebhookSecret != "hook-secret" {
		t.Errorf("stored secret = %q, want hook-secret", settings.WebhookSecret)
	}

	// An explicit empty string clears it.
	body["webhook_secret"] = ""
	resp = env.do(http.MethodPut, "/api/v1/settings", body, nil)
	data = dataMap(t, decodeEnvelope(t, resp))
	if data["webhook_secret_set"] != false {
		t.Errorf("webhook_secret_set = %v, want false after clearing", data["webhook_secret_set"])
	}
}

func TestUpdateSettingsValidation(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(http.MethodPut, "/api/v1/settings", map[string]interface{}{
		"refresh_interval_seconds": 10,
		"default_jwt_expiry_hours": 48,
		"max_recent_conferences":   25,
		"high_load_threshold":      1.5, // above the 0..1 range
	}, nil)
	envelope := decodeEnvelope(t, resp)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
	if envelope.Error == nil || envelope.Error.Code != CodeValidationError {
		t.Errorf("error = %+v, want %s", envelope.Error, CodeValidationError)
	}
}
