// Confera - Jitsi Meet Operations Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/confera

package api

import (
	"net/http"

	"github.com/tomtom215/confera/internal/logging"
	"github.com/tomtom215/confera/internal/models"
)

// settingsRequest is the update body for the settings singleton. The
// webhook secret is write-only: it can be set here but is never echoed
// back in responses.
type settingsRequest struct {
	RefreshIntervalSeconds int     `json:"refresh_interval_seconds" validate:"required,min=1,max=3600"`
	DefaultJWTExpiryHours  int     `json:"default_jwt_expiry_hours" validate:"required,min=1,max=8760"`
	EnableWebhooks         bool    `json:"enable_webhooks"`
	WebhookSecret          *string `json:"webhook_secret"`
	DarkMode               bool    `json:"dark_mode"`
	ShowBandwidthGraphs    bool    `json:"show_bandwidth_graphs"`
	MaxRecentConferences   int     `json:"max_recent_conferences" validate:"required,min=1,max=500"`
	NotifyOnNewConference  bool    `json:"notify_on_new_conference"`
	NotifyOnHighLoad       bool    `json:"notify_on_high_load"`
	HighLoadThreshold      float64 `json:"high_load_threshold" validate:"required,gt=0,lte=1"`
}

// settingsResponse mirrors the settings row without the secret, adding
// a flag so the UI knows whether one is set.
type settingsResponse struct {
	*models.Settings
	WebhookSecretSet bool `json:"webhook_secret_set"`
}

// GetSettings returns the dashboard settings.
// GET /api/v1/settings
func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.db.GetSettings(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, CodeInternalError, "failed to load settings", err)
		return
	}
	respondData(w, http.StatusOK, &settingsResponse{
		Settings:         settings,
		WebhookSecretSet: settings.WebhookSecret != "",
	})
}

// UpdateSettings replaces the dashboard settings. Omitting
// webhook_secret keeps the stored secret; an empty string clears it.
// PUT /api/v1/settings
func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req settingsRequest
	if err := decodeJSONBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, CodeValidationError, err.Error(), nil)
		return
	}
	if err := serverValidate.Struct(&req); err != nil {
		respondError(w, http.StatusBadRequest, CodeValidationError, err.Error(), nil)
		return
	}

	current, err := h.db.GetSettings(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, CodeInternalError, "failed to load settings", err)
		return
	}

	settings := &models.Settings{
		RefreshIntervalSeconds: req.RefreshIntervalSeconds,
		DefaultJWTExpiryHours:  req.DefaultJWTExpiryHours,
		EnableWebhooks:         req.EnableWebhooks,
		WebhookSecret:          current.WebhookSecret,
		DarkMode:               req.DarkMode,
		ShowBandwidthGraphs:    req.ShowBandwidthGraphs,
		MaxRecentConferences:   req.MaxRecentConferences,
		NotifyOnNewConference:  req.NotifyOnNewConference,
		NotifyOnHighLoad:       req.NotifyOnHighLoad,
		HighLoadThreshold:      req.HighLoadThreshold,
	}
	if req.WebhookSecret != nil {
		settings.WebhookSecret = *req.WebhookSecret
	}

	if err := h.db.UpdateSettings(r.Context(), settings); err != nil {
		respondError(w, http.StatusBadRequest, CodeValidationError, err.Error(), nil)
		return
	}

	h.cache.Clear()
	logging.Ctx(r.Context()).Info().Msg("Settings updated")
	respondData(w, http.StatusOK, &settingsResponse{
		Settings:         settings,
		WebhookSecretSet: settings.WebhookSecret != "",
	})
}
