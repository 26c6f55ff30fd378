// Confera - Jitsi Meet Operations Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/confera

package api

import (
	"errors"
	"net/http"

	"github.com/tomtom215/confera/internal/database"
	"github.com/tomtom215/confera/internal/jitsi"
)

// tokenRequest is the body for minting a room JWT.
type tokenRequest struct {
	// Room is the target room; "*" grants access to every room.
	Room        string          `json:"room" validate:"required,min=1,max=200"`
	ServerID    string          `json:"server_id"`
	UserName    string          `json:"user_name"`
	UserEmail   string          `json:"user_email"`
	UserAvatar  string          `json:"user_avatar"`
	Moderator   bool            `json:"moderator"`
	ExpiryHours int             `json:"expiry_hours"`
	Features    map[string]bool `json:"features"`
}

// GenerateToken mints a Jitsi room JWT and the matching meeting link.
// POST /api/v1/tokens
func (h *Handler) GenerateToken(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := decodeJSONBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, CodeValidationError, err.Error(), nil)
		return
	}
	if err := serverValidate.Struct(&req); err != nil {
		respondError(w, http.StatusBadRequest, CodeValidationError, err.Error(), nil)
		return
	}

	server, err := h.resolveServer(r, req.ServerID)
	if err != nil {
		if errors.Is(err, database.ErrServerNotFound) {
			respondError(w, http.StatusNotFound, CodeNotFound, "no usable server configured", nil)
			return
		}
		respondError(w, http.StatusInternalServerError, CodeInternalError, "failed to resolve server", err)
		return
	}
	if server.AppSecret == "" {
		respondError(w, http.StatusBadRequest, CodeValidationError,
			"server has no app secret configured for JWT authentication", nil)
		return
	}

	expiry := req.ExpiryHours
	if expiry <= 0 {
		settings, serr := h.db.GetSettings(r.Context())
		if serr == nil {
			expiry = settings.DefaultJWTExpiryHours
		} else {
			expiry = 24
		}
	}

	token, err := jitsi.GenerateRoomToken(server, jitsi.TokenOptions{
		Room: req.Room,
		User: jitsi.TokenUser{
			Name:   req.UserName,
			Email:  req.UserEmail,
			Avatar: req.UserAvatar,
		},
		Moderator:   req.Moderator,
		ExpiryHours: expiry,
		Features:    req.Features,
	})
	if err != nil {
		respondError(w, http.StatusInternalServerError, CodeInternalError, "failed to mint token", err)
		return
	}

	result := map[string]interface{}{
		"token":        token,
		"server_id":    server.ID,
		"room":         req.Room,
		"expiry_hours": expiry,
	}
	if req.Room != "*" {
		result["meeting_url"] = jitsi.MeetingURL(server, req.Room, token)
	}
	respondData(w, http.StatusCreated, result)
}
