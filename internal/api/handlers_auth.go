// Confera - Jitsi Meet Operations Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/confera

package api

import (
	"crypto/subtle"
	"net/http"

	"github.com/tomtom215/confera/internal/config"
	"github.com/tomtom215/confera/internal/logging"
)

// loginRequest is the credential body for session login.
type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Login exchanges admin credentials for a session JWT. Only available
// in jwt mode; basic mode authenticates per request and none mode needs
// no session.
// POST /api/v1/auth/login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if h.authMW.Mode() != config.AuthModeJWT {
		respondError(w, http.StatusNotFound, CodeNotFound, "session login is not enabled", nil)
		return
	}

	var req loginRequest
	if err := decodeJSONBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, CodeValidationError, err.Error(), nil)
		return
	}
	if err := serverValidate.Struct(&req); err != nil {
		respondError(w, http.StatusBadRequest, CodeValidationError, err.Error(), nil)
		return
	}

	sec := h.config.Security
	usernameOK := subtle.ConstantTimeCompare([]byte(req.Username), []byte(sec.AdminUsername)) == 1
	passwordOK := subtle.ConstantTimeCompare([]byte(req.Password), []byte(sec.AdminPassword)) == 1
	if !usernameOK || !passwordOK {
		logging.Ctx(r.Context()).Warn().
			Str("username", sanitizeLogValue(req.Username)).
			Str("remote", r.RemoteAddr).
			Msg("Failed login attempt")
		respondError(w, http.StatusUnauthorized, CodeUnauthorized, "invalid username or password", nil)
		return
	}

	token, err := h.authMW.JWTManager().GenerateToken(req.Username, "admin")
	if err != nil {
		respondError(w, http.StatusInternalServerError, CodeInternalError, "failed to issue session", err)
		return
	}

	respondData(w, http.StatusOK, map[string]interface{}{
		"token":      token,
		"expires_in": int(h.authMW.JWTManager().SessionTimeout().Seconds()),
	})
}
