// Confera - Jitsi Meet Operations Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/confera

package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/tomtom215/confera/internal/database"
	"github.com/tomtom215/confera/internal/logging"
	"github.com/tomtom215/confera/internal/models"
)

var serverValidate = validator.New()

// serverRequest is the create/update body for a Jitsi server.
type serverRequest struct {
	Name            string `json:"name" validate:"required,min=1,max=128"`
	BaseURL         string `json:"base_url" validate:"required,url"`
	ColibriPort     int    `json:"colibri_port" validate:"omitempty,min=1,max=65535"`
	JicofoPort      int    `json:"jicofo_port" validate:"omitempty,min=1,max=65535"`
	JibriPort       int    `json:"jibri_port" validate:"omitempty,min=1,max=65535"`
	ProsodyPort     int    `json:"prosody_port" validate:"omitempty,min=1,max=65535"`
	XMPPDomain      string `json:"xmpp_domain"`
	AppID           string `json:"app_id"`
	AppSecret       string `json:"app_secret"`
	ProsodyUser     string `json:"prosody_user"`
	ProsodyPassword string `json:"prosody_password"`
	IsActive        *bool  `json:"is_active"`
	IsPrimary       bool   `json:"is_primary"`
	VerifySSL       *bool  `json:"verify_ssl"`
}

func (req *serverRequest) apply(server *models.JitsiServer) {
	server.Name = req.Name
	server.BaseURL = req.BaseURL
	server.ColibriPort = req.ColibriPort
	server.JicofoPort = req.JicofoPort
	server.JibriPort = req.JibriPort
	server.ProsodyPort = req.ProsodyPort
	server.XMPPDomain = req.XMPPDomain
	server.AppID = req.AppID
	if req.AppSecret != "" {
		server.AppSecret = req.AppSecret
	}
	server.ProsodyUser = req.ProsodyUser
	if req.ProsodyPassword != "" {
		server.ProsodyPassword = req.ProsodyPassword
	}
	server.IsActive = req.IsActive == nil || *req.IsActive
	server.IsPrimary = req.IsPrimary
	server.VerifySSL = req.VerifySSL == nil || *req.VerifySSL
}

// ListServers returns all configured servers.
// GET /api/v1/servers?active=true
func (h *Handler) ListServers(w http.ResponseWriter, r *http.Request) {
	servers, err := h.db.ListServers(r.Context(), getBoolParam(r, "active", false))
	if err != nil {
		respondError(w, http.StatusInternalServerError, CodeInternalError, "failed to list servers", err)
		return
	}
	respondData(w, http.StatusOK, servers)
}

// GetServer returns one server by ID.
// GET /api/v1/servers/{id}
func (h *Handler) GetServer(w http.ResponseWriter, r *http.Request) {
	server, err := h.db.GetServer(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, database.ErrServerNotFound) {
			respondError(w, http.StatusNotFound, CodeNotFound, "server not found", nil)
			return
		}
		respondError(w, http.StatusInternalServerError, CodeInternalError, "failed to load server", err)
		return
	}
	respondData(w, http.StatusOK, server)
}

// CreateServer registers a new server.
// POST /api/v1/servers
func (h *Handler) CreateServer(w http.ResponseWriter, r *http.Request) {
	var req serverRequest
	if err := decodeJSONBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, CodeValidationError, err.Error(), nil)
		return
	}
	if err := serverValidate.Struct(&req); err != nil {
		respondError(w, http.StatusBadRequest, CodeValidationError, err.Error(), nil)
		return
	}

	server := &models.JitsiServer{}
	req.apply(server)

	if err := h.db.CreateServer(r.Context(), server); err != nil {
		if errors.Is(err, database.ErrServerNameConflict) {
			respondError(w, http.StatusConflict, CodeConflict, "a server with this name already exists", nil)
			return
		}
		respondError(w, http.StatusInternalServerError, CodeInternalError, "failed to create server", err)
		return
	}

	logging.Ctx(r.Context()).Info().
		Str("server_id", server.ID).
		Str("name", sanitizeLogValue(server.Name)).
		Msg("Server registered")
	respondData(w, http.StatusCreated, server)
}

// UpdateServer updates an existing server.
// PUT /api/v1/servers/{id}
func (h *Handler) UpdateServer(w http.ResponseWriter, r *http.Request) {
	server, err := h.db.GetServer(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, database.ErrServerNotFound) {
			respondError(w, http.StatusNotFound, CodeNotFound, "server not found", nil)
			return
		}
		respondError(w, http.StatusInternalServerError, CodeInternalError, "failed to load server", err)
		return
	}

	var req serverRequest
	if err := decodeJSONBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, CodeValidationError, err.Error(), nil)
		return
	}
	if err := serverValidate.Struct(&req); err != nil {
		respondError(w, http.StatusBadRequest, CodeValidationError, err.Error(), nil)
		return
	}

	req.apply(server)

	if err := h.db.UpdateServer(r.Context(), server); err != nil {
		if errors.Is(err, database.ErrServerNameConflict) {
			respondError(w, http.StatusConflict, CodeConflict, "a server with this name already exists", nil)
			return
		}
		respondError(w, http.StatusInternalServerError, CodeInternalError, "failed to update server", err)
		return
	}

	h.manager.Forget(server.ID)
	respondData(w, http.StatusOK, server)
}

// DeleteServer removes a server.
// DELETE /api/v1/servers/{id}
func (h *Handler) DeleteServer(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.db.DeleteServer(r.Context(), id); err != nil {
		if errors.Is(err, database.ErrServerNotFound) {
			respondError(w, http.StatusNotFound, CodeNotFound, "server not found", nil)
			return
		}
		respondError(w, http.StatusInternalServerError, CodeInternalError, "failed to delete server", err)
		return
	}

	h.manager.Forget(id)
	respondData(w, http.StatusOK, map[string]string{"id": id, "status": "deleted"})
}

// TestServer probes the videobridge on a server and reports round-trip
// health without touching the circuit breaker.
// POST /api/v1/servers/{id}/test
func (h *Handler) TestServer(w http.ResponseWriter, r *http.Request) {
	server, err := h.db.GetServer(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, database.ErrServerNotFound) {
			respondError(w, http.StatusNotFound, CodeNotFound, "server not found", nil)
			return
		}
		respondError(w, http.StatusInternalServerError, CodeInternalError, "failed to load server", err)
		return
	}

	client := h.manager.ClientFor(server)
	start := time.Now()
	pingErr := client.Ping(r.Context())
	elapsed := time.Since(start)

	result := map[string]interface{}{
		"server_id":  server.ID,
		"reachable":  pingErr == nil,
		"latency_ms": elapsed.Milliseconds(),
	}
	if pingErr != nil {
		result["error"] = pingErr.Error()
	}
	respondData(w, http.StatusOK, result)
}

// GetServerOverview returns the live component health for one server.
// GET /api/v1/servers/{id}/overview
func (h *Handler) GetServerOverview(w http.ResponseWriter, r *http.Request) {
	server, err := h.db.GetServer(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, database.ErrServerNotFound) {
			respondError(w, http.StatusNotFound, CodeNotFound, "server not found", nil)
			return
		}
		respondError(w, http.StatusInternalServerError, CodeInternalError, "failed to load server", err)
		return
	}

	cacheKey := "overview:" + server.ID
	if cached, ok := h.cache.Get(cacheKey); ok {
		respondData(w, http.StatusOK, cached)
		return
	}

	overview := h.manager.ClientFor(server).Overview(r.Context())
	h.cache.Set(cacheKey, overview)
	respondData(w, http.StatusOK, overview)
}
