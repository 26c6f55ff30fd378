// Confera - Jitsi Meet Operations Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/confera

package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/confera/internal/database"
	"github.com/tomtom215/confera/internal/jitsi"
	"github.com/tomtom215/confera/internal/models"
)

// Component stats proxy endpoints. Responses are cached briefly so a
// dashboard refresh storm does not multiply upstream load; the circuit
// breaker guards each server against repeated upstream failures.

func (h *Handler) proxyServer(w http.ResponseWriter, r *http.Request) (*models.JitsiServer, *jitsi.BreakerClient, bool) {
	server, err := h.db.GetServer(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, database.ErrServerNotFound) {
			respondError(w, http.StatusNotFound, CodeNotFound, "server not found", nil)
			return nil, nil, false
		}
		respondError(w, http.StatusInternalServerError, CodeInternalError, "failed to load server", err)
		return nil, nil, false
	}
	return server, h.manager.ClientFor(server), true
}

// GetColibriStats proxies the videobridge statistics document.
// GET /api/v1/servers/{id}/colibri/stats
func (h *Handler) GetColibriStats(w http.ResponseWriter, r *http.Request) {
	server, client, ok := h.proxyServer(w, r)
	if !ok {
		return
	}

	cacheKey := "colibri:" + server.ID
	if cached, hit := h.cache.Get(cacheKey); hit {
		respondData(w, http.StatusOK, cached)
		return
	}

	stats, err := client.ColibriStats(r.Context())
	if err != nil {
		respondError(w, http.StatusBadGateway, CodeUpstreamError, "videobridge is unreachable", err)
		return
	}

	h.cache.Set(cacheKey, stats)
	respondData(w, http.StatusOK, stats)
}

// GetJicofoHealth proxies the Jicofo health probe.
// GET /api/v1/servers/{id}/jicofo/health
func (h *Handler) GetJicofoHealth(w http.ResponseWriter, r *http.Request) {
	server, client, ok := h.proxyServer(w, r)
	if !ok {
		return
	}

	healthy, err := client.JicofoHealthy(r.Context())
	result := map[string]interface{}{
		"server_id": server.ID,
		"healthy":   healthy,
	}
	if err != nil {
		result["error"] = err.Error()
	}
	respondData(w, http.StatusOK, result)
}

// GetJicofoStats proxies the Jicofo statistics document.
// GET /api/v1/servers/{id}/jicofo/stats
func (h *Handler) GetJicofoStats(w http.ResponseWriter, r *http.Request) {
	server, client, ok := h.proxyServer(w, r)
	if !ok {
		return
	}

	cacheKey := "jicofo:" + server.ID
	if cached, hit := h.cache.Get(cacheKey); hit {
		respondData(w, http.StatusOK, cached)
		return
	}

	stats, err := client.JicofoStats(r.Context())
	if err != nil {
		respondError(w, http.StatusBadGateway, CodeUpstreamError, "jicofo is unreachable", err)
		return
	}

	h.cache.Set(cacheKey, stats)
	respondData(w, http.StatusOK, stats)
}

// GetJibriHealth proxies the Jibri health document.
// GET /api/v1/servers/{id}/jibri/health
func (h *Handler) GetJibriHealth(w http.ResponseWriter, r *http.Request) {
	_, client, ok := h.proxyServer(w, r)
	if !ok {
		return
	}

	health, err := client.JibriHealth(r.Context())
	if err != nil {
		respondError(w, http.StatusBadGateway, CodeUpstreamError, "jibri is unreachable", err)
		return
	}
	respondData(w, http.StatusOK, health)
}
