// Confera - Jitsi Meet Operations Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/confera

package api

import (
	"net/http"
	"time"
)

// Health reports overall process health with uptime.
// GET /health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	code := http.StatusOK
	if err := h.db.Ping(r.Context()); err != nil {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}

	respondData(w, code, map[string]interface{}{
		"status":         status,
		"version":        Version,
		"uptime_seconds": int(time.Since(h.startTime).Seconds()),
	})
}

// HealthLive is the liveness probe: the process is serving requests.
// GET /health/live
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	respondData(w, http.StatusOK, map[string]string{"status": "alive"})
}

// HealthReady is the readiness probe: the database answers.
// GET /health/ready
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	if err := h.db.Ping(r.Context()); err != nil {
		respondError(w, http.StatusServiceUnavailable, CodeInternalError, "database is not ready", err)
		return
	}
	respondData(w, http.StatusOK, map[string]string{"status": "ready"})
}
