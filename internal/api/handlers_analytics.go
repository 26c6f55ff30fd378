// Confera - Jitsi Meet Operations Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/confera

package api

import (
	"net/http"
	"time"
)

// analyticsCacheTTL keeps analytics queries from re-running on every
// dashboard refresh.
const analyticsCacheTTL = 30 * time.Second

func analyticsDays(r *http.Request) int {
	days := getIntParam(r, "days", 30)
	if days < 1 || days > 365 {
		days = 30
	}
	return days
}

// GetAnalyticsSummary returns headline usage figures.
// GET /api/v1/analytics/summary?days=30
func (h *Handler) GetAnalyticsSummary(w http.ResponseWriter, r *http.Request) {
	days := analyticsDays(r)

	cacheKey := "analytics:summary:" + r.URL.Query().Get("days")
	if cached, ok := h.cache.Get(cacheKey); ok {
		respondData(w, http.StatusOK, cached)
		return
	}

	summary, err := h.db.GetAnalyticsSummary(r.Context(), days)
	if err != nil {
		respondError(w, http.StatusInternalServerError, CodeInternalError, "failed to compute summary", err)
		return
	}

	h.cache.SetWithTTL(cacheKey, summary, analyticsCacheTTL)
	respondData(w, http.StatusOK, summary)
}

// GetDailyActivity returns per-day conference and participant counts.
// GET /api/v1/analytics/daily?days=30
func (h *Handler) GetDailyActivity(w http.ResponseWriter, r *http.Request) {
	days := analyticsDays(r)

	cacheKey := "analytics:daily:" + r.URL.Query().Get("days")
	if cached, ok := h.cache.Get(cacheKey); ok {
		respondData(w, http.StatusOK, cached)
		return
	}

	activity, err := h.db.GetDailyActivity(r.Context(), days)
	if err != nil {
		respondError(w, http.StatusInternalServerError, CodeInternalError, "failed to compute daily activity", err)
		return
	}

	h.cache.SetWithTTL(cacheKey, activity, analyticsCacheTTL)
	respondData(w, http.StatusOK, activity)
}

// GetBusiestRooms returns the most used rooms over the window.
// GET /api/v1/analytics/rooms?days=30&limit=10
func (h *Handler) GetBusiestRooms(w http.ResponseWriter, r *http.Request) {
	days := analyticsDays(r)
	limit := getIntParam(r, "limit", 10)
	if limit < 1 || limit > 100 {
		limit = 10
	}

	rooms, err := h.db.GetBusiestRooms(r.Context(), days, limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, CodeInternalError, "failed to compute room activity", err)
		return
	}
	respondData(w, http.StatusOK, rooms)
}
