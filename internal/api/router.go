// Confera - Jitsi Meet Operations Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/confera

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter builds the chi router. Public routes (health, metrics,
// webhook ingestion, the reservation protocol, login and the WebSocket
// upgrade) sit outside the authenticated /api/v1 group because their
// callers cannot present dashboard credentials.
func NewRouter(h *Handler) http.Handler {
	mw := NewChiMiddleware(&h.config.Security)

	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(RequestIDWithLogging())
	r.Use(RequestLogger())
	r.Use(chimiddleware.Recoverer)
	r.Use(SecurityHeaders())
	r.Use(mw.CORS())
	r.Use(PrometheusMetrics())
	r.Use(chimiddleware.Timeout(60 * time.Second))

	// Health and metrics.
	r.Get("/health", h.Health)
	r.Get("/health/live", h.HealthLive)
	r.Get("/health/ready", h.HealthReady)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	// Live updates.
	r.Get("/ws", h.HandleWebSocket)

	// Machine-facing endpoints.
	r.Group(func(r chi.Router) {
		r.Use(mw.RateLimitWebhook())
		r.Post("/api/v1/webhooks/jitsi", h.ReceiveWebhook)

		r.Route("/api/v1/reservation", func(r chi.Router) {
			r.Post("/conference", h.CreateReservation)
			r.Get("/conference/{id}", h.GetReservation)
			r.Delete("/conference/{id}", h.DeleteReservation)
		})
	})

	// Session login.
	r.Group(func(r chi.Router) {
		r.Use(mw.RateLimitLogin())
		r.Post("/api/v1/auth/login", h.Login)
	})

	// Authenticated API.
	r.Group(func(r chi.Router) {
		r.Use(mw.RateLimit())
		r.Use(h.authMW.Authenticate)

		r.Route("/api/v1", func(r chi.Router) {
			r.Route("/servers", func(r chi.Router) {
				r.Get("/", h.ListServers)
				r.Post("/", h.CreateServer)
				r.Get("/{id}", h.GetServer)
				r.Put("/{id}", h.UpdateServer)
				r.Delete("/{id}", h.DeleteServer)
				r.Post("/{id}/test", h.TestServer)
				r.Get("/{id}/overview", h.GetServerOverview)
				r.Get("/{id}/colibri/stats", h.GetColibriStats)
				r.Get("/{id}/jicofo/health", h.GetJicofoHealth)
				r.Get("/{id}/jicofo/stats", h.GetJicofoStats)
				r.Get("/{id}/jibri/health", h.GetJibriHealth)
			})

			r.Route("/conferences", func(r chi.Router) {
				r.Get("/", h.ListConferences)
				r.Post("/", h.CreateMeeting)
				r.Get("/recent", h.RecentConferences)
				r.Get("/{id}", h.GetConference)
				r.Delete("/{id}", h.DeleteConference)
				r.Post("/{id}/terminate", h.TerminateConference)
				r.Get("/{id}/participants", h.ListConferenceParticipants)
			})

			r.Route("/recordings", func(r chi.Router) {
				r.Get("/", h.ListRecordings)
				r.Post("/start", h.StartRecording)
				r.Post("/stop", h.StopRecording)
			})

			r.Post("/tokens", h.GenerateToken)

			r.Route("/analytics", func(r chi.Router) {
				r.Get("/summary", h.GetAnalyticsSummary)
				r.Get("/daily", h.GetDailyActivity)
				r.Get("/rooms", h.GetBusiestRooms)
			})

			r.Get("/settings", h.GetSettings)
			r.Put("/settings", h.UpdateSettings)

			r.Get("/events", h.ListWebhookEvents)
		})
	})

	return r
}
