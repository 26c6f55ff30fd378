// Confera - Jitsi Meet Operations Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/confera

package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/confera/internal/auth"
	"github.com/tomtom215/confera/internal/database"
	"github.com/tomtom215/confera/internal/jitsi"
	"github.com/tomtom215/confera/internal/logging"
	"github.com/tomtom215/confera/internal/models"
)

// createMeetingRequest is the body for scheduling or starting a meeting.
type createMeetingRequest struct {
	RoomName    string `json:"room_name" validate:"required,min=1,max=200"`
	DisplayName string `json:"display_name"`
	ServerID    string `json:"server_id"`
	// Moderator mints the meeting link with moderator privileges.
	Moderator   bool   `json:"moderator"`
	UserName    string `json:"user_name"`
	UserEmail   string `json:"user_email"`
	ExpiryHours int    `json:"expiry_hours"`
}

// conferenceDetail is the detail payload: the conference plus its
// participants and recordings.
type conferenceDetail struct {
	models.Conference
	DurationMinutes int                  `json:"duration_minutes"`
	Participants    []models.Participant `json:"participants"`
	Recordings      []models.Recording   `json:"recordings"`
}

// ListConferences returns conferences with filters and pagination.
// GET /api/v1/conferences?status=&server_id=&q=&page=&page_size=
func (h *Handler) ListConferences(w http.ResponseWriter, r *http.Request) {
	page, pageSize := h.pageParams(r)
	filter := database.ConferenceFilter{
		Status:   r.URL.Query().Get("status"),
		ServerID: r.URL.Query().Get("server_id"),
		Query:    r.URL.Query().Get("q"),
		Page:     page,
		PageSize: pageSize,
	}

	conferences, total, err := h.db.ListConferences(r.Context(), filter)
	if err != nil {
		respondError(w, http.StatusInternalServerError, CodeInternalError, "failed to list conferences", err)
		return
	}
	respondPage(w, conferences, page, pageSize, total)
}

// GetConference returns one conference with participants and recordings.
// GET /api/v1/conferences/{id}
func (h *Handler) GetConference(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, CodeValidationError, "invalid conference id", nil)
		return
	}

	conf, err := h.db.GetConference(r.Context(), id)
	if err != nil {
		if errors.Is(err, database.ErrConferenceNotFound) {
			respondError(w, http.StatusNotFound, CodeNotFound, "conference not found", nil)
			return
		}
		respondError(w, http.StatusInternalServerError, CodeInternalError, "failed to load conference", err)
		return
	}

	participants, _, err := h.db.ListParticipants(r.Context(), database.ParticipantFilter{
		ConferenceID: id,
		Page:         1,
		PageSize:     h.config.API.MaxPageSize,
	})
	if err != nil {
		respondError(w, http.StatusInternalServerError, CodeInternalError, "failed to load participants", err)
		return
	}

	recordings, _, err := h.db.ListRecordings(r.Context(), "", id, 1, h.config.API.MaxPageSize)
	if err != nil {
		respondError(w, http.StatusInternalServerError, CodeInternalError, "failed to load recordings", err)
		return
	}

	respondData(w, http.StatusOK, &conferenceDetail{
		Conference:      *conf,
		DurationMinutes: conf.DurationMinutes(),
		Participants:    participants,
		Recordings:      recordings,
	})
}

// RecentConferences returns the most recently started conferences, up
// to the configured maximum.
// GET /api/v1/conferences/recent
func (h *Handler) RecentConferences(w http.ResponseWriter, r *http.Request) {
	settings, err := h.db.GetSettings(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, CodeInternalError, "failed to load settings", err)
		return
	}

	limit := getIntParam(r, "limit", settings.MaxRecentConferences)
	if limit < 1 || limit > settings.MaxRecentConferences {
		limit = settings.MaxRecentConferences
	}

	conferences, err := h.db.RecentConferences(r.Context(), limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, CodeInternalError, "failed to list conferences", err)
		return
	}
	respondData(w, http.StatusOK, conferences)
}

// CreateMeeting schedules a conference and mints its meeting link. The
// server defaults to the primary when none is given.
// POST /api/v1/conferences
func (h *Handler) CreateMeeting(w http.ResponseWriter, r *http.Request) {
	var req createMeetingRequest
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
		if errors.Is(err, database.ErrServerNotFound) || errors.Is(err, database.ErrNotFound) {
			respondError(w, http.StatusNotFound, CodeNotFound, "no usable server configured", nil)
			return
		}
		respondError(w, http.StatusInternalServerError, CodeInternalError, "failed to resolve server", err)
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

	token := ""
	if server.AppSecret != "" {
		token, err = jitsi.GenerateRoomToken(server, jitsi.TokenOptions{
			Room: req.RoomName,
			User: jitsi.TokenUser{
				Name:  req.UserName,
				Email: req.UserEmail,
			},
			Moderator:   req.Moderator,
			ExpiryHours: expiry,
		})
		if err != nil {
			respondError(w, http.StatusInternalServerError, CodeInternalError, "failed to mint room token", err)
			return
		}
	}

	now := time.Now()
	conf := &models.Conference{
		ServerID:    server.ID,
		RoomName:    jitsi.CleanRoomName(req.RoomName),
		DisplayName: req.DisplayName,
		Status:      models.ConferenceScheduled,
		CreatedBy:   auth.UsernameFromContext(r.Context()),
		StartedAt:   &now,
		MeetingURL:  jitsi.MeetingURL(server, req.RoomName, token),
	}
	if err := h.db.CreateConference(r.Context(), conf); err != nil {
		respondError(w, http.StatusInternalServerError, CodeInternalError, "failed to create conference", err)
		return
	}

	if h.wsHub != nil {
		h.wsHub.BroadcastConferenceUpdate(conf)
	}

	respondData(w, http.StatusCreated, map[string]interface{}{
		"conference":  conf,
		"meeting_url": conf.MeetingURL,
		"token":       token,
	})
}

// TerminateConference force-closes a conference room via Prosody and
// marks the stored rows ended.
// POST /api/v1/conferences/{id}/terminate
func (h *Handler) TerminateConference(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, CodeValidationError, "invalid conference id", nil)
		return
	}

	conf, err := h.db.GetConference(r.Context(), id)
	if err != nil {
		if errors.Is(err, database.ErrConferenceNotFound) {
			respondError(w, http.StatusNotFound, CodeNotFound, "conference not found", nil)
			return
		}
		respondError(w, http.StatusInternalServerError, CodeInternalError, "failed to load conference", err)
		return
	}

	server, err := h.db.GetServer(r.Context(), conf.ServerID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, CodeInternalError, "failed to load server", err)
		return
	}

	if err := h.manager.ClientFor(server).TerminateRoom(r.Context(), conf.RoomName); err != nil {
		respondError(w, http.StatusBadGateway, CodeUpstreamError, "prosody rejected the termination", err)
		return
	}

	ended, err := h.db.EndConferencesByRoom(r.Context(), conf.RoomName, time.Now())
	if err != nil {
		respondError(w, http.StatusInternalServerError, CodeInternalError, "failed to mark conference ended", err)
		return
	}

	logging.Ctx(r.Context()).Info().
		Int64("conference_id", id).
		Str("room", sanitizeLogValue(conf.RoomName)).
		Int64("rows_ended", ended).
		Msg("Conference terminated")

	if h.wsHub != nil {
		if updated, gerr := h.db.GetConference(r.Context(), id); gerr == nil {
			h.wsHub.BroadcastConferenceUpdate(updated)
		}
	}

	respondData(w, http.StatusOK, map[string]interface{}{
		"id":         id,
		"status":     models.ConferenceEnded,
		"rows_ended": ended,
	})
}

// DeleteConference removes a conference and its dependent rows.
// DELETE /api/v1/conferences/{id}
func (h *Handler) DeleteConference(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, CodeValidationError, "invalid conference id", nil)
		return
	}

	if err := h.db.DeleteConference(r.Context(), id); err != nil {
		if errors.Is(err, database.ErrConferenceNotFound) {
			respondError(w, http.StatusNotFound, CodeNotFound, "conference not found", nil)
			return
		}
		respondError(w, http.StatusInternalServerError, CodeInternalError, "failed to delete conference", err)
		return
	}
	respondData(w, http.StatusOK, map[string]interface{}{"id": id, "status": "deleted"})
}

// ListConferenceParticipants returns the participants of a conference.
// GET /api/v1/conferences/{id}/participants
func (h *Handler) ListConferenceParticipants(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, CodeValidationError, "invalid conference id", nil)
		return
	}

	page, pageSize := h.pageParams(r)
	participants, total, err := h.db.ListParticipants(r.Context(), database.ParticipantFilter{
		ConferenceID: id,
		ActiveOnly:   getBoolParam(r, "active", false),
		Page:         page,
		PageSize:     pageSize,
	})
	if err != nil {
		respondError(w, http.StatusInternalServerError, CodeInternalError, "failed to list participants", err)
		return
	}
	respondPage(w, participants, page, pageSize, total)
}

// resolveServer loads the requested server, or falls back to the
// primary (else first active) server.
func (h *Handler) resolveServer(r *http.Request, serverID string) (*models.JitsiServer, error) {
	if serverID != "" {
		return h.db.GetServer(r.Context(), serverID)
	}
	return h.db.DefaultServer(r.Context())
}
