// Confera - Jitsi Meet Operations Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/confera

package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/tomtom215/confera/internal/database"
	"github.com/tomtom215/confera/internal/logging"
	"github.com/tomtom215/confera/internal/models"
)

// startRecordingRequest is the body for starting a Jibri session.
type startRecordingRequest struct {
	ConferenceID int64 `json:"conference_id" validate:"required"`
	// Mode is "file" or "stream".
	Mode      string `json:"mode"`
	StreamKey string `json:"stream_key"`
}

// stopRecordingRequest is the body for stopping a Jibri session.
type stopRecordingRequest struct {
	SessionID string `json:"session_id" validate:"required"`
}

// ListRecordings returns recordings with filters and pagination.
// GET /api/v1/recordings?status=&conference_id=&page=&page_size=
func (h *Handler) ListRecordings(w http.ResponseWriter, r *http.Request) {
	page, pageSize := h.pageParams(r)

	var conferenceID int64
	if raw := r.URL.Query().Get("conference_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			respondError(w, http.StatusBadRequest, CodeValidationError, "invalid conference_id", nil)
			return
		}
		conferenceID = id
	}

	recordings, total, err := h.db.ListRecordings(r.Context(), r.URL.Query().Get("status"), conferenceID, page, pageSize)
	if err != nil {
		respondError(w, http.StatusInternalServerError, CodeInternalError, "failed to list recordings", err)
		return
	}
	respondPage(w, recordings, page, pageSize, total)
}

// StartRecording asks Jibri to start recording or streaming a
// conference, and tracks the session as a pending recording row.
// POST /api/v1/recordings/start
func (h *Handler) StartRecording(w http.ResponseWriter, r *http.Request) {
	var req startRecordingRequest
	if err := decodeJSONBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, CodeValidationError, err.Error(), nil)
		return
	}
	if err := serverValidate.Struct(&req); err != nil {
		respondError(w, http.StatusBadRequest, CodeValidationError, err.Error(), nil)
		return
	}

	mode := strings.ToLower(req.Mode)
	if mode == "" {
		mode = models.RecordingTypeFile
	}
	if mode != models.RecordingTypeFile && mode != models.RecordingTypeStream {
		respondError(w, http.StatusBadRequest, CodeValidationError, "mode must be file or stream", nil)
		return
	}
	if mode == models.RecordingTypeStream && req.StreamKey == "" {
		respondError(w, http.StatusBadRequest, CodeValidationError, "stream_key is required for stream mode", nil)
		return
	}

	conf, err := h.db.GetConference(r.Context(), req.ConferenceID)
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

	sessionID, err := h.manager.ClientFor(server).StartRecording(r.Context(), conf.RoomName, mode, req.StreamKey)
	if err != nil {
		respondError(w, http.StatusBadGateway, CodeUpstreamError, "jibri rejected the start request", err)
		return
	}

	now := time.Now()
	rec := &models.Recording{
		ConferenceID:  conf.ID,
		RecordingType: mode,
		Status:        models.RecordingPending,
		SessionID:     sessionID,
		StartedAt:     &now,
	}
	if mode == models.RecordingTypeStream {
		rec.StreamURL = req.StreamKey
	}
	if err := h.db.CreateRecording(r.Context(), rec); err != nil && !errors.Is(err, database.ErrRecordingConflict) {
		respondError(w, http.StatusInternalServerError, CodeInternalError, "failed to track recording", err)
		return
	}

	logging.Ctx(r.Context()).Info().
		Str("session_id", sessionID).
		Int64("conference_id", conf.ID).
		Str("mode", mode).
		Msg("Recording started")
	respondData(w, http.StatusCreated, rec)
}

// StopRecording asks Jibri to stop a session and marks the recording
// row as processing until the webhook confirms completion.
// POST /api/v1/recordings/stop
func (h *Handler) StopRecording(w http.ResponseWriter, r *http.Request) {
	var req stopRecordingRequest
	if err := decodeJSONBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, CodeValidationError, err.Error(), nil)
		return
	}
	if err := serverValidate.Struct(&req); err != nil {
		respondError(w, http.StatusBadRequest, CodeValidationError, err.Error(), nil)
		return
	}

	rec, err := h.db.GetRecordingBySessionID(r.Context(), req.SessionID)
	if err != nil {
		if errors.Is(err, database.ErrRecordingNotFound) {
			respondError(w, http.StatusNotFound, CodeNotFound, "recording session not found", nil)
			return
		}
		respondError(w, http.StatusInternalServerError, CodeInternalError, "failed to load recording", err)
		return
	}

	conf, err := h.db.GetConference(r.Context(), rec.ConferenceID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, CodeInternalError, "failed to load conference", err)
		return
	}
	server, err := h.db.GetServer(r.Context(), conf.ServerID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, CodeInternalError, "failed to load server", err)
		return
	}

	if err := h.manager.ClientFor(server).StopRecording(r.Context(), req.SessionID); err != nil {
		respondError(w, http.StatusBadGateway, CodeUpstreamError, "jibri rejected the stop request", err)
		return
	}

	now := time.Now()
	rec.Status = models.RecordingProcessing
	rec.EndedAt = &now
	if rec.StartedAt != nil {
		rec.DurationSeconds = int(now.Sub(*rec.StartedAt).Seconds())
	}
	if err := h.db.UpdateRecording(r.Context(), rec); err != nil {
		respondError(w, http.StatusInternalServerError, CodeInternalError, "failed to update recording", err)
		return
	}

	respondData(w, http.StatusOK, rec)
}
