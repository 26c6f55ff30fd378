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
	"github.com/goccy/go-json"

	"github.com/tomtom215/confera/internal/database"
	"github.com/tomtom215/confera/internal/jitsi"
	"github.com/tomtom215/confera/internal/logging"
	"github.com/tomtom215/confera/internal/models"
)

// Jicofo consumes these endpoints directly, so they speak the
// reservation protocol's own wire format instead of the dashboard
// envelope: form-encoded requests, bare JSON responses, and a
// conflict_id body on 409.

// reservationTimeLayout is the timestamp format Jicofo sends.
const reservationTimeLayout = "2006-01-02T15:04:05.000Z07:00"

// CreateReservation answers Jicofo's room-creation check. An existing
// active conference for the room is a conflict; otherwise the room is
// approved and tracked as an active conference.
// POST /api/v1/reservation/conference
func (h *Handler) CreateReservation(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeReservationError(w, http.StatusBadRequest, "malformed form body")
		return
	}

	name := r.PostFormValue("name")
	if name == "" {
		writeReservationError(w, http.StatusBadRequest, "name is required")
		return
	}
	room := jitsi.CleanRoomName(name)

	server, err := h.db.DefaultServer(r.Context())
	if err != nil {
		if errors.Is(err, database.ErrServerNotFound) {
			writeReservationError(w, http.StatusServiceUnavailable, "no server configured")
			return
		}
		writeReservationError(w, http.StatusInternalServerError, "internal error")
		return
	}

	if existing, err := h.db.GetActiveConferenceByRoom(r.Context(), server.ID, room); err == nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		_ = json.NewEncoder(w).Encode(map[string]int64{"conflict_id": existing.ID})
		return
	} else if !errors.Is(err, database.ErrConferenceNotFound) {
		writeReservationError(w, http.StatusInternalServerError, "internal error")
		return
	}

	startedAt := time.Now()
	if raw := r.PostFormValue("start_time"); raw != "" {
		if parsed, perr := time.Parse(reservationTimeLayout, raw); perr == nil {
			startedAt = parsed
		}
	}

	conf := &models.Conference{
		ServerID:  server.ID,
		RoomName:  room,
		Status:    models.ConferenceActive,
		CreatedBy: r.PostFormValue("mail_owner"),
		StartedAt: &startedAt,
	}
	if err := h.db.CreateConference(r.Context(), conf); err != nil {
		writeReservationError(w, http.StatusInternalServerError, "internal error")
		return
	}

	logging.Ctx(r.Context()).Info().
		Int64("conference_id", conf.ID).
		Str("room", sanitizeLogValue(room)).
		Msg("Reservation granted")

	writeReservation(w, http.StatusCreated, conf, r.PostFormValue("duration"))
}

// GetReservation returns a reservation by conference ID.
// GET /api/v1/reservation/conference/{id}
func (h *Handler) GetReservation(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeReservationError(w, http.StatusBadRequest, "invalid id")
		return
	}

	conf, err := h.db.GetConference(r.Context(), id)
	if err != nil {
		if errors.Is(err, database.ErrConferenceNotFound) {
			writeReservationError(w, http.StatusNotFound, "not found")
			return
		}
		writeReservationError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeReservation(w, http.StatusOK, conf, "")
}

// DeleteReservation releases a reservation when Jicofo destroys the
// room. The conference rows are marked ended, not removed.
// DELETE /api/v1/reservation/conference/{id}
func (h *Handler) DeleteReservation(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeReservationError(w, http.StatusBadRequest, "invalid id")
		return
	}

	conf, err := h.db.GetConference(r.Context(), id)
	if err != nil {
		if errors.Is(err, database.ErrConferenceNotFound) {
			writeReservationError(w, http.StatusNotFound, "not found")
			return
		}
		writeReservationError(w, http.StatusInternalServerError, "internal error")
		return
	}

	if _, err := h.db.EndConferencesByRoom(r.Context(), conf.RoomName, time.Now()); err != nil {
		writeReservationError(w, http.StatusInternalServerError, "internal error")
		return
	}

	logging.Ctx(r.Context()).Info().
		Int64("conference_id", id).
		Str("room", sanitizeLogValue(conf.RoomName)).
		Msg("Reservation released")
	w.WriteHeader(http.StatusOK)
}

// writeReservation emits the reservation document Jicofo expects.
func writeReservation(w http.ResponseWriter, status int, conf *models.Conference, rawDuration string) {
	duration := -1
	if rawDuration != "" {
		if parsed, err := strconv.Atoi(rawDuration); err == nil {
			duration = parsed
		}
	}

	startTime := time.Now()
	if conf.StartedAt != nil {
		startTime = *conf.StartedAt
	}

	res := models.Reservation{
		ID:        conf.ID,
		Name:      conf.RoomName,
		MailOwner: conf.CreatedBy,
		StartTime: startTime.UTC().Format(reservationTimeLayout),
		Duration:  duration,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(res)
}

func writeReservationError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"message": message})
}
