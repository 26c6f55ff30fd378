// Confera - Jitsi Meet Operations Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/confera

package api

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/confera/internal/database"
	"github.com/tomtom215/confera/internal/logging"
	"github.com/tomtom215/confera/internal/metrics"
	"github.com/tomtom215/confera/internal/models"
)

// maxWebhookBodySize bounds inbound webhook payloads.
const maxWebhookBodySize = 1 << 20 // 1 MB

// signatureHeader carries the hex HMAC-SHA256 of the raw body.
const signatureHeader = "X-Jitsi-Signature"

// ReceiveWebhook ingests a Jitsi webhook delivery. Events are stored
// verbatim before dispatch so a processing failure never loses the
// delivery, and every dispatch path is idempotent under redelivery.
// POST /api/v1/webhooks/jitsi
func (h *Handler) ReceiveWebhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	settings, err := h.db.GetSettings(ctx)
	if err != nil {
		respondError(w, http.StatusInternalServerError, CodeInternalError, "failed to load settings", err)
		return
	}
	if !settings.EnableWebhooks {
		metrics.WebhookEventsTotal.WithLabelValues("unknown", "disabled").Inc()
		respondError(w, http.StatusForbidden, CodeForbidden, "webhook ingestion is disabled", nil)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBodySize+1))
	if err != nil {
		respondError(w, http.StatusBadRequest, CodeValidationError, "failed to read body", err)
		return
	}
	if len(body) > maxWebhookBodySize {
		respondError(w, http.StatusRequestEntityTooLarge, CodeValidationError, "payload too large", nil)
		return
	}

	if settings.WebhookSecret != "" {
		if !verifySignature(body, r.Header.Get(signatureHeader), settings.WebhookSecret) {
			metrics.WebhookEventsTotal.WithLabelValues("unknown", "bad_signature").Inc()
			respondError(w, http.StatusUnauthorized, CodeUnauthorized, "invalid webhook signature", nil)
			return
		}
	}

	var payload models.WebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		metrics.WebhookEventsTotal.WithLabelValues("unknown", "malformed").Inc()
		respondError(w, http.StatusBadRequest, CodeValidationError, "invalid webhook payload", err)
		return
	}
	if payload.EventType == "" {
		metrics.WebhookEventsTotal.WithLabelValues("unknown", "malformed").Inc()
		respondError(w, http.StatusBadRequest, CodeValidationError, "eventType is required", nil)
		return
	}

	eventType := payload.EventType
	if !models.KnownEventTypes[eventType] {
		eventType = models.EventOther
	}

	// Webhooks carry no server identity; attribute to the default server.
	var serverID string
	if server, serr := h.db.DefaultServer(ctx); serr == nil {
		serverID = server.ID
	}

	event := &models.WebhookEvent{
		EventType: eventType,
		ServerID:  serverID,
		RoomName:  payload.RoomNameOf(),
		Payload:   string(body),
	}
	if err := h.db.CreateWebhookEvent(ctx, event); err != nil {
		metrics.WebhookEventsTotal.WithLabelValues(eventType, "store_failed").Inc()
		respondError(w, http.StatusInternalServerError, CodeInternalError, "failed to store event", err)
		return
	}

	if err := h.dispatchWebhook(r, serverID, eventType, &payload); err != nil {
		metrics.WebhookEventsTotal.WithLabelValues(eventType, "dispatch_failed").Inc()
		logging.Ctx(ctx).Error().
			Err(err).
			Str("event_type", eventType).
			Str("room", sanitizeLogValue(event.RoomName)).
			Msg("Webhook dispatch failed")
		respondError(w, http.StatusInternalServerError, CodeInternalError, "failed to process event", err)
		return
	}

	if err := h.db.MarkWebhookEventProcessed(ctx, event.ID); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("event_id", event.ID).Msg("Failed to mark event processed")
	} else {
		event.Processed = true
	}

	if h.publisher != nil {
		h.publisher.PublishWebhookEvent(event)
	}

	metrics.WebhookEventsTotal.WithLabelValues(eventType, "processed").Inc()
	respondData(w, http.StatusOK, map[string]interface{}{
		"event_id":   event.ID,
		"event_type": eventType,
		"processed":  event.Processed,
	})
}

// verifySignature checks the hex HMAC-SHA256 of the body against the
// shared secret.
func verifySignature(body []byte, signature, secret string) bool {
	if signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// dispatchWebhook routes a parsed event to its state transition.
func (h *Handler) dispatchWebhook(r *http.Request, serverID, eventType string, payload *models.WebhookPayload) error {
	ctx := r.Context()
	room := payload.RoomNameOf()

	switch eventType {
	case models.EventRoomCreated:
		_, err := h.ensureActiveConference(r, serverID, room)
		return err

	case models.EventRoomDestroyed:
		if room == "" {
			return nil
		}
		ended, err := h.db.EndConferencesByRoom(ctx, room, eventTime(payload))
		if err != nil {
			return err
		}
		if ended > 0 {
			h.broadcastRoomUpdate(r, serverID, room)
		}
		return nil

	case models.EventParticipantJoined:
		return h.handleParticipantJoined(r, serverID, payload)

	case models.EventParticipantLeft:
		if room == "" {
			return nil
		}
		_, err := h.db.MarkParticipantLeft(ctx, room, payload.ParticipantIDOf(),
			payload.Data.DisconnectReason, eventTime(payload))
		return err

	case models.EventParticipantJoinedLobby, models.EventParticipantLeftLobby:
		// Lobby traffic is logged in the event table only.
		logging.Ctx(ctx).Debug().
			Str("event_type", eventType).
			Str("room", sanitizeLogValue(room)).
			Msg("Lobby event recorded")
		return nil

	case models.EventRecordingStarted:
		return h.handleRecordingStarted(r, serverID, payload)

	case models.EventRecordingStopped:
		return h.handleRecordingStopped(r, serverID, payload)
	}

	// Unrecognized events are stored for the audit trail and otherwise
	// ignored.
	return nil
}

// ensureActiveConference finds the active conference for a room,
// creating one when the room is new. Redelivered ROOM_CREATED events
// resolve to the existing row.
func (h *Handler) ensureActiveConference(r *http.Request, serverID, room string) (*models.Conference, error) {
	ctx := r.Context()
	if room == "" {
		return nil, errors.New("event carries no room name")
	}
	if serverID == "" {
		return nil, errors.New("no active server to attribute event to")
	}

	conf, err := h.db.GetActiveConferenceByRoom(ctx, serverID, room)
	if err == nil {
		return conf, nil
	}
	if !errors.Is(err, database.ErrConferenceNotFound) {
		return nil, err
	}

	now := time.Now()
	conf = &models.Conference{
		ServerID:  serverID,
		RoomName:  room,
		Status:    models.ConferenceActive,
		StartedAt: &now,
	}
	if err := h.db.CreateConference(ctx, conf); err != nil {
		return nil, err
	}

	settings, serr := h.db.GetSettings(ctx)
	if serr == nil && settings.NotifyOnNewConference {
		logging.Ctx(ctx).Info().
			Str("room", sanitizeLogValue(room)).
			Int64("conference_id", conf.ID).
			Msg("New conference started")
	}
	if h.wsHub != nil {
		h.wsHub.BroadcastConferenceUpdate(conf)
	}
	return conf, nil
}

func (h *Handler) handleParticipantJoined(r *http.Request, serverID string, payload *models.WebhookPayload) error {
	ctx := r.Context()
	conf, err := h.ensureActiveConference(r, serverID, payload.RoomNameOf())
	if err != nil {
		return err
	}

	participantID := payload.ParticipantIDOf()
	if participantID == "" {
		return errors.New("join event carries no participant id")
	}

	present, err := h.db.HasActiveParticipant(ctx, conf.ID, participantID)
	if err != nil {
		return err
	}
	if present {
		return nil
	}

	participant := &models.Participant{
		ConferenceID:  conf.ID,
		ParticipantID: participantID,
		Name:          payload.Data.Name,
		Email:         payload.Data.Email,
		IsModerator:   payload.Data.Moderator,
		JoinedAt:      eventTime(payload),
	}
	if err := h.db.CreateParticipant(ctx, participant); err != nil {
		return err
	}

	conf.TotalParticipants++
	active, err := h.db.CountActiveParticipants(ctx, conf.ID)
	if err != nil {
		return err
	}
	if active > conf.MaxParticipants {
		conf.MaxParticipants = active
	}
	if err := h.db.UpdateConference(ctx, conf); err != nil {
		return err
	}

	if h.wsHub != nil {
		h.wsHub.BroadcastConferenceUpdate(conf)
	}
	return nil
}

func (h *Handler) handleRecordingStarted(r *http.Request, serverID string, payload *models.WebhookPayload) error {
	ctx := r.Context()
	conf, err := h.ensureActiveConference(r, serverID, payload.RoomNameOf())
	if err != nil {
		return err
	}

	sessionID := payload.Data.RecordingSession
	if sessionID == "" {
		sessionID = payload.SessionID
	}
	if sessionID == "" {
		return errors.New("recording event carries no session id")
	}

	now := eventTime(payload)
	mode := payload.Data.RecordingMode
	if mode == "" {
		mode = models.RecordingTypeFile
	}

	rec, err := h.db.GetRecordingBySessionID(ctx, sessionID)
	switch {
	case err == nil:
		rec.Status = models.RecordingInProgress
		if rec.StartedAt == nil {
			rec.StartedAt = &now
		}
		if err := h.db.UpdateRecording(ctx, rec); err != nil {
			return err
		}
	case errors.Is(err, database.ErrRecordingNotFound):
		rec = &models.Recording{
			ConferenceID:  conf.ID,
			RecordingType: mode,
			Status:        models.RecordingInProgress,
			SessionID:     sessionID,
			StartedAt:     &now,
		}
		if err := h.db.CreateRecording(ctx, rec); err != nil {
			return err
		}
	default:
		return err
	}

	conf.IsRecorded = true
	return h.db.UpdateConference(ctx, conf)
}

func (h *Handler) handleRecordingStopped(r *http.Request, serverID string, payload *models.WebhookPayload) error {
	ctx := r.Context()

	sessionID := payload.Data.RecordingSession
	if sessionID == "" {
		sessionID = payload.SessionID
	}
	if sessionID == "" {
		return errors.New("recording event carries no session id")
	}

	rec, err := h.db.GetRecordingBySessionID(ctx, sessionID)
	if errors.Is(err, database.ErrRecordingNotFound) {
		// Stop for a session we never saw start; record what we know.
		conf, cerr := h.ensureActiveConference(r, serverID, payload.RoomNameOf())
		if cerr != nil {
			return cerr
		}
		rec = &models.Recording{
			ConferenceID:  conf.ID,
			RecordingType: models.RecordingTypeFile,
			SessionID:     sessionID,
		}
		if cerr := h.db.CreateRecording(ctx, rec); cerr != nil {
			return cerr
		}
	} else if err != nil {
		return err
	}

	now := eventTime(payload)
	rec.EndedAt = &now
	if payload.Data.Error != "" {
		rec.Status = models.RecordingFailed
		rec.ErrorMessage = payload.Data.Error
	} else {
		rec.Status = models.RecordingCompleted
	}
	if payload.Data.FilePath != "" {
		rec.FilePath = payload.Data.FilePath
	}
	if payload.Data.DurationSeconds > 0 {
		rec.DurationSeconds = int(payload.Data.DurationSeconds)
	} else if rec.StartedAt != nil {
		rec.DurationSeconds = int(now.Sub(*rec.StartedAt).Seconds())
	}
	if err := h.db.UpdateRecording(ctx, rec); err != nil {
		return err
	}

	if payload.Data.RecordingURL != "" {
		if conf, cerr := h.db.GetConference(ctx, rec.ConferenceID); cerr == nil {
			conf.RecordingURL = payload.Data.RecordingURL
			conf.IsRecorded = true
			if uerr := h.db.UpdateConference(ctx, conf); uerr != nil {
				return uerr
			}
		}
	}
	return nil
}

// broadcastRoomUpdate pushes the latest state of a room's conference to
// WebSocket clients, best-effort.
func (h *Handler) broadcastRoomUpdate(r *http.Request, serverID, room string) {
	if h.wsHub == nil {
		return
	}
	filter := database.ConferenceFilter{ServerID: serverID, Query: room, Page: 1, PageSize: 1}
	if conferences, _, err := h.db.ListConferences(r.Context(), filter); err == nil && len(conferences) > 0 {
		h.wsHub.BroadcastConferenceUpdate(&conferences[0])
	}
}

// eventTime resolves the event timestamp, preferring the payload's
// millisecond epoch when present.
func eventTime(payload *models.WebhookPayload) time.Time {
	if payload.Timestamp > 0 {
		return time.UnixMilli(payload.Timestamp)
	}
	return time.Now()
}

// ListWebhookEvents returns the stored event log.
// GET /api/v1/events?event_type=&room=&page=&page_size=
func (h *Handler) ListWebhookEvents(w http.ResponseWriter, r *http.Request) {
	page, pageSize := h.pageParams(r)
	eventsList, total, err := h.db.ListWebhookEvents(r.Context(),
		r.URL.Query().Get("event_type"), r.URL.Query().Get("room"), page, pageSize)
	if err != nil {
		respondError(w, http.StatusInternalServerError, CodeInternalError, "failed to list events", err)
		return
	}
	respondPage(w, eventsList, page, pageSize, total)
}
