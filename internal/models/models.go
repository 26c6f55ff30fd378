// Confera - Jitsi Meet Operations Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/confera

// Package models defines the persisted entities and the wire types
// exchanged with Jitsi components.
package models

import (
	"strings"
	"time"
)

// Conference status values.
const (
	ConferenceActive    = "active"
	ConferenceEnded     = "ended"
	ConferenceScheduled = "scheduled"
)

// Recording types.
const (
	RecordingTypeFile   = "file"
	RecordingTypeStream = "stream"
	RecordingTypeLocal  = "local"
)

// Recording status values.
const (
	RecordingPending    = "pending"
	RecordingInProgress = "recording"
	RecordingProcessing = "processing"
	RecordingCompleted  = "completed"
	RecordingFailed     = "failed"
)

// Webhook event types emitted by Jitsi deployments.
const (
	EventRoomCreated            = "ROOM_CREATED"
	EventRoomDestroyed          = "ROOM_DESTROYED"
	EventParticipantJoined      = "PARTICIPANT_JOINED"
	EventParticipantLeft        = "PARTICIPANT_LEFT"
	EventParticipantJoinedLobby = "PARTICIPANT_JOINED_LOBBY"
	EventParticipantLeftLobby   = "PARTICIPANT_LEFT_LOBBY"
	EventRecordingStarted       = "RECORDING_STARTED"
	EventRecordingStopped       = "RECORDING_STOPPED"
	EventOther                  = "OTHER"
)

// KnownEventTypes maps recognized webhook event types.
var KnownEventTypes = map[string]bool{
	EventRoomCreated:            true,
	EventRoomDestroyed:          true,
	EventParticipantJoined:      true,
	EventParticipantLeft:        true,
	EventParticipantJoinedLobby: true,
	EventParticipantLeftLobby:   true,
	EventRecordingStarted:       true,
	EventRecordingStopped:       true,
}

// JitsiServer is a monitored Jitsi Meet deployment. At most one server
// may be the primary; the primary receives webhook attributions and is
// the default target for new meetings.
type JitsiServer struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	BaseURL         string    `json:"base_url"`
	ColibriPort     int       `json:"colibri_port"`
	JicofoPort      int       `json:"jicofo_port"`
	JibriPort       int       `json:"jibri_port"`
	ProsodyPort     int       `json:"prosody_port"`
	XMPPDomain      string    `json:"xmpp_domain"`
	AppID           string    `json:"app_id"`
	AppSecret       string    `json:"-"`
	ProsodyUser     string    `json:"prosody_user,omitempty"`
	ProsodyPassword string    `json:"-"`
	IsActive        bool      `json:"is_active"`
	IsPrimary       bool      `json:"is_primary"`
	VerifySSL       bool      `json:"verify_ssl"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Host returns the hostname portion of the server base URL, used as the
// JWT subject claim.
func (s *JitsiServer) Host() string {
	host := s.BaseURL
	host = strings.TrimPrefix(host, "https://")
	host = strings.TrimPrefix(host, "http://")
	if i := strings.IndexAny(host, "/:"); i >= 0 {
		host = host[:i]
	}
	return host
}

// Conference is a single meeting room observed on a server, either live
// (via webhooks) or scheduled ahead of time.
type Conference struct {
	ID                  int64      `json:"id"`
	ServerID            string     `json:"server_id"`
	RoomName            string     `json:"room_name"`
	DisplayName         string     `json:"display_name,omitempty"`
	Status              string     `json:"status"`
	CreatedBy           string     `json:"created_by,omitempty"`
	IsPasswordProtected bool       `json:"is_password_protected"`
	HasLobby            bool       `json:"has_lobby"`
	MaxParticipants     int        `json:"max_participants"`
	TotalParticipants   int        `json:"total_participants"`
	StartedAt           *time.Time `json:"started_at,omitempty"`
	EndedAt             *time.Time `json:"ended_at,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
	IsRecorded          bool       `json:"is_recorded"`
	RecordingURL        string     `json:"recording_url,omitempty"`
	MeetingURL          string     `json:"meeting_url,omitempty"`
}

// DurationMinutes returns the conference length in minutes. Active
// conferences are measured against the current time.
func (c *Conference) DurationMinutes() int {
	if c.StartedAt == nil {
		return 0
	}
	end := time.Now()
	if c.EndedAt != nil {
		end = *c.EndedAt
	}
	return int(end.Sub(*c.StartedAt).Minutes())
}

// Participant is one endpoint's presence in a conference. LeftAt is nil
// while the participant is still connected.
type Participant struct {
	ID               string     `json:"id"`
	ConferenceID     int64      `json:"conference_id"`
	ParticipantID    string     `json:"participant_id"`
	Name             string     `json:"name,omitempty"`
	Email            string     `json:"email,omitempty"`
	IsModerator      bool       `json:"is_moderator"`
	JoinedAt         time.Time  `json:"joined_at"`
	LeftAt           *time.Time `json:"left_at,omitempty"`
	DisconnectReason string     `json:"disconnect_reason,omitempty"`
}

// DurationMinutes returns the participant's connected time in minutes.
func (p *Participant) DurationMinutes() int {
	end := time.Now()
	if p.LeftAt != nil {
		end = *p.LeftAt
	}
	return int(end.Sub(p.JoinedAt).Minutes())
}

// Recording tracks a Jibri recording or stream session.
type Recording struct {
	ID              string     `json:"id"`
	ConferenceID    int64      `json:"conference_id"`
	RecordingType   string     `json:"recording_type"`
	Status          string     `json:"status"`
	SessionID       string     `json:"session_id"`
	FilePath        string     `json:"file_path,omitempty"`
	FileSizeMB      float64    `json:"file_size_mb,omitempty"`
	DurationSeconds int        `json:"duration_seconds,omitempty"`
	StreamURL       string     `json:"stream_url,omitempty"`
	StartedAt       *time.Time `json:"started_at,omitempty"`
	EndedAt         *time.Time `json:"ended_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	ErrorMessage    string     `json:"error_message,omitempty"`
}

// WebhookEvent is the raw audit log of every webhook delivery, stored
// before any dispatch so failed processing is still observable.
type WebhookEvent struct {
	ID         string    `json:"id"`
	EventType  string    `json:"event_type"`
	ServerID   string    `json:"server_id,omitempty"`
	RoomName   string    `json:"room_name,omitempty"`
	Payload    string    `json:"payload"`
	ReceivedAt time.Time `json:"received_at"`
	Processed  bool      `json:"processed"`
}

// Settings is the singleton dashboard configuration row (id = 1).
type Settings struct {
	RefreshIntervalSeconds int       `json:"refresh_interval_seconds"`
	DefaultJWTExpiryHours  int       `json:"default_jwt_expiry_hours"`
	EnableWebhooks         bool      `json:"enable_webhooks"`
	WebhookSecret          string    `json:"-"`
	DarkMode               bool      `json:"dark_mode"`
	ShowBandwidthGraphs    bool      `json:"show_bandwidth_graphs"`
	MaxRecentConferences   int       `json:"max_recent_conferences"`
	NotifyOnNewConference  bool      `json:"notify_on_new_conference"`
	NotifyOnHighLoad       bool      `json:"notify_on_high_load"`
	HighLoadThreshold      float64   `json:"high_load_threshold"`
	UpdatedAt              time.Time `json:"updated_at"`
}

// DefaultSettings returns the settings materialized on first read.
func DefaultSettings() *Settings {
	return &Settings{
		RefreshIntervalSeconds: 5,
		DefaultJWTExpiryHours:  24,
		EnableWebhooks:         true,
		DarkMode:               false,
		ShowBandwidthGraphs:    true,
		MaxRecentConferences:   50,
		NotifyOnNewConference:  false,
		NotifyOnHighLoad:       true,
		HighLoadThreshold:      0.8,
	}
}
