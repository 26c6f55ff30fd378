// Confera - Jitsi Meet Operations Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/confera

package models

// ColibriStats is the JVB statistics document served at /colibri/stats.
// Only the fields the dashboard consumes are mapped; unknown fields are
// ignored on decode.
type ColibriStats struct {
	Conferences              int     `json:"conferences"`
	Participants             int     `json:"participants"`
	LargestConference        int     `json:"largest_conference"`
	TotalConferencesCreated  int     `json:"total_conferences_created"`
	TotalParticipants        int     `json:"total_participants"`
	BitRateDownload          float64 `json:"bit_rate_download"`
	BitRateUpload            float64 `json:"bit_rate_upload"`
	PacketRateDownload       float64 `json:"packet_rate_download"`
	PacketRateUpload         float64 `json:"packet_rate_upload"`
	StressLevel              float64 `json:"stress_level"`
	Threads                  int     `json:"threads"`
	Version                  string  `json:"version,omitempty"`
	Region                   string  `json:"region,omitempty"`
	Drain                    bool    `json:"drain"`
	GracefulShutdown         bool    `json:"graceful_shutdown"`
}

// JicofoStats is the Jicofo statistics document served at /stats. The
// payload varies across Jicofo versions, so it is kept as a free-form map.
type JicofoStats map[string]interface{}

// JibriHealth is the Jibri health document at /jibri/api/v1.0/health.
type JibriHealth struct {
	Status struct {
		Health struct {
			HealthStatus string `json:"healthStatus"`
			Details      map[string]interface{} `json:"details,omitempty"`
		} `json:"health"`
		BusyStatus string `json:"busyStatus"`
	} `json:"status"`
}

// JibriStartRequest is the startService request body.
type JibriStartRequest struct {
	SessionID        string           `json:"sessionId"`
	CallParams       JibriCallParams  `json:"callParams"`
	CallLoginParams  struct{}         `json:"callLoginParams"`
	SinkType         string           `json:"sinkType"`
	YouTubeStreamKey string           `json:"youTubeStreamKey,omitempty"`
}

// JibriCallParams identifies the call Jibri should join.
type JibriCallParams struct {
	CallURLInfo JibriCallURLInfo `json:"callUrlInfo"`
}

// JibriCallURLInfo locates the conference on the deployment.
type JibriCallURLInfo struct {
	BaseURL  string `json:"baseUrl"`
	CallName string `json:"callName"`
}

// JibriStopRequest is the stopService request body.
type JibriStopRequest struct {
	SessionID string `json:"sessionId"`
}

// ComponentStatus is the per-component slice of a server overview.
type ComponentStatus struct {
	Online  bool        `json:"online"`
	Healthy bool        `json:"healthy"`
	Error   string      `json:"error,omitempty"`
	Stats   interface{} `json:"stats,omitempty"`
}

// ServerOverview is the composite health and load picture of one server.
type ServerOverview struct {
	ServerID   string                     `json:"server_id"`
	ServerName string                     `json:"server_name"`
	Components map[string]ComponentStatus `json:"components"`
	Summary    OverviewSummary            `json:"summary"`
}

// OverviewSummary condenses the Colibri stats for the dashboard header.
type OverviewSummary struct {
	Conferences       int     `json:"conferences"`
	Participants      int     `json:"participants"`
	LargestConference int     `json:"largest_conference"`
	BitrateDownKbps   float64 `json:"bitrate_down_kbps"`
	BitrateUpKbps     float64 `json:"bitrate_up_kbps"`
	StressLevel       float64 `json:"stress_level"`
}

// WebhookPayload is the inbound Jitsi webhook envelope. Jitsi deployments
// vary in field placement, so room and participant data appear both at
// the top level and nested under data.
type WebhookPayload struct {
	EventType string          `json:"eventType"`
	SessionID string          `json:"sessionId,omitempty"`
	Room      string          `json:"room,omitempty"`
	RoomName  string          `json:"roomName,omitempty"`
	FQN       string          `json:"fqn,omitempty"`
	Timestamp int64           `json:"timestamp,omitempty"`
	Data      WebhookData     `json:"data,omitempty"`
}

// WebhookData carries the event-specific fields.
type WebhookData struct {
	RoomName         string  `json:"roomName,omitempty"`
	Conference       string  `json:"conference,omitempty"`
	ParticipantID    string  `json:"participantId,omitempty"`
	ID               string  `json:"id,omitempty"`
	Name             string  `json:"name,omitempty"`
	Email            string  `json:"email,omitempty"`
	Moderator        bool    `json:"moderator,omitempty"`
	DisconnectReason string  `json:"disconnectReason,omitempty"`
	RecordingSession string  `json:"recordingSessionId,omitempty"`
	RecordingMode    string  `json:"recordingMode,omitempty"`
	RecordingURL     string  `json:"recordingUrl,omitempty"`
	FilePath         string  `json:"filePath,omitempty"`
	DurationSeconds  float64 `json:"duration,omitempty"`
	Error            string  `json:"error,omitempty"`
}

// RoomNameOf resolves the room name from the envelope's various homes.
func (p *WebhookPayload) RoomNameOf() string {
	switch {
	case p.Room != "":
		return p.Room
	case p.RoomName != "":
		return p.RoomName
	case p.Data.RoomName != "":
		return p.Data.RoomName
	case p.Data.Conference != "":
		return p.Data.Conference
	case p.FQN != "":
		return p.FQN
	}
	return ""
}

// ParticipantIDOf resolves the participant identifier.
func (p *WebhookPayload) ParticipantIDOf() string {
	if p.Data.ParticipantID != "" {
		return p.Data.ParticipantID
	}
	return p.Data.ID
}

// Reservation is the Jicofo conference-reservation document.
type Reservation struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	MailOwner string `json:"mail_owner"`
	StartTime string `json:"start_time"`
	Duration  int    `json:"duration"`
}
