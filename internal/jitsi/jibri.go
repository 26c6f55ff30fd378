// Confera - Jitsi Meet Operations Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/confera

package jitsi

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/tomtom215/confera/internal/models"
)

const (
	jibriHealthPath = "/jibri/api/v1.0/health"
	jibriStartPath  = "/jibri/api/v1.0/startService"
	jibriStopPath   = "/jibri/api/v1.0/stopService"
)

// JibriHealth fetches the recorder health document.
func (c *Client) JibriHealth(ctx context.Context) (*models.JibriHealth, error) {
	reqURL, err := c.componentURL(c.server.JibriPort, jibriHealthPath)
	if err != nil {
		return nil, err
	}

	health := &models.JibriHealth{}
	if err := c.getJSON(ctx, reqURL, health); err != nil {
		return nil, fmt.Errorf("jibri health: %w", err)
	}
	return health, nil
}

// NewJibriSessionID derives the session identifier Jibri is started
// with, stable enough to correlate the later stop call and webhook
// events.
func NewJibriSessionID(roomName string) string {
	return fmt.Sprintf("session_%s_%d", CleanRoomName(roomName), time.Now().Unix())
}

// StartRecording asks Jibri to start a file recording or a stream for a
// room. Returns the session ID used.
func (c *Client) StartRecording(ctx context.Context, roomName, mode, streamKey string) (string, error) {
	reqURL, err := c.componentURL(c.server.JibriPort, jibriStartPath)
	if err != nil {
		return "", err
	}

	sessionID := NewJibriSessionID(roomName)
	req := models.JibriStartRequest{
		SessionID: sessionID,
		CallParams: models.JibriCallParams{
			CallURLInfo: models.JibriCallURLInfo{
				BaseURL:  c.server.BaseURL,
				CallName: CleanRoomName(roomName),
			},
		},
		SinkType: strings.ToUpper(mode),
	}
	if req.SinkType == "" {
		req.SinkType = "FILE"
	}
	if req.SinkType == "STREAM" {
		req.YouTubeStreamKey = streamKey
	}

	resp, err := c.postJSON(ctx, reqURL, req)
	if err != nil {
		return "", fmt.Errorf("jibri start: %w", err)
	}
	defer closeBody(resp)

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("jibri start: unexpected status %d: %s", resp.StatusCode, readBodyForError(resp.Body))
	}
	return sessionID, nil
}

// StopRecording asks Jibri to stop the service for a session.
func (c *Client) StopRecording(ctx context.Context, sessionID string) error {
	reqURL, err := c.componentURL(c.server.JibriPort, jibriStopPath)
	if err != nil {
		return err
	}

	resp, err := c.postJSON(ctx, reqURL, models.JibriStopRequest{SessionID: sessionID})
	if err != nil {
		return fmt.Errorf("jibri stop: %w", err)
	}
	defer closeBody(resp)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("jibri stop: unexpected status %d: %s", resp.StatusCode, readBodyForError(resp.Body))
	}
	return nil
}
