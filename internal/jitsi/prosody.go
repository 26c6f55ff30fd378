// Confera - Jitsi Meet Operations Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/confera

package jitsi

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// TerminateRoom destroys a room through the Prosody admin REST
// interface, kicking every participant. A 404 means the room is already
// gone and is treated as success.
func (c *Client) TerminateRoom(ctx context.Context, roomName string) error {
	domain := c.server.XMPPDomain
	if domain == "" {
		domain = c.server.Host()
	}
	roomJID := fmt.Sprintf("%s@conference.%s", CleanRoomName(roomName), domain)

	reqURL, err := c.componentURL(c.server.ProsodyPort, "/admin/rooms/"+url.PathEscape(roomJID))
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, reqURL, http.NoBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if c.server.ProsodyUser != "" {
		req.SetBasicAuth(c.server.ProsodyUser, c.server.ProsodyPassword)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("prosody terminate: %w", err)
	}
	defer closeBody(resp)

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated, http.StatusNoContent:
		return nil
	case http.StatusNotFound:
		// Room already destroyed.
		return nil
	default:
		return fmt.Errorf("prosody terminate: unexpected status %d: %s", resp.StatusCode, readBodyForError(resp.Body))
	}
}
