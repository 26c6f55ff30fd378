// Confera - Jitsi Meet Operations Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/confera

package jitsi

import (
	"context"
	"fmt"
	"net/http"

	"github.com/tomtom215/confera/internal/models"
)

const (
	jicofoHealthPath = "/about/health"
	jicofoStatsPath  = "/stats"
)

// JicofoHealthy checks the conference focus health endpoint. Healthy is
// strictly an HTTP 200.
func (c *Client) JicofoHealthy(ctx context.Context) (bool, error) {
	reqURL, err := c.componentURL(c.server.JicofoPort, jicofoHealthPath)
	if err != nil {
		return false, err
	}

	resp, err := c.doRequest(ctx, http.MethodGet, reqURL, nil, nil)
	if err != nil {
		return false, fmt.Errorf("jicofo health: %w", err)
	}
	defer closeBody(resp)

	return resp.StatusCode == http.StatusOK, nil
}

// JicofoStats fetches the conference focus statistics. The document
// shape varies across Jicofo versions, so it is returned as a map.
func (c *Client) JicofoStats(ctx context.Context) (models.JicofoStats, error) {
	reqURL, err := c.componentURL(c.server.JicofoPort, jicofoStatsPath)
	if err != nil {
		return nil, err
	}

	stats := models.JicofoStats{}
	if err := c.getJSON(ctx, reqURL, &stats); err != nil {
		return nil, fmt.Errorf("jicofo stats: %w", err)
	}
	return stats, nil
}
