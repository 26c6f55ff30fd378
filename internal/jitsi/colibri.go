// Confera - Jitsi Meet Operations Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/confera

package jitsi

import (
	"context"
	"fmt"

	"github.com/tomtom215/confera/internal/models"
)

// colibriStatsPath is the videobridge statistics endpoint.
const colibriStatsPath = "/colibri/stats"

// ColibriStats fetches the videobridge statistics. On failure it returns
// zero-valued stats alongside the error so callers can render a degraded
// view instead of failing outright.
func (c *Client) ColibriStats(ctx context.Context) (*models.ColibriStats, error) {
	stats := &models.ColibriStats{}

	reqURL, err := c.componentURL(c.server.ColibriPort, colibriStatsPath)
	if err != nil {
		return stats, err
	}

	if err := c.getJSON(ctx, reqURL, stats); err != nil {
		return &models.ColibriStats{}, fmt.Errorf("colibri stats: %w", err)
	}
	return stats, nil
}
