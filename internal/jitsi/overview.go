// Confera - Jitsi Meet Operations Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/confera

package jitsi

import (
	"context"
	"sync"

	"github.com/tomtom215/confera/internal/models"
)

// Overview fans out to the videobridge, Jicofo and Jibri concurrently
// and composes the server health picture. Component failures degrade
// that component's slice instead of failing the whole overview.
func (b *BreakerClient) Overview(ctx context.Context) *models.ServerOverview {
	overview := &models.ServerOverview{
		ServerID:   b.server.ID,
		ServerName: b.server.Name,
		Components: make(map[string]models.ComponentStatus),
	}

	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)

	wg.Add(3)

	go func() {
		defer wg.Done()
		stats, err := b.ColibriStats(ctx)
		status := models.ComponentStatus{Online: err == nil, Healthy: err == nil}
		if err != nil {
			status.Error = err.Error()
		} else {
			status.Stats = stats
		}
		mu.Lock()
		overview.Components["jvb"] = status
		if err == nil {
			overview.Summary = models.OverviewSummary{
				Conferences:       stats.Conferences,
				Participants:      stats.Participants,
				LargestConference: stats.LargestConference,
				BitrateDownKbps:   stats.BitRateDownload,
				BitrateUpKbps:     stats.BitRateUpload,
				StressLevel:       stats.StressLevel,
			}
		}
		mu.Unlock()
	}()

	go func() {
		defer wg.Done()
		healthy, err := b.JicofoHealthy(ctx)
		status := models.ComponentStatus{Online: err == nil, Healthy: healthy}
		if err != nil {
			status.Error = err.Error()
		} else if stats, serr := b.JicofoStats(ctx); serr == nil {
			status.Stats = stats
		}
		mu.Lock()
		overview.Components["jicofo"] = status
		mu.Unlock()
	}()

	go func() {
		defer wg.Done()
		health, err := b.JibriHealth(ctx)
		status := models.ComponentStatus{Online: err == nil}
		if err != nil {
			status.Error = err.Error()
		} else {
			status.Healthy = health.Status.Health.HealthStatus == "HEALTHY"
			status.Stats = health
		}
		mu.Lock()
		overview.Components["jibri"] = status
		mu.Unlock()
	}()

	wg.Wait()
	return overview
}
