// Confera - Jitsi Meet Operations Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/confera

package jitsi

import (
	"context"
	"time"

	"github.com/tomtom215/confera/internal/database"
	"github.com/tomtom215/confera/internal/logging"
	"github.com/tomtom215/confera/internal/metrics"
	"github.com/tomtom215/confera/internal/models"
)

// StatsBroadcaster receives poller output for live distribution.
type StatsBroadcaster interface {
	BroadcastServerStats(overview *models.ServerOverview)
	BroadcastHighLoad(serverName string, stressLevel, threshold float64)
}

// Poller periodically collects component stats from every active server,
// exports them as metrics and pushes snapshots to WebSocket clients.
// It runs as a service under the supervision tree.
type Poller struct {
	db       *database.DB
	manager  *Manager
	hub      StatsBroadcaster
	fallback time.Duration
}

// NewPoller creates a stats poller. The fallback interval applies until
// the settings row supplies one.
func NewPoller(db *database.DB, manager *Manager, hub StatsBroadcaster, fallback time.Duration) *Poller {
	if fallback < time.Second {
		fallback = 5 * time.Second
	}
	return &Poller{db: db, manager: manager, hub: hub, fallback: fallback}
}

// Serve implements suture.Service. It polls until the context is
// canceled.
func (p *Poller) Serve(ctx context.Context) error {
	logger := logging.WithComponent("poller")
	logger.Info().Dur("fallback_interval", p.fallback).Msg("Stats poller starting")

	for {
		interval := p.pollOnce(ctx)

		select {
		case <-time.After(interval):
		case <-ctx.Done():
			logger.Info().Msg("Stats poller stopping")
			return ctx.Err()
		}
	}
}

// pollOnce runs a single poll cycle and returns the interval until the
// next one.
func (p *Poller) pollOnce(ctx context.Context) time.Duration {
	metrics.PollerCycles.Inc()
	interval := p.fallback

	settings, err := p.db.GetSettings(ctx)
	if err != nil {
		metrics.PollerErrors.Inc()
		logging.Warn().Err(err).Msg("Poller failed to load settings")
		settings = models.DefaultSettings()
	}
	if settings.RefreshIntervalSeconds > 0 {
		interval = time.Duration(settings.RefreshIntervalSeconds) * time.Second
	}

	servers, err := p.db.ListServers(ctx, true)
	if err != nil {
		metrics.PollerErrors.Inc()
		logging.Warn().Err(err).Msg("Poller failed to list servers")
		return interval
	}

	for i := range servers {
		server := &servers[i]
		client := p.manager.ClientFor(server)

		overview := client.Overview(ctx)
		p.export(server, overview)

		if p.hub != nil {
			p.hub.BroadcastServerStats(overview)
		}

		stress := overview.Summary.StressLevel
		if settings.NotifyOnHighLoad && stress >= settings.HighLoadThreshold && stress > 0 {
			logging.Warn().
				Str("server", server.Name).
				Float64("stress_level", stress).
				Float64("threshold", settings.HighLoadThreshold).
				Msg("Server under high load")
			if p.hub != nil {
				p.hub.BroadcastHighLoad(server.Name, stress, settings.HighLoadThreshold)
			}
		}
	}

	return interval
}

// export publishes a server's overview into the Prometheus gauges.
func (p *Poller) export(server *models.JitsiServer, overview *models.ServerOverview) {
	metrics.ServerConferences.WithLabelValues(server.Name).Set(float64(overview.Summary.Conferences))
	metrics.ServerParticipants.WithLabelValues(server.Name).Set(float64(overview.Summary.Participants))
	metrics.ServerStressLevel.WithLabelValues(server.Name).Set(overview.Summary.StressLevel)

	for component, status := range overview.Components {
		up := 0.0
		if status.Online {
			up = 1.0
		}
		metrics.ComponentUp.WithLabelValues(server.Name, component).Set(up)
	}
}
