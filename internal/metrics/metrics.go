// Confera - Jitsi Meet Operations Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/confera

// Package metrics defines the Prometheus instrumentation surface.
// All collectors are registered on the default registry and served at
// /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP server metrics.
var (
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "confera_http_requests_total",
		Help: "Total HTTP requests by method, path and status code",
	}, []string{"method", "path", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "confera_http_request_duration_seconds",
		Help:    "HTTP request latency by method and path",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})
)

// Webhook ingestion metrics.
var (
	WebhookEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "confera_webhook_events_total",
		Help: "Webhook events received by type and outcome",
	}, []string{"event_type", "outcome"})
)

// Stats poller metrics.
var (
	PollerCycles = promauto.NewCounter(prometheus.CounterOpts{
		Name: "confera_poller_cycles_total",
		Help: "Completed stats poll cycles",
	})

	PollerErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "confera_poller_errors_total",
		Help: "Stats poll cycles that hit an error",
	})

	ServerConferences = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "confera_server_conferences",
		Help: "Live conference count reported by the videobridge",
	}, []string{"server"})

	ServerParticipants = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "confera_server_participants",
		Help: "Live participant count reported by the videobridge",
	}, []string{"server"})

	ServerStressLevel = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "confera_server_stress_level",
		Help: "Videobridge stress level (0.0 to 1.0 and beyond under overload)",
	}, []string{"server"})

	ComponentUp = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "confera_component_up",
		Help: "Whether a Jitsi component responded to its last poll (1 = up)",
	}, []string{"server", "component"})
)

// Circuit breaker metrics.
var (
	CircuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "confera_circuit_breaker_state",
		Help: "Circuit breaker state (0 = closed, 1 = half-open, 2 = open)",
	}, []string{"breaker"})

	CircuitBreakerRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "confera_circuit_breaker_requests_total",
		Help: "Circuit breaker request outcomes",
	}, []string{"breaker", "outcome"})
)

// WebSocket metrics.
var (
	WebSocketClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "confera_websocket_clients",
		Help: "Currently connected WebSocket clients",
	})

	WebSocketMessagesSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "confera_websocket_messages_sent_total",
		Help: "Messages broadcast to WebSocket clients",
	})
)
