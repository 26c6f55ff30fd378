// Confera - Jitsi Meet Operations Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/confera

package jitsi

import (
	"context"
	"errors"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/confera/internal/logging"
	"github.com/tomtom215/confera/internal/metrics"
	"github.com/tomtom215/confera/internal/models"
)

// BreakerClient wraps the read-path component calls with a circuit
// breaker so an unreachable deployment cannot pile up blocked pollers
// and proxy requests. Control actions (recording start/stop, room
// termination) bypass the breaker: they are operator-initiated and
// should report their real error.
type BreakerClient struct {
	*Client
	cb   *gobreaker.CircuitBreaker[interface{}]
	name string
}

// NewBreakerClient wraps a client with a circuit breaker.
// The breaker opens at a 60% failure rate over at least 10 requests and
// probes recovery after 2 minutes.
func NewBreakerClient(client *Client) *BreakerClient {
	cbName := "jitsi-" + client.server.Name

	metrics.CircuitBreakerState.WithLabelValues(cbName).Set(0) // 0 = closed

	cb := gobreaker.NewCircuitBreaker[interface{}](gobreaker.Settings{
		Name:        cbName,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,

		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= 0.6
		},

		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Info().
				Str("breaker", name).
				Str("from", stateToString(from)).
				Str("to", stateToString(to)).
				Msg("Circuit breaker state transition")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
		},
	})

	return &BreakerClient{Client: client, cb: cb, name: cbName}
}

// execute runs fn through the circuit breaker and updates metrics.
func (b *BreakerClient) execute(fn func() (interface{}, error)) (interface{}, error) {
	result, err := b.cb.Execute(fn)
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.CircuitBreakerRequests.WithLabelValues(b.name, "rejected").Inc()
		} else {
			metrics.CircuitBreakerRequests.WithLabelValues(b.name, "failure").Inc()
		}
		return nil, err
	}
	metrics.CircuitBreakerRequests.WithLabelValues(b.name, "success").Inc()
	return result, nil
}

// ColibriStats fetches videobridge stats through the breaker.
func (b *BreakerClient) ColibriStats(ctx context.Context) (*models.ColibriStats, error) {
	result, err := b.execute(func() (interface{}, error) {
		return b.Client.ColibriStats(ctx)
	})
	return castResult[models.ColibriStats](result, err)
}

// JicofoHealthy checks Jicofo health through the breaker.
func (b *BreakerClient) JicofoHealthy(ctx context.Context) (bool, error) {
	result, err := b.execute(func() (interface{}, error) {
		healthy, err := b.Client.JicofoHealthy(ctx)
		return healthy, err
	})
	if err != nil {
		return false, err
	}
	healthy, ok := result.(bool)
	if !ok {
		return false, fmt.Errorf("circuit breaker: unexpected result type %T", result)
	}
	return healthy, nil
}

// JicofoStats fetches Jicofo stats through the breaker.
func (b *BreakerClient) JicofoStats(ctx context.Context) (models.JicofoStats, error) {
	result, err := b.execute(func() (interface{}, error) {
		return b.Client.JicofoStats(ctx)
	})
	if err != nil {
		return nil, err
	}
	stats, ok := result.(models.JicofoStats)
	if !ok {
		return nil, fmt.Errorf("circuit breaker: unexpected result type %T", result)
	}
	return stats, nil
}

// JibriHealth fetches Jibri health through the breaker.
func (b *BreakerClient) JibriHealth(ctx context.Context) (*models.JibriHealth, error) {
	result, err := b.execute(func() (interface{}, error) {
		return b.Client.JibriHealth(ctx)
	})
	return castResult[models.JibriHealth](result, err)
}

// castResult safely type-casts the circuit breaker result.
func castResult[T any](result interface{}, err error) (*T, error) {
	if err != nil {
		return nil, err
	}
	typed, ok := result.(*T)
	if !ok {
		return nil, fmt.Errorf("circuit breaker: unexpected result type %T", result)
	}
	return typed, nil
}

func stateToString(s gobreaker.State) string {
	switch s {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

func stateToFloat(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}
