// Compit Bridge - Compit IoT Device Synchronization Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/compit-bridge

package compit

import (
	"context"
	"errors"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/compit-bridge/internal/logging"
	"github.com/tomtom215/compit-bridge/internal/metrics"
	"github.com/tomtom215/compit-bridge/internal/models"
)

// CircuitBreakerClient wraps Client with a circuit breaker so a Compit
// outage fails fast instead of piling up timed-out requests.
//
// Only transport failures count against the breaker. Auth errors, missing
// devices, rejected writes and caller cancellations are answers from a
// healthy service.
type CircuitBreakerClient struct {
	client *Client
	cb     *gobreaker.CircuitBreaker[any]
	name   string
}

// NewCircuitBreakerClient wraps client. Settings:
//   - 3 requests allowed through while half-open
//   - counts reset every minute while closed
//   - 2 minutes open before probing
//   - trips at >= 60% failures over at least 10 requests
func NewCircuitBreakerClient(client *Client) *CircuitBreakerClient {
	cbName := "compit-api"

	metrics.CircuitBreakerState.WithLabelValues(cbName).Set(0)
	metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(cbName).Set(0)

	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        cbName,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,

		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			shouldTrip := failureRatio >= 0.6
			if shouldTrip {
				logging.Warn().Uint32("failures", counts.TotalFailures).Float64("failure_rate", failureRatio*100).Msg("[CIRCUIT BREAKER] Opening circuit")
			}
			return shouldTrip
		},

		IsSuccessful: func(err error) bool {
			return err == nil ||
				IsAuthError(err) ||
				IsNotFound(err) ||
				errors.Is(err, context.Canceled)
		},

		OnStateChange: func(name string, from, to gobreaker.State) {
			fromStr, toStr := stateToString(from), stateToString(to)
			logging.Info().Str("breaker", name).Str("from", fromStr).Str("to", toStr).Msg("[CIRCUIT BREAKER] State transition")

			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, fromStr, toStr).Inc()
			if to == gobreaker.StateClosed {
				metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(name).Set(0)
			}
		},
	})

	return &CircuitBreakerClient{client: client, cb: cb, name: cbName}
}

// execute runs fn under the breaker. Refusals surface as TransportError
// wrapping ErrCircuitOpen.
func (cbc *CircuitBreakerClient) execute(op string, fn func() (any, error)) (any, error) {
	result, err := cbc.cb.Execute(fn)
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.CircuitBreakerRequests.WithLabelValues(cbc.name, "rejected").Inc()
			logging.Warn().Err(err).Str("op", op).Msg("[CIRCUIT BREAKER] Request rejected")
			return nil, &TransportError{Op: op, Err: fmt.Errorf("%w: %w", ErrCircuitOpen, err)}
		}
		metrics.CircuitBreakerRequests.WithLabelValues(cbc.name, "failure").Inc()
		metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(cbc.name).Set(float64(cbc.cb.Counts().ConsecutiveFailures))
		return nil, err
	}

	metrics.CircuitBreakerRequests.WithLabelValues(cbc.name, "success").Inc()
	metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(cbc.name).Set(0)
	return result, nil
}

func castResult[T any](result any, err error) (T, error) {
	var zero T
	if err != nil {
		return zero, err
	}
	typed, ok := result.(T)
	if !ok {
		return zero, fmt.Errorf("circuit breaker: unexpected result type %T", result)
	}
	return typed, nil
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
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

func stateToString(state gobreaker.State) string {
	switch state {
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

// State returns the breaker state name.
func (cbc *CircuitBreakerClient) State() string {
	return stateToString(cbc.cb.State())
}

// Credential returns the wrapped client's credential.
func (cbc *CircuitBreakerClient) Credential() *Credential {
	return cbc.client.Credential()
}

// Authenticate bypasses the breaker: an outage shows up on the fetch that
// follows, and auth failures never trip it anyway.
func (cbc *CircuitBreakerClient) Authenticate(ctx context.Context, email, password string) (*Credential, error) {
	return cbc.client.Authenticate(ctx, email, password)
}

func (cbc *CircuitBreakerClient) FetchTopology(ctx context.Context) ([]models.Gate, error) {
	return castResult[[]models.Gate](cbc.execute("fetch_topology", func() (any, error) {
		return cbc.client.FetchTopology(ctx)
	}))
}

func (cbc *CircuitBreakerClient) FetchDeviceDefinitions(ctx context.Context) (*models.DeviceDefinitions, error) {
	return castResult[*models.DeviceDefinitions](cbc.execute("fetch_definitions", func() (any, error) {
		return cbc.client.FetchDeviceDefinitions(ctx)
	}))
}

func (cbc *CircuitBreakerClient) FetchParameterState(ctx context.Context, deviceID int) (*models.DeviceState, error) {
	return castResult[*models.DeviceState](cbc.execute("fetch_state", func() (any, error) {
		return cbc.client.FetchParameterState(ctx, deviceID)
	}))
}

func (cbc *CircuitBreakerClient) UpdateParameter(ctx context.Context, deviceID int, code string, value any) (bool, error) {
	return castResult[bool](cbc.execute("update_parameter", func() (any, error) {
		return cbc.client.UpdateParameter(ctx, deviceID, code, value)
	}))
}
