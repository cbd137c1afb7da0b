// Compit Bridge - Compit IoT Device Synchronization Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/compit-bridge

package compit

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrUnauthenticated is wrapped by AuthError when a request is attempted
	// without a usable credential.
	ErrUnauthenticated = errors.New("no credential held")

	// ErrCircuitOpen is wrapped by TransportError when the circuit breaker
	// refuses a request.
	ErrCircuitOpen = errors.New("circuit breaker open")

	// errRejected marks a write the remote service declined. It never leaves
	// the package; UpdateParameter reports it as false.
	errRejected = errors.New("write rejected")
)

// StatusError is a non-2xx HTTP response.
type StatusError struct {
	Code   int
	Reason string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("server returned: %d %s", e.Code, e.Reason)
}

func newStatusError(code int) *StatusError {
	return &StatusError{Code: code, Reason: http.StatusText(code)}
}

// AuthError reports invalid credentials or a missing or expired token.
// The caller must re-authenticate; it is never retried silently.
type AuthError struct {
	Op     string
	Status int
	Err    error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("compit %s: authentication failed: %v", e.Op, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// TransportError reports a network failure, timeout, exhausted rate-limit
// retries or an unexpected server response.
type TransportError struct {
	Op     string
	Status int
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("compit %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// NotFoundError reports a device or parameter that is absent, either
// remotely or from the coordinator's cache.
type NotFoundError struct {
	Resource string
	Key      string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.Key)
}

// IsAuthError reports whether err is or wraps an *AuthError.
func IsAuthError(err error) bool {
	var target *AuthError
	return errors.As(err, &target)
}

// IsTransportError reports whether err is or wraps a *TransportError.
func IsTransportError(err error) bool {
	var target *TransportError
	return errors.As(err, &target)
}

// IsNotFound reports whether err is or wraps a *NotFoundError.
func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

// outcome labels err for metrics.
func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, errRejected):
		return "rejected"
	case IsAuthError(err):
		return "auth_error"
	case IsNotFound(err):
		return "not_found"
	default:
		return "transport_error"
	}
}

func isRejected(err error) bool {
	return errors.Is(err, errRejected)
}
