// Compit Bridge - Compit IoT Device Synchronization Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/compit-bridge

package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/tomtom215/compit-bridge/internal/compit"
	"github.com/tomtom215/compit-bridge/internal/coordinator"
	"github.com/tomtom215/compit-bridge/internal/entity"
)

// Error codes for API responses
const (
	ErrCodeBadRequest          = "BAD_REQUEST"
	ErrCodeValidation          = "VALIDATION_ERROR"
	ErrCodeNotFound            = "NOT_FOUND"
	ErrCodeNotWritable         = "NOT_WRITABLE"
	ErrCodeWriteRejected       = "WRITE_REJECTED"
	ErrCodeTooManyRequests     = "TOO_MANY_REQUESTS"
	ErrCodeUpstreamAuth        = "UPSTREAM_AUTH"
	ErrCodeUpstreamUnavailable = "UPSTREAM_UNAVAILABLE"
	ErrCodeServiceUnavailable  = "SERVICE_UNAVAILABLE"
	ErrCodeInternal            = "INTERNAL_ERROR"
)

// ErrNoHub is reported when the WebSocket hub is not configured.
var ErrNoHub = errors.New("websocket hub not configured")

// respondServiceError maps errors from the coordinator, the registry and
// the remote client onto status codes:
//
//	*compit.NotFoundError       404 NOT_FOUND
//	entity.ErrInvalidValue      400 VALIDATION_ERROR
//	entity.ErrNotWritable       405 NOT_WRITABLE
//	*compit.AuthError           502 UPSTREAM_AUTH
//	*compit.TransportError      503 UPSTREAM_UNAVAILABLE
//	coordinator.ErrStopped      503 SERVICE_UNAVAILABLE
//	context deadline            503 UPSTREAM_UNAVAILABLE
//	anything else               500 INTERNAL_ERROR
func respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case compit.IsNotFound(err):
		respondError(w, r, http.StatusNotFound, ErrCodeNotFound, err.Error(), nil)
	case errors.Is(err, entity.ErrInvalidValue):
		respondError(w, r, http.StatusBadRequest, ErrCodeValidation, err.Error(), nil)
	case errors.Is(err, entity.ErrNotWritable):
		respondError(w, r, http.StatusMethodNotAllowed, ErrCodeNotWritable, "Entity is read-only", nil)
	case compit.IsAuthError(err):
		respondError(w, r, http.StatusBadGateway, ErrCodeUpstreamAuth, "Compit service rejected the credentials", err)
	case compit.IsTransportError(err), errors.Is(err, context.DeadlineExceeded):
		respondError(w, r, http.StatusServiceUnavailable, ErrCodeUpstreamUnavailable, "Compit service unavailable", err)
	case errors.Is(err, coordinator.ErrStopped):
		respondError(w, r, http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "Synchronization is stopped", err)
	default:
		respondError(w, r, http.StatusInternalServerError, ErrCodeInternal, "Internal server error", err)
	}
}
