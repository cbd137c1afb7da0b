// Compit Bridge - Compit IoT Device Synchronization Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/compit-bridge

package models

import (
	"time"

	"github.com/goccy/go-json"
)

// APIResponse is the envelope returned by every HTTP endpoint.
//
// Status is "success" with Data populated, or "error" with Error populated.
//
//	{
//	  "status": "success",
//	  "data": [{"unique_id": "number_Boiler 1temp", "value": 45}],
//	  "metadata": {"timestamp": "2026-10-17T12:00:00Z", "coordinator_state": "ready"}
//	}
type APIResponse struct {
	Status   string    `json:"status"`
	Data     any       `json:"data"`
	Metadata Metadata  `json:"metadata"`
	Error    *APIError `json:"error,omitempty"`
}

// Metadata carries response timing and the freshness of the cache the
// response was built from.
type Metadata struct {
	Timestamp        time.Time  `json:"timestamp"`
	CoordinatorState string     `json:"coordinator_state,omitempty"`
	LastRefresh      *time.Time `json:"last_refresh,omitempty"`
}

// APIError is the structured error body.
type APIError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// SetValueRequest is the body of PUT /api/v1/entities/{id}.
// Value stays raw so a literal 0 or false survives validation.
type SetValueRequest struct {
	Value json.RawMessage `json:"value" validate:"required"`
}

// RefreshRequest is the optional body of POST /api/v1/refresh.
type RefreshRequest struct {
	// WaitSeconds bounds how long the caller waits for the refresh to finish.
	WaitSeconds int `json:"wait_seconds" validate:"omitempty,min=0,max=120"`
}

// WriteResult reports the outcome of a write through the HTTP API.
type WriteResult struct {
	UniqueID string       `json:"unique_id"`
	Accepted bool         `json:"accepted"`
	Entity   *EntityState `json:"entity,omitempty"`
}

// HealthStatus is returned by the readiness endpoint.
type HealthStatus struct {
	Status        string     `json:"status"`
	State         string     `json:"state"`
	CachedDevices int        `json:"cached_devices"`
	LastSuccess   *time.Time `json:"last_success,omitempty"`
	LastError     string     `json:"last_error,omitempty"`
}
