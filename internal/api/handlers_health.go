// Compit Bridge - Compit IoT Device Synchronization Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/compit-bridge

package api

import (
	"net/http"
	"time"

	"github.com/tomtom215/compit-bridge/internal/coordinator"
	"github.com/tomtom215/compit-bridge/internal/models"
)

// HealthLive handles liveness probe requests.
// Returns 200 OK if the process is alive, regardless of the remote service.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	h.respondSuccess(w, http.StatusOK, map[string]any{
		"alive":  true,
		"uptime": time.Since(h.startTime).Seconds(),
	})
}

// HealthReady handles readiness probe requests.
//
// The bridge is ready once it can serve device data: after a fully
// successful refresh, or in the degraded state while cached devices remain.
// Otherwise it answers 503.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	st := h.coord.Status()

	health := models.HealthStatus{
		State:         st.State.String(),
		CachedDevices: st.CachedDevices,
	}
	if !st.LastSuccess.IsZero() {
		last := st.LastSuccess
		health.LastSuccess = &last
	}
	if st.LastError != nil {
		health.LastError = st.LastError.Error()
	}

	switch {
	case st.State == coordinator.StateReady:
		health.Status = "healthy"
	case st.State == coordinator.StateDegraded && st.CachedDevices > 0:
		health.Status = "degraded"
	default:
		health.Status = "unavailable"
		respondJSON(w, http.StatusServiceUnavailable, &models.APIResponse{
			Status:   "error",
			Data:     health,
			Metadata: h.metadata(),
			Error: &models.APIError{
				Code:    ErrCodeServiceUnavailable,
				Message: "No device data available yet",
			},
		})
		return
	}

	h.respondSuccess(w, http.StatusOK, health)
}
