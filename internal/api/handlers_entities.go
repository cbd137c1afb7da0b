// Compit Bridge - Compit IoT Device Synchronization Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/compit-bridge

package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/compit-bridge/internal/coordinator"
	"github.com/tomtom215/compit-bridge/internal/logging"
	"github.com/tomtom215/compit-bridge/internal/models"
)

// Gates returns the account topology from the latest refresh.
func (h *Handler) Gates(w http.ResponseWriter, r *http.Request) {
	gates := h.coord.Gates()
	if gates == nil {
		gates = []models.Gate{}
	}
	h.respondSuccess(w, http.StatusOK, gates)
}

// Entities lists projected entities, optionally filtered by ?platform=.
func (h *Handler) Entities(w http.ResponseWriter, r *http.Request) {
	platform, verr := parsePlatform(r.URL.Query().Get("platform"))
	if verr != nil {
		respondValidationError(w, verr)
		return
	}
	h.respondSuccess(w, http.StatusOK, h.entities.List(platform))
}

// Entity returns one entity by unique ID.
func (h *Handler) Entity(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	e, ok := h.entities.Get(id)
	if !ok {
		respondError(w, r, http.StatusNotFound, ErrCodeNotFound, "entity "+id+" not found", nil)
		return
	}
	h.respondSuccess(w, http.StatusOK, e.State())
}

// SetEntityValue writes {"value": ...} through the entity's adapter.
//
// A value the remote service declines answers 409 WRITE_REJECTED and leaves
// the entity unchanged.
func (h *Handler) SetEntityValue(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	value, verr, err := decodeSetValue(r)
	if err != nil {
		respondError(w, r, http.StatusBadRequest, ErrCodeBadRequest, err.Error(), nil)
		return
	}
	if verr != nil {
		respondValidationError(w, verr)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.writeTimeout)
	defer cancel()

	accepted, err := h.entities.Write(ctx, id, value)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	if !accepted {
		logging.Ctx(r.Context()).Warn().
			Str("unique_id", sanitizeLogValue(id)).
			Msg("Write rejected by Compit service")
		respondError(w, r, http.StatusConflict, ErrCodeWriteRejected, "Compit service rejected the value", nil)
		return
	}

	result := models.WriteResult{UniqueID: id, Accepted: true}
	if e, ok := h.entities.Get(id); ok {
		st := e.State()
		result.Entity = &st
	}
	h.respondSuccess(w, http.StatusOK, result)
}

// RefreshResult reports a manual refresh.
type RefreshResult struct {
	// Completed is false when the refresh was only scheduled or is still
	// running after wait_seconds.
	Completed bool   `json:"completed"`
	State     string `json:"state"`
	Error     string `json:"error,omitempty"`
}

// Refresh schedules an out-of-band refresh. With wait_seconds it waits for
// that refresh to finish; a refresh that leaves cached data in place
// reports its error in the body rather than as a failure status.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	req, verr, err := decodeRefresh(r)
	if err != nil {
		respondError(w, r, http.StatusBadRequest, ErrCodeBadRequest, err.Error(), nil)
		return
	}
	if verr != nil {
		respondValidationError(w, verr)
		return
	}

	if req.WaitSeconds == 0 {
		h.coord.RequestRefresh()
		h.respondSuccess(w, http.StatusAccepted, RefreshResult{State: h.coord.Status().State.String()})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), time.Duration(req.WaitSeconds)*time.Second)
	defer cancel()

	err = h.coord.Refresh(ctx)
	st := h.coord.Status()
	result := RefreshResult{Completed: true, State: st.State.String()}

	switch {
	case err == nil:
	case errors.Is(err, context.DeadlineExceeded) && ctx.Err() != nil:
		result.Completed = false
		h.respondSuccess(w, http.StatusAccepted, result)
		return
	case st.State == coordinator.StateDegraded && st.CachedDevices > 0:
		result.Error = err.Error()
	default:
		respondServiceError(w, r, err)
		return
	}
	h.respondSuccess(w, http.StatusOK, result)
}
