// Compit Bridge - Compit IoT Device Synchronization Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/compit-bridge

// Package validation wraps go-playground/validator with a shared instance and
// messages shaped for the REST API's VALIDATION_ERROR responses.
//
//	if verr := validation.ValidateStruct(&req); verr != nil {
//	    apiErr := verr.ToAPIError()
//	    respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, apiErr.Details)
//	    return
//	}
//
// Custom tags:
//   - entity_id: "number_", "switch_", "select_" or "sensor_" followed by a
//     device label and parameter code
package validation
