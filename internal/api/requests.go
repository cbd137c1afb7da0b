// Compit Bridge - Compit IoT Device Synchronization Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/compit-bridge

package api

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/tomtom215/compit-bridge/internal/models"
	"github.com/tomtom215/compit-bridge/internal/validation"
)

// maxBodyBytes bounds request bodies; the largest is a select label.
const maxBodyBytes = 64 * 1024

var errEmptyBody = errors.New("request body is empty")

// readBody reads at most maxBodyBytes of the request body.
func readBody(r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if len(body) > maxBodyBytes {
		return nil, fmt.Errorf("request body exceeds %d bytes", maxBodyBytes)
	}
	return bytes.TrimSpace(body), nil
}

// decodeSetValue parses and validates a PUT /entities/{id} body and returns
// the value as decoded JSON: float64, bool or string.
func decodeSetValue(r *http.Request) (any, *validation.RequestValidationError, error) {
	body, err := readBody(r)
	if err != nil {
		return nil, nil, err
	}
	if len(body) == 0 {
		return nil, nil, errEmptyBody
	}

	var req models.SetValueRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, nil, fmt.Errorf("invalid JSON: %w", err)
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		return nil, verr, nil
	}
	if bytes.Equal(bytes.TrimSpace(req.Value), []byte("null")) {
		return nil, validation.ValidateVar("value", "", "required"), nil
	}

	var value any
	if err := json.Unmarshal(req.Value, &value); err != nil {
		return nil, nil, fmt.Errorf("invalid value: %w", err)
	}
	switch value.(type) {
	case float64, bool, string:
		return value, nil, nil
	default:
		return nil, validation.NewFieldError("value", "scalar", value, "value must be a number, boolean or string"), nil
	}
}

// decodeRefresh parses the optional POST /refresh body.
func decodeRefresh(r *http.Request) (models.RefreshRequest, *validation.RequestValidationError, error) {
	var req models.RefreshRequest
	body, err := readBody(r)
	if err != nil {
		return req, nil, err
	}
	if len(body) == 0 {
		return req, nil, nil
	}
	if err := json.Unmarshal(body, &req); err != nil {
		return req, nil, fmt.Errorf("invalid JSON: %w", err)
	}
	return req, validation.ValidateStruct(&req), nil
}

// parsePlatform validates the ?platform= filter. Empty means all platforms.
func parsePlatform(raw string) (models.Platform, *validation.RequestValidationError) {
	if raw == "" {
		return models.PlatformNone, nil
	}
	if verr := validation.ValidateVar("platform", raw, "oneof=number switch select sensor"); verr != nil {
		return models.PlatformNone, verr
	}
	p, _ := models.ParsePlatform(raw)
	return p, nil
}
