// Compit Bridge - Compit IoT Device Synchronization Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/compit-bridge

package models

import (
	"fmt"
	"time"
)

// DeviceState is the live parameter snapshot for one device. A snapshot is
// never mutated after it is stored in the cache; refreshes replace it.
type DeviceState struct {
	Errors          []any            `json:"errors,omitempty"`
	LastConnectedAt *string          `json:"last_connected_at,omitempty"`
	Params          []ParameterValue `json:"params"`

	// FetchedAt is stamped locally when the snapshot is received.
	FetchedAt time.Time `json:"-"`
}

// Param returns the live value for a parameter code.
func (s *DeviceState) Param(code string) (*ParameterValue, bool) {
	if s == nil {
		return nil, false
	}
	for i := range s.Params {
		if s.Params[i].Code == code {
			return &s.Params[i], true
		}
	}
	return nil, false
}

// ParameterValue is the live state of one (device, parameter) pair.
// Min and Max carry live bounds for parameters whose declared bounds
// defer to the device.
type ParameterValue struct {
	Code       string   `json:"code"`
	Value      any      `json:"value"`
	ValueCode  any      `json:"value_code,omitempty"`
	ValueLabel *string  `json:"value_label,omitempty"`
	Hidden     bool     `json:"hidden"`
	Min        *float64 `json:"min,omitempty"`
	Max        *float64 `json:"max,omitempty"`
}

// ValueCodeString renders ValueCode for matching against enumerated details.
func (v *ParameterValue) ValueCodeString() string {
	if v == nil || v.ValueCode == nil {
		return ""
	}
	if s, ok := v.ValueCode.(string); ok {
		return s
	}
	return fmt.Sprint(v.ValueCode)
}
