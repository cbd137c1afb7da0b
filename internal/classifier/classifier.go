// Compit Bridge - Compit IoT Device Synchronization Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/compit-bridge

// Package classifier decides which entity platform a device parameter is
// projected onto.
//
// Classify is pure: the same declaration and live value always yield the
// same platform, so entity identity is stable across refresh cycles. Rules
// are evaluated in order and the first match wins:
//
//  1. no live value, or the value is hidden: none
//  2. read-only declaration: sensor
//  3. both min and max declared, literal or live: number
//  4. exactly two enumerated states, 0 and 1: switch
//  5. any enumerated states: select
//  6. live value is a JSON boolean: switch
//  7. otherwise: none
package classifier

import (
	"github.com/tomtom215/compit-bridge/internal/models"
)

// Classify maps a parameter declaration and its live value to a platform.
func Classify(param *models.Parameter, value *models.ParameterValue) models.Platform {
	if param == nil || value == nil || value.Hidden {
		return models.PlatformNone
	}
	if param.ReadOnly() {
		return models.PlatformSensor
	}
	if param.MinValue.Declared() && param.MaxValue.Declared() {
		return models.PlatformNumber
	}
	if param.HasDetails() {
		if isBinary(param.Details) {
			return models.PlatformSwitch
		}
		return models.PlatformSelect
	}
	if _, ok := value.Value.(bool); ok {
		return models.PlatformSwitch
	}
	return models.PlatformNone
}

func isBinary(details []models.ParameterDetail) bool {
	if len(details) != 2 {
		return false
	}
	a, b := details[0].State, details[1].State
	return (a == 0 && b == 1) || (a == 1 && b == 0)
}
