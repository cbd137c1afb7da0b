// Compit Bridge - Compit IoT Device Synchronization Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/compit-bridge

package models

// Platform is the presentation category a parameter is projected into.
type Platform string

// Platforms.
const (
	PlatformNone   Platform = "none"
	PlatformSensor Platform = "sensor"
	PlatformNumber Platform = "number"
	PlatformSelect Platform = "select"
	PlatformSwitch Platform = "switch"
)

// Platforms lists every projectable platform. PlatformNone is never projected.
var Platforms = []Platform{PlatformNumber, PlatformSwitch, PlatformSelect, PlatformSensor}

// ParsePlatform converts a string into a projectable Platform.
func ParsePlatform(s string) (Platform, bool) {
	for _, p := range Platforms {
		if string(p) == s {
			return p, true
		}
	}
	return PlatformNone, false
}

// Writable reports whether entities of this platform accept writes.
func (p Platform) Writable() bool {
	switch p {
	case PlatformNumber, PlatformSwitch, PlatformSelect:
		return true
	default:
		return false
	}
}
