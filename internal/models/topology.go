// Compit Bridge - Compit IoT Device Synchronization Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/compit-bridge

package models

// Gate is a Compit gateway owning one or more devices. Gates are replaced
// wholesale on every topology fetch.
type Gate struct {
	ID      int      `json:"id"`
	Code    string   `json:"code"`
	Label   string   `json:"label"`
	Devices []Device `json:"devices"`
}

// Device is one controllable or readable unit behind a gate. Type is the
// foreign key into the device definition catalog; Class narrows it.
type Device struct {
	ID    int    `json:"id"`
	Label string `json:"label"`
	Class int    `json:"class"`
	Type  int    `json:"type"`
}

// SystemInfo is the topology document returned by /gates and /authorize.
type SystemInfo struct {
	Token string `json:"token,omitempty"`
	Gates []Gate `json:"gates"`
}

// DeviceCount returns the number of devices across all gates.
func (s *SystemInfo) DeviceCount() int {
	n := 0
	for i := range s.Gates {
		n += len(s.Gates[i].Devices)
	}
	return n
}
