// Compit Bridge - Compit IoT Device Synchronization Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/compit-bridge

package models

import "time"

// EntityContext pairs a device with one of its parameters for projection.
// It is built on demand and handed straight to an adapter factory.
type EntityContext struct {
	Device    Device
	Parameter Parameter

	// DeviceName is the name of the resolved definition, i.e. the model.
	DeviceName string
}

// EntityState is the serializable view of an entity, shared by the HTTP API,
// the WebSocket hub and the MQTT bridge.
type EntityState struct {
	UniqueID   string         `json:"unique_id"`
	Name       string         `json:"name"`
	Platform   Platform       `json:"platform"`
	Value      any            `json:"value"`
	Unit       string         `json:"unit,omitempty"`
	Min        *float64       `json:"min,omitempty"`
	Max        *float64       `json:"max,omitempty"`
	Options    []string       `json:"options,omitempty"`
	Writable   bool           `json:"writable"`
	Attributes map[string]any `json:"attributes"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// RefreshEvent summarizes one completed coordinator refresh.
type RefreshEvent struct {
	Seq         uint64    `json:"seq"`
	State       string    `json:"state"`
	Devices     int       `json:"devices"`
	Failed      int       `json:"failed_devices"`
	Error       string    `json:"error,omitempty"`
	CompletedAt time.Time `json:"completed_at"`
}
