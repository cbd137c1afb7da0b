// Compit Bridge - Compit IoT Device Synchronization Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/compit-bridge

/*
Package models defines the data structures shared by the Compit bridge.

Remote documents:
  - SystemInfo, Gate, Device: account topology from /gates
  - DeviceDefinitions, DeviceDefinition, Parameter, Bound: the type catalog
  - DeviceState, ParameterValue: live parameter snapshots per device

Projection:
  - Platform: presentation category chosen by the classifier
  - EntityContext: one (device, parameter) pair handed to an adapter factory
  - EntityState: serializable entity view for the API, WebSocket and MQTT

HTTP:
  - APIResponse, Metadata, APIError: the response envelope
  - SetValueRequest, RefreshRequest: validated request bodies

Remote payloads decode with github.com/goccy/go-json.
*/
package models
