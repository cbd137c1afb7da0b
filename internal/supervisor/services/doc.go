// Compit Bridge - Compit IoT Device Synchronization Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/compit-bridge

// Package services adapts bridge components to suture.Service.
//
// Components that already follow the Serve(ctx) pattern (the coordinator,
// the WebSocket hub, the MQTT bridge) are added to the tree directly. This
// package covers the rest:
//
//   - HTTPServerService: ListenAndServe/Shutdown with a drain timeout
//   - EventConsumerService: one named consumer of event bus topics
package services
