// Compit Bridge - Compit IoT Device Synchronization Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/compit-bridge

package api

import (
	"context"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tomtom215/compit-bridge/internal/coordinator"
	"github.com/tomtom215/compit-bridge/internal/entity"
	"github.com/tomtom215/compit-bridge/internal/models"
)

// Coordinator is the part of the synchronization coordinator the API reads
// and drives.
type Coordinator interface {
	Status() coordinator.Status
	Gates() []models.Gate
	RequestRefresh()
	Refresh(ctx context.Context) error
}

// Entities is the entity registry.
type Entities interface {
	List(platform models.Platform) []models.EntityState
	Get(id string) (entity.Entity, bool)
	Write(ctx context.Context, id string, value any) (bool, error)
}

// WebSocketHub accepts upgraded connections.
type WebSocketHub interface {
	Attach(conn *websocket.Conn) bool
}

// Handler serves the /api/v1 endpoints.
type Handler struct {
	coord    Coordinator
	entities Entities
	wsHub    WebSocketHub

	// corsOrigins also gates WebSocket upgrades; "*" allows any origin.
	corsOrigins []string

	// writeTimeout bounds an entity write including its remote round trip.
	writeTimeout time.Duration

	startTime time.Time
}

// NewHandler creates the API handler. wsHub may be nil, in which case
// /ws answers 503.
func NewHandler(coord Coordinator, entities Entities, wsHub WebSocketHub, corsOrigins []string) *Handler {
	return &Handler{
		coord:        coord,
		entities:     entities,
		wsHub:        wsHub,
		corsOrigins:  corsOrigins,
		writeTimeout: 30 * time.Second,
		startTime:    time.Now(),
	}
}
