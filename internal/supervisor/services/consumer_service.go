// Compit Bridge - Compit IoT Device Synchronization Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/compit-bridge

package services

import (
	"context"

	"github.com/tomtom215/compit-bridge/internal/events"
)

// EventSource is the bus a consumer reads. *events.Bus satisfies it.
type EventSource interface {
	Consume(ctx context.Context, name string, handler events.Handler, topics ...string) error
}

// EventConsumerService feeds bus topics to a handler, e.g. the WebSocket
// hub's HandleEvent.
type EventConsumerService struct {
	name    string
	source  EventSource
	handler events.Handler
	topics  []string
}

// NewEventConsumerService creates a consumer of topics on source.
func NewEventConsumerService(name string, source EventSource, handler events.Handler, topics ...string) *EventConsumerService {
	return &EventConsumerService{name: name, source: source, handler: handler, topics: topics}
}

// Serve implements suture.Service.
func (s *EventConsumerService) Serve(ctx context.Context) error {
	return s.source.Consume(ctx, s.name, s.handler, s.topics...)
}

func (s *EventConsumerService) String() string { return s.name }
