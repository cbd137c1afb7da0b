// Compit Bridge - Compit IoT Device Synchronization Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/compit-bridge

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/tomtom215/compit-bridge/internal/api"
	"github.com/tomtom215/compit-bridge/internal/compit"
	"github.com/tomtom215/compit-bridge/internal/config"
	"github.com/tomtom215/compit-bridge/internal/coordinator"
	"github.com/tomtom215/compit-bridge/internal/entity"
	"github.com/tomtom215/compit-bridge/internal/events"
	"github.com/tomtom215/compit-bridge/internal/logging"
	"github.com/tomtom215/compit-bridge/internal/mqtt"
	"github.com/tomtom215/compit-bridge/internal/supervisor"
	"github.com/tomtom215/compit-bridge/internal/supervisor/services"
	ws "github.com/tomtom215/compit-bridge/internal/websocket"
)

// app holds the wired components of the daemon.
type app struct {
	cfg      *config.Config
	client   *compit.CircuitBreakerClient
	coord    *coordinator.Coordinator
	bus      *events.Bus
	registry *entity.Registry
	hub      *ws.Hub
	server   *http.Server
	tree     *supervisor.SupervisorTree
}

// newApp builds every component and registers the long-running ones with
// the supervisor tree:
//
//	sync-layer:      coordinator
//	messaging-layer: websocket-hub, websocket-events, mqtt-bridge (optional)
//	api-layer:       http-server
func newApp(cfg *config.Config) (*app, error) {
	client := compit.NewCircuitBreakerClient(compit.NewClient(&cfg.Compit))
	coord := coordinator.New(client, coordinator.NewConfig(cfg))

	bus := events.NewBus(events.DefaultConfig())
	registry := entity.NewRegistry(coord, bus)
	registry.Attach(coord)

	hub := ws.NewHub()

	handler := api.NewHandler(coord, registry, hub, cfg.Server.CORSOrigins)
	router := api.NewRouter(handler, api.NewChiMiddleware(api.NewChiMiddlewareConfig(cfg.Server)))

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router.SetupChi(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.NewTreeConfig(cfg.Supervisor))
	if err != nil {
		return nil, fmt.Errorf("create supervisor tree: %w", err)
	}

	tree.AddSyncService(coord)

	tree.AddMessagingService(hub)
	tree.AddMessagingService(services.NewEventConsumerService(
		"websocket-events", bus, hub.HandleEvent,
		events.TopicEntityState, events.TopicRefresh,
	))
	if cfg.MQTT.Enabled {
		tree.AddMessagingService(mqtt.NewService(cfg.MQTT, registry, bus))
		logging.Info().
			Str("broker", cfg.MQTT.Broker).
			Str("topic_prefix", cfg.MQTT.TopicPrefix).
			Msg("MQTT bridge added to supervisor tree")
	}

	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Supervisor.ShutdownTimeout))

	return &app{
		cfg:      cfg,
		client:   client,
		coord:    coord,
		bus:      bus,
		registry: registry,
		hub:      hub,
		server:   server,
		tree:     tree,
	}, nil
}

// run serves the tree until ctx is canceled, then closes the bus and stops
// the coordinator for good.
func (a *app) run(ctx context.Context) {
	logging.Info().Str("addr", a.server.Addr).Msg("Starting supervisor tree...")
	errCh := a.tree.ServeBackground(ctx)

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	a.coord.Stop()
	if err := a.bus.Close(); err != nil {
		logging.Warn().Err(err).Msg("Error closing event bus")
	}

	unstopped, _ := a.tree.UnstoppedServiceReport()
	if len(unstopped) > 0 {
		logging.Warn().Int("count", len(unstopped)).Msg("Services failed to stop within timeout")
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
		}
	}
}
