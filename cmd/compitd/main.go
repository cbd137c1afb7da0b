// Compit Bridge - Compit IoT Device Synchronization Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/compit-bridge

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/tomtom215/compit-bridge/internal/config"
	"github.com/tomtom215/compit-bridge/internal/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(cfg.Logging.ToLoggingConfig())
	defer func() { _ = logging.Close() }()

	if err := cfg.ValidateCredentials(); err != nil {
		logging.Fatal().Err(err).Msg("Missing Compit account credentials")
	}

	logging.Info().
		Str("base_url", cfg.Compit.BaseURL).
		Dur("scan_interval", cfg.Coordinator.ScanInterval).
		Bool("mqtt", cfg.MQTT.Enabled).
		Msg("Starting Compit Bridge")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := newApp(cfg)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to build application")
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	a.run(ctx)

	logging.Info().Msg("Application stopped gracefully")
}
