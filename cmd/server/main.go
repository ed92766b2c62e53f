// Correlatus - CHSH Game Analytics and Live Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/correlatus

// Package main is the entry point for the Correlatus server.
//
// Correlatus runs live two-player CHSH games and streams per-team
// statistics to dashboard observers over WebSocket. The server initializes
// components in the following order:
//
//  1. Configuration: Koanf v2 layered loading (defaults, YAML file, env)
//  2. Database: DuckDB with the teams/rounds/answers schema
//  3. Game registry: live sessions, seeded from persisted teams
//  4. WebSocket hub: real-time delivery to dashboard observers
//  5. Dashboard service: memoized statistics, throttled publishes
//  6. HTTP server: REST API plus the WebSocket upgrade
//
// Long-running components (hub, dashboard refresher, HTTP server) run
// under a suture supervisor tree. SIGINT/SIGTERM trigger graceful
// shutdown: the server stops accepting connections, closes WebSocket
// clients, and checkpoints the database.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomtom215/correlatus/internal/api"
	"github.com/tomtom215/correlatus/internal/config"
	"github.com/tomtom215/correlatus/internal/dashboard"
	"github.com/tomtom215/correlatus/internal/database"
	"github.com/tomtom215/correlatus/internal/game"
	"github.com/tomtom215/correlatus/internal/logging"
	"github.com/tomtom215/correlatus/internal/models"
	"github.com/tomtom215/correlatus/internal/supervisor"
	"github.com/tomtom215/correlatus/internal/supervisor/services"
	ws "github.com/tomtom215/correlatus/internal/websocket"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// Config not yet available, use the default logger.
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("db_path", cfg.Database.Path).
		Str("default_mode", cfg.Game.DefaultMode).
		Dur("team_status_window", cfg.Dashboard.TeamStatusWindow).
		Dur("full_update_window", cfg.Dashboard.FullUpdateWindow).
		Msg("Configuration loaded")

	db, err := database.New(&cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing database")
		}
	}()

	registry := game.NewRegistry(models.GameMode(cfg.Game.DefaultMode))
	seedRegistry(db, registry)

	hub := ws.NewHub()

	svc := dashboard.NewService(db, registry, api.HubTransport{Hub: hub}, dashboard.Config{
		TeamStatusWindow: cfg.Dashboard.TeamStatusWindow,
		FullUpdateWindow: cfg.Dashboard.FullUpdateWindow,
		CacheSize:        cfg.Dashboard.CacheSize,
		MinStatsSig:      cfg.Dashboard.MinStatsSig,
	})

	// Hub callbacks must be wired before the hub starts.
	hub.OnConnect(func(id string) { svc.PublishFull(id, "") })
	hub.OnPreference(svc.SetStreamingPreference)
	hub.OnDisconnect(func(id string) {
		svc.RemoveSubscriber(id)
		svc.PublishTeamStatus(true)
	})

	handler := api.NewHandler(db, registry, svc, hub, cfg.API.CORSOrigins)
	router := api.NewRouter(handler, &cfg.API)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Bridge zerolog to slog for sutureslog.
	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	tree.AddMessagingService(services.NewWebSocketHubService(hub))
	tree.AddMessagingService(services.NewRefresherService(svc, cfg.Dashboard.FullUpdateWindow))
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Str("addr", server.Addr).Msg("Starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, s := range unstopped {
		logging.Warn().Str("service", s.Name).Msg("Service failed to stop within timeout")
	}

	logging.Info().Msg("Application stopped gracefully")
}

// seedRegistry loads persisted teams into the live registry so dashboards
// show them immediately after a restart. Failures are non-fatal: teams
// reappear as players rejoin.
func seedRegistry(db *database.DB, registry *game.Registry) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	teams, err := db.ListTeams(ctx)
	if err != nil {
		logging.Warn().Err(err).Msg("Failed to load persisted teams, starting with an empty registry")
		return
	}
	for _, team := range teams {
		registry.AddTeam(team.ID, team.Name)
		registry.SetActive(team.ID, team.Active)
	}
	logging.Info().Int("count", len(teams)).Msg("Seeded live registry from persisted teams")
}
