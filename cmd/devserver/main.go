// Copyright (C) 2026 TaskNexus
// SPDX-License-Identifier: AGPL-3.0-or-later

// Command devserver runs an in-memory TaskNexus backend with seeded demo
// accounts for local development of the client.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tasknexus/tasknexus/internal/config"
	"github.com/tasknexus/tasknexus/internal/devserver"
	"github.com/tasknexus/tasknexus/internal/logger"
)

func main() {
	configPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	cfg, err := config.NewConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	// The server logs to the console unless the config says otherwise.
	for i := range cfg.Log.Output {
		if cfg.Log.Output[i].Type == "console" {
			cfg.Log.Output[i].Enabled = true
		}
	}
	if err := logger.Initialize(&cfg.Log); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.CloseGlobal()

	mainLog := logger.GetServerLogger()

	store := devserver.NewStore(cfg.Server.AccessTokenTTL)
	if err := devserver.Seed(store); err != nil {
		mainLog.Error().Err(err).Msg("Error seeding demo data")
		os.Exit(1)
	}
	mainLog.Info().
		Str("client", devserver.DemoClient.Email).
		Str("freelancer", devserver.DemoFreelancer.Email).
		Str("admin", devserver.DemoAdmin.Email).
		Str("password", devserver.DemoPassword).
		Msg("Seeded demo accounts")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv := devserver.New(cfg.Server, store)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- srv.Run(ctx)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		mainLog.Info().Msgf("Received signal %v, shutting down...", sig)
	case err := <-serverErrChan:
		if err != nil {
			mainLog.Error().Err(err).Msg("Server error")
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		mainLog.Error().Err(err).Msg("Error shutting down server")
	}
	cancel()

	mainLog.Info().Msg("Dev server shut down")
}
