// Copyright (C) 2026 TaskNexus
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/tasknexus/tasknexus/internal/preferences"
	"github.com/tasknexus/tasknexus/internal/realtime"
	"github.com/tasknexus/tasknexus/internal/tui"
)

func uiCommand(ctx context.Context, args []string, s streams) error {
	fs, opts := newFlagSet("ui", s)
	offline := fs.Bool("no-realtime", false, "Do not open the push channel")
	if err := fs.Parse(args); err != nil {
		return err
	}

	e, err := openEnv(ctx, opts, s)
	if err != nil {
		return err
	}
	defer e.Close()

	if err := e.requireLogin(ctx); err != nil {
		return err
	}
	sync, err := e.newBoard(ctx)
	if err != nil {
		return err
	}

	app := tui.App{
		Board:       sync,
		Preferences: preferences.New(ctx, e.store),
		Backend:     e.client,
	}
	if !*offline {
		app.Transport = realtime.NewTransport(e.cfg.API, e.cfg.Realtime)
		app.Tokens = e.session
		app.Options = []realtime.Option{realtime.WithPolicy(realtime.PolicyFromConfig(e.cfg.Realtime.Reconnect))}
		if len(e.cfg.Realtime.Events) > 0 {
			app.Options = append(app.Options, realtime.WithEvents(e.cfg.Realtime.Events...))
		}
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := tui.StartTUI(ctx, app); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}
	return nil
}
