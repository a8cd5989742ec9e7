// Copyright (C) 2026 TaskNexus
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/tasknexus/tasknexus/internal/api"
	"github.com/tasknexus/tasknexus/internal/board"
	"github.com/tasknexus/tasknexus/internal/config"
	"github.com/tasknexus/tasknexus/internal/logger"
	"github.com/tasknexus/tasknexus/internal/session"
	"github.com/tasknexus/tasknexus/internal/storage"
)

var errNotLoggedIn = errors.New("not signed in, run 'tasknexus login' first")

// env is everything a command needs, built from the config file.
type env struct {
	cfg     *config.AppConfig
	store   storage.Store
	session *session.Session
	client  *api.Client
	out     printer
	streams streams
}

func openEnv(ctx context.Context, opts *globalOptions, s streams) (*env, error) {
	p, err := newPrinter(s.out, opts.output)
	if err != nil {
		return nil, err
	}

	cfg, err := config.NewConfig(opts.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := logger.Initialize(&cfg.Log); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	store, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		logger.CloseGlobal()
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}

	sess := session.New(store)
	if err := sess.Load(ctx); err != nil {
		store.Close()
		logger.CloseGlobal()
		return nil, err
	}

	client := api.New(cfg.API, sess, api.WithSessionExpiredHandler(func() {
		fmt.Fprintf(s.err, "Session expired. Run '%s login' to sign in again.\n", appName)
	}))

	return &env{cfg: cfg, store: store, session: sess, client: client, out: p, streams: s}, nil
}

func (e *env) Close() {
	if err := e.store.Close(); err != nil {
		fmt.Fprintf(e.streams.err, "Warning: failed to close storage: %v\n", err)
	}
	logger.CloseGlobal()
}

func (e *env) requireLogin(ctx context.Context) error {
	if !e.session.IsAuthenticated(ctx) {
		return errNotLoggedIn
	}
	return nil
}

// boardTarget picks the role and board key. The signed-in user's role wins
// over the configured one; a role other than the configured one gets its own
// dashboard key.
func (e *env) boardTarget(ctx context.Context) (board.Role, string, error) {
	roleName := e.cfg.Board.Role
	if u := e.session.User(ctx); u != nil && u.Role != "" {
		roleName = u.Role
	}
	role, err := board.ParseRole(roleName)
	if err != nil {
		return "", "", err
	}
	key := e.cfg.Board.BoardKey
	if roleName != e.cfg.Board.Role || key == "" {
		key = roleName + "-dashboard"
	}
	return role, key, nil
}

func (e *env) newBoard(ctx context.Context) (*board.Synchronizer, error) {
	role, key, err := e.boardTarget(ctx)
	if err != nil {
		return nil, err
	}
	return board.New(e.client, role, key, board.WithDebounce(e.cfg.Board.SaveDebounce)), nil
}

// describe turns client errors into the message the backend sent.
func describe(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, api.ErrNotAuthenticated), errors.Is(err, api.ErrSessionExpired):
		return errNotLoggedIn
	}
	if code := api.StatusCode(err); code != 0 {
		return fmt.Errorf("%s (HTTP %d)", api.Message(err), code)
	}
	return err
}
