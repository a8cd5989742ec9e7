// Copyright (C) 2026 TaskNexus
// SPDX-License-Identifier: AGPL-3.0-or-later

package devserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"github.com/tasknexus/tasknexus/internal/config"
)

// Server is the development REST + push backend.
type Server struct {
	cfg        config.ServerConfig
	store      *Store
	hub        *Hub
	upgrader   websocket.Upgrader
	router     chi.Router
	httpServer *http.Server
}

// New wires the router around store. It does NOT start listening; call
// Run for that, or Start plus Handler to mount it elsewhere.
func New(cfg config.ServerConfig, store *Store) *Server {
	s := &Server{
		cfg:      cfg,
		store:    store,
		hub:      NewHub(),
		upgrader: newUpgrader(cfg.AllowedOrigins),
	}

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(accessLog)
	r.Use(recoverPanics)
	r.Use(allowOrigins(cfg.AllowedOrigins))
	r.Use(middleware.RequestSize(10 << 20))

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/login", s.Login)
		r.Post("/auth/refresh", s.Refresh)

		r.Group(func(r chi.Router) {
			r.Use(Authenticate(store))

			r.Get("/settings/board", s.GetBoardState)
			r.Put("/settings/board", s.SaveBoardState)
			r.Post("/settings/board/reset", s.ResetBoardState)

			r.Route("/tasks/{id}", func(r chi.Router) {
				r.Get("/comments", s.GetComments)
				r.Post("/comments", s.PostComment)
				r.Get("/activity", s.GetActivity)
				r.Get("/subtasks", s.GetSubtasks)
				r.Post("/subtasks", s.CreateSubtask)
				r.Patch("/subtasks/{subtaskId}", s.UpdateSubtask)
				r.Delete("/subtasks/{subtaskId}", s.DeleteSubtask)
			})

			r.Get("/realtime/stream", s.HandleStream)
			r.Get("/realtime/ws", s.HandleWebSocket)
		})
	})

	s.router = r
	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
		// no WriteTimeout: push streams stay open
	}
	return s
}

// Handler returns the router.
func (s *Server) Handler() http.Handler { return s.router }

// Hub returns the event hub, for publishing events from outside a request.
func (s *Server) Hub() *Hub { return s.hub }

// Store returns the backing store.
func (s *Server) Store() *Store { return s.store }

// Start runs the event hub until ctx is cancelled. A panicking hub is
// restarted a few times before giving up.
func (s *Server) Start(ctx context.Context) {
	go func() {
		const maxRetries = 3
		for attempt := 1; attempt <= maxRetries; attempt++ {
			func() {
				defer func() {
					if r := recover(); r != nil {
						getLog().Error().Interface("panic", r).Int("attempt", attempt).Msg("Event hub panic")
					}
				}()
				s.hub.Run(ctx, s.cfg.HeartbeatInterval)
			}()

			// Normal return (context cancelled), exit without retry.
			if ctx.Err() != nil {
				return
			}
			if attempt < maxRetries {
				getLog().Warn().Int("attempt", attempt).Msg("Restarting event hub after panic")
				time.Sleep(time.Second)
			}
		}
		getLog().Error().Msg("Event hub exhausted retries - events will no longer be dispatched")
	}()
}

// Run starts the hub and the HTTP server. Blocks until the server is shut
// down.
func (s *Server) Run(ctx context.Context) error {
	s.Start(ctx)
	getLog().Info().Str("addr", s.httpServer.Addr).Msg("Dev server listening")
	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
