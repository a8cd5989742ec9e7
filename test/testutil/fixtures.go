// Copyright (C) 2026 TaskNexus
// SPDX-License-Identifier: AGPL-3.0-or-later

package testutil

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tasknexus/tasknexus/internal/api"
	"github.com/tasknexus/tasknexus/internal/config"
	"github.com/tasknexus/tasknexus/internal/devserver"
	"github.com/tasknexus/tasknexus/internal/realtime"
	"github.com/tasknexus/tasknexus/internal/session"
	"github.com/tasknexus/tasknexus/internal/storage"
)

// Backend is a seeded devserver behind an httptest server.
type Backend struct {
	Server *devserver.Server
	HTTP   *httptest.Server
}

// NewBackend starts a seeded devserver for the duration of the test.
func NewBackend(t *testing.T) *Backend {
	t.Helper()

	store := devserver.NewStore(time.Hour)
	require.NoError(t, devserver.Seed(store))

	srv := devserver.New(config.ServerConfig{HeartbeatInterval: time.Hour}, store)
	ctx, cancel := context.WithCancel(context.Background())
	srv.Start(ctx)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		cancel()
		ts.CloseClientConnections()
		ts.Close()
	})
	return &Backend{Server: srv, HTTP: ts}
}

// APIConfig points a client at the backend.
func (b *Backend) APIConfig() config.APIConfig {
	return config.APIConfig{
		BaseURL:     b.HTTP.URL + "/api",
		Timeout:     5 * time.Second,
		RefreshPath: "/auth/refresh",
	}
}

// Login signs user in against the backend and returns a client with an
// in-memory session.
func (b *Backend) Login(t *testing.T, user session.User) (*api.Client, *session.Session) {
	t.Helper()
	sess := session.New(storage.NewMemoryStore())
	client := api.New(b.APIConfig(), sess)
	_, err := client.Login(context.Background(), user.Email, devserver.DemoPassword)
	require.NoError(t, err)
	return client, sess
}

// SSETransport returns a push transport for the backend.
func (b *Backend) SSETransport() realtime.Transport {
	return &realtime.SSETransport{Origin: b.HTTP.URL, Path: "/api/realtime/stream"}
}

// WebSocketTransport returns the WebSocket push transport for the backend.
func (b *Backend) WebSocketTransport() realtime.Transport {
	return &realtime.WebSocketTransport{Origin: b.HTTP.URL, Path: "/api/realtime/ws"}
}
