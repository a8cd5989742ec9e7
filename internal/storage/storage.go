// Copyright (C) 2026 TaskNexus
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides durable client-side key/value storage. It plays
// the role a browser's localStorage plays for the web client: small JSON
// blobs under fixed, namespaced keys.
package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/tasknexus/tasknexus/internal/config"
	"github.com/tasknexus/tasknexus/internal/logger"

	"github.com/rs/zerolog"
)

// Well-known keys.
const (
	PreferencesKey  = "tasknexus_preferences_v2"
	AccessTokenKey  = "tasknexus_token"
	RefreshTokenKey = "tasknexus_refresh_token"
	UserKey         = "tasknexus_user"
)

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("storage: store is closed")

// Store is a string key/value store. Get reports whether the key exists.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Close() error
}

var (
	log     *zerolog.Logger
	logOnce sync.Once
)

func getLog() *zerolog.Logger {
	logOnce.Do(func() {
		l := logger.GetStorageLogger()
		log = &l
	})
	return log
}

// Open returns the backend selected by cfg.Driver.
func Open(ctx context.Context, cfg config.StorageConfig) (Store, error) {
	switch cfg.Driver {
	case "memory":
		return NewMemoryStore(), nil
	case "file":
		return NewFileStore(cfg.Path)
	case "sqlite":
		return NewSQLiteStore(ctx, cfg.Path)
	case "redis":
		return NewRedisStore(ctx, cfg.RedisURL, cfg.Namespace)
	default:
		return nil, fmt.Errorf("unsupported storage driver: %s", cfg.Driver)
	}
}
