// Copyright (C) 2026 TaskNexus
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// AppConfig is the client configuration. Build it with NewConfig and pass the
// relevant section to each component.
type AppConfig struct {
	API      APIConfig      `mapstructure:"api"`
	Realtime RealtimeConfig `mapstructure:"realtime"`
	Board    BoardConfig    `mapstructure:"board"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Log      LogConfig      `mapstructure:"log"`
	Server   ServerConfig   `mapstructure:"server"`
}

// APIConfig describes how to reach the TaskNexus REST backend.
type APIConfig struct {
	BaseURL     string        `mapstructure:"base_url"`
	Timeout     time.Duration `mapstructure:"timeout"`
	RefreshPath string        `mapstructure:"refresh_path"`
}

// Origin returns scheme://host[:port] of the base URL. The push channel
// lives under <origin>/api/realtime regardless of the REST base path.
func (c APIConfig) Origin() string {
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Host == "" {
		return strings.TrimSuffix(c.BaseURL, "/api")
	}
	return u.Scheme + "://" + u.Host
}

// RealtimeConfig holds push channel settings.
type RealtimeConfig struct {
	Transport  string          `mapstructure:"transport"` // "sse" or "websocket"
	StreamPath string          `mapstructure:"stream_path"`
	SocketPath string          `mapstructure:"socket_path"`
	Events     []string        `mapstructure:"events"`
	Reconnect  ReconnectConfig `mapstructure:"reconnect"`
}

// ReconnectConfig is the explicit reconnect policy for the push channel.
type ReconnectConfig struct {
	InitialBackoff time.Duration `mapstructure:"initial_backoff"`
	MaxBackoff     time.Duration `mapstructure:"max_backoff"`
	MaxRetries     int           `mapstructure:"max_retries"` // 0 = unlimited
	Jitter         bool          `mapstructure:"jitter"`
}

// BoardConfig holds board synchronizer defaults.
type BoardConfig struct {
	Role         string        `mapstructure:"role"`
	BoardKey     string        `mapstructure:"board_key"`
	SaveDebounce time.Duration `mapstructure:"save_debounce"`
}

// StorageConfig selects the durable client-side storage backend.
type StorageConfig struct {
	Driver    string `mapstructure:"driver"` // "file", "sqlite", "redis", "memory"
	Path      string `mapstructure:"path"`
	RedisURL  string `mapstructure:"redis_url"`
	Namespace string `mapstructure:"namespace"`
}

// LogConfig is the log section: sinks, levels and sampling.
type LogConfig struct {
	Level    string            `mapstructure:"level"`
	Format   string            `mapstructure:"format"`
	Output   []LogOutputConfig `mapstructure:"output"`
	Levels   map[string]string `mapstructure:"levels"`
	Context  LogContextConfig  `mapstructure:"context"`
	Sampling LogSamplingConfig `mapstructure:"sampling"`
}

// LogOutputConfig is one log sink, console or file.
type LogOutputConfig struct {
	Type    string          `mapstructure:"type"` // "file", "console"
	Enabled bool            `mapstructure:"enabled"`
	Path    string          `mapstructure:"path"`   // For file output
	Rotate  LogRotateConfig `mapstructure:"rotate"` // For file output
}

type LogRotateConfig struct {
	MaxSizeMB  int  `mapstructure:"max_size_mb"`
	MaxBackups int  `mapstructure:"max_backups"`
	MaxAgeDays int  `mapstructure:"max_age_days"`
	Compress   bool `mapstructure:"compress"`
}

type LogContextConfig struct {
	IncludeCaller     bool   `mapstructure:"include_caller"`
	IncludeTimestamp  bool   `mapstructure:"include_timestamp"`
	IncludeStackTrace string `mapstructure:"include_stack_trace"`
}

// LogSamplingConfig maps onto zerolog's burst sampler.
type LogSamplingConfig struct {
	Enabled    bool          `mapstructure:"enabled"`
	Initial    uint32        `mapstructure:"initial"`
	Thereafter uint32        `mapstructure:"thereafter"`
	Tick       time.Duration `mapstructure:"tick"`
}

// ServerConfig holds configuration for the local development backend.
type ServerConfig struct {
	Host              string        `mapstructure:"host"`
	Port              int           `mapstructure:"port"`
	AllowedOrigins    []string      `mapstructure:"allowed_origins"` // Empty = allow all (development)
	AccessTokenTTL    time.Duration `mapstructure:"access_token_ttl"`
	HeartbeatInterval time.Duration `mapstructure:"heartbeat_interval"`
}

// NewConfig creates a new AppConfig by reading from a file, environment variables,
// and applying defaults.
func NewConfig(configPath string) (*AppConfig, error) {
	cfg := defaultConfig()

	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("$HOME/.tasknexus")
	}

	v.SetEnvPrefix("TASKNEXUS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvKeys(v)

	// A missing file is fine; defaults and env still apply.
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !(configPath != "" && errors.Is(err, os.ErrNotExist)) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := v.Unmarshal(&cfg, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.expandPaths()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// bindEnvKeys makes AutomaticEnv see keys that have no value in a config file.
func bindEnvKeys(v *viper.Viper) {
	for _, key := range []string{
		"api.base_url", "api.timeout",
		"realtime.transport",
		"board.role", "board.board_key", "board.save_debounce",
		"storage.driver", "storage.path", "storage.redis_url",
		"log.level",
		"server.host", "server.port",
	} {
		_ = v.BindEnv(key)
	}
}

// Default returns the built-in configuration without consulting files or env.
func Default() *AppConfig {
	cfg := defaultConfig()
	cfg.expandPaths()
	return &cfg
}

func defaultConfig() AppConfig {
	return AppConfig{
		API: APIConfig{
			BaseURL:     "http://localhost:5000/api",
			Timeout:     15 * time.Second,
			RefreshPath: "/auth/refresh",
		},
		Realtime: RealtimeConfig{
			Transport:  "sse",
			StreamPath: "/api/realtime/stream",
			SocketPath: "/api/realtime/ws",
			Reconnect: ReconnectConfig{
				InitialBackoff: time.Second,
				MaxBackoff:     30 * time.Second,
				MaxRetries:     10,
				Jitter:         true,
			},
		},
		Board: BoardConfig{
			Role:         "client",
			BoardKey:     "client-dashboard",
			SaveDebounce: 700 * time.Millisecond,
		},
		Storage: StorageConfig{
			Driver:    "file",
			Path:      "~/.tasknexus/storage.json",
			RedisURL:  "redis://localhost:6379/0",
			Namespace: "tasknexus",
		},
		Log: LogConfig{
			Level:  "INFO",
			Format: "console",
			Output: []LogOutputConfig{
				{
					Type:    "file",
					Enabled: true,
					Path:    "~/.tasknexus/logs/tasknexus.log",
					Rotate: LogRotateConfig{
						MaxSizeMB:  20,
						MaxBackups: 5,
						MaxAgeDays: 14,
						Compress:   true,
					},
				},
				{
					Type:    "console",
					Enabled: false, // would draw over the TUI
				},
			},
			Levels: map[string]string{
				"api":      "INFO",
				"board":    "INFO",
				"realtime": "INFO",
				"collab":   "INFO",
				"storage":  "WARN",
				"tui":      "WARN",
				"server":   "INFO",
			},
			Context: LogContextConfig{
				IncludeCaller:     true,
				IncludeTimestamp:  true,
				IncludeStackTrace: "ERROR",
			},
			Sampling: LogSamplingConfig{
				Enabled:    false,
				Initial:    100,
				Thereafter: 100,
				Tick:       time.Second,
			},
		},
		Server: ServerConfig{
			Host:              "127.0.0.1",
			Port:              5000,
			AccessTokenTTL:    15 * time.Minute,
			HeartbeatInterval: 25 * time.Second,
		},
	}
}

func (c *AppConfig) expandPaths() {
	if c.Storage.Path != "" {
		c.Storage.Path = expandPath(c.Storage.Path)
	}
	for i := range c.Log.Output {
		if c.Log.Output[i].Path != "" {
			c.Log.Output[i].Path = expandPath(c.Log.Output[i].Path)
		}
	}
}

// expandPath expands ~ to home directory and environment variables
func expandPath(path string) string {
	if path == "" {
		return path
	}

	if strings.HasPrefix(path, "~") {
		homeDir, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(homeDir, path[1:])
		}
	}

	return os.ExpandEnv(path)
}

var validRoles = map[string]bool{"client": true, "freelancer": true, "admin": true}

func (c *AppConfig) validate() error {
	if c.API.BaseURL == "" {
		return errors.New("api.base_url is required")
	}
	if _, err := url.ParseRequestURI(c.API.BaseURL); err != nil {
		return fmt.Errorf("invalid api.base_url: %w", err)
	}

	validLogLevels := map[string]bool{
		"TRACE": true, "DEBUG": true, "INFO": true, "WARN": true, "ERROR": true, "FATAL": true, "PANIC": true,
	}
	if !validLogLevels[strings.ToUpper(c.Log.Level)] {
		return fmt.Errorf("invalid log level: %s", c.Log.Level)
	}

	switch c.Realtime.Transport {
	case "sse", "websocket":
	default:
		return fmt.Errorf("realtime.transport must be 'sse' or 'websocket', got: %s", c.Realtime.Transport)
	}
	if c.Realtime.Reconnect.InitialBackoff <= 0 {
		return errors.New("realtime.reconnect.initial_backoff must be positive")
	}
	if c.Realtime.Reconnect.MaxBackoff < c.Realtime.Reconnect.InitialBackoff {
		return errors.New("realtime.reconnect.max_backoff must be >= initial_backoff")
	}
	if c.Realtime.Reconnect.MaxRetries < 0 {
		return errors.New("realtime.reconnect.max_retries cannot be negative")
	}

	if !validRoles[c.Board.Role] {
		return fmt.Errorf("invalid board.role: %s", c.Board.Role)
	}
	if c.Board.BoardKey == "" {
		return errors.New("board.board_key is required")
	}
	if c.Board.SaveDebounce <= 0 {
		return errors.New("board.save_debounce must be positive")
	}

	switch c.Storage.Driver {
	case "memory":
	case "file", "sqlite":
		if c.Storage.Path == "" {
			return fmt.Errorf("storage.path is required for driver %s", c.Storage.Driver)
		}
	case "redis":
		if c.Storage.RedisURL == "" {
			return errors.New("storage.redis_url is required for driver redis")
		}
	default:
		return fmt.Errorf("unsupported storage driver: %s", c.Storage.Driver)
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	return nil
}
