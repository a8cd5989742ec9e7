// Copyright (C) 2026 TaskNexus
// SPDX-License-Identifier: AGPL-3.0-or-later

package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/tasknexus/tasknexus/internal/config"
)

func TestNewManager(t *testing.T) {
	tests := []struct {
		name        string
		config      *config.LogConfig
		expectError bool
		errorMsg    string
	}{
		{
			name: "minimal_config",
			config: &config.LogConfig{
				Level:  "info",
				Format: "json",
				Output: []config.LogOutputConfig{
					{Type: "console", Enabled: true},
				},
				Context: config.LogContextConfig{IncludeTimestamp: true},
			},
		},
		{
			name: "file_output_config",
			config: &config.LogConfig{
				Level:  "debug",
				Format: "json",
				Output: []config.LogOutputConfig{
					{Type: "file", Enabled: true, Path: filepath.Join(t.TempDir(), "test.log")},
				},
				Context: config.LogContextConfig{IncludeTimestamp: true, IncludeCaller: true},
			},
		},
		{
			name: "rotating_file_config",
			config: &config.LogConfig{
				Level:  "error",
				Format: "console",
				Output: []config.LogOutputConfig{
					{
						Type:    "file",
						Enabled: true,
						Path:    filepath.Join(t.TempDir(), "rotating.log"),
						Rotate:  config.LogRotateConfig{MaxSizeMB: 1, MaxBackups: 3, MaxAgeDays: 7},
					},
				},
			},
		},
		{
			name: "no_enabled_outputs",
			config: &config.LogConfig{
				Level:  "info",
				Format: "json",
				Output: []config.LogOutputConfig{{Type: "console", Enabled: false}},
			},
		},
		{
			name: "invalid_output_type",
			config: &config.LogConfig{
				Level:  "info",
				Format: "json",
				Output: []config.LogOutputConfig{{Type: "syslog", Enabled: true}},
			},
			expectError: true,
			errorMsg:    "unsupported output type: syslog",
		},
		{
			name: "sampling_config",
			config: &config.LogConfig{
				Level:    "info",
				Format:   "json",
				Output:   []config.LogOutputConfig{{Type: "console", Enabled: true}},
				Sampling: config.LogSamplingConfig{Enabled: true, Initial: 100, Thereafter: 10, Tick: time.Second},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			manager, err := NewManager(tt.config)

			if tt.expectError {
				if err == nil {
					t.Fatalf("expected error but got none")
				}
				if !strings.Contains(err.Error(), tt.errorMsg) {
					t.Errorf("expected error containing %q, got %q", tt.errorMsg, err.Error())
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			defer manager.Close()

			if manager.packageLoggers == nil {
				t.Error("expected package loggers map to be initialized")
			}
		})
	}
}

func TestManager_FileOutputAndPackageLevels(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "app.log")
	cfg := &config.LogConfig{
		Level:  "info",
		Format: "json",
		Output: []config.LogOutputConfig{{Type: "file", Enabled: true, Path: logPath}},
		Levels: map[string]string{"board": "debug", "realtime": "error"},
	}

	manager, err := NewManager(cfg)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	board := manager.GetLogger("board")
	if board.GetLevel() != zerolog.DebugLevel {
		t.Errorf("board level = %v, want debug", board.GetLevel())
	}
	rt := manager.GetLogger("realtime")
	if rt.GetLevel() != zerolog.ErrorLevel {
		t.Errorf("realtime level = %v, want error", rt.GetLevel())
	}
	other := manager.GetLogger("collab")
	if other.GetLevel() != zerolog.InfoLevel {
		t.Errorf("collab level = %v, want info", other.GetLevel())
	}

	board.Info().Str("board_key", "client-dashboard").Msg("saved")
	rt.Warn().Msg("filtered out")

	if err := manager.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	content := string(data)
	if !strings.Contains(content, `"pkg":"board"`) || !strings.Contains(content, "client-dashboard") {
		t.Errorf("expected board entry in log, got %q", content)
	}
	if strings.Contains(content, "filtered out") {
		t.Errorf("warn message should be filtered for realtime package")
	}
}

func TestManager_SetPackageLevel(t *testing.T) {
	manager, err := NewManager(&config.LogConfig{Level: "info", Format: "json"})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	defer manager.Close()

	_ = manager.GetLogger("api")
	manager.SetPackageLevel("api", "warn")

	if got := manager.GetLogger("api").GetLevel(); got != zerolog.WarnLevel {
		t.Errorf("api level = %v, want warn", got)
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]zerolog.Level{
		"trace":   zerolog.TraceLevel,
		"DEBUG":   zerolog.DebugLevel,
		"warning": zerolog.WarnLevel,
		"Error":   zerolog.ErrorLevel,
		"bogus":   zerolog.InfoLevel,
	}
	for in, want := range cases {
		if got := parseLevel(in); got != want {
			t.Errorf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
