// Copyright (C) 2026 TaskNexus
// SPDX-License-Identifier: AGPL-3.0-or-later

package logger

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/tasknexus/tasknexus/internal/config"
)

func TestStaticLoggerGetters(t *testing.T) {
	cfg := &config.LogConfig{
		Level:  "info",
		Format: "json",
		Levels: map[string]string{
			"api":      "debug",
			"board":    "warn",
			"realtime": "error",
			"collab":   "trace",
			"storage":  "info",
			"tui":      "error",
			"server":   "debug",
		},
	}
	if err := Initialize(cfg); err != nil {
		t.Fatalf("failed to initialize global logger: %v", err)
	}
	defer CloseGlobal()

	tests := []struct {
		name          string
		getterFunc    func() zerolog.Logger
		expectedLevel zerolog.Level
	}{
		{"api_logger", GetAPILogger, zerolog.DebugLevel},
		{"board_logger", GetBoardLogger, zerolog.WarnLevel},
		{"realtime_logger", GetRealtimeLogger, zerolog.ErrorLevel},
		{"collab_logger", GetCollabLogger, zerolog.TraceLevel},
		{"storage_logger", GetStorageLogger, zerolog.InfoLevel},
		{"tui_logger", GetTUILogger, zerolog.ErrorLevel},
		{"server_logger", GetServerLogger, zerolog.DebugLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := tt.getterFunc()
			if l.GetLevel() != tt.expectedLevel {
				t.Errorf("level = %v, want %v", l.GetLevel(), tt.expectedLevel)
			}
		})
	}
}

func TestStaticLoggerGetters_Uninitialized(t *testing.T) {
	CloseGlobal()

	l := GetBoardLogger()
	if l.GetLevel() != zerolog.Disabled {
		t.Errorf("expected disabled logger when uninitialized, got %v", l.GetLevel())
	}
	// Must not panic.
	l.Info().Str("test", "uninitialized").Msg("test message")
}
