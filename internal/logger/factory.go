// Copyright (C) 2026 TaskNexus
// SPDX-License-Identifier: AGPL-3.0-or-later

package logger

import (
	"github.com/rs/zerolog"
)

// Static logger getters that map directly to config.yaml log.levels
// These ensure consistent logger names across the codebase

// GetAPILogger returns a logger for the REST client
func GetAPILogger() zerolog.Logger {
	return GetLogger("api")
}

// GetBoardLogger returns a logger for board synchronization
func GetBoardLogger() zerolog.Logger {
	return GetLogger("board")
}

// GetRealtimeLogger returns a logger for the push channel subscriber
func GetRealtimeLogger() zerolog.Logger {
	return GetLogger("realtime")
}

// GetCollabLogger returns a logger for the collaboration panel
func GetCollabLogger() zerolog.Logger {
	return GetLogger("collab")
}

// GetStorageLogger returns a logger for client-side storage
func GetStorageLogger() zerolog.Logger {
	return GetLogger("storage")
}

// GetTUILogger returns a logger for TUI components
func GetTUILogger() zerolog.Logger {
	return GetLogger("tui")
}

// GetServerLogger returns a logger for the development backend
func GetServerLogger() zerolog.Logger {
	return GetLogger("server")
}
