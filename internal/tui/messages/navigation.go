// Copyright (C) 2026 TaskNexus
// SPDX-License-Identifier: AGPL-3.0-or-later

package messages

// Navigation messages for screen transitions within the TUI
type GoBackMsg struct{}

type GoToBoardMsg struct{}

type GoToPreferencesMsg struct{}

type GoToTaskMsg struct {
	TaskID string
}
