// Copyright (C) 2026 TaskNexus
// SPDX-License-Identifier: AGPL-3.0-or-later

package messages

import (
	"github.com/tasknexus/tasknexus/internal/board"
	"github.com/tasknexus/tasknexus/internal/collab"
	"github.com/tasknexus/tasknexus/internal/preferences"
	"github.com/tasknexus/tasknexus/internal/realtime"
)

// BoardChangedMsg carries a synchronizer snapshot.
type BoardChangedMsg struct {
	State  board.State
	Status board.Status
}

// RealtimeEventMsg wraps a pushed server event.
type RealtimeEventMsg struct {
	Event realtime.Event
}

// RealtimeStatusMsg reports a change of the push connection.
type RealtimeStatusMsg struct {
	Status realtime.Status
}

// PreferencesChangedMsg is sent after any preference write.
type PreferencesChangedMsg struct {
	Preferences preferences.Preferences
}

// NoticeMsg is a user-facing toast from a background operation.
type NoticeMsg struct {
	Level collab.Level
	Text  string
}

// OpDoneMsg reports the end of an asynchronous operation started by a
// screen. Err is nil on success.
type OpDoneMsg struct {
	Op  string
	Err error
}
