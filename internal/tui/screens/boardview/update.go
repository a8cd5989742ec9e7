// Copyright (C) 2026 TaskNexus
// SPDX-License-Identifier: AGPL-3.0-or-later

package boardview

import (
	"slices"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/tasknexus/tasknexus/internal/api"
	"github.com/tasknexus/tasknexus/internal/realtime"
	"github.com/tasknexus/tasknexus/internal/tui/layout"
	"github.com/tasknexus/tasknexus/internal/tui/messages"
)

var boardOps = map[string]bool{"load": true, "refresh": true, "reset": true, "save": true}

// Update handles messages and updates the model state
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case messages.BoardChangedMsg:
		m.state = msg.State
		m.status = msg.Status
		m.clamp()

	case messages.RealtimeStatusMsg:
		m.rtStatus = msg.Status

	case messages.RealtimeEventMsg:
		m.lastEvent = msg.Event.Type
		m.lastAt = msg.Event.ReceivedAt
		if p, ok := msg.Event.Payload.(realtime.BoardPayload); ok && msg.Event.Kind == realtime.KindBoardUpdated {
			// Our own saves echo back; only foreign changes to a clean board are applied.
			if p.BoardKey == m.board.BoardKey() && !m.board.Dirty() && len(p.BoardState) > 0 {
				if err := m.board.ApplyRemote(p.BoardState); err == nil {
					m.refresh()
				}
			}
		}

	case messages.OpDoneMsg:
		if !boardOps[msg.Op] {
			break
		}
		m.refresh()
		m.setNotice(msg)

	case tea.WindowSizeMsg:
		m.SetSize(msg.Width, msg.Height)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	columnID, taskID := m.focused()
	cols := m.columns()

	switch msg.String() {
	case "left", "h":
		m.col--
		m.clamp()
	case "right", "l":
		m.col++
		m.clamp()
	case "up", "k":
		m.row--
		m.clamp()
	case "down", "j":
		m.row++
		m.clamp()

	case "H", "L":
		step := -1
		if msg.String() == "L" {
			step = 1
		}
		target := m.col + step
		if taskID == "" || target < 0 || target >= len(cols) {
			break
		}
		dest := cols[target].ID
		m.board.MoveTask(taskID, columnID, dest, len(m.state.TaskOrder[dest]))
		m.refresh()
		m.col = target
		m.row = slices.Index(m.state.TaskOrder[dest], taskID)
		m.clamp()

	case "K", "J":
		if taskID == "" {
			break
		}
		index := m.row - 1
		if msg.String() == "J" {
			index = m.row + 1
		}
		if index < 0 || index >= len(m.state.TaskOrder[columnID]) {
			break
		}
		m.board.MoveTask(taskID, columnID, columnID, index)
		m.refresh()
		m.row = index

	case "<", ">":
		target := m.col - 1
		if msg.String() == ">" {
			target = m.col + 1
		}
		if columnID == "" || target < 0 || target >= len(cols) {
			break
		}
		// Hidden columns keep their slot in ColumnOrder, so indexes are
		// resolved there rather than in the visible list.
		from := slices.Index(m.state.ColumnOrder, columnID)
		to := slices.Index(m.state.ColumnOrder, cols[target].ID)
		m.board.ReorderColumns(from, to)
		m.refresh()
		m.col = target

	case "enter":
		if taskID != "" {
			return m, func() tea.Msg { return messages.GoToTaskMsg{TaskID: taskID} }
		}
	case "r":
		return m, m.run("refresh", m.board.Fetch)
	case "R":
		return m, m.run("reset", m.board.Reset)
	case "s":
		return m, m.run("save", m.board.Flush)
	case "p":
		return m, func() tea.Msg { return messages.GoToPreferencesMsg{} }
	case "q", "ctrl+c":
		return m, tea.Quit
	}
	return m, nil
}

func (m *Model) setNotice(msg messages.OpDoneMsg) {
	if msg.Err != nil {
		m.notice = "Failed to " + msg.Op + " board: " + api.Message(msg.Err)
		m.noticeKind = layout.NoticeError
		return
	}
	switch msg.Op {
	case "reset":
		m.notice = "Board reset to defaults"
	case "save":
		m.notice = "Board saved at " + time.Now().Format(time.TimeOnly)
	default:
		m.notice = ""
	}
	m.noticeKind = layout.NoticeSuccess
}
