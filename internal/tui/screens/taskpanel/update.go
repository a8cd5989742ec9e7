// Copyright (C) 2026 TaskNexus
// SPDX-License-Identifier: AGPL-3.0-or-later

package taskpanel

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/tasknexus/tasknexus/internal/collab"
	"github.com/tasknexus/tasknexus/internal/realtime"
	"github.com/tasknexus/tasknexus/internal/tui/layout"
	"github.com/tasknexus/tasknexus/internal/tui/messages"
)

// Update handles messages and updates the model state
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.mode != modeBrowse {
			return m.handleInput(msg)
		}
		return m.handleKey(msg)

	case messages.OpDoneMsg:
		if strings.HasPrefix(msg.Op, "task:") {
			m.sync()
		}

	case messages.NoticeMsg:
		m.notice = msg.Text
		switch msg.Level {
		case collab.LevelError:
			m.noticeKind = layout.NoticeError
		case collab.LevelSuccess:
			m.noticeKind = layout.NoticeSuccess
		default:
			m.noticeKind = layout.NoticeInfo
		}

	case messages.RealtimeEventMsg:
		if p, ok := msg.Event.Payload.(realtime.TaskPayload); ok && p.TaskID == m.view.TaskID {
			return m, m.run(OpRefresh, m.panel.Refresh)
		}

	case tea.WindowSizeMsg:
		m.SetSize(msg.Width, msg.Height)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "tab":
		m.tabs.NextTab()
		m.panel.SetTab(collab.Tab(m.tabs.ActiveTab()))
		m.sync()
	case "shift+tab":
		m.tabs.PrevTab()
		m.panel.SetTab(collab.Tab(m.tabs.ActiveTab()))
		m.sync()
	case "1", "2", "3":
		m.panel.SetTab(collab.Tab(msg.String()[0] - '1'))
		m.sync()

	case "r":
		return m, m.run(OpRefresh, m.panel.Refresh)

	case "c":
		m.panel.SetTab(collab.TabComments)
		m.sync()
		m.mode = modeComment
		m.input.Placeholder = "Write a comment, @ to mention"
		m.input.SetValue(m.view.Draft)
		m.input.CursorEnd()
		return m, tea.Batch(m.input.Focus(), textinput.Blink)

	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.view.Subtasks)-1 {
			m.cursor++
		}

	case " ", "x":
		if m.view.Tab != collab.TabMilestones || len(m.view.Subtasks) == 0 {
			break
		}
		st := m.view.Subtasks[m.cursor]
		return m, m.run(OpToggle, func(ctx context.Context) error {
			return m.panel.ToggleSubtask(ctx, st)
		})
	case "d":
		if m.view.Tab != collab.TabMilestones || len(m.view.Subtasks) == 0 {
			break
		}
		id := m.view.Subtasks[m.cursor].ID
		return m, m.run(OpDelete, func(ctx context.Context) error {
			return m.panel.DeleteSubtask(ctx, id)
		})
	case "n":
		if m.view.Tab != collab.TabMilestones {
			break
		}
		m.mode = modeMilestone
		m.input.Placeholder = "title | 2026-01-31 | weight"
		m.input.SetValue("")
		return m, tea.Batch(m.input.Focus(), textinput.Blink)

	case "esc", "backspace":
		return m, func() tea.Msg { return messages.GoBackMsg{} }
	case "q", "ctrl+c":
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) handleInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		if m.mode == modeComment {
			m.panel.SetDraft(m.input.Value())
		}
		m.mode = modeBrowse
		m.input.Blur()
		m.sync()
		return m, nil

	case "enter":
		mode := m.mode
		m.mode = modeBrowse
		m.input.Blur()
		if mode == modeComment {
			m.panel.SetDraft(m.input.Value())
			m.sync()
			return m, m.run(OpComment, m.panel.SubmitComment)
		}
		m.panel.SetSubtaskDraft(parseMilestone(m.input.Value()))
		return m, m.run(OpCreate, m.panel.CreateSubtask)

	case "tab":
		if m.mode != modeComment {
			return m, nil
		}
		m.panel.SetDraft(m.input.Value())
		if candidates := m.panel.MentionCandidates(); len(candidates) > 0 {
			m.panel.SelectMention(candidates[0])
			m.sync()
			m.input.SetValue(m.view.Draft)
			m.input.CursorEnd()
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if m.mode == modeComment {
		m.panel.SetDraft(m.input.Value())
	}
	return m, cmd
}
