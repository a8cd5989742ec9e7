// Copyright (C) 2026 TaskNexus
// SPDX-License-Identifier: AGPL-3.0-or-later

package prefsview

import (
	"context"
	"math"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/tasknexus/tasknexus/internal/preferences"
	"github.com/tasknexus/tasknexus/internal/tui/layout"
	"github.com/tasknexus/tasknexus/internal/tui/messages"
)

// Update handles messages and updates the model state
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case messages.OpDoneMsg:
		if msg.Op != OpSave {
			break
		}
		if msg.Err != nil {
			m.notice = "Could not save preference: " + msg.Err.Error()
			m.noticeKind = layout.NoticeError
		} else {
			m.notice = ""
		}

	case messages.PreferencesChangedMsg:
		// another writer changed the store; values are read at render time
		if m.noticeKind == layout.NoticeError {
			m.notice = ""
		}

	case tea.WindowSizeMsg:
		m.SetSize(msg.Width, msg.Height)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	leaf := m.Selected()
	current, _ := m.store.Lookup(leaf.Path)

	switch msg.String() {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.leaves)-1 {
			m.cursor++
		}

	case "enter", " ":
		switch leaf.Default.Kind() {
		case preferences.KindBool:
			return m, m.write(func(ctx context.Context) error {
				return m.store.TogglePreference(ctx, leaf.Path)
			})
		case preferences.KindEnum:
			next := nextEnum(leaf.Allowed, current.Enum())
			return m, m.write(func(ctx context.Context) error {
				return m.store.SetEnum(ctx, preferences.EnumKey{Path: leaf.Path, Allowed: leaf.Allowed}, next)
			})
		}

	case "+", "-":
		if leaf.Default.Kind() != preferences.KindNumber {
			break
		}
		step := numberStep(leaf)
		if msg.String() == "-" {
			step = -step
		}
		n := math.Max(0, current.Number()+step)
		return m, m.write(func(ctx context.Context) error {
			return m.store.SetPreference(ctx, leaf.Path, preferences.Number(n))
		})

	case "R":
		return m, m.write(m.store.ResetPreferences)

	case "esc", "backspace":
		return m, func() tea.Msg { return messages.GoBackMsg{} }
	case "q", "ctrl+c":
		return m, tea.Quit
	}
	return m, nil
}
