// Copyright (C) 2026 TaskNexus
// SPDX-License-Identifier: AGPL-3.0-or-later

package tui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/tasknexus/tasknexus/internal/logger"
	"github.com/tasknexus/tasknexus/internal/tui/messages"
	"github.com/tasknexus/tasknexus/internal/tui/screens/boardview"
	"github.com/tasknexus/tasknexus/internal/tui/screens/prefsview"
	"github.com/tasknexus/tasknexus/internal/tui/screens/taskpanel"
)

// ScreenType represents the current active screen
type ScreenType int

const (
	BoardScreen ScreenType = iota
	PreferencesScreen
	TaskScreen
)

func (s ScreenType) String() string {
	switch s {
	case BoardScreen:
		return "Board"
	case PreferencesScreen:
		return "Preferences"
	case TaskScreen:
		return "Task"
	default:
		return "Unknown"
	}
}

// PanelFactory opens the collaboration panel of a task.
type PanelFactory func(taskID string) taskpanel.Panel

type MainModel struct {
	currentScreen ScreenType
	// Screen history for back navigation
	screenHistory []ScreenType

	board    boardview.Model
	prefs    prefsview.Model
	task     taskpanel.Model
	newPanel PanelFactory

	width, height int
}

// NewMainModel creates a MainModel with the board as the initial screen
func NewMainModel(b boardview.Board, prefs prefsview.Store, newPanel PanelFactory) MainModel {
	return MainModel{
		currentScreen: BoardScreen,
		board:         boardview.NewModel(b),
		prefs:         prefsview.NewModel(prefs),
		newPanel:      newPanel,
	}
}

func (m MainModel) Init() tea.Cmd {
	return m.board.Init()
}

func (m MainModel) CurrentScreen() ScreenType {
	return m.currentScreen
}

func (m *MainModel) setSize(width, height int) {
	m.width = width
	m.height = height
	m.board.SetSize(width, height)
	m.prefs.SetSize(width, height)
	m.task.SetSize(width, height)
}

func (m *MainModel) push(next ScreenType) {
	m.screenHistory = append(m.screenHistory, m.currentScreen)
	m.currentScreen = next
}

func (m MainModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.setSize(msg.Width, msg.Height)
		return m, nil

	case messages.GoToPreferencesMsg:
		m.push(PreferencesScreen)
		return m, m.prefs.Init()

	case messages.GoToTaskMsg:
		m.push(TaskScreen)
		m.task = taskpanel.NewModel(m.newPanel(msg.TaskID))
		m.task.SetSize(m.width, m.height)
		return m, m.task.Init()

	case messages.GoToBoardMsg:
		m.currentScreen = BoardScreen
		m.screenHistory = nil
		return m, nil

	case messages.GoBackMsg:
		if n := len(m.screenHistory); n > 0 {
			m.currentScreen = m.screenHistory[n-1]
			m.screenHistory = m.screenHistory[:n-1]
		}
		return m, nil

	// The board tracks sync and push state even while hidden.
	case messages.BoardChangedMsg, messages.RealtimeStatusMsg:
		return m.updateBoard(msg)

	case messages.RealtimeEventMsg:
		log := logger.GetTUILogger()
		log.Debug().
			Str("screen", m.currentScreen.String()).
			Str("event", msg.Event.Type).
			Msg("Realtime event")
		var boardCmd tea.Cmd
		m, boardCmd = m.updateBoardModel(msg)
		if m.currentScreen != TaskScreen {
			return m, boardCmd
		}
		model, taskCmd := m.task.Update(msg)
		m.task = model.(taskpanel.Model)
		return m, tea.Batch(boardCmd, taskCmd)

	case messages.OpDoneMsg:
		switch {
		case msg.Op == prefsview.OpSave:
			model, cmd := m.prefs.Update(msg)
			m.prefs = model.(prefsview.Model)
			return m, cmd
		case strings.HasPrefix(msg.Op, "task:"):
			model, cmd := m.task.Update(msg)
			m.task = model.(taskpanel.Model)
			return m, cmd
		default:
			return m.updateBoard(msg)
		}

	case messages.PreferencesChangedMsg:
		model, cmd := m.prefs.Update(msg)
		m.prefs = model.(prefsview.Model)
		return m, cmd
	}

	// Delegate to the current screen
	var cmd tea.Cmd
	switch m.currentScreen {
	case BoardScreen:
		return m.updateBoard(msg)
	case PreferencesScreen:
		var model tea.Model
		model, cmd = m.prefs.Update(msg)
		m.prefs = model.(prefsview.Model)
	case TaskScreen:
		var model tea.Model
		model, cmd = m.task.Update(msg)
		m.task = model.(taskpanel.Model)
	}
	return m, cmd
}

func (m MainModel) updateBoard(msg tea.Msg) (tea.Model, tea.Cmd) {
	return m.updateBoardModel(msg)
}

func (m MainModel) updateBoardModel(msg tea.Msg) (MainModel, tea.Cmd) {
	model, cmd := m.board.Update(msg)
	m.board = model.(boardview.Model)
	return m, cmd
}

func (m MainModel) View() string {
	switch m.currentScreen {
	case BoardScreen:
		return m.board.View()
	case PreferencesScreen:
		return m.prefs.View()
	case TaskScreen:
		return m.task.View()
	default:
		return "Unknown screen"
	}
}
