// Copyright (C) 2026 TaskNexus
// SPDX-License-Identifier: AGPL-3.0-or-later

package boardview

import (
	"context"
	"encoding/json"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/tasknexus/tasknexus/internal/board"
	"github.com/tasknexus/tasknexus/internal/realtime"
	"github.com/tasknexus/tasknexus/internal/tui/layout"
	"github.com/tasknexus/tasknexus/internal/tui/messages"
)

const opTimeout = 30 * time.Second

// Board is the part of *board.Synchronizer the screen drives.
type Board interface {
	BoardKey() string
	Role() board.Role
	State() board.State
	Status() board.Status
	Dirty() bool
	Fetch(ctx context.Context) error
	Reset(ctx context.Context) error
	Flush(ctx context.Context) error
	ApplyRemote(raw json.RawMessage) error
	ReorderColumns(from, to int)
	MoveTask(taskID, fromColumn, toColumn string, index int)
}

// Model is the model for the board screen.
type Model struct {
	board  Board
	state  board.State
	status board.Status

	rtStatus  realtime.Status
	lastEvent string
	lastAt    time.Time

	col, row int

	notice     string
	noticeKind layout.NoticeKind

	width  int
	height int
}

func NewModel(b Board) Model {
	return Model{
		board:  b,
		state:  b.State(),
		status: b.Status(),
		width:  80,
		height: 24,
	}
}

func (m Model) Init() tea.Cmd {
	return m.run("load", m.board.Fetch)
}

// SetSize updates the model's dimensions
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

// GetLayoutInfo returns layout information for the board screen
func (m Model) GetLayoutInfo() layout.LayoutInfo {
	return layout.LayoutInfo{
		Title:       "Board",
		Breadcrumbs: []string{"Board", m.board.BoardKey()},
		Status:      m.statusLine(),
		Notice:      m.notice,
		NoticeKind:  m.noticeKind,
		HelpItems: []layout.HelpItem{
			{Key: "←/→", Description: "column"},
			{Key: "↑/↓", Description: "task"},
			{Key: "H/L", Description: "move task"},
			{Key: "K/J", Description: "reorder task"},
			{Key: "</>", Description: "move column"},
			{Key: "enter", Description: "open task"},
			{Key: "r", Description: "refresh"},
			{Key: "R", Description: "reset"},
			{Key: "s", Description: "save now"},
			{Key: "p", Description: "preferences"},
			{Key: "q", Description: "quit"},
		},
	}
}

// run wraps a board operation in a command reporting OpDoneMsg.
func (m Model) run(op string, fn func(context.Context) error) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		defer cancel()
		return messages.OpDoneMsg{Op: op, Err: fn(ctx)}
	}
}

func (m Model) columns() []board.Column {
	return m.state.OrderedColumns()
}

// focused returns the focused column and task ids; either may be empty.
func (m Model) focused() (columnID, taskID string) {
	cols := m.columns()
	if m.col < 0 || m.col >= len(cols) {
		return "", ""
	}
	columnID = cols[m.col].ID
	tasks := m.state.TaskOrder[columnID]
	if m.row >= 0 && m.row < len(tasks) {
		taskID = tasks[m.row]
	}
	return columnID, taskID
}

// refresh pulls the current snapshot and keeps the cursor in range.
func (m *Model) refresh() {
	m.state = m.board.State()
	m.status = m.board.Status()
	m.clamp()
}

func (m *Model) clamp() {
	cols := m.columns()
	m.col = min(max(m.col, 0), max(len(cols)-1, 0))
	n := 0
	if len(cols) > 0 {
		n = len(m.state.TaskOrder[cols[m.col].ID])
	}
	m.row = min(max(m.row, 0), max(n-1, 0))
}
