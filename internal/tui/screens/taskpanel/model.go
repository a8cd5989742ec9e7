// Copyright (C) 2026 TaskNexus
// SPDX-License-Identifier: AGPL-3.0-or-later

package taskpanel

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/tasknexus/tasknexus/internal/api"
	"github.com/tasknexus/tasknexus/internal/collab"
	"github.com/tasknexus/tasknexus/internal/tui/components/tabbar"
	"github.com/tasknexus/tasknexus/internal/tui/layout"
	"github.com/tasknexus/tasknexus/internal/tui/messages"
)

const opTimeout = 30 * time.Second

// Operation names reported through messages.OpDoneMsg.
const (
	OpRefresh = "task:refresh"
	OpComment = "task:comment"
	OpCreate  = "task:create"
	OpToggle  = "task:toggle"
	OpDelete  = "task:delete"
)

// Panel is the part of *collab.Panel the screen drives.
type Panel interface {
	View() collab.View
	SetTab(t collab.Tab)
	SetDraft(body string)
	SetSubtaskDraft(d collab.SubtaskDraft)
	MentionCandidates() []api.Person
	SelectMention(person api.Person)
	Refresh(ctx context.Context) error
	SubmitComment(ctx context.Context) error
	CreateSubtask(ctx context.Context) error
	ToggleSubtask(ctx context.Context, st api.Subtask) error
	DeleteSubtask(ctx context.Context, subtaskID string) error
}

type inputMode int

const (
	modeBrowse inputMode = iota
	modeComment
	modeMilestone
)

// Model is the model for the task collaboration screen.
type Model struct {
	panel    Panel
	view     collab.View
	tabs     tabbar.Model
	input    textinput.Model
	progress progress.Model
	mode     inputMode
	cursor   int

	notice     string
	noticeKind layout.NoticeKind

	width  int
	height int
}

func NewModel(panel Panel) Model {
	input := textinput.New()
	input.CharLimit = 2000

	return Model{
		panel: panel,
		view:  panel.View(),
		tabs: tabbar.New([]tabbar.Tab{
			{ID: collab.TabComments.String(), Label: "Comments"},
			{ID: collab.TabMilestones.String(), Label: "Milestones"},
			{ID: collab.TabActivity.String(), Label: "Activity"},
		}),
		input:    input,
		progress: progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		width:    80,
		height:   24,
	}
}

func (m Model) Init() tea.Cmd {
	return m.run(OpRefresh, m.panel.Refresh)
}

// SetSize updates the model's dimensions
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.tabs.SetWidth(width)
	m.input.Width = max(width-6, 10)
	m.progress.Width = min(max(width-20, 10), 60)
}

// GetLayoutInfo returns layout information for the task screen
func (m Model) GetLayoutInfo() layout.LayoutInfo {
	help := []layout.HelpItem{
		{Key: "tab", Description: "switch tab"},
		{Key: "r", Description: "refresh"},
		{Key: "c", Description: "comment"},
	}
	switch {
	case m.mode == modeComment:
		help = []layout.HelpItem{
			{Key: "enter", Description: "post"},
			{Key: "tab", Description: "complete mention"},
			{Key: "esc", Description: "keep draft"},
		}
	case m.mode == modeMilestone:
		help = []layout.HelpItem{
			{Key: "enter", Description: "add"},
			{Key: "esc", Description: "cancel"},
		}
	case m.view.Tab == collab.TabMilestones:
		help = append(help,
			layout.HelpItem{Key: "space", Description: "toggle"},
			layout.HelpItem{Key: "n", Description: "new"},
			layout.HelpItem{Key: "d", Description: "delete"})
	}
	help = append(help, layout.HelpItem{Key: "esc", Description: "back"})

	return layout.LayoutInfo{
		Title:       "Task " + m.view.TaskID,
		Breadcrumbs: []string{"Board", m.view.TaskID, m.view.Tab.String()},
		Status:      fmt.Sprintf("%d comments · %d milestones · %.1f%% done", len(m.view.Comments), len(m.view.Subtasks), m.view.MilestoneProgress),
		Notice:      m.notice,
		NoticeKind:  m.noticeKind,
		HelpItems:   help,
	}
}

func (m Model) run(op string, fn func(context.Context) error) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		defer cancel()
		return messages.OpDoneMsg{Op: op, Err: fn(ctx)}
	}
}

func (m *Model) sync() {
	m.view = m.panel.View()
	m.cursor = min(max(m.cursor, 0), max(len(m.view.Subtasks)-1, 0))
	m.tabs.SetActiveID(m.view.Tab.String())
	m.tabs.SetBadge(collab.TabComments.String(), strconv.Itoa(len(m.view.Comments)))
	m.tabs.SetBadge(collab.TabMilestones.String(), strconv.Itoa(len(m.view.Subtasks)))
}

// parseMilestone reads "title | due date | weight"; the last two parts are
// optional.
func parseMilestone(s string) collab.SubtaskDraft {
	parts := strings.Split(s, "|")
	d := collab.SubtaskDraft{Title: strings.TrimSpace(parts[0])}
	if len(parts) > 1 {
		d.DueDate = strings.TrimSpace(parts[1])
	}
	if len(parts) > 2 {
		d.Weight, _ = strconv.ParseFloat(strings.TrimSpace(parts[2]), 64)
	}
	return d
}
