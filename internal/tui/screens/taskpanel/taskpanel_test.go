// Copyright (C) 2026 TaskNexus
// SPDX-License-Identifier: AGPL-3.0-or-later

package taskpanel

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tasknexus/tasknexus/internal/collab"
	"github.com/tasknexus/tasknexus/internal/devserver"
	"github.com/tasknexus/tasknexus/internal/realtime"
	"github.com/tasknexus/tasknexus/internal/tui/messages"
	"github.com/tasknexus/tasknexus/test/testutil"
)

func newLoadedModel(t *testing.T) (Model, *collab.Panel, *testutil.NotifierCapture) {
	t.Helper()
	backend := testutil.NewBackend(t)
	client, _ := backend.Login(t, devserver.DemoFreelancer)
	notes := testutil.NewNotifierCapture()
	panel := collab.NewPanel(client, notes, devserver.DemoTaskID)

	m := NewModel(panel)
	m.SetSize(120, 40)
	m = runCmd(t, m, m.Init())
	return m, panel, notes
}

// runCmd executes cmd and feeds its message back into m.
func runCmd(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	require.NotNil(t, cmd)
	updated, _ := testutil.SendMessage(m, testutil.ExecuteCommand(cmd))
	return updated.(Model)
}

func send(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	updated, cmd := testutil.SendMessage(m, msg)
	return updated.(Model), cmd
}

func typeText(t *testing.T, m Model, text string) Model {
	t.Helper()
	for _, r := range text {
		m, _ = send(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	return m
}

func TestInit_LoadsComments(t *testing.T) {
	m, _, _ := newLoadedModel(t)

	testutil.AssertViewContains(t, m, "Kickoff notes are in the brief")
	testutil.AssertViewContains(t, m, "Casey Client")
	assert.Len(t, m.view.Subtasks, 3)
}

func TestTabs_Switch(t *testing.T) {
	m, panel, _ := newLoadedModel(t)

	m, _ = send(t, m, testutil.SpecialKey(tea.KeyTab))
	assert.Equal(t, collab.TabMilestones, panel.View().Tab)
	testutil.AssertViewContains(t, m, "Wireframes")
	testutil.AssertViewContains(t, m, "33.3%")

	m, _ = send(t, m, testutil.KeyPress("3"))
	assert.Equal(t, collab.TabActivity, panel.View().Tab)
	testutil.AssertViewContains(t, m, "Task created")

	m, _ = send(t, m, tea.KeyMsg{Type: tea.KeyShiftTab})
	assert.Equal(t, collab.TabMilestones, panel.View().Tab)
}

func TestMilestones_ToggleAndDelete(t *testing.T) {
	m, _, _ := newLoadedModel(t)
	m, _ = send(t, m, testutil.KeyPress("2"))

	m, cmd := send(t, m, testutil.KeyPress(" "))
	m = runCmd(t, m, cmd)
	assert.False(t, m.view.Subtasks[0].Completed)
	assert.Zero(t, m.view.MilestoneProgress)

	m, _ = send(t, m, testutil.KeyPress("j"))
	m, cmd = send(t, m, testutil.KeyPress("d"))
	m = runCmd(t, m, cmd)
	require.Len(t, m.view.Subtasks, 2)
	assert.Equal(t, "Handoff", m.view.Subtasks[1].Title)
}

func TestMilestones_Create(t *testing.T) {
	m, _, notes := newLoadedModel(t)
	m, _ = send(t, m, testutil.KeyPress("2"))

	m, _ = send(t, m, testutil.KeyPress("n"))
	m = typeText(t, m, "QA pass | 2026-12-01 | 2")
	m, cmd := send(t, m, testutil.SpecialKey(tea.KeyEnter))
	m = runCmd(t, m, cmd)

	require.Len(t, m.view.Subtasks, 4)
	added := m.view.Subtasks[3]
	assert.Equal(t, "QA pass", added.Title)
	assert.Equal(t, "2026-12-01", added.DueDate)
	assert.Equal(t, 2.0, added.Weight)
	assert.Equal(t, "Milestone added", notes.All()[0].Message)
}

func TestMilestones_InvalidDueDateKeepsNothing(t *testing.T) {
	m, _, notes := newLoadedModel(t)
	m, _ = send(t, m, testutil.KeyPress("2"))

	m, _ = send(t, m, testutil.KeyPress("n"))
	m = typeText(t, m, "QA | soon")
	m, cmd := send(t, m, testutil.SpecialKey(tea.KeyEnter))
	m = runCmd(t, m, cmd)

	assert.Len(t, m.view.Subtasks, 3)
	require.Len(t, notes.Errors(), 1)
	assert.Equal(t, "Due date must look like 2026-01-31", notes.Errors()[0].Message)
}

func TestComment_MentionAndPost(t *testing.T) {
	m, panel, _ := newLoadedModel(t)

	m, _ = send(t, m, testutil.KeyPress("c"))
	m = typeText(t, m, "Thanks @cas")
	testutil.AssertViewContains(t, m, "@Casey Client")

	m, _ = send(t, m, testutil.SpecialKey(tea.KeyTab))
	assert.Equal(t, "Thanks @client ", panel.View().Draft)

	m, cmd := send(t, m, testutil.SpecialKey(tea.KeyEnter))
	m = runCmd(t, m, cmd)

	require.Len(t, m.view.Comments, 2)
	posted := m.view.Comments[1]
	assert.Equal(t, "Thanks @client", posted.Body)
	assert.Equal(t, []string{"client"}, posted.Mentions)
	assert.Empty(t, m.view.Draft)
}

func TestComment_EscKeepsDraft(t *testing.T) {
	m, panel, _ := newLoadedModel(t)

	m, _ = send(t, m, testutil.KeyPress("c"))
	m = typeText(t, m, "half a thought")
	m, _ = send(t, m, testutil.SpecialKey(tea.KeyEsc))

	assert.Equal(t, modeBrowse, m.mode)
	assert.Equal(t, "half a thought", panel.View().Draft)

	m, _ = send(t, m, testutil.KeyPress("c"))
	assert.Equal(t, "half a thought", m.input.Value())
}

func TestRealtime_TaskUpdateRefreshes(t *testing.T) {
	m, _, _ := newLoadedModel(t)

	ev := realtime.Event{Kind: realtime.KindTaskUpdated, Payload: realtime.TaskPayload{TaskID: devserver.DemoTaskID}}
	_, cmd := send(t, m, messages.RealtimeEventMsg{Event: ev})
	require.NotNil(t, cmd)
	assert.Equal(t, messages.OpDoneMsg{Op: OpRefresh}, testutil.ExecuteCommand(cmd))

	other := realtime.Event{Kind: realtime.KindTaskUpdated, Payload: realtime.TaskPayload{TaskID: "task-9"}}
	_, cmd = send(t, m, messages.RealtimeEventMsg{Event: other})
	assert.Nil(t, cmd)
}

func TestKeys_Back(t *testing.T) {
	m, _, _ := newLoadedModel(t)

	_, cmd := send(t, m, testutil.SpecialKey(tea.KeyEsc))
	assert.IsType(t, messages.GoBackMsg{}, testutil.ExecuteCommand(cmd))
}

func TestParseMilestone(t *testing.T) {
	tests := []struct {
		in   string
		want collab.SubtaskDraft
	}{
		{"Design", collab.SubtaskDraft{Title: "Design"}},
		{" Design | 2026-01-31 ", collab.SubtaskDraft{Title: "Design", DueDate: "2026-01-31"}},
		{"Design | | 3", collab.SubtaskDraft{Title: "Design", Weight: 3}},
		{"Design | | heavy", collab.SubtaskDraft{Title: "Design"}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, parseMilestone(tt.in))
		})
	}
}
