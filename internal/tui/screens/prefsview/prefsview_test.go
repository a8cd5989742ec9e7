// Copyright (C) 2026 TaskNexus
// SPDX-License-Identifier: AGPL-3.0-or-later

package prefsview

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tasknexus/tasknexus/internal/preferences"
	"github.com/tasknexus/tasknexus/internal/storage"
	"github.com/tasknexus/tasknexus/internal/tui/messages"
	"github.com/tasknexus/tasknexus/test/testutil"
)

func newModel(t *testing.T) (Model, *preferences.Store) {
	t.Helper()
	store := preferences.New(context.Background(), storage.NewMemoryStore())
	m := NewModel(store)
	m.SetSize(100, 40)
	return m, store
}

// apply sends key and runs the resulting write, returning the next model.
func apply(t *testing.T, m Model, key tea.KeyMsg) Model {
	t.Helper()
	updated, cmd := testutil.SendMessage(m, key)
	m = updated.(Model)
	if cmd != nil {
		msg := testutil.ExecuteCommand(cmd)
		updated, _ = testutil.SendMessage(m, msg)
		m = updated.(Model)
	}
	return m
}

func moveTo(t *testing.T, m Model, path preferences.Path) Model {
	t.Helper()
	for m.Selected().Path.String() != path.String() {
		require.Less(t, m.cursor, len(m.leaves)-1, "path %s not in schema", path)
		m = apply(t, m, testutil.KeyPress("j"))
	}
	return m
}

func TestView_ListsDefaults(t *testing.T) {
	m, _ := newModel(t)

	testutil.AssertViewContains(t, m, "Preferences")
	testutil.AssertViewContains(t, m, "theme")
	testutil.AssertViewContains(t, m, "system")
	testutil.AssertViewContains(t, m, "notifications.email")
	testutil.AssertViewContains(t, m, "goals.weeklyEarnings")
	testutil.AssertViewContains(t, m, "500")
}

func TestEnter_CyclesEnum(t *testing.T) {
	m, store := newModel(t)

	m = apply(t, m, testutil.SpecialKey(tea.KeyEnter))
	assert.Equal(t, "light", store.Enum(preferences.Theme))

	m = apply(t, m, testutil.SpecialKey(tea.KeyEnter))
	m = apply(t, m, testutil.SpecialKey(tea.KeyEnter))
	assert.Equal(t, "system", store.Enum(preferences.Theme), "wraps around")
	_ = m
}

func TestEnter_TogglesBool(t *testing.T) {
	m, store := newModel(t)
	m = moveTo(t, m, preferences.FocusMode.Path)

	m = apply(t, m, testutil.SpecialKey(tea.KeyEnter))
	assert.True(t, store.Bool(preferences.FocusMode))
	testutil.AssertViewContains(t, m, "on")
}

func TestPlusMinus_AdjustNumbers(t *testing.T) {
	m, store := newModel(t)
	m = moveTo(t, m, preferences.WeeklyEarnings.Path)

	m = apply(t, m, testutil.KeyPress("+"))
	assert.Equal(t, 550.0, store.Number(preferences.WeeklyEarnings))

	m = apply(t, m, testutil.KeyPress("-"))
	m = apply(t, m, testutil.KeyPress("-"))
	assert.Equal(t, 450.0, store.Number(preferences.WeeklyEarnings))
}

func TestPlusMinus_IgnoredOnBool(t *testing.T) {
	m, store := newModel(t)
	m = moveTo(t, m, preferences.NotifyEmail.Path)

	_, cmd := testutil.SendMessage(m, testutil.KeyPress("+"))
	assert.Nil(t, cmd)
	assert.True(t, store.Bool(preferences.NotifyEmail))
}

func TestReset_RestoresDefaults(t *testing.T) {
	m, store := newModel(t)
	require.NoError(t, store.SetBool(context.Background(), preferences.NotifySound, true))

	_ = apply(t, m, testutil.KeyPress("R"))
	assert.False(t, store.Bool(preferences.NotifySound))
}

func TestKeys_Navigation(t *testing.T) {
	m, _ := newModel(t)

	m = apply(t, m, testutil.KeyPress("k"))
	assert.Equal(t, 0, m.cursor)

	_, cmd := testutil.SendMessage(m, testutil.SpecialKey(tea.KeyEsc))
	assert.IsType(t, messages.GoBackMsg{}, testutil.ExecuteCommand(cmd))

	_, cmd = testutil.SendMessage(m, testutil.KeyPress("q"))
	assert.IsType(t, tea.QuitMsg{}, testutil.ExecuteCommand(cmd))
}

func TestSaveError_ShowsNotice(t *testing.T) {
	m, _ := newModel(t)

	updated, _ := testutil.SendMessage(m, messages.OpDoneMsg{Op: OpSave, Err: errors.New("disk full")})
	testutil.AssertViewContains(t, updated, "Could not save preference: disk full")
}
