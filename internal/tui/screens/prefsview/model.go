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

// OpSave is the OpDoneMsg op of every preference write.
const OpSave = "preferences"

// Store is the part of *preferences.Store the screen needs.
type Store interface {
	Lookup(path preferences.Path) (preferences.Value, bool)
	TogglePreference(ctx context.Context, path preferences.Path) error
	SetPreference(ctx context.Context, path preferences.Path, v preferences.Value) error
	SetEnum(ctx context.Context, k preferences.EnumKey, e string) error
	ResetPreferences(ctx context.Context) error
}

// Model is the model for the preferences screen.
type Model struct {
	store  Store
	leaves []preferences.Leaf
	cursor int

	notice     string
	noticeKind layout.NoticeKind

	width  int
	height int
}

func NewModel(store Store) Model {
	return Model{
		store:  store,
		leaves: preferences.Schema(),
		width:  80,
		height: 24,
	}
}

func (m Model) Init() tea.Cmd {
	return nil
}

// SetSize updates the model's dimensions
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

// GetLayoutInfo returns layout information for the preferences screen
func (m Model) GetLayoutInfo() layout.LayoutInfo {
	return layout.LayoutInfo{
		Title:       "Preferences",
		Breadcrumbs: []string{"Board", "Preferences"},
		Notice:      m.notice,
		NoticeKind:  m.noticeKind,
		HelpItems: []layout.HelpItem{
			{Key: "↑/k", Description: "up"},
			{Key: "↓/j", Description: "down"},
			{Key: "enter", Description: "toggle/cycle"},
			{Key: "+/-", Description: "adjust"},
			{Key: "R", Description: "reset all"},
			{Key: "esc", Description: "back"},
			{Key: "q", Description: "quit"},
		},
	}
}

// Selected returns the leaf under the cursor.
func (m Model) Selected() preferences.Leaf {
	return m.leaves[m.cursor]
}

func (m Model) write(fn func(context.Context) error) tea.Cmd {
	return func() tea.Msg {
		return messages.OpDoneMsg{Op: OpSave, Err: fn(context.Background())}
	}
}

// nextEnum returns the allowed value after current, wrapping around.
func nextEnum(allowed []string, current string) string {
	for i, a := range allowed {
		if a == current {
			return allowed[(i+1)%len(allowed)]
		}
	}
	return allowed[0]
}

// numberStep is a tenth of the default, at least 1.
func numberStep(leaf preferences.Leaf) float64 {
	return math.Max(1, math.Round(leaf.Default.Number()/10))
}
