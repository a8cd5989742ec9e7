// Copyright (C) 2026 TaskNexus
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package tabbar renders a single row of labelled tabs with optional count
// badges.
package tabbar

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/samber/lo"
)

type Tab struct {
	ID    string
	Label string
	Badge string
}

// Model holds the tabs and the index of the active one.
type Model struct {
	tabs   []Tab
	active int
	width  int
}

func New(tabs []Tab) Model { return Model{tabs: tabs, width: 80} }

func (m *Model) SetWidth(width int) { m.width = width }

func (m Model) ActiveTab() int { return m.active }

// SetActiveID selects the tab with id. Unknown ids leave the selection alone.
func (m *Model) SetActiveID(id string) {
	if _, i, ok := lo.FindIndexOf(m.tabs, func(t Tab) bool { return t.ID == id }); ok {
		m.active = i
	}
}

// NextTab and PrevTab cycle through the tabs, wrapping at either end.
func (m *Model) NextTab() { m.step(1) }
func (m *Model) PrevTab() { m.step(-1) }

func (m *Model) step(d int) {
	if n := len(m.tabs); n > 0 {
		m.active = ((m.active+d)%n + n) % n
	}
}

func (m *Model) SetBadge(id, badge string) {
	for i := range m.tabs {
		if m.tabs[i].ID == id {
			m.tabs[i].Badge = badge
		}
	}
}

var (
	tabStyle    = lipgloss.NewStyle().Padding(0, 2)
	activeStyle = tabStyle.Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("26"))
	idleStyle = tabStyle.
			Foreground(lipgloss.Color("250")).
			Background(lipgloss.Color("236"))
	badgeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
)

func (m Model) View() string {
	if len(m.tabs) == 0 {
		return ""
	}
	cells := lo.Map(m.tabs, func(t Tab, i int) string {
		label := t.Label
		if t.Badge != "" {
			label += " " + badgeStyle.Render(t.Badge)
		}
		if i == m.active {
			return activeStyle.Render(label)
		}
		return idleStyle.Render(label)
	})
	return lipgloss.NewStyle().Width(m.width).Render(strings.Join(cells, " "))
}
