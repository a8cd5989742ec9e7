// Copyright (C) 2026 TaskNexus
// SPDX-License-Identifier: AGPL-3.0-or-later

package boardview

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/tasknexus/tasknexus/internal/tui/components/card"
	"github.com/tasknexus/tasknexus/internal/tui/layout"
)

// View renders the board screen
func (m Model) View() string {
	info := m.GetLayoutInfo()
	dims := layout.GetContentArea(info, m.width, m.height)
	return layout.RenderLayout(m.renderColumns(dims), info, m.width, m.height)
}

func (m Model) renderColumns(dims layout.Dimensions) string {
	cols := m.columns()
	if len(cols) == 0 {
		return layout.StatsStyle.Render("No visible columns. Press R to reset the board.")
	}

	style := card.DefaultStyle()
	style.Width = max(dims.Width/len(cols), 12)
	style.Height = max(dims.Height, 3)

	views := make([]string, 0, len(cols))
	for i, col := range cols {
		tasks := m.state.TaskOrder[col.ID]
		var body strings.Builder
		if len(tasks) == 0 {
			body.WriteString(layout.StatsStyle.Render("(empty)"))
		}
		for j, id := range tasks {
			line := "  " + id
			if i == m.col && j == m.row {
				line = layout.SelectedItemStyle.Render("> " + id)
			}
			body.WriteString(line + "\n")
		}
		title := fmt.Sprintf("%s (%d)", col.Title, len(tasks))
		views = append(views, card.Render(title, strings.TrimRight(body.String(), "\n"), i == m.col, style))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, views...)
}

func (m Model) statusLine() string {
	parts := []string{fmt.Sprintf("role %s", m.board.Role()), "view " + m.state.View}
	switch {
	case m.status.Loading:
		parts = append(parts, "loading...")
	case m.status.Saving:
		parts = append(parts, "saving...")
	case m.status.Err != "":
		parts = append(parts, m.status.Err)
	}
	parts = append(parts, "realtime "+m.rtStatus.String())
	if m.lastEvent != "" {
		parts = append(parts, "last "+m.lastEvent+" "+m.lastAt.Format(time.TimeOnly))
	}
	return strings.Join(parts, " · ")
}
