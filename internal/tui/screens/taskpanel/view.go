// Copyright (C) 2026 TaskNexus
// SPDX-License-Identifier: AGPL-3.0-or-later

package taskpanel

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/tasknexus/tasknexus/internal/collab"
	"github.com/tasknexus/tasknexus/internal/tui/components/activityfeed"
	"github.com/tasknexus/tasknexus/internal/tui/layout"
)

// View renders the task screen
func (m Model) View() string {
	var body string
	switch m.view.Tab {
	case collab.TabMilestones:
		body = m.renderMilestones()
	case collab.TabActivity:
		body = m.renderActivity()
	default:
		body = m.renderComments()
	}

	if m.mode != modeBrowse {
		body = lipgloss.JoinVertical(lipgloss.Left, body, "", m.input.View(), m.renderCandidates())
	}

	content := lipgloss.JoinVertical(lipgloss.Left, m.tabs.View(), "", body)
	return layout.RenderLayout(content, m.GetLayoutInfo(), m.width, m.height)
}

func (m Model) renderComments() string {
	if len(m.view.Comments) == 0 {
		return layout.StatsStyle.Render("No comments yet. Press c to write one.")
	}
	var b strings.Builder
	for _, c := range m.view.Comments {
		b.WriteString(layout.HelpKeyStyle.Render(c.Author.DisplayName))
		b.WriteString(layout.StatsStyle.Render(" · " + c.CreatedAt.Local().Format(time.DateTime)))
		b.WriteString("\n" + c.Body + "\n")
		for _, a := range c.Attachments {
			fmt.Fprintf(&b, "  attachment: %s (%d bytes)\n", a.Name, a.Size)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m Model) renderMilestones() string {
	var b strings.Builder
	b.WriteString(m.progress.ViewAs(m.view.MilestoneProgress / 100))
	fmt.Fprintf(&b, " %.1f%%\n\n", m.view.MilestoneProgress)
	if len(m.view.Subtasks) == 0 {
		b.WriteString(layout.StatsStyle.Render("No milestones. Press n to add one."))
		return b.String()
	}
	for i, st := range m.view.Subtasks {
		check := "[ ]"
		if st.Completed {
			check = "[x]"
		}
		line := fmt.Sprintf("%s %s  w%g", check, st.Title, st.Weight)
		if st.DueDate != "" {
			line += "  due " + st.DueDate
		}
		if i == m.cursor {
			line = layout.SelectedItemStyle.Render("> " + line)
		} else {
			line = "  " + line
		}
		b.WriteString(line + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m Model) renderActivity() string {
	if len(m.view.Activity) == 0 {
		return layout.StatsStyle.Render("No activity.")
	}
	return activityfeed.New().
		SetActivities(m.view.Activity).
		SetMaxItems(m.height - 10).
		View()
}

func (m Model) renderCandidates() string {
	if m.mode != modeComment {
		return ""
	}
	candidates := m.panel.MentionCandidates()
	if len(candidates) == 0 {
		return ""
	}
	names := make([]string, 0, len(candidates))
	for _, p := range candidates {
		names = append(names, "@"+p.DisplayName)
	}
	return layout.StatsStyle.Render("mention: " + strings.Join(names, "  "))
}
