// Copyright (C) 2026 TaskNexus
// SPDX-License-Identifier: AGPL-3.0-or-later

package card

import (
	"github.com/charmbracelet/lipgloss"
)

// Style defines the visual appearance of a card
type Style struct {
	BorderColor lipgloss.Color
	FocusColor  lipgloss.Color
	TitleColor  lipgloss.Color
	Width       int
	Height      int
}

// DefaultStyle returns the style used for board columns.
func DefaultStyle() Style {
	return Style{
		BorderColor: lipgloss.Color("240"),
		FocusColor:  lipgloss.Color("#60A5FA"),
		TitleColor:  lipgloss.Color("86"),
	}
}

// Render creates a bordered card with a title line. A focused card uses
// FocusColor for its border.
func Render(title, content string, focused bool, style Style) string {
	body := content
	if title != "" {
		titleRendered := lipgloss.NewStyle().
			Foreground(style.TitleColor).
			Bold(true).
			Render(title)
		body = lipgloss.JoinVertical(lipgloss.Left, titleRendered, "", content)
	}

	border := style.BorderColor
	if focused {
		border = style.FocusColor
	}
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(border).
		Padding(0, 1)
	if style.Width > 0 {
		// the border takes two columns
		box = box.Width(max(style.Width-2, 1))
	}
	if style.Height > 0 {
		box = box.Height(max(style.Height-2, 1))
	}
	return box.Render(body)
}
