// Copyright (C) 2026 TaskNexus
// SPDX-License-Identifier: AGPL-3.0-or-later

package layout

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Palette colors. Brand blue for selection, slate for chrome.
var (
	BrandColor  = lipgloss.Color("#2563EB")
	LinkColor   = lipgloss.Color("#60A5FA")
	OkColor     = lipgloss.Color("#10B981")
	TextColor   = lipgloss.Color("#F3F4F6")
	DimColor    = lipgloss.Color("#9CA3AF")
	BorderColor = lipgloss.Color("#4B5563")
	ErrorColor  = lipgloss.Color("#EF4444")
)

func fg(c lipgloss.Color) lipgloss.Style { return lipgloss.NewStyle().Foreground(c) }

var (
	TitleStyle          = fg(TextColor).Bold(true)
	BreadcrumbStyle     = fg(DimColor).Italic(true)
	BreadcrumbSeparator = fg(BorderColor).SetString(" › ")
	StatusStyle         = fg(OkColor).Bold(true)
	StatsStyle          = fg(DimColor)
	ContentStyle        = lipgloss.NewStyle().Align(lipgloss.Left, lipgloss.Top)
	HelpTextStyle       = fg(TextColor)
	HelpKeyStyle        = fg(LinkColor).Bold(true)
	SelectedItemStyle   = fg(TextColor).Background(BrandColor)

	FooterStyle = fg(DimColor).
			Border(lipgloss.NormalBorder(), true, false, false, false).
			BorderForeground(BorderColor).
			Padding(0, 1)
)

var noticeStyles = map[NoticeKind]lipgloss.Style{
	NoticeInfo:    StatusStyle,
	NoticeSuccess: fg(OkColor),
	NoticeError:   fg(ErrorColor).Bold(true),
}

func noticeStyle(k NoticeKind) lipgloss.Style {
	if s, ok := noticeStyles[k]; ok {
		return s
	}
	return StatusStyle
}

// GetDivider returns a rule of width box-drawing dashes.
func GetDivider(width int) string {
	if width <= 0 {
		return ""
	}
	return fg(BorderColor).Render(strings.Repeat("─", width))
}
