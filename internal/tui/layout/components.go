// Copyright (C) 2026 TaskNexus
// SPDX-License-Identifier: AGPL-3.0-or-later

package layout

import (
	"fmt"
	"strings"
)

// HelpItem represents a single help entry
type HelpItem struct {
	Key         string
	Description string
}

// RenderHeader creates a header with title, breadcrumbs, status and notice.
func RenderHeader(info LayoutInfo, width int) string {
	var header strings.Builder

	titleLine := TitleStyle.Render(info.Title)
	if len(info.Breadcrumbs) > 1 {
		titleLine += "  " + BreadcrumbStyle.Render(strings.Join(info.Breadcrumbs, BreadcrumbSeparator.String()))
	}
	header.WriteString(titleLine)

	if info.Status != "" {
		header.WriteString("\n")
		header.WriteString(StatsStyle.Render(info.Status))
	}
	if info.Notice != "" {
		header.WriteString("\n")
		header.WriteString(noticeStyle(info.NoticeKind).Render(info.Notice))
	}

	header.WriteString("\n")
	header.WriteString(GetDivider(width))
	return header.String()
}

// RenderFooter creates a footer with help items
func RenderFooter(helpItems []HelpItem, width int) string {
	if len(helpItems) == 0 {
		return ""
	}

	helpTexts := make([]string, 0, len(helpItems))
	for _, item := range helpItems {
		helpTexts = append(helpTexts, fmt.Sprintf("[%s] %s",
			HelpKeyStyle.Render(item.Key),
			HelpTextStyle.Render(item.Description)))
	}

	// lipgloss handles wrapping
	return FooterStyle.Width(width).Render(strings.Join(helpTexts, " • "))
}
