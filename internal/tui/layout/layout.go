// Copyright (C) 2026 TaskNexus
// SPDX-License-Identifier: AGPL-3.0-or-later

package layout

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const (
	// MinimumWidth is the minimum terminal width required
	MinimumWidth = 40
	// MinimumHeight is the minimum terminal height required (header + footer + some space)
	MinimumHeight = 10
)

// NoticeKind selects the style of the notice line.
type NoticeKind int

const (
	NoticeInfo NoticeKind = iota
	NoticeSuccess
	NoticeError
)

// LayoutInfo contains all the information needed to render a layout
type LayoutInfo struct {
	Title       string
	Breadcrumbs []string
	Status      string
	Notice      string
	NoticeKind  NoticeKind
	HelpItems   []HelpItem
}

// Dimensions represents the available space for content
type Dimensions struct {
	Width  int
	Height int
	Valid  bool
	Error  string
}

// ValidateSpace checks if the terminal has enough space to render properly
func ValidateSpace(width, height int) Dimensions {
	switch {
	case width < MinimumWidth:
		return Dimensions{Width: width, Height: height,
			Error: fmt.Sprintf("Terminal too narrow (%d cols). Minimum: %d cols", width, MinimumWidth)}
	case height < MinimumHeight:
		return Dimensions{Width: width, Height: height,
			Error: fmt.Sprintf("Terminal too short (%d lines). Minimum: %d lines", height, MinimumHeight)}
	}
	return Dimensions{Width: width, Height: height, Valid: true}
}

// RenderLayout combines header, content, and footer into a complete layout.
// Returns an error view if the terminal is too small.
func RenderLayout(content string, info LayoutInfo, width, height int) string {
	dims := ValidateSpace(width, height)
	if !dims.Valid {
		return renderSpaceError(dims.Error, width, height)
	}

	header := RenderHeader(info, width)
	footer := RenderFooter(info.HelpItems, width)

	contentHeight := max(height-lipgloss.Height(header)-lipgloss.Height(footer), 1)

	// MaxHeight enforces the ceiling, Height sets the box size
	styledContent := ContentStyle.
		Width(width).
		MaxHeight(contentHeight).
		Height(contentHeight).
		Render(content)

	return lipgloss.JoinVertical(lipgloss.Left, header, styledContent, footer)
}

// GetContentArea calculates the available width and height for content
func GetContentArea(info LayoutInfo, totalWidth, totalHeight int) Dimensions {
	dims := ValidateSpace(totalWidth, totalHeight)
	if !dims.Valid {
		return dims
	}

	headerHeight := lipgloss.Height(RenderHeader(info, totalWidth))
	footerHeight := 0
	if len(info.HelpItems) > 0 {
		footerHeight = lipgloss.Height(RenderFooter(info.HelpItems, totalWidth))
	}

	return Dimensions{
		Width:  totalWidth,
		Height: max(totalHeight-headerHeight-footerHeight, 1),
		Valid:  true,
	}
}

func renderSpaceError(message string, width, height int) string {
	errorStyle := lipgloss.NewStyle().
		Foreground(ErrorColor).
		Bold(true).
		Align(lipgloss.Center, lipgloss.Center).
		Width(width).
		Height(height)

	lines := []string{
		"Terminal Too Small",
		"",
		message,
		"",
		fmt.Sprintf("Current: %dx%d", width, height),
		fmt.Sprintf("Minimum: %dx%d", MinimumWidth, MinimumHeight),
	}
	return errorStyle.Render(strings.Join(lines, "\n"))
}
