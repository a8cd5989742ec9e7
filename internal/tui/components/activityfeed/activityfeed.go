// Copyright (C) 2026 TaskNexus
// SPDX-License-Identifier: AGPL-3.0-or-later

package activityfeed

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/tasknexus/tasknexus/internal/api"
)

// EventType classifies an activity entry for its icon and color.
type EventType string

const (
	EventComment   EventType = "comment"
	EventAdded     EventType = "added"
	EventCompleted EventType = "completed"
	EventRemoved   EventType = "removed"
	EventOther     EventType = "other"
)

// Classify guesses the type of an entry from its message.
func Classify(message string) EventType {
	msg := strings.ToLower(message)
	switch {
	case strings.HasSuffix(msg, " commented"):
		return EventComment
	case strings.HasSuffix(msg, " completed"):
		return EventCompleted
	case strings.HasSuffix(msg, " removed"), strings.HasSuffix(msg, " deleted"):
		return EventRemoved
	case strings.HasSuffix(msg, " added"), strings.HasSuffix(msg, " created"):
		return EventAdded
	default:
		return EventOther
	}
}

// Model renders a task's activity feed, newest entries first.
type Model struct {
	activities []api.Activity
	maxItems   int
	now        func() time.Time
}

// New creates a new activity feed model
func New() Model {
	return Model{
		maxItems: 10,
		now:      time.Now,
	}
}

// SetActivities sets the activity list
func (m Model) SetActivities(activities []api.Activity) Model {
	m.activities = activities
	return m
}

// SetMaxItems sets the maximum number of items to display
func (m Model) SetMaxItems(n int) Model {
	if n > 0 {
		m.maxItems = n
	}
	return m
}

// View renders the activity feed
func (m Model) View() string {
	if len(m.activities) == 0 {
		return ""
	}

	dim := lipgloss.NewStyle().Foreground(lipgloss.Color("239"))

	items := m.activities
	if len(items) > m.maxItems {
		items = items[:m.maxItems]
	}

	lines := make([]string, 0, len(items)+1)
	for _, a := range items {
		kind := Classify(a.Message)
		icon := lipgloss.NewStyle().Foreground(colors[kind]).Render(icons[kind])
		age := dim.Render(fmt.Sprintf("%8s", Ago(m.now().Sub(a.CreatedAt))))
		lines = append(lines, fmt.Sprintf("%s %s  %s", age, icon, cleanString(a.Message)))
	}
	if hidden := len(m.activities) - len(items); hidden > 0 {
		lines = append(lines, dim.Render(fmt.Sprintf("… %d older", hidden)))
	}
	return strings.Join(lines, "\n")
}

var icons = map[EventType]string{
	EventComment:   "✎",
	EventAdded:     "▸",
	EventCompleted: "✓",
	EventRemoved:   "✗",
	EventOther:     "•",
}

var colors = map[EventType]lipgloss.Color{
	EventComment:   lipgloss.Color("75"),
	EventAdded:     lipgloss.Color("141"),
	EventCompleted: lipgloss.Color("35"),
	EventRemoved:   lipgloss.Color("196"),
	EventOther:     lipgloss.Color("252"),
}

// Ago formats an age the way the feed shows it.
func Ago(d time.Duration) string {
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}

func cleanString(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.TrimSpace(s)
}
