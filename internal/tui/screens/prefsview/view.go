// Copyright (C) 2026 TaskNexus
// SPDX-License-Identifier: AGPL-3.0-or-later

package prefsview

import (
	"fmt"
	"strings"

	"github.com/tasknexus/tasknexus/internal/preferences"
	"github.com/tasknexus/tasknexus/internal/tui/layout"
)

// View renders the preferences screen
func (m Model) View() string {
	var content strings.Builder

	section := ""
	for i, leaf := range m.leaves {
		if group := groupOf(leaf.Path); group != section {
			section = group
			if i > 0 {
				content.WriteString("\n")
			}
			content.WriteString(layout.StatusStyle.Render(section) + "\n")
		}

		v, _ := m.store.Lookup(leaf.Path)
		line := fmt.Sprintf("%-28s %s", leaf.Path.String(), formatValue(v))
		if i == m.cursor {
			content.WriteString(layout.SelectedItemStyle.Render("> "+line) + "\n")
		} else {
			content.WriteString("  " + line + "\n")
		}
	}

	return layout.RenderLayout(content.String(), m.GetLayoutInfo(), m.width, m.height)
}

func groupOf(p preferences.Path) string {
	if len(p) > 1 {
		return p[0]
	}
	return "general"
}

func formatValue(v preferences.Value) string {
	if v.Kind() == preferences.KindBool {
		if v.Bool() {
			return "on"
		}
		return "off"
	}
	return v.String()
}
