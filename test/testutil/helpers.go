// Copyright (C) 2026 TaskNexus
// SPDX-License-Identifier: AGPL-3.0-or-later

package testutil

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
)

// SendMessage feeds msg to model once.
func SendMessage(model tea.Model, msg tea.Msg) (tea.Model, tea.Cmd) { return model.Update(msg) }

// ExecuteCommand runs cmd synchronously; a nil cmd yields a nil message.
func ExecuteCommand(cmd tea.Cmd) tea.Msg {
	if cmd != nil {
		return cmd()
	}
	return nil
}

func AssertViewContains(t *testing.T, model tea.Model, expected string) {
	t.Helper()
	assert.Contains(t, model.View(), expected)
}

// KeyPress types s as runes, so KeyPress("j").String() == "j".
func KeyPress(s string) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)} }

func SpecialKey(k tea.KeyType) tea.KeyMsg { return tea.KeyMsg{Type: k} }

func WindowSizeMsg(w, h int) tea.WindowSizeMsg { return tea.WindowSizeMsg{Width: w, Height: h} }
