// Copyright (C) 2026 TaskNexus
// SPDX-License-Identifier: AGPL-3.0-or-later

package deepmerge

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func defaults() map[string]any {
	return map[string]any{
		"focusMode": false,
		"theme":     "system",
		"goals": map[string]any{
			"weeklyEarnings": 500.0,
			"monthlyTasks":   10.0,
		},
		"columnOrder": []any{"planning", "execution", "done", "other"},
	}
}

func TestMerge_EmptyIncomingIsIdentity(t *testing.T) {
	assert.Equal(t, defaults(), Merge(defaults(), map[string]any{}))
	assert.Equal(t, defaults(), Merge(defaults(), nil))
}

func TestMerge_PartialKeepsEveryDefaultKey(t *testing.T) {
	got := Merge(defaults(), map[string]any{
		"focusMode": true,
		"goals":     map[string]any{"weeklyEarnings": 2000.0},
	})

	assert.Equal(t, true, got["focusMode"])
	assert.Equal(t, "system", got["theme"])
	goals := got["goals"].(map[string]any)
	assert.Equal(t, 2000.0, goals["weeklyEarnings"])
	assert.Equal(t, 10.0, goals["monthlyTasks"], "sibling default survives nested override")
}

func TestMerge_ArraysReplace(t *testing.T) {
	got := Merge(defaults(), map[string]any{"columnOrder": []any{"done", "planning"}})
	assert.Equal(t, []any{"done", "planning"}, got["columnOrder"])
}

func TestMerge_ScalarOverObjectWins(t *testing.T) {
	got := Merge(defaults(), map[string]any{"goals": true})
	assert.Equal(t, true, got["goals"])

	got = Merge(map[string]any{"theme": "dark"}, map[string]any{"theme": map[string]any{"name": "x"}})
	assert.Equal(t, map[string]any{"name": "x"}, got["theme"])
}

func TestMerge_DoesNotMutateInputs(t *testing.T) {
	base := defaults()
	incoming := map[string]any{"goals": map[string]any{"monthlyTasks": 3.0}}
	out := Merge(base, incoming)

	out["goals"].(map[string]any)["weeklyEarnings"] = 1.0
	assert.Equal(t, 500.0, base["goals"].(map[string]any)["weeklyEarnings"])
	assert.Equal(t, map[string]any{"monthlyTasks": 3.0}, incoming["goals"])
}

func TestMerge_Idempotent(t *testing.T) {
	partial := map[string]any{"theme": "dark", "goals": map[string]any{"monthlyTasks": 4.0}}
	once := Merge(defaults(), partial)
	assert.Equal(t, once, Merge(once, partial))
}

func TestMergeInto(t *testing.T) {
	type goals struct {
		Weekly  float64 `json:"weekly"`
		Monthly float64 `json:"monthly"`
	}
	type prefs struct {
		Focus bool     `json:"focus"`
		Goals goals    `json:"goals"`
		Order []string `json:"order"`
	}

	var out prefs
	err := MergeInto(
		prefs{Goals: goals{Weekly: 1, Monthly: 2}, Order: []string{"a", "b"}},
		map[string]any{"focus": true, "goals": map[string]any{"weekly": 9}, "order": []string{"b"}},
		&out,
	)
	assert.NoError(t, err)
	assert.Equal(t, prefs{Focus: true, Goals: goals{Weekly: 9, Monthly: 2}, Order: []string{"b"}}, out)
}
