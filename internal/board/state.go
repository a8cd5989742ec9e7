// Copyright (C) 2026 TaskNexus
// SPDX-License-Identifier: AGPL-3.0-or-later

package board

import (
	"cmp"
	"fmt"
	"maps"
	"math"
	"slices"
	"time"

	"github.com/samber/lo"
)

// Role selects the default column set.
type Role string

const (
	RoleClient     Role = "client"
	RoleFreelancer Role = "freelancer"
	RoleAdmin      Role = "admin"
)

// ParseRole validates a role name.
func ParseRole(s string) (Role, error) {
	switch r := Role(s); r {
	case RoleClient, RoleFreelancer, RoleAdmin:
		return r, nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

// Column is one board column. A nil Visible means visible.
type Column struct {
	ID      string `json:"id" yaml:"id"`
	Title   string `json:"title" yaml:"title"`
	Visible *bool  `json:"visible,omitempty" yaml:"visible,omitempty"`
}

// IsVisible reports whether the column is shown.
func (c Column) IsVisible() bool {
	return c.Visible == nil || *c.Visible
}

// State is the persisted view configuration of one board.
type State struct {
	BoardKey    string              `json:"boardKey" yaml:"boardKey"`
	View        string              `json:"view" yaml:"view"`
	Filter      string              `json:"filter" yaml:"filter"`
	Sort        string              `json:"sort" yaml:"sort"`
	Columns     map[string]Column   `json:"columns" yaml:"columns"`
	ColumnOrder []string            `json:"columnOrder" yaml:"columnOrder"`
	TaskOrder   map[string][]string `json:"taskOrder" yaml:"taskOrder"`
	UpdatedAt   time.Time           `json:"updatedAt,omitzero" yaml:"updatedAt,omitempty"`
}

type columnSeed struct{ id, title string }

var roleColumns = map[Role][]columnSeed{
	RoleClient: {
		{"planning", "Planning"},
		{"execution", "In execution"},
		{"done", "Done"},
		{"other", "Other"},
	},
	RoleFreelancer: {
		{"available", "Available"},
		{"active", "Active"},
		{"review", "In review"},
		{"completed", "Completed"},
	},
	RoleAdmin: {
		{"triage", "Triage"},
		{"in_progress", "In progress"},
		{"qa", "QA"},
		{"resolved", "Resolved"},
	},
}

// DefaultState returns the initial state for a role. Unknown roles get the
// client columns.
func DefaultState(role Role, boardKey string) State {
	seeds, ok := roleColumns[role]
	if !ok {
		seeds = roleColumns[RoleClient]
	}
	st := State{
		BoardKey:  boardKey,
		View:      "board",
		Filter:    "all",
		Sort:      "manual",
		Columns:   make(map[string]Column, len(seeds)),
		TaskOrder: make(map[string][]string, len(seeds)),
	}
	for _, s := range seeds {
		st.Columns[s.id] = Column{ID: s.id, Title: s.title, Visible: lo.ToPtr(true)}
		st.ColumnOrder = append(st.ColumnOrder, s.id)
		st.TaskOrder[s.id] = []string{}
	}
	return st
}

// Clone deep-copies the state.
func (s State) Clone() State {
	out := s
	out.Columns = make(map[string]Column, len(s.Columns))
	for id, c := range s.Columns {
		if c.Visible != nil {
			c.Visible = lo.ToPtr(*c.Visible)
		}
		out.Columns[id] = c
	}
	out.ColumnOrder = slices.Clone(s.ColumnOrder)
	out.TaskOrder = make(map[string][]string, len(s.TaskOrder))
	for id, ids := range s.TaskOrder {
		out.TaskOrder[id] = slices.Clone(ids)
	}
	return out
}

// OrderedColumns resolves ColumnOrder to existing, visible columns.
func (s State) OrderedColumns() []Column {
	return lo.FilterMap(s.ColumnOrder, func(id string, _ int) (Column, bool) {
		c, ok := s.Columns[id]
		return c, ok && c.IsVisible()
	})
}

// reorderColumns moves ColumnOrder[from] to position to. Invalid or equal
// indices leave the order unchanged.
func (s *State) reorderColumns(from, to int) bool {
	n := len(s.ColumnOrder)
	if from < 0 || to < 0 || from >= n || to >= n || from == to {
		return false
	}
	id := s.ColumnOrder[from]
	order := slices.Delete(slices.Clone(s.ColumnOrder), from, from+1)
	s.ColumnOrder = slices.Insert(order, to, id)
	return true
}

// moveTask strips taskID from every column, then inserts it into toColumn at
// the clamped index.
func (s *State) moveTask(taskID, fromColumn, toColumn string, index int) bool {
	if taskID == "" || toColumn == "" {
		return false
	}
	next := make(map[string][]string, len(s.TaskOrder)+2)
	for col, ids := range s.TaskOrder {
		next[col] = lo.Without(ids, taskID)
	}
	dest := next[toColumn]
	index = max(0, min(index, len(dest)))
	next[toColumn] = slices.Insert(slices.Clone(dest), index, taskID)
	if fromColumn != "" {
		if _, ok := next[fromColumn]; !ok {
			next[fromColumn] = []string{}
		}
	}
	s.TaskOrder = next
	return true
}

func (s *State) setTaskOrder(columnID string, taskIDs []string) bool {
	if columnID == "" {
		return false
	}
	next := maps.Clone(s.TaskOrder)
	if next == nil {
		next = map[string][]string{}
	}
	next[columnID] = slices.Clone(taskIDs)
	if next[columnID] == nil {
		next[columnID] = []string{}
	}
	s.TaskOrder = next
	return true
}

// unranked is the sort key of tasks missing from the stored order.
const unranked = math.MaxInt

// SortTasksByColumnOrder stable-sorts tasks by their position in the stored
// order of columnID. Tasks not in the stored order keep their relative
// order at the end.
func SortTasksByColumnOrder[T any](st State, columnID string, tasks []T, idOf func(T) string) []T {
	rank := make(map[string]int)
	for i, id := range st.TaskOrder[columnID] {
		if _, seen := rank[id]; !seen {
			rank[id] = i
		}
	}
	pos := func(t T) int {
		if r, ok := rank[idOf(t)]; ok {
			return r
		}
		return unranked
	}

	out := slices.Clone(tasks)
	slices.SortStableFunc(out, func(a, b T) int {
		return cmp.Compare(pos(a), pos(b))
	})
	return out
}
