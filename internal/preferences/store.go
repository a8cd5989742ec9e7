// Copyright (C) 2026 TaskNexus
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package preferences is the local-first preference store. The whole tree is
// persisted under storage.PreferencesKey on every mutation and merged over
// the defaults when loaded.
package preferences

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/tasknexus/tasknexus/internal/deepmerge"
	"github.com/tasknexus/tasknexus/internal/logger"
	"github.com/tasknexus/tasknexus/internal/storage"

	"github.com/rs/zerolog"
)

var (
	// ErrKindMismatch is returned when a value does not fit the known leaf
	// (or group) at its path.
	ErrKindMismatch = errors.New("preferences: value kind does not match path")
	// ErrInvalidValue is returned for zero Values and enum values outside
	// the allowed set.
	ErrInvalidValue = errors.New("preferences: invalid value")
)

var (
	log     *zerolog.Logger
	logOnce sync.Once
)

func getLog() *zerolog.Logger {
	logOnce.Do(func() {
		l := logger.GetLogger("preferences")
		log = &l
	})
	return log
}

// Store holds the preference tree.
type Store struct {
	backend storage.Store

	// writeMu orders mutations end to end, so storage sees them in the
	// same order as the in-memory tree.
	writeMu sync.Mutex

	mu        sync.Mutex
	tree      map[string]any
	listeners map[int]func(Preferences)
	nextID    int
}

// New loads preferences from backend. Missing or unparseable data yields
// the defaults; it is not an error.
func New(ctx context.Context, backend storage.Store) *Store {
	s := &Store{
		backend:   backend,
		tree:      Defaults(),
		listeners: make(map[int]func(Preferences)),
	}

	raw, ok, err := backend.Get(ctx, storage.PreferencesKey)
	switch {
	case err != nil:
		getLog().Warn().Err(err).Msg("Failed to read stored preferences, using defaults")
	case ok:
		var stored map[string]any
		if err := json.Unmarshal([]byte(raw), &stored); err != nil {
			getLog().Debug().Err(err).Msg("Discarding malformed stored preferences")
			break
		}
		s.tree = normalize(deepmerge.Merge(Defaults(), stored))
	}
	return s
}

// normalize restores the default of every known leaf whose stored value has
// the wrong kind, so the typed view always decodes.
func normalize(tree map[string]any) map[string]any {
	for _, l := range schema {
		raw, _ := getIn(tree, l.Path)
		v, ok := valueOf(raw)
		if !ok || v.Kind() != l.Default.Kind() {
			setIn(tree, l.Path, l.Default.raw())
		}
	}
	return tree
}

// Get returns the current preferences with every default filled in.
func (s *Store) Get() Preferences {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.typed()
}

func (s *Store) typed() Preferences {
	var p Preferences
	if err := deepmerge.FromMap(s.tree, &p); err != nil {
		// normalize guarantees the known leaves decode
		getLog().Error().Err(err).Msg("Preference tree does not decode")
	}
	return p
}

// Tree returns a copy of the raw tree, unknown keys included.
func (s *Store) Tree() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return deepmerge.Clone(s.tree).(map[string]any)
}

// Lookup returns the leaf at path.
func (s *Store) Lookup(path Path) (Value, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, ok := getIn(s.tree, path)
	if !ok {
		return Value{}, false
	}
	return valueOf(raw)
}

// SetPreference writes v at path, creating intermediate groups as needed.
// An empty path is a no-op.
func (s *Store) SetPreference(ctx context.Context, path Path, v Value) error {
	if len(path) == 0 {
		return nil
	}
	if err := checkValue(path, v); err != nil {
		return err
	}
	return s.mutate(ctx, func(tree map[string]any) {
		setIn(tree, path, v.raw())
	})
}

// TogglePreference negates the leaf at path. Missing and non-boolean unknown
// leaves are read loosely (0, "" and missing count as false).
func (s *Store) TogglePreference(ctx context.Context, path Path) error {
	if len(path) == 0 {
		return nil
	}
	if l, ok := lookupLeaf(path); ok && l.Default.Kind() != KindBool {
		return fmt.Errorf("%w: %s is %s", ErrKindMismatch, path, l.Default.Kind())
	}
	if conflictsWithSchema(path) {
		return fmt.Errorf("%w: %s", ErrKindMismatch, path)
	}
	return s.mutate(ctx, func(tree map[string]any) {
		cur, _ := getIn(tree, path)
		setIn(tree, path, !truthy(cur))
	})
}

// ResetPreferences restores the defaults.
func (s *Store) ResetPreferences(ctx context.Context) error {
	return s.mutate(ctx, func(tree map[string]any) {
		clear(tree)
		for k, v := range Defaults() {
			tree[k] = v
		}
	})
}

func (s *Store) Bool(k BoolKey) bool {
	v, _ := s.Lookup(k.Path)
	return v.Bool()
}

func (s *Store) Number(k NumberKey) float64 {
	v, _ := s.Lookup(k.Path)
	return v.Number()
}

func (s *Store) Enum(k EnumKey) string {
	v, _ := s.Lookup(k.Path)
	return v.Enum()
}

func (s *Store) SetBool(ctx context.Context, k BoolKey, b bool) error {
	return s.SetPreference(ctx, k.Path, Bool(b))
}

func (s *Store) SetNumber(ctx context.Context, k NumberKey, n float64) error {
	return s.SetPreference(ctx, k.Path, Number(n))
}

func (s *Store) SetEnum(ctx context.Context, k EnumKey, e string) error {
	if len(k.Allowed) > 0 && !slices.Contains(k.Allowed, e) {
		return fmt.Errorf("%w: %q not one of %v", ErrInvalidValue, e, k.Allowed)
	}
	return s.SetPreference(ctx, k.Path, Enum(e))
}

// OnChange registers fn to run after every mutation. The returned function
// unregisters it.
func (s *Store) OnChange(fn func(Preferences)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// mutate applies fn to the tree, persists the result and notifies
// listeners. The in-memory change stands even if persisting fails.
func (s *Store) mutate(ctx context.Context, fn func(map[string]any)) error {
	s.writeMu.Lock()
	s.mu.Lock()
	fn(s.tree)
	data, err := json.Marshal(s.tree)
	snapshot := s.typed()
	listeners := make([]func(Preferences), 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.mu.Unlock()

	if err != nil {
		s.writeMu.Unlock()
		return fmt.Errorf("encode preferences: %w", err)
	}
	persistErr := s.backend.Set(ctx, storage.PreferencesKey, string(data))
	s.writeMu.Unlock()
	if persistErr != nil {
		getLog().Warn().Err(persistErr).Msg("Failed to persist preferences")
		persistErr = fmt.Errorf("persist preferences: %w", persistErr)
	}

	for _, l := range listeners {
		l(snapshot)
	}
	return persistErr
}

func checkValue(path Path, v Value) error {
	if !v.IsValid() {
		return ErrInvalidValue
	}
	if l, ok := lookupLeaf(path); ok {
		if l.Default.Kind() != v.Kind() {
			return fmt.Errorf("%w: %s is %s, got %s", ErrKindMismatch, path, l.Default.Kind(), v.Kind())
		}
		if len(l.Allowed) > 0 && !slices.Contains(l.Allowed, v.Enum()) {
			return fmt.Errorf("%w: %q not one of %v", ErrInvalidValue, v.Enum(), l.Allowed)
		}
		return nil
	}
	if conflictsWithSchema(path) {
		return fmt.Errorf("%w: %s", ErrKindMismatch, path)
	}
	return nil
}

func getIn(tree map[string]any, path Path) (any, bool) {
	var cur any = tree
	for _, seg := range path {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		if cur, ok = m[seg]; !ok {
			return nil, false
		}
	}
	return cur, true
}

// setIn writes v at path, replacing any non-object intermediate with a new
// group.
func setIn(tree map[string]any, path Path, v any) {
	cur := tree
	for _, seg := range path[:len(path)-1] {
		next, ok := cur[seg].(map[string]any)
		if !ok {
			next = map[string]any{}
			cur[seg] = next
		}
		cur = next
	}
	cur[path[len(path)-1]] = v
}
