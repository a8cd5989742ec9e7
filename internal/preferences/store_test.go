// Copyright (C) 2026 TaskNexus
// SPDX-License-Identifier: AGPL-3.0-or-later

package preferences

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tasknexus/tasknexus/internal/storage"
)

func stored(t *testing.T, backend storage.Store) map[string]any {
	t.Helper()
	raw, ok, err := backend.Get(context.Background(), storage.PreferencesKey)
	require.NoError(t, err)
	require.True(t, ok, "preferences should be persisted")
	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(raw), &m))
	return m
}

func TestNew_DefaultsWhenEmpty(t *testing.T) {
	s := New(context.Background(), storage.NewMemoryStore())
	p := s.Get()

	assert.Equal(t, "system", p.Theme)
	assert.Equal(t, "comfortable", p.Density)
	assert.False(t, p.FocusMode)
	assert.True(t, p.ShowEarnings)
	assert.Equal(t, "board", p.DefaultView)
	assert.True(t, p.Notifications.Email)
	assert.False(t, p.Notifications.Sound)
	assert.True(t, p.QuickActions.Payouts)
	assert.Equal(t, 500.0, p.Goals.WeeklyEarnings)
	assert.Equal(t, 10.0, p.Goals.MonthlyTasks)
	assert.Equal(t, 120.0, p.Goals.DailyFocusMinutes)
}

func TestNew_MergesStoredOverDefaults(t *testing.T) {
	ctx := context.Background()
	backend := storage.NewMemoryStore()
	require.NoError(t, backend.Set(ctx, storage.PreferencesKey,
		`{"theme":"dark","goals":{"weeklyEarnings":900},"notifications":{"sound":true}}`))

	p := New(ctx, backend).Get()
	assert.Equal(t, "dark", p.Theme)
	assert.Equal(t, 900.0, p.Goals.WeeklyEarnings)
	assert.Equal(t, 10.0, p.Goals.MonthlyTasks, "defaults fill missing siblings")
	assert.True(t, p.Notifications.Sound)
	assert.True(t, p.Notifications.Email)
}

func TestNew_MalformedDataFallsBackToDefaults(t *testing.T) {
	ctx := context.Background()
	backend := storage.NewMemoryStore()
	require.NoError(t, backend.Set(ctx, storage.PreferencesKey, `{"theme":`))

	s := New(ctx, backend)
	assert.Equal(t, Defaults(), s.Tree())
}

func TestNew_WrongKindLeafRestoresDefault(t *testing.T) {
	ctx := context.Background()
	backend := storage.NewMemoryStore()
	require.NoError(t, backend.Set(ctx, storage.PreferencesKey, `{"focusMode":"yes","goals":7}`))

	p := New(ctx, backend).Get()
	assert.False(t, p.FocusMode)
	assert.Equal(t, 500.0, p.Goals.WeeklyEarnings)
}

func TestSetPreference_NestedLeaf(t *testing.T) {
	ctx := context.Background()
	backend := storage.NewMemoryStore()
	s := New(ctx, backend)
	before := s.Get()

	require.NoError(t, s.SetPreference(ctx, ParsePath("goals.weeklyEarnings"), Number(2000)))

	after := s.Get()
	assert.Equal(t, 2000.0, after.Goals.WeeklyEarnings)
	assert.Equal(t, before.Goals.MonthlyTasks, after.Goals.MonthlyTasks)
	assert.Equal(t, before.Goals.DailyFocusMinutes, after.Goals.DailyFocusMinutes)
	assert.Equal(t, before.Notifications, after.Notifications)

	goals := stored(t, backend)["goals"].(map[string]any)
	assert.Equal(t, 2000.0, goals["weeklyEarnings"])
}

func TestSetPreference_EmptyPathIsNoop(t *testing.T) {
	ctx := context.Background()
	backend := storage.NewMemoryStore()
	s := New(ctx, backend)

	require.NoError(t, s.SetPreference(ctx, ParsePath(""), Bool(true)))
	require.NoError(t, s.SetPreference(ctx, nil, Bool(true)))

	_, ok, err := backend.Get(ctx, storage.PreferencesKey)
	require.NoError(t, err)
	assert.False(t, ok, "nothing is persisted for a no-op")
}

func TestSetPreference_CreatesIntermediates(t *testing.T) {
	ctx := context.Background()
	s := New(ctx, storage.NewMemoryStore())

	require.NoError(t, s.SetPreference(ctx, Path{"labs", "board", "compactCards"}, Bool(true)))

	v, ok := s.Lookup(ParsePath("labs.board.compactCards"))
	require.True(t, ok)
	assert.True(t, v.Bool())
}

func TestSetPreference_Rejections(t *testing.T) {
	ctx := context.Background()
	s := New(ctx, storage.NewMemoryStore())

	tests := []struct {
		name string
		path Path
		val  Value
		want error
	}{
		{"number into bool leaf", FocusMode.Path, Number(1), ErrKindMismatch},
		{"scalar over group", Path{"goals"}, Number(1), ErrKindMismatch},
		{"descend into leaf", Path{"theme", "accent"}, Enum("red"), ErrKindMismatch},
		{"enum outside allowed", Theme.Path, Enum("neon"), ErrInvalidValue},
		{"zero value", Path{"anything"}, Value{}, ErrInvalidValue},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.SetPreference(ctx, tt.path, tt.val)
			assert.ErrorIs(t, err, tt.want)
		})
	}
	assert.Equal(t, Defaults(), s.Tree(), "rejected writes leave the tree untouched")
}

func TestTogglePreference_Twice(t *testing.T) {
	ctx := context.Background()
	s := New(ctx, storage.NewMemoryStore())
	original := s.Bool(FocusMode)

	require.NoError(t, s.TogglePreference(ctx, FocusMode.Path))
	assert.Equal(t, !original, s.Bool(FocusMode))

	require.NoError(t, s.TogglePreference(ctx, FocusMode.Path))
	assert.Equal(t, original, s.Bool(FocusMode))
}

func TestTogglePreference_NonBoolLeaf(t *testing.T) {
	ctx := context.Background()
	s := New(ctx, storage.NewMemoryStore())

	assert.ErrorIs(t, s.TogglePreference(ctx, WeeklyEarnings.Path), ErrKindMismatch)

	require.NoError(t, s.TogglePreference(ctx, Path{"experimental"}))
	v, ok := s.Lookup(Path{"experimental"})
	require.True(t, ok)
	assert.True(t, v.Bool(), "missing leaf reads as false")
}

func TestResetPreferences(t *testing.T) {
	ctx := context.Background()
	backend := storage.NewMemoryStore()
	s := New(ctx, backend)

	require.NoError(t, s.SetEnum(ctx, Theme, "light"))
	require.NoError(t, s.SetNumber(ctx, MonthlyTasks, 3))
	require.NoError(t, s.ResetPreferences(ctx))

	assert.Equal(t, Defaults(), s.Tree())
	assert.Equal(t, Defaults(), stored(t, backend))
}

func TestSetEnum_ValidatesAllowed(t *testing.T) {
	ctx := context.Background()
	s := New(ctx, storage.NewMemoryStore())

	assert.ErrorIs(t, s.SetEnum(ctx, Density, "roomy"), ErrInvalidValue)
	require.NoError(t, s.SetEnum(ctx, Density, "compact"))
	assert.Equal(t, "compact", s.Enum(Density))
}

func TestOnChange(t *testing.T) {
	ctx := context.Background()
	s := New(ctx, storage.NewMemoryStore())

	var seen []Preferences
	unsubscribe := s.OnChange(func(p Preferences) { seen = append(seen, p) })

	require.NoError(t, s.SetBool(ctx, NotifySound, true))
	require.Len(t, seen, 1)
	assert.True(t, seen[0].Notifications.Sound)

	unsubscribe()
	require.NoError(t, s.SetBool(ctx, NotifySound, false))
	assert.Len(t, seen, 1)
}

func TestPersistedAcrossInstances(t *testing.T) {
	ctx := context.Background()
	backend := storage.NewMemoryStore()

	require.NoError(t, New(ctx, backend).SetBool(ctx, ShowEarnings, false))
	assert.False(t, New(ctx, backend).Get().ShowEarnings)
}

// slowStore holds its first Set open until the test has issued the next
// write.
type slowStore struct {
	*storage.MemoryStore
	once    sync.Once
	entered chan struct{}
}

func (s *slowStore) Set(ctx context.Context, key, value string) error {
	first := false
	s.once.Do(func() { first = true })
	if first {
		close(s.entered)
		time.Sleep(200 * time.Millisecond)
	}
	return s.MemoryStore.Set(ctx, key, value)
}

func TestConcurrentWritesPersistInOrder(t *testing.T) {
	ctx := context.Background()
	backend := &slowStore{MemoryStore: storage.NewMemoryStore(), entered: make(chan struct{})}
	s := New(ctx, backend)

	errc := make(chan error, 1)
	go func() { errc <- s.SetNumber(ctx, WeeklyEarnings, 1000) }()
	<-backend.entered
	require.NoError(t, s.SetNumber(ctx, WeeklyEarnings, 2000))
	require.NoError(t, <-errc)

	assert.Equal(t, 2000.0, s.Get().Goals.WeeklyEarnings)
	goals := stored(t, backend)["goals"].(map[string]any)
	assert.Equal(t, 2000.0, goals["weeklyEarnings"])
	assert.Equal(t, 2000.0, New(ctx, backend).Get().Goals.WeeklyEarnings)
}

func TestParsePath(t *testing.T) {
	assert.Equal(t, Path{"goals", "weeklyEarnings"}, ParsePath("goals.weeklyEarnings"))
	assert.Equal(t, Path{"a", "b"}, ParsePath(".a..b."))
	assert.Empty(t, ParsePath(""))
	assert.Equal(t, "notifications.email", NotifyEmail.Path.String())
}

func TestParseValue(t *testing.T) {
	v, err := ParseValue(KindNumber, " 42.5 ")
	require.NoError(t, err)
	assert.Equal(t, 42.5, v.Number())

	_, err = ParseValue(KindBool, "maybe")
	assert.Error(t, err)

	v, err = ParseValue(KindEnum, "dark")
	require.NoError(t, err)
	assert.Equal(t, "dark", v.String())
}
