// Copyright (C) 2026 TaskNexus
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package board keeps one board's view state consistent between memory and
// the server. Local edits apply immediately and are pushed after a quiet
// period; state loaded from the server replaces local state.
package board

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/tasknexus/tasknexus/internal/api"
	"github.com/tasknexus/tasknexus/internal/deepmerge"
	"github.com/tasknexus/tasknexus/internal/logger"

	"github.com/rs/zerolog"
)

var (
	log     *zerolog.Logger
	logOnce sync.Once
)

func getLog() *zerolog.Logger {
	logOnce.Do(func() {
		l := logger.GetBoardLogger()
		log = &l
	})
	return log
}

// DefaultDebounce is the quiet period before a local change is pushed.
const DefaultDebounce = 700 * time.Millisecond

// Remote is the server side of board state. *api.Client implements it.
type Remote interface {
	GetBoardState(ctx context.Context, boardKey string) (json.RawMessage, error)
	SaveBoardState(ctx context.Context, boardKey string, state any) error
	ResetBoardState(ctx context.Context, boardKey string) (json.RawMessage, error)
}

// Status is the observable sync state. Err does not block edits.
type Status struct {
	Loading bool
	Saving  bool
	Err     string
}

// Option customizes a Synchronizer.
type Option func(*Synchronizer)

// WithDebounce overrides DefaultDebounce.
func WithDebounce(d time.Duration) Option {
	return func(s *Synchronizer) {
		if d > 0 {
			s.debounce = d
		}
	}
}

// WithClock overrides time.Now for UpdatedAt stamps.
func WithClock(now func() time.Time) Option {
	return func(s *Synchronizer) { s.now = now }
}

// Synchronizer owns the state of one (role, boardKey) board.
//
// Local changes bump localVersion; savedVersion records the version last
// pushed or received from the server. A save is due while they differ, so
// applying server state (which sets savedVersion = localVersion) can never
// trigger an echo write, no matter how many loads land in a row.
type Synchronizer struct {
	remote   Remote
	role     Role
	boardKey string
	debounce time.Duration
	now      func() time.Time

	ctx    context.Context
	cancel context.CancelFunc

	mu           sync.Mutex
	state        State
	status       Status
	localVersion uint64
	savedVersion uint64
	timer        *time.Timer
	running      bool
	idle         *sync.Cond
	closed       bool
	listeners    map[int]func(State, Status)
	nextID       int
}

// New creates a synchronizer seeded with the role defaults. It starts in
// the loading state until the first Fetch completes.
func New(remote Remote, role Role, boardKey string, opts ...Option) *Synchronizer {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Synchronizer{
		remote:    remote,
		role:      role,
		boardKey:  boardKey,
		debounce:  DefaultDebounce,
		now:       time.Now,
		ctx:       ctx,
		cancel:    cancel,
		state:     DefaultState(role, boardKey),
		status:    Status{Loading: true},
		listeners: make(map[int]func(State, Status)),
	}
	s.idle = sync.NewCond(&s.mu)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Synchronizer) BoardKey() string { return s.boardKey }
func (s *Synchronizer) Role() Role { return s.role }

// State returns a copy of the current state.
func (s *Synchronizer) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

func (s *Synchronizer) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Dirty reports whether local changes have not been handed to the server yet.
func (s *Synchronizer) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.localVersion != s.savedVersion
}

// OrderedColumns returns the visible columns in display order.
func (s *Synchronizer) OrderedColumns() []Column {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.OrderedColumns()
}

// SortTaskIDs orders ids by the stored order of columnID.
func (s *Synchronizer) SortTaskIDs(columnID string, ids []string) []string {
	st := s.State()
	return SortTasksByColumnOrder(st, columnID, ids, func(id string) string { return id })
}

// OnChange registers fn to run after every state or status change. The
// returned function unregisters it.
func (s *Synchronizer) OnChange(fn func(State, Status)) func() {
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

// Fetch loads the server state and merges it over the role defaults. On
// failure the current state is kept and the error is recorded in Status.
func (s *Synchronizer) Fetch(ctx context.Context) error {
	raw, err := s.remote.GetBoardState(ctx, s.boardKey)
	if err != nil {
		s.fail("load", err, true)
		return fmt.Errorf("fetch board %s: %w", s.boardKey, err)
	}
	return s.ApplyRemote(raw)
}

// Reset asks the server to recompute this board and applies the result.
// Pending local changes are discarded.
func (s *Synchronizer) Reset(ctx context.Context) error {
	raw, err := s.remote.ResetBoardState(ctx, s.boardKey)
	if err != nil {
		s.fail("reset", err, false)
		return fmt.Errorf("reset board %s: %w", s.boardKey, err)
	}
	return s.ApplyRemote(raw)
}

// ApplyRemote replaces the local state with raw merged over the role
// defaults without scheduling a save. It is also used for board.updated
// push events.
func (s *Synchronizer) ApplyRemote(raw json.RawMessage) error {
	next, err := mergeRemote(s.role, s.boardKey, raw)
	if err != nil {
		s.fail("decode", err, true)
		return fmt.Errorf("decode board %s: %w", s.boardKey, err)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.state = next
	s.savedVersion = s.localVersion
	if s.timer != nil {
		s.timer.Stop()
	}
	s.status.Loading = false
	s.status.Err = ""
	s.mu.Unlock()

	getLog().Debug().Str("board_key", s.boardKey).Msg("Applied server board state")
	s.notify()
	return nil
}

// Update deep-merges patch into the state and schedules a save.
func (s *Synchronizer) Update(patch map[string]any) error {
	s.mu.Lock()
	cur, err := deepmerge.ToMap(s.state)
	if err == nil {
		var next State
		if err = deepmerge.FromMap(deepmerge.Merge(cur, normalizeColumns(patch)), &next); err == nil {
			s.state = next
		}
	}
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("apply board patch: %w", err)
	}
	s.markDirty()
	return nil
}

// ReorderColumns moves the column at from to index to.
func (s *Synchronizer) ReorderColumns(from, to int) {
	s.mutate(func(st *State) bool { return st.reorderColumns(from, to) })
}

// MoveTask places taskID into toColumn at index, removing it from every
// other column.
func (s *Synchronizer) MoveTask(taskID, fromColumn, toColumn string, index int) {
	s.mutate(func(st *State) bool { return st.moveTask(taskID, fromColumn, toColumn, index) })
}

// SetTaskOrderForColumn replaces one column's task order.
func (s *Synchronizer) SetTaskOrderForColumn(columnID string, taskIDs []string) {
	s.mutate(func(st *State) bool { return st.setTaskOrder(columnID, taskIDs) })
}

// SetColumnVisible shows or hides a column.
func (s *Synchronizer) SetColumnVisible(columnID string, visible bool) {
	s.mutate(func(st *State) bool {
		c, ok := st.Columns[columnID]
		if !ok {
			return false
		}
		c.Visible = &visible
		st.Columns[columnID] = c
		return true
	})
}

func (s *Synchronizer) mutate(fn func(*State) bool) {
	s.mu.Lock()
	changed := fn(&s.state)
	s.mu.Unlock()
	if changed {
		s.markDirty()
	}
}

// markDirty stamps the state and (re)starts the quiet-period timer.
func (s *Synchronizer) markDirty() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.state.UpdatedAt = s.now().UTC()
	s.localVersion++
	if s.timer == nil {
		s.timer = time.AfterFunc(s.debounce, s.onTimer)
	} else {
		s.timer.Reset(s.debounce)
	}
	s.mu.Unlock()
	s.notify()
}

func (s *Synchronizer) onTimer() {
	s.mu.Lock()
	if s.closed || s.localVersion == s.savedVersion {
		s.mu.Unlock()
		return
	}
	if s.running {
		s.timer.Reset(s.debounce)
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()
	_ = s.save(s.ctx)
}

// save pushes the current state, waiting out any push already in flight so
// at most one request is outstanding and the last one carries the newest
// state. The version is marked saved before the request goes out, so a
// failed push is not retried.
func (s *Synchronizer) save(ctx context.Context) error {
	s.mu.Lock()
	for s.running {
		s.idle.Wait()
	}
	if s.localVersion == s.savedVersion {
		s.mu.Unlock()
		return nil
	}
	snapshot := s.state.Clone()
	s.savedVersion = s.localVersion
	s.running = true
	s.status.Saving = true
	s.mu.Unlock()
	s.notify()

	err := s.remote.SaveBoardState(ctx, s.boardKey, snapshot)

	s.mu.Lock()
	s.running = false
	s.idle.Broadcast()
	s.status.Saving = false
	if err != nil {
		s.status.Err = "Failed to save board: " + api.Message(err)
	} else {
		s.status.Err = ""
	}
	if !s.closed && s.localVersion != s.savedVersion && s.timer != nil {
		s.timer.Reset(s.debounce)
	}
	s.mu.Unlock()
	s.notify()

	if err != nil {
		getLog().Warn().Err(err).Str("board_key", s.boardKey).Msg("Board save failed")
		return fmt.Errorf("save board %s: %w", s.boardKey, err)
	}
	getLog().Debug().Str("board_key", s.boardKey).Msg("Board saved")
	return nil
}

// Flush pushes pending changes now instead of waiting for the timer. A push
// already in flight is allowed to finish first.
func (s *Synchronizer) Flush(ctx context.Context) error {
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
	}
	s.mu.Unlock()
	return s.save(ctx)
}

// Close stops the timer and drops unsaved changes. Call Flush first to keep
// them.
func (s *Synchronizer) Close() {
	s.mu.Lock()
	s.closed = true
	if s.timer != nil {
		s.timer.Stop()
	}
	s.listeners = map[int]func(State, Status){}
	s.mu.Unlock()
	s.cancel()
}

func (s *Synchronizer) fail(op string, err error, endLoading bool) {
	s.mu.Lock()
	if endLoading {
		s.status.Loading = false
	}
	s.status.Err = fmt.Sprintf("Failed to %s board: %s", op, api.Message(err))
	s.mu.Unlock()
	getLog().Warn().Err(err).Str("board_key", s.boardKey).Str("op", op).Msg("Board sync error")
	s.notify()
}

func (s *Synchronizer) notify() {
	s.mu.Lock()
	st := s.state.Clone()
	status := s.status
	listeners := make([]func(State, Status), 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.mu.Unlock()
	for _, l := range listeners {
		l(st, status)
	}
}

// mergeRemote merges a server board state over the role defaults. Arrays
// such as columnOrder replace the default outright; columns merge by id.
func mergeRemote(role Role, boardKey string, raw json.RawMessage) (State, error) {
	incoming := map[string]any{}
	if len(raw) > 0 && string(raw) != "null" {
		if err := json.Unmarshal(raw, &incoming); err != nil {
			return State{}, err
		}
		if incoming == nil {
			incoming = map[string]any{}
		}
	}

	base, err := deepmerge.ToMap(DefaultState(role, boardKey))
	if err != nil {
		return State{}, err
	}
	var st State
	if err := deepmerge.FromMap(deepmerge.Merge(base, normalizeColumns(incoming)), &st); err != nil {
		return State{}, err
	}
	if st.BoardKey == "" {
		st.BoardKey = boardKey
	}
	if st.Columns == nil {
		st.Columns = map[string]Column{}
	}
	if st.TaskOrder == nil {
		st.TaskOrder = map[string][]string{}
	}
	return st, nil
}

// normalizeColumns accepts columns sent as an array of {id, ...} objects and
// rewrites them into the keyed form used for merging.
func normalizeColumns(m map[string]any) map[string]any {
	list, ok := m["columns"].([]any)
	if !ok {
		return m
	}
	keyed := make(map[string]any, len(list))
	for _, item := range list {
		col, ok := item.(map[string]any)
		if !ok {
			continue
		}
		if id, ok := col["id"].(string); ok && id != "" {
			keyed[id] = col
		}
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	out["columns"] = keyed
	return out
}
