// Copyright (C) 2026 TaskNexus
// SPDX-License-Identifier: AGPL-3.0-or-later

package tui

import (
	"context"
	"sync"
	"time"

	"github.com/tasknexus/tasknexus/internal/realtime"
)

// DefaultDedupWindow is how long an identical event is suppressed.
const DefaultDedupWindow = 2 * time.Second

// EventDeduplicator drops realtime events identical (same name and data) to
// one seen within the window. Servers replay the last event after a
// reconnect, and a board save echoes back once per open stream.
type EventDeduplicator struct {
	mu     sync.Mutex
	seen   map[string]time.Time
	window time.Duration
	now    func() time.Time
}

func NewEventDeduplicator(window time.Duration) *EventDeduplicator {
	if window <= 0 {
		window = DefaultDedupWindow
	}
	return &EventDeduplicator{
		seen:   make(map[string]time.Time),
		window: window,
		now:    time.Now,
	}
}

// ShouldProcess returns true if the event should be processed (not a duplicate)
func (ed *EventDeduplicator) ShouldProcess(ev realtime.Event) bool {
	if ev.Kind == realtime.KindConnected || len(ev.Raw) == 0 {
		return true
	}
	key := ev.Type + "\x00" + ev.Raw

	ed.mu.Lock()
	defer ed.mu.Unlock()
	now := ed.now()
	if at, ok := ed.seen[key]; ok && now.Sub(at) < ed.window {
		return false
	}
	ed.seen[key] = now
	return true
}

// Run removes expired records until ctx is cancelled.
func (ed *EventDeduplicator) Run(ctx context.Context) {
	ticker := time.NewTicker(ed.window * 10)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			ed.prune()
		}
	}
}

func (ed *EventDeduplicator) prune() {
	ed.mu.Lock()
	defer ed.mu.Unlock()
	now := ed.now()
	for key, at := range ed.seen {
		if now.Sub(at) >= ed.window {
			delete(ed.seen, key)
		}
	}
}

// Len returns the number of tracked events.
func (ed *EventDeduplicator) Len() int {
	ed.mu.Lock()
	defer ed.mu.Unlock()
	return len(ed.seen)
}
