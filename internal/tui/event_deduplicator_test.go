// Copyright (C) 2026 TaskNexus
// SPDX-License-Identifier: AGPL-3.0-or-later

package tui

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/tasknexus/tasknexus/internal/realtime"
)

func event(name, data string) realtime.Event {
	return realtime.Decode(name, data)
}

func TestEventDeduplicator_BasicDeduplication(t *testing.T) {
	ed := NewEventDeduplicator(time.Second)

	t.Run("allows first event", func(t *testing.T) {
		assert.True(t, ed.ShouldProcess(event("task.updated", `{"taskId":"t1"}`)))
	})

	t.Run("blocks identical event", func(t *testing.T) {
		assert.False(t, ed.ShouldProcess(event("task.updated", `{"taskId":"t1"}`)))
	})

	t.Run("allows same name with different data", func(t *testing.T) {
		assert.True(t, ed.ShouldProcess(event("task.updated", `{"taskId":"t2"}`)))
	})

	t.Run("allows same data under another name", func(t *testing.T) {
		assert.True(t, ed.ShouldProcess(event("task.created", `{"taskId":"t1"}`)))
	})
}

func TestEventDeduplicator_ConnectedAlwaysPasses(t *testing.T) {
	ed := NewEventDeduplicator(time.Second)
	ev := event("connected", `{"userId":"u1"}`)

	assert.True(t, ed.ShouldProcess(ev))
	assert.True(t, ed.ShouldProcess(ev))
}

func TestEventDeduplicator_WindowExpiry(t *testing.T) {
	ed := NewEventDeduplicator(time.Second)
	now := time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)
	ed.now = func() time.Time { return now }
	ev := event("board.updated", `{"boardKey":"main"}`)

	assert.True(t, ed.ShouldProcess(ev))
	now = now.Add(500 * time.Millisecond)
	assert.False(t, ed.ShouldProcess(ev))
	now = now.Add(time.Second)
	assert.True(t, ed.ShouldProcess(ev), "outside the window")

	now = now.Add(2 * time.Second)
	ed.prune()
	assert.Zero(t, ed.Len())
}

func TestEventDeduplicator_ConcurrentAccess(t *testing.T) {
	ed := NewEventDeduplicator(time.Minute)
	ev := event("payout.updated", `{"payoutId":"p1"}`)

	var wg sync.WaitGroup
	var mu sync.Mutex
	passed := 0
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ed.ShouldProcess(ev) {
				mu.Lock()
				passed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, passed)
}

func TestNewEventDeduplicator_DefaultWindow(t *testing.T) {
	ed := NewEventDeduplicator(0)
	assert.Equal(t, DefaultDedupWindow, ed.window)
}
