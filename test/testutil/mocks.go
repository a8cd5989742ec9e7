// Copyright (C) 2026 TaskNexus
// SPDX-License-Identifier: AGPL-3.0-or-later

package testutil

import (
	"sync"

	"github.com/tasknexus/tasknexus/internal/collab"
	"github.com/tasknexus/tasknexus/internal/realtime"
)

// Notification is one captured notifier call.
type Notification struct {
	Level   collab.Level
	Message string
}

// NotifierCapture records notifications for verification.
type NotifierCapture struct {
	mu    sync.Mutex
	notes []Notification
}

func NewNotifierCapture() *NotifierCapture {
	return &NotifierCapture{}
}

// Notify implements collab.Notifier.
func (c *NotifierCapture) Notify(level collab.Level, msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notes = append(c.notes, Notification{Level: level, Message: msg})
}

// All returns a copy of the captured notifications.
func (c *NotifierCapture) All() []Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Notification(nil), c.notes...)
}

// Errors returns only error-level notifications.
func (c *NotifierCapture) Errors() []Notification {
	var out []Notification
	for _, n := range c.All() {
		if n.Level == collab.LevelError {
			out = append(out, n)
		}
	}
	return out
}

// EventCapture records realtime events for verification.
type EventCapture struct {
	mu     sync.Mutex
	events []realtime.Event
}

func NewEventCapture() *EventCapture {
	return &EventCapture{}
}

// Handle is a realtime.Handler.
func (c *EventCapture) Handle(ev realtime.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
}

// Events returns a copy of the captured events.
func (c *EventCapture) Events() []realtime.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]realtime.Event(nil), c.events...)
}

// Find returns the first captured event of kind.
func (c *EventCapture) Find(kind realtime.Kind) (realtime.Event, bool) {
	for _, ev := range c.Events() {
		if ev.Kind == kind {
			return ev, true
		}
	}
	return realtime.Event{}, false
}
