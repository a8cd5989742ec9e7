// Copyright (C) 2026 TaskNexus
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package devserver is a local stand-in for the TaskNexus backend. It
// serves the REST contract the client consumes from memory and pushes
// events over SSE and WebSocket.
package devserver

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tasknexus/tasknexus/internal/logger"
)

var (
	log     *zerolog.Logger
	logOnce sync.Once
)

func getLog() *zerolog.Logger {
	logOnce.Do(func() {
		l := logger.GetServerLogger()
		log = &l
	})
	return log
}

// Message is one push event. An empty UserID addresses every subscriber.
type Message struct {
	Event  string
	Data   json.RawMessage
	UserID string
}

// subscriber is one open SSE stream or WebSocket connection.
type subscriber struct {
	userID string
	send   chan Message
}

const (
	hubBuffer        = 256
	subscriberBuffer = 64
	maxSubscribers   = 1000
)

// Hub fans published messages out to all matching subscribers.
type Hub struct {
	events chan Message

	mu   sync.RWMutex
	subs map[*subscriber]struct{}
}

func NewHub() *Hub {
	return &Hub{
		events: make(chan Message, hubBuffer),
		subs:   make(map[*subscriber]struct{}),
	}
}

// Publish queues an event. data is JSON-encoded; it is dropped when the
// queue is full.
func (h *Hub) Publish(event string, data any, userID string) {
	raw, err := json.Marshal(data)
	if err != nil {
		getLog().Error().Err(err).Str("event", event).Msg("Failed to marshal event")
		return
	}
	select {
	case h.events <- Message{Event: event, Data: raw, UserID: userID}:
	default:
		getLog().Warn().Str("event", event).Msg("Event queue full, dropping event")
	}
}

// Run dispatches queued events until ctx is cancelled. A heartbeat event is
// sent to everyone every heartbeat interval (disabled when <= 0).
func (h *Hub) Run(ctx context.Context, heartbeat time.Duration) {
	var tick <-chan time.Time
	if heartbeat > 0 {
		ticker := time.NewTicker(heartbeat)
		defer ticker.Stop()
		tick = ticker.C
	}
	for {
		select {
		case msg := <-h.events:
			h.dispatch(msg)
		case t := <-tick:
			h.dispatch(Message{Event: "heartbeat", Data: json.RawMessage(`{"ts":"` + t.UTC().Format(time.RFC3339) + `"}`)})
		case <-ctx.Done():
			getLog().Info().Msg("Event hub stopped (context cancelled)")
			return
		}
	}
}

func (h *Hub) dispatch(msg Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for sub := range h.subs {
		if msg.UserID != "" && msg.UserID != sub.userID {
			continue
		}
		select {
		case sub.send <- msg:
		default:
			// subscriber too slow, skip
			getLog().Warn().Str("event", msg.Event).Msg("Dropping event for slow subscriber")
		}
	}
}

func (h *Hub) subscribe(userID string) (*subscriber, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.subs) >= maxSubscribers {
		return nil, false
	}
	sub := &subscriber{userID: userID, send: make(chan Message, subscriberBuffer)}
	h.subs[sub] = struct{}{}
	return sub, true
}

func (h *Hub) unsubscribe(sub *subscriber) {
	h.mu.Lock()
	delete(h.subs, sub)
	h.mu.Unlock()
}

// Subscribers returns the number of open streams.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
