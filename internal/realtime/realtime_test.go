// Copyright (C) 2026 TaskNexus
// SPDX-License-Identifier: AGPL-3.0-or-later

package realtime

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticToken string

func (t staticToken) AccessToken(context.Context) string { return string(t) }

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) handle(ev Event) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

func (r *recorder) snapshot() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// sseServer writes frames then holds the stream open until the client leaves.
func sseServer(t *testing.T, frames string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("token") != "tok" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		_, _ = fmt.Fprint(w, frames)
		w.(http.Flusher).Flush()
		<-r.Context().Done()
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestDecode(t *testing.T) {
	ev := Decode("task.updated", `{"taskId":"t1","status":"done"}`)
	assert.Equal(t, KindTaskUpdated, ev.Kind)
	assert.Equal(t, "task.updated", ev.Type)
	assert.Equal(t, TaskPayload{TaskID: "t1", Status: "done"}, ev.Payload)

	ev = Decode("board.updated", `{not json`)
	assert.Equal(t, KindBoardUpdated, ev.Kind)
	assert.Nil(t, ev.Payload)

	ev = Decode("", `{"hello":"world"}`)
	assert.Equal(t, KindMessage, ev.Kind)
	assert.Equal(t, GenericPayload{"hello": "world"}, ev.Payload)

	ev = Decode("custom.thing", `null`)
	assert.Equal(t, KindMessage, ev.Kind)
	assert.Equal(t, "custom.thing", ev.Type)
	assert.Nil(t, ev.Payload)
}

func TestReadSSE(t *testing.T) {
	input := ": keep-alive\n\n" +
		"event: task.created\ndata: {\"taskId\":\"t1\"}\n\n" +
		"data: line1\ndata: line2\n\n" +
		"event: heartbeat\nid: 7\ndata:{}\n\n"

	type frame struct{ name, data string }
	var got []frame
	err := readSSE(strings.NewReader(input), func(name, data string) {
		got = append(got, frame{name, data})
	})
	require.NoError(t, err)
	assert.Equal(t, []frame{
		{"task.created", `{"taskId":"t1"}`},
		{"", "line1\nline2"},
		{"heartbeat", "{}"},
	}, got)
}

func TestPolicy_Backoff(t *testing.T) {
	p := Policy{InitialBackoff: 100 * time.Millisecond, MaxBackoff: time.Second}
	assert.Equal(t, 100*time.Millisecond, p.Backoff(1, nil))
	assert.Equal(t, 200*time.Millisecond, p.Backoff(2, nil))
	assert.Equal(t, 800*time.Millisecond, p.Backoff(4, nil))
	assert.Equal(t, time.Second, p.Backoff(5, nil))
	assert.Equal(t, time.Second, p.Backoff(50, nil))

	p.Jitter = true
	assert.Equal(t, 500*time.Millisecond, p.Backoff(5, func() float64 { return 0.5 }))
	for i := 1; i < 20; i++ {
		d := p.Backoff(i, nil)
		assert.GreaterOrEqual(t, d, time.Duration(0))
		assert.LessOrEqual(t, d, time.Second)
	}
}

func TestSubscriber_NoTokenNeverConnects(t *testing.T) {
	var dials atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		dials.Add(1)
	}))
	defer srv.Close()

	sub := New(&SSETransport{Origin: srv.URL, Path: "/api/realtime/stream"}, staticToken(""), nil)
	err := sub.Start(context.Background())

	assert.ErrorIs(t, err, ErrNoToken)
	assert.Equal(t, StatusDisconnected, sub.Status())
	time.Sleep(20 * time.Millisecond)
	assert.Zero(t, dials.Load())
}

func TestSubscriber_SSEDispatch(t *testing.T) {
	srv := sseServer(t,
		"event: connected\ndata: {\"userId\":\"u1\"}\n\n"+
			"event: heartbeat\ndata: {}\n\n"+
			"event: offer.created\ndata: {\"offerId\":\"o1\",\"taskId\":\"t1\",\"amount\":120}\n\n"+
			"event: board.updated\ndata: oops\n\n"+
			"event: not.listened\ndata: {}\n\n"+
			"data: {\"note\":\"generic\"}\n\n")

	rec := &recorder{}
	sub := New(&SSETransport{Origin: srv.URL, Path: "/api/realtime/stream"}, staticToken("tok"), rec.handle)
	require.NoError(t, sub.Start(context.Background()))
	defer sub.Close()

	require.Eventually(t, func() bool { return len(rec.snapshot()) == 4 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, StatusConnected, sub.Status())

	events := rec.snapshot()
	assert.Equal(t, KindConnected, events[0].Kind)
	assert.Equal(t, OfferPayload{OfferID: "o1", TaskID: "t1", Amount: 120}, events[1].Payload)
	assert.Equal(t, KindBoardUpdated, events[2].Kind)
	assert.Nil(t, events[2].Payload)
	assert.Equal(t, "message", events[3].Type)

	last, ok := sub.LastEvent()
	require.True(t, ok)
	assert.Equal(t, KindMessage, last.Kind)

	sub.Close()
	assert.Equal(t, StatusDisconnected, sub.Status())
}

func TestSubscriber_UsesLatestHandler(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		w.(http.Flusher).Flush()
		select {
		case <-release:
		case <-r.Context().Done():
			return
		}
		_, _ = fmt.Fprint(w, "event: task.assigned\ndata: {\"taskId\":\"t2\"}\n\n")
		w.(http.Flusher).Flush()
		<-r.Context().Done()
	}))
	defer srv.Close()

	first, second := &recorder{}, &recorder{}
	sub := New(&SSETransport{Origin: srv.URL, Path: "/s"}, staticToken("tok"), first.handle)
	require.NoError(t, sub.Start(context.Background()))
	defer sub.Close()
	require.Eventually(t, func() bool { return sub.Status() == StatusConnected }, 2*time.Second, 5*time.Millisecond)

	sub.SetHandler(second.handle)
	close(release)

	require.Eventually(t, func() bool { return len(second.snapshot()) == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.Empty(t, first.snapshot())
}

type failingTransport struct {
	calls atomic.Int32
}

func (f *failingTransport) Stream(ctx context.Context, _ string, _ func(), _ func(string, string)) error {
	f.calls.Add(1)
	return errors.New("connection refused")
}

func TestSubscriber_GivesUpAfterMaxRetries(t *testing.T) {
	transport := &failingTransport{}
	var statuses []Status
	var mu sync.Mutex
	sub := New(transport, staticToken("tok"), nil,
		WithPolicy(Policy{InitialBackoff: time.Millisecond, MaxBackoff: 4 * time.Millisecond, MaxRetries: 3}),
		WithStatusHandler(func(s Status) {
			mu.Lock()
			statuses = append(statuses, s)
			mu.Unlock()
		}))
	require.NoError(t, sub.Start(context.Background()))
	defer sub.Close()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(statuses) > 0 && statuses[len(statuses)-1] == StatusDisconnected
	}, 2*time.Second, 5*time.Millisecond)

	assert.Equal(t, int32(4), transport.calls.Load(), "initial attempt plus three retries")
	mu.Lock()
	assert.Equal(t, StatusConnecting, statuses[0])
	assert.Contains(t, statuses, StatusReconnecting)
	mu.Unlock()
}

func TestSubscriber_RestartsAfterGivingUp(t *testing.T) {
	transport := &failingTransport{}
	sub := New(transport, staticToken("tok"), nil,
		WithPolicy(Policy{InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond, MaxRetries: 1}))
	defer sub.Close()

	require.NoError(t, sub.Start(context.Background()))
	require.Eventually(t, func() bool {
		return transport.calls.Load() == 2 && sub.Status() == StatusDisconnected
	}, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, sub.Start(context.Background()))
	require.Eventually(t, func() bool { return transport.calls.Load() == 4 }, 2*time.Second, 5*time.Millisecond)
}

func TestSubscriber_StartWithCancelledContext(t *testing.T) {
	transport := &failingTransport{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sub := New(transport, staticToken("tok"), nil)
	require.ErrorIs(t, sub.Start(ctx), context.Canceled)
	sub.Close()
	assert.Zero(t, transport.calls.Load())
	assert.Equal(t, StatusDisconnected, sub.Status())
}

func TestSubscriber_ReconnectsAfterDrop(t *testing.T) {
	var opens atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := opens.Add(1)
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		_, _ = fmt.Fprintf(w, "event: task.updated\ndata: {\"taskId\":\"t%d\"}\n\n", n)
		w.(http.Flusher).Flush()
		if n == 1 {
			return // drop the first connection
		}
		<-r.Context().Done()
	}))
	defer srv.Close()

	rec := &recorder{}
	sub := New(&SSETransport{Origin: srv.URL, Path: "/s"}, staticToken("tok"), rec.handle,
		WithPolicy(Policy{InitialBackoff: 5 * time.Millisecond, MaxBackoff: 10 * time.Millisecond}))
	require.NoError(t, sub.Start(context.Background()))
	defer sub.Close()

	require.Eventually(t, func() bool { return len(rec.snapshot()) == 2 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, TaskPayload{TaskID: "t2"}, rec.snapshot()[1].Payload)
	assert.Equal(t, StatusConnected, sub.Status())
}

func TestSubscriber_WebSocket(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "tok", r.URL.Query().Get("token"))
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		_ = conn.WriteJSON(map[string]any{"event": "payout.updated", "data": `{"payoutId":"p1","status":"paid"}`})
		_ = conn.WriteJSON(map[string]any{"event": "review.created", "data": map[string]any{"reviewId": "r1", "taskId": "t1", "rating": 5}})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	rec := &recorder{}
	sub := New(&WebSocketTransport{Origin: srv.URL, Path: "/api/realtime/ws"}, staticToken("tok"), rec.handle)
	require.NoError(t, sub.Start(context.Background()))

	require.Eventually(t, func() bool { return len(rec.snapshot()) == 2 }, 2*time.Second, 5*time.Millisecond)
	events := rec.snapshot()
	assert.Equal(t, PayoutPayload{PayoutID: "p1", Status: "paid"}, events[0].Payload)
	assert.Equal(t, ReviewPayload{ReviewID: "r1", TaskID: "t1", Rating: 5}, events[1].Payload)

	sub.Close()
	assert.Equal(t, StatusDisconnected, sub.Status())
}
