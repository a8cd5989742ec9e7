// Copyright (C) 2026 TaskNexus
// SPDX-License-Identifier: AGPL-3.0-or-later

package devserver

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const (
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	writeWait  = 10 * time.Second
	// clients never send anything meaningful
	maxMessageSize = 512
)

type connectedPayload struct {
	UserID      string    `json:"userId"`
	ConnectedAt time.Time `json:"connectedAt"`
}

func connectedMessage(userID string) Message {
	data, _ := json.Marshal(connectedPayload{UserID: userID, ConnectedAt: time.Now().UTC()})
	return Message{Event: "connected", Data: data, UserID: userID}
}

// HandleStream serves the text/event-stream push channel.
func (s *Server) HandleStream(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r.Context())
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "stream unsupported")
		return
	}
	sub, ok := s.hub.subscribe(user.ID)
	if !ok {
		writeError(w, http.StatusServiceUnavailable, "too many connections")
		return
	}
	defer s.hub.unsubscribe(sub)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	write := func(msg Message) error {
		if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", msg.Event, msg.Data); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	}
	if err := write(connectedMessage(user.ID)); err != nil {
		return
	}
	getLog().Info().Str("user_id", user.ID).Msg("SSE client connected")

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			getLog().Info().Str("user_id", user.ID).Msg("SSE client disconnected")
			return
		case msg := <-sub.send:
			if err := write(msg); err != nil {
				return
			}
		}
	}
}

// wsFrame is the server -> client WebSocket envelope.
type wsFrame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func newUpgrader(allowedOrigins []string) websocket.Upgrader {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = struct{}{}
	}
	return websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			if len(allowed) == 0 {
				return true
			}
			_, ok := allowed[r.Header.Get("Origin")]
			return ok
		},
	}
}

// HandleWebSocket serves the WebSocket variant of the push channel.
func (s *Server) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r.Context())
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		getLog().Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	sub, ok := s.hub.subscribe(user.ID)
	if !ok {
		getLog().Warn().Msg("WebSocket connection limit reached")
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "too many connections"))
		conn.Close()
		return
	}
	getLog().Info().Str("user_id", user.ID).Str("remote", r.RemoteAddr).Msg("WebSocket client connected")

	done := make(chan struct{})
	go writePump(conn, sub, done)
	readPump(conn, done)
	s.hub.unsubscribe(sub)
}

// readPump consumes control frames until the peer goes away.
func readPump(conn *websocket.Conn, done chan struct{}) {
	defer func() {
		close(done)
		conn.Close()
		getLog().Info().Msg("WebSocket client disconnected")
	}()

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				getLog().Error().Err(err).Msg("WebSocket read error")
			}
			return
		}
	}
}

func writePump(conn *websocket.Conn, sub *subscriber, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	send := func(msg Message) error {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		return conn.WriteJSON(wsFrame{Event: msg.Event, Data: msg.Data})
	}
	if err := send(connectedMessage(sub.userID)); err != nil {
		return
	}
	for {
		select {
		case <-done:
			return
		case msg := <-sub.send:
			if err := send(msg); err != nil {
				getLog().Error().Err(err).Msg("WebSocket write error")
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
