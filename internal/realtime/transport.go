// Copyright (C) 2026 TaskNexus
// SPDX-License-Identifier: AGPL-3.0-or-later

package realtime

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tasknexus/tasknexus/internal/config"
)

const writeWait = time.Second

// ErrStreamClosed is returned when the server ends the stream.
var ErrStreamClosed = errors.New("realtime: stream closed by server")

// Transport opens one push connection. Stream blocks until the connection
// ends, calling onOpen once connected and emit for every named frame. It
// returns nil only when ctx was cancelled.
type Transport interface {
	Stream(ctx context.Context, token string, onOpen func(), emit func(name, data string)) error
}

// NewTransport builds the transport selected by cfg.Transport.
func NewTransport(api config.APIConfig, cfg config.RealtimeConfig) Transport {
	if cfg.Transport == "websocket" {
		return &WebSocketTransport{Origin: api.Origin(), Path: cfg.SocketPath}
	}
	return &SSETransport{Origin: api.Origin(), Path: cfg.StreamPath}
}

func streamURL(origin, path, token string) string {
	return strings.TrimRight(origin, "/") + path + "?token=" + url.QueryEscape(token)
}

// SSETransport reads a text/event-stream.
type SSETransport struct {
	Origin string
	Path   string
	Client *http.Client
}

func (t *SSETransport) Stream(ctx context.Context, token string, onOpen func(), emit func(name, data string)) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, streamURL(t.Origin, t.Path, token), nil)
	if err != nil {
		return fmt.Errorf("build stream request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	client := t.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("open stream: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("open stream: unexpected status %d", resp.StatusCode)
	}
	onOpen()

	err = readSSE(resp.Body, emit)
	if ctx.Err() != nil {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read stream: %w", err)
	}
	return ErrStreamClosed
}

// readSSE parses event-stream frames: "event:" names the frame, "data:"
// lines are joined with newlines, a blank line dispatches. Frames without
// a name are "message" frames.
func readSSE(r io.Reader, emit func(name, data string)) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var name string
	var data []string
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			if len(data) > 0 {
				emit(name, strings.Join(data, "\n"))
			}
			name, data = "", nil
		case strings.HasPrefix(line, ":"):
			// comment / keep-alive
		default:
			field, value, _ := strings.Cut(line, ":")
			value = strings.TrimPrefix(value, " ")
			switch field {
			case "event":
				name = value
			case "data":
				data = append(data, value)
			}
		}
	}
	return scanner.Err()
}

// WebSocketTransport reads {"event": name, "data": ...} frames.
type WebSocketTransport struct {
	Origin string
	Path   string
	Dialer *websocket.Dialer
}

type wsFrame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func (t *WebSocketTransport) Stream(ctx context.Context, token string, onOpen func(), emit func(name, data string)) error {
	u := streamURL(t.Origin, t.Path, token)
	u = "ws" + strings.TrimPrefix(u, "http")

	dialer := t.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	conn, resp, err := dialer.DialContext(ctx, u, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("dial websocket: %w", err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
		conn.Close()
	})
	defer stop()

	onOpen()
	for {
		var frame wsFrame
		if err := conn.ReadJSON(&frame); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return ErrStreamClosed
			}
			return fmt.Errorf("read websocket: %w", err)
		}
		emit(frame.Event, frameData(frame.Data))
	}
}

// frameData unwraps string data so both transports hand over the same JSON
// text. Non-string data is passed through as-is.
func frameData(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}
