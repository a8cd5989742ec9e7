// Copyright (C) 2026 TaskNexus
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tasknexus/tasknexus/internal/realtime"
)

type eventLine struct {
	Type       string          `json:"type"`
	ReceivedAt time.Time       `json:"receivedAt"`
	Data       json.RawMessage `json:"data,omitempty"`
}

func eventsCommand(ctx context.Context, args []string, s streams) error {
	fs, opts := newFlagSet("events", s)
	transport := fs.String("transport", "", "Override realtime transport (sse or websocket)")
	limit := fs.Int("limit", 0, "Exit after this many events (0 = until interrupted)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	e, err := openEnv(ctx, opts, s)
	if err != nil {
		return err
	}
	defer e.Close()

	if err := e.requireLogin(ctx); err != nil {
		return err
	}

	cfg := e.cfg.Realtime
	if *transport != "" {
		cfg.Transport = *transport
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	events := make(chan realtime.Event, 64)
	statuses := make(chan realtime.Status, 8)
	subOpts := []realtime.Option{
		realtime.WithPolicy(realtime.PolicyFromConfig(cfg.Reconnect)),
		realtime.WithStatusHandler(func(st realtime.Status) {
			select {
			case statuses <- st:
			default:
			}
		}),
	}
	if len(cfg.Events) > 0 {
		subOpts = append(subOpts, realtime.WithEvents(cfg.Events...))
	}

	sub := realtime.New(realtime.NewTransport(e.cfg.API, cfg), e.session, func(ev realtime.Event) {
		select {
		case events <- ev:
		case <-ctx.Done():
		}
	}, subOpts...)

	if err := sub.Start(ctx); err != nil {
		if errors.Is(err, realtime.ErrNoToken) {
			return errNotLoggedIn
		}
		return err
	}
	defer sub.Close()

	count := 0
	for {
		select {
		case <-ctx.Done():
			return nil
		case st := <-statuses:
			fmt.Fprintf(s.err, "[%s]\n", st)
			if st == realtime.StatusDisconnected {
				return errors.New("push channel closed")
			}
		case ev := <-events:
			if err := printEvent(e.out, ev); err != nil {
				return err
			}
			count++
			if *limit > 0 && count >= *limit {
				return nil
			}
		}
	}
}

func printEvent(p printer, ev realtime.Event) error {
	line := eventLine{Type: ev.Type, ReceivedAt: ev.ReceivedAt}
	if json.Valid([]byte(ev.Raw)) {
		line.Data = json.RawMessage(ev.Raw)
	}
	if p.format == "json" {
		// one object per line so the stream can be piped
		return json.NewEncoder(p.w).Encode(line)
	}
	return p.print(line, func(w io.Writer) {
		fmt.Fprintf(w, "%s  %-16s  %s\n", ev.ReceivedAt.Local().Format("15:04:05"), ev.Type, ev.Raw)
	})
}
