// Copyright (C) 2026 TaskNexus
// SPDX-License-Identifier: AGPL-3.0-or-later

package tui

import (
	"context"
	"errors"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/tasknexus/tasknexus/internal/board"
	"github.com/tasknexus/tasknexus/internal/collab"
	"github.com/tasknexus/tasknexus/internal/logger"
	"github.com/tasknexus/tasknexus/internal/preferences"
	"github.com/tasknexus/tasknexus/internal/realtime"
	"github.com/tasknexus/tasknexus/internal/tui/messages"
	"github.com/tasknexus/tasknexus/internal/tui/screens/taskpanel"
)

const flushTimeout = 5 * time.Second

// App bundles what the TUI drives.
type App struct {
	Board       *board.Synchronizer
	Preferences *preferences.Store
	Backend     collab.Backend

	// Push channel; a nil Transport runs without realtime updates.
	Transport realtime.Transport
	Tokens    realtime.TokenSource
	Options   []realtime.Option
}

// StartTUI runs the interactive board until the user quits or ctx is
// cancelled. Pending board changes are flushed on the way out.
func StartTUI(ctx context.Context, app App) error {
	log := logger.GetTUILogger()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var p *tea.Program
	send := func(msg tea.Msg) { p.Send(msg) }

	newPanel := func(taskID string) taskpanel.Panel {
		notify := collab.NotifierFunc(func(level collab.Level, text string) {
			send(messages.NoticeMsg{Level: level, Text: text})
		})
		return collab.NewPanel(app.Backend, notify, taskID)
	}

	p = tea.NewProgram(
		NewMainModel(app.Board, app.Preferences, newPanel),
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)

	stopBoard := app.Board.OnChange(func(st board.State, status board.Status) {
		send(messages.BoardChangedMsg{State: st, Status: status})
	})
	defer stopBoard()
	stopPrefs := app.Preferences.OnChange(func(prefs preferences.Preferences) {
		send(messages.PreferencesChangedMsg{Preferences: prefs})
	})
	defer stopPrefs()

	if app.Transport != nil {
		dedup := NewEventDeduplicator(DefaultDedupWindow)
		go dedup.Run(ctx)

		opts := append([]realtime.Option{
			realtime.WithStatusHandler(func(s realtime.Status) {
				send(messages.RealtimeStatusMsg{Status: s})
			}),
		}, app.Options...)
		sub := realtime.New(app.Transport, app.Tokens, func(ev realtime.Event) {
			if dedup.ShouldProcess(ev) {
				send(messages.RealtimeEventMsg{Event: ev})
			}
		}, opts...)
		// Status callbacks block until the program loop runs, so Start goes
		// in the background and shutdown waits for it before closing.
		started := make(chan struct{})
		go func() {
			defer close(started)
			if err := sub.Start(ctx); err != nil && ctx.Err() == nil {
				log.Warn().Err(err).Msg("Realtime updates unavailable")
			}
		}()
		defer func() {
			cancel()
			<-started
			sub.Close()
		}()
	}

	_, err := p.Run()

	flushCtx, flushCancel := context.WithTimeout(context.Background(), flushTimeout)
	defer flushCancel()
	if ferr := app.Board.Flush(flushCtx); ferr != nil {
		log.Error().Err(ferr).Msg("Failed to save board on exit")
	}
	app.Board.Close()

	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
