// Copyright (C) 2026 TaskNexus
// SPDX-License-Identifier: AGPL-3.0-or-later

package logger

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/tasknexus/tasknexus/internal/config"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Manager hands out per-package loggers that share one set of sinks.
type Manager struct {
	config *config.LogConfig
	root   zerolog.Logger

	mu             sync.RWMutex
	packageLoggers map[string]zerolog.Logger
	closers        []io.Closer
}

// NewManager opens every enabled output in cfg. With no enabled output the
// manager logs nowhere, which keeps the terminal clean while the TUI runs.
func NewManager(cfg *config.LogConfig) (*Manager, error) {
	m := &Manager{config: cfg, packageLoggers: map[string]zerolog.Logger{}}

	level := parseLevel(cfg.Level)
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339Nano

	sinks := make([]io.Writer, 0, len(cfg.Output))
	for _, out := range cfg.Output {
		if !out.Enabled {
			continue
		}
		w, err := m.open(out)
		if err != nil {
			m.Close()
			return nil, fmt.Errorf("failed to create log writers: %w", err)
		}
		sinks = append(sinks, w)
	}

	var w io.Writer = io.Discard
	if len(sinks) == 1 {
		w = sinks[0]
	} else if len(sinks) > 1 {
		w = zerolog.MultiLevelWriter(sinks...)
	}
	m.root = m.build(w, level)
	return m, nil
}

func (m *Manager) open(out config.LogOutputConfig) (io.Writer, error) {
	pretty := m.config.Format == "console"
	switch out.Type {
	case "console":
		if pretty {
			return consoleWriter(os.Stderr, "15:04:05.000"), nil
		}
		return os.Stderr, nil
	case "file":
		w, err := openFile(out)
		if err != nil {
			return nil, err
		}
		m.closers = append(m.closers, w)
		if pretty {
			return consoleWriter(w, time.DateTime+".000"), nil
		}
		return w, nil
	}
	return nil, fmt.Errorf("unsupported output type: %s", out.Type)
}

// openFile returns a lumberjack roller when rotation is configured, a plain
// append-only file otherwise.
func openFile(out config.LogOutputConfig) (io.WriteCloser, error) {
	if err := os.MkdirAll(filepath.Dir(out.Path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	if r := out.Rotate; r.MaxSizeMB > 0 {
		return &lumberjack.Logger{
			Filename:   out.Path,
			MaxSize:    r.MaxSizeMB,
			MaxBackups: r.MaxBackups,
			MaxAge:     r.MaxAgeDays,
			Compress:   r.Compress,
		}, nil
	}
	f, err := os.OpenFile(out.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file %s: %w", out.Path, err)
	}
	return f, nil
}

func consoleWriter(out io.Writer, timeFormat string) zerolog.ConsoleWriter {
	return zerolog.ConsoleWriter{
		Out:             out,
		TimeFormat:      timeFormat,
		FormatLevel:     func(i any) string { return strings.ToUpper(fmt.Sprintf("| %-6s|", i)) },
		FormatFieldName: func(i any) string { return fmt.Sprintf("%s:", i) },
	}
}

func (m *Manager) build(w io.Writer, level zerolog.Level) zerolog.Logger {
	ctx := zerolog.New(w).Level(level).With()
	c := m.config.Context
	if c.IncludeTimestamp {
		ctx = ctx.Timestamp()
	}
	if c.IncludeCaller {
		ctx = ctx.Caller()
	}
	if c.IncludeStackTrace != "" {
		ctx = ctx.Stack()
	}
	l := ctx.Logger()

	if s := m.config.Sampling; s.Enabled {
		l = l.Sample(&zerolog.BurstSampler{
			Burst:       s.Initial,
			Period:      s.Tick,
			NextSampler: &zerolog.BasicSampler{N: s.Thereafter},
		})
	}
	return l
}

// GetLogger returns the logger for pkg, tagged with a pkg field and levelled
// by log.levels[pkg] when present.
func (m *Manager) GetLogger(pkg string) zerolog.Logger {
	m.mu.RLock()
	l, ok := m.packageLoggers[pkg]
	m.mu.RUnlock()
	if ok {
		return l
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if l, ok := m.packageLoggers[pkg]; ok {
		return l
	}
	level := m.config.Level
	if override, ok := m.config.Levels[pkg]; ok {
		level = override
	}
	l = m.root.With().Str("pkg", pkg).Logger().Level(parseLevel(level))
	m.packageLoggers[pkg] = l
	return l
}

// SetPackageLevel changes the level of pkg for subsequent GetLogger calls.
func (m *Manager) SetPackageLevel(pkg, level string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.config.Levels == nil {
		m.config.Levels = map[string]string{}
	}
	m.config.Levels[pkg] = level
	if l, ok := m.packageLoggers[pkg]; ok {
		m.packageLoggers[pkg] = l.Level(parseLevel(level))
	}
}

// Close closes the log files. Console sinks are left open.
func (m *Manager) Close() error {
	var errs []error
	for _, c := range m.closers {
		errs = append(errs, c.Close())
	}
	m.closers = nil
	return errors.Join(errs...)
}

// parseLevel is case-insensitive, accepts "warning" and falls back to info.
func parseLevel(level string) zerolog.Level {
	level = strings.ToLower(strings.TrimSpace(level))
	if level == "warning" {
		level = "warn"
	}
	l, err := zerolog.ParseLevel(level)
	if err != nil || l == zerolog.NoLevel || l == zerolog.Disabled {
		return zerolog.InfoLevel
	}
	return l
}

var (
	globalMu      sync.RWMutex
	globalManager *Manager
)

// Initialize installs a manager built from cfg as the process-wide one. The
// previous manager, if any, is closed.
func Initialize(cfg *config.LogConfig) error {
	m, err := NewManager(cfg)
	if err != nil {
		return err
	}
	globalMu.Lock()
	prev := globalManager
	globalManager = m
	globalMu.Unlock()
	if prev != nil {
		prev.Close()
	}
	return nil
}

// GetLogger returns a package logger from the global manager, or a no-op
// logger before Initialize.
func GetLogger(pkg string) zerolog.Logger {
	globalMu.RLock()
	m := globalManager
	globalMu.RUnlock()
	if m == nil {
		return zerolog.Nop()
	}
	return m.GetLogger(pkg)
}

func CloseGlobal() error {
	globalMu.Lock()
	m := globalManager
	globalManager = nil
	globalMu.Unlock()
	if m == nil {
		return nil
	}
	return m.Close()
}
