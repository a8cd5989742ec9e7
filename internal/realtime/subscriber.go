// Copyright (C) 2026 TaskNexus
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package realtime subscribes to the server push channel and hands decoded
// events to a caller-supplied handler.
package realtime

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/tasknexus/tasknexus/internal/config"
	"github.com/tasknexus/tasknexus/internal/logger"
)

var (
	log     *zerolog.Logger
	logOnce sync.Once
)

func getLog() *zerolog.Logger {
	logOnce.Do(func() {
		l := logger.GetRealtimeLogger()
		log = &l
	})
	return log
}

// ErrNoToken is returned by Start when there is no access token. The
// subscriber is left disconnected and no connection is attempted.
var ErrNoToken = errors.New("realtime: no access token")

// Status is the connection state.
type Status int

const (
	StatusDisconnected Status = iota
	StatusConnecting
	StatusConnected
	StatusReconnecting
)

func (s Status) String() string {
	switch s {
	case StatusConnecting:
		return "connecting"
	case StatusConnected:
		return "connected"
	case StatusReconnecting:
		return "reconnecting"
	default:
		return "disconnected"
	}
}

// Handler receives events.
type Handler func(Event)

// TokenSource supplies the access token. *session.Session implements it.
type TokenSource interface {
	AccessToken(ctx context.Context) string
}

// Policy controls reconnection after a transport error.
type Policy struct {
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	MaxRetries     int // 0 = unlimited
	Jitter         bool
}

// PolicyFromConfig converts the reconnect section of the config.
func PolicyFromConfig(c config.ReconnectConfig) Policy {
	return Policy{
		InitialBackoff: c.InitialBackoff,
		MaxBackoff:     c.MaxBackoff,
		MaxRetries:     c.MaxRetries,
		Jitter:         c.Jitter,
	}
}

// DefaultPolicy matches the config defaults.
var DefaultPolicy = Policy{InitialBackoff: time.Second, MaxBackoff: 30 * time.Second, MaxRetries: 10, Jitter: true}

// Backoff returns the wait before reconnect attempt n (1-based): the
// initial backoff doubled per attempt and capped at MaxBackoff. With Jitter
// the result is drawn uniformly from [0, that value] using rnd.
func (p Policy) Backoff(attempt int, rnd func() float64) time.Duration {
	initial := p.InitialBackoff
	if initial <= 0 {
		initial = time.Second
	}
	ceiling := p.MaxBackoff
	if ceiling < initial {
		ceiling = initial
	}
	d := initial
	for i := 1; i < attempt && d < ceiling; i++ {
		d *= 2
	}
	d = min(d, ceiling)
	if p.Jitter {
		if rnd == nil {
			rnd = rand.Float64
		}
		d = time.Duration(rnd() * float64(d))
	}
	return d
}

// Option customizes a Subscriber.
type Option func(*Subscriber)

// WithEvents sets the event names to listen for. The generic "message"
// category is always included.
func WithEvents(names ...string) Option {
	return func(s *Subscriber) {
		if len(names) > 0 {
			s.events = names
		}
	}
}

func WithPolicy(p Policy) Option {
	return func(s *Subscriber) { s.policy = p }
}

// WithStatusHandler registers fn to observe status changes.
func WithStatusHandler(fn func(Status)) Option {
	return func(s *Subscriber) { s.onStatus = fn }
}

// Subscriber keeps one push connection alive and forwards events.
type Subscriber struct {
	transport Transport
	tokens    TokenSource
	events    []string
	policy    Policy
	onStatus  func(Status)
	rnd       func() float64

	handler atomic.Pointer[Handler]

	mu     sync.Mutex
	status Status
	last   *Event
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a subscriber. Nothing connects until Start.
func New(transport Transport, tokens TokenSource, h Handler, opts ...Option) *Subscriber {
	s := &Subscriber{
		transport: transport,
		tokens:    tokens,
		events:    DefaultEvents,
		policy:    DefaultPolicy,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.SetHandler(h)
	return s
}

// SetHandler replaces the handler. Events already in flight go to whichever
// handler is current when they are dispatched.
func (s *Subscriber) SetHandler(h Handler) {
	if h == nil {
		s.handler.Store(nil)
		return
	}
	s.handler.Store(&h)
}

func (s *Subscriber) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// LastEvent returns the most recent dispatched event.
func (s *Subscriber) LastEvent() (Event, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return Event{}, false
	}
	return *s.last, true
}

// Start opens the connection in the background. Without an access token it
// reports StatusDisconnected and returns ErrNoToken. A subscriber that gave
// up reconnecting can be started again.
func (s *Subscriber) Start(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	if s.cancel != nil {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	token := s.tokens.AccessToken(ctx)
	if token == "" {
		s.setStatus(StatusDisconnected)
		getLog().Debug().Msg("No access token, push channel not opened")
		return ErrNoToken
	}

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.mu.Lock()
	s.cancel, s.done = cancel, done
	s.mu.Unlock()

	s.setStatus(StatusConnecting)
	go s.run(runCtx, token, done)
	return nil
}

// Close tears down the connection and waits for the reader to exit.
func (s *Subscriber) Close() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	s.setStatus(StatusDisconnected)
}

func (s *Subscriber) run(ctx context.Context, token string, done chan struct{}) {
	defer close(done)

	listening := lo.Uniq(append(append([]string{}, s.events...), KindMessage.String()))
	emit := func(name, data string) { s.dispatch(listening, name, data) }

	attempt := 0
	for {
		err := s.transport.Stream(ctx, token, func() {
			attempt = 0
			s.setStatus(StatusConnected)
			getLog().Info().Msg("Push channel connected")
		}, emit)
		if ctx.Err() != nil {
			return
		}

		attempt++
		if s.policy.MaxRetries > 0 && attempt > s.policy.MaxRetries {
			getLog().Warn().Err(err).Int("attempts", attempt-1).Msg("Push channel gave up reconnecting")
			s.release(done)
			s.setStatus(StatusDisconnected)
			return
		}
		s.setStatus(StatusReconnecting)
		wait := s.policy.Backoff(attempt, s.rnd)
		getLog().Debug().Err(err).Int("attempt", attempt).Dur("backoff", wait).Msg("Push channel dropped")

		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}

		// pick up a refreshed token
		if t := s.tokens.AccessToken(ctx); t != "" {
			token = t
		} else {
			s.release(done)
			s.setStatus(StatusDisconnected)
			return
		}
	}
}

// release frees the slot held by the run that owns done, unless Close
// already took it.
func (s *Subscriber) release(done chan struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done == done {
		s.cancel()
		s.cancel, s.done = nil, nil
	}
}

func (s *Subscriber) dispatch(listening []string, name, data string) {
	if name == "" {
		name = KindMessage.String()
	}
	if name == KindHeartbeat.String() || !lo.Contains(listening, name) {
		return
	}

	ev := Decode(name, data)
	s.mu.Lock()
	s.last = &ev
	s.mu.Unlock()

	if h := s.handler.Load(); h != nil {
		(*h)(ev)
	}
}

func (s *Subscriber) setStatus(st Status) {
	s.mu.Lock()
	changed := s.status != st
	s.status = st
	s.mu.Unlock()
	if changed && s.onStatus != nil {
		s.onStatus(st)
	}
}
