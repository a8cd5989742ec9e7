// Copyright (C) 2026 TaskNexus
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session holds the signed-in user's credentials. A Session is an
// explicit value handed to whatever needs auth; there is no package-level
// current user.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/tasknexus/tasknexus/internal/storage"
)

// User is the profile cached alongside the token.
type User struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	Role        string `json:"role"`
}

// Session reads and writes credentials through a storage.Store. Values are
// cached after first read; writes go straight through.
type Session struct {
	store storage.Store

	mu      sync.RWMutex
	loaded  bool
	access  string
	refresh string
	user    *User
}

// New creates a session backed by store.
func New(store storage.Store) *Session {
	return &Session{store: store}
}

// Load reads credentials from storage. An unparseable user profile is
// dropped; the tokens remain usable.
func (s *Session) Load(ctx context.Context) error {
	access, _, err := s.store.Get(ctx, storage.AccessTokenKey)
	if err != nil {
		return fmt.Errorf("load access token: %w", err)
	}
	refresh, _, err := s.store.Get(ctx, storage.RefreshTokenKey)
	if err != nil {
		return fmt.Errorf("load refresh token: %w", err)
	}
	var user *User
	if raw, ok, err := s.store.Get(ctx, storage.UserKey); err != nil {
		return fmt.Errorf("load user: %w", err)
	} else if ok {
		var u User
		if json.Unmarshal([]byte(raw), &u) == nil {
			user = &u
		}
	}

	s.mu.Lock()
	s.access, s.refresh, s.user, s.loaded = access, refresh, user, true
	s.mu.Unlock()
	return nil
}

func (s *Session) ensureLoaded(ctx context.Context) {
	s.mu.RLock()
	loaded := s.loaded
	s.mu.RUnlock()
	if !loaded {
		_ = s.Load(ctx)
	}
}

// AccessToken returns the current bearer token, or "" when signed out.
func (s *Session) AccessToken(ctx context.Context) string {
	s.ensureLoaded(ctx)
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.access
}

// RefreshToken returns the stored refresh token.
func (s *Session) RefreshToken(ctx context.Context) string {
	s.ensureLoaded(ctx)
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refresh
}

// User returns a copy of the cached profile, or nil.
func (s *Session) User(ctx context.Context) *User {
	s.ensureLoaded(ctx)
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// IsAuthenticated reports whether an access token is present.
func (s *Session) IsAuthenticated(ctx context.Context) bool {
	return s.AccessToken(ctx) != ""
}

// SetTokens stores a new token pair. An empty refresh token keeps the old one.
func (s *Session) SetTokens(ctx context.Context, access, refresh string) error {
	if err := s.store.Set(ctx, storage.AccessTokenKey, access); err != nil {
		return fmt.Errorf("save access token: %w", err)
	}
	if refresh != "" {
		if err := s.store.Set(ctx, storage.RefreshTokenKey, refresh); err != nil {
			return fmt.Errorf("save refresh token: %w", err)
		}
	}

	s.mu.Lock()
	s.loaded = true
	s.access = access
	if refresh != "" {
		s.refresh = refresh
	}
	s.mu.Unlock()
	return nil
}

// SetUser caches the user profile.
func (s *Session) SetUser(ctx context.Context, u User) error {
	b, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}
	if err := s.store.Set(ctx, storage.UserKey, string(b)); err != nil {
		return fmt.Errorf("save user: %w", err)
	}
	s.mu.Lock()
	s.user = &u
	s.mu.Unlock()
	return nil
}

// Clear signs out: tokens and profile are removed from storage and memory.
func (s *Session) Clear(ctx context.Context) error {
	s.mu.Lock()
	s.access, s.refresh, s.user, s.loaded = "", "", nil, true
	s.mu.Unlock()

	for _, key := range []string{storage.AccessTokenKey, storage.RefreshTokenKey, storage.UserKey} {
		if err := s.store.Delete(ctx, key); err != nil {
			return fmt.Errorf("clear %s: %w", key, err)
		}
	}
	return nil
}
