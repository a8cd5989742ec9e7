// Copyright (C) 2026 TaskNexus
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api is the REST client for the TaskNexus backend. Every request
// carries the session's bearer token; a 401 triggers exactly one token
// refresh and one retry.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/tasknexus/tasknexus/internal/config"
	"github.com/tasknexus/tasknexus/internal/logger"
	"github.com/tasknexus/tasknexus/internal/session"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	log     *zerolog.Logger
	logOnce sync.Once
)

func getLog() *zerolog.Logger {
	logOnce.Do(func() {
		l := logger.GetAPILogger()
		log = &l
	})
	return log
}

const maxErrorBody = 64 << 10

// Client talks to the REST backend.
type Client struct {
	baseURL     string
	refreshPath string
	http        *http.Client
	session     *session.Session

	// refreshMu serializes token refreshes so concurrent 401s refresh once.
	refreshMu sync.Mutex

	onExpired func()
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithSessionExpiredHandler registers fn to run after a failed refresh has
// cleared the session. The CLI uses it to tell the user to log in again.
func WithSessionExpiredHandler(fn func()) Option {
	return func(c *Client) { c.onExpired = fn }
}

// New creates a client for cfg.BaseURL using sess for credentials.
func New(cfg config.APIConfig, sess *session.Session, opts ...Option) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	refreshPath := cfg.RefreshPath
	if refreshPath == "" {
		refreshPath = "/auth/refresh"
	}
	c := &Client{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		refreshPath: refreshPath,
		http:        &http.Client{Timeout: timeout},
		session:     sess,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Session returns the session the client authenticates with.
func (c *Client) Session() *session.Session {
	return c.session
}

// request describes one call. body is kept as bytes so the retry after a
// refresh can resend it.
type request struct {
	method      string
	path        string
	body        []byte
	contentType string
	noAuth      bool
}

func jsonRequest(method, path string, payload any) (request, error) {
	r := request{method: method, path: path}
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return r, fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		r.body = b
		r.contentType = "application/json"
	}
	return r, nil
}

// do runs req and decodes a 2xx body into out (if non-nil).
func (c *Client) do(ctx context.Context, req request, out any) error {
	token := ""
	if !req.noAuth && c.session != nil {
		token = c.session.AccessToken(ctx)
	}

	resp, err := c.send(ctx, req, token)
	if err != nil {
		return err
	}

	if resp.StatusCode == http.StatusUnauthorized && !req.noAuth {
		drain(resp)
		fresh, err := c.refresh(ctx, token)
		if err != nil {
			return err
		}
		resp, err = c.send(ctx, req, fresh)
		if err != nil {
			return err
		}
		if resp.StatusCode == http.StatusUnauthorized {
			drain(resp)
			c.expire(ctx)
			return ErrSessionExpired
		}
	}

	return decodeResponse(req, resp, out)
}

func (c *Client) send(ctx context.Context, req request, token string) (*http.Response, error) {
	var body io.Reader
	if req.body != nil {
		body = bytes.NewReader(req.body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.method, c.baseURL+req.path, body)
	if err != nil {
		return nil, fmt.Errorf("build %s %s: %w", req.method, req.path, err)
	}
	if req.contentType != "" {
		httpReq.Header.Set("Content-Type", req.contentType)
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-Request-ID", uuid.NewString())
	if token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		getLog().Warn().Err(err).Str("method", req.method).Str("path", req.path).Msg("Request failed")
		return nil, fmt.Errorf("%s %s: %w", req.method, req.path, err)
	}
	getLog().Debug().
		Str("method", req.method).
		Str("path", req.path).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("HTTP request")
	return resp, nil
}

// refresh obtains a new access token. If another goroutine already
// refreshed while we waited, its token is reused.
func (c *Client) refresh(ctx context.Context, staleToken string) (string, error) {
	if c.session == nil {
		return "", ErrNotAuthenticated
	}

	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	if current := c.session.AccessToken(ctx); current != "" && current != staleToken {
		return current, nil
	}

	refreshToken := c.session.RefreshToken(ctx)
	if refreshToken == "" {
		c.expire(ctx)
		return "", ErrSessionExpired
	}

	req, err := jsonRequest(http.MethodPost, c.refreshPath, map[string]string{"refreshToken": refreshToken})
	if err != nil {
		return "", err
	}
	req.noAuth = true

	var out envelope[tokenPair]
	resp, err := c.send(ctx, req, "")
	if err == nil {
		err = decodeResponse(req, resp, &out)
	}
	if err != nil || out.Data.AccessToken == "" {
		getLog().Info().AnErr("cause", err).Msg("Token refresh failed, clearing session")
		c.expire(ctx)
		return "", ErrSessionExpired
	}

	if err := c.session.SetTokens(ctx, out.Data.AccessToken, out.Data.RefreshToken); err != nil {
		return "", fmt.Errorf("store refreshed token: %w", err)
	}
	getLog().Debug().Msg("Access token refreshed")
	return out.Data.AccessToken, nil
}

func (c *Client) expire(ctx context.Context) {
	if c.session != nil {
		if err := c.session.Clear(ctx); err != nil {
			getLog().Error().Err(err).Msg("Failed to clear session")
		}
	}
	if c.onExpired != nil {
		c.onExpired()
	}
}

func decodeResponse(req request, resp *http.Response, out any) error {
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &Error{
			Method:  req.method,
			Path:    req.path,
			Status:  resp.StatusCode,
			Message: extractMessage(resp.StatusCode, body),
		}
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode %s %s: %w", req.method, req.path, err)
	}
	return nil
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
	resp.Body.Close()
}
