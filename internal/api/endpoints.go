// Copyright (C) 2026 TaskNexus
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/url"
)

// Login exchanges credentials for tokens and stores them in the session.
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	req, err := jsonRequest(http.MethodPost, "/auth/login", map[string]string{"email": email, "password": password})
	if err != nil {
		return nil, err
	}
	req.noAuth = true

	var out envelope[LoginResult]
	if err := c.do(ctx, req, &out); err != nil {
		return nil, err
	}
	if c.session != nil {
		if err := c.session.SetTokens(ctx, out.Data.AccessToken, out.Data.RefreshToken); err != nil {
			return nil, err
		}
		if err := c.session.SetUser(ctx, out.Data.User); err != nil {
			return nil, err
		}
	}
	return &out.Data, nil
}

type boardStateEnvelope struct {
	BoardState json.RawMessage `json:"boardState"`
}

// GetBoardState fetches the stored view state of one board. The raw JSON is
// returned so the caller can merge it over its own defaults.
func (c *Client) GetBoardState(ctx context.Context, boardKey string) (json.RawMessage, error) {
	var out envelope[boardStateEnvelope]
	req := request{method: http.MethodGet, path: "/settings/board?boardKey=" + url.QueryEscape(boardKey)}
	if err := c.do(ctx, req, &out); err != nil {
		return nil, err
	}
	return out.Data.BoardState, nil
}

// SaveBoardState replaces the stored view state of one board.
func (c *Client) SaveBoardState(ctx context.Context, boardKey string, state any) error {
	req, err := jsonRequest(http.MethodPut, "/settings/board", map[string]any{
		"boardKey":   boardKey,
		"boardState": state,
	})
	if err != nil {
		return err
	}
	return c.do(ctx, req, nil)
}

// ResetBoardState asks the server to recompute a board's state and returns it.
func (c *Client) ResetBoardState(ctx context.Context, boardKey string) (json.RawMessage, error) {
	req, err := jsonRequest(http.MethodPost, "/settings/board/reset", map[string]string{"boardKey": boardKey})
	if err != nil {
		return nil, err
	}
	var out envelope[boardStateEnvelope]
	if err := c.do(ctx, req, &out); err != nil {
		return nil, err
	}
	return out.Data.BoardState, nil
}

func taskPath(taskID, suffix string) string {
	return "/tasks/" + url.PathEscape(taskID) + suffix
}

// ListComments returns the comments and the participants of a task.
func (c *Client) ListComments(ctx context.Context, taskID string) (*CommentThread, error) {
	var out envelope[CommentThread]
	if err := c.do(ctx, request{method: http.MethodGet, path: taskPath(taskID, "/comments")}, &out); err != nil {
		return nil, err
	}
	return &out.Data, nil
}

// PostComment posts body and files as multipart/form-data.
func (c *Client) PostComment(ctx context.Context, taskID, body string, files []Upload) error {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := w.WriteField("body", body); err != nil {
		return fmt.Errorf("encode comment: %w", err)
	}
	for _, f := range files {
		part, err := w.CreateFormFile("attachments", f.Name)
		if err != nil {
			return fmt.Errorf("encode attachment %s: %w", f.Name, err)
		}
		if _, err := part.Write(f.Data); err != nil {
			return fmt.Errorf("encode attachment %s: %w", f.Name, err)
		}
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("encode comment: %w", err)
	}

	return c.do(ctx, request{
		method:      http.MethodPost,
		path:        taskPath(taskID, "/comments"),
		body:        buf.Bytes(),
		contentType: w.FormDataContentType(),
	}, nil)
}

// ListActivity returns a task's activity feed.
func (c *Client) ListActivity(ctx context.Context, taskID string) ([]Activity, error) {
	var out envelope[[]Activity]
	if err := c.do(ctx, request{method: http.MethodGet, path: taskPath(taskID, "/activity")}, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// ListSubtasks returns a task's subtasks with the milestone progress.
func (c *Client) ListSubtasks(ctx context.Context, taskID string) (*SubtaskList, error) {
	var out envelope[SubtaskList]
	if err := c.do(ctx, request{method: http.MethodGet, path: taskPath(taskID, "/subtasks")}, &out); err != nil {
		return nil, err
	}
	return &out.Data, nil
}

// CreateSubtask adds a subtask.
func (c *Client) CreateSubtask(ctx context.Context, taskID string, in NewSubtask) error {
	req, err := jsonRequest(http.MethodPost, taskPath(taskID, "/subtasks"), in)
	if err != nil {
		return err
	}
	return c.do(ctx, req, nil)
}

// SetSubtaskCompleted patches a subtask's completion flag.
func (c *Client) SetSubtaskCompleted(ctx context.Context, taskID, subtaskID string, completed bool) error {
	req, err := jsonRequest(http.MethodPatch, taskPath(taskID, "/subtasks/"+url.PathEscape(subtaskID)),
		map[string]bool{"completed": completed})
	if err != nil {
		return err
	}
	return c.do(ctx, req, nil)
}

// DeleteSubtask removes a subtask.
func (c *Client) DeleteSubtask(ctx context.Context, taskID, subtaskID string) error {
	return c.do(ctx, request{
		method: http.MethodDelete,
		path:   taskPath(taskID, "/subtasks/"+url.PathEscape(subtaskID)),
	}, nil)
}
