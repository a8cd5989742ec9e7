// Copyright (C) 2026 TaskNexus
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"time"

	"github.com/tasknexus/tasknexus/internal/session"
)

// Person is a comment author or a mention candidate.
type Person struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	Email       string `json:"email"`
}

// Attachment is a file stored with a comment.
type Attachment struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
	URL  string `json:"url,omitempty"`
	Size int64  `json:"size"`
}

// Comment on a task.
type Comment struct {
	ID          string       `json:"id"`
	Author      Person       `json:"author"`
	Body        string       `json:"body"`
	CreatedAt   time.Time    `json:"createdAt"`
	Mentions    []string     `json:"mentions"`
	Attachments []Attachment `json:"attachments"`
}

// CommentThread is the payload of GET /tasks/:id/comments.
type CommentThread struct {
	Comments     []Comment `json:"comments"`
	Participants []Person  `json:"participants"`
}

// Activity is one entry of a task's activity feed.
type Activity struct {
	ID        string    `json:"id"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}

// Subtask is a milestone inside a task.
type Subtask struct {
	ID        string  `json:"id"`
	Title     string  `json:"title"`
	DueDate   string  `json:"dueDate,omitempty"` // YYYY-MM-DD
	Weight    float64 `json:"weight"`
	Completed bool    `json:"completed"`
	Order     int     `json:"order"`
}

// SubtaskList is the payload of GET /tasks/:id/subtasks.
type SubtaskList struct {
	Subtasks          []Subtask `json:"subtasks"`
	MilestoneProgress float64   `json:"milestoneProgress"`
}

// NewSubtask is the body of POST /tasks/:id/subtasks.
type NewSubtask struct {
	Title   string  `json:"title"`
	DueDate string  `json:"dueDate,omitempty"`
	Weight  float64 `json:"weight"`
}

// Upload is a file to attach to a comment.
type Upload struct {
	Name string
	Data []byte
}

// LoginResult is returned by POST /auth/login.
type LoginResult struct {
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
	User         session.User `json:"user"`
}

type tokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// envelope is the {data: ...} wrapper every endpoint uses.
type envelope[T any] struct {
	Data T `json:"data"`
}
