// Copyright (C) 2026 TaskNexus
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package collab drives the collaboration panel of one task: comments,
// milestones and the activity feed. Every write is followed by a full
// refetch; nothing is updated optimistically.
package collab

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/tasknexus/tasknexus/internal/api"
	"github.com/tasknexus/tasknexus/internal/logger"
)

var (
	log     *zerolog.Logger
	logOnce sync.Once
)

func getLog() *zerolog.Logger {
	logOnce.Do(func() {
		l := logger.GetCollabLogger()
		log = &l
	})
	return log
}

var (
	ErrNoTask         = errors.New("collab: no task selected")
	ErrEmptyComment   = errors.New("collab: comment is empty")
	ErrEmptyTitle     = errors.New("collab: subtask title is required")
	ErrInvalidDueDate = errors.New("collab: due date must be YYYY-MM-DD")
)

// Tab is the selected panel tab. Switching tabs never fetches.
type Tab int

const (
	TabComments Tab = iota
	TabMilestones
	TabActivity
)

func (t Tab) String() string {
	switch t {
	case TabMilestones:
		return "milestones"
	case TabActivity:
		return "activity"
	default:
		return "comments"
	}
}

// ParseTab maps a tab name to a Tab.
func ParseTab(s string) (Tab, error) {
	switch s {
	case "comments":
		return TabComments, nil
	case "milestones":
		return TabMilestones, nil
	case "activity":
		return TabActivity, nil
	default:
		return 0, fmt.Errorf("unknown tab %q", s)
	}
}

// Level is the severity of a notification.
type Level int

const (
	LevelInfo Level = iota
	LevelSuccess
	LevelError
)

// Notifier shows transient messages to the user.
type Notifier interface {
	Notify(level Level, msg string)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Level, string)

func (f NotifierFunc) Notify(level Level, msg string) { f(level, msg) }

// Backend is the REST surface the panel uses. *api.Client implements it.
type Backend interface {
	ListComments(ctx context.Context, taskID string) (*api.CommentThread, error)
	PostComment(ctx context.Context, taskID, body string, files []api.Upload) error
	ListActivity(ctx context.Context, taskID string) ([]api.Activity, error)
	ListSubtasks(ctx context.Context, taskID string) (*api.SubtaskList, error)
	CreateSubtask(ctx context.Context, taskID string, in api.NewSubtask) error
	SetSubtaskCompleted(ctx context.Context, taskID, subtaskID string, completed bool) error
	DeleteSubtask(ctx context.Context, taskID, subtaskID string) error
}

// SubtaskDraft is the new-milestone form.
type SubtaskDraft struct {
	Title   string
	DueDate string
	Weight  float64
}

// View is a snapshot of the panel.
type View struct {
	TaskID            string
	Tab               Tab
	Comments          []api.Comment
	Participants      []api.Person
	Activity          []api.Activity
	Subtasks          []api.Subtask
	MilestoneProgress float64
	Draft             string
	Files             []api.Upload
	SubtaskDraft      SubtaskDraft
}

// Panel holds the collaboration data of one task.
type Panel struct {
	backend  Backend
	notifier Notifier

	mu   sync.Mutex
	view View
}

// NewPanel creates a panel for taskID. Call Refresh to load it.
func NewPanel(backend Backend, notifier Notifier, taskID string) *Panel {
	if notifier == nil {
		notifier = NotifierFunc(func(Level, string) {})
	}
	return &Panel{backend: backend, notifier: notifier, view: View{TaskID: taskID}}
}

// View returns a copy of the panel state.
func (p *Panel) View() View {
	p.mu.Lock()
	defer p.mu.Unlock()
	v := p.view
	v.Comments = slices.Clone(v.Comments)
	v.Participants = slices.Clone(v.Participants)
	v.Activity = slices.Clone(v.Activity)
	v.Subtasks = slices.Clone(v.Subtasks)
	v.Files = slices.Clone(v.Files)
	return v
}

// SetTaskID switches the panel to another task and drops the loaded data.
func (p *Panel) SetTaskID(taskID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.view.TaskID == taskID {
		return
	}
	p.view = View{TaskID: taskID, Tab: p.view.Tab}
}

func (p *Panel) SetTab(t Tab) {
	p.mu.Lock()
	p.view.Tab = t
	p.mu.Unlock()
}

func (p *Panel) SetDraft(body string) {
	p.mu.Lock()
	p.view.Draft = body
	p.mu.Unlock()
}

// AddFile attaches a file to the pending comment.
func (p *Panel) AddFile(f api.Upload) {
	p.mu.Lock()
	p.view.Files = append(p.view.Files, f)
	p.mu.Unlock()
}

// RemoveFile drops the attachment at index i.
func (p *Panel) RemoveFile(i int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if i >= 0 && i < len(p.view.Files) {
		p.view.Files = slices.Delete(p.view.Files, i, i+1)
	}
}

func (p *Panel) SetSubtaskDraft(d SubtaskDraft) {
	p.mu.Lock()
	p.view.SubtaskDraft = d
	p.mu.Unlock()
}

// MentionCandidates matches the trailing "@query" of the draft against the
// participants.
func (p *Panel) MentionCandidates() []api.Person {
	p.mu.Lock()
	defer p.mu.Unlock()
	q, ok := MentionQuery(p.view.Draft)
	if !ok {
		return nil
	}
	return MatchParticipants(p.view.Participants, q)
}

// SelectMention completes the trailing mention token with person.
func (p *Panel) SelectMention(person api.Person) {
	p.mu.Lock()
	p.view.Draft = ApplyMention(p.view.Draft, person)
	p.mu.Unlock()
}

func (p *Panel) taskID() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.view.TaskID
}

// Refresh fetches comments, activity and subtasks concurrently. Each
// collection is replaced as soon as its own request succeeds; a failing
// request leaves its collection as it was. Failures produce one
// notification.
func (p *Panel) Refresh(ctx context.Context) error {
	taskID := p.taskID()
	if taskID == "" {
		return ErrNoTask
	}

	var g errgroup.Group
	g.Go(func() error {
		thread, err := p.backend.ListComments(ctx, taskID)
		if err != nil {
			return fmt.Errorf("load comments: %w", err)
		}
		p.apply(taskID, func(v *View) {
			v.Comments = thread.Comments
			v.Participants = thread.Participants
		})
		return nil
	})
	g.Go(func() error {
		activity, err := p.backend.ListActivity(ctx, taskID)
		if err != nil {
			return fmt.Errorf("load activity: %w", err)
		}
		p.apply(taskID, func(v *View) { v.Activity = activity })
		return nil
	})
	g.Go(func() error {
		list, err := p.backend.ListSubtasks(ctx, taskID)
		if err != nil {
			return fmt.Errorf("load milestones: %w", err)
		}
		p.apply(taskID, func(v *View) {
			v.Subtasks = list.Subtasks
			v.MilestoneProgress = list.MilestoneProgress
		})
		return nil
	})

	if err := g.Wait(); err != nil {
		getLog().Warn().Err(err).Str("task_id", taskID).Msg("Collaboration refresh failed")
		p.notifier.Notify(LevelError, "Failed to load collaboration data: "+api.Message(errors.Unwrap(err)))
		return err
	}
	return nil
}

// apply runs fn unless the panel moved to another task meanwhile.
func (p *Panel) apply(taskID string, fn func(*View)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.view.TaskID == taskID {
		fn(&p.view)
	}
}

// SubmitComment posts the draft with its attachments. A blank draft
// without files is rejected before any request. The draft is cleared only
// after the post succeeds.
func (p *Panel) SubmitComment(ctx context.Context) error {
	p.mu.Lock()
	taskID, body, files := p.view.TaskID, p.view.Draft, slices.Clone(p.view.Files)
	p.mu.Unlock()

	if taskID == "" {
		return ErrNoTask
	}
	if strings.TrimSpace(body) == "" && len(files) == 0 {
		p.notifier.Notify(LevelError, "Write a comment or attach a file")
		return ErrEmptyComment
	}

	if err := p.backend.PostComment(ctx, taskID, strings.TrimSpace(body), files); err != nil {
		p.notifier.Notify(LevelError, "Failed to post comment: "+api.Message(err))
		return fmt.Errorf("post comment: %w", err)
	}
	p.apply(taskID, func(v *View) {
		v.Draft = ""
		v.Files = nil
	})
	p.notifier.Notify(LevelSuccess, "Comment posted")
	return p.Refresh(ctx)
}

// CreateSubtask posts the subtask draft. A blank title is rejected before
// any request; a zero weight is sent as 1.
func (p *Panel) CreateSubtask(ctx context.Context) error {
	p.mu.Lock()
	taskID, d := p.view.TaskID, p.view.SubtaskDraft
	p.mu.Unlock()

	if taskID == "" {
		return ErrNoTask
	}
	title := strings.TrimSpace(d.Title)
	if title == "" {
		p.notifier.Notify(LevelError, "Milestone title is required")
		return ErrEmptyTitle
	}
	due := strings.TrimSpace(d.DueDate)
	if due != "" {
		if _, err := time.Parse(time.DateOnly, due); err != nil {
			p.notifier.Notify(LevelError, "Due date must look like 2026-01-31")
			return ErrInvalidDueDate
		}
	}
	weight := d.Weight
	if weight <= 0 {
		weight = 1
	}

	if err := p.backend.CreateSubtask(ctx, taskID, api.NewSubtask{Title: title, DueDate: due, Weight: weight}); err != nil {
		p.notifier.Notify(LevelError, "Failed to create milestone: "+api.Message(err))
		return fmt.Errorf("create subtask: %w", err)
	}
	p.apply(taskID, func(v *View) { v.SubtaskDraft = SubtaskDraft{} })
	p.notifier.Notify(LevelSuccess, "Milestone added")
	return p.Refresh(ctx)
}

// ToggleSubtask flips a subtask's completion on the server, then refetches.
func (p *Panel) ToggleSubtask(ctx context.Context, st api.Subtask) error {
	taskID := p.taskID()
	if taskID == "" {
		return ErrNoTask
	}
	if err := p.backend.SetSubtaskCompleted(ctx, taskID, st.ID, !st.Completed); err != nil {
		p.notifier.Notify(LevelError, "Failed to update milestone: "+api.Message(err))
		return fmt.Errorf("toggle subtask %s: %w", st.ID, err)
	}
	return p.Refresh(ctx)
}

// DeleteSubtask removes a subtask, then refetches.
func (p *Panel) DeleteSubtask(ctx context.Context, subtaskID string) error {
	taskID := p.taskID()
	if taskID == "" {
		return ErrNoTask
	}
	if err := p.backend.DeleteSubtask(ctx, taskID, subtaskID); err != nil {
		p.notifier.Notify(LevelError, "Failed to delete milestone: "+api.Message(err))
		return fmt.Errorf("delete subtask %s: %w", subtaskID, err)
	}
	return p.Refresh(ctx)
}
