// Copyright (C) 2026 TaskNexus
// SPDX-License-Identifier: AGPL-3.0-or-later

package devserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/tasknexus/tasknexus/internal/api"
	"github.com/tasknexus/tasknexus/internal/board"
	"github.com/tasknexus/tasknexus/internal/session"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrNotFound           = errors.New("not found")
)

type userRecord struct {
	session.User
	Password string
}

type accessToken struct {
	UserID  string
	Expires time.Time
}

type taskRecord struct {
	ID           string
	Title        string
	Comments     []api.Comment
	Participants []api.Person
	Activity     []api.Activity
	Subtasks     []api.Subtask
}

// Store is the in-memory backend state. It is safe for concurrent use.
type Store struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.RWMutex
	users   map[string]*userRecord // by id
	access  map[string]accessToken
	refresh map[string]string // refresh token -> user id
	boards  map[string]json.RawMessage
	tasks   map[string]*taskRecord
}

// NewStore creates an empty store. Access tokens live for ttl.
func NewStore(ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &Store{
		ttl:     ttl,
		now:     time.Now,
		users:   make(map[string]*userRecord),
		access:  make(map[string]accessToken),
		refresh: make(map[string]string),
		boards:  make(map[string]json.RawMessage),
		tasks:   make(map[string]*taskRecord),
	}
}

// AddUser registers a user that can log in with password.
func (s *Store) AddUser(u session.User, password string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = &userRecord{User: u, Password: password}
}

// AddTask registers a task with its participants.
func (s *Store) AddTask(id, title string, participants []api.Person) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[id] = &taskRecord{
		ID:           id,
		Title:        title,
		Participants: slices.Clone(participants),
		Activity:     []api.Activity{{ID: uuid.NewString(), Message: "Task created", CreatedAt: s.now().UTC()}},
	}
}

// Login checks credentials and issues a token pair.
func (s *Store) Login(email, password string) (api.LoginResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := lo.Find(lo.Values(s.users), func(u *userRecord) bool {
		return strings.EqualFold(u.Email, email)
	})
	if !ok || u.Password != password {
		return api.LoginResult{}, ErrInvalidCredentials
	}
	access, refresh := s.issueLocked(u.ID)
	return api.LoginResult{AccessToken: access, RefreshToken: refresh, User: u.User}, nil
}

// Refresh rotates a refresh token into a new pair.
func (s *Store) Refresh(refreshToken string) (string, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	userID, ok := s.refresh[refreshToken]
	if !ok {
		return "", "", ErrInvalidToken
	}
	delete(s.refresh, refreshToken)
	access, refresh := s.issueLocked(userID)
	return access, refresh, nil
}

func (s *Store) issueLocked(userID string) (string, string) {
	access := uuid.NewString()
	refresh := uuid.NewString()
	s.access[access] = accessToken{UserID: userID, Expires: s.now().Add(s.ttl)}
	s.refresh[refresh] = userID
	return access, refresh
}

// Authenticate resolves an access token to its user.
func (s *Store) Authenticate(token string) (session.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.access[token]
	if !ok || s.now().After(t.Expires) {
		return session.User{}, ErrInvalidToken
	}
	u, ok := s.users[t.UserID]
	if !ok {
		return session.User{}, ErrInvalidToken
	}
	return u.User, nil
}

// ExpireAccessTokens invalidates every access token; refresh tokens stay valid.
func (s *Store) ExpireAccessTokens() {
	s.mu.Lock()
	clear(s.access)
	s.mu.Unlock()
}

func boardID(userID, boardKey string) string { return userID + "/" + boardKey }

// BoardState returns the stored state, or nil when none was saved.
func (s *Store) BoardState(userID, boardKey string) json.RawMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.boards[boardID(userID, boardKey)]
}

func (s *Store) SaveBoardState(userID, boardKey string, state json.RawMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.boards[boardID(userID, boardKey)] = slices.Clone(state)
}

// ResetBoardState replaces the stored state with the role defaults.
func (s *Store) ResetBoardState(u session.User, boardKey string) (json.RawMessage, error) {
	role, err := board.ParseRole(u.Role)
	if err != nil {
		role = board.RoleClient
	}
	st := board.DefaultState(role, boardKey)
	st.UpdatedAt = s.now().UTC()
	raw, err := json.Marshal(st)
	if err != nil {
		return nil, fmt.Errorf("encode board state: %w", err)
	}
	s.SaveBoardState(u.ID, boardKey, raw)
	return raw, nil
}

func (s *Store) task(id string) (*taskRecord, error) {
	t, ok := s.tasks[id]
	if !ok {
		return nil, fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	return t, nil
}

// Thread returns a task's comments and participants.
func (s *Store) Thread(taskID string) (api.CommentThread, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, err := s.task(taskID)
	if err != nil {
		return api.CommentThread{}, err
	}
	return api.CommentThread{
		Comments:     nonNil(slices.Clone(t.Comments)),
		Participants: nonNil(slices.Clone(t.Participants)),
	}, nil
}

var mentionPattern = regexp.MustCompile(`@([\w.\-]+)`)

// AddComment stores a comment and records its mentions.
func (s *Store) AddComment(taskID string, author session.User, body string, attachments []api.Attachment) (api.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.task(taskID)
	if err != nil {
		return api.Comment{}, err
	}
	mentions := lo.Uniq(lo.Map(mentionPattern.FindAllStringSubmatch(body, -1), func(m []string, _ int) string {
		return m[1]
	}))
	c := api.Comment{
		ID:          uuid.NewString(),
		Author:      api.Person{ID: author.ID, DisplayName: author.DisplayName, Email: author.Email},
		Body:        body,
		CreatedAt:   s.now().UTC(),
		Mentions:    nonNil(mentions),
		Attachments: nonNil(attachments),
	}
	t.Comments = append(t.Comments, c)
	if !lo.ContainsBy(t.Participants, func(p api.Person) bool { return p.ID == author.ID }) {
		t.Participants = append(t.Participants, c.Author)
	}
	s.logActivityLocked(t, fmt.Sprintf("%s commented", author.DisplayName))
	return c, nil
}

// Activity returns a task's activity feed, newest first.
func (s *Store) Activity(taskID string) ([]api.Activity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, err := s.task(taskID)
	if err != nil {
		return nil, err
	}
	out := slices.Clone(t.Activity)
	slices.Reverse(out)
	return nonNil(out), nil
}

func (s *Store) logActivityLocked(t *taskRecord, msg string) {
	t.Activity = append(t.Activity, api.Activity{ID: uuid.NewString(), Message: msg, CreatedAt: s.now().UTC()})
}

// Subtasks returns a task's subtasks with the weighted completion percentage.
func (s *Store) Subtasks(taskID string) (api.SubtaskList, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, err := s.task(taskID)
	if err != nil {
		return api.SubtaskList{}, err
	}
	return api.SubtaskList{
		Subtasks:          nonNil(slices.Clone(t.Subtasks)),
		MilestoneProgress: milestoneProgress(t.Subtasks),
	}, nil
}

func milestoneProgress(subtasks []api.Subtask) float64 {
	total := lo.SumBy(subtasks, func(st api.Subtask) float64 { return st.Weight })
	if total <= 0 {
		return 0
	}
	done := lo.SumBy(subtasks, func(st api.Subtask) float64 {
		if st.Completed {
			return st.Weight
		}
		return 0
	})
	return float64(int(done/total*1000+0.5)) / 10
}

// AddSubtask appends a subtask. A non-positive weight becomes 1.
func (s *Store) AddSubtask(taskID string, in api.NewSubtask) (api.Subtask, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.task(taskID)
	if err != nil {
		return api.Subtask{}, err
	}
	weight := in.Weight
	if weight <= 0 {
		weight = 1
	}
	st := api.Subtask{
		ID:      uuid.NewString(),
		Title:   in.Title,
		DueDate: in.DueDate,
		Weight:  weight,
		Order:   len(t.Subtasks) + 1,
	}
	t.Subtasks = append(t.Subtasks, st)
	s.logActivityLocked(t, fmt.Sprintf("Milestone %q added", st.Title))
	return st, nil
}

func (s *Store) SetSubtaskCompleted(taskID, subtaskID string, completed bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.task(taskID)
	if err != nil {
		return err
	}
	i := slices.IndexFunc(t.Subtasks, func(st api.Subtask) bool { return st.ID == subtaskID })
	if i < 0 {
		return fmt.Errorf("subtask %s: %w", subtaskID, ErrNotFound)
	}
	t.Subtasks[i].Completed = completed
	verb := "reopened"
	if completed {
		verb = "completed"
	}
	s.logActivityLocked(t, fmt.Sprintf("Milestone %q %s", t.Subtasks[i].Title, verb))
	return nil
}

func (s *Store) DeleteSubtask(taskID, subtaskID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.task(taskID)
	if err != nil {
		return err
	}
	i := slices.IndexFunc(t.Subtasks, func(st api.Subtask) bool { return st.ID == subtaskID })
	if i < 0 {
		return fmt.Errorf("subtask %s: %w", subtaskID, ErrNotFound)
	}
	title := t.Subtasks[i].Title
	t.Subtasks = slices.Delete(t.Subtasks, i, i+1)
	for j := range t.Subtasks {
		t.Subtasks[j].Order = j + 1
	}
	s.logActivityLocked(t, fmt.Sprintf("Milestone %q removed", title))
	return nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
