// Copyright (C) 2026 TaskNexus
// SPDX-License-Identifier: AGPL-3.0-or-later

package devserver

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tasknexus/tasknexus/internal/api"
)

const maxUploadMemory = 8 << 20

// --- helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		getLog().Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func writeData(w http.ResponseWriter, status int, v any) {
	writeJSON(w, status, map[string]any{"data": v})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}

func writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeError(w, http.StatusInternalServerError, err.Error())
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

// --- auth ---

// Login handles POST /api/auth/login
func (s *Server) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	res, err := s.store.Login(req.Email, req.Password)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	getLog().Info().Str("user_id", res.User.ID).Msg("User logged in")
	writeData(w, http.StatusOK, res)
}

// Refresh handles POST /api/auth/refresh
func (s *Server) Refresh(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refreshToken"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	access, refresh, err := s.store.Refresh(req.RefreshToken)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	writeData(w, http.StatusOK, map[string]string{"accessToken": access, "refreshToken": refresh})
}

// --- board settings ---

type boardStateBody struct {
	BoardKey   string          `json:"boardKey"`
	BoardState json.RawMessage `json:"boardState"`
}

// GetBoardState handles GET /api/settings/board?boardKey=
func (s *Server) GetBoardState(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("boardKey")
	if key == "" {
		writeError(w, http.StatusBadRequest, "boardKey is required")
		return
	}
	state := s.store.BoardState(userFrom(r.Context()).ID, key)
	if state == nil {
		state = json.RawMessage("null")
	}
	writeData(w, http.StatusOK, boardStateBody{BoardKey: key, BoardState: state})
}

// SaveBoardState handles PUT /api/settings/board
func (s *Server) SaveBoardState(w http.ResponseWriter, r *http.Request) {
	var req boardStateBody
	if !decodeBody(w, r, &req) {
		return
	}
	if req.BoardKey == "" || len(req.BoardState) == 0 {
		writeError(w, http.StatusBadRequest, "boardKey and boardState are required")
		return
	}
	user := userFrom(r.Context())
	s.store.SaveBoardState(user.ID, req.BoardKey, req.BoardState)
	s.hub.Publish("board.updated", req, user.ID)
	writeData(w, http.StatusOK, req)
}

// ResetBoardState handles POST /api/settings/board/reset
func (s *Server) ResetBoardState(w http.ResponseWriter, r *http.Request) {
	var req boardStateBody
	if !decodeBody(w, r, &req) {
		return
	}
	if req.BoardKey == "" {
		writeError(w, http.StatusBadRequest, "boardKey is required")
		return
	}
	user := userFrom(r.Context())
	state, err := s.store.ResetBoardState(user, req.BoardKey)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	body := boardStateBody{BoardKey: req.BoardKey, BoardState: state}
	s.hub.Publish("settings.updated", map[string]any{"key": "board", "value": map[string]string{"boardKey": req.BoardKey}}, user.ID)
	s.hub.Publish("board.updated", body, user.ID)
	writeData(w, http.StatusOK, body)
}

// --- task collaboration ---

func (s *Server) taskUpdated(taskID, change string) {
	s.hub.Publish("task.updated", map[string]string{"taskId": taskID, "status": change}, "")
}

// GetComments handles GET /api/tasks/{id}/comments
func (s *Server) GetComments(w http.ResponseWriter, r *http.Request) {
	thread, err := s.store.Thread(chi.URLParam(r, "id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeData(w, http.StatusOK, thread)
}

// PostComment handles POST /api/tasks/{id}/comments (multipart)
func (s *Server) PostComment(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "id")
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid multipart body")
		return
	}
	body := strings.TrimSpace(r.FormValue("body"))

	var attachments []api.Attachment
	if r.MultipartForm != nil {
		for _, fh := range r.MultipartForm.File["attachments"] {
			f, err := fh.Open()
			if err != nil {
				writeError(w, http.StatusBadRequest, "Unreadable attachment")
				return
			}
			n, err := io.Copy(io.Discard, f)
			f.Close()
			if err != nil {
				writeError(w, http.StatusBadRequest, "Unreadable attachment")
				return
			}
			id := uuid.NewString()
			attachments = append(attachments, api.Attachment{ID: id, Name: fh.Filename, URL: "/files/" + id, Size: n})
		}
	}
	if body == "" && len(attachments) == 0 {
		writeError(w, http.StatusBadRequest, "Comment body or attachment is required")
		return
	}

	c, err := s.store.AddComment(taskID, userFrom(r.Context()), body, attachments)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	s.taskUpdated(taskID, "commented")
	writeData(w, http.StatusCreated, c)
}

// GetActivity handles GET /api/tasks/{id}/activity
func (s *Server) GetActivity(w http.ResponseWriter, r *http.Request) {
	activity, err := s.store.Activity(chi.URLParam(r, "id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeData(w, http.StatusOK, activity)
}

// GetSubtasks handles GET /api/tasks/{id}/subtasks
func (s *Server) GetSubtasks(w http.ResponseWriter, r *http.Request) {
	list, err := s.store.Subtasks(chi.URLParam(r, "id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeData(w, http.StatusOK, list)
}

// CreateSubtask handles POST /api/tasks/{id}/subtasks
func (s *Server) CreateSubtask(w http.ResponseWriter, r *http.Request) {
	var req api.NewSubtask
	if !decodeBody(w, r, &req) {
		return
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		writeError(w, http.StatusBadRequest, "Title is required")
		return
	}
	if req.DueDate != "" {
		if _, err := time.Parse(time.DateOnly, req.DueDate); err != nil {
			writeError(w, http.StatusBadRequest, "dueDate must be YYYY-MM-DD")
			return
		}
	}
	taskID := chi.URLParam(r, "id")
	st, err := s.store.AddSubtask(taskID, req)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	s.taskUpdated(taskID, "milestone_added")
	writeData(w, http.StatusCreated, st)
}

// UpdateSubtask handles PATCH /api/tasks/{id}/subtasks/{subtaskId}
func (s *Server) UpdateSubtask(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Completed *bool `json:"completed"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Completed == nil {
		writeError(w, http.StatusBadRequest, "completed is required")
		return
	}
	taskID := chi.URLParam(r, "id")
	if err := s.store.SetSubtaskCompleted(taskID, chi.URLParam(r, "subtaskId"), *req.Completed); err != nil {
		writeStoreError(w, err)
		return
	}
	s.taskUpdated(taskID, "milestone_updated")
	w.WriteHeader(http.StatusNoContent)
}

// DeleteSubtask handles DELETE /api/tasks/{id}/subtasks/{subtaskId}
func (s *Server) DeleteSubtask(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "id")
	if err := s.store.DeleteSubtask(taskID, chi.URLParam(r, "subtaskId")); err != nil {
		writeStoreError(w, err)
		return
	}
	s.taskUpdated(taskID, "milestone_removed")
	w.WriteHeader(http.StatusNoContent)
}
