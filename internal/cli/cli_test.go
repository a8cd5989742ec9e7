// Copyright (C) 2026 TaskNexus
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/tasknexus/tasknexus/internal/api"
	"github.com/tasknexus/tasknexus/internal/board"
	"github.com/tasknexus/tasknexus/internal/devserver"
	"github.com/tasknexus/tasknexus/internal/session"
	"github.com/tasknexus/tasknexus/test/testutil"
)

type harness struct {
	t       *testing.T
	backend *testutil.Backend
	dir     string
}

// newHarness points the CLI at a seeded backend through a temp config file
// with file storage and logging switched off.
func newHarness(t *testing.T) *harness {
	t.Helper()
	b := testutil.NewBackend(t)
	dir := t.TempDir()

	cfg := fmt.Sprintf(`api:
  base_url: %s/api
  timeout: 5s
storage:
  driver: file
  path: %s
log:
  level: ERROR
  output:
    - type: file
      enabled: false
    - type: console
      enabled: false
realtime:
  reconnect:
    max_retries: 1
    initial_backoff: 10ms
`, b.HTTP.URL, filepath.Join(dir, "storage.json"))
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o600))
	t.Setenv("TASKNEXUS_CONFIG", path)

	return &harness{t: t, backend: b, dir: dir}
}

func (h *harness) run(args ...string) (string, string, error) {
	h.t.Helper()
	var out, errOut bytes.Buffer
	err := Run(context.Background(), args, &out, &errOut)
	return out.String(), errOut.String(), err
}

func (h *harness) mustRun(args ...string) string {
	h.t.Helper()
	out, errOut, err := h.run(args...)
	require.NoError(h.t, err, "stderr: %s", errOut)
	return out
}

func (h *harness) login(u session.User) {
	h.t.Helper()
	h.mustRun("login", "--email", u.Email, "--password", devserver.DemoPassword)
}

func TestRun_Basics(t *testing.T) {
	out, _, err := (&harness{t: t}).run("version")
	require.NoError(t, err)
	assert.Equal(t, "tasknexus version "+appVersion+"\n", out)

	out, _, err = (&harness{t: t}).run()
	require.NoError(t, err)
	assert.Contains(t, out, "Commands:")

	_, errOut, err := (&harness{t: t}).run("frobnicate")
	assert.ErrorIs(t, err, errUsage)
	assert.Contains(t, errOut, "Unknown command: frobnicate")

	_, errOut, err = (&harness{t: t}).run("board")
	assert.ErrorIs(t, err, errUsage)
	assert.Contains(t, errOut, "Usage: tasknexus board")
}

func TestLoginWhoamiLogout(t *testing.T) {
	h := newHarness(t)

	_, _, err := h.run("whoami")
	assert.ErrorIs(t, err, errNotLoggedIn)

	out := h.mustRun("login", "--email", devserver.DemoClient.Email, "--password", devserver.DemoPassword)
	assert.Contains(t, out, "Signed in as Casey Client")

	out = h.mustRun("whoami")
	assert.Contains(t, out, devserver.DemoClient.Email)
	assert.Contains(t, out, "client")

	var u session.User
	require.NoError(t, json.Unmarshal([]byte(h.mustRun("whoami", "--output", "json")), &u))
	assert.Equal(t, devserver.DemoClient, u)

	var y map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(h.mustRun("whoami", "--output", "yaml")), &y))
	assert.Equal(t, "Casey Client", y["displayName"])

	assert.Contains(t, h.mustRun("logout"), "Signed out")
	_, _, err = h.run("whoami")
	assert.ErrorIs(t, err, errNotLoggedIn)
}

func TestLogin_WrongPassword(t *testing.T) {
	h := newHarness(t)

	_, _, err := h.run("login", "--email", devserver.DemoClient.Email, "--password", "nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "login failed")
	assert.Contains(t, err.Error(), "HTTP 401")
}

func TestOutputFormat_Unknown(t *testing.T) {
	h := newHarness(t)

	_, _, err := h.run("prefs", "list", "--output", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown output format")
}

func TestPrefs(t *testing.T) {
	h := newHarness(t)

	assert.Equal(t, "system\n", h.mustRun("prefs", "get", "theme"))

	assert.Equal(t, "theme = dark\n", h.mustRun("prefs", "set", "theme", "dark"))
	assert.Equal(t, "dark\n", h.mustRun("prefs", "get", "theme"))

	assert.Equal(t, "notifications.sound = true\n", h.mustRun("prefs", "toggle", "notifications.sound"))
	assert.Equal(t, "goals.weeklyEarnings = 750\n", h.mustRun("prefs", "set", "goals.weeklyEarnings", "750"))

	_, _, err := h.run("prefs", "set", "theme", "neon")
	assert.Error(t, err)
	_, _, err = h.run("prefs", "set", "goals.weeklyEarnings", "lots")
	assert.Error(t, err)
	_, _, err = h.run("prefs", "toggle", "theme")
	assert.Error(t, err)

	var rows []prefRow
	require.NoError(t, json.Unmarshal([]byte(h.mustRun("prefs", "list", "--output", "json")), &rows))
	byPath := map[string]prefRow{}
	for _, r := range rows {
		byPath[r.Path] = r
	}
	assert.Equal(t, "dark", byPath["theme"].Value)
	assert.Equal(t, "system", byPath["theme"].Default)
	assert.Equal(t, []string{"system", "light", "dark"}, byPath["theme"].Allowed)
	assert.Equal(t, 750.0, byPath["goals.weeklyEarnings"].Value)

	h.mustRun("prefs", "reset")
	assert.Equal(t, "system\n", h.mustRun("prefs", "get", "theme"))
	assert.Equal(t, "false\n", h.mustRun("prefs", "get", "notifications.sound"))
}

func TestPrefs_UnknownPathInfersKind(t *testing.T) {
	h := newHarness(t)

	h.mustRun("prefs", "set", "labs.beta", "true")
	h.mustRun("prefs", "set", "labs.limit", "3")
	h.mustRun("prefs", "set", "labs.mode", "fast")

	assert.Equal(t, "true\n", h.mustRun("prefs", "get", "labs.beta"))
	assert.Equal(t, "3\n", h.mustRun("prefs", "get", "labs.limit"))
	assert.Equal(t, "fast\n", h.mustRun("prefs", "get", "labs.mode"))

	_, _, err := h.run("prefs", "get", "labs.missing")
	assert.Error(t, err)
}

func showBoard(t *testing.T, h *harness) board.State {
	t.Helper()
	var st board.State
	require.NoError(t, json.Unmarshal([]byte(h.mustRun("board", "show", "--output", "json")), &st))
	return st
}

func TestBoard(t *testing.T) {
	h := newHarness(t)

	_, _, err := h.run("board", "show")
	assert.ErrorIs(t, err, errNotLoggedIn)

	h.login(devserver.DemoClient)

	st := showBoard(t, h)
	assert.Equal(t, "client-dashboard", st.BoardKey)
	assert.Equal(t, []string{"planning", "execution", "done", "other"}, st.ColumnOrder)

	assert.Contains(t, h.mustRun("board", "move", "t1", "", "planning"), "Moved t1 to planning")
	h.mustRun("board", "move", "t2", "", "planning")
	h.mustRun("board", "move", "--index", "0", "t2", "planning", "done")
	h.mustRun("board", "move", "t1", "planning", "done")

	st = showBoard(t, h)
	assert.Equal(t, []string{"t2", "t1"}, st.TaskOrder["done"])
	assert.Empty(t, st.TaskOrder["planning"])
	assert.NotNil(t, h.backend.Server.Store().BoardState(devserver.DemoClient.ID, "client-dashboard"))

	h.mustRun("board", "reorder", "done", "0")
	h.mustRun("board", "hide", "other")
	h.mustRun("board", "set", "--view", "list", "--sort", "due")

	st = showBoard(t, h)
	assert.Equal(t, []string{"done", "planning", "execution", "other"}, st.ColumnOrder)
	assert.False(t, st.Columns["other"].IsVisible())
	assert.Equal(t, "list", st.View)
	assert.Equal(t, "due", st.Sort)
	assert.Equal(t, "all", st.Filter)

	text := h.mustRun("board", "show")
	assert.Contains(t, text, "Board: client-dashboard")
	assert.Contains(t, text, "t2, t1")

	h.mustRun("board", "unhide", "other")
	assert.True(t, showBoard(t, h).Columns["other"].IsVisible())

	_, _, err = h.run("board", "move", "t1", "done", "nowhere")
	assert.ErrorContains(t, err, `unknown column "nowhere"`)
	_, _, err = h.run("board", "reorder", "done", "9")
	assert.ErrorContains(t, err, "out of range")
	_, _, err = h.run("board", "set")
	assert.Error(t, err)

	var reset board.State
	require.NoError(t, json.Unmarshal([]byte(h.mustRun("board", "reset", "--output", "json")), &reset))
	assert.Equal(t, []string{"planning", "execution", "done", "other"}, reset.ColumnOrder)
}

func TestBoard_RoleFromSession(t *testing.T) {
	h := newHarness(t)
	h.login(devserver.DemoFreelancer)

	st := showBoard(t, h)
	assert.Equal(t, "freelancer-dashboard", st.BoardKey)
	assert.Equal(t, []string{"available", "active", "review", "completed"}, st.ColumnOrder)
}

func TestTask_Comments(t *testing.T) {
	h := newHarness(t)
	h.login(devserver.DemoFreelancer)

	attachment := filepath.Join(h.dir, "notes.txt")
	require.NoError(t, os.WriteFile(attachment, []byte("hello world"), 0o600))

	out := h.mustRun("task", "comment", "--attach", attachment, devserver.DemoTaskID, "Draft is up", "@client")
	assert.Contains(t, out, "Comment posted")

	var thread api.CommentThread
	require.NoError(t, json.Unmarshal([]byte(h.mustRun("task", "comments", "--output", "json", devserver.DemoTaskID)), &thread))
	require.Len(t, thread.Comments, 2)
	last := thread.Comments[1]
	assert.Equal(t, "Draft is up @client", last.Body)
	assert.Equal(t, []string{"client"}, last.Mentions)
	require.Len(t, last.Attachments, 1)
	assert.Equal(t, "notes.txt", last.Attachments[0].Name)
	assert.EqualValues(t, 11, last.Attachments[0].Size)

	text := h.mustRun("task", "comments", devserver.DemoTaskID)
	assert.Contains(t, text, "attachment: notes.txt (11 bytes)")
	assert.Contains(t, text, "@client @ali @admin")

	assert.Contains(t, h.mustRun("task", "activity", devserver.DemoTaskID), "Ali Khan commented")

	_, _, err := h.run("task", "comment", devserver.DemoTaskID, "   ")
	assert.ErrorContains(t, err, "write a comment or attach a file")

	_, _, err = h.run("task", "comments", "task-404")
	assert.ErrorContains(t, err, "HTTP 404")
}

func TestTask_Subtasks(t *testing.T) {
	h := newHarness(t)
	h.login(devserver.DemoClient)

	var list api.SubtaskList
	require.NoError(t, json.Unmarshal([]byte(h.mustRun("task", "subtasks", "--output", "json", devserver.DemoTaskID)), &list))
	require.Len(t, list.Subtasks, 3)
	assert.InDelta(t, 33.3, list.MilestoneProgress, 0.05)

	out := h.mustRun("task", "subtask", "add", "--due", "2026-11-20", "--weight", "4", devserver.DemoTaskID, "QA", "pass")
	assert.Contains(t, out, "Milestone added")
	assert.Contains(t, out, "QA pass")

	require.NoError(t, json.Unmarshal([]byte(h.mustRun("task", "subtasks", "--output", "json", devserver.DemoTaskID)), &list))
	require.Len(t, list.Subtasks, 4)
	added := list.Subtasks[3]
	assert.Equal(t, "QA pass", added.Title)
	assert.Equal(t, "2026-11-20", added.DueDate)
	assert.Equal(t, 4.0, added.Weight)

	h.mustRun("task", "subtask", "toggle", devserver.DemoTaskID, added.ID)
	require.NoError(t, json.Unmarshal([]byte(h.mustRun("task", "subtasks", "--output", "json", devserver.DemoTaskID)), &list))
	assert.True(t, list.Subtasks[3].Completed)
	assert.InDelta(t, 60.0, list.MilestoneProgress, 0.05)

	h.mustRun("task", "subtask", "delete", devserver.DemoTaskID, added.ID)
	require.NoError(t, json.Unmarshal([]byte(h.mustRun("task", "subtasks", "--output", "json", devserver.DemoTaskID)), &list))
	assert.Len(t, list.Subtasks, 3)

	_, _, err := h.run("task", "subtask", "add", "--due", "soon", devserver.DemoTaskID, "Bad date")
	assert.ErrorContains(t, err, "due date must look like")
	_, _, err = h.run("task", "subtask", "toggle", devserver.DemoTaskID, "missing")
	assert.ErrorContains(t, err, `no milestone "missing"`)
}

func TestEvents(t *testing.T) {
	for _, transport := range []string{"sse", "websocket"} {
		t.Run(transport, func(t *testing.T) {
			h := newHarness(t)
			h.login(devserver.DemoClient)

			var out, errOut bytes.Buffer
			done := make(chan error, 1)
			go func() {
				done <- Run(context.Background(), []string{"events", "--transport", transport, "--limit", "2", "--output", "json"}, &out, &errOut)
			}()

			hub := h.backend.Server.Hub()
			require.Eventually(t, func() bool { return hub.Subscribers() == 1 }, 5*time.Second, 10*time.Millisecond)
			hub.Publish("task.updated", map[string]string{"taskId": devserver.DemoTaskID, "change": "comment"}, "")

			select {
			case err := <-done:
				require.NoError(t, err, "stderr: %s", errOut.String())
			case <-time.After(5 * time.Second):
				t.Fatal("events command did not exit")
			}

			lines := strings.Split(strings.TrimSpace(out.String()), "\n")
			require.Len(t, lines, 2)
			var first, second eventLine
			require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
			require.NoError(t, json.Unmarshal([]byte(lines[1]), &second))
			assert.Equal(t, "connected", first.Type)
			assert.Equal(t, "task.updated", second.Type)
			assert.JSONEq(t, `{"taskId":"task-1001","change":"comment"}`, string(second.Data))
		})
	}
}

func TestEvents_RequiresLogin(t *testing.T) {
	h := newHarness(t)

	_, _, err := h.run("events")
	assert.ErrorIs(t, err, errNotLoggedIn)
}
