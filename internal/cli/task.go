// Copyright (C) 2026 TaskNexus
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/samber/lo"

	"github.com/tasknexus/tasknexus/internal/api"
	"github.com/tasknexus/tasknexus/internal/collab"
)

const (
	taskUsage    = "comments|comment|activity|subtasks|subtask [flags] <task-id> [arguments]"
	subtaskUsage = "add|toggle|delete [flags] <task-id> [arguments]"
)

func taskCommand(ctx context.Context, args []string, s streams) error {
	sub, rest, err := subcommand("task", args, s, taskUsage)
	if err != nil {
		return err
	}

	switch sub {
	case "comments":
		return taskComments(ctx, rest, s)
	case "comment":
		return taskComment(ctx, rest, s)
	case "activity":
		return taskActivity(ctx, rest, s)
	case "subtasks", "milestones":
		return taskSubtasks(ctx, rest, s)
	case "subtask", "milestone":
		return subtaskCommand(ctx, rest, s)
	default:
		return unknownSubcommand("task", sub, s, taskUsage)
	}
}

func subtaskCommand(ctx context.Context, args []string, s streams) error {
	sub, rest, err := subcommand("task subtask", args, s, subtaskUsage)
	if err != nil {
		return err
	}

	switch sub {
	case "add":
		return subtaskAdd(ctx, rest, s)
	case "toggle":
		return subtaskToggle(ctx, rest, s)
	case "delete", "rm":
		return subtaskDelete(ctx, rest, s)
	default:
		return unknownSubcommand("task subtask", sub, s, subtaskUsage)
	}
}

// stringList collects a repeatable flag.
type stringList []string

func (l *stringList) String() string { return strings.Join(*l, ",") }

func (l *stringList) Set(v string) error {
	*l = append(*l, v)
	return nil
}

// openPanel signs in and builds a collaboration panel for the task. Success
// notices go to stdout; failures come back as errors.
func openPanel(ctx context.Context, opts *globalOptions, s streams, taskID string) (*env, *collab.Panel, error) {
	e, err := openEnv(ctx, opts, s)
	if err != nil {
		return nil, nil, err
	}
	if err := e.requireLogin(ctx); err != nil {
		e.Close()
		return nil, nil, err
	}
	notifier := collab.NotifierFunc(func(level collab.Level, msg string) {
		if level != collab.LevelError && e.out.format == "text" {
			fmt.Fprintln(s.out, msg)
		}
	})
	return e, collab.NewPanel(e.client, notifier, taskID), nil
}

// refreshed loads the panel and unwraps the failure for display.
func refreshed(ctx context.Context, p *collab.Panel) (collab.View, error) {
	if err := p.Refresh(ctx); err != nil {
		return collab.View{}, describe(err)
	}
	return p.View(), nil
}

func taskComments(ctx context.Context, args []string, s streams) error {
	fs, opts := newFlagSet("task comments", s)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireArgs(fs, 1, "<task-id>"); err != nil {
		return err
	}

	e, panel, err := openPanel(ctx, opts, s, fs.Arg(0))
	if err != nil {
		return err
	}
	defer e.Close()

	v, err := refreshed(ctx, panel)
	if err != nil {
		return err
	}
	thread := api.CommentThread{Comments: v.Comments, Participants: v.Participants}
	return e.out.print(thread, func(w io.Writer) {
		if len(v.Comments) == 0 {
			fmt.Fprintln(w, "No comments yet.")
			return
		}
		for _, c := range v.Comments {
			fmt.Fprintf(w, "%s  %s\n", c.CreatedAt.Local().Format("2006-01-02 15:04"), c.Author.DisplayName)
			if c.Body != "" {
				fmt.Fprintf(w, "  %s\n", c.Body)
			}
			for _, a := range c.Attachments {
				fmt.Fprintf(w, "  attachment: %s (%d bytes)\n", a.Name, a.Size)
			}
			fmt.Fprintln(w)
		}
		names := lo.Map(v.Participants, func(p api.Person, _ int) string { return "@" + collab.MentionHandle(p) })
		fmt.Fprintf(w, "Participants: %s\n", strings.Join(names, " "))
	})
}

func taskComment(ctx context.Context, args []string, s streams) error {
	fs, opts := newFlagSet("task comment", s)
	var attach stringList
	fs.Var(&attach, "attach", "File to attach (repeatable)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireArgs(fs, 1, "[--attach FILE]... <task-id> [body]"); err != nil {
		return err
	}

	e, panel, err := openPanel(ctx, opts, s, fs.Arg(0))
	if err != nil {
		return err
	}
	defer e.Close()

	for _, path := range attach {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read attachment: %w", err)
		}
		panel.AddFile(api.Upload{Name: filepath.Base(path), Data: data})
	}
	panel.SetDraft(strings.Join(fs.Args()[1:], " "))

	if err := panel.SubmitComment(ctx); err != nil {
		if errors.Is(err, collab.ErrEmptyComment) {
			return errors.New("write a comment or attach a file")
		}
		return describe(err)
	}
	return nil
}

func taskActivity(ctx context.Context, args []string, s streams) error {
	fs, opts := newFlagSet("task activity", s)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireArgs(fs, 1, "<task-id>"); err != nil {
		return err
	}

	e, panel, err := openPanel(ctx, opts, s, fs.Arg(0))
	if err != nil {
		return err
	}
	defer e.Close()

	v, err := refreshed(ctx, panel)
	if err != nil {
		return err
	}
	return e.out.print(v.Activity, func(w io.Writer) {
		if len(v.Activity) == 0 {
			fmt.Fprintln(w, "No activity yet.")
			return
		}
		for _, a := range v.Activity {
			fmt.Fprintf(w, "%s  %s\n", a.CreatedAt.Local().Format("2006-01-02 15:04"), a.Message)
		}
	})
}

func taskSubtasks(ctx context.Context, args []string, s streams) error {
	fs, opts := newFlagSet("task subtasks", s)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireArgs(fs, 1, "<task-id>"); err != nil {
		return err
	}

	e, panel, err := openPanel(ctx, opts, s, fs.Arg(0))
	if err != nil {
		return err
	}
	defer e.Close()

	v, err := refreshed(ctx, panel)
	if err != nil {
		return err
	}
	return printSubtasks(e.out, v)
}

func printSubtasks(p printer, v collab.View) error {
	list := api.SubtaskList{Subtasks: v.Subtasks, MilestoneProgress: v.MilestoneProgress}
	return p.print(list, func(w io.Writer) {
		fmt.Fprintf(w, "%-4s  %-14s  %-30s  %-10s  %s\n", "DONE", "ID", "TITLE", "DUE", "WEIGHT")
		fmt.Fprintf(w, "%s\n", strings.Repeat("-", 72))
		for _, st := range v.Subtasks {
			done := "[ ]"
			if st.Completed {
				done = "[x]"
			}
			fmt.Fprintf(w, "%-4s  %-14s  %-30s  %-10s  %g\n", done, st.ID, st.Title, orDash(st.DueDate), st.Weight)
		}
		fmt.Fprintf(w, "\nProgress: %.1f%%\n", v.MilestoneProgress)
	})
}

func subtaskAdd(ctx context.Context, args []string, s streams) error {
	fs, opts := newFlagSet("task subtask add", s)
	due := fs.String("due", "", "Due date (YYYY-MM-DD)")
	weight := fs.Float64("weight", 1, "Relative weight")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireArgs(fs, 1, "[--due DATE] [--weight N] <task-id> [title]"); err != nil {
		return err
	}

	title := strings.Join(fs.Args()[1:], " ")
	if strings.TrimSpace(title) == "" {
		if err := promptSubtask(&title, due); err != nil {
			return err
		}
	}

	e, panel, err := openPanel(ctx, opts, s, fs.Arg(0))
	if err != nil {
		return err
	}
	defer e.Close()

	panel.SetSubtaskDraft(collab.SubtaskDraft{Title: title, DueDate: *due, Weight: *weight})
	if err := panel.CreateSubtask(ctx); err != nil {
		switch {
		case errors.Is(err, collab.ErrEmptyTitle):
			return errors.New("milestone title is required")
		case errors.Is(err, collab.ErrInvalidDueDate):
			return errors.New("due date must look like 2026-01-31")
		}
		return describe(err)
	}
	return printSubtasks(e.out, panel.View())
}

func promptSubtask(title, due *string) error {
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Milestone title").
				Value(title),
			huh.NewInput().
				Title("Due date").
				Placeholder("YYYY-MM-DD (optional)").
				Value(due),
		),
	).WithTheme(huh.ThemeCharm())
	return form.Run()
}

// findSubtask refreshes the panel and returns the subtask with id.
func findSubtask(ctx context.Context, panel *collab.Panel, id string) (api.Subtask, error) {
	v, err := refreshed(ctx, panel)
	if err != nil {
		return api.Subtask{}, err
	}
	st, ok := lo.Find(v.Subtasks, func(st api.Subtask) bool { return st.ID == id })
	if !ok {
		return api.Subtask{}, fmt.Errorf("no milestone %q on task %s", id, v.TaskID)
	}
	return st, nil
}

func subtaskToggle(ctx context.Context, args []string, s streams) error {
	fs, opts := newFlagSet("task subtask toggle", s)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireArgs(fs, 2, "<task-id> <subtask-id>"); err != nil {
		return err
	}

	e, panel, err := openPanel(ctx, opts, s, fs.Arg(0))
	if err != nil {
		return err
	}
	defer e.Close()

	st, err := findSubtask(ctx, panel, fs.Arg(1))
	if err != nil {
		return err
	}
	if err := panel.ToggleSubtask(ctx, st); err != nil {
		return describe(err)
	}
	return printSubtasks(e.out, panel.View())
}

func subtaskDelete(ctx context.Context, args []string, s streams) error {
	fs, opts := newFlagSet("task subtask delete", s)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireArgs(fs, 2, "<task-id> <subtask-id>"); err != nil {
		return err
	}

	e, panel, err := openPanel(ctx, opts, s, fs.Arg(0))
	if err != nil {
		return err
	}
	defer e.Close()

	if err := panel.DeleteSubtask(ctx, fs.Arg(1)); err != nil {
		return describe(err)
	}
	return printSubtasks(e.out, panel.View())
}
