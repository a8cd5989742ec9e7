// Copyright (C) 2026 TaskNexus
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/tasknexus/tasknexus/internal/board"
)

const boardUsage = "show|move|reorder|hide|unhide|set|reset [flags] [arguments]"

func boardCommand(ctx context.Context, args []string, s streams) error {
	sub, rest, err := subcommand("board", args, s, boardUsage)
	if err != nil {
		return err
	}

	switch sub {
	case "show":
		return boardShow(ctx, rest, s)
	case "move":
		return boardMove(ctx, rest, s)
	case "reorder":
		return boardReorder(ctx, rest, s)
	case "hide", "unhide":
		return boardVisibility(ctx, sub, rest, s)
	case "set":
		return boardSet(ctx, rest, s)
	case "reset":
		return boardReset(ctx, rest, s)
	default:
		return unknownSubcommand("board", sub, s, boardUsage)
	}
}

// withBoard loads the signed-in user's board, runs fn and saves whatever fn
// changed before returning.
func withBoard(ctx context.Context, e *env, fn func(*board.Synchronizer) error) error {
	if err := e.requireLogin(ctx); err != nil {
		return err
	}
	sync, err := e.newBoard(ctx)
	if err != nil {
		return err
	}
	defer sync.Close()

	if err := sync.Fetch(ctx); err != nil {
		return fmt.Errorf("failed to load board: %w", describe(err))
	}
	if err := fn(sync); err != nil {
		return err
	}
	if sync.Dirty() {
		if err := sync.Flush(ctx); err != nil {
			return fmt.Errorf("failed to save board: %w", describe(err))
		}
	}
	return nil
}

func boardShow(ctx context.Context, args []string, s streams) error {
	fs, opts := newFlagSet("board show", s)
	if err := fs.Parse(args); err != nil {
		return err
	}
	e, err := openEnv(ctx, opts, s)
	if err != nil {
		return err
	}
	defer e.Close()

	return withBoard(ctx, e, func(sync *board.Synchronizer) error {
		return printBoard(e.out, sync.State())
	})
}

func printBoard(p printer, st board.State) error {
	return p.print(st, func(w io.Writer) {
		fmt.Fprintf(w, "Board: %s\n", st.BoardKey)
		fmt.Fprintf(w, "View: %s  Filter: %s  Sort: %s\n", orDash(st.View), orDash(st.Filter), orDash(st.Sort))
		if !st.UpdatedAt.IsZero() {
			fmt.Fprintf(w, "Updated: %s\n", st.UpdatedAt.Local().Format("2006-01-02 15:04:05"))
		}
		fmt.Fprintln(w)
		fmt.Fprintf(w, "%-3s  %-14s  %-18s  %-7s  %s\n", "#", "COLUMN", "TITLE", "SHOWN", "TASKS")
		fmt.Fprintf(w, "%s\n", strings.Repeat("-", 72))
		for i, id := range st.ColumnOrder {
			c, ok := st.Columns[id]
			if !ok {
				continue
			}
			shown := "yes"
			if !c.IsVisible() {
				shown = "no"
			}
			fmt.Fprintf(w, "%-3d  %-14s  %-18s  %-7s  %s\n", i, c.ID, c.Title, shown, strings.Join(st.TaskOrder[id], ", "))
		}
	})
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func boardMove(ctx context.Context, args []string, s streams) error {
	fs, opts := newFlagSet("board move", s)
	index := fs.Int("index", -1, "Position in the target column (default: end)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireArgs(fs, 3, "[--index N] <task> <from-column> <to-column>"); err != nil {
		return err
	}
	taskID, from, to := fs.Arg(0), fs.Arg(1), fs.Arg(2)

	e, err := openEnv(ctx, opts, s)
	if err != nil {
		return err
	}
	defer e.Close()

	pos := *index
	if pos < 0 {
		pos = math.MaxInt
	}
	err = withBoard(ctx, e, func(sync *board.Synchronizer) error {
		if _, ok := sync.State().Columns[to]; !ok {
			return fmt.Errorf("unknown column %q", to)
		}
		sync.MoveTask(taskID, from, to, pos)
		return nil
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "Moved %s to %s\n", taskID, to)
	return nil
}

func boardReorder(ctx context.Context, args []string, s streams) error {
	fs, opts := newFlagSet("board reorder", s)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireArgs(fs, 2, "<column> <index>"); err != nil {
		return err
	}
	columnID := fs.Arg(0)
	to, err := strconv.Atoi(fs.Arg(1))
	if err != nil {
		return fmt.Errorf("invalid index %q: %w", fs.Arg(1), err)
	}

	e, err := openEnv(ctx, opts, s)
	if err != nil {
		return err
	}
	defer e.Close()

	err = withBoard(ctx, e, func(sync *board.Synchronizer) error {
		order := sync.State().ColumnOrder
		from := slices.Index(order, columnID)
		if from < 0 {
			return fmt.Errorf("unknown column %q", columnID)
		}
		if to < 0 || to >= len(order) {
			return fmt.Errorf("index %d out of range 0..%d", to, len(order)-1)
		}
		sync.ReorderColumns(from, to)
		return nil
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "Moved column %s to position %d\n", columnID, to)
	return nil
}

func boardVisibility(ctx context.Context, sub string, args []string, s streams) error {
	fs, opts := newFlagSet("board "+sub, s)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireArgs(fs, 1, "<column>"); err != nil {
		return err
	}
	columnID := fs.Arg(0)

	e, err := openEnv(ctx, opts, s)
	if err != nil {
		return err
	}
	defer e.Close()

	err = withBoard(ctx, e, func(sync *board.Synchronizer) error {
		if _, ok := sync.State().Columns[columnID]; !ok {
			return fmt.Errorf("unknown column %q", columnID)
		}
		sync.SetColumnVisible(columnID, sub == "unhide")
		return nil
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "Column %s %s\n", columnID, map[bool]string{true: "shown", false: "hidden"}[sub == "unhide"])
	return nil
}

func boardSet(ctx context.Context, args []string, s streams) error {
	fs, opts := newFlagSet("board set", s)
	view := fs.String("view", "", "Board view (e.g. kanban, list)")
	filter := fs.String("filter", "", "Task filter")
	sortBy := fs.String("sort", "", "Task sort order")
	if err := fs.Parse(args); err != nil {
		return err
	}

	patch := map[string]any{}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "view":
			patch["view"] = *view
		case "filter":
			patch["filter"] = *filter
		case "sort":
			patch["sort"] = *sortBy
		}
	})
	if len(patch) == 0 {
		return fmt.Errorf("usage: %s board set [--view V] [--filter F] [--sort S]", appName)
	}

	e, err := openEnv(ctx, opts, s)
	if err != nil {
		return err
	}
	defer e.Close()

	return withBoard(ctx, e, func(sync *board.Synchronizer) error {
		if err := sync.Update(patch); err != nil {
			return err
		}
		return printBoard(e.out, sync.State())
	})
}

func boardReset(ctx context.Context, args []string, s streams) error {
	fs, opts := newFlagSet("board reset", s)
	if err := fs.Parse(args); err != nil {
		return err
	}
	e, err := openEnv(ctx, opts, s)
	if err != nil {
		return err
	}
	defer e.Close()

	if err := e.requireLogin(ctx); err != nil {
		return err
	}
	sync, err := e.newBoard(ctx)
	if err != nil {
		return err
	}
	defer sync.Close()

	if err := sync.Reset(ctx); err != nil {
		return fmt.Errorf("failed to reset board: %w", describe(err))
	}
	return printBoard(e.out, sync.State())
}
