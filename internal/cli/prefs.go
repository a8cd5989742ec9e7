// Copyright (C) 2026 TaskNexus
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/samber/lo"

	"github.com/tasknexus/tasknexus/internal/preferences"
)

const prefsUsage = "list|get|set|toggle|reset [flags] [path] [value]"

func prefsCommand(ctx context.Context, args []string, s streams) error {
	sub, rest, err := subcommand("prefs", args, s, prefsUsage)
	if err != nil {
		return err
	}

	switch sub {
	case "list":
		return prefsList(ctx, rest, s)
	case "get":
		return prefsGet(ctx, rest, s)
	case "set":
		return prefsSet(ctx, rest, s)
	case "toggle":
		return prefsToggle(ctx, rest, s)
	case "reset":
		return prefsReset(ctx, rest, s)
	default:
		return unknownSubcommand("prefs", sub, s, prefsUsage)
	}
}

// openPrefs parses flags and loads the preference store.
func openPrefs(ctx context.Context, name string, args []string, s streams, nargs int, usage string) (*env, *preferences.Store, []string, error) {
	fs, opts := newFlagSet("prefs "+name, s)
	if err := fs.Parse(args); err != nil {
		return nil, nil, nil, err
	}
	if err := requireArgs(fs, nargs, usage); err != nil {
		return nil, nil, nil, err
	}
	e, err := openEnv(ctx, opts, s)
	if err != nil {
		return nil, nil, nil, err
	}
	return e, preferences.New(ctx, e.store), fs.Args(), nil
}

type prefRow struct {
	Path    string   `json:"path"`
	Kind    string   `json:"kind"`
	Value   any      `json:"value"`
	Default any      `json:"default"`
	Allowed []string `json:"allowed,omitempty"`
}

func prefsList(ctx context.Context, args []string, s streams) error {
	e, store, _, err := openPrefs(ctx, "list", args, s, 0, "")
	if err != nil {
		return err
	}
	defer e.Close()

	rows := lo.Map(preferences.Schema(), func(l preferences.Leaf, _ int) prefRow {
		cur, _ := store.Lookup(l.Path)
		return prefRow{
			Path:    l.Path.String(),
			Kind:    l.Default.Kind().String(),
			Value:   plain(cur),
			Default: plain(l.Default),
			Allowed: l.Allowed,
		}
	})

	return e.out.print(rows, func(w io.Writer) {
		fmt.Fprintf(w, "%-34s  %-8s  %-14s  %s\n", "PATH", "KIND", "VALUE", "DEFAULT")
		fmt.Fprintf(w, "%s\n", strings.Repeat("-", 72))
		for _, r := range rows {
			fmt.Fprintf(w, "%-34s  %-8s  %-14v  %v\n", r.Path, r.Kind, r.Value, r.Default)
		}
	})
}

func prefsGet(ctx context.Context, args []string, s streams) error {
	e, store, pos, err := openPrefs(ctx, "get", args, s, 1, "<path>")
	if err != nil {
		return err
	}
	defer e.Close()

	path := preferences.ParsePath(pos[0])
	v, ok := store.Lookup(path)
	if !ok {
		return fmt.Errorf("no preference at %s", path)
	}
	return e.out.print(map[string]any{"path": path.String(), "value": plain(v)}, func(w io.Writer) {
		fmt.Fprintln(w, v.String())
	})
}

func prefsSet(ctx context.Context, args []string, s streams) error {
	e, store, pos, err := openPrefs(ctx, "set", args, s, 2, "<path> <value>")
	if err != nil {
		return err
	}
	defer e.Close()

	path := preferences.ParsePath(pos[0])
	v, err := parsePreference(path, strings.Join(pos[1:], " "))
	if err != nil {
		return err
	}
	if err := store.SetPreference(ctx, path, v); err != nil {
		return err
	}
	fmt.Fprintf(s.out, "%s = %s\n", path, v)
	return nil
}

func prefsToggle(ctx context.Context, args []string, s streams) error {
	e, store, pos, err := openPrefs(ctx, "toggle", args, s, 1, "<path>")
	if err != nil {
		return err
	}
	defer e.Close()

	path := preferences.ParsePath(pos[0])
	if err := store.TogglePreference(ctx, path); err != nil {
		return err
	}
	v, _ := store.Lookup(path)
	fmt.Fprintf(s.out, "%s = %s\n", path, v)
	return nil
}

func prefsReset(ctx context.Context, args []string, s streams) error {
	e, store, _, err := openPrefs(ctx, "reset", args, s, 0, "")
	if err != nil {
		return err
	}
	defer e.Close()

	if err := store.ResetPreferences(ctx); err != nil {
		return err
	}
	fmt.Fprintln(s.out, "Preferences restored to defaults")
	return nil
}

// parsePreference reads text as the kind of the known leaf at path. Paths
// outside the schema take the kind the text looks like.
func parsePreference(path preferences.Path, text string) (preferences.Value, error) {
	leaf, ok := lo.Find(preferences.Schema(), func(l preferences.Leaf) bool {
		return l.Path.String() == path.String()
	})
	if ok {
		return preferences.ParseValue(leaf.Default.Kind(), text)
	}

	text = strings.TrimSpace(text)
	if b, err := strconv.ParseBool(text); err == nil {
		return preferences.Bool(b), nil
	}
	if n, err := strconv.ParseFloat(text, 64); err == nil {
		return preferences.Number(n), nil
	}
	return preferences.Enum(text), nil
}

func plain(v preferences.Value) any {
	switch v.Kind() {
	case preferences.KindBool:
		return v.Bool()
	case preferences.KindNumber:
		return v.Number()
	case preferences.KindEnum:
		return v.Enum()
	default:
		return nil
	}
}
