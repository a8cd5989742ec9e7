// Copyright (C) 2026 TaskNexus
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the tasknexus command line.
package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
)

const (
	appName    = "tasknexus"
	appVersion = "0.1.0"
)

// errUsage is returned after usage has been printed for a bad invocation.
var errUsage = errors.New("invalid usage")

// Execute runs the CLI application
func Execute() error {
	return Run(context.Background(), os.Args[1:], os.Stdout, os.Stderr)
}

// Run dispatches args to a command, writing results to out and diagnostics
// to errOut.
func Run(ctx context.Context, args []string, out, errOut io.Writer) error {
	if len(args) < 1 {
		return printUsage(out)
	}

	s := streams{out: out, err: errOut}
	command, rest := args[0], args[1:]

	switch command {
	case "login":
		return loginCommand(ctx, rest, s)
	case "logout":
		return logoutCommand(ctx, rest, s)
	case "whoami":
		return whoamiCommand(ctx, rest, s)
	case "prefs":
		return prefsCommand(ctx, rest, s)
	case "board":
		return boardCommand(ctx, rest, s)
	case "task":
		return taskCommand(ctx, rest, s)
	case "events":
		return eventsCommand(ctx, rest, s)
	case "ui":
		return uiCommand(ctx, rest, s)
	case "version":
		fmt.Fprintf(out, "%s version %s\n", appName, appVersion)
		return nil
	case "help", "-h", "--help":
		return printUsage(out)
	default:
		fmt.Fprintf(errOut, "Unknown command: %s\n\n", command)
		_ = printUsage(errOut)
		return errUsage
	}
}

type streams struct {
	out io.Writer
	err io.Writer
}

func printUsage(w io.Writer) error {
	fmt.Fprintf(w, `%s - TaskNexus client

Usage:
  %s <command> [flags] [arguments]

Commands:
  login          Sign in (prompts for missing credentials)
  logout         Sign out and forget stored tokens
  whoami         Show the signed-in user
  prefs          List, read and change preferences
  board          Show and rearrange your dashboard board
  task           Comments, activity and milestones of a task
  events         Print realtime events as they arrive
  ui             Start the terminal UI
  version        Print version information
  help           Show this help message

Common flags (before positional arguments):
  --config PATH          Config file (default: ./config.yaml or ~/.tasknexus/config.yaml)
  --output text|json|yaml

Examples:
  %s login --email client@tasknexus.dev
  %s prefs set theme dark
  %s prefs toggle notifications.sound
  %s board move t1 planning done
  %s task comment task-1001 "Looks good @ali"
  %s task subtask add --due 2026-11-20 --weight 2 task-1001 "QA pass"
  %s events

`, appName, appName, appName, appName, appName, appName, appName, appName, appName)
	return nil
}

// globalOptions are accepted by every command.
type globalOptions struct {
	configPath string
	output     string
}

func newFlagSet(name string, s streams) (*flag.FlagSet, *globalOptions) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(s.err)
	opts := &globalOptions{}
	fs.StringVar(&opts.configPath, "config", os.Getenv("TASKNEXUS_CONFIG"), "Path to config file (env TASKNEXUS_CONFIG)")
	fs.StringVar(&opts.output, "output", "text", "Output format: text, json or yaml")
	return fs, opts
}

// subcommand splits "<sub> rest..." and reports a missing subcommand.
func subcommand(name string, args []string, s streams, usage string) (string, []string, error) {
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		fmt.Fprintf(s.err, "Usage: %s %s %s\n", appName, name, usage)
		return "", nil, errUsage
	}
	return args[0], args[1:], nil
}

func unknownSubcommand(name, sub string, s streams, usage string) error {
	fmt.Fprintf(s.err, "Unknown %s command: %s\nUsage: %s %s %s\n", name, sub, appName, name, usage)
	return errUsage
}

// requireArgs checks the positional argument count after flag parsing.
func requireArgs(fs *flag.FlagSet, n int, usage string) error {
	if fs.NArg() < n {
		return fmt.Errorf("usage: %s %s %s", appName, fs.Name(), usage)
	}
	return nil
}
