// Copyright (C) 2026 TaskNexus
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/tasknexus/tasknexus/internal/session"
)

func loginCommand(ctx context.Context, args []string, s streams) error {
	fs, opts := newFlagSet("login", s)
	email := fs.String("email", "", "Account email")
	password := fs.String("password", "", "Account password")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *email == "" || *password == "" {
		if err := promptCredentials(email, password); err != nil {
			return err
		}
	}
	if strings.TrimSpace(*email) == "" || *password == "" {
		return errors.New("email and password are required")
	}

	e, err := openEnv(ctx, opts, s)
	if err != nil {
		return err
	}
	defer e.Close()

	result, err := e.client.Login(ctx, strings.TrimSpace(*email), *password)
	if err != nil {
		return fmt.Errorf("login failed: %w", describe(err))
	}

	return e.out.print(result.User, func(w io.Writer) {
		fmt.Fprintf(w, "Signed in as %s <%s> (%s)\n", result.User.DisplayName, result.User.Email, result.User.Role)
	})
}

func promptCredentials(email, password *string) error {
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Email").
				Value(email),
			huh.NewInput().
				Title("Password").
				EchoMode(huh.EchoModePassword).
				Value(password),
		),
	).WithTheme(huh.ThemeCharm())
	return form.Run()
}

func logoutCommand(ctx context.Context, args []string, s streams) error {
	fs, opts := newFlagSet("logout", s)
	if err := fs.Parse(args); err != nil {
		return err
	}

	e, err := openEnv(ctx, opts, s)
	if err != nil {
		return err
	}
	defer e.Close()

	if err := e.session.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	fmt.Fprintln(s.out, "Signed out")
	return nil
}

func whoamiCommand(ctx context.Context, args []string, s streams) error {
	fs, opts := newFlagSet("whoami", s)
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
	u := e.session.User(ctx)
	if u == nil {
		u = &session.User{}
	}
	return e.out.print(u, func(w io.Writer) {
		fmt.Fprintf(w, "%-14s %s\n", "Name:", u.DisplayName)
		fmt.Fprintf(w, "%-14s %s\n", "Email:", u.Email)
		fmt.Fprintf(w, "%-14s %s\n", "Role:", u.Role)
		fmt.Fprintf(w, "%-14s %s\n", "ID:", u.ID)
	})
}
