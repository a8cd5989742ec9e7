// Copyright (C) 2026 TaskNexus
// SPDX-License-Identifier: AGPL-3.0-or-later

package devserver

import (
	"github.com/tasknexus/tasknexus/internal/api"
	"github.com/tasknexus/tasknexus/internal/session"
)

// DemoPassword is the password of every seeded account.
const DemoPassword = "tasknexus"

// Seeded accounts, one per role.
var (
	DemoClient     = session.User{ID: "u-client", Email: "client@tasknexus.dev", DisplayName: "Casey Client", Role: "client"}
	DemoFreelancer = session.User{ID: "u-freelancer", Email: "ali@tasknexus.dev", DisplayName: "Ali Khan", Role: "freelancer"}
	DemoAdmin      = session.User{ID: "u-admin", Email: "admin@tasknexus.dev", DisplayName: "Ada Admin", Role: "admin"}
)

// DemoTaskID is the seeded task with a populated collaboration panel.
const DemoTaskID = "task-1001"

func person(u session.User) api.Person {
	return api.Person{ID: u.ID, DisplayName: u.DisplayName, Email: u.Email}
}

// Seed fills store with the demo accounts and tasks.
func Seed(store *Store) error {
	for _, u := range []session.User{DemoClient, DemoFreelancer, DemoAdmin} {
		store.AddUser(u, DemoPassword)
	}

	participants := []api.Person{person(DemoClient), person(DemoFreelancer), person(DemoAdmin)}
	store.AddTask(DemoTaskID, "Landing page redesign", participants)
	store.AddTask("task-1002", "Logo refresh", participants[:2])

	if _, err := store.AddComment(DemoTaskID, DemoClient, "Kickoff notes are in the brief. @ali please confirm the timeline.", nil); err != nil {
		return err
	}
	for _, st := range []api.NewSubtask{
		{Title: "Wireframes", DueDate: "2026-11-02", Weight: 2},
		{Title: "Visual design", DueDate: "2026-11-09", Weight: 3},
		{Title: "Handoff", Weight: 1},
	} {
		if _, err := store.AddSubtask(DemoTaskID, st); err != nil {
			return err
		}
	}
	list, err := store.Subtasks(DemoTaskID)
	if err != nil {
		return err
	}
	return store.SetSubtaskCompleted(DemoTaskID, list.Subtasks[0].ID, true)
}
