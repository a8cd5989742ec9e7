// Copyright (C) 2026 TaskNexus
// SPDX-License-Identifier: AGPL-3.0-or-later

package testutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tasknexus/tasknexus/internal/realtime"
)

// RequireEvent waits up to timeout for an event of kind and returns it.
func RequireEvent(t *testing.T, capture *EventCapture, kind realtime.Kind, timeout time.Duration) realtime.Event {
	t.Helper()
	var found realtime.Event
	require.Eventually(t, func() bool {
		ev, ok := capture.Find(kind)
		found = ev
		return ok
	}, timeout, 10*time.Millisecond, "expected a %s event", kind)
	return found
}

// RequireStatus waits up to timeout for the subscriber to reach want.
func RequireStatus(t *testing.T, sub *realtime.Subscriber, want realtime.Status, timeout time.Duration) {
	t.Helper()
	require.Eventually(t, func() bool {
		return sub.Status() == want
	}, timeout, 10*time.Millisecond, "expected subscriber status %s, got %s", want, sub.Status())
}
