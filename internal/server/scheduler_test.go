package server

import (
	"testing"
	"time"
)

func TestSchedulerDue(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	s := &Scheduler{Schedule: "@hourly"}
	if !s.due(now) {
		t.Fatalf("first sweep should always be due")
	}

	s.lastSweep = now.Add(-30 * time.Minute)
	if s.due(now) {
		t.Fatalf("hourly sweep due after 30m")
	}
	s.lastSweep = now.Add(-61 * time.Minute)
	if !s.due(now) {
		t.Fatalf("hourly sweep not due after 61m")
	}

	s = &Scheduler{Schedule: "@daily", lastSweep: now.Add(-2 * time.Hour)}
	if s.due(now) {
		t.Fatalf("daily sweep due after 2h")
	}

	// Cron expression: every 15 minutes, checked at 12:07.
	at := time.Date(2026, 3, 1, 12, 7, 0, 0, time.UTC)
	s = &Scheduler{Schedule: "*/15 * * * *", lastSweep: at.Add(-17 * time.Minute)}
	if !s.due(at) {
		t.Fatalf("cron sweep not due when a tick passed since last sweep")
	}
	s.lastSweep = at.Add(-2 * time.Minute)
	if s.due(at) {
		t.Fatalf("cron sweep due before the next tick")
	}

	// Unparsable spec falls back to hourly.
	s = &Scheduler{Schedule: "garbage", lastSweep: now.Add(-2 * time.Hour)}
	if !s.due(now) {
		t.Fatalf("fallback sweep not due after 2h")
	}
}
