package views

import (
	"testing"
	"time"

	"github.com/pvu/tasksync/internal/model"
)

var today = time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)

func datePtr(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func TestComputePartitions(t *testing.T) {
	completedAt := today.Add(-time.Hour)
	tasks := []model.Task{
		{ID: "due-today", DueDate: datePtr(2026, 8, 31), Status: model.StatusPending},
		{ID: "due-tomorrow", DueDate: datePtr(2026, 9, 1), Status: model.StatusPending},
		{ID: "due-yesterday", DueDate: datePtr(2026, 8, 30), Status: model.StatusPending},
		{ID: "no-due-date", Status: model.StatusPending},
		{ID: "done-overdue", DueDate: datePtr(2026, 8, 1), Status: model.StatusCompleted, CompletedAt: &completedAt},
	}

	p := Compute(tasks, today)

	want := map[string][]string{
		"today":     {"due-today"},
		"upcoming":  {"due-tomorrow"},
		"overdue":   {"due-yesterday"},
		"completed": {"done-overdue"},
	}
	got := map[string][]string{
		"today":     ids(p.Today),
		"upcoming":  ids(p.Upcoming),
		"overdue":   ids(p.Overdue),
		"completed": ids(p.Completed),
	}

	for view, wantIDs := range want {
		if !equalIDs(got[view], wantIDs) {
			t.Errorf("%s = %v, want %v", view, got[view], wantIDs)
		}
	}
}

// A task appears in at most one of the date-based views, and completed
// tasks are classified by status before due date is consulted.
func TestPartitionDisjointness(t *testing.T) {
	completedAt := today
	tasks := []model.Task{
		{ID: "a", DueDate: datePtr(2026, 8, 31), Status: model.StatusPending},
		{ID: "b", DueDate: datePtr(2026, 8, 29), Status: model.StatusPending},
		{ID: "c", DueDate: datePtr(2026, 9, 15), Status: model.StatusPending},
		{ID: "d", DueDate: datePtr(2026, 8, 31), Status: model.StatusCompleted, CompletedAt: &completedAt},
		{ID: "e", Status: model.StatusPending},
	}

	p := Compute(tasks, today)

	seen := make(map[string]int)
	for _, t := range p.Today {
		seen[t.ID]++
	}
	for _, t := range p.Upcoming {
		seen[t.ID]++
	}
	for _, t := range p.Overdue {
		seen[t.ID]++
	}

	for id, count := range seen {
		if count > 1 {
			t.Errorf("task %s appears in %d date views", id, count)
		}
	}
	if seen["d"] != 0 {
		t.Error("completed task leaked into a date view")
	}
	if seen["e"] != 0 {
		t.Error("task without due date leaked into a date view")
	}
}

// Time-of-day must not affect classification: a task due later today is
// still "today", not "upcoming".
func TestComputeIgnoresTimeOfDay(t *testing.T) {
	lateToday := time.Date(2026, 8, 31, 23, 59, 0, 0, time.UTC)
	tasks := []model.Task{
		{ID: "x", DueDate: &lateToday, Status: model.StatusPending},
	}

	p := Compute(tasks, today)
	if len(p.Today) != 1 || len(p.Upcoming) != 0 {
		t.Errorf("today=%v upcoming=%v, want task in today only", ids(p.Today), ids(p.Upcoming))
	}
}

func TestUnreadCount(t *testing.T) {
	ns := []model.Notification{
		{ID: "1", Read: false},
		{ID: "2", Read: true},
		{ID: "3", Read: false},
	}
	if got := UnreadCount(ns); got != 2 {
		t.Errorf("UnreadCount = %d, want 2", got)
	}
	if got := UnreadCount(nil); got != 0 {
		t.Errorf("UnreadCount(nil) = %d, want 0", got)
	}
}

func ids(tasks []model.Task) []string {
	out := make([]string, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, t.ID)
	}
	return out
}

func equalIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
