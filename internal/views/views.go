// Package views computes read-only partitions of the canonical task list.
// Every function is pure: the caller supplies "today" so results do not
// depend on the wall clock, and nothing here is ever cached.
package views

import (
	"time"

	"github.com/pvu/tasksync/internal/model"
)

// Partition groups tasks into the date-based views plus completed.
// A task appears in at most one of Today/Upcoming/Overdue; completed
// tasks are checked first by status and never enter the date views.
type Partition struct {
	Today     []model.Task
	Upcoming  []model.Task
	Overdue   []model.Task
	Completed []model.Task
}

// Compute partitions tasks relative to today in a single pass.
func Compute(tasks []model.Task, today time.Time) Partition {
	var p Partition
	for _, t := range tasks {
		switch {
		case t.IsCompleted():
			p.Completed = append(p.Completed, t)
		case t.DueDate == nil:
			// No due date: appears only in the full list.
		case sameDay(*t.DueDate, today):
			p.Today = append(p.Today, t)
		case dateAfter(*t.DueDate, today):
			p.Upcoming = append(p.Upcoming, t)
		default:
			p.Overdue = append(p.Overdue, t)
		}
	}
	return p
}

// Today returns tasks due today that are not completed.
func Today(tasks []model.Task, today time.Time) []model.Task {
	return Compute(tasks, today).Today
}

// Upcoming returns tasks due after today that are not completed.
func Upcoming(tasks []model.Task, today time.Time) []model.Task {
	return Compute(tasks, today).Upcoming
}

// Overdue returns tasks due before today that are not completed.
func Overdue(tasks []model.Task, today time.Time) []model.Task {
	return Compute(tasks, today).Overdue
}

// Completed returns completed tasks regardless of due date.
func Completed(tasks []model.Task) []model.Task {
	var out []model.Task
	for _, t := range tasks {
		if t.IsCompleted() {
			out = append(out, t)
		}
	}
	return out
}

// UnreadCount returns the number of unread notifications.
func UnreadCount(notifications []model.Notification) int {
	count := 0
	for _, n := range notifications {
		if !n.Read {
			count++
		}
	}
	return count
}

// sameDay compares calendar dates, ignoring time of day.
func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// dateAfter reports whether a's calendar date is strictly after b's.
func dateAfter(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	if ay != by {
		return ay > by
	}
	if am != bm {
		return am > bm
	}
	return ad > bd
}
