package remote

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// ReminderScheduler creates default reminders for a task with a due
// date. It is invoked fire-and-forget after a successful remote create;
// callers swallow its errors.
type ReminderScheduler interface {
	CreateDefaultReminders(ctx context.Context, userID, taskID string, dueDate time.Time, dueTime *string) error
}

// defaultReminderOffsets are how long before the due moment each
// default reminder fires.
var defaultReminderOffsets = []time.Duration{
	24 * time.Hour,
	time.Hour,
}

// PostgresReminderScheduler writes reminder rows to the remote database.
type PostgresReminderScheduler struct {
	db *sqlx.DB
}

// NewPostgresReminderScheduler creates a scheduler backed by db.
func NewPostgresReminderScheduler(db *sqlx.DB) *PostgresReminderScheduler {
	return &PostgresReminderScheduler{db: db}
}

// CreateDefaultReminders inserts one reminder row per default offset.
func (s *PostgresReminderScheduler) CreateDefaultReminders(
	ctx context.Context,
	userID, taskID string,
	dueDate time.Time,
	dueTime *string,
) error {
	due := dueAt(dueDate, dueTime)

	for _, offset := range defaultReminderOffsets {
		remindAt := due.Add(-offset)
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO reminders (user_id, task_id, remind_at)
			VALUES ($1, $2, $3)
			ON CONFLICT (task_id, remind_at) DO NOTHING`,
			userID, taskID, remindAt,
		)
		if err != nil {
			return fmt.Errorf("inserting reminder for task %s: %w", taskID, err)
		}
	}
	return nil
}

// dueAt combines the calendar date with an optional "HH:MM" time of
// day; without one the reminder anchors to 09:00.
func dueAt(dueDate time.Time, dueTime *string) time.Time {
	hour, minute := 9, 0
	if dueTime != nil {
		var h, m int
		if _, err := fmt.Sscanf(*dueTime, "%d:%d", &h, &m); err == nil {
			hour, minute = h, m
		}
	}
	y, mo, d := dueDate.Date()
	return time.Date(y, mo, d, hour, minute, 0, 0, dueDate.Location())
}
