// Package remote adapts the entity model to the authoritative Postgres
// backend. Every operation is scoped to the calling user: a task the
// caller does not own is invisible to update and delete regardless of
// identifier correctness.
package remote

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/pvu/tasksync/internal/model"
)

// taskColumns is the column list shared by every task query.
const taskColumns = `id, user_id, title, description, due_date, due_time,
	priority, status, category, tags, assignees,
	created_at, completed_at, recurring, recurrence_pattern,
	created_by, updated_by, updated_at`

// Connect opens and pings a Postgres connection.
func Connect(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	return db, nil
}

// TaskStore performs task CRUD against the remote database.
type TaskStore struct {
	db        *sqlx.DB
	reminders ReminderScheduler
}

// NewTaskStore creates a TaskStore. The scheduler may be nil when no
// reminder backend is configured.
func NewTaskStore(db *sqlx.DB, reminders ReminderScheduler) *TaskStore {
	return &TaskStore{db: db, reminders: reminders}
}

// FetchAll reads the tasks the user owns plus the tasks shared with
// them, unions the two result sets by identifier, and returns them
// ordered newest-created-first. A failing sub-query is logged and the
// other result set is still returned; FetchAll never fails outright.
func (s *TaskStore) FetchAll(ctx context.Context, userID string) []model.Task {
	owned, err := s.queryTasks(ctx,
		"SELECT "+taskColumns+" FROM tasks WHERE user_id = $1", userID)
	if err != nil {
		log.Printf("remote: fetching owned tasks: %v", err)
	}

	shared, err := s.queryTasks(ctx, `
		SELECT `+taskColumns+` FROM tasks
		JOIN task_shares ON task_shares.task_id = tasks.id
		WHERE task_shares.shared_with = $1`, userID)
	if err != nil {
		log.Printf("remote: fetching shared tasks: %v", err)
	}

	return MergeFetched(owned, shared)
}

// MergeFetched unions owned and shared tasks, de-duplicating by
// identifier with owned copies taking priority, ordered by creation
// time descending.
func MergeFetched(owned, shared []model.Task) []model.Task {
	seen := make(map[string]struct{}, len(owned)+len(shared))
	combined := make([]model.Task, 0, len(owned)+len(shared))
	for _, t := range owned {
		if _, ok := seen[t.ID]; ok {
			continue
		}
		seen[t.ID] = struct{}{}
		combined = append(combined, t)
	}
	for _, t := range shared {
		if _, ok := seen[t.ID]; ok {
			continue
		}
		seen[t.ID] = struct{}{}
		combined = append(combined, t)
	}

	sort.SliceStable(combined, func(i, j int) bool {
		return combined[i].CreatedAt.After(combined[j].CreatedAt)
	})
	return combined
}

// Create validates the draft, inserts it, and returns the authoritative
// server row. When the draft carries a due date, default reminders are
// created fire-and-forget; their failure never fails the create.
func (s *TaskStore) Create(ctx context.Context, userID string, draft model.TaskDraft) (*model.Task, error) {
	draft = draft.Normalized()
	if err := draft.Validate(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	row := s.db.QueryRowxContext(ctx, `
		INSERT INTO tasks (
			user_id, title, description, due_date, due_time,
			priority, status, category, tags,
			created_at, recurring, recurrence_pattern, created_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING `+taskColumns,
		userID, draft.Title, draft.Description, draft.DueDate, draft.DueTime,
		string(draft.Priority), string(draft.Status), string(draft.Category),
		pq.Array(draft.Tags),
		now, draft.Recurring, draft.RecurrencePattern, userID,
	)

	task, err := scanTask(row)
	if err != nil {
		return nil, fmt.Errorf("creating task: %w", err)
	}

	if draft.DueDate != nil && s.reminders != nil {
		go func(taskID string, dueDate time.Time, dueTime *string) {
			rctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := s.reminders.CreateDefaultReminders(rctx, userID, taskID, dueDate, dueTime); err != nil {
				log.Printf("remote: creating default reminders for task %s: %v", taskID, err)
			}
		}(task.ID, *draft.DueDate, draft.DueTime)
	}

	return &task, nil
}

// Update forwards only the fields set in the patch and returns the
// server's resulting row, which carries server-computed fields such as
// updated_by and updated_at.
func (s *TaskStore) Update(ctx context.Context, userID, taskID string, patch model.TaskPatch) (*model.Task, error) {
	set, args := buildPatch(patch)
	if len(set) == 0 {
		return nil, fmt.Errorf("updating task %s: empty patch", taskID)
	}

	query, args := patchQuery(set, args, userID, taskID)
	row := s.db.QueryRowxContext(ctx, query, args...)

	task, err := scanTask(row)
	if err != nil {
		return nil, fmt.Errorf("updating task %s: %w", taskID, err)
	}
	return &task, nil
}

// Delete removes the task if the caller owns it. It reports whether a
// row was actually deleted.
func (s *TaskStore) Delete(ctx context.Context, userID, taskID string) (bool, error) {
	result, err := s.db.ExecContext(ctx,
		"DELETE FROM tasks WHERE id = $1 AND user_id = $2", taskID, userID)
	if err != nil {
		return false, fmt.Errorf("deleting task %s: %w", taskID, err)
	}
	rows, _ := result.RowsAffected()
	return rows > 0, nil
}

// queryTasks runs a task query and scans the result set.
func (s *TaskStore) queryTasks(ctx context.Context, query string, args ...interface{}) ([]model.Task, error) {
	rows, err := s.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying tasks: %w", err)
	}
	defer rows.Close()

	var tasks []model.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

// scanner abstracts sqlx.Row and sqlx.Rows for task scanning.
type scanner interface {
	Scan(dest ...interface{}) error
}

// scanTask scans one task row in taskColumns order.
func scanTask(row scanner) (model.Task, error) {
	var (
		task        model.Task
		ownerID     string
		description sql.NullString
		dueDate     *time.Time
		dueTime     *string
		priority    string
		status      string
		category    string
		tags        pq.StringArray
		assignees   pq.StringArray
		completedAt *time.Time
		pattern     *string
		createdBy   *string
		updatedBy   *string
		updatedAt   *time.Time
	)

	err := row.Scan(
		&task.ID, &ownerID, &task.Title, &description, &dueDate, &dueTime,
		&priority, &status, &category, &tags, &assignees,
		&task.CreatedAt, &completedAt, &task.Recurring, &pattern,
		&createdBy, &updatedBy, &updatedAt,
	)
	if err != nil {
		return model.Task{}, fmt.Errorf("scanning task row: %w", err)
	}

	task.Description = description.String
	task.DueDate = dueDate
	task.DueTime = dueTime
	task.Priority = model.Priority(priority)
	task.Status = model.Status(status)
	task.Category = model.Category(category)
	task.Tags = []string(tags)
	task.Assignees = []string(assignees)
	task.CompletedAt = completedAt
	task.RecurrencePattern = pattern
	task.CreatedBy = createdBy
	task.UpdatedBy = updatedBy
	task.UpdatedAt = updatedAt

	return task, nil
}
