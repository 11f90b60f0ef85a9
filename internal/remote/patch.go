package remote

import (
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/pvu/tasksync/internal/model"
)

// buildPatch converts the set fields of a patch into SQL assignment
// clauses and their arguments. Placeholders are numbered from $1;
// absent fields produce no clause so the server leaves them untouched.
func buildPatch(patch model.TaskPatch) ([]string, []interface{}) {
	var set []string
	var args []interface{}

	add := func(column string, value interface{}) {
		set = append(set, fmt.Sprintf("%s = $%d", column, len(args)+1))
		args = append(args, value)
	}

	if v, ok := patch.Title.Get(); ok {
		add("title", v)
	}
	if v, ok := patch.Description.Get(); ok {
		add("description", v)
	}
	if v, ok := patch.DueDate.Get(); ok {
		add("due_date", v)
	}
	if v, ok := patch.DueTime.Get(); ok {
		add("due_time", v)
	}
	if v, ok := patch.Priority.Get(); ok {
		add("priority", string(v))
	}
	if v, ok := patch.Status.Get(); ok {
		add("status", string(v))
	}
	if v, ok := patch.Category.Get(); ok {
		add("category", string(v))
	}
	if v, ok := patch.Tags.Get(); ok {
		add("tags", pq.Array(v))
	}
	if v, ok := patch.Assignees.Get(); ok {
		add("assignees", pq.Array(v))
	}
	if v, ok := patch.CompletedAt.Get(); ok {
		add("completed_at", v)
	}
	if v, ok := patch.Recurring.Get(); ok {
		add("recurring", v)
	}
	if v, ok := patch.RecurrencePattern.Get(); ok {
		add("recurrence_pattern", v)
	}

	return set, args
}

// patchQuery assembles the sparse UPDATE statement. updated_by and
// updated_at are always set server-side, and the WHERE clause scopes
// the update to the owning user.
func patchQuery(set []string, args []interface{}, userID, taskID string) (string, []interface{}) {
	set = append(set, fmt.Sprintf("updated_by = $%d", len(args)+1))
	args = append(args, userID)
	set = append(set, "updated_at = now()")

	query := fmt.Sprintf(
		"UPDATE tasks SET %s WHERE id = $%d AND user_id = $%d RETURNING %s",
		strings.Join(set, ", "), len(args)+1, len(args)+2, taskColumns,
	)
	args = append(args, taskID, userID)
	return query, args
}
