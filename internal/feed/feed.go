// Package feed delivers live change events for the rows visible to a
// user. Delivery is at-least-once: events may be duplicated or
// reordered, and consumers must merge them idempotently.
package feed

import (
	"encoding/json"
	"fmt"

	"github.com/pvu/tasksync/internal/model"
)

// Op identifies the kind of change carried by an event.
type Op string

const (
	OpInsert Op = "INSERT"
	OpUpdate Op = "UPDATE"
	OpDelete Op = "DELETE"
)

// Event tables.
const (
	TableTasks        = "tasks"
	TableChatMessages = "chat_messages"
)

// Event is a normalized change notification. Task events carry TaskID
// always and Task except for deletes; chat events carry Message.
type Event struct {
	Op      Op
	Table   string
	TaskID  string
	Task    *model.Task
	Message *model.ChatMessage
}

// Subscriber opens live event streams scoped to a single user. The
// returned cancel function stops delivery, closes the event channel,
// and is safe to call more than once.
type Subscriber interface {
	Subscribe(userID string) (<-chan Event, func(), error)
}

// payload is the wire shape of a notification body.
type payload struct {
	Op    string          `json:"op"`
	Table string          `json:"table"`
	ID    string          `json:"id"`
	Row   json.RawMessage `json:"row,omitempty"`
}

// decodeEvent parses a raw notification payload into an Event.
func decodeEvent(raw string) (Event, error) {
	var p payload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return Event{}, fmt.Errorf("decoding feed payload: %w", err)
	}

	ev := Event{Table: p.Table}
	switch Op(p.Op) {
	case OpInsert, OpUpdate, OpDelete:
		ev.Op = Op(p.Op)
	default:
		return Event{}, fmt.Errorf("decoding feed payload: unknown op %q", p.Op)
	}

	switch p.Table {
	case TableTasks:
		ev.TaskID = p.ID
		if ev.Op != OpDelete {
			var task model.Task
			if err := json.Unmarshal(p.Row, &task); err != nil {
				return Event{}, fmt.Errorf("decoding task row: %w", err)
			}
			ev.Task = &task
			if ev.TaskID == "" {
				ev.TaskID = task.ID
			}
		}
	case TableChatMessages:
		if ev.Op != OpDelete {
			var msg model.ChatMessage
			if err := json.Unmarshal(p.Row, &msg); err != nil {
				return Event{}, fmt.Errorf("decoding chat message row: %w", err)
			}
			ev.Message = &msg
		}
	default:
		return Event{}, fmt.Errorf("decoding feed payload: unknown table %q", p.Table)
	}

	return ev, nil
}
