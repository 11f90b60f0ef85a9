package model

import "time"

// Notification represents an alert surfaced to the user about activity
// on one of their tasks, typically a collaborator edit arriving over the
// change feed.
type Notification struct {
	// ID is the unique identifier for this notification.
	ID string `json:"id" db:"id"`

	// TaskID links this notification to the originating task.
	TaskID string `json:"task_id" db:"task_id"`

	// Message is the human-readable notification text.
	Message string `json:"message" db:"message"`

	// Read indicates whether the user has seen this notification.
	Read bool `json:"read" db:"read"`

	// CreatedAt is when this notification was generated.
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
