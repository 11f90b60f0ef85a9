package model

import (
	"fmt"
	"strings"
	"time"
)

// Priority levels for a task.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
	PriorityNone   Priority = "none"
)

// Status values for a task.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusOverdue   Status = "overdue"
)

// Category values for a task.
type Category string

const (
	CategoryWork     Category = "work"
	CategoryPersonal Category = "personal"
	CategoryHealth   Category = "health"
	CategoryShopping Category = "shopping"
	CategoryOther    Category = "other"
)

// Permission levels for task sharing.
type Permission string

const (
	PermissionView Permission = "view"
	PermissionEdit Permission = "edit"
)

// Task is a single unit of work owned by a user and optionally shared
// with collaborators.
type Task struct {
	// ID is the unique identifier. Server-assigned on remote creation,
	// client-time-derived when synthesized locally.
	ID string `json:"id" db:"id"`

	// Title is the human-readable summary. Never empty.
	Title string `json:"title" db:"title"`

	// Description is the optional body text.
	Description string `json:"description,omitempty" db:"description"`

	// DueDate is the optional calendar date the task is due.
	DueDate *time.Time `json:"due_date,omitempty" db:"due_date"`

	// DueTime is the optional time of day, formatted "HH:MM".
	DueTime *string `json:"due_time,omitempty" db:"due_time"`

	Priority Priority `json:"priority" db:"priority"`
	Status   Status   `json:"status" db:"status"`
	Category Category `json:"category" db:"category"`

	// Tags holds optional free-form labels.
	Tags []string `json:"tags,omitempty" db:"tags"`

	// Assignees holds optional user identifiers the task is assigned to.
	Assignees []string `json:"assignees,omitempty" db:"assignees"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// CompletedAt is set iff Status is StatusCompleted.
	CompletedAt *time.Time `json:"completed_at,omitempty" db:"completed_at"`

	// Recurring marks the task as repeating; RecurrencePattern describes how.
	Recurring         bool    `json:"recurring,omitempty" db:"recurring"`
	RecurrencePattern *string `json:"recurrence_pattern,omitempty" db:"recurrence_pattern"`

	// CreatedBy and UpdatedBy identify the creator and last editor.
	CreatedBy *string    `json:"created_by,omitempty" db:"created_by"`
	UpdatedBy *string    `json:"updated_by,omitempty" db:"updated_by"`
	UpdatedAt *time.Time `json:"updated_at,omitempty" db:"updated_at"`
}

// IsCompleted reports whether the task is completed.
func (t Task) IsCompleted() bool {
	return t.Status == StatusCompleted
}

// Clone returns a deep copy of the task.
func (t Task) Clone() Task {
	out := t
	out.DueDate = cloneTimePtr(t.DueDate)
	out.DueTime = cloneStringPtr(t.DueTime)
	out.CompletedAt = cloneTimePtr(t.CompletedAt)
	out.RecurrencePattern = cloneStringPtr(t.RecurrencePattern)
	out.CreatedBy = cloneStringPtr(t.CreatedBy)
	out.UpdatedBy = cloneStringPtr(t.UpdatedBy)
	out.UpdatedAt = cloneTimePtr(t.UpdatedAt)
	if t.Tags != nil {
		out.Tags = append([]string(nil), t.Tags...)
	}
	if t.Assignees != nil {
		out.Assignees = append([]string(nil), t.Assignees...)
	}
	return out
}

// ValidPriority reports whether p is one of the known priority levels.
func ValidPriority(p Priority) bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow, PriorityNone:
		return true
	}
	return false
}

// ValidStatus reports whether s is one of the known status values.
func ValidStatus(s Status) bool {
	switch s {
	case StatusPending, StatusCompleted, StatusOverdue:
		return true
	}
	return false
}

// ValidCategory reports whether c is one of the known categories.
func ValidCategory(c Category) bool {
	switch c {
	case CategoryWork, CategoryPersonal, CategoryHealth, CategoryShopping, CategoryOther:
		return true
	}
	return false
}

// ValidationError indicates that a task draft failed field validation
// before any I/O was attempted.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid task %s: %s", e.Field, e.Reason)
}

// TaskDraft holds the user-supplied fields for creating a new task.
type TaskDraft struct {
	Title             string     `json:"title"`
	Description       string     `json:"description,omitempty"`
	DueDate           *time.Time `json:"due_date,omitempty"`
	DueTime           *string    `json:"due_time,omitempty"`
	Priority          Priority   `json:"priority"`
	Status            Status     `json:"status"`
	Category          Category   `json:"category"`
	Tags              []string   `json:"tags,omitempty"`
	Recurring         bool       `json:"recurring,omitempty"`
	RecurrencePattern *string    `json:"recurrence_pattern,omitempty"`
}

// Validate checks the required fields of a draft. It is called before
// any remote I/O so invalid drafts never reach the wire.
func (d TaskDraft) Validate() error {
	if strings.TrimSpace(d.Title) == "" {
		return &ValidationError{Field: "title", Reason: "must not be empty"}
	}
	if !ValidPriority(d.Priority) {
		return &ValidationError{Field: "priority", Reason: fmt.Sprintf("unknown value %q", d.Priority)}
	}
	if !ValidStatus(d.Status) {
		return &ValidationError{Field: "status", Reason: fmt.Sprintf("unknown value %q", d.Status)}
	}
	if !ValidCategory(d.Category) {
		return &ValidationError{Field: "category", Reason: fmt.Sprintf("unknown value %q", d.Category)}
	}
	return nil
}

// Normalized returns a copy of the draft with defaults applied for
// fields left at their zero value.
func (d TaskDraft) Normalized() TaskDraft {
	if d.Priority == "" {
		d.Priority = PriorityNone
	}
	if d.Status == "" {
		d.Status = StatusPending
	}
	if d.Category == "" {
		d.Category = CategoryOther
	}
	return d
}

func cloneTimePtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func cloneStringPtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
