package model

import "time"

// Field wraps an optional patch value so that "not sent" and "explicitly
// set" are distinguishable. For pointer-typed fields a set nil value means
// "explicitly cleared".
type Field[T any] struct {
	value T
	set   bool
}

// Set returns a Field carrying v.
func Set[T any](v T) Field[T] {
	return Field[T]{value: v, set: true}
}

// Get returns the value and whether it was set.
func (f Field[T]) Get() (T, bool) {
	return f.value, f.set
}

// IsSet reports whether the field is present in the patch.
func (f Field[T]) IsSet() bool {
	return f.set
}

// TaskPatch is a sparse update: only fields explicitly set are forwarded
// to the remote store or applied to a local copy. Absent fields are left
// untouched.
type TaskPatch struct {
	Title             Field[string]
	Description       Field[string]
	DueDate           Field[*time.Time]
	DueTime           Field[*string]
	Priority          Field[Priority]
	Status            Field[Status]
	Category          Field[Category]
	Tags              Field[[]string]
	Assignees         Field[[]string]
	CompletedAt       Field[*time.Time]
	Recurring         Field[bool]
	RecurrencePattern Field[*string]
}

// IsEmpty reports whether no field of the patch is set.
func (p TaskPatch) IsEmpty() bool {
	return !p.Title.IsSet() &&
		!p.Description.IsSet() &&
		!p.DueDate.IsSet() &&
		!p.DueTime.IsSet() &&
		!p.Priority.IsSet() &&
		!p.Status.IsSet() &&
		!p.Category.IsSet() &&
		!p.Tags.IsSet() &&
		!p.Assignees.IsSet() &&
		!p.CompletedAt.IsSet() &&
		!p.Recurring.IsSet() &&
		!p.RecurrencePattern.IsSet()
}

// NormalizeCompletion keeps Status and CompletedAt coupled: a task is
// completed iff it carries a completion time. A patch that sets the
// status without the timestamp gets one stamped (or cleared), and a
// patch that sets the timestamp without the status gets the matching
// status filled in.
func (p *TaskPatch) NormalizeCompletion(now time.Time) {
	if status, ok := p.Status.Get(); ok && !p.CompletedAt.IsSet() {
		if status == StatusCompleted {
			at := now
			p.CompletedAt = Set(&at)
		} else {
			p.CompletedAt = Set[*time.Time](nil)
		}
		return
	}
	if at, ok := p.CompletedAt.Get(); ok && !p.Status.IsSet() {
		if at != nil {
			p.Status = Set(StatusCompleted)
		} else {
			p.Status = Set(StatusPending)
		}
	}
}

// ApplyTo merges the set fields of the patch into t.
func (p TaskPatch) ApplyTo(t *Task) {
	if v, ok := p.Title.Get(); ok {
		t.Title = v
	}
	if v, ok := p.Description.Get(); ok {
		t.Description = v
	}
	if v, ok := p.DueDate.Get(); ok {
		t.DueDate = v
	}
	if v, ok := p.DueTime.Get(); ok {
		t.DueTime = v
	}
	if v, ok := p.Priority.Get(); ok {
		t.Priority = v
	}
	if v, ok := p.Status.Get(); ok {
		t.Status = v
	}
	if v, ok := p.Category.Get(); ok {
		t.Category = v
	}
	if v, ok := p.Tags.Get(); ok {
		t.Tags = v
	}
	if v, ok := p.Assignees.Get(); ok {
		t.Assignees = v
	}
	if v, ok := p.CompletedAt.Get(); ok {
		t.CompletedAt = v
	}
	if v, ok := p.Recurring.Get(); ok {
		t.Recurring = v
	}
	if v, ok := p.RecurrencePattern.Get(); ok {
		t.RecurrencePattern = v
	}
}
