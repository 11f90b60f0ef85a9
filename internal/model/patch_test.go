package model

import (
	"testing"
	"time"
)

func TestPatchFieldPresence(t *testing.T) {
	var patch TaskPatch

	if !patch.IsEmpty() {
		t.Fatal("zero patch should be empty")
	}
	if _, ok := patch.Title.Get(); ok {
		t.Error("absent field reported as set")
	}

	patch.Title = Set("new title")
	if patch.IsEmpty() {
		t.Error("patch with a set field reported empty")
	}
	if v, ok := patch.Title.Get(); !ok || v != "new title" {
		t.Errorf("Title.Get() = %q, %v", v, ok)
	}
}

func TestPatchAbsentVersusCleared(t *testing.T) {
	due := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	task := Task{ID: "t1", Title: "x", DueDate: &due}

	// Absent: the due date is untouched.
	var absent TaskPatch
	absent.Title = Set("y")
	absent.ApplyTo(&task)
	if task.DueDate == nil {
		t.Fatal("absent due_date field cleared the value")
	}

	// Explicitly cleared: set to nil.
	var cleared TaskPatch
	cleared.DueDate = Set[*time.Time](nil)
	cleared.ApplyTo(&task)
	if task.DueDate != nil {
		t.Fatalf("cleared due_date still present: %v", task.DueDate)
	}
}

func TestPatchApplyTo(t *testing.T) {
	completed := time.Date(2026, 5, 2, 10, 0, 0, 0, time.UTC)
	task := Task{
		ID:       "t1",
		Title:    "old",
		Priority: PriorityLow,
		Status:   StatusPending,
		Category: CategoryOther,
	}

	var patch TaskPatch
	patch.Title = Set("new")
	patch.Status = Set(StatusCompleted)
	patch.CompletedAt = Set(&completed)
	patch.Tags = Set([]string{"errand"})

	patch.ApplyTo(&task)

	if task.Title != "new" {
		t.Errorf("Title = %q", task.Title)
	}
	if task.Status != StatusCompleted {
		t.Errorf("Status = %q", task.Status)
	}
	if task.CompletedAt == nil || !task.CompletedAt.Equal(completed) {
		t.Errorf("CompletedAt = %v", task.CompletedAt)
	}
	if len(task.Tags) != 1 || task.Tags[0] != "errand" {
		t.Errorf("Tags = %v", task.Tags)
	}
	// Untouched fields keep their values.
	if task.Priority != PriorityLow || task.Category != CategoryOther {
		t.Errorf("untouched fields changed: %+v", task)
	}
}

func TestNormalizeCompletion(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)

	t.Run("completed status stamps the timestamp", func(t *testing.T) {
		var patch TaskPatch
		patch.Status = Set(StatusCompleted)
		patch.NormalizeCompletion(now)

		at, ok := patch.CompletedAt.Get()
		if !ok || at == nil || !at.Equal(now) {
			t.Errorf("CompletedAt = %v, %v; want %v stamped", at, ok, now)
		}
	})

	t.Run("pending status clears the timestamp", func(t *testing.T) {
		var patch TaskPatch
		patch.Status = Set(StatusPending)
		patch.NormalizeCompletion(now)

		at, ok := patch.CompletedAt.Get()
		if !ok || at != nil {
			t.Errorf("CompletedAt = %v, %v; want explicit nil", at, ok)
		}
	})

	t.Run("timestamp without status sets completed", func(t *testing.T) {
		var patch TaskPatch
		patch.CompletedAt = Set(&now)
		patch.NormalizeCompletion(now)

		if s, ok := patch.Status.Get(); !ok || s != StatusCompleted {
			t.Errorf("Status = %q, %v; want completed", s, ok)
		}
	})

	t.Run("cleared timestamp without status sets pending", func(t *testing.T) {
		var patch TaskPatch
		patch.CompletedAt = Set[*time.Time](nil)
		patch.NormalizeCompletion(now)

		if s, ok := patch.Status.Get(); !ok || s != StatusPending {
			t.Errorf("Status = %q, %v; want pending", s, ok)
		}
	})

	t.Run("both set stays untouched", func(t *testing.T) {
		var patch TaskPatch
		patch.Status = Set(StatusPending)
		patch.CompletedAt = Set[*time.Time](nil)
		patch.NormalizeCompletion(now)

		if s, _ := patch.Status.Get(); s != StatusPending {
			t.Errorf("Status = %q, want pending", s)
		}
	})

	t.Run("unrelated patch untouched", func(t *testing.T) {
		var patch TaskPatch
		patch.Title = Set("x")
		patch.NormalizeCompletion(now)

		if patch.Status.IsSet() || patch.CompletedAt.IsSet() {
			t.Error("normalization touched a patch without completion fields")
		}
	})
}
