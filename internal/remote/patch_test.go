package remote

import (
	"strings"
	"testing"
	"time"

	"github.com/pvu/tasksync/internal/model"
)

func TestBuildPatchSparse(t *testing.T) {
	var patch model.TaskPatch
	patch.Title = model.Set("new title")
	patch.Status = model.Set(model.StatusCompleted)

	set, args := buildPatch(patch)

	if len(set) != 2 {
		t.Fatalf("got %d clauses %v, want 2", len(set), set)
	}
	if set[0] != "title = $1" || set[1] != "status = $2" {
		t.Errorf("clauses = %v", set)
	}
	if len(args) != 2 || args[0] != "new title" || args[1] != "completed" {
		t.Errorf("args = %v", args)
	}
}

func TestBuildPatchEmpty(t *testing.T) {
	set, args := buildPatch(model.TaskPatch{})
	if len(set) != 0 || len(args) != 0 {
		t.Errorf("empty patch produced clauses %v args %v", set, args)
	}
}

func TestBuildPatchClearedField(t *testing.T) {
	var patch model.TaskPatch
	patch.DueDate = model.Set[*time.Time](nil)

	set, args := buildPatch(patch)
	if len(set) != 1 || set[0] != "due_date = $1" {
		t.Fatalf("clauses = %v", set)
	}
	if args[0] != (*time.Time)(nil) {
		t.Errorf("cleared field arg = %v, want nil", args[0])
	}
}

func TestPatchQueryScopesToUser(t *testing.T) {
	var patch model.TaskPatch
	patch.Title = model.Set("x")

	set, args := buildPatch(patch)
	query, args := patchQuery(set, args, "user-1", "task-1")

	if !strings.Contains(query, "WHERE id = $3 AND user_id = $4") {
		t.Errorf("query missing user scope: %s", query)
	}
	if !strings.Contains(query, "updated_by = $2") {
		t.Errorf("query missing updated_by assignment: %s", query)
	}
	if !strings.Contains(query, "updated_at = now()") {
		t.Errorf("query missing updated_at assignment: %s", query)
	}
	if len(args) != 4 || args[2] != "task-1" || args[3] != "user-1" {
		t.Errorf("args = %v", args)
	}
}

func TestMergeFetchedUnion(t *testing.T) {
	base := time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC)
	owned := []model.Task{
		{ID: "t1", Title: "mine", CreatedAt: base},
		{ID: "t3", Title: "mine newer", CreatedAt: base.Add(2 * time.Hour)},
	}
	shared := []model.Task{
		{ID: "t2", Title: "shared", CreatedAt: base.Add(time.Hour)},
		// Duplicate of an owned task; the owned copy wins.
		{ID: "t1", Title: "shared duplicate", CreatedAt: base},
	}

	got := MergeFetched(owned, shared)

	if len(got) != 3 {
		t.Fatalf("got %d tasks, want 3", len(got))
	}
	wantOrder := []string{"t3", "t2", "t1"}
	for i, id := range wantOrder {
		if got[i].ID != id {
			t.Errorf("task[%d].ID = %s, want %s", i, got[i].ID, id)
		}
	}
	for _, task := range got {
		if task.ID == "t1" && task.Title != "mine" {
			t.Errorf("owned copy lost to shared duplicate: %q", task.Title)
		}
	}
}

func TestDueAt(t *testing.T) {
	date := time.Date(2026, 9, 2, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		dueTime *string
		want    time.Time
	}{
		{
			name: "default morning anchor",
			want: time.Date(2026, 9, 2, 9, 0, 0, 0, time.UTC),
		},
		{
			name:    "explicit time",
			dueTime: strPtr("14:30"),
			want:    time.Date(2026, 9, 2, 14, 30, 0, 0, time.UTC),
		},
		{
			name:    "unparseable time falls back",
			dueTime: strPtr("afternoon"),
			want:    time.Date(2026, 9, 2, 9, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := dueAt(date, tt.dueTime); !got.Equal(tt.want) {
				t.Errorf("dueAt = %v, want %v", got, tt.want)
			}
		})
	}
}

func strPtr(s string) *string { return &s }
