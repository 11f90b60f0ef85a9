package localstore

import (
	"context"
	"testing"
)

// A snapshot that no longer decodes must yield an empty seed list, not
// an error: the caller always gets a usable starting point.
func TestLoadSnapshotCorruptBlob(t *testing.T) {
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("creating store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	_, err = s.db.Exec(
		"INSERT INTO snapshots (key, data) VALUES (?, ?)",
		snapshotKey, "{not json",
	)
	if err != nil {
		t.Fatalf("seeding corrupt snapshot: %v", err)
	}

	if got := s.LoadSnapshot(context.Background()); len(got) != 0 {
		t.Errorf("LoadSnapshot with corrupt blob = %v, want empty", got)
	}
}
