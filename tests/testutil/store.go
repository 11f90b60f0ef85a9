package testutil

import (
	"testing"

	"github.com/pvu/tasksync/internal/localstore"
)

// NewTestLocalStore creates an in-memory localstore with all migrations
// applied. It automatically closes the store when the test completes.
func NewTestLocalStore(t *testing.T) *localstore.Store {
	t.Helper()

	s, err := localstore.New(":memory:")
	if err != nil {
		t.Fatalf("creating test store: %v", err)
	}

	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("closing test store: %v", err)
		}
	})

	return s
}
