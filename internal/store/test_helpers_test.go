package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// createTestStore opens a fresh database in a temp dir.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func createTestRun(id string) Run {
	return Run{
		ID:                  id,
		ProblemName:         "slab",
		ProblemHash:         "test-hash",
		NumTrackSlots:       16,
		InitializerCapacity: 64,
		MaxEvents:           4,
		NumPrimaries:        8,
	}
}
