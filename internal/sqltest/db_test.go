package sqltest

import (
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestSQLiteLocation checks that SQLite locations are fresh paths in a
// per-test directory.
func TestSQLiteLocation(t *testing.T) {
	loc := NewSQLiteLocation(t)
	require.Equal(t, SQLite, loc.Engine)
	require.Empty(t, loc.DSN)
	require.True(t, filepath.IsAbs(loc.Path))
	require.DirExists(t, filepath.Dir(loc.Path))
	require.NoFileExists(t, loc.Path)
}

// TestDeterministicTestID checks that the id only depends on the test name.
func TestDeterministicTestID(t *testing.T) {
	id := deterministicTestID(t)
	require.Len(t, id, 8)
	require.Equal(t, id, deterministicTestID(t))

	t.Run("sub", func(t *testing.T) {
		require.NotEqual(t, id, deterministicTestID(t))
	})
}

// TestSetDBNameInDSN checks that only the database name is replaced.
func TestSetDBNameInDSN(t *testing.T) {
	dsn, err := setDBNameInDSN(
		"postgres://postgres:pw@localhost:5432/admin?sslmode=disable",
		"coinstore_test_1",
	)
	require.NoError(t, err)
	require.Equal(t, "postgres://postgres:pw@localhost:5432/"+
		"coinstore_test_1?sslmode=disable", dsn)
}

// TestRunDatabaseTest checks that every registered engine runs.
func TestRunDatabaseTest(t *testing.T) {
	var (
		mu   sync.Mutex
		seen []Engine
	)
	t.Run("engines", func(t *testing.T) {
		RunDatabaseTest(t, func(t *testing.T, newLocation LocationFactory) {
			engine := newLocation(t).Engine

			mu.Lock()
			seen = append(seen, engine)
			mu.Unlock()
		})
	})
	require.Len(t, seen, len(engines))
}
