package sqltest

import (
	"path/filepath"
	"testing"
)

// NewSQLiteLocation returns the path of a not yet created SQLite file in a
// per test temporary directory. The directory and everything in it, including
// WAL side files, is removed when the test ends.
func NewSQLiteLocation(t testing.TB) Location {
	t.Helper()

	dir := t.TempDir()
	name := "coinstore_" + deterministicTestID(t) + ".sqlite"

	return Location{
		Engine: SQLite,
		Path:   filepath.Join(dir, name),
	}
}
