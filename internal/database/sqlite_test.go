package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSQLiteDSNDefaultsToMemory(t *testing.T) {
	for _, path := range []string{"", "  ", ":memory:"} {
		dsn, err := sqliteDSN(path)
		require.NoError(t, err)
		require.Equal(t, "file::memory:?cache=shared&_foreign_keys=1", dsn)
	}
}

func TestSQLiteDSNFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "roster.sqlite")

	dsn, err := sqliteDSN(path)
	require.NoError(t, err)
	require.Contains(t, dsn, "_journal_mode=WAL")
	require.Contains(t, dsn, "_busy_timeout=5000")
	require.Contains(t, dsn, "_foreign_keys=1")

	// The parent directory is created so first boot works on a fresh host.
	require.DirExists(t, filepath.Dir(path))
}
