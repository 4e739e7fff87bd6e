package db

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewSQLite_Migrates(t *testing.T) {
	d, err := NewSQLite(filepath.Join(t.TempDir(), "gateway.db"))
	require.NoError(t, err)
	defer d.Close()

	for _, table := range []string{"jobs", "translation_cache"} {
		var name string
		err := d.DB().QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		require.NoError(t, err, "table %s", table)
	}

	// migrations are idempotent
	require.NoError(t, d.migrate())
}
