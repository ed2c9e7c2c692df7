package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"theone-todo/internal/config"
)

func TestInitDB_SQLiteMemory(t *testing.T) {
	db, err := InitDB(config.DatabaseConfig{Driver: "sqlite3", Path: ":memory:"})
	require.NoError(t, err)
	defer db.Close()

	for _, table := range []string{"users", "todos"} {
		var name string
		err := db.QueryRow("SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?", table).Scan(&name)
		require.NoError(t, err, "table %s should exist", table)
		assert.Equal(t, table, name)
	}
}

func TestInitDB_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "theone.db")
	cfg := config.DatabaseConfig{Driver: "sqlite3", Path: path}

	db, err := InitDB(cfg)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db, err = InitDB(cfg)
	require.NoError(t, err)
	defer db.Close()

	var fk int
	require.NoError(t, db.QueryRow("PRAGMA foreign_keys").Scan(&fk))
	assert.Equal(t, 1, fk)
}

func TestInitDB_UnknownDriver(t *testing.T) {
	_, err := InitDB(config.DatabaseConfig{Driver: "nope"})
	require.Error(t, err)
}
