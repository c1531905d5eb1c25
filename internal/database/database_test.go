package database_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kwekker/kwekker-be/internal/database"
)

func TestMigrateIsIdempotent(t *testing.T) {
	db, err := database.New(filepath.Join(t.TempDir(), "kwekker.db"))
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, database.Migrate(db))
	require.NoError(t, database.Migrate(db))
}

func TestKwekRequiresExistingOwner(t *testing.T) {
	db, err := database.New(filepath.Join(t.TempDir(), "kwekker.db"))
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, database.Migrate(db))

	_, err = db.Exec("INSERT INTO kweks(text, posted_at, user_id) VALUES(?, ?, ?)",
		"orphan", "2026-08-01T12:00:00.000000000Z", 12345)
	require.Error(t, err, "foreign keys must be enforced")
}
