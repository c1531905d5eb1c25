package monitoring_test

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kwekker/kwekker-be/internal/database"
	"github.com/kwekker/kwekker-be/internal/monitoring"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := database.New(filepath.Join(t.TempDir(), "kwekker.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(db))
	return db
}

func TestNewUsageReporter(t *testing.T) {
	db := setupDB(t)

	t.Run("accepts a standard cron expression", func(t *testing.T) {
		_, err := monitoring.NewUsageReporter(db, "*/15 * * * *")
		require.NoError(t, err)
	})

	t.Run("rejects garbage", func(t *testing.T) {
		_, err := monitoring.NewUsageReporter(db, "whenever")
		require.Error(t, err)
	})
}

func TestSnapshotCounts(t *testing.T) {
	db := setupDB(t)

	res, err := db.Exec(
		"INSERT INTO users(provider_id, username, email, display_name, avatar_url) VALUES(?, ?, ?, ?, ?)",
		"auth0|alice", "alice", "alice@example.com", "Alice", "https://example.com/a.png")
	require.NoError(t, err)
	userID, err := res.LastInsertId()
	require.NoError(t, err)

	for _, text := range []string{"one", "two"} {
		_, err := db.Exec("INSERT INTO kweks(text, posted_at, user_id) VALUES(?, ?, ?)",
			text, "2026-08-01T12:00:00.000000000Z", userID)
		require.NoError(t, err)
	}

	reporter, err := monitoring.NewUsageReporter(db, "@hourly")
	require.NoError(t, err)

	snap, err := reporter.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, int64(1), snap.Users)
	assert.Equal(t, int64(2), snap.Kweks)
}
