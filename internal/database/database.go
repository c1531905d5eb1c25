package database

import (
	"database/sql"

	_ "modernc.org/sqlite" // SQLite driver
)

// New creates a new database connection pool.
func New(dataSourceName string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", "file:"+dataSourceName+"?_pragma=foreign_keys(1)")
	if err != nil {
		return nil, err
	}
	// SQLite allows one writer at a time; a single pooled connection avoids
	// SQLITE_BUSY under concurrent handlers.
	db.SetMaxOpenConns(1)
	if err = db.Ping(); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate runs the SQL statements to set up the database schema.
func Migrate(db *sql.DB) error {
	const sqlStmt = `
	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		provider_id TEXT NOT NULL UNIQUE,
		username TEXT NOT NULL,
		email TEXT NOT NULL,
		display_name TEXT NOT NULL,
		avatar_url TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS kweks (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		text TEXT NOT NULL,
		-- Fixed-width RFC3339 UTC so lexical order matches chronological order
		posted_at TEXT NOT NULL,
		user_id INTEGER NOT NULL REFERENCES users(id)
	);

	CREATE INDEX IF NOT EXISTS idx_kweks_posted_at ON kweks(posted_at DESC);
	`
	_, err := db.Exec(sqlStmt)
	return err
}
