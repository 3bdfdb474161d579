package backend

import (
	"database/sql"

	_ "github.com/mattn/go-sqlite3"
)

var sqliteQueries = sqlQueries{
	load: `SELECT host, ref, fetched_at FROM icon_cache`,
	put: `INSERT INTO icon_cache (host, ref, fetched_at) VALUES (?, ?, ?)
		ON CONFLICT (host) DO UPDATE SET ref = excluded.ref, fetched_at = excluded.fetched_at`,
	clear: `DELETE FROM icon_cache`,
}

// SQLiteBackend stores records in a SQLite database file.
type SQLiteBackend struct {
	sqlBackend
}

// OpenSQLite opens (creating if needed) the database at path and migrates
// it. path may be ":memory:".
func OpenSQLite(path string) (*SQLiteBackend, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, &StoreError{Message: err.Error(), Cause: ErrCauseConnect, Backend: "sqlite"}
	}
	// every connection to :memory: is a separate database
	db.SetMaxOpenConns(1)

	if err := Migrate(db, "sqlite3"); err != nil {
		db.Close()
		return nil, &StoreError{Message: err.Error(), Cause: ErrCauseMigrate, Backend: "sqlite"}
	}
	return NewSQLiteBackend(db), nil
}

// NewSQLiteBackend wraps an already migrated database.
func NewSQLiteBackend(db *sql.DB) *SQLiteBackend {
	return &SQLiteBackend{sqlBackend{name: "sqlite", db: db, queries: sqliteQueries}}
}
