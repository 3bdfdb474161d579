package backend

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/lib/pq"
)

var postgresQueries = sqlQueries{
	load: `SELECT host, ref, fetched_at FROM icon_cache`,
	put: `INSERT INTO icon_cache (host, ref, fetched_at) VALUES ($1, $2, $3)
		ON CONFLICT (host) DO UPDATE SET ref = EXCLUDED.ref, fetched_at = EXCLUDED.fetched_at`,
	clear: `DELETE FROM icon_cache`,
}

// PostgresBackend stores records in the icon_cache table.
type PostgresBackend struct {
	sqlBackend
}

// OpenPostgres connects with dsn and migrates the schema.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresBackend, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, &StoreError{Message: err.Error(), Cause: ErrCauseConnect, Backend: "postgres"}
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, &StoreError{Message: err.Error(), Retryable: true, Cause: ErrCauseConnect, Backend: "postgres"}
	}

	if err := Migrate(db, "postgres"); err != nil {
		db.Close()
		return nil, &StoreError{Message: err.Error(), Cause: ErrCauseMigrate, Backend: "postgres"}
	}
	return NewPostgresBackend(db), nil
}

// NewPostgresBackend wraps an already migrated database.
func NewPostgresBackend(db *sql.DB) *PostgresBackend {
	return &PostgresBackend{sqlBackend{name: "postgres", db: db, queries: postgresQueries}}
}
