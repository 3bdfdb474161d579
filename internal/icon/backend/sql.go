package backend

import (
	"context"
	"database/sql"

	"github.com/rohmanhakim/linkmeta/pkg/failure"
)

type sqlQueries struct {
	load  string
	put   string
	clear string
}

// sqlBackend implements Backend over any database/sql driver whose dialect
// supports INSERT ... ON CONFLICT.
type sqlBackend struct {
	name    string
	db      *sql.DB
	queries sqlQueries
}

func (s *sqlBackend) Name() string { return s.name }

func (s *sqlBackend) Load(ctx context.Context) (map[string]Record, failure.ClassifiedError) {
	rows, err := s.db.QueryContext(ctx, s.queries.load)
	if err != nil {
		return nil, readError(s.name, err)
	}
	defer rows.Close()

	records := make(map[string]Record)
	for rows.Next() {
		var host string
		var record Record
		if err := rows.Scan(&host, &record.Ref, &record.FetchedAt); err != nil {
			return nil, readError(s.name, err)
		}
		records[host] = record
	}
	if err := rows.Err(); err != nil {
		return nil, readError(s.name, err)
	}
	return records, nil
}

func (s *sqlBackend) Put(ctx context.Context, host string, record Record) failure.ClassifiedError {
	if _, err := s.db.ExecContext(ctx, s.queries.put, host, record.Ref, record.FetchedAt); err != nil {
		return writeError(s.name, err)
	}
	return nil
}

func (s *sqlBackend) Clear(ctx context.Context) failure.ClassifiedError {
	if _, err := s.db.ExecContext(ctx, s.queries.clear); err != nil {
		return writeError(s.name, err)
	}
	return nil
}

func (s *sqlBackend) Close() error {
	return s.db.Close()
}
