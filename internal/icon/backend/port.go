// Package backend persists icon references keyed by host.
package backend

import (
	"context"

	"github.com/rohmanhakim/linkmeta/pkg/failure"
)

// Record is one persisted icon lookup. An empty Ref records that the host
// was looked up and has no icon.
type Record struct {
	Ref       string `json:"ref"`
	FetchedAt int64  `json:"fetchedAt"` // epoch milliseconds
}

// Backend is the port between the icon store and durable storage. The
// store reads everything once at startup and writes through on every set,
// so implementations only need whole-table reads and single-key writes.
type Backend interface {
	Name() string

	// Load returns every stored record.
	Load(ctx context.Context) (map[string]Record, failure.ClassifiedError)

	// Put inserts or overwrites the record for host.
	Put(ctx context.Context, host string, record Record) failure.ClassifiedError

	// Clear removes every record.
	Clear(ctx context.Context) failure.ClassifiedError

	Close() error
}
