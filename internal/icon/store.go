// Package icon resolves and remembers site icons per host.
package icon

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rohmanhakim/linkmeta/internal/icon/backend"
	"github.com/rohmanhakim/linkmeta/internal/telemetry"
	"github.com/rohmanhakim/linkmeta/pkg/failure"
)

const DefaultExpiry = 30 * 24 * time.Hour

type StoreStats struct {
	Entries int `json:"entries"`
	// epoch milliseconds of the oldest entry, 0 when empty
	OldestTimestamp int64 `json:"oldestTimestamp"`
}

// Store is an in-memory host -> icon table rehydrated from a Backend at
// construction and written through on every Set. Entries older than the
// expiry are reported absent but stay stored until overwritten or cleared.
type Store struct {
	mu      sync.RWMutex
	entries map[string]backend.Record
	backend backend.Backend
	expiry  time.Duration
	now     func() time.Time
	sink    telemetry.Sink
}

// NewStore loads b. A backend that cannot be read leaves the store empty;
// the error is returned alongside a usable store.
func NewStore(ctx context.Context, b backend.Backend, expiry time.Duration, sink telemetry.Sink) (*Store, failure.ClassifiedError) {
	if b == nil {
		b = backend.NewMemoryBackend()
	}
	if expiry <= 0 {
		expiry = DefaultExpiry
	}
	if sink == nil {
		sink = telemetry.NoopSink{}
	}
	s := &Store{
		entries: make(map[string]backend.Record),
		backend: b,
		expiry:  expiry,
		now:     time.Now,
		sink:    sink,
	}

	records, err := b.Load(ctx)
	if err != nil {
		s.recordError("Store.Load", err)
		return s, err
	}
	for host, record := range records {
		s.entries[normalizeHost(host)] = record
	}
	return s, nil
}

// WithClock replaces the time source, for tests.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// Get returns the icon reference for host. known is false when there is no
// entry or it has expired; known with an empty ref means the host is known
// to have no icon.
func (s *Store) Get(host string) (ref string, known bool) {
	s.mu.RLock()
	record, ok := s.entries[normalizeHost(host)]
	s.mu.RUnlock()
	if !ok {
		return "", false
	}
	fetchedAt := time.UnixMilli(record.FetchedAt)
	if s.now().Sub(fetchedAt) > s.expiry {
		return "", false
	}
	return record.Ref, true
}

// Set records ref for host and writes it through. The in-memory entry is
// kept even if the backend write fails.
func (s *Store) Set(ctx context.Context, host string, ref string) failure.ClassifiedError {
	host = normalizeHost(host)
	record := backend.Record{Ref: ref, FetchedAt: s.now().UnixMilli()}

	s.mu.Lock()
	s.entries[host] = record
	s.mu.Unlock()

	if err := s.backend.Put(ctx, host, record); err != nil {
		s.recordError("Store.Set", err)
		return err
	}
	return nil
}

func (s *Store) Clear(ctx context.Context) failure.ClassifiedError {
	s.mu.Lock()
	s.entries = make(map[string]backend.Record)
	s.mu.Unlock()

	if err := s.backend.Clear(ctx); err != nil {
		s.recordError("Store.Clear", err)
		return err
	}
	return nil
}

func (s *Store) Stats() StoreStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := StoreStats{Entries: len(s.entries)}
	for _, record := range s.entries {
		if stats.OldestTimestamp == 0 || record.FetchedAt < stats.OldestTimestamp {
			stats.OldestTimestamp = record.FetchedAt
		}
	}
	return stats
}

func (s *Store) BackendName() string {
	return s.backend.Name()
}

func (s *Store) Close() error {
	return s.backend.Close()
}

func (s *Store) recordError(action string, err failure.ClassifiedError) {
	cause := telemetry.CauseStorageFailure
	if storeErr, ok := err.(*backend.StoreError); ok {
		cause = backend.MapStoreErrorToTelemetryCause(storeErr)
	}
	s.sink.RecordError(
		s.now(),
		"icon",
		action,
		cause,
		err.Error(),
		[]telemetry.Attribute{telemetry.NewAttr(telemetry.AttrBackend, s.backend.Name())},
	)
}

func normalizeHost(host string) string {
	return strings.TrimSuffix(strings.ToLower(strings.TrimSpace(host)), ".")
}
