package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"sync"
	"time"

	"github.com/rohmanhakim/linkmeta/internal/telemetry"
	"github.com/rohmanhakim/linkmeta/pkg/failure"
	"github.com/rohmanhakim/linkmeta/pkg/fileutil"
	"github.com/rohmanhakim/linkmeta/pkg/hashutil"
)

// snapshot is the on-disk layout. Checksum covers the JSON encoding of
// Entries.
type snapshot struct {
	Checksum string            `json:"checksum"`
	Entries  map[string]Record `json:"entries"`
}

// FileBackend keeps the whole table in one JSON file, rewritten atomically
// on every Put. A snapshot that fails to parse or verify is treated as
// empty and overwritten by the next write.
type FileBackend struct {
	mu      sync.Mutex
	path    string
	entries map[string]Record
	loaded  bool
	sink    telemetry.Sink
}

func NewFileBackend(path string, sink telemetry.Sink) *FileBackend {
	if sink == nil {
		sink = telemetry.NoopSink{}
	}
	return &FileBackend{
		path:    path,
		entries: make(map[string]Record),
		sink:    sink,
	}
}

func (f *FileBackend) Name() string { return "file" }

func (f *FileBackend) Path() string { return f.path }

func (f *FileBackend) Load(context.Context) (map[string]Record, failure.ClassifiedError) {
	f.mu.Lock()
	defer f.mu.Unlock()

	entries, err := f.read()
	if err != nil {
		if err.Cause != ErrCauseCorrupt {
			return nil, err
		}
		f.sink.RecordError(
			time.Now(),
			"backend",
			"FileBackend.Load",
			MapStoreErrorToTelemetryCause(err),
			err.Error(),
			[]telemetry.Attribute{telemetry.NewAttr(telemetry.AttrBackend, f.Name())},
		)
		entries = make(map[string]Record)
	}
	f.entries = entries
	f.loaded = true
	return maps.Clone(entries), nil
}

func (f *FileBackend) Put(_ context.Context, host string, record Record) failure.ClassifiedError {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.ensureLoaded(); err != nil {
		return err
	}
	f.entries[host] = record
	return f.write()
}

func (f *FileBackend) Clear(context.Context) failure.ClassifiedError {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.entries = make(map[string]Record)
	f.loaded = true
	return f.write()
}

func (f *FileBackend) Close() error { return nil }

// ensureLoaded reads the file once so a Put before Load does not drop
// records already on disk.
func (f *FileBackend) ensureLoaded() failure.ClassifiedError {
	if f.loaded {
		return nil
	}
	entries, err := f.read()
	if err != nil {
		if err.Cause != ErrCauseCorrupt {
			return err
		}
		entries = make(map[string]Record)
	}
	f.entries = entries
	f.loaded = true
	return nil
}

func (f *FileBackend) read() (map[string]Record, *StoreError) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return make(map[string]Record), nil
	}
	if err != nil {
		return nil, readError(f.Name(), err)
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, f.corrupt(fmt.Sprintf("unparseable snapshot %s: %v", f.path, err))
	}
	if snap.Entries == nil {
		snap.Entries = make(map[string]Record)
	}
	payload, err := json.Marshal(snap.Entries)
	if err != nil {
		return nil, f.corrupt(err.Error())
	}
	if !hashutil.Verify(payload, snap.Checksum) {
		return nil, f.corrupt(fmt.Sprintf("checksum mismatch in %s", f.path))
	}
	return snap.Entries, nil
}

func (f *FileBackend) write() failure.ClassifiedError {
	payload, err := json.Marshal(f.entries)
	if err != nil {
		return writeError(f.Name(), err)
	}
	data, err := json.MarshalIndent(snapshot{
		Checksum: hashutil.Checksum(payload),
		Entries:  f.entries,
	}, "", "  ")
	if err != nil {
		return writeError(f.Name(), err)
	}
	if writeErr := fileutil.WriteFileAtomic(f.path, data, 0o644); writeErr != nil {
		return writeError(f.Name(), writeErr)
	}
	return nil
}

func (f *FileBackend) corrupt(message string) *StoreError {
	return &StoreError{Message: message, Cause: ErrCauseCorrupt, Backend: f.Name()}
}
