package backend

import (
	"context"
	"maps"
	"sync"

	"github.com/rohmanhakim/linkmeta/pkg/failure"
)

// MemoryBackend keeps records in a map. Nothing survives the process; it
// serves tests and callers that opt out of persistence.
type MemoryBackend struct {
	mu   sync.RWMutex
	data map[string]Record
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		data: make(map[string]Record),
	}
}

func (m *MemoryBackend) Name() string { return "memory" }

func (m *MemoryBackend) Load(context.Context) (map[string]Record, failure.ClassifiedError) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return maps.Clone(m.data), nil
}

func (m *MemoryBackend) Put(_ context.Context, host string, record Record) failure.ClassifiedError {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[host] = record
	return nil
}

func (m *MemoryBackend) Clear(context.Context) failure.ClassifiedError {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = make(map[string]Record)
	return nil
}

// Size returns the number of stored records.
func (m *MemoryBackend) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}

func (m *MemoryBackend) Close() error { return nil }
