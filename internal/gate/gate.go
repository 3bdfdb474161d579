// Package gate bounds the number of simultaneous outbound requests.
package gate

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// MaxCeiling is the largest ceiling a Gate accepts.
const MaxCeiling = 1 << 16

// Gate admits at most Ceiling holders at a time. Waiters are served in
// arrival order.
//
// The underlying semaphore is sized to MaxCeiling; the gate itself holds
// the unused part as a reservation. Growing releases reservation, shrinking
// queues a reservation request behind current waiters, so nobody is
// admitted past the new ceiling once Resize returns.
type Gate struct {
	sem *semaphore.Weighted

	resizeMu sync.Mutex
	ceiling  atomic.Int64

	active  atomic.Int64
	waiting atomic.Int64
	peak    atomic.Int64
}

type Stats struct {
	Ceiling int   `json:"ceiling"`
	Active  int64 `json:"active"`
	Waiting int64 `json:"waiting"`
	Peak    int64 `json:"peak"`
}

func New(ceiling int) (*Gate, error) {
	if err := validCeiling(ceiling); err != nil {
		return nil, err
	}
	g := &Gate{sem: semaphore.NewWeighted(MaxCeiling)}
	// cannot block: the semaphore is fresh
	if !g.sem.TryAcquire(int64(MaxCeiling - ceiling)) {
		return nil, fmt.Errorf("gate: failed to reserve capacity")
	}
	g.ceiling.Store(int64(ceiling))
	return g, nil
}

// Acquire blocks until a slot is free or ctx is done.
func (g *Gate) Acquire(ctx context.Context) (*Permit, error) {
	g.waiting.Add(1)
	err := g.sem.Acquire(ctx, 1)
	g.waiting.Add(-1)
	if err != nil {
		return nil, err
	}

	active := g.active.Add(1)
	for {
		peak := g.peak.Load()
		if active <= peak || g.peak.CompareAndSwap(peak, active) {
			break
		}
	}
	return &Permit{gate: g}, nil
}

// Release returns p to the gate. Releasing nil or an already released
// permit is a no-op.
func (g *Gate) Release(p *Permit) {
	p.Release()
}

// Resize changes the ceiling. Shrinking waits, honouring ctx, until enough
// holders have released.
func (g *Gate) Resize(ctx context.Context, ceiling int) error {
	if err := validCeiling(ceiling); err != nil {
		return err
	}
	g.resizeMu.Lock()
	defer g.resizeMu.Unlock()

	current := g.ceiling.Load()
	delta := int64(ceiling) - current
	switch {
	case delta > 0:
		g.sem.Release(delta)
	case delta < 0:
		if err := g.sem.Acquire(ctx, -delta); err != nil {
			return err
		}
	}
	g.ceiling.Store(int64(ceiling))
	return nil
}

func (g *Gate) Ceiling() int {
	return int(g.ceiling.Load())
}

func (g *Gate) Stats() Stats {
	return Stats{
		Ceiling: int(g.ceiling.Load()),
		Active:  g.active.Load(),
		Waiting: g.waiting.Load(),
		Peak:    g.peak.Load(),
	}
}

func validCeiling(ceiling int) error {
	if ceiling < 1 || ceiling > MaxCeiling {
		return fmt.Errorf("gate: ceiling must be between 1 and %d, got %d", MaxCeiling, ceiling)
	}
	return nil
}

// Permit is one held slot.
type Permit struct {
	gate     *Gate
	released atomic.Bool
}

func (p *Permit) Release() {
	if p == nil || !p.released.CompareAndSwap(false, true) {
		return
	}
	p.gate.active.Add(-1)
	p.gate.sem.Release(1)
}
