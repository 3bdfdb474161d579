// Package breaker tracks consecutive failures per third-party provider and
// stops calling a provider that keeps failing.
package breaker

import (
	"fmt"
	"sync"
	"time"

	"github.com/rohmanhakim/linkmeta/internal/telemetry"
)

const (
	DefaultFailureThreshold = 3
	DefaultOpenDuration     = 5 * time.Minute
)

type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

type provider struct {
	state       State
	failures    int
	lastFailure time.Time
	probing     bool
}

// ProviderStats is the read-only view of one provider's circuit.
type ProviderStats struct {
	State       string    `json:"state"`
	Failures    int       `json:"failures"`
	LastFailure time.Time `json:"lastFailure,omitempty"`
}

// CircuitBreaker opens a provider's circuit after FailureThreshold
// consecutive failures, keeps it open for OpenDuration, then lets a single
// probe through. A successful probe closes the circuit; a failed one
// reopens it.
type CircuitBreaker struct {
	mu               sync.Mutex
	providers        map[string]*provider
	failureThreshold int
	openDuration     time.Duration
	now              func() time.Time
	sink             telemetry.Sink
}

func New(sink telemetry.Sink) *CircuitBreaker {
	if sink == nil {
		sink = telemetry.NoopSink{}
	}
	return &CircuitBreaker{
		providers:        make(map[string]*provider),
		failureThreshold: DefaultFailureThreshold,
		openDuration:     DefaultOpenDuration,
		now:              time.Now,
		sink:             sink,
	}
}

func (cb *CircuitBreaker) WithFailureThreshold(n int) *CircuitBreaker {
	if n > 0 {
		cb.failureThreshold = n
	}
	return cb
}

func (cb *CircuitBreaker) WithOpenDuration(d time.Duration) *CircuitBreaker {
	if d > 0 {
		cb.openDuration = d
	}
	return cb
}

// WithClock replaces the time source, for tests.
func (cb *CircuitBreaker) WithClock(now func() time.Time) *CircuitBreaker {
	cb.now = now
	return cb
}

// Allow reports whether a call to name may proceed. A nil error means yes.
// When the open period has elapsed the first caller becomes the half-open
// probe; everyone else is refused until that probe reports back.
func (cb *CircuitBreaker) Allow(name string) error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	p, ok := cb.providers[name]
	if !ok {
		return nil
	}

	switch p.state {
	case StateOpen:
		nextRetry := p.lastFailure.Add(cb.openDuration)
		if cb.now().Before(nextRetry) {
			return &OpenError{Provider: name, Failures: p.failures, NextRetry: nextRetry}
		}
		p.state = StateHalfOpen
		p.probing = true
		return nil
	case StateHalfOpen:
		if p.probing {
			return &OpenError{Provider: name, Failures: p.failures, NextRetry: p.lastFailure.Add(cb.openDuration)}
		}
		p.probing = true
		return nil
	default:
		return nil
	}
}

func (cb *CircuitBreaker) RecordSuccess(name string) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	p, ok := cb.providers[name]
	if !ok {
		return
	}
	if p.state != StateClosed {
		cb.sink.RecordError(
			cb.now(),
			"breaker",
			"CircuitBreaker.RecordSuccess",
			telemetry.CauseUnknown,
			fmt.Sprintf("circuit for %s closed", name),
			[]telemetry.Attribute{telemetry.NewAttr(telemetry.AttrProvider, name)},
		)
	}
	delete(cb.providers, name)
}

func (cb *CircuitBreaker) RecordFailure(name string, err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	p, ok := cb.providers[name]
	if !ok {
		p = &provider{}
		cb.providers[name] = p
	}
	p.failures++
	p.lastFailure = cb.now()
	p.probing = false

	if p.state == StateHalfOpen || p.failures >= cb.failureThreshold {
		opening := p.state != StateOpen
		p.state = StateOpen
		if opening {
			cb.sink.RecordError(
				p.lastFailure,
				"breaker",
				"CircuitBreaker.RecordFailure",
				telemetry.CauseEnrichmentFailure,
				fmt.Sprintf("circuit for %s opened after %d consecutive failures: %v", name, p.failures, err),
				[]telemetry.Attribute{telemetry.NewAttr(telemetry.AttrProvider, name)},
			)
		}
	}
}

// State returns the current state of name without transitioning it.
func (cb *CircuitBreaker) State(name string) State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if p, ok := cb.providers[name]; ok {
		return p.state
	}
	return StateClosed
}

// Stats lists every provider with a non-clean record.
func (cb *CircuitBreaker) Stats() map[string]ProviderStats {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	stats := make(map[string]ProviderStats, len(cb.providers))
	for name, p := range cb.providers {
		stats[name] = ProviderStats{
			State:       p.state.String(),
			Failures:    p.failures,
			LastFailure: p.lastFailure,
		}
	}
	return stats
}

// Reset forgets every provider.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.providers = make(map[string]*provider)
}
