package limiter

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/rohmanhakim/linkmeta/pkg/timeutil"
)

// HostPacer spaces out requests to the same host.
// Responsibilities:
// - Bookkeep each hostname's last fetch timestamp
// - Grow a per-host backoff when the host signals overload (429, 5xx)
// - Compute how long a caller must wait before hitting the host again
type HostPacer interface {
	SetBaseDelay(baseDelay time.Duration)
	SetJitter(jitter time.Duration)
	SetRandomSeed(randomSeed int64)
	SetBackoffParam(param timeutil.BackoffParam)
	SetHostDelay(host string, delay time.Duration)
	Backoff(host string)
	ResetBackoff(host string)
	MarkLastFetchAsNow(host string)
	ResolveDelay(host string) time.Duration
	Wait(ctx context.Context, host string) error
}

type ConcurrentHostPacer struct {
	mu           sync.RWMutex
	rngMu        sync.Mutex
	baseDelay    time.Duration
	jitter       time.Duration
	backoffParam timeutil.BackoffParam
	hostTimings  map[string]hostTiming
	rng          *rand.Rand
}

func NewConcurrentHostPacer() *ConcurrentHostPacer {
	return &ConcurrentHostPacer{
		hostTimings:  make(map[string]hostTiming),
		rng:          rand.New(rand.NewSource(time.Now().UnixNano())),
		backoffParam: timeutil.NewBackoffParam(1*time.Second, 2.0, 30*time.Second),
	}
}

func (r *ConcurrentHostPacer) SetBaseDelay(baseDelay time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.baseDelay = baseDelay
}

func (r *ConcurrentHostPacer) SetJitter(jitter time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.jitter = jitter
}

func (r *ConcurrentHostPacer) SetRandomSeed(randomSeed int64) {
	r.rngMu.Lock()
	defer r.rngMu.Unlock()

	r.rng = rand.New(rand.NewSource(randomSeed))
}

func (r *ConcurrentHostPacer) SetBackoffParam(param timeutil.BackoffParam) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.backoffParam = param
}

// SetHostDelay sets a minimum spacing for one host, independent of the base delay.
func (r *ConcurrentHostPacer) SetHostDelay(host string, delay time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	timing := r.hostTimings[host]
	timing.hostDelay = delay
	r.hostTimings[host] = timing
}

// Backoff increments the host's backoff counter and recomputes its delay.
func (r *ConcurrentHostPacer) Backoff(host string) {
	r.mu.Lock()
	timing := r.hostTimings[host]
	timing.backoffCount++
	count := timing.backoffCount
	param := r.backoffParam
	jitter := r.jitter
	r.mu.Unlock()

	// rng is guarded by rngMu only; compute outside r.mu
	delay := r.withRNG(func(rng *rand.Rand) time.Duration {
		return timeutil.ExponentialBackoffDelay(count, jitter, rng, param)
	})

	r.mu.Lock()
	defer r.mu.Unlock()
	timing = r.hostTimings[host]
	timing.backoffCount = count
	timing.backoffDelay = delay
	r.hostTimings[host] = timing
}

// ResetBackoff clears backoff state after a successful request.
func (r *ConcurrentHostPacer) ResetBackoff(host string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	timing, exists := r.hostTimings[host]
	if exists {
		timing.backoffCount = 0
		timing.backoffDelay = 0
		r.hostTimings[host] = timing
	}
}

func (r *ConcurrentHostPacer) MarkLastFetchAsNow(host string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	timing := r.hostTimings[host]
	timing.lastFetchAt = time.Now()
	r.hostTimings[host] = timing
}

// ResolveDelay returns the remaining wait for host.
// FinalDelay = max(BaseDelay, HostDelay, BackoffDelay) + Jitter, minus time since last fetch
func (r *ConcurrentHostPacer) ResolveDelay(host string) time.Duration {
	r.mu.RLock()
	timing, exists := r.hostTimings[host]
	base := r.baseDelay
	jitter := r.jitter
	r.mu.RUnlock()

	if !exists {
		return 0
	}

	finalDelay := timeutil.MaxDuration([]time.Duration{base, timing.hostDelay, timing.backoffDelay})
	if finalDelay == 0 {
		return 0
	}
	finalDelay += r.withRNG(func(rng *rand.Rand) time.Duration {
		return timeutil.ComputeJitter(jitter, rng)
	})

	elapsed := time.Since(timing.lastFetchAt)
	if elapsed < finalDelay {
		return finalDelay - elapsed
	}
	return 0
}

// Wait blocks until host may be fetched again, then marks the fetch.
func (r *ConcurrentHostPacer) Wait(ctx context.Context, host string) error {
	if err := timeutil.Sleep(ctx, r.ResolveDelay(host)); err != nil {
		return err
	}
	r.MarkLastFetchAsNow(host)
	return nil
}

// SetRNG allows injecting a custom random number generator for testing
func (r *ConcurrentHostPacer) SetRNG(rng *rand.Rand) {
	if rng == nil {
		return
	}
	r.rngMu.Lock()
	r.rng = rng
	r.rngMu.Unlock()
}

func (r *ConcurrentHostPacer) BaseDelay() time.Duration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.baseDelay
}

func (r *ConcurrentHostPacer) Jitter() time.Duration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.jitter
}

// HostTimings returns a snapshot copy of the per-host state.
func (r *ConcurrentHostPacer) HostTimings() map[string]hostTiming {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]hostTiming, len(r.hostTimings))
	for k, v := range r.hostTimings {
		out[k] = v
	}
	return out
}

func (r *ConcurrentHostPacer) withRNG(fn func(rng *rand.Rand) time.Duration) time.Duration {
	r.rngMu.Lock()
	defer r.rngMu.Unlock()
	return fn(r.rng)
}

// NoopPacer never delays.
type NoopPacer struct{}

func (NoopPacer) SetBaseDelay(time.Duration)                  {}
func (NoopPacer) SetJitter(time.Duration)                     {}
func (NoopPacer) SetRandomSeed(int64)                         {}
func (NoopPacer) SetBackoffParam(timeutil.BackoffParam)       {}
func (NoopPacer) SetHostDelay(string, time.Duration)          {}
func (NoopPacer) Backoff(string)                              {}
func (NoopPacer) ResetBackoff(string)                         {}
func (NoopPacer) MarkLastFetchAsNow(string)                   {}
func (NoopPacer) ResolveDelay(string) time.Duration           { return 0 }
func (NoopPacer) Wait(ctx context.Context, host string) error { return ctx.Err() }
