package limiter_test

import (
	"context"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/rohmanhakim/linkmeta/pkg/limiter"
	"github.com/rohmanhakim/linkmeta/pkg/timeutil"
)

func TestNewConcurrentHostPacer(t *testing.T) {
	p := limiter.NewConcurrentHostPacer()
	p.SetBaseDelay(1 * time.Second)
	p.SetJitter(100 * time.Millisecond)
	p.SetRandomSeed(42)

	if p.BaseDelay() != 1*time.Second {
		t.Errorf("baseDelay = %v, want 1s", p.BaseDelay())
	}
	if p.Jitter() != 100*time.Millisecond {
		t.Errorf("jitter = %v, want 100ms", p.Jitter())
	}
	if p.HostTimings() == nil {
		t.Error("hostTimings map not initialized")
	}
}

func TestHostPacer_SetHostDelay(t *testing.T) {
	p := limiter.NewConcurrentHostPacer()
	p.SetHostDelay("example.com", 2*time.Second)

	timing := p.HostTimings()["example.com"]
	if timing.HostDelay() != 2*time.Second {
		t.Errorf("hostDelay = %v, want 2s", timing.HostDelay())
	}
}

func TestHostPacer_Backoff(t *testing.T) {
	p := limiter.NewConcurrentHostPacer()
	p.SetJitter(0)
	p.SetBackoffParam(timeutil.NewBackoffParam(time.Second, 2.0, 3*time.Second))
	host := "example.com"

	expected := []time.Duration{1 * time.Second, 2 * time.Second, 3 * time.Second, 3 * time.Second}
	for i, want := range expected {
		p.Backoff(host)
		timing := p.HostTimings()[host]
		if timing.BackoffCount() != i+1 {
			t.Errorf("backoffCount after %d Backoff = %d", i+1, timing.BackoffCount())
		}
		if timing.BackoffDelay() != want {
			t.Errorf("backoffDelay after %d Backoff = %v, want %v", i+1, timing.BackoffDelay(), want)
		}
	}
}

func TestHostPacer_ResetBackoff(t *testing.T) {
	p := limiter.NewConcurrentHostPacer()
	p.SetJitter(0)
	host := "example.com"

	p.Backoff(host)
	p.Backoff(host)
	p.ResetBackoff(host)

	timing := p.HostTimings()[host]
	if timing.BackoffCount() != 0 {
		t.Errorf("backoffCount after reset = %d, want 0", timing.BackoffCount())
	}
	if timing.BackoffDelay() != 0 {
		t.Errorf("backoffDelay after reset = %v, want 0", timing.BackoffDelay())
	}
}

func TestHostPacer_ResolveDelay_UnknownHost(t *testing.T) {
	p := limiter.NewConcurrentHostPacer()
	p.SetBaseDelay(time.Second)

	if d := p.ResolveDelay("never-seen.test"); d != 0 {
		t.Errorf("ResolveDelay for unknown host = %v, want 0", d)
	}
}

func TestHostPacer_ResolveDelay_TakesMaxOfDelays(t *testing.T) {
	p := limiter.NewConcurrentHostPacer()
	p.SetBaseDelay(100 * time.Millisecond)
	p.SetJitter(0)
	host := "example.com"

	p.SetHostDelay(host, 5*time.Second)
	p.MarkLastFetchAsNow(host)

	d := p.ResolveDelay(host)
	if d <= 4*time.Second || d > 5*time.Second {
		t.Errorf("ResolveDelay = %v, want close to 5s", d)
	}
}

func TestHostPacer_ResolveDelay_ElapsedAlready(t *testing.T) {
	p := limiter.NewConcurrentHostPacer()
	p.SetBaseDelay(time.Millisecond)
	p.SetJitter(0)
	host := "example.com"

	p.MarkLastFetchAsNow(host)
	time.Sleep(5 * time.Millisecond)

	if d := p.ResolveDelay(host); d != 0 {
		t.Errorf("ResolveDelay = %v, want 0 after the delay elapsed", d)
	}
}

func TestHostPacer_ResolveDelay_JitterIsBounded(t *testing.T) {
	p := limiter.NewConcurrentHostPacer()
	p.SetBaseDelay(time.Second)
	p.SetJitter(500 * time.Millisecond)
	p.SetRNG(rand.New(rand.NewSource(7)))
	host := "example.com"
	p.MarkLastFetchAsNow(host)

	for i := 0; i < 50; i++ {
		d := p.ResolveDelay(host)
		if d > 1500*time.Millisecond {
			t.Fatalf("ResolveDelay = %v exceeds base + jitter", d)
		}
	}
}

func TestHostPacer_WaitCancelled(t *testing.T) {
	p := limiter.NewConcurrentHostPacer()
	p.SetJitter(0)
	host := "example.com"
	p.SetHostDelay(host, time.Hour)
	p.MarkLastFetchAsNow(host)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if err := p.Wait(ctx, host); err == nil {
		t.Fatal("expected Wait to return the context error")
	}
}

func TestHostPacer_WaitMarksFetch(t *testing.T) {
	p := limiter.NewConcurrentHostPacer()
	host := "example.com"

	if err := p.Wait(context.Background(), host); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.HostTimings()[host].LastFetchAt().IsZero() {
		t.Error("expected Wait to record the fetch time")
	}
}

func TestNoopPacer(t *testing.T) {
	var p limiter.HostPacer = limiter.NoopPacer{}
	p.Backoff("example.com")
	if d := p.ResolveDelay("example.com"); d != 0 {
		t.Errorf("NoopPacer.ResolveDelay = %v, want 0", d)
	}
	if err := p.Wait(context.Background(), "example.com"); err != nil {
		t.Errorf("NoopPacer.Wait = %v, want nil", err)
	}
}

// Run with -race to detect unsynchronized access.
func TestHostPacer_ConcurrentAccess(t *testing.T) {
	p := limiter.NewConcurrentHostPacer()
	p.SetBaseDelay(time.Millisecond)
	p.SetJitter(time.Millisecond)
	p.SetRandomSeed(42)

	hosts := []string{"a.example", "b.example", "c.example"}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(int64(id)))
			for j := 0; j < 200; j++ {
				h := hosts[r.Intn(len(hosts))]
				switch r.Intn(7) {
				case 0:
					p.SetBaseDelay(time.Duration(r.Intn(3)) * time.Millisecond)
				case 1:
					p.SetHostDelay(h, time.Duration(r.Intn(3))*time.Millisecond)
				case 2:
					p.Backoff(h)
				case 3:
					p.ResetBackoff(h)
				case 4:
					p.MarkLastFetchAsNow(h)
				case 5:
					_ = p.HostTimings()
				default:
					_ = p.ResolveDelay(h)
				}
			}
		}(i)
	}
	wg.Wait()

	if p.HostTimings() == nil {
		t.Fatal("HostTimings returned nil map")
	}
}
