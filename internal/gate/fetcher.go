package gate

import (
	"context"
	"errors"

	"github.com/rohmanhakim/linkmeta/internal/fetcher"
	"github.com/rohmanhakim/linkmeta/pkg/failure"
)

// Fetcher holds a gate slot for the duration of each call to next. Every
// outbound path (primary fetch, enrichment, icon lookup) goes through one.
type Fetcher struct {
	gate *Gate
	next fetcher.Fetcher
}

func NewFetcher(gate *Gate, next fetcher.Fetcher) *Fetcher {
	return &Fetcher{gate: gate, next: next}
}

func (f *Fetcher) Fetch(ctx context.Context, fetchParam fetcher.FetchParam) (fetcher.FetchResult, failure.ClassifiedError) {
	permit, err := f.gate.Acquire(ctx)
	if err != nil {
		cause := fetcher.ErrCauseCancelled
		if errors.Is(err, context.DeadlineExceeded) {
			cause = fetcher.ErrCauseTimeout
		}
		return fetcher.FetchResult{}, &fetcher.FetchError{
			Message:   "waiting for a fetch slot: " + err.Error(),
			Retryable: false,
			Cause:     cause,
		}
	}
	defer permit.Release()

	return f.next.Fetch(ctx, fetchParam)
}
