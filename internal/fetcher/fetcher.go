package fetcher

import (
	"context"

	"github.com/rohmanhakim/linkmeta/pkg/failure"
)

// Fetcher issues one logical outbound GET. Implementations never return
// an error for an HTTP status; only transport failures are errors.
type Fetcher interface {
	Fetch(ctx context.Context, fetchParam FetchParam) (FetchResult, failure.ClassifiedError)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, fetchParam FetchParam) (FetchResult, failure.ClassifiedError)

func (f FetcherFunc) Fetch(ctx context.Context, fetchParam FetchParam) (FetchResult, failure.ClassifiedError) {
	return f(ctx, fetchParam)
}
