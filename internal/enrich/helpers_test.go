package enrich_test

import (
	"context"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rohmanhakim/linkmeta/internal/breaker"
	"github.com/rohmanhakim/linkmeta/internal/config"
	"github.com/rohmanhakim/linkmeta/internal/enrich"
	"github.com/rohmanhakim/linkmeta/internal/extractor"
	"github.com/rohmanhakim/linkmeta/internal/fetcher"
	"github.com/rohmanhakim/linkmeta/pkg/failure"
)

type cannedResponse struct {
	status int
	body   string
	err    failure.ClassifiedError
}

// routeFetcher answers by URL path and remembers what was requested.
type routeFetcher struct {
	mu       sync.Mutex
	routes   map[string]cannedResponse
	requests []fetcher.FetchParam
}

func newRouteFetcher(routes map[string]cannedResponse) *routeFetcher {
	return &routeFetcher{routes: routes}
}

func (f *routeFetcher) Fetch(_ context.Context, param fetcher.FetchParam) (fetcher.FetchResult, failure.ClassifiedError) {
	f.mu.Lock()
	f.requests = append(f.requests, param)
	resp, ok := f.routes[param.URL().Path]
	f.mu.Unlock()

	if !ok {
		return fetcher.NewFetchResult(param.URL(), []byte("not found"), 404, nil), nil
	}
	if resp.err != nil {
		return fetcher.FetchResult{}, resp.err
	}
	return fetcher.NewFetchResult(param.URL(), []byte(resp.body), resp.status, nil), nil
}

func (f *routeFetcher) Requests() []fetcher.FetchParam {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]fetcher.FetchParam(nil), f.requests...)
}

func testConfig() config.ResolutionConfig {
	return config.ResolutionConfig{
		Timeout:       time.Second,
		MaxConcurrent: 2,
		ShowIcon:      true,
	}
}

func newContext(t *testing.T, raw string, fields extractor.RawFields, f fetcher.Fetcher, cb *breaker.CircuitBreaker) *enrich.Context {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	if cb == nil {
		cb = breaker.New(nil)
	}
	return enrich.NewContext(
		raw,
		*u,
		200,
		enrich.NewBuilder(fields),
		enrich.Deps{Fetcher: f, Breaker: cb, UserAgent: "linkmeta-test"},
		testConfig(),
	)
}

func timeoutErr() failure.ClassifiedError {
	return &fetcher.FetchError{Message: "deadline", Retryable: true, Cause: fetcher.ErrCauseTimeout}
}
