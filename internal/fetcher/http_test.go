package fetcher_test

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/rohmanhakim/linkmeta/internal/fetcher"
	"github.com/rohmanhakim/linkmeta/internal/telemetry"
	"github.com/rohmanhakim/linkmeta/pkg/failure"
	"github.com/rohmanhakim/linkmeta/pkg/limiter"
	"github.com/rohmanhakim/linkmeta/pkg/retry"
	"github.com/rohmanhakim/linkmeta/pkg/timeutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingSink is a test double for telemetry.Sink
type recordingSink struct {
	mu          sync.Mutex
	fetchEvents []telemetry.FetchEvent
	errorCauses []telemetry.ErrorCause
}

func (s *recordingSink) RecordError(_ time.Time, _ string, _ string, cause telemetry.ErrorCause, _ string, _ []telemetry.Attribute) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errorCauses = append(s.errorCauses, cause)
}

func (s *recordingSink) RecordFetch(event telemetry.FetchEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetchEvents = append(s.fetchEvents, event)
}

func (s *recordingSink) RecordResolution(telemetry.ResolutionEvent) {}

func testRetryParam(maxAttempts int) retry.RetryParam {
	return retry.NewRetryParam(0, 42, maxAttempts, timeutil.NewBackoffParam(time.Millisecond, 2.0, 5*time.Millisecond))
}

func newFetcher(sink telemetry.Sink, maxAttempts int) *fetcher.HttpFetcher {
	return fetcher.NewHttpFetcher(sink, limiter.NoopPacer{}, testRetryParam(maxAttempts), 1<<20)
}

func mustParse(t *testing.T, raw string) url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return *u
}

func tagOf(err failure.ClassifiedError) string {
	return failure.TagOf(err)
}

func TestHttpFetcher_Fetch_Success(t *testing.T) {
	var gotUA, gotAccept string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotAccept = r.Header.Get("Accept")
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte("<html><head><title>Hello</title></head></html>"))
	}))
	defer server.Close()

	sink := &recordingSink{}
	f := newFetcher(sink, 1)

	result, err := f.Fetch(context.Background(), fetcher.NewFetchParam(mustParse(t, server.URL), "linkmeta-test/1.0", time.Second))
	require.Nil(t, err)

	assert.Equal(t, http.StatusOK, result.Code())
	assert.True(t, result.IsSuccess())
	assert.Contains(t, string(result.Body()), "<title>Hello</title>")
	assert.Equal(t, "text/html; charset=utf-8", result.ContentType())
	assert.Equal(t, "linkmeta-test/1.0", gotUA)
	assert.Equal(t, fetcher.AcceptHTML, gotAccept)

	require.Len(t, sink.fetchEvents, 1)
	assert.Equal(t, http.StatusOK, sink.fetchEvents[0].HTTPStatus)
	assert.Equal(t, 1, sink.fetchEvents[0].Attempts)
	assert.Empty(t, sink.errorCauses)
}

func TestHttpFetcher_Fetch_StatusIsPassedThrough(t *testing.T) {
	for _, status := range []int{http.StatusForbidden, http.StatusNotFound, http.StatusInternalServerError} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(status)
				w.Write([]byte("<title>nope</title>"))
			}))
			defer server.Close()

			result, err := newFetcher(nil, 3).Fetch(context.Background(), fetcher.NewFetchParam(mustParse(t, server.URL), "ua", time.Second))
			require.Nil(t, err)
			assert.Equal(t, status, result.Code())
			assert.False(t, result.IsSuccess())
			assert.Equal(t, "<title>nope</title>", string(result.Body()))
		})
	}
}

func TestHttpFetcher_Fetch_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	sink := &recordingSink{}
	start := time.Now()
	_, err := newFetcher(sink, 1).Fetch(context.Background(), fetcher.NewFetchParam(mustParse(t, server.URL), "ua", 50*time.Millisecond))
	require.NotNil(t, err)

	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Equal(t, "timeout", tagOf(err))

	var fetchErr *fetcher.FetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.Equal(t, fetcher.ErrCauseTimeout, fetchErr.Cause)
	assert.True(t, fetchErr.IsRetryable())
	assert.Equal(t, []telemetry.ErrorCause{telemetry.CauseNetworkFailure}, sink.errorCauses)
}

func TestHttpFetcher_Fetch_ConnectionRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	ln.Close()

	_, fetchErr := newFetcher(nil, 1).Fetch(context.Background(), fetcher.NewFetchParam(mustParse(t, "http://"+addr+"/x"), "ua", time.Second))
	require.NotNil(t, fetchErr)
	assert.Equal(t, "connection-refused", tagOf(fetchErr))
}

func TestHttpFetcher_Fetch_TLSFailure(t *testing.T) {
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	// default transport does not trust the test server's certificate
	_, err := newFetcher(nil, 1).Fetch(context.Background(), fetcher.NewFetchParam(mustParse(t, server.URL), "ua", time.Second))
	require.NotNil(t, err)
	assert.Equal(t, "tls", tagOf(err))
	assert.Equal(t, failure.SeverityFatal, err.Severity())
}

func TestHttpFetcher_Fetch_DNSFailure(t *testing.T) {
	transport := &http.Transport{
		DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			return nil, &net.DNSError{Err: "no such host", Name: "nowhere.test", IsNotFound: true}
		},
	}
	f := newFetcher(nil, 3).WithTransport(transport)

	_, err := f.Fetch(context.Background(), fetcher.NewFetchParam(mustParse(t, "http://nowhere.test/"), "ua", time.Second))
	require.NotNil(t, err)
	assert.Equal(t, "dns", tagOf(err))

	var fetchErr *fetcher.FetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.False(t, fetchErr.Retryable)
}

// flakyTransport refuses the first n connections, then delegates.
type flakyTransport struct {
	failures int32
	calls    atomic.Int32
	next     http.RoundTripper
}

func (f *flakyTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if f.calls.Add(1) <= f.failures {
		return nil, &net.OpError{Op: "dial", Net: "tcp", Err: &os.SyscallError{Syscall: "connect", Err: syscall.ECONNREFUSED}}
	}
	return f.next.RoundTrip(req)
}

func TestHttpFetcher_Fetch_RetriesRetryableTransportErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	transport := &flakyTransport{failures: 2, next: http.DefaultTransport}
	sink := &recordingSink{}
	f := newFetcher(sink, 3).WithTransport(transport)

	result, err := f.Fetch(context.Background(), fetcher.NewFetchParam(mustParse(t, server.URL), "ua", time.Second))
	require.Nil(t, err)
	assert.Equal(t, "ok", string(result.Body()))
	assert.Equal(t, int32(3), transport.calls.Load())
	require.Len(t, sink.fetchEvents, 1)
	assert.Equal(t, 3, sink.fetchEvents[0].Attempts)
}

func TestHttpFetcher_Fetch_ExhaustedRetriesKeepTag(t *testing.T) {
	transport := &flakyTransport{failures: 100, next: http.DefaultTransport}
	f := newFetcher(nil, 2).WithTransport(transport)

	_, err := f.Fetch(context.Background(), fetcher.NewFetchParam(mustParse(t, "http://a.test/x"), "ua", time.Second))
	require.NotNil(t, err)

	var retryErr *retry.RetryError
	require.True(t, errors.As(err, &retryErr))
	assert.Equal(t, "connection-refused", tagOf(err))
	assert.Equal(t, int32(2), transport.calls.Load())
}

func TestHttpFetcher_Fetch_BodyLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(strings.Repeat("a", 100)))
	}))
	defer server.Close()

	f := fetcher.NewHttpFetcher(nil, nil, testRetryParam(1), 10)
	result, err := f.Fetch(context.Background(), fetcher.NewFetchParam(mustParse(t, server.URL), "ua", time.Second))
	require.Nil(t, err)
	assert.Len(t, result.Body(), 10)
	assert.True(t, result.Truncated())
}

func TestHttpFetcher_Fetch_FollowsRedirects(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/old", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/new", http.StatusMovedPermanently)
	})
	mux.HandleFunc("/new", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("moved"))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	result, err := newFetcher(nil, 1).Fetch(context.Background(), fetcher.NewFetchParam(mustParse(t, server.URL+"/old"), "ua", time.Second))
	require.Nil(t, err)
	assert.Equal(t, "/new", result.URL().Path)
	assert.Equal(t, "moved", string(result.Body()))
}

func TestHttpFetcher_Fetch_RedirectLimit(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Redirect(w, r, r.URL.Path, http.StatusFound)
	}))
	defer server.Close()

	_, err := newFetcher(nil, 1).Fetch(context.Background(), fetcher.NewFetchParam(mustParse(t, server.URL+"/loop"), "ua", time.Second))
	require.NotNil(t, err)

	var fetchErr *fetcher.FetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.Equal(t, fetcher.ErrCauseRedirectLimitExceeded, fetchErr.Cause)
	assert.Equal(t, "network", fetchErr.Tag())
	assert.Equal(t, int32(fetcher.MaxRedirects), hits.Load())
}

func TestHttpFetcher_Fetch_InvalidURL(t *testing.T) {
	_, err := newFetcher(nil, 1).Fetch(context.Background(), fetcher.NewFetchParam(url.URL{Scheme: "gopher", Host: "a.test"}, "ua", time.Second))
	require.NotNil(t, err)
	assert.Equal(t, "invalid-url", tagOf(err))
}

func TestHttpFetcher_Fetch_Cancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := newFetcher(nil, 3).Fetch(ctx, fetcher.NewFetchParam(mustParse(t, server.URL), "ua", 5*time.Second))
	require.NotNil(t, err)
	assert.Equal(t, "cancelled", tagOf(err))
}

func TestHttpFetcher_Fetch_BackoffOnOverload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	pacer := limiter.NewConcurrentHostPacer()
	pacer.SetJitter(0)
	f := fetcher.NewHttpFetcher(nil, pacer, testRetryParam(1), 1<<20)

	u := mustParse(t, server.URL)
	result, err := f.Fetch(context.Background(), fetcher.NewFetchParam(u, "ua", time.Second))
	require.Nil(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, result.Code())

	timing := pacer.HostTimings()[u.Hostname()]
	assert.Equal(t, 1, timing.BackoffCount())
	assert.False(t, timing.LastFetchAt().IsZero())
}

func TestFetchParam_Options(t *testing.T) {
	u := url.URL{Scheme: "https", Host: "a.test"}
	p := fetcher.NewFetchParam(u, "ua", time.Second).WithAccept(fetcher.AcceptJSON).AsSecondary()
	assert.True(t, p.Secondary())
	assert.Equal(t, time.Second, p.Timeout())
	assert.Equal(t, u, p.URL())
}
