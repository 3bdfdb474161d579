package fetcher

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"syscall"
	"time"

	"github.com/rohmanhakim/linkmeta/internal/telemetry"
	"github.com/rohmanhakim/linkmeta/pkg/failure"
	"github.com/rohmanhakim/linkmeta/pkg/limiter"
	"github.com/rohmanhakim/linkmeta/pkg/retry"
)

/*
Responsibilities

- Perform HTTP GET requests
- Apply headers and a per-request timeout
- Follow redirects up to a bound
- Classify transport failures into FetchError

Fetch Semantics

- Every status code is returned to the caller untouched
- Bodies are read up to a size limit; the rest is discarded
- Content type is not enforced; callers decide what to parse
- Retryable transport failures are retried within the retry budget
- 429 and 5xx answers grow the host's pacing backoff
*/

const MaxRedirects = 10

var errRedirectLimit = errors.New("stopped after too many redirects")

type HttpFetcher struct {
	sink         telemetry.Sink
	httpClient   *http.Client
	pacer        limiter.HostPacer
	retryParam   retry.RetryParam
	maxBodyBytes int64
}

func NewHttpFetcher(
	sink telemetry.Sink,
	pacer limiter.HostPacer,
	retryParam retry.RetryParam,
	maxBodyBytes int64,
) *HttpFetcher {
	if sink == nil {
		sink = telemetry.NoopSink{}
	}
	if pacer == nil {
		pacer = limiter.NoopPacer{}
	}
	return &HttpFetcher{
		sink:         sink,
		httpClient:   newHTTPClient(nil),
		pacer:        pacer,
		retryParam:   retryParam,
		maxBodyBytes: maxBodyBytes,
	}
}

// WithTransport swaps the round tripper, keeping the redirect policy.
func (h *HttpFetcher) WithTransport(transport http.RoundTripper) *HttpFetcher {
	h.httpClient = newHTTPClient(transport)
	return h
}

func newHTTPClient(transport http.RoundTripper) *http.Client {
	return &http.Client{
		Transport: transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= MaxRedirects {
				return errRedirectLimit
			}
			return nil
		},
	}
}

func (h *HttpFetcher) Fetch(ctx context.Context, fetchParam FetchParam) (FetchResult, failure.ClassifiedError) {
	callerMethod := "HttpFetcher.Fetch"
	startTime := time.Now()

	fetchTask := func() (FetchResult, failure.ClassifiedError) {
		return h.performFetch(ctx, fetchParam)
	}
	result := retry.Retry(ctx, h.retryParam, fetchTask)

	event := telemetry.FetchEvent{
		FetchURL:  fetchParam.fetchUrl.String(),
		Duration:  time.Since(startTime),
		Attempts:  result.Attempts(),
		Secondary: fetchParam.secondary,
	}
	if result.IsSuccess() {
		event.HTTPStatus = result.Value().Code()
		event.ContentType = result.Value().ContentType()
	}
	h.sink.RecordFetch(event)

	if result.IsFailure() {
		h.recordError(callerMethod, fetchParam.fetchUrl, result.Err())
		return FetchResult{}, result.Err()
	}
	return result.Value(), nil
}

func (h *HttpFetcher) recordError(callerMethod string, fetchUrl url.URL, err failure.ClassifiedError) {
	cause := telemetry.CauseUnknown
	var fetchErr *FetchError
	if errors.As(err, &fetchErr) {
		cause = mapFetchErrorToTelemetryCause(fetchErr)
	}
	h.sink.RecordError(
		time.Now(),
		"fetcher",
		callerMethod,
		cause,
		err.Error(),
		[]telemetry.Attribute{
			telemetry.NewAttr(telemetry.AttrURL, fetchUrl.String()),
			telemetry.NewAttr(telemetry.AttrHost, fetchUrl.Hostname()),
		},
	)
}

func (h *HttpFetcher) performFetch(ctx context.Context, fetchParam FetchParam) (FetchResult, failure.ClassifiedError) {
	fetchUrl := fetchParam.fetchUrl
	host := fetchUrl.Hostname()

	if err := h.pacer.Wait(ctx, host); err != nil {
		return FetchResult{}, &FetchError{
			Message:   err.Error(),
			Retryable: false,
			Cause:     ErrCausePacing,
		}
	}

	reqCtx := ctx
	if fetchParam.timeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, fetchParam.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, fetchUrl.String(), nil)
	if err != nil {
		return FetchResult{}, &FetchError{
			Message:   fmt.Sprintf("failed to create request: %v", err),
			Retryable: false,
			Cause:     ErrCauseInvalidURL,
		}
	}
	for key, value := range requestHeaders(fetchParam.userAgent, fetchParam.accept) {
		req.Header.Set(key, value)
	}

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return FetchResult{}, classifyTransportError(ctx, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		h.pacer.Backoff(host)
	} else {
		h.pacer.ResetBackoff(host)
	}

	body, truncated, err := readLimited(resp.Body, h.maxBodyBytes)
	if err != nil {
		classified := classifyTransportError(ctx, err)
		if classified.Cause == ErrCauseNetworkFailure {
			classified.Cause = ErrCauseReadResponseBodyError
		}
		return FetchResult{}, classified
	}

	responseHeaders := make(map[string]string, len(resp.Header))
	for key, values := range resp.Header {
		if len(values) > 0 {
			responseHeaders[key] = values[0]
		}
	}

	finalURL := fetchUrl
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = *resp.Request.URL
	}

	return FetchResult{
		url:  finalURL,
		body: body,
		meta: ResponseMeta{
			statusCode:      resp.StatusCode,
			truncated:       truncated,
			responseHeaders: responseHeaders,
		},
	}, nil
}

func readLimited(r io.Reader, limit int64) ([]byte, bool, error) {
	if limit <= 0 {
		body, err := io.ReadAll(r)
		return body, false, err
	}
	body, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, false, err
	}
	if int64(len(body)) > limit {
		return body[:limit], true, nil
	}
	return body, false, nil
}

// classifyTransportError maps a client error onto a FetchError cause.
// parent is the caller's context, used to tell a cancellation from our own timeout.
func classifyTransportError(parent context.Context, err error) *FetchError {
	msg := err.Error()

	if errors.Is(err, errRedirectLimit) {
		return &FetchError{Message: msg, Retryable: false, Cause: ErrCauseRedirectLimitExceeded}
	}
	if errors.Is(parent.Err(), context.Canceled) {
		return &FetchError{Message: msg, Retryable: false, Cause: ErrCauseCancelled}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &FetchError{Message: msg, Retryable: true, Cause: ErrCauseTimeout}
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		if dnsErr.IsTimeout {
			return &FetchError{Message: msg, Retryable: true, Cause: ErrCauseTimeout}
		}
		return &FetchError{Message: msg, Retryable: false, Cause: ErrCauseDNS}
	}

	if isTLSError(err) {
		return &FetchError{Message: msg, Retryable: false, Cause: ErrCauseTLS}
	}

	if errors.Is(err, syscall.ECONNREFUSED) {
		return &FetchError{Message: msg, Retryable: true, Cause: ErrCauseConnectionRefused}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &FetchError{Message: msg, Retryable: true, Cause: ErrCauseTimeout}
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) && isURLShapeError(urlErr.Err) {
		return &FetchError{Message: msg, Retryable: false, Cause: ErrCauseInvalidURL}
	}

	return &FetchError{Message: msg, Retryable: true, Cause: ErrCauseNetworkFailure}
}

func isTLSError(err error) bool {
	var (
		recordErr   tls.RecordHeaderError
		verifyErr   *tls.CertificateVerificationError
		unknownAuth x509.UnknownAuthorityError
		hostnameErr x509.HostnameError
		invalidErr  x509.CertificateInvalidError
	)
	switch {
	case errors.As(err, &recordErr),
		errors.As(err, &verifyErr),
		errors.As(err, &unknownAuth),
		errors.As(err, &hostnameErr),
		errors.As(err, &invalidErr):
		return true
	}
	return strings.Contains(err.Error(), "tls: ")
}

func isURLShapeError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "unsupported protocol scheme") ||
		strings.Contains(msg, "no Host in request URL")
}

func requestHeaders(userAgent string, accept string) map[string]string {
	return map[string]string{
		"User-Agent":      userAgent,
		"Accept":          accept,
		"Accept-Language": "en-US,en;q=0.5",
	}
}
