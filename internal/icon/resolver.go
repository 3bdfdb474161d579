package icon

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rohmanhakim/linkmeta/internal/breaker"
	"github.com/rohmanhakim/linkmeta/internal/fetcher"
	"github.com/rohmanhakim/linkmeta/internal/telemetry"
)

// ServiceProvider is the breaker name of the fallback icon service.
const ServiceProvider = "icon-service"

// Resolver picks an icon reference for a host: a usable page hint first,
// then the Store, then the fallback service. It never fails; every problem
// degrades to "".
type Resolver struct {
	store     *Store
	fetcher   fetcher.Fetcher
	breaker   *breaker.CircuitBreaker
	service   string
	userAgent string
	sink      telemetry.Sink
}

// NewResolver builds a Resolver. service is a format string with one %s
// for the host; empty disables the fallback lookup. f should be gated.
func NewResolver(
	store *Store,
	f fetcher.Fetcher,
	cb *breaker.CircuitBreaker,
	service string,
	userAgent string,
	sink telemetry.Sink,
) *Resolver {
	if sink == nil {
		sink = telemetry.NoopSink{}
	}
	return &Resolver{
		store:     store,
		fetcher:   f,
		breaker:   cb,
		service:   service,
		userAgent: userAgent,
		sink:      sink,
	}
}

func (r *Resolver) Resolve(ctx context.Context, host string, iconHint string, timeout time.Duration) string {
	host = normalizeHost(host)
	if host == "" {
		return ""
	}

	if IsWellFormed(iconHint) {
		if ref, known := r.store.Get(host); !known || ref != iconHint {
			// write failures are recorded by the store; the hint is still good
			_ = r.store.Set(ctx, host, iconHint)
		}
		return iconHint
	}

	if ref, known := r.store.Get(host); known {
		return ref
	}

	ref, cacheable := r.lookup(ctx, host, timeout)
	if cacheable {
		_ = r.store.Set(ctx, host, ref)
	}
	return ref
}

// lookup asks the fallback service. cacheable is false when the answer
// says nothing about the host (transport failure, overload, open circuit).
func (r *Resolver) lookup(ctx context.Context, host string, timeout time.Duration) (ref string, cacheable bool) {
	if r.service == "" || r.fetcher == nil {
		return "", false
	}
	if r.breaker != nil {
		if err := r.breaker.Allow(ServiceProvider); err != nil {
			return "", false
		}
	}

	target, err := url.Parse(fmt.Sprintf(r.service, url.QueryEscape(host)))
	if err != nil {
		r.recordError(host, telemetry.CauseInvariantViolation, err.Error())
		return "", false
	}

	param := fetcher.NewFetchParam(*target, r.userAgent, timeout).
		WithAccept("image/*").
		AsSecondary()
	result, fetchErr := r.fetcher.Fetch(ctx, param)
	if fetchErr != nil {
		r.failed(host, fetchErr)
		return "", false
	}

	status := result.Code()
	switch {
	case status == http.StatusTooManyRequests || status >= 500:
		r.failed(host, fmt.Errorf("icon service answered %d", status))
		return "", false
	case result.IsSuccess() && len(result.Body()) > 0 && isImage(result.ContentType()):
		r.succeeded()
		return target.String(), true
	default:
		r.succeeded()
		return "", true
	}
}

func (r *Resolver) failed(host string, err error) {
	if r.breaker != nil {
		r.breaker.RecordFailure(ServiceProvider, err)
	}
	r.recordError(host, telemetry.CauseNetworkFailure, err.Error())
}

func (r *Resolver) succeeded() {
	if r.breaker != nil {
		r.breaker.RecordSuccess(ServiceProvider)
	}
}

func (r *Resolver) recordError(host string, cause telemetry.ErrorCause, details string) {
	r.sink.RecordError(
		time.Now(),
		"icon",
		"Resolver.lookup",
		cause,
		details,
		[]telemetry.Attribute{
			telemetry.NewAttr(telemetry.AttrHost, host),
			telemetry.NewAttr(telemetry.AttrProvider, ServiceProvider),
		},
	)
}

// IsWellFormed reports whether ref can be used as an icon reference as-is:
// an absolute http(s) URL with a host, or an inline image data URI.
func IsWellFormed(ref string) bool {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return false
	}
	if strings.HasPrefix(strings.ToLower(ref), "data:image/") {
		return true
	}
	u, err := url.Parse(ref)
	if err != nil {
		return false
	}
	scheme := strings.ToLower(u.Scheme)
	return (scheme == "http" || scheme == "https") && u.Hostname() != ""
}

func isImage(contentType string) bool {
	// some services omit the header on image bodies
	return contentType == "" || strings.HasPrefix(strings.ToLower(strings.TrimSpace(contentType)), "image/")
}
