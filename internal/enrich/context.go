package enrich

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/rohmanhakim/linkmeta/internal/breaker"
	"github.com/rohmanhakim/linkmeta/internal/config"
	"github.com/rohmanhakim/linkmeta/internal/fetcher"
	"github.com/rohmanhakim/linkmeta/internal/sanitizer"
	"github.com/rohmanhakim/linkmeta/pkg/urlutil"
)

// Deps are the long-lived capabilities every Context borrows.
type Deps struct {
	// Fetcher must be gated so secondary fetches count against the
	// concurrency ceiling.
	Fetcher   fetcher.Fetcher
	Sanitizer sanitizer.Sanitizer
	Breaker   *breaker.CircuitBreaker
	UserAgent string
}

// Context is the per-resolution view handlers work on. It is created for
// one pipeline pass and never shared between resolutions.
type Context struct {
	rawUrl    string
	sourceUrl url.URL
	status    int
	metadata  *Builder
	deps      Deps
	cfg       config.ResolutionConfig
}

func NewContext(
	rawUrl string,
	sourceUrl url.URL,
	status int,
	builder *Builder,
	deps Deps,
	cfg config.ResolutionConfig,
) *Context {
	if deps.Sanitizer == nil {
		deps.Sanitizer = sanitizer.NewTextSanitizer()
	}
	return &Context{
		rawUrl:    rawUrl,
		sourceUrl: sourceUrl,
		status:    status,
		metadata:  builder,
		deps:      deps,
		cfg:       cfg,
	}
}

func (c *Context) RawURL() string                  { return c.rawUrl }
func (c *Context) URL() url.URL                    { return c.sourceUrl }
func (c *Context) Host() string                    { return urlutil.Host(c.sourceUrl) }
func (c *Context) Status() int                     { return c.status }
func (c *Context) Metadata() *Builder              { return c.metadata }
func (c *Context) Config() config.ResolutionConfig { return c.cfg }

// Clean runs s through the sanitizer.
func (c *Context) Clean(s string) string {
	return c.deps.Sanitizer.Text(s)
}

// FetchJSON issues a secondary GET through the gated fetcher, guarded by
// provider's circuit, and decodes a 2xx JSON body into v.
func (c *Context) FetchJSON(ctx context.Context, provider string, target url.URL, v any) error {
	if c.deps.Fetcher == nil {
		return &EnrichError{Message: "no fetcher configured", Cause: ErrCauseFetchFailed, Provider: provider}
	}
	if c.deps.Breaker != nil {
		if err := c.deps.Breaker.Allow(provider); err != nil {
			return &EnrichError{Message: err.Error(), Cause: ErrCauseCircuitOpen, Provider: provider, Err: err}
		}
	}

	param := fetcher.NewFetchParam(target, c.deps.UserAgent, c.cfg.Timeout).
		WithAccept(fetcher.AcceptJSON).
		AsSecondary()
	result, fetchErr := c.deps.Fetcher.Fetch(ctx, param)
	if fetchErr != nil {
		c.recordFailure(provider, fetchErr)
		return &EnrichError{Message: fetchErr.Error(), Cause: ErrCauseFetchFailed, Provider: provider, Err: fetchErr}
	}

	if !result.IsSuccess() {
		statusErr := &EnrichError{
			Message:  http.StatusText(result.Code()),
			Cause:    ErrCauseBadStatus,
			Provider: provider,
		}
		// 4xx is the provider answering; only overload and server faults count against it
		if result.Code() == http.StatusTooManyRequests || result.Code() >= 500 {
			c.recordFailure(provider, statusErr)
		} else {
			c.recordSuccess(provider)
		}
		return statusErr
	}
	c.recordSuccess(provider)

	if err := json.Unmarshal(result.Body(), v); err != nil {
		return &EnrichError{Message: err.Error(), Cause: ErrCauseUndecodable, Provider: provider, Err: err}
	}
	return nil
}

func (c *Context) recordFailure(provider string, err error) {
	if c.deps.Breaker != nil {
		c.deps.Breaker.RecordFailure(provider, err)
	}
}

func (c *Context) recordSuccess(provider string) {
	if c.deps.Breaker != nil {
		c.deps.Breaker.RecordSuccess(provider)
	}
}
