// Package resolver turns URLs into Metadata records. It owns the result
// cache and the registry of in-flight resolutions, and wires fetching,
// extraction, validation, enrichment and icon lookup together.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/rohmanhakim/linkmeta/internal/breaker"
	"github.com/rohmanhakim/linkmeta/internal/config"
	"github.com/rohmanhakim/linkmeta/internal/enrich"
	"github.com/rohmanhakim/linkmeta/internal/extractor"
	"github.com/rohmanhakim/linkmeta/internal/fetcher"
	"github.com/rohmanhakim/linkmeta/internal/gate"
	"github.com/rohmanhakim/linkmeta/internal/icon"
	"github.com/rohmanhakim/linkmeta/internal/sanitizer"
	"github.com/rohmanhakim/linkmeta/internal/telemetry"
	"github.com/rohmanhakim/linkmeta/internal/validator"
	"github.com/rohmanhakim/linkmeta/pkg/boundedcache"
	"github.com/rohmanhakim/linkmeta/pkg/failure"
	"github.com/rohmanhakim/linkmeta/pkg/urlutil"
)

// ErrInvalidURL is returned for input that cannot name any page at all.
var ErrInvalidURL = errors.New("invalid url")

type Stats struct {
	Cache    boundedcache.Stats               `json:"cache"`
	Icon     icon.StoreStats                  `json:"icon"`
	Gate     gate.Stats                       `json:"gate"`
	Pending  int64                            `json:"pending"`
	Fetches  int64                            `json:"fetches"`
	Breakers map[string]breaker.ProviderStats `json:"breakers"`
}

// Service resolves URLs. Concurrent Resolve calls for the same URL share
// one resolution; every outbound request, including enrichment and icon
// lookups, holds a gate slot while it runs.
type Service struct {
	cache   *boundedcache.Cache[string, Metadata]
	flights singleflight.Group
	pending atomic.Int64
	fetches atomic.Int64

	gate      *gate.Gate
	fetcher   fetcher.Fetcher
	extractor extractor.Extractor
	validator validator.Validator
	pipeline  *enrich.Pipeline
	iconStore *icon.Store
	icons     *icon.Resolver
	breaker   *breaker.CircuitBreaker
	sanitizer sanitizer.Sanitizer

	userAgent string
	sink      telemetry.Sink
}

// NewService wires a Service around transport, which performs the actual
// network calls. store is owned by the service from here on.
func NewService(cfg config.Config, transport fetcher.Fetcher, store *icon.Store, sink telemetry.Sink) (*Service, error) {
	if transport == nil {
		return nil, fmt.Errorf("%w: transport is required", config.ErrInvalidConfig)
	}
	if sink == nil {
		sink = telemetry.NoopSink{}
	}
	if store == nil {
		store, _ = icon.NewStore(context.Background(), nil, cfg.IconExpiry(), sink)
	}

	cache, err := boundedcache.New[string, Metadata](cfg.CacheCapacity())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", config.ErrInvalidConfig, err)
	}
	g, err := gate.New(cfg.MaxConcurrent())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", config.ErrInvalidConfig, err)
	}

	gated := gate.NewFetcher(g, transport)
	textSanitizer := sanitizer.NewTextSanitizer()
	cb := breaker.New(sink)

	return &Service{
		cache:     cache,
		gate:      g,
		fetcher:   gated,
		extractor: extractor.NewMetaExtractor(sink, textSanitizer),
		validator: validator.NewResultValidator(),
		pipeline:  enrich.NewDefaultPipeline(sink),
		iconStore: store,
		icons:     icon.NewResolver(store, gated, cb, cfg.FallbackIconService(), cfg.UserAgent(), sink),
		breaker:   cb,
		sanitizer: textSanitizer,
		userAgent: cfg.UserAgent(),
		sink:      sink,
	}, nil
}

// WithPipeline replaces the enrichment pipeline.
func (s *Service) WithPipeline(p *enrich.Pipeline) *Service {
	s.pipeline = p
	return s
}

// Pipeline exposes the enrichment pipeline so callers can append handlers.
func (s *Service) Pipeline() *enrich.Pipeline {
	return s.pipeline
}

// Resolve returns the Metadata for rawUrl. The only errors are invalid
// cfg and input that is not a URL at all; every network, content and
// enrichment failure comes back as a record with Error set.
func (s *Service) Resolve(ctx context.Context, rawUrl string, cfg config.ResolutionConfig) (Metadata, error) {
	if err := cfg.Validate(); err != nil {
		return Metadata{}, err
	}
	if strings.TrimSpace(rawUrl) == "" {
		return Metadata{}, fmt.Errorf("%w: %w", ErrInvalidURL, urlutil.ErrEmptyURL)
	}

	start := time.Now()
	requestID := uuid.NewString()

	sourceUrl, err := urlutil.Parse(rawUrl)
	if err != nil {
		md := failed(strings.TrimSpace(rawUrl), "", "invalid-url")
		s.recordResolution(requestID, md, telemetry.CacheMiss, start)
		return md, nil
	}
	canonical := urlutil.Canonicalize(sourceUrl)
	key := canonical.String()

	if cfg.MaxConcurrent != s.gate.Ceiling() {
		if err := s.gate.Resize(ctx, cfg.MaxConcurrent); err != nil {
			md := failed(key, urlutil.FallbackTitle(canonical), "cancelled")
			s.recordResolution(requestID, md, telemetry.CacheMiss, start)
			return md, nil
		}
	}

	if md, ok := s.cache.Get(key); ok {
		md = s.present(ctx, key, md, cfg)
		s.recordResolution(requestID, md, telemetry.CacheHit, start)
		return md, nil
	}

	flight := s.flights.DoChan(key, func() (any, error) {
		// a flight for key may have finished between the miss above and Do
		if md, ok := s.cache.Peek(key); ok {
			return md, nil
		}
		s.pending.Add(1)
		defer s.pending.Add(-1)

		md := s.resolveUncached(context.WithoutCancel(ctx), requestID, key, canonical, cfg)
		s.cache.Set(key, md)
		return md, nil
	})

	select {
	case res := <-flight:
		md := s.present(ctx, key, res.Val.(Metadata), cfg)
		outcome := telemetry.CacheStored
		if res.Shared {
			outcome = telemetry.CacheShared
		}
		s.recordResolution(requestID, md, outcome, start)
		return md, nil
	case <-ctx.Done():
		// the shared resolution keeps running and lands in the cache
		md := failed(key, urlutil.FallbackTitle(canonical), "cancelled")
		s.recordResolution(requestID, md, telemetry.CacheMiss, start)
		return md, nil
	}
}

// present shapes a cached or shared record for one caller. The record may
// have been resolved for a caller with a different ShowIcon, so the icon is
// dropped when not wanted and looked up when wanted but missing.
func (s *Service) present(ctx context.Context, key string, md Metadata, cfg config.ResolutionConfig) Metadata {
	md = md.clone()
	if !cfg.ShowIcon {
		md.IconRef = nil
		return md
	}
	if md.IconRef != nil || !md.responded {
		return md
	}
	sourceUrl, err := urlutil.Parse(key)
	if err != nil {
		return md
	}
	md.IconRef = ptr(s.icons.Resolve(ctx, urlutil.Host(sourceUrl), md.iconHint, cfg.Timeout))
	if md.IconRef != nil {
		s.cache.Set(key, md.clone())
	}
	return md
}

// ResolveAll resolves urls concurrently and returns records in input order.
func (s *Service) ResolveAll(ctx context.Context, urls []string, cfg config.ResolutionConfig) ([]Metadata, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	results := make([]Metadata, len(urls))
	g, gctx := errgroup.WithContext(ctx)
	for i, rawUrl := range urls {
		g.Go(func() error {
			md, err := s.Resolve(gctx, rawUrl, cfg)
			if err != nil {
				return fmt.Errorf("resolve %q: %w", rawUrl, err)
			}
			results[i] = md
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// ClearAll empties the result cache and the icon store.
func (s *Service) ClearAll(ctx context.Context) failure.ClassifiedError {
	s.cache.Clear()
	return s.iconStore.Clear(ctx)
}

func (s *Service) Stats() Stats {
	return Stats{
		Cache:    s.cache.Stats(),
		Icon:     s.iconStore.Stats(),
		Gate:     s.gate.Stats(),
		Pending:  s.pending.Load(),
		Fetches:  s.fetches.Load(),
		Breakers: s.breaker.Stats(),
	}
}

func (s *Service) Close() error {
	return s.iconStore.Close()
}

func (s *Service) resolveUncached(
	ctx context.Context,
	requestID string,
	key string,
	sourceUrl url.URL,
	cfg config.ResolutionConfig,
) (md Metadata) {
	fallbackTitle := urlutil.FallbackTitle(sourceUrl)
	defer func() {
		if r := recover(); r != nil {
			s.recordError(requestID, key, telemetry.CauseInvariantViolation, fmt.Sprintf("resolution panicked: %v", r))
			md = failed(key, fallbackTitle, "internal")
		}
	}()

	s.fetches.Add(1)
	param := fetcher.NewFetchParam(sourceUrl, s.userAgent, cfg.Timeout)
	result, fetchErr := s.fetcher.Fetch(ctx, param)
	if fetchErr != nil {
		s.recordError(requestID, key, telemetry.CauseNetworkFailure, fetchErr.Error())
		return failed(key, fallbackTitle, failure.TagOf(fetchErr))
	}

	fields := s.extractor.Extract(result.URL(), result.Body())
	outcome := s.validator.Classify(result, fields)

	builder := enrich.NewBuilder(fields)
	ec := enrich.NewContext(
		key,
		sourceUrl,
		result.Code(),
		builder,
		enrich.Deps{
			Fetcher:   s.fetcher,
			Sanitizer: s.sanitizer,
			Breaker:   s.breaker,
			UserAgent: s.userAgent,
		},
		cfg,
	)
	s.pipeline.Run(ctx, ec)
	enriched := builder.Fields()

	md = Metadata{
		URL:         key,
		Title:       extractor.Deref(enriched.Title),
		Description: enriched.Description,
		SiteName:    enriched.SiteName,
		Image:       enriched.Image,
		iconHint:    extractor.Deref(enriched.IconHint),
		responded:   true,
	}

	if !outcome.IsOk() {
		// page text of an error page says nothing about the link
		touched := touchedSet(builder.Touched())
		if _, ok := touched["title"]; !ok {
			md.Title = ""
		}
		if _, ok := touched["description"]; !ok {
			md.Description = nil
		}
		md.Error = ptr(outcome.Tag())
		validationErr := outcome.Err()
		s.recordError(requestID, key, validator.MapValidationErrorToTelemetryCause(validationErr), validationErr.Error())
	}
	if md.Title == "" {
		md.Title = fallbackTitle
	}

	if cfg.ShowIcon {
		md.IconRef = ptr(s.icons.Resolve(ctx, urlutil.Host(sourceUrl), md.iconHint, cfg.Timeout))
	}
	return md
}

func touchedSet(fields []string) map[string]struct{} {
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}

func (s *Service) recordResolution(requestID string, md Metadata, outcome telemetry.CacheOutcome, start time.Time) {
	s.sink.RecordResolution(telemetry.ResolutionEvent{
		RequestID: requestID,
		URL:       md.URL,
		Outcome:   outcome,
		ErrorTag:  md.ErrorTag(),
		Duration:  time.Since(start),
	})
}

func (s *Service) recordError(requestID string, key string, cause telemetry.ErrorCause, details string) {
	s.sink.RecordError(
		time.Now(),
		"resolver",
		"Service.Resolve",
		cause,
		details,
		[]telemetry.Attribute{
			telemetry.NewAttr(telemetry.AttrRequestID, requestID),
			telemetry.NewAttr(telemetry.AttrURL, key),
		},
	)
}
