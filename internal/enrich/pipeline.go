// Package enrich applies per-site rules on top of extracted page fields.
package enrich

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rohmanhakim/linkmeta/internal/telemetry"
)

// Handler is one enrichment rule. Matches sees the context as left by the
// handlers before it. Enrich must be idempotent; its error is recorded and
// otherwise ignored.
type Handler interface {
	Name() string
	Matches(ec *Context) bool
	Enrich(ctx context.Context, ec *Context) error
}

// Pipeline runs handlers in registration order. Handlers may be appended
// at any time; a pass already running keeps the list it started with.
type Pipeline struct {
	mu       sync.RWMutex
	handlers []Handler
	sink     telemetry.Sink
}

func NewPipeline(sink telemetry.Sink, handlers ...Handler) *Pipeline {
	if sink == nil {
		sink = telemetry.NoopSink{}
	}
	return &Pipeline{
		handlers: append([]Handler(nil), handlers...),
		sink:     sink,
	}
}

// NewDefaultPipeline registers the built-in handlers in their fixed order.
func NewDefaultPipeline(sink telemetry.Sink) *Pipeline {
	return NewPipeline(sink, DefaultHandlers()...)
}

func (p *Pipeline) Register(h Handler) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handlers = append(p.handlers, h)
}

func (p *Pipeline) Names() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	names := make([]string, len(p.handlers))
	for i, h := range p.handlers {
		names[i] = h.Name()
	}
	return names
}

// Run passes ec through every matching handler and returns the names of
// the handlers that completed without error.
func (p *Pipeline) Run(ctx context.Context, ec *Context) []string {
	p.mu.RLock()
	handlers := p.handlers
	p.mu.RUnlock()

	applied := make([]string, 0, len(handlers))
	for _, h := range handlers {
		if ctx.Err() != nil {
			break
		}
		matched, err := p.matches(h, ec)
		if err != nil {
			p.record(h, ec, err)
			continue
		}
		if !matched {
			continue
		}
		if err := p.enrich(ctx, h, ec); err != nil {
			p.record(h, ec, err)
			continue
		}
		applied = append(applied, h.Name())
	}
	return applied
}

func (p *Pipeline) matches(h Handler, ec *Context) (matched bool, err *EnrichError) {
	defer func() {
		if r := recover(); r != nil {
			matched = false
			err = &EnrichError{
				Message: fmt.Sprintf("%s.Matches: %v", h.Name(), r),
				Cause:   ErrCauseHandlerPanic,
			}
		}
	}()
	return h.Matches(ec), nil
}

func (p *Pipeline) enrich(ctx context.Context, h Handler, ec *Context) (err *EnrichError) {
	defer func() {
		if r := recover(); r != nil {
			err = &EnrichError{
				Message: fmt.Sprintf("%s.Enrich: %v", h.Name(), r),
				Cause:   ErrCauseHandlerPanic,
			}
		}
	}()
	if handlerErr := h.Enrich(ctx, ec); handlerErr != nil {
		if enrichErr, ok := handlerErr.(*EnrichError); ok {
			return enrichErr
		}
		return &EnrichError{
			Message: handlerErr.Error(),
			Cause:   ErrCauseHandlerFailed,
			Err:     handlerErr,
		}
	}
	return nil
}

func (p *Pipeline) record(h Handler, ec *Context, err *EnrichError) {
	attrs := []telemetry.Attribute{
		telemetry.NewAttr(telemetry.AttrHandler, h.Name()),
		telemetry.NewAttr(telemetry.AttrURL, ec.RawURL()),
	}
	if err.Provider != "" {
		attrs = append(attrs, telemetry.NewAttr(telemetry.AttrProvider, err.Provider))
	}
	p.sink.RecordError(
		time.Now(),
		"enrich",
		"Pipeline.Run",
		mapEnrichErrorToTelemetryCause(err),
		err.Error(),
		attrs,
	)
}
