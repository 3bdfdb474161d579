package enrich_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rohmanhakim/linkmeta/internal/enrich"
	"github.com/rohmanhakim/linkmeta/internal/extractor"
	"github.com/rohmanhakim/linkmeta/internal/telemetry"
)

// funcHandler is a Handler assembled from closures.
type funcHandler struct {
	name    string
	matches func(ec *enrich.Context) bool
	enrich  func(ctx context.Context, ec *enrich.Context) error
}

func (h funcHandler) Name() string { return h.name }

func (h funcHandler) Matches(ec *enrich.Context) bool {
	if h.matches == nil {
		return true
	}
	return h.matches(ec)
}

func (h funcHandler) Enrich(ctx context.Context, ec *enrich.Context) error {
	if h.enrich == nil {
		return nil
	}
	return h.enrich(ctx, ec)
}

type sinkMock struct {
	mock.Mock
}

func (m *sinkMock) RecordError(
	observedAt time.Time,
	packageName string,
	action string,
	cause telemetry.ErrorCause,
	details string,
	attrs []telemetry.Attribute,
) {
	m.Called(observedAt, packageName, action, cause, details, attrs)
}

func (m *sinkMock) RecordFetch(event telemetry.FetchEvent) {
	m.Called(event)
}

func (m *sinkMock) RecordResolution(event telemetry.ResolutionEvent) {
	m.Called(event)
}

func TestPipeline_RunsInRegistrationOrder(t *testing.T) {
	var order []string
	record := func(name string) funcHandler {
		return funcHandler{name: name, enrich: func(context.Context, *enrich.Context) error {
			order = append(order, name)
			return nil
		}}
	}
	p := enrich.NewPipeline(nil, record("a"), record("b"))
	p.Register(record("c"))

	ec := newContext(t, "https://example.com/", extractor.RawFields{}, nil, nil)
	applied := p.Run(context.Background(), ec)

	assert.Equal(t, []string{"a", "b", "c"}, order)
	assert.Equal(t, []string{"a", "b", "c"}, applied)
	assert.Equal(t, []string{"a", "b", "c"}, p.Names())
}

func TestPipeline_MatchesSeesPriorMutations(t *testing.T) {
	setter := funcHandler{name: "setter", enrich: func(_ context.Context, ec *enrich.Context) error {
		ec.Metadata().SetSiteName("Set Earlier")
		return nil
	}}
	var sawSiteName bool
	observer := funcHandler{
		name: "observer",
		matches: func(ec *enrich.Context) bool {
			sawSiteName = ec.Metadata().HasSiteName()
			return !sawSiteName
		},
		enrich: func(_ context.Context, ec *enrich.Context) error {
			ec.Metadata().SetSiteName("Overwritten")
			return nil
		},
	}

	ec := newContext(t, "https://example.com/", extractor.RawFields{}, nil, nil)
	applied := enrich.NewPipeline(nil, setter, observer).Run(context.Background(), ec)

	assert.True(t, sawSiteName)
	assert.Equal(t, []string{"setter"}, applied)
	assert.Equal(t, "Set Earlier", ec.Metadata().SiteName())
}

func TestPipeline_MoreThanOneHandlerMayMatch(t *testing.T) {
	first := funcHandler{name: "first", enrich: func(_ context.Context, ec *enrich.Context) error {
		ec.Metadata().SetTitle("first")
		return nil
	}}
	second := funcHandler{name: "second", enrich: func(_ context.Context, ec *enrich.Context) error {
		ec.Metadata().SetDescription(ec.Metadata().Title() + " then second")
		return nil
	}}

	ec := newContext(t, "https://example.com/", extractor.RawFields{}, nil, nil)
	applied := enrich.NewPipeline(nil, first, second).Run(context.Background(), ec)

	assert.Equal(t, []string{"first", "second"}, applied)
	assert.Equal(t, "first then second", ec.Metadata().Description())
}

func TestPipeline_AbsorbsErrorsAndPanics(t *testing.T) {
	sink := &sinkMock{}
	sink.On("RecordError", mock.Anything, "enrich", "Pipeline.Run", mock.Anything, mock.Anything, mock.Anything).Return()

	failing := funcHandler{name: "failing", enrich: func(_ context.Context, ec *enrich.Context) error {
		ec.Metadata().SetTitle("partial")
		return errors.New("upstream exploded")
	}}
	panicky := funcHandler{name: "panicky", enrich: func(context.Context, *enrich.Context) error {
		panic("nil map")
	}}
	panickyMatch := funcHandler{name: "panicky-match", matches: func(*enrich.Context) bool {
		panic("bad predicate")
	}}
	last := funcHandler{name: "last", enrich: func(_ context.Context, ec *enrich.Context) error {
		ec.Metadata().SetSiteName("Still Ran")
		return nil
	}}

	ec := newContext(t, "https://example.com/", extractor.RawFields{}, nil, nil)
	var applied []string
	require.NotPanics(t, func() {
		applied = enrich.NewPipeline(sink, failing, panicky, panickyMatch, last).Run(context.Background(), ec)
	})

	assert.Equal(t, []string{"last"}, applied)
	assert.Equal(t, "partial", ec.Metadata().Title())
	assert.Equal(t, "Still Ran", ec.Metadata().SiteName())
	sink.AssertNumberOfCalls(t, "RecordError", 3)
}

func TestPipeline_StopsWhenContextDone(t *testing.T) {
	ran := false
	h := funcHandler{name: "h", enrich: func(context.Context, *enrich.Context) error {
		ran = true
		return nil
	}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ec := newContext(t, "https://example.com/", extractor.RawFields{}, nil, nil)
	applied := enrich.NewPipeline(nil, h).Run(ctx, ec)

	assert.False(t, ran)
	assert.Empty(t, applied)
}

func TestDefaultPipeline_Order(t *testing.T) {
	p := enrich.NewDefaultPipeline(nil)
	assert.Equal(t, []string{"search", "reddit", "youtube", "github", "sitename"}, p.Names())
}

func TestBuilder_CopiesInput(t *testing.T) {
	title := "original"
	fields := extractor.RawFields{Title: &title}
	b := enrich.NewBuilder(fields)

	b.SetTitle("changed")
	assert.Equal(t, "original", title)
	assert.Equal(t, "original", *fields.Title)

	out := b.Fields()
	*out.Title = "mutated copy"
	assert.Equal(t, "changed", b.Title())
	assert.Equal(t, []string{"title"}, b.Touched())
}

func TestBuilder_EmptyClears(t *testing.T) {
	b := enrich.NewBuilder(extractor.RawFields{Description: extractor.Ptr("boilerplate")})
	b.SetDescription("")
	assert.False(t, b.HasDescription())
	assert.Nil(t, b.Fields().Description)
}
