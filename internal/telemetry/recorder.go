package telemetry

import (
	"time"

	"go.uber.org/zap"
)

/*
Sink captures structured resolution events.
It must not:
  - perform I/O decisions
  - affect control flow

Events are write-only. No component may read them back to influence
resolution.
*/
type Sink interface {
	RecordError(
		observedAt time.Time,
		packageName string,
		action string,
		cause ErrorCause,
		details string,
		attrs []Attribute,
	)
	RecordFetch(event FetchEvent)
	RecordResolution(event ResolutionEvent)
}

// Recorder writes events through a zap logger.
type Recorder struct {
	logger *zap.Logger
}

func NewRecorder(logger *zap.Logger) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recorder{
		logger: logger,
	}
}

func (r *Recorder) RecordError(
	observedAt time.Time,
	packageName string,
	action string,
	cause ErrorCause,
	details string,
	attrs []Attribute,
) {
	fields := make([]zap.Field, 0, len(attrs)+4)
	fields = append(fields,
		zap.Time("observed_at", observedAt),
		zap.String("package", packageName),
		zap.String("action", action),
		zap.Stringer("cause", cause),
	)
	fields = append(fields, attrFields(attrs)...)
	r.logger.Warn(details, fields...)
}

func (r *Recorder) RecordFetch(event FetchEvent) {
	r.logger.Debug("fetch",
		zap.String("url", event.FetchURL),
		zap.Int("http_status", event.HTTPStatus),
		zap.Duration("duration", event.Duration),
		zap.String("content_type", event.ContentType),
		zap.Int("attempts", event.Attempts),
		zap.Bool("secondary", event.Secondary),
	)
}

func (r *Recorder) RecordResolution(event ResolutionEvent) {
	fields := []zap.Field{
		zap.String("request_id", event.RequestID),
		zap.String("url", event.URL),
		zap.String("cache", string(event.Outcome)),
		zap.Duration("duration", event.Duration),
	}
	if event.ErrorTag != "" {
		fields = append(fields, zap.String("error", event.ErrorTag))
	}
	r.logger.Info("resolve", fields...)
}

func attrFields(attrs []Attribute) []zap.Field {
	fields := make([]zap.Field, 0, len(attrs))
	for _, a := range attrs {
		fields = append(fields, zap.String(string(a.Key), a.Value))
	}
	return fields
}

type NoopSink struct{}

func (NoopSink) RecordError(time.Time, string, string, ErrorCause, string, []Attribute) {}
func (NoopSink) RecordFetch(FetchEvent)                                                 {}
func (NoopSink) RecordResolution(ResolutionEvent)                                       {}

// NewLogger builds the process logger. Verbose switches to a development
// encoder at debug level.
func NewLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.DisableStacktrace = true
	return cfg.Build()
}
