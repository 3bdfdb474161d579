package enrich

import (
	"fmt"

	"github.com/rohmanhakim/linkmeta/internal/telemetry"
	"github.com/rohmanhakim/linkmeta/pkg/failure"
)

type EnrichErrorCause string

const (
	ErrCauseCircuitOpen   EnrichErrorCause = "circuit open"
	ErrCauseFetchFailed   EnrichErrorCause = "secondary fetch failed"
	ErrCauseBadStatus     EnrichErrorCause = "secondary fetch status"
	ErrCauseUndecodable   EnrichErrorCause = "undecodable payload"
	ErrCauseHandlerPanic  EnrichErrorCause = "handler panicked"
	ErrCauseHandlerFailed EnrichErrorCause = "handler failed"
)

// EnrichError never leaves the pipeline; it is recorded and dropped.
type EnrichError struct {
	Message  string
	Cause    EnrichErrorCause
	Provider string
	Err      error
}

func (e *EnrichError) Error() string {
	if e.Provider != "" {
		return fmt.Sprintf("enrich error: %s: %s: %s", e.Provider, e.Cause, e.Message)
	}
	return fmt.Sprintf("enrich error: %s: %s", e.Cause, e.Message)
}

func (e *EnrichError) Unwrap() error {
	return e.Err
}

func (e *EnrichError) Severity() failure.Severity {
	return failure.SeverityRecoverable
}

// mapEnrichErrorToTelemetryCause maps enrich-local error semantics
// to the canonical telemetry.ErrorCause table.
//
// This mapping is observational only and MUST NOT be used
// to derive control-flow decisions.
func mapEnrichErrorToTelemetryCause(err *EnrichError) telemetry.ErrorCause {
	switch err.Cause {
	case ErrCauseFetchFailed:
		return telemetry.CauseNetworkFailure
	case ErrCauseBadStatus:
		return telemetry.CauseHTTPFailure
	case ErrCauseUndecodable:
		return telemetry.CauseContentInvalid
	case ErrCauseCircuitOpen, ErrCauseHandlerFailed:
		return telemetry.CauseEnrichmentFailure
	case ErrCauseHandlerPanic:
		return telemetry.CauseInvariantViolation
	default:
		return telemetry.CauseUnknown
	}
}
