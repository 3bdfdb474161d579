package extractor

import (
	"fmt"

	"github.com/rohmanhakim/linkmeta/internal/telemetry"
	"github.com/rohmanhakim/linkmeta/pkg/failure"
)

type ExtractionErrorCause string

const (
	ErrCauseUnparseable ExtractionErrorCause = "unparseable document"
)

// ExtractionError is recorded for observability only. Extract itself never
// fails; a document it cannot parse yields empty RawFields.
type ExtractionError struct {
	Message   string
	Retryable bool
	Cause     ExtractionErrorCause
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extraction error: %s: %s", e.Cause, e.Message)
}

func (e *ExtractionError) Severity() failure.Severity {
	if e.Retryable {
		return failure.SeverityRecoverable
	}
	return failure.SeverityFatal
}

// mapExtractionErrorToTelemetryCause maps extractor-local error semantics
// to the canonical telemetry.ErrorCause table.
//
// This mapping is observational only and MUST NOT be used
// to derive control-flow decisions.
func mapExtractionErrorToTelemetryCause(err *ExtractionError) telemetry.ErrorCause {
	switch err.Cause {
	case ErrCauseUnparseable:
		return telemetry.CauseContentInvalid
	default:
		return telemetry.CauseUnknown
	}
}
