package validator

import (
	"fmt"
	"strconv"

	"github.com/rohmanhakim/linkmeta/internal/telemetry"
	"github.com/rohmanhakim/linkmeta/pkg/failure"
)

type ValidationErrorCause string

const (
	ErrCauseHTTPStatus   ValidationErrorCause = "http status"
	ErrCauseSoftNotFound ValidationErrorCause = "soft not found"
)

// ValidationError describes a response that arrived but does not represent
// the requested page. It is always absorbed into the resolved record.
type ValidationError struct {
	Message string
	Cause   ValidationErrorCause
	Status  int
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s: %s", e.Cause, e.Message)
}

func (e *ValidationError) Severity() failure.Severity {
	return failure.SeverityRecoverable
}

func (e *ValidationError) Tag() string {
	if e.Cause == ErrCauseSoftNotFound {
		return "soft-404"
	}
	return "http-" + strconv.Itoa(e.Status)
}

// MapValidationErrorToTelemetryCause maps validator-local error semantics
// to the canonical telemetry.ErrorCause table.
//
// This mapping is observational only and MUST NOT be used
// to derive control-flow decisions.
func MapValidationErrorToTelemetryCause(err *ValidationError) telemetry.ErrorCause {
	switch err.Cause {
	case ErrCauseHTTPStatus, ErrCauseSoftNotFound:
		return telemetry.CauseHTTPFailure
	default:
		return telemetry.CauseUnknown
	}
}
