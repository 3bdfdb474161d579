package backend

import (
	"fmt"

	"github.com/rohmanhakim/linkmeta/internal/telemetry"
	"github.com/rohmanhakim/linkmeta/pkg/failure"
)

type StoreErrorCause string

const (
	ErrCauseUnknownBackend StoreErrorCause = "unknown backend"
	ErrCauseConnect        StoreErrorCause = "connect failed"
	ErrCauseMigrate        StoreErrorCause = "migration failed"
	ErrCauseRead           StoreErrorCause = "read failed"
	ErrCauseWrite          StoreErrorCause = "write failed"
	ErrCauseCorrupt        StoreErrorCause = "corrupt snapshot"
)

type StoreError struct {
	Message   string
	Retryable bool
	Cause     StoreErrorCause
	Backend   string
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("icon store error: %s: %s: %s", e.Backend, e.Cause, e.Message)
}

func (e *StoreError) Severity() failure.Severity {
	if e.Retryable {
		return failure.SeverityRecoverable
	}
	return failure.SeverityFatal
}

// MapStoreErrorToTelemetryCause maps backend-local error semantics
// to the canonical telemetry.ErrorCause table.
//
// This mapping is observational only and MUST NOT be used
// to derive control-flow decisions.
func MapStoreErrorToTelemetryCause(err *StoreError) telemetry.ErrorCause {
	switch err.Cause {
	case ErrCauseUnknownBackend:
		return telemetry.CauseInvariantViolation
	case ErrCauseCorrupt:
		return telemetry.CauseContentInvalid
	default:
		return telemetry.CauseStorageFailure
	}
}

func readError(backend string, err error) *StoreError {
	return &StoreError{Message: err.Error(), Retryable: true, Cause: ErrCauseRead, Backend: backend}
}

func writeError(backend string, err error) *StoreError {
	return &StoreError{Message: err.Error(), Retryable: true, Cause: ErrCauseWrite, Backend: backend}
}

func (e *StoreError) IsRetryable() bool {
	return e.Retryable
}
