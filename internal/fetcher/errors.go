package fetcher

import (
	"fmt"

	"github.com/rohmanhakim/linkmeta/internal/telemetry"
	"github.com/rohmanhakim/linkmeta/pkg/failure"
)

type FetchErrorCause string

const (
	ErrCauseTimeout               FetchErrorCause = "timeout"
	ErrCauseDNS                   FetchErrorCause = "dns"
	ErrCauseTLS                   FetchErrorCause = "tls"
	ErrCauseConnectionRefused     FetchErrorCause = "connection-refused"
	ErrCauseNetworkFailure        FetchErrorCause = "network"
	ErrCauseInvalidURL            FetchErrorCause = "invalid-url"
	ErrCauseReadResponseBodyError FetchErrorCause = "failed to read response body"
	ErrCauseRedirectLimitExceeded FetchErrorCause = "reached redirect limit"
	ErrCauseCancelled             FetchErrorCause = "cancelled"
	ErrCausePacing                FetchErrorCause = "pacing wait aborted"
)

// FetchError is the transport error of this package. HTTP statuses are
// never FetchErrors; they come back inside FetchResult.
type FetchError struct {
	Message   string
	Retryable bool
	Cause     FetchErrorCause
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetcher error: %s: %s", e.Cause, e.Message)
}

func (e *FetchError) Severity() failure.Severity {
	if e.Retryable {
		return failure.SeverityRecoverable
	}
	return failure.SeverityFatal
}

// IsRetryable returns whether this error is retryable
func (e *FetchError) IsRetryable() bool {
	return e.Retryable
}

// Tag is the short failure class stored on resolved records.
func (e *FetchError) Tag() string {
	switch e.Cause {
	case ErrCauseTimeout, ErrCausePacing:
		return "timeout"
	case ErrCauseDNS, ErrCauseTLS, ErrCauseConnectionRefused, ErrCauseInvalidURL, ErrCauseCancelled:
		return string(e.Cause)
	default:
		return string(ErrCauseNetworkFailure)
	}
}

// mapFetchErrorToTelemetryCause maps fetcher-local error semantics
// to the canonical telemetry.ErrorCause table.
//
// This mapping is observational only and MUST NOT be used
// to derive control-flow decisions.
func mapFetchErrorToTelemetryCause(err *FetchError) telemetry.ErrorCause {
	switch err.Cause {
	case ErrCauseInvalidURL:
		return telemetry.CauseInvariantViolation
	case ErrCauseCancelled:
		return telemetry.CauseUnknown
	default:
		return telemetry.CauseNetworkFailure
	}
}
