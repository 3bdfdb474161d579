package validator

import (
	"strconv"
)

type OutcomeKind int

const (
	OutcomeOk OutcomeKind = iota
	OutcomeHTTPError
	OutcomeSoftNotFound
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeOk:
		return "ok"
	case OutcomeHTTPError:
		return "http-error"
	case OutcomeSoftNotFound:
		return "soft-not-found"
	default:
		return "unknown"
	}
}

// Outcome is the result of classifying one response.
// Status is set for OutcomeHTTPError, Reason for OutcomeSoftNotFound.
type Outcome struct {
	Kind   OutcomeKind
	Status int
	Reason string
}

func Ok() Outcome {
	return Outcome{Kind: OutcomeOk}
}

func HTTPError(status int) Outcome {
	return Outcome{Kind: OutcomeHTTPError, Status: status}
}

func SoftNotFound(reason string) Outcome {
	return Outcome{Kind: OutcomeSoftNotFound, Reason: reason}
}

func (o Outcome) IsOk() bool {
	return o.Kind == OutcomeOk
}

// Tag is the error tag a resolved record carries for this outcome, or ""
// for OutcomeOk.
func (o Outcome) Tag() string {
	switch o.Kind {
	case OutcomeHTTPError:
		return "http-" + strconv.Itoa(o.Status)
	case OutcomeSoftNotFound:
		return "soft-404"
	default:
		return ""
	}
}

// Err returns the outcome as a ValidationError, or nil for OutcomeOk.
func (o Outcome) Err() *ValidationError {
	switch o.Kind {
	case OutcomeHTTPError:
		return &ValidationError{
			Message: "server answered " + strconv.Itoa(o.Status),
			Cause:   ErrCauseHTTPStatus,
			Status:  o.Status,
		}
	case OutcomeSoftNotFound:
		return &ValidationError{
			Message: o.Reason,
			Cause:   ErrCauseSoftNotFound,
		}
	default:
		return nil
	}
}
