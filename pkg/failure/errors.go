package failure

type Severity int

// resolution control flow
const (
	// SeverityFatal errors escape Resolve (programmer or configuration errors).
	SeverityFatal Severity = iota
	// SeverityRecoverable errors are absorbed into the returned record.
	SeverityRecoverable
)

func (s Severity) String() string {
	switch s {
	case SeverityFatal:
		return "fatal"
	case SeverityRecoverable:
		return "recoverable"
	default:
		return "unknown"
	}
}

type ClassifiedError interface {
	error
	Severity() Severity
}

// Tagged is implemented by errors that know how they should be surfaced
// on a resolved record's error tag.
type Tagged interface {
	Tag() string
}

// TagOf returns the surface tag of err, or "unknown" when err does not carry one.
func TagOf(err error) string {
	if err == nil {
		return ""
	}
	if t, ok := err.(Tagged); ok {
		if tag := t.Tag(); tag != "" {
			return tag
		}
	}
	return "unknown"
}
