package breaker

import (
	"fmt"
	"time"

	"github.com/rohmanhakim/linkmeta/pkg/failure"
)

// OpenError is returned by Allow while a provider's circuit is open.
type OpenError struct {
	Provider  string
	Failures  int
	NextRetry time.Time
}

func (e *OpenError) Error() string {
	return fmt.Sprintf(
		"circuit breaker open for provider '%s' (failures: %d, next retry: %s)",
		e.Provider,
		e.Failures,
		e.NextRetry.Format("15:04:05"),
	)
}

func (e *OpenError) Severity() failure.Severity {
	return failure.SeverityRecoverable
}
