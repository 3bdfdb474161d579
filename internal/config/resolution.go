package config

import (
	"fmt"
	"time"
)

// ResolutionConfig is the per-call view of the configuration.
// ShowIcon is the only presentation flag the resolver acts on; IncludeDescription
// and HTTPErrorsAreWarnings are carried for the caller's renderer.
type ResolutionConfig struct {
	Timeout               time.Duration `json:"timeout"`
	MaxConcurrent         int           `json:"maxConcurrent"`
	ShowIcon              bool          `json:"showIcon"`
	IncludeDescription    bool          `json:"includeDescription"`
	HTTPErrorsAreWarnings bool          `json:"httpErrorsAreWarnings"`
}

func (r ResolutionConfig) Validate() error {
	if r.Timeout <= 0 {
		return fmt.Errorf("%w: timeout must be positive, got %v", ErrInvalidConfig, r.Timeout)
	}
	if r.MaxConcurrent < 1 {
		return fmt.Errorf("%w: maxConcurrent must be at least 1, got %d", ErrInvalidConfig, r.MaxConcurrent)
	}
	return nil
}
