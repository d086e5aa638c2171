package lookup

import (
	"errors"
	"fmt"
)

// ErrCacheFrozen is returned when a frozen cache is written to
var ErrCacheFrozen = errors.New("lookup cache is frozen")

// ConfigurationError reports a lookup category that was never populated,
// or a cache that could not be built at all. It is a wiring defect, not bad data,
// and always terminates the run.
type ConfigurationError struct {
	Category string
	Cause    error
}

// Error returns the error message.
func (e *ConfigurationError) Error() string {
	if e.Category == "" {
		return fmt.Sprintf("lookup configuration fault: %v", e.Cause)
	}
	if e.Cause != nil {
		return fmt.Sprintf("lookup configuration fault: category %s: %v", e.Category, e.Cause)
	}
	return fmt.Sprintf("lookup configuration fault: category %s was never populated", e.Category)
}

// Unwrap returns the underlying cause.
func (e *ConfigurationError) Unwrap() error {
	return e.Cause
}

// IsConfigurationError reports whether err carries a ConfigurationError
func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}
