package external

import (
	"errors"
	"fmt"
)

// ErrMissingSource is returned when a population source is not configured
var ErrMissingSource = errors.New("external source not configured")

// RetrievalError reports the collaborator that failed during population
type RetrievalError struct {
	Source string
	Cause  error
}

// Error returns the error message.
func (e *RetrievalError) Error() string {
	return fmt.Sprintf("external population failed: %s: %v", e.Source, e.Cause)
}

// Unwrap returns the underlying cause.
func (e *RetrievalError) Unwrap() error {
	return e.Cause
}
