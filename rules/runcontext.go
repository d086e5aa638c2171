package rules

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/liamcoop/ilrvalidation/internal/logger"
)

// RunContext identifies one validation execution
type RunContext struct {
	CorrelationID string    `json:"correlationId"`
	InputLocator  string    `json:"inputLocator,omitempty"`
	OutputLocator string    `json:"outputLocator,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

// NewRunContext creates a run context with a fresh correlation id
func NewRunContext(input, output string) RunContext {
	return RunContext{
		CorrelationID: uuid.NewString(),
		InputLocator:  input,
		OutputLocator: output,
		CreatedAt:     time.Now().UTC(),
	}
}

// Attach returns a context carrying the run's correlation id for logging
func (rc RunContext) Attach(ctx context.Context) context.Context {
	return logger.WithCorrelationID(ctx, rc.CorrelationID)
}
