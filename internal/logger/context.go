package logger

import (
	"context"
	"log/slog"
)

type contextKey string

const correlationIDKey contextKey = "correlation_id"

// CorrelationIDAttr is the attribute name carrying the run correlation id
const CorrelationIDAttr = "correlation_id"

// WithCorrelationID returns a context carrying the run correlation id
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey, id)
}

// CorrelationID returns the correlation id carried by ctx, or ""
func CorrelationID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if id, ok := ctx.Value(correlationIDKey).(string); ok {
		return id
	}
	return ""
}

// FromContext returns the process logger bound to the correlation id of ctx
func FromContext(ctx context.Context) *slog.Logger {
	return With(ctx, Logger)
}

// With binds base to the correlation id of ctx. A nil base uses the process logger.
func With(ctx context.Context, base *slog.Logger) *slog.Logger {
	if base == nil {
		base = Logger
	}
	if id := CorrelationID(ctx); id != "" {
		return base.With(CorrelationIDAttr, id)
	}
	return base
}

// contextHandler adds the correlation id of the record's context when the
// logger was not already bound to one
type contextHandler struct {
	handler slog.Handler
	bound   bool
}

func (h *contextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

func (h *contextHandler) Handle(ctx context.Context, r slog.Record) error {
	if !h.bound {
		if id := CorrelationID(ctx); id != "" {
			r.AddAttrs(slog.String(CorrelationIDAttr, id))
		}
	}
	return h.handler.Handle(ctx, r)
}

func (h *contextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	bound := h.bound
	for _, a := range attrs {
		if a.Key == CorrelationIDAttr {
			bound = true
		}
	}
	return &contextHandler{handler: h.handler.WithAttrs(attrs), bound: bound}
}

func (h *contextHandler) WithGroup(name string) slog.Handler {
	return &contextHandler{handler: h.handler.WithGroup(name), bound: h.bound}
}
