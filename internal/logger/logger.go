package logger

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"strconv"
	"strings"
	"sync/atomic"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/semconv/v1.26.0"
)

// Type alias for slog.Level for easier usage
type Level = slog.Level

const (
	LevelTrace   = slog.Level(-8)
	LevelDebug   = slog.LevelDebug
	LevelInfo    = slog.LevelInfo
	LevelWarning = slog.LevelWarn
	LevelError   = slog.LevelError
	LevelFatal   = slog.Level(12)
)

const defaultServiceName = "ilr-validation"

var (
	Logger          *slog.Logger
	errorSampleRate int32 = 1 // 1 logs every warning and error; ERROR_SAMPLE_RATE=N keeps 1 in N
	programLevel          = new(slog.LevelVar)
	shutdownFunc    func(context.Context) error
)

// Counters exposed on the health endpoint, incremented regardless of sampling
var (
	TotalErrors     atomic.Int64
	TotalWarnings   atomic.Int64
	TotalRuleFaults atomic.Int64
	TotalRunsFailed atomic.Int64
	Total4xxErrors  atomic.Int64
	Total5xxErrors  atomic.Int64
)

func init() {
	level, err := ParseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil {
		level = slog.LevelInfo
	}
	programLevel.Set(level)

	if sampleStr := os.Getenv("ERROR_SAMPLE_RATE"); sampleStr != "" {
		if rate, err := strconv.Atoi(sampleStr); err == nil && rate > 0 {
			atomic.StoreInt32(&errorSampleRate, int32(rate))
		}
	}

	if strings.ToLower(os.Getenv("OTEL_ENABLED")) != "true" {
		setupJSONLogging()
		return
	}

	serviceName := os.Getenv("OTEL_SERVICE_NAME")
	if serviceName == "" {
		serviceName = defaultServiceName
	}

	shutdown, err := setupOTELLogging(context.Background(), serviceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to setup OTEL logging, falling back to JSON: %v\n", err)
		setupJSONLogging()
		return
	}
	shutdownFunc = shutdown
}

// setupJSONLogging configures JSON logging to stdout
func setupJSONLogging() {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: programLevel})
	Logger = slog.New(&contextHandler{handler: handler})
	slog.SetDefault(Logger)
}

// setupOTELLogging bridges slog records to an OTLP gRPC log exporter
func setupOTELLogging(ctx context.Context, serviceName string) (func(context.Context) error, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	exporter, err := otlploggrpc.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
	}

	loggerProvider := sdklog.NewLoggerProvider(
		sdklog.WithResource(res),
		sdklog.WithProcessor(sdklog.NewBatchProcessor(exporter)),
	)

	otelHandler := otelslog.NewHandler(
		serviceName,
		otelslog.WithLoggerProvider(loggerProvider),
	)

	Logger = slog.New(&contextHandler{handler: &levelHandler{
		level:   programLevel,
		handler: otelHandler,
	}})
	slog.SetDefault(Logger)

	return loggerProvider.Shutdown, nil
}

// levelHandler wraps a handler to filter by level
type levelHandler struct {
	level   slog.Leveler
	handler slog.Handler
}

func (h *levelHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *levelHandler) Handle(ctx context.Context, r slog.Record) error {
	return h.handler.Handle(ctx, r)
}

func (h *levelHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &levelHandler{level: h.level, handler: h.handler.WithAttrs(attrs)}
}

func (h *levelHandler) WithGroup(name string) slog.Handler {
	return &levelHandler{level: h.level, handler: h.handler.WithGroup(name)}
}

// Shutdown flushes the OTEL exporter when one is configured
func Shutdown(ctx context.Context) error {
	if shutdownFunc != nil {
		return shutdownFunc(ctx)
	}
	return nil
}

// SetLevel sets the minimum log level for the logger
func SetLevel(level slog.Level) {
	programLevel.Set(level)
}

// GetLevel returns the current minimum log level
func GetLevel() slog.Level {
	return programLevel.Level()
}

// ParseLevel converts a level name to slog.Level; an empty name means INFO
func ParseLevel(levelStr string) (slog.Level, error) {
	switch strings.ToUpper(levelStr) {
	case "TRACE":
		return LevelTrace, nil
	case "DEBUG":
		return LevelDebug, nil
	case "", "INFO":
		return LevelInfo, nil
	case "WARN", "WARNING":
		return LevelWarning, nil
	case "ERROR":
		return LevelError, nil
	case "FATAL":
		return LevelFatal, nil
	default:
		return LevelInfo, fmt.Errorf("unknown log level: %s (defaulting to INFO)", levelStr)
	}
}

// SetSampleRate keeps 1 in rate warnings and errors; 1 keeps all of them
func SetSampleRate(rate int) {
	if rate < 1 {
		rate = 1
	}
	atomic.StoreInt32(&errorSampleRate, int32(rate))
}

func shouldSample() bool {
	rate := atomic.LoadInt32(&errorSampleRate)
	if rate <= 1 {
		return true
	}
	return rand.Intn(int(rate)) == 0
}

// Debug logs a debug-level message carrying the correlation id of ctx
func Debug(ctx context.Context, msg string, args ...any) {
	Logger.DebugContext(ctx, msg, args...)
}

// Info logs an info-level message carrying the correlation id of ctx
func Info(ctx context.Context, msg string, args ...any) {
	Logger.InfoContext(ctx, msg, args...)
}

// Warn logs a sampled warning; the counter is always incremented
func Warn(ctx context.Context, msg string, args ...any) {
	TotalWarnings.Add(1)
	if shouldSample() {
		Logger.WarnContext(ctx, msg, args...)
	}
}

// Error logs a sampled error; the counter is always incremented
func Error(ctx context.Context, msg string, args ...any) {
	TotalErrors.Add(1)
	if shouldSample() {
		Logger.ErrorContext(ctx, msg, args...)
	}
}

// RuleFault logs an isolated rule fault. Faults are counted and sampled like errors.
func RuleFault(ctx context.Context, log *slog.Logger, msg string, args ...any) {
	TotalRuleFaults.Add(1)
	TotalErrors.Add(1)
	if shouldSample() {
		log.ErrorContext(ctx, msg, args...)
	}
}

// Fatal logs a fatal-level message and exits
func Fatal(msg string, args ...any) {
	Logger.Log(context.Background(), LevelFatal, msg, args...)
	if shutdownFunc != nil {
		_ = shutdownFunc(context.Background())
	}
	os.Exit(1)
}

// HTTPStatus counts a 4xx or 5xx response
func HTTPStatus(status int) {
	switch {
	case status >= 500:
		Total5xxErrors.Add(1)
		TotalErrors.Add(1)
	case status >= 400:
		Total4xxErrors.Add(1)
		TotalWarnings.Add(1)
	}
}
