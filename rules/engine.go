package rules

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/liamcoop/ilrvalidation/internal/logger"
	"github.com/liamcoop/ilrvalidation/lookup"
	"github.com/liamcoop/ilrvalidation/model"
)

// ErrInvalidConfig is returned when an EngineConfig fails validation
var ErrInvalidConfig = errors.New("invalid engine configuration")

// Run outcomes reported to the Observer
const (
	OutcomeSucceeded = "succeeded"
	OutcomeFailed    = "failed"
	OutcomeCancelled = "cancelled"
)

// FaultParameterName is the parameter carrying the fault message of a synthetic fault entry
const FaultParameterName = "RuleFault"

// EngineConfig bounds how a run is executed
type EngineConfig struct {
	// MaxConcurrency caps the learners evaluated at once
	MaxConcurrency int

	// ReportRuleFaults adds a warning entry for every isolated rule fault
	ReportRuleFaults bool
}

// DefaultEngineConfig returns one worker per available CPU and silent faults
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		MaxConcurrency: runtime.GOMAXPROCS(0),
	}
}

// Validate checks the configuration
func (c EngineConfig) Validate() error {
	if c.MaxConcurrency < 1 {
		return fmt.Errorf("%w: max concurrency must be at least 1, got %d", ErrInvalidConfig, c.MaxConcurrency)
	}
	return nil
}

// Observer receives run measurements; metrics.Metrics implements it
type Observer interface {
	ObserveRecordEvaluated()
	ObserveRuleFault(ruleName string)
	ObserveRun(outcome string, duration time.Duration, results []ValidationError)
}

// Engine runs a catalog over a learner population
type Engine struct {
	catalog    *Catalog
	severities SeverityResolver
	config     EngineConfig
	logger     *slog.Logger
	observer   Observer
}

// EngineOption customises an Engine
type EngineOption func(*Engine)

// WithSeverities sets the severity resolver
func WithSeverities(s SeverityResolver) EngineOption {
	return func(en *Engine) { en.severities = s }
}

// WithLogger sets the engine logger
func WithLogger(l *slog.Logger) EngineOption {
	return func(en *Engine) { en.logger = l }
}

// WithObserver sets the metrics observer
func WithObserver(o Observer) EngineOption {
	return func(en *Engine) { en.observer = o }
}

// NewEngine creates an engine for catalog
func NewEngine(catalog *Catalog, config EngineConfig, opts ...EngineOption) (*Engine, error) {
	if catalog == nil {
		return nil, fmt.Errorf("%w: catalog is required", ErrInvalidConfig)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	en := &Engine{
		catalog: catalog,
		config:  config,
	}
	for _, opt := range opts {
		opt(en)
	}
	if en.severities == nil {
		en.severities = SeverityMap(nil)
	}
	if en.logger == nil {
		en.logger = logger.Logger
	}
	if en.logger == nil {
		en.logger = slog.Default()
	}
	return en, nil
}

// Catalog returns the catalog the engine runs
func (en *Engine) Catalog() *Catalog {
	return en.catalog
}

// Run evaluates every rule against every learner and returns the sorted union
// of their validation errors.
//
// A fault inside one rule for one learner is logged and isolated. A lookup
// configuration fault or a nil learner aborts the run. When ctx is cancelled,
// learners already being evaluated finish, no further learner starts, and Run
// returns ErrRunCancelled with no results.
func (en *Engine) Run(ctx context.Context, learners []*model.Learner) ([]ValidationError, error) {
	start := time.Now()
	log := logger.With(ctx, en.logger)
	log.InfoContext(ctx, "validation run started",
		"learners", len(learners),
		"rules", en.catalog.Len(),
		"catalog_version", en.catalog.Version(),
		"max_concurrency", en.config.MaxConcurrency,
	)

	collector := NewCollector(en.severities)
	rules := en.catalog.Rules()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(en.config.MaxConcurrency)

	for i, learner := range learners {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if learner == nil {
				return fmt.Errorf("learner at index %d: %w", i, ErrNilLearner)
			}
			if err := en.evaluateLearner(gctx, log, rules, learner, collector); err != nil {
				return err
			}
			if en.observer != nil {
				en.observer.ObserveRecordEvaluated()
			}
			return nil
		})
	}

	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		outcome := OutcomeFailed
		if ctx.Err() != nil {
			outcome = OutcomeCancelled
			err = fmt.Errorf("%w: %w", ErrRunCancelled, ctx.Err())
		}
		logger.TotalRunsFailed.Add(1)
		log.ErrorContext(ctx, "validation run aborted",
			"outcome", outcome,
			"error", err,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		if en.observer != nil {
			en.observer.ObserveRun(outcome, time.Since(start), nil)
		}
		return nil, err
	}

	results := collector.Sorted()
	log.InfoContext(ctx, "validation run complete",
		"learners", len(learners),
		"validation_errors", len(results),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	if en.observer != nil {
		en.observer.ObserveRun(OutcomeSucceeded, time.Since(start), results)
	}
	return results, nil
}

// evaluateLearner runs every rule against one learner. Only a fatal fault is returned.
func (en *Engine) evaluateLearner(ctx context.Context, log *slog.Logger, rules []Rule, learner *model.Learner, collector *Collector) error {
	scope := &ruleScope{collector: collector}
	for _, rule := range rules {
		fault, fatal := en.evaluateRule(rule, learner, scope)
		if fatal != nil {
			return fatal
		}
		if fault == nil {
			scope.commit()
			continue
		}
		scope.discard()
		en.isolate(ctx, log, fault, collector)
	}
	return nil
}

func (en *Engine) evaluateRule(rule Rule, learner *model.Learner, h ErrorHandler) (fault *RuleFault, fatal error) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		err, ok := r.(error)
		if !ok {
			err = fmt.Errorf("%v", r)
		}
		if lookup.IsConfigurationError(err) {
			fatal = fmt.Errorf("rule %s: %w", rule.Name(), err)
			return
		}
		fault = &RuleFault{RuleName: rule.Name(), LearnRefNumber: learner.LearnRefNumber, Panicked: true, Cause: err}
	}()

	if err := rule.Validate(learner, h); err != nil {
		if lookup.IsConfigurationError(err) {
			return nil, fmt.Errorf("rule %s: %w", rule.Name(), err)
		}
		return &RuleFault{RuleName: rule.Name(), LearnRefNumber: learner.LearnRefNumber, Cause: err}, nil
	}
	return nil, nil
}

func (en *Engine) isolate(ctx context.Context, log *slog.Logger, fault *RuleFault, collector *Collector) {
	logger.RuleFault(ctx, log, "rule fault isolated",
		"rule", fault.RuleName,
		"learn_ref_number", fault.LearnRefNumber,
		"panicked", fault.Panicked,
		"error", fault.Cause,
	)
	if en.observer != nil {
		en.observer.ObserveRuleFault(fault.RuleName)
	}
	if en.config.ReportRuleFaults {
		collector.add(ValidationError{
			Severity:       SeverityWarning,
			RuleName:       fault.RuleName,
			LearnRefNumber: fault.LearnRefNumber,
			Parameters:     []Parameter{{Name: FaultParameterName, Value: fault.Cause.Error()}},
		})
	}
}
