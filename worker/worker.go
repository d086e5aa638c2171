package worker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/liamcoop/ilrvalidation/internal/logger"
	"github.com/liamcoop/ilrvalidation/model"
	"github.com/liamcoop/ilrvalidation/rules"
	"github.com/liamcoop/ilrvalidation/ruleset"
)

// Worker validates one bundle and returns its validation errors
type Worker interface {
	Validate(ctx context.Context, bundle *Bundle) ([]rules.ValidationError, error)
}

// WorkerFunc adapts a function to the Worker interface
type WorkerFunc func(ctx context.Context, bundle *Bundle) ([]rules.ValidationError, error)

// Validate calls f
func (f WorkerFunc) Validate(ctx context.Context, bundle *Bundle) ([]rules.ValidationError, error) {
	return f(ctx, bundle)
}

// CatalogSource builds the catalog of a version over a set of dependencies.
// catalogs.Manager implements it.
type CatalogSource interface {
	Catalog(version string, deps ruleset.Dependencies) (*rules.Catalog, error)
}

// CodedCatalogs serves the Go-coded rules only, for any version
type CodedCatalogs struct{}

// Catalog returns the coded rules wired to deps
func (CodedCatalogs) Catalog(version string, deps ruleset.Dependencies) (*rules.Catalog, error) {
	return ruleset.NewCatalog(version, deps)
}

// LocalWorker runs the rules engine in process
type LocalWorker struct {
	catalogs   CatalogSource
	config     rules.EngineConfig
	severities rules.SeverityResolver
	observer   rules.Observer
	logger     *slog.Logger
}

// LocalOption customises a LocalWorker
type LocalOption func(*LocalWorker)

// WithSeverities sets the severity resolver handed to each engine
func WithSeverities(s rules.SeverityResolver) LocalOption {
	return func(w *LocalWorker) { w.severities = s }
}

// WithObserver sets the metrics observer handed to each engine
func WithObserver(o rules.Observer) LocalOption {
	return func(w *LocalWorker) { w.observer = o }
}

// WithLogger sets the worker logger
func WithLogger(l *slog.Logger) LocalOption {
	return func(w *LocalWorker) { w.logger = l }
}

// NewLocalWorker creates an in-process worker. A nil catalog source serves coded rules only.
func NewLocalWorker(catalogs CatalogSource, config rules.EngineConfig, opts ...LocalOption) (*LocalWorker, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if catalogs == nil {
		catalogs = CodedCatalogs{}
	}
	w := &LocalWorker{catalogs: catalogs, config: config}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = logger.Logger
	}
	if w.logger == nil {
		w.logger = slog.Default()
	}
	return w, nil
}

// Validate rebuilds the caches carried by bundle and runs its learners
func (w *LocalWorker) Validate(ctx context.Context, bundle *Bundle) ([]rules.ValidationError, error) {
	if bundle == nil {
		return nil, fmt.Errorf("bundle is nil")
	}
	if bundle.CorrelationID != "" && logger.CorrelationID(ctx) == "" {
		ctx = logger.WithCorrelationID(ctx, bundle.CorrelationID)
	}
	deps, err := bundle.Dependencies()
	if err != nil {
		return nil, err
	}
	return w.Run(ctx, bundle.CatalogVersion, deps, bundle.Learners)
}

// Run evaluates learners against the catalog of version wired to deps
func (w *LocalWorker) Run(ctx context.Context, version string, deps ruleset.Dependencies, learners []*model.Learner) ([]rules.ValidationError, error) {
	catalog, err := w.catalogs.Catalog(version, deps)
	if err != nil {
		return nil, fmt.Errorf("failed to build catalog %s: %w", version, err)
	}

	opts := []rules.EngineOption{rules.WithLogger(w.logger)}
	if w.severities != nil {
		opts = append(opts, rules.WithSeverities(w.severities))
	}
	if w.observer != nil {
		opts = append(opts, rules.WithObserver(w.observer))
	}
	engine, err := rules.NewEngine(catalog, w.config, opts...)
	if err != nil {
		return nil, err
	}
	return engine.Run(ctx, learners)
}
