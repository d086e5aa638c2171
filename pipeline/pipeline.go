// Package pipeline runs one submission end to end: it readies the lookup
// provider, populates the external and file caches, then validates the
// learners either in process or across remote workers.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/liamcoop/ilrvalidation/external"
	"github.com/liamcoop/ilrvalidation/filecache"
	"github.com/liamcoop/ilrvalidation/internal/logger"
	"github.com/liamcoop/ilrvalidation/lookup"
	"github.com/liamcoop/ilrvalidation/model"
	"github.com/liamcoop/ilrvalidation/rules"
	"github.com/liamcoop/ilrvalidation/ruleset"
	"github.com/liamcoop/ilrvalidation/worker"
)

// Request is one submission to validate
type Request struct {
	Run            rules.RunContext
	CatalogVersion string
	FileName       string
	Message        *model.Message
}

// Pipeline validates submissions against shared reference data
type Pipeline struct {
	lookups    *lookup.Provider
	population *external.PopulationService
	local      *worker.LocalWorker
	dispatcher *worker.Dispatcher
	logger     *slog.Logger
}

// Option customises a Pipeline
type Option func(*Pipeline)

// WithDispatcher sends learners through d instead of the local worker
func WithDispatcher(d *worker.Dispatcher) Option {
	return func(p *Pipeline) { p.dispatcher = d }
}

// WithLogger sets the pipeline logger
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// New creates a pipeline
func New(lookups *lookup.Provider, population *external.PopulationService, local *worker.LocalWorker, opts ...Option) (*Pipeline, error) {
	if lookups == nil || population == nil || local == nil {
		return nil, errors.New("pipeline needs lookups, population and a local worker")
	}
	p := &Pipeline{lookups: lookups, population: population, local: local}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = logger.Logger
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p, nil
}

// Validate runs req and returns its sorted validation errors
func (p *Pipeline) Validate(ctx context.Context, req Request) ([]rules.ValidationError, error) {
	if req.Message == nil {
		return nil, filecache.ErrNoMessage
	}
	if req.Run.CorrelationID == "" {
		req.Run = rules.NewRunContext(req.FileName, "")
	}
	ctx = req.Run.Attach(ctx)
	log := logger.With(ctx, p.logger)
	start := time.Now()

	if err := p.lookups.Warm(); err != nil {
		return nil, fmt.Errorf("lookups unavailable: %w", err)
	}
	file, err := filecache.Populate(req.Message, req.FileName)
	if err != nil {
		return nil, err
	}
	if err := file.CheckFileName(); err != nil {
		return nil, err
	}
	ext, err := p.population.Populate(ctx)
	if err != nil {
		return nil, err
	}

	var results []rules.ValidationError
	if p.dispatcher != nil {
		results, err = p.dispatch(ctx, req, ext, file)
	} else {
		deps := ruleset.Dependencies{Lookups: p.lookups, External: ext, File: file}
		results, err = p.local.Run(ctx, req.CatalogVersion, deps, req.Message.Learners)
	}
	if err != nil {
		return nil, err
	}

	log.Info("submission validated",
		"file_name", req.FileName,
		"catalog_version", req.CatalogVersion,
		"learners", len(req.Message.Learners),
		"errors", len(results),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return results, nil
}

func (p *Pipeline) dispatch(ctx context.Context, req Request, ext *external.Cache, file *filecache.Cache) ([]rules.ValidationError, error) {
	cache, err := p.lookups.Cache()
	if err != nil {
		return nil, err
	}
	bundle, err := worker.NewBundle(req.Run.CorrelationID, req.CatalogVersion, cache, ext, file)
	if err != nil {
		return nil, err
	}
	return p.dispatcher.Dispatch(ctx, bundle.WithLearners(req.Message.Learners))
}
