package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/liamcoop/ilrvalidation/internal/logger"
	"github.com/liamcoop/ilrvalidation/rules"
)

// ErrNoWorkers is returned by a dispatcher built without workers
var ErrNoWorkers = errors.New("no workers configured")

// DispatchConfig bounds how a run is split across workers
type DispatchConfig struct {
	// ChunkSize is the number of learners per bundle
	ChunkSize int

	// MaxInFlight caps the bundles being validated at once
	MaxInFlight int
}

// Validate checks the configuration
func (c DispatchConfig) Validate() error {
	if c.ChunkSize < 1 {
		return fmt.Errorf("chunk size must be at least 1, got %d", c.ChunkSize)
	}
	if c.MaxInFlight < 1 {
		return fmt.Errorf("max in flight must be at least 1, got %d", c.MaxInFlight)
	}
	return nil
}

// Dispatcher fans the learners of a bundle out to workers in chunks and merges
// the results. Dispatch is all-or-nothing: the first failing chunk cancels the
// others and no partial result is returned.
type Dispatcher struct {
	workers []Worker
	config  DispatchConfig
	logger  *slog.Logger
}

// NewDispatcher creates a dispatcher assigning chunks to workers round robin
func NewDispatcher(workers []Worker, config DispatchConfig, log *slog.Logger) (*Dispatcher, error) {
	if len(workers) == 0 {
		return nil, ErrNoWorkers
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.Logger
	}
	if log == nil {
		log = slog.Default()
	}
	return &Dispatcher{workers: workers, config: config, logger: log}, nil
}

// Dispatch validates the learners of bundle and returns the sorted union of
// every chunk's errors
func (d *Dispatcher) Dispatch(ctx context.Context, bundle *Bundle) ([]rules.ValidationError, error) {
	if bundle == nil {
		return nil, fmt.Errorf("bundle is nil")
	}
	start := time.Now()
	log := logger.With(ctx, d.logger)

	chunks := Chunk(bundle.Learners, d.config.ChunkSize)
	results := make([][]rules.ValidationError, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.config.MaxInFlight)

	for i, learners := range chunks {
		w := d.workers[i%len(d.workers)]
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			errs, err := w.Validate(gctx, bundle.WithLearners(learners))
			if err != nil {
				return fmt.Errorf("chunk %d: %w", i, err)
			}
			results[i] = errs
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		if ctx.Err() != nil && !errors.Is(err, rules.ErrRunCancelled) {
			err = fmt.Errorf("%w: %w", rules.ErrRunCancelled, ctx.Err())
		}
		log.Error("dispatch failed", "chunks", len(chunks), "error", err)
		return nil, err
	}

	total := 0
	for _, errs := range results {
		total += len(errs)
	}
	merged := make([]rules.ValidationError, 0, total)
	for _, errs := range results {
		merged = append(merged, errs...)
	}
	rules.SortErrors(merged)

	log.Info("dispatch complete",
		"learners", len(bundle.Learners),
		"chunks", len(chunks),
		"workers", len(d.workers),
		"errors", len(merged),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return merged, nil
}
