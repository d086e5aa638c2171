package external

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

// Source names reported in RetrievalError and metrics
const (
	SourceLearningDeliveries = "lars_learning_delivery"
	SourceFrameworks         = "lars_framework"
	SourceULNs               = "uln"
	SourcePostcodes          = "postcodes"
	SourceOrganisations      = "organisations"
)

// LatencyObserver records how long each source took to answer
type LatencyObserver interface {
	ObserveRetrievalLatency(source string, d time.Duration, err error)
}

// PopulationService fills the external cache from its five sources.
// Population is all-or-nothing: the first failing source cancels the others
// and no cache is returned.
type PopulationService struct {
	sources  Sources
	logger   *slog.Logger
	observer LatencyObserver
}

// NewPopulationService creates a population service.
// A nil logger falls back to slog.Default(); observer may be nil.
func NewPopulationService(sources Sources, logger *slog.Logger, observer LatencyObserver) *PopulationService {
	if logger == nil {
		logger = slog.Default()
	}
	return &PopulationService{
		sources:  sources,
		logger:   logger,
		observer: observer,
	}
}

// Populate retrieves every collection concurrently and returns the completed cache
func (s *PopulationService) Populate(ctx context.Context) (*Cache, error) {
	if err := s.checkSources(); err != nil {
		return nil, err
	}

	start := time.Now()
	g, ctx := errgroup.WithContext(ctx)

	var data Data
	fetch(ctx, g, s, SourceLearningDeliveries, s.sources.LearningDeliveries, &data.LearningDeliveries)
	fetch(ctx, g, s, SourceFrameworks, s.sources.Frameworks, &data.Frameworks)
	fetch(ctx, g, s, SourceULNs, s.sources.ULNs, &data.ULNs)
	fetch(ctx, g, s, SourcePostcodes, s.sources.Postcodes, &data.Postcodes)
	fetch(ctx, g, s, SourceOrganisations, s.sources.Organisations, &data.Organisations)

	if err := g.Wait(); err != nil {
		s.logger.ErrorContext(ctx, "external population aborted", "error", err)
		return nil, err
	}

	s.logger.InfoContext(ctx, "external population complete",
		"learning_deliveries", len(data.LearningDeliveries),
		"frameworks", len(data.Frameworks),
		"ulns", len(data.ULNs),
		"postcodes", len(data.Postcodes),
		"organisations", len(data.Organisations),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return NewCache(data), nil
}

func (s *PopulationService) checkSources() error {
	configured := []struct {
		name string
		ok   bool
	}{
		{SourceLearningDeliveries, s.sources.LearningDeliveries != nil},
		{SourceFrameworks, s.sources.Frameworks != nil},
		{SourceULNs, s.sources.ULNs != nil},
		{SourcePostcodes, s.sources.Postcodes != nil},
		{SourceOrganisations, s.sources.Organisations != nil},
	}
	for _, c := range configured {
		if !c.ok {
			return &RetrievalError{Source: c.name, Cause: ErrMissingSource}
		}
	}
	return nil
}

// fetch runs one retrieval in g and stores its result in dst.
// Each goroutine owns its dst, so no locking is needed.
func fetch[T any](ctx context.Context, g *errgroup.Group, s *PopulationService, source string, r Retriever[T], dst *[]T) {
	g.Go(func() error {
		start := time.Now()
		items, err := r.Retrieve(ctx)
		if s.observer != nil {
			s.observer.ObserveRetrievalLatency(source, time.Since(start), err)
		}
		if err != nil {
			return &RetrievalError{Source: source, Cause: err}
		}
		if items == nil {
			items = []T{}
		}
		*dst = items
		s.logger.DebugContext(ctx, "external source retrieved", "source", source, "count", len(items))
		return nil
	})
}
