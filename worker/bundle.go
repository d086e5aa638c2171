// Package worker splits a run into bundles of learners and evaluates them,
// either in process or on remote worker instances over HTTP.
package worker

import (
	"errors"
	"fmt"

	"github.com/liamcoop/ilrvalidation/external"
	"github.com/liamcoop/ilrvalidation/filecache"
	"github.com/liamcoop/ilrvalidation/lookup"
	"github.com/liamcoop/ilrvalidation/model"
	"github.com/liamcoop/ilrvalidation/ruleset"
)

// ErrEmptyBundle is returned for a bundle missing its catalog version
var ErrEmptyBundle = errors.New("bundle has no catalog version")

// Bundle is everything a worker needs to validate a group of learners.
// It is built once per chunk and never modified afterwards.
type Bundle struct {
	CorrelationID  string           `json:"correlationId"`
	CatalogVersion string           `json:"catalogVersion"`
	Lookups        lookup.Snapshot  `json:"lookups"`
	External       external.Data    `json:"external"`
	File           filecache.Data   `json:"file"`
	Learners       []*model.Learner `json:"learners"`
}

// NewBundle captures the reference data of a run
func NewBundle(correlationID, catalogVersion string, lookups *lookup.Cache, ext *external.Cache, file *filecache.Cache) (*Bundle, error) {
	if lookups == nil || ext == nil || file == nil {
		return nil, fmt.Errorf("bundle needs lookups, external and file caches")
	}
	return &Bundle{
		CorrelationID:  correlationID,
		CatalogVersion: catalogVersion,
		Lookups:        lookups.Snapshot(),
		External:       ext.Data(),
		File:           file.Data(),
	}, nil
}

// WithLearners returns a shallow copy of b carrying learners.
// Reference data is shared between the copies.
func (b *Bundle) WithLearners(learners []*model.Learner) *Bundle {
	out := *b
	out.Learners = learners
	return &out
}

// Dependencies rebuilds the caches the rules read from
func (b *Bundle) Dependencies() (ruleset.Dependencies, error) {
	if b.CatalogVersion == "" {
		return ruleset.Dependencies{}, ErrEmptyBundle
	}
	cache, err := lookup.FromSnapshot(b.Lookups)
	if err != nil {
		return ruleset.Dependencies{}, fmt.Errorf("failed to rebuild lookups: %w", err)
	}
	provider := lookup.NewProviderFromCache(cache)
	if err := provider.Warm(); err != nil {
		return ruleset.Dependencies{}, err
	}
	return ruleset.Dependencies{
		Lookups:  provider,
		External: external.NewCache(b.External),
		File:     filecache.FromData(b.File),
	}, nil
}

// Chunk splits learners into consecutive groups of at most size
func Chunk(learners []*model.Learner, size int) [][]*model.Learner {
	if size < 1 {
		size = 1
	}
	chunks := make([][]*model.Learner, 0, (len(learners)+size-1)/size)
	for start := 0; start < len(learners); start += size {
		end := min(start+size, len(learners))
		chunks = append(chunks, learners[start:end])
	}
	return chunks
}
