package rules

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"
)

var (
	// ErrExpressionNotFound is returned when no definition has the requested id
	ErrExpressionNotFound = errors.New("expression rule not found")

	// ErrExpressionExists is returned when adding a definition whose id or name is taken
	ErrExpressionExists = errors.New("expression rule already exists")
)

// ExpressionStore persists declarative rule definitions per catalog version
type ExpressionStore interface {
	// Add a new definition
	Add(def *ExpressionDefinition) error

	// Get a definition by ID
	Get(id string) (*ExpressionDefinition, error)

	// ListActive returns the active definitions of a catalog version, oldest first
	ListActive(catalogVersion string) ([]*ExpressionDefinition, error)

	// Update an existing definition
	Update(def *ExpressionDefinition) error

	// Delete a definition
	Delete(id string) error
}

// InMemoryExpressionStore implements ExpressionStore using an in-memory map
type InMemoryExpressionStore struct {
	defs map[string]*ExpressionDefinition
	mu   sync.RWMutex
}

// NewInMemoryExpressionStore creates a new in-memory expression store
func NewInMemoryExpressionStore() *InMemoryExpressionStore {
	return &InMemoryExpressionStore{
		defs: make(map[string]*ExpressionDefinition),
	}
}

// Add adds a definition, stamping CreatedAt and UpdatedAt.
// IDs are unique, and names are unique within a catalog version.
func (s *InMemoryExpressionStore) Add(def *ExpressionDefinition) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.defs[def.ID]; exists {
		return fmt.Errorf("%w: id %s", ErrExpressionExists, def.ID)
	}
	for _, existing := range s.defs {
		if existing.CatalogVersion == def.CatalogVersion && existing.Name == def.Name {
			return fmt.Errorf("%w: name %s in catalog %s", ErrExpressionExists, def.Name, def.CatalogVersion)
		}
	}

	now := time.Now()
	def.CreatedAt = now
	def.UpdatedAt = now
	s.defs[def.ID] = cloneDefinition(def)
	return nil
}

// Get retrieves a definition by ID
func (s *InMemoryExpressionStore) Get(id string) (*ExpressionDefinition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	def, exists := s.defs[id]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrExpressionNotFound, id)
	}
	return cloneDefinition(def), nil
}

// ListActive returns the active definitions of catalogVersion ordered by creation time
func (s *InMemoryExpressionStore) ListActive(catalogVersion string) ([]*ExpressionDefinition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var active []*ExpressionDefinition
	for _, def := range s.defs {
		if def.Active && def.CatalogVersion == catalogVersion {
			active = append(active, cloneDefinition(def))
		}
	}
	slices.SortFunc(active, func(a, b *ExpressionDefinition) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return active, nil
}

// Update replaces a definition, preserving CreatedAt
func (s *InMemoryExpressionStore) Update(def *ExpressionDefinition) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.defs[def.ID]
	if !exists {
		return fmt.Errorf("%w: %s", ErrExpressionNotFound, def.ID)
	}

	def.CreatedAt = existing.CreatedAt
	def.UpdatedAt = time.Now()
	s.defs[def.ID] = cloneDefinition(def)
	return nil
}

// Delete removes a definition
func (s *InMemoryExpressionStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.defs[id]; !exists {
		return fmt.Errorf("%w: %s", ErrExpressionNotFound, id)
	}
	delete(s.defs, id)
	return nil
}

func cloneDefinition(def *ExpressionDefinition) *ExpressionDefinition {
	c := *def
	c.Parameters = slices.Clone(def.Parameters)
	return &c
}
