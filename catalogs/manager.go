// Package catalogs manages the rule catalogs of each collection version.
//
// The Go-coded rules are fixed at build time. The declarative rules of a
// version live in an ExpressionStore and are compiled when the version is
// loaded; reloading a version recompiles them and swaps the result in
// atomically, so runs in flight keep the rules they started with.
package catalogs

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/liamcoop/ilrvalidation/internal/logger"
	"github.com/liamcoop/ilrvalidation/lookup"
	"github.com/liamcoop/ilrvalidation/rules"
	"github.com/liamcoop/ilrvalidation/ruleset"
)

// ErrUnknownVersion is returned for a catalog version that was never loaded
var ErrUnknownVersion = errors.New("catalog version not loaded")

// Version is the declarative part of one catalog version
type Version struct {
	Name        string
	Definitions []*rules.ExpressionDefinition
	Expressions []rules.Rule
	LoadedAt    time.Time
}

// Manager holds the loaded catalog versions
type Manager struct {
	store    rules.ExpressionStore
	lookups  lookup.Details
	compiler *rules.ExpressionCompiler
	logger   *slog.Logger

	versions map[string]*Version
	mu       sync.RWMutex
}

// NewManager creates a manager compiling expression rules from store against lookups.
// A nil logger falls back to the package logger.
func NewManager(store rules.ExpressionStore, lookups lookup.Details, log *slog.Logger) (*Manager, error) {
	if store == nil {
		return nil, fmt.Errorf("expression store is required")
	}
	compiler, err := rules.NewExpressionCompiler(lookups)
	if err != nil {
		return nil, fmt.Errorf("failed to create expression compiler: %w", err)
	}
	if log == nil {
		log = logger.Logger
	}
	if log == nil {
		log = slog.Default()
	}
	return &Manager{
		store:    store,
		lookups:  lookups,
		compiler: compiler,
		logger:   log,
		versions: make(map[string]*Version),
	}, nil
}

// Load loads every named version, stopping at the first failure
func (m *Manager) Load(versions ...string) error {
	for _, v := range versions {
		if err := m.Reload(v); err != nil {
			return err
		}
	}
	return nil
}

// Reload compiles the active expression rules of version and swaps them in.
// On failure the previously loaded rules stay in place.
func (m *Manager) Reload(version string) error {
	defs, err := m.store.ListActive(version)
	if err != nil {
		return fmt.Errorf("failed to load expression rules for catalog %s: %w", version, err)
	}
	compiled, err := m.compiler.CompileAll(defs)
	if err != nil {
		return fmt.Errorf("catalog %s: %w", version, err)
	}
	if _, err := rules.NewCatalog(version, compiled...); err != nil {
		return fmt.Errorf("catalog %s: %w", version, err)
	}

	loaded := &Version{Name: version, Definitions: defs, Expressions: compiled, LoadedAt: time.Now()}

	m.mu.Lock()
	m.versions[version] = loaded
	m.mu.Unlock()

	m.logger.Info("catalog version loaded",
		"catalog_version", version,
		"expression_rules", len(compiled),
	)
	return nil
}

// Version returns the loaded version
func (m *Manager) Version(version string) (*Version, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, exists := m.versions[version]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrUnknownVersion, version)
	}
	return v, nil
}

// Catalog builds the full catalog of version: the Go-coded rules wired to deps,
// followed by the version's expression rules. Expression rules are recompiled
// when deps carries different lookups from the manager's.
func (m *Manager) Catalog(version string, deps ruleset.Dependencies) (*rules.Catalog, error) {
	v, err := m.Version(version)
	if err != nil {
		return nil, err
	}
	expressions := v.Expressions
	if deps.Lookups != nil && deps.Lookups != m.lookups {
		compiler, err := rules.NewExpressionCompiler(deps.Lookups)
		if err != nil {
			return nil, fmt.Errorf("failed to create expression compiler: %w", err)
		}
		if expressions, err = compiler.CompileAll(v.Definitions); err != nil {
			return nil, fmt.Errorf("catalog %s: %w", version, err)
		}
	}
	return ruleset.NewCatalog(version, deps, expressions...)
}

// Versions returns the loaded version names in order
func (m *Manager) Versions() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]string, 0, len(m.versions))
	for name := range m.versions {
		out = append(out, name)
	}
	slices.Sort(out)
	return out
}

// Remove unloads a version. Stored definitions are kept.
func (m *Manager) Remove(version string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.versions[version]; !exists {
		return fmt.Errorf("%w: %s", ErrUnknownVersion, version)
	}
	delete(m.versions, version)
	return nil
}
