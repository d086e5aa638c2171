package lookup

import (
	"fmt"
	"sync"
	"time"
)

// Details is the read-only query surface rules consult
type Details interface {
	Contains(key SimpleKey, value int) bool
	AsSet(key SimpleKey) IntSet
	ContainsCode(key CodedKey, value string) bool
	AsCodeSet(key CodedKey) StringSet
	HasCode(key TimeRestrictedKey, code int) bool
	AsPeriods(key TimeRestrictedKey) map[int][]ValidityPeriod
	IsCurrent(key TimeRestrictedKey, code int, referenceDate time.Time) bool
	AcademicYear() AcademicYear
}

// CacheFactory builds a populated cache
type CacheFactory interface {
	Create() (*Cache, error)
}

// CacheFactoryFunc adapts a function to CacheFactory
type CacheFactoryFunc func() (*Cache, error)

// Create calls f
func (f CacheFactoryFunc) Create() (*Cache, error) {
	return f()
}

// Provider answers lookup queries against a cache built on first access.
// The factory runs at most once per provider, whatever the number of
// concurrent first callers; its result, error included, is kept for the
// provider's lifetime.
//
// Query methods panic with *ConfigurationError when the cache could not be
// built or a category was never populated. Call Warm before a run to surface
// that as an error instead.
type Provider struct {
	factory CacheFactory

	once  sync.Once
	cache *Cache
	err   error
}

var _ Details = (*Provider)(nil)

// NewProvider creates a provider over the given factory
func NewProvider(factory CacheFactory) *Provider {
	return &Provider{factory: factory}
}

// NewProviderFromCache creates a provider over an already built cache
func NewProviderFromCache(cache *Cache) *Provider {
	return NewProvider(CacheFactoryFunc(func() (*Cache, error) {
		return cache, nil
	}))
}

// Warm builds the cache if needed and reports any configuration fault
func (p *Provider) Warm() error {
	_, err := p.Cache()
	return err
}

// Cache returns the frozen cache, building it on first call
func (p *Provider) Cache() (*Cache, error) {
	p.once.Do(func() {
		defer func() {
			if r := recover(); r != nil {
				p.cache, p.err = nil, &ConfigurationError{Cause: fmt.Errorf("cache factory panicked: %v", r)}
			}
		}()
		p.cache, p.err = p.build()
	})
	return p.cache, p.err
}

func (p *Provider) build() (*Cache, error) {
	if p.factory == nil {
		return nil, &ConfigurationError{Cause: fmt.Errorf("no cache factory configured")}
	}
	cache, err := p.factory.Create()
	if err != nil {
		return nil, &ConfigurationError{Cause: err}
	}
	if cache == nil {
		return nil, &ConfigurationError{Cause: fmt.Errorf("cache factory returned no cache")}
	}
	if err := cache.CheckComplete(); err != nil {
		return nil, err
	}
	return cache.Freeze(), nil
}

func (p *Provider) mustCache() *Cache {
	cache, err := p.Cache()
	if err != nil {
		panic(err)
	}
	return cache
}

// Contains reports whether value belongs to the simple domain
func (p *Provider) Contains(key SimpleKey, value int) bool {
	return p.AsSet(key).Contains(value)
}

// AsSet returns the members of a simple domain
func (p *Provider) AsSet(key SimpleKey) IntSet {
	set, ok := p.mustCache().simpleSet(key)
	if !ok {
		panic(&ConfigurationError{Category: key.String()})
	}
	return set
}

// ContainsCode reports whether value belongs to the coded domain
func (p *Provider) ContainsCode(key CodedKey, value string) bool {
	return p.AsCodeSet(key).Contains(value)
}

// AsCodeSet returns the members of a coded domain
func (p *Provider) AsCodeSet(key CodedKey) StringSet {
	set, ok := p.mustCache().codedSet(key)
	if !ok {
		panic(&ConfigurationError{Category: key.String()})
	}
	return set
}

// HasCode reports whether code exists in the time restricted domain, whatever its windows
func (p *Provider) HasCode(key TimeRestrictedKey, code int) bool {
	_, ok := p.periods(key)[code]
	return ok
}

// AsPeriods returns a copy of the code to windows map of a time restricted domain
func (p *Provider) AsPeriods(key TimeRestrictedKey) map[int][]ValidityPeriod {
	return clonePeriods(p.periods(key))
}

// IsCurrent reports whether code exists in the domain and referenceDate falls
// inside at least one of its windows. An unknown code is never current.
func (p *Provider) IsCurrent(key TimeRestrictedKey, code int, referenceDate time.Time) bool {
	for _, period := range p.periods(key)[code] {
		if period.Contains(referenceDate) {
			return true
		}
	}
	return false
}

// AcademicYear returns the collection year of the cache
func (p *Provider) AcademicYear() AcademicYear {
	return p.mustCache().academicYear
}

func (p *Provider) periods(key TimeRestrictedKey) map[int][]ValidityPeriod {
	codes, ok := p.mustCache().timeRestrictedCodes(key)
	if !ok {
		panic(&ConfigurationError{Category: key.String()})
	}
	return codes
}
