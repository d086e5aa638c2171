package lookup

import (
	"fmt"
	"slices"
	"sync"
	"time"
)

// IntSet is a read-only set of integer codes
type IntSet struct {
	values map[int]struct{}
}

// NewIntSet builds a set from the given values
func NewIntSet(values ...int) IntSet {
	s := IntSet{values: make(map[int]struct{}, len(values))}
	for _, v := range values {
		s.values[v] = struct{}{}
	}
	return s
}

// Contains reports whether v is a member of the set
func (s IntSet) Contains(v int) bool {
	_, ok := s.values[v]
	return ok
}

// Len returns the number of members
func (s IntSet) Len() int {
	return len(s.values)
}

// Values returns the members in ascending order
func (s IntSet) Values() []int {
	out := make([]int, 0, len(s.values))
	for v := range s.values {
		out = append(out, v)
	}
	slices.Sort(out)
	return out
}

// StringSet is a read-only set of string codes
type StringSet struct {
	values map[string]struct{}
}

// NewStringSet builds a set from the given values
func NewStringSet(values ...string) StringSet {
	s := StringSet{values: make(map[string]struct{}, len(values))}
	for _, v := range values {
		s.values[v] = struct{}{}
	}
	return s
}

// Contains reports whether v is a member of the set
func (s StringSet) Contains(v string) bool {
	_, ok := s.values[v]
	return ok
}

// Len returns the number of members
func (s StringSet) Len() int {
	return len(s.values)
}

// Values returns the members in ascending order
func (s StringSet) Values() []string {
	out := make([]string, 0, len(s.values))
	for v := range s.values {
		out = append(out, v)
	}
	slices.Sort(out)
	return out
}

// AcademicYear holds the collection year boundaries and the census dates derived from them
type AcademicYear struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// AcademicYearFor returns the academic year, 1 August to 31 July, containing date
func AcademicYearFor(date time.Time) AcademicYear {
	start := date.Year()
	if date.Month() < time.August {
		start--
	}
	return AcademicYear{
		Start: time.Date(start, time.August, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(start+1, time.July, 31, 0, 0, 0, 0, time.UTC),
	}
}

// JanuaryFirst returns 1 January inside the academic year
func (a AcademicYear) JanuaryFirst() time.Time {
	return time.Date(a.End.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
}

// LastFridayInJune returns the last Friday of June inside the academic year
func (a AcademicYear) LastFridayInJune() time.Time {
	d := time.Date(a.End.Year(), time.June, 30, 0, 0, 0, 0, time.UTC)
	for d.Weekday() != time.Friday {
		d = d.AddDate(0, 0, -1)
	}
	return d
}

// Contains reports whether date falls inside the academic year
func (a AcademicYear) Contains(date time.Time) bool {
	return ValidityPeriod{ValidFrom: a.Start, ValidTo: a.End}.Contains(date)
}

// Cache is the three-shaped reference store read by rules.
// It is written during population, then frozen; a frozen cache rejects writes
// and can be shared between goroutines without locking.
type Cache struct {
	simple         map[SimpleKey]IntSet
	coded          map[CodedKey]StringSet
	timeRestricted map[TimeRestrictedKey]map[int][]ValidityPeriod
	academicYear   AcademicYear

	mu     sync.Mutex
	frozen bool
}

// NewCache creates an empty, writable cache
func NewCache() *Cache {
	return &Cache{
		simple:         make(map[SimpleKey]IntSet),
		coded:          make(map[CodedKey]StringSet),
		timeRestricted: make(map[TimeRestrictedKey]map[int][]ValidityPeriod),
	}
}

// SetSimple replaces the members of a simple domain
func (c *Cache) SetSimple(key SimpleKey, values ...int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.frozen {
		return fmt.Errorf("set %s: %w", key, ErrCacheFrozen)
	}
	c.simple[key] = NewIntSet(values...)
	return nil
}

// SetCoded replaces the members of a coded domain
func (c *Cache) SetCoded(key CodedKey, values ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.frozen {
		return fmt.Errorf("set %s: %w", key, ErrCacheFrozen)
	}
	c.coded[key] = NewStringSet(values...)
	return nil
}

// DeclareTimeRestricted registers a time restricted domain, possibly with no codes yet
func (c *Cache) DeclareTimeRestricted(key TimeRestrictedKey) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.frozen {
		return fmt.Errorf("declare %s: %w", key, ErrCacheFrozen)
	}
	if _, ok := c.timeRestricted[key]; !ok {
		c.timeRestricted[key] = make(map[int][]ValidityPeriod)
	}
	return nil
}

// AddPeriod adds a validity window for a code of a time restricted domain.
// A code may carry several windows.
func (c *Cache) AddPeriod(key TimeRestrictedKey, code int, period ValidityPeriod) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.frozen {
		return fmt.Errorf("add %s code %d: %w", key, code, ErrCacheFrozen)
	}
	codes, ok := c.timeRestricted[key]
	if !ok {
		codes = make(map[int][]ValidityPeriod)
		c.timeRestricted[key] = codes
	}
	codes[code] = append(codes[code], period)
	return nil
}

// SetAcademicYear sets the collection year
func (c *Cache) SetAcademicYear(year AcademicYear) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.frozen {
		return fmt.Errorf("set academic year: %w", ErrCacheFrozen)
	}
	c.academicYear = year
	return nil
}

// Freeze makes the cache read-only and returns it
func (c *Cache) Freeze() *Cache {
	c.mu.Lock()
	c.frozen = true
	c.mu.Unlock()
	return c
}

// Frozen reports whether the cache has been frozen
func (c *Cache) Frozen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.frozen
}

// CheckComplete returns a ConfigurationError naming the first declared category
// the cache does not hold
func (c *Cache) CheckComplete() error {
	for _, key := range AllSimpleKeys() {
		if _, ok := c.simple[key]; !ok {
			return &ConfigurationError{Category: key.String()}
		}
	}
	for _, key := range AllCodedKeys() {
		if _, ok := c.coded[key]; !ok {
			return &ConfigurationError{Category: key.String()}
		}
	}
	for _, key := range AllTimeRestrictedKeys() {
		if _, ok := c.timeRestricted[key]; !ok {
			return &ConfigurationError{Category: key.String()}
		}
	}
	if c.academicYear.Start.IsZero() || c.academicYear.End.IsZero() {
		return &ConfigurationError{Category: "AcademicYear"}
	}
	return nil
}

func (c *Cache) simpleSet(key SimpleKey) (IntSet, bool) {
	s, ok := c.simple[key]
	return s, ok
}

func (c *Cache) codedSet(key CodedKey) (StringSet, bool) {
	s, ok := c.coded[key]
	return s, ok
}

func (c *Cache) timeRestrictedCodes(key TimeRestrictedKey) (map[int][]ValidityPeriod, bool) {
	m, ok := c.timeRestricted[key]
	return m, ok
}

// Snapshot is the serialisable form of a cache, used to ship it to workers
type Snapshot struct {
	AcademicYear   AcademicYear                         `json:"academicYear"`
	Simple         map[string][]int                     `json:"simple"`
	Coded          map[string][]string                  `json:"coded"`
	TimeRestricted map[string]map[int][]ValidityPeriod `json:"timeRestricted"`
}

// Snapshot copies the cache contents into a Snapshot
func (c *Cache) Snapshot() Snapshot {
	s := Snapshot{
		AcademicYear:   c.academicYear,
		Simple:         make(map[string][]int, len(c.simple)),
		Coded:          make(map[string][]string, len(c.coded)),
		TimeRestricted: make(map[string]map[int][]ValidityPeriod, len(c.timeRestricted)),
	}
	for k, set := range c.simple {
		s.Simple[k.String()] = set.Values()
	}
	for k, set := range c.coded {
		s.Coded[k.String()] = set.Values()
	}
	for k, codes := range c.timeRestricted {
		s.TimeRestricted[k.String()] = clonePeriods(codes)
	}
	return s
}

// FromSnapshot rebuilds a frozen cache from a Snapshot
func FromSnapshot(s Snapshot) (*Cache, error) {
	c := NewCache()
	for name, values := range s.Simple {
		key, err := ParseSimpleKey(name)
		if err != nil {
			return nil, err
		}
		c.simple[key] = NewIntSet(values...)
	}
	for name, values := range s.Coded {
		key, err := ParseCodedKey(name)
		if err != nil {
			return nil, err
		}
		c.coded[key] = NewStringSet(values...)
	}
	for name, codes := range s.TimeRestricted {
		key, err := ParseTimeRestrictedKey(name)
		if err != nil {
			return nil, err
		}
		c.timeRestricted[key] = clonePeriods(codes)
	}
	c.academicYear = s.AcademicYear
	return c.Freeze(), nil
}

func clonePeriods(codes map[int][]ValidityPeriod) map[int][]ValidityPeriod {
	out := make(map[int][]ValidityPeriod, len(codes))
	for code, periods := range codes {
		out[code] = slices.Clone(periods)
	}
	return out
}
