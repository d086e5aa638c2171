package rules

import (
	"fmt"
	"regexp"
	"slices"
)

var ruleNamePattern = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_]*$`)

// Catalog is the fixed, named list of rules evaluated in a run.
// Rule names are unique within a catalog and appear in reports.
type Catalog struct {
	version string
	rules   []Rule
	byName  map[string]Rule
}

// NewCatalog validates and freezes a list of rules under a version label
func NewCatalog(version string, rules ...Rule) (*Catalog, error) {
	c := &Catalog{
		version: version,
		rules:   make([]Rule, 0, len(rules)),
		byName:  make(map[string]Rule, len(rules)),
	}
	for i, r := range rules {
		if r == nil {
			return nil, fmt.Errorf("rule %d is nil", i)
		}
		name := r.Name()
		if err := ValidateRuleName(name); err != nil {
			return nil, fmt.Errorf("invalid rule name %q: %w", name, err)
		}
		if _, exists := c.byName[name]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateRuleName, name)
		}
		c.byName[name] = r
		c.rules = append(c.rules, r)
	}
	return c, nil
}

// ValidateRuleName checks a rule name is a non-empty identifier of at most 100 characters
func ValidateRuleName(name string) error {
	if len(name) == 0 {
		return fmt.Errorf("rule name cannot be empty")
	}
	if len(name) > 100 {
		return fmt.Errorf("rule name length %d exceeds maximum of 100 characters", len(name))
	}
	if !ruleNamePattern.MatchString(name) {
		return fmt.Errorf("must match pattern %s", ruleNamePattern.String())
	}
	return nil
}

// Version returns the catalog version label
func (c *Catalog) Version() string {
	return c.version
}

// Rules returns the rules in catalog order
func (c *Catalog) Rules() []Rule {
	return slices.Clone(c.rules)
}

// Names returns the rule names in catalog order
func (c *Catalog) Names() []string {
	names := make([]string, len(c.rules))
	for i, r := range c.rules {
		names[i] = r.Name()
	}
	return names
}

// Get returns the rule registered under name
func (c *Catalog) Get(name string) (Rule, bool) {
	r, ok := c.byName[name]
	return r, ok
}

// Len returns the number of rules
func (c *Catalog) Len() int {
	return len(c.rules)
}

// Extend returns a new catalog holding c's rules followed by more
func (c *Catalog) Extend(more ...Rule) (*Catalog, error) {
	return NewCatalog(c.version, append(c.Rules(), more...)...)
}
