package rules

import (
	"cmp"
	"slices"
	"strings"
	"sync"
)

// SeverityResolver maps a rule name to its configured severity
type SeverityResolver interface {
	Severity(ruleName string) Severity
}

// SeverityMap resolves severities from a name map; unknown rules are errors
type SeverityMap map[string]Severity

// Severity returns the configured severity of ruleName, SeverityError by default
func (m SeverityMap) Severity(ruleName string) Severity {
	if s, ok := m[ruleName]; ok {
		return s
	}
	return SeverityError
}

// Collector is the ErrorHandler that accumulates a run's validation errors.
// Handle is safe for concurrent use.
type Collector struct {
	severities SeverityResolver
	mu         sync.Mutex
	errors     []ValidationError
}

var _ ErrorHandler = (*Collector)(nil)

// NewCollector creates an empty collector; a nil resolver reports everything as an error
func NewCollector(severities SeverityResolver) *Collector {
	if severities == nil {
		severities = SeverityMap(nil)
	}
	return &Collector{severities: severities}
}

// BuildErrorMessageParameter formats value for reporting under name
func (c *Collector) BuildErrorMessageParameter(name string, value any) Parameter {
	return Parameter{Name: name, Value: FormatValue(value)}
}

// Handle records a violation of ruleName
func (c *Collector) Handle(ruleName, learnRefNumber string, aimSequenceNumber *int, parameters []Parameter) {
	ve := c.build(ruleName, learnRefNumber, aimSequenceNumber, parameters)
	c.mu.Lock()
	c.errors = append(c.errors, ve)
	c.mu.Unlock()
}

func (c *Collector) build(ruleName, learnRefNumber string, aimSequenceNumber *int, parameters []Parameter) ValidationError {
	var seq *int
	if aimSequenceNumber != nil {
		n := *aimSequenceNumber
		seq = &n
	}
	return ValidationError{
		Severity:          c.severities.Severity(ruleName),
		RuleName:          ruleName,
		LearnRefNumber:    learnRefNumber,
		AimSequenceNumber: seq,
		Parameters:        slices.Clone(parameters),
	}
}

func (c *Collector) add(errs ...ValidationError) {
	if len(errs) == 0 {
		return
	}
	c.mu.Lock()
	c.errors = append(c.errors, errs...)
	c.mu.Unlock()
}

// Len returns the number of collected errors
func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.errors)
}

// Errors returns a copy of the collected errors in collection order
func (c *Collector) Errors() []ValidationError {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.errors)
}

// Sorted returns the collected errors ordered by learner, rule, aim sequence and parameters
func (c *Collector) Sorted() []ValidationError {
	out := c.Errors()
	SortErrors(out)
	return out
}

// SortErrors orders errs by learner reference, rule name, aim sequence number
// (absent first) and finally parameters, giving a total order
func SortErrors(errs []ValidationError) {
	slices.SortStableFunc(errs, compareErrors)
}

func compareErrors(a, b ValidationError) int {
	if c := cmp.Compare(a.LearnRefNumber, b.LearnRefNumber); c != 0 {
		return c
	}
	if c := cmp.Compare(a.RuleName, b.RuleName); c != 0 {
		return c
	}
	if c := compareSeq(a.AimSequenceNumber, b.AimSequenceNumber); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Severity, b.Severity); c != 0 {
		return c
	}
	return cmp.Compare(JoinParameters(a.Parameters), JoinParameters(b.Parameters))
}

func compareSeq(a, b *int) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	default:
		return cmp.Compare(*a, *b)
	}
}

// JoinParameters renders parameters as Name=Value pairs separated by |
func JoinParameters(params []Parameter) string {
	parts := make([]string, len(params))
	for i, p := range params {
		parts[i] = p.String()
	}
	return strings.Join(parts, "|")
}

// ruleScope buffers what one rule raises for one learner, so a rule that faults
// part way through contributes nothing
type ruleScope struct {
	collector *Collector
	pending   []ValidationError
}

func (s *ruleScope) BuildErrorMessageParameter(name string, value any) Parameter {
	return s.collector.BuildErrorMessageParameter(name, value)
}

func (s *ruleScope) Handle(ruleName, learnRefNumber string, aimSequenceNumber *int, parameters []Parameter) {
	s.pending = append(s.pending, s.collector.build(ruleName, learnRefNumber, aimSequenceNumber, parameters))
}

func (s *ruleScope) commit() {
	s.collector.add(s.pending...)
	s.pending = s.pending[:0]
}

func (s *ruleScope) discard() {
	s.pending = s.pending[:0]
}
