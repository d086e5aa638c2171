package rules

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/liamcoop/ilrvalidation/model"
)

// Rule is a named, stateless check run against one learner.
// Business violations are reported through the handler and never returned;
// a returned error means the rule itself could not run.
type Rule interface {
	Name() string
	Validate(learner *model.Learner, handler ErrorHandler) error
}

// ErrorHandler receives the violations a rule raises
type ErrorHandler interface {
	BuildErrorMessageParameter(name string, value any) Parameter
	Handle(ruleName, learnRefNumber string, aimSequenceNumber *int, parameters []Parameter)
}

var (
	// ErrNilLearner is returned by a rule given no learner to validate
	ErrNilLearner = errors.New("learner is nil")

	// ErrDuplicateRuleName is returned when a catalog holds two rules with one name
	ErrDuplicateRuleName = errors.New("duplicate rule name")

	// ErrRunCancelled is returned when a run stops before every learner was evaluated
	ErrRunCancelled = errors.New("validation run cancelled")
)

// Severity classifies a validation error
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
)

// String returns the configuration name of the severity
func (s Severity) String() string {
	if s == SeverityWarning {
		return "warning"
	}
	return "error"
}

// Tag returns the single letter used in reports
func (s Severity) Tag() string {
	if s == SeverityWarning {
		return "W"
	}
	return "E"
}

// ParseSeverity reads a severity name; E and W are accepted as well
func ParseSeverity(s string) (Severity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "error", "e":
		return SeverityError, nil
	case "warning", "warn", "w":
		return SeverityWarning, nil
	default:
		return SeverityError, fmt.Errorf("unknown severity %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (s *Severity) UnmarshalText(text []byte) error {
	parsed, err := ParseSeverity(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Parameter is a field name and its formatted value, reported with an error
type Parameter struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// String returns Name=Value
func (p Parameter) String() string {
	return p.Name + "=" + p.Value
}

// ValidationError is one business rule violation
type ValidationError struct {
	Severity          Severity    `json:"severity"`
	RuleName          string      `json:"ruleName"`
	LearnRefNumber    string      `json:"learnRefNumber"`
	AimSequenceNumber *int        `json:"aimSequenceNumber,omitempty"`
	Parameters        []Parameter `json:"parameters,omitempty"`
}

// DisplayDateLayout is the en-GB date format used for date parameters
const DisplayDateLayout = "02/01/2006"

// FormatValue renders a parameter value the way it appears in reports.
// Dates use en-GB day/month/year; nil values render empty.
func FormatValue(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case time.Time:
		return v.Format(DisplayDateLayout)
	case *time.Time:
		if v == nil {
			return ""
		}
		return v.Format(DisplayDateLayout)
	case *int:
		if v == nil {
			return ""
		}
		return fmt.Sprint(*v)
	case *int64:
		if v == nil {
			return ""
		}
		return fmt.Sprint(*v)
	case *string:
		if v == nil {
			return ""
		}
		return *v
	default:
		return fmt.Sprint(v)
	}
}

// RuleFault is an unexpected failure of one rule on one learner.
// It is isolated: other rules and learners are still evaluated.
type RuleFault struct {
	RuleName       string
	LearnRefNumber string
	Panicked       bool
	Cause          error
}

// Error returns the error message.
func (e *RuleFault) Error() string {
	kind := "failed"
	if e.Panicked {
		kind = "panicked"
	}
	return fmt.Sprintf("rule %s %s for learner %s: %v", e.RuleName, kind, e.LearnRefNumber, e.Cause)
}

// Unwrap returns the underlying cause.
func (e *RuleFault) Unwrap() error {
	return e.Cause
}
