package lookup

import (
	"fmt"
	"time"
)

// DateLayout is the layout used for dates in reference tables
const DateLayout = "2006-01-02"

// ValidityPeriod is an inclusive [ValidFrom, ValidTo] date window.
// Only the calendar date of each bound takes part in comparisons.
type ValidityPeriod struct {
	ValidFrom time.Time `json:"validFrom"`
	ValidTo   time.Time `json:"validTo"`
}

// NewValidityPeriod parses both bounds using DateLayout
func NewValidityPeriod(from, to string) (ValidityPeriod, error) {
	validFrom, err := time.Parse(DateLayout, from)
	if err != nil {
		return ValidityPeriod{}, fmt.Errorf("invalid valid-from date %q: %w", from, err)
	}
	validTo, err := time.Parse(DateLayout, to)
	if err != nil {
		return ValidityPeriod{}, fmt.Errorf("invalid valid-to date %q: %w", to, err)
	}
	if validTo.Before(validFrom) {
		return ValidityPeriod{}, fmt.Errorf("validity period %s..%s ends before it starts", from, to)
	}
	return ValidityPeriod{ValidFrom: validFrom, ValidTo: validTo}, nil
}

// Contains reports whether date falls inside the window, inclusive on both bounds
func (p ValidityPeriod) Contains(date time.Time) bool {
	d := dateOf(date)
	return !d.Before(dateOf(p.ValidFrom)) && !d.After(dateOf(p.ValidTo))
}

func (p ValidityPeriod) String() string {
	return p.ValidFrom.Format(DateLayout) + ".." + p.ValidTo.Format(DateLayout)
}

// dateOf strips the clock so that bounds compare by calendar day
func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
