// Package derived computes the derived data items rules share
package derived

import (
	"slices"
	"time"

	"github.com/liamcoop/ilrvalidation/model"
)

// AimTypeProgramme is the aim type of a programme aim
const AimTypeProgramme = 1

// apprenticeshipProgTypes are the programme types DD07 treats as apprenticeships
var apprenticeshipProgTypes = []int{2, 3, 20, 21, 22, 23, 25}

// DD04 returns the earliest start date of the programme aims sharing the
// delivery's programme type, framework and pathway, or nil when there is none
func DD04(deliveries []*model.LearningDelivery, delivery *model.LearningDelivery) *time.Time {
	if delivery == nil || delivery.ProgType == nil || delivery.FworkCode == nil || delivery.PwayCode == nil {
		return nil
	}
	return EarliestStartDateFor(deliveries, AimTypeProgramme, *delivery.ProgType, *delivery.FworkCode, *delivery.PwayCode)
}

// EarliestStartDateFor returns the earliest start date among deliveries with the
// given aim type, programme type, framework and pathway, or nil when none match
func EarliestStartDateFor(deliveries []*model.LearningDelivery, aimType, progType, fworkCode, pwayCode int) *time.Time {
	var earliest *time.Time
	for _, d := range deliveries {
		if d == nil || d.AimType != aimType ||
			!intEquals(d.ProgType, progType) || !intEquals(d.FworkCode, fworkCode) || !intEquals(d.PwayCode, pwayCode) {
			continue
		}
		if earliest == nil || d.LearnStartDate.Before(*earliest) {
			start := d.LearnStartDate
			earliest = &start
		}
	}
	return earliest
}

// DD06 returns the earliest learning start date of all the learner's deliveries,
// or nil when the learner has none
func DD06(deliveries []*model.LearningDelivery) *time.Time {
	var earliest *time.Time
	for _, d := range deliveries {
		if d == nil {
			continue
		}
		if earliest == nil || d.LearnStartDate.Before(*earliest) {
			start := d.LearnStartDate
			earliest = &start
		}
	}
	return earliest
}

// DD07 reports whether the programme type is an apprenticeship
func DD07(progType *int) bool {
	return progType != nil && slices.Contains(apprenticeshipProgTypes, *progType)
}

// YearsBetween returns the whole years elapsed from start to end, as an age is counted
func YearsBetween(start, end time.Time) int {
	years := end.Year() - start.Year()
	if end.Month() < start.Month() || (end.Month() == start.Month() && end.Day() < start.Day()) {
		years--
	}
	return years
}

// DaysBetween returns the calendar days from start to end
func DaysBetween(start, end time.Time) int {
	s := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	e := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.UTC)
	return int(e.Sub(s).Hours() / 24)
}

func intEquals(v *int, want int) bool {
	return v != nil && *v == want
}
