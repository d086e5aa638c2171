package ruleset

import (
	"time"

	"github.com/liamcoop/ilrvalidation/filecache"
	"github.com/liamcoop/ilrvalidation/lookup"
	"github.com/liamcoop/ilrvalidation/model"
	"github.com/liamcoop/ilrvalidation/rules"
	"github.com/liamcoop/ilrvalidation/rules/derived"
)

// DateOfBirth12 flags a community learning learner under 19 at the start of an
// aim that carries an ASL (adult skills learning) FAM of code 1 or 2.
// It raises at most once per learner.
type DateOfBirth12 struct {
	reporter rules.Reporter
}

// NewDateOfBirth12 creates the DateOfBirth_12 rule
func NewDateOfBirth12() *DateOfBirth12 {
	return &DateOfBirth12{reporter: rules.NewReporter("DateOfBirth_12")}
}

// Name returns the rule name
func (r *DateOfBirth12) Name() string { return r.reporter.Name() }

// Validate checks the learner
func (r *DateOfBirth12) Validate(learner *model.Learner, h rules.ErrorHandler) error {
	if learner == nil {
		return rules.ErrNilLearner
	}
	for _, d := range learner.LearningDeliveries {
		if d != nil && r.ConditionMet(learner.DateOfBirth, d) {
			r.reporter.Raise(h, learner.LearnRefNumber, nil, rules.F("DateOfBirth", learner.DateOfBirth))
			return nil
		}
	}
	return nil
}

// ConditionMet reports whether the delivery puts the learner in violation
func (r *DateOfBirth12) ConditionMet(dateOfBirth *time.Time, d *model.LearningDelivery) bool {
	return r.FundModelConditionMet(d.FundModel) &&
		r.DateOfBirthConditionMet(dateOfBirth, d.LearnStartDate) &&
		r.FAMConditionMet(d.LearningDeliveryFAMs)
}

// FundModelConditionMet is true for community learning
func (r *DateOfBirth12) FundModelConditionMet(fundModel int) bool {
	return fundModel == FundModelCommunityLearning
}

// DateOfBirthConditionMet is true when a known date of birth makes the learner under 19 at start
func (r *DateOfBirth12) DateOfBirthConditionMet(dateOfBirth *time.Time, learnStartDate time.Time) bool {
	return dateOfBirth != nil && derived.YearsBetween(*dateOfBirth, learnStartDate) < 19
}

// FAMConditionMet is true when an ASL FAM of code 1 or 2 is present
func (r *DateOfBirth12) FAMConditionMet(fams []*model.LearningDeliveryFAM) bool {
	return model.HasFAMCode(fams, "ASL", "1", "2")
}

// DateOfBirth48 rejects a framework apprenticeship whose programme started
// before the last Friday in June of the academic year the learner turned 16
type DateOfBirth48 struct {
	reporter rules.Reporter
}

// NewDateOfBirth48 creates the DateOfBirth_48 rule
func NewDateOfBirth48() *DateOfBirth48 {
	return &DateOfBirth48{reporter: rules.NewReporter("DateOfBirth_48")}
}

// Name returns the rule name
func (r *DateOfBirth48) Name() string { return r.reporter.Name() }

// Validate checks each delivery of the learner
func (r *DateOfBirth48) Validate(learner *model.Learner, h rules.ErrorHandler) error {
	if learner == nil {
		return rules.ErrNilLearner
	}
	if !r.LearnerConditionMet(learner.DateOfBirth) {
		return nil
	}
	lastFriday := r.LastFridayInJuneAged16(*learner.DateOfBirth)
	for _, d := range learner.LearningDeliveries {
		if d == nil {
			continue
		}
		if r.ConditionMet(d.ProgType, derived.DD04(learner.LearningDeliveries, d), lastFriday) {
			r.reporter.RaiseForDelivery(h, learner, d,
				rules.F("DateOfBirth", learner.DateOfBirth),
				rules.F("LearnStartDate", d.LearnStartDate),
			)
		}
	}
	return nil
}

// LearnerConditionMet is true when a date of birth is returned
func (r *DateOfBirth48) LearnerConditionMet(dateOfBirth *time.Time) bool {
	return dateOfBirth != nil
}

// LastFridayInJuneAged16 returns the last Friday in June of the academic year
// holding the learner's 16th birthday
func (r *DateOfBirth48) LastFridayInJuneAged16(dateOfBirth time.Time) time.Time {
	return lookup.AcademicYearFor(dateOfBirth.AddDate(16, 0, 0)).LastFridayInJune()
}

// ConditionMet combines the individual conditions
func (r *DateOfBirth48) ConditionMet(progType *int, dd04 *time.Time, lastFridayInJune time.Time) bool {
	return r.DD07ConditionMet(progType) && r.DD04ConditionMet(dd04, lastFridayInJune)
}

// DD07ConditionMet is true for apprenticeships
func (r *DateOfBirth48) DD07ConditionMet(progType *int) bool {
	return derived.DD07(progType)
}

// DD04ConditionMet is true when the programme started before the date
func (r *DateOfBirth48) DD04ConditionMet(dd04 *time.Time, lastFridayInJune time.Time) bool {
	return dd04 != nil && dd04.Before(lastFridayInJune)
}

// ULN03 rejects the temporary ULN on funded learning once a file is prepared
// on or after 1 January of the collection year
type ULN03 struct {
	reporter rules.Reporter
	lookups  lookup.Details
	file     *filecache.Cache
}

// NewULN03 creates the ULN_03 rule
func NewULN03(lookups lookup.Details, file *filecache.Cache) *ULN03 {
	return &ULN03{reporter: rules.NewReporter("ULN_03"), lookups: lookups, file: file}
}

// Name returns the rule name
func (r *ULN03) Name() string { return r.reporter.Name() }

// Validate checks the learner, raising at most once
func (r *ULN03) Validate(learner *model.Learner, h rules.ErrorHandler) error {
	if learner == nil {
		return rules.ErrNilLearner
	}
	prepared := r.file.FilePreparationDate()
	if !r.ULNConditionMet(learner.ULN) || !r.FilePreparationDateConditionMet(prepared, r.lookups.AcademicYear()) {
		return nil
	}
	for _, d := range learner.LearningDeliveries {
		if d != nil && r.FundModelConditionMet(d.FundModel) {
			r.reporter.Raise(h, learner.LearnRefNumber, nil,
				rules.F("ULN", learner.ULN),
				rules.F("FilePreparationDate", prepared),
			)
			return nil
		}
	}
	return nil
}

// ULNConditionMet is true for the temporary ULN
func (r *ULN03) ULNConditionMet(uln int64) bool {
	return uln == TemporaryULN
}

// FilePreparationDateConditionMet is true from 1 January of the collection year
func (r *ULN03) FilePreparationDateConditionMet(prepared time.Time, year lookup.AcademicYear) bool {
	return !prepared.Before(year.JanuaryFirst())
}

// FundModelConditionMet is true for funded learning
func (r *ULN03) FundModelConditionMet(fundModel int) bool {
	return fundModel != FundModelCommunityLearning && fundModel != FundModelNonFunded
}

// TTACCOM02 requires a returned term time accommodation code to be valid on
// the learner's earliest learning start date
type TTACCOM02 struct {
	reporter rules.Reporter
	lookups  lookup.Details
}

// NewTTACCOM02 creates the TTACCOM_02 rule
func NewTTACCOM02(lookups lookup.Details) *TTACCOM02 {
	return &TTACCOM02{reporter: rules.NewReporter("TTACCOM_02"), lookups: lookups}
}

// Name returns the rule name
func (r *TTACCOM02) Name() string { return r.reporter.Name() }

// Validate checks the learner
func (r *TTACCOM02) Validate(learner *model.Learner, h rules.ErrorHandler) error {
	if learner == nil {
		return rules.ErrNilLearner
	}
	if learner.LearnerHE == nil || learner.LearnerHE.TTACCOM == nil {
		return nil
	}
	referenceDate := derived.DD06(learner.LearningDeliveries)
	if !r.ConditionMet(learner.LearnerHE.TTACCOM, referenceDate) {
		r.reporter.Raise(h, learner.LearnRefNumber, nil, rules.F("TTACCOM", learner.LearnerHE.TTACCOM))
	}
	return nil
}

// ConditionMet reports whether the code passes: absent codes always pass, and a
// returned code needs a reference date inside one of its validity windows.
//
// A learner with no deliveries has no reference date. The code then only has
// to exist in the lookup, whatever its windows. This deliberately departs from
// a strict date check, which could never pass without a date and would reject
// every such learner.
func (r *TTACCOM02) ConditionMet(ttaccom *int, referenceDate *time.Time) bool {
	if ttaccom == nil {
		return true
	}
	if referenceDate == nil {
		return r.lookups.HasCode(lookup.TTAccom, *ttaccom)
	}
	return r.lookups.IsCurrent(lookup.TTAccom, *ttaccom, *referenceDate)
}
