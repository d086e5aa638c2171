package ruleset

import (
	"time"

	"github.com/liamcoop/ilrvalidation/filecache"
	"github.com/liamcoop/ilrvalidation/lookup"
	"github.com/liamcoop/ilrvalidation/model"
	"github.com/liamcoop/ilrvalidation/rules"
	"github.com/liamcoop/ilrvalidation/rules/derived"
)

// AddHours01 rejects additional delivery hours on funded aims that started
// before August 2015
type AddHours01 struct {
	reporter rules.Reporter
}

// AddHours01Cutoff is the start date from which additional hours may be returned
var AddHours01Cutoff = time.Date(2015, time.August, 1, 0, 0, 0, 0, time.UTC)

// NewAddHours01 creates the AddHours_01 rule
func NewAddHours01() *AddHours01 {
	return &AddHours01{reporter: rules.NewReporter("AddHours_01")}
}

// Name returns the rule name
func (r *AddHours01) Name() string { return r.reporter.Name() }

// Validate checks each delivery of the learner
func (r *AddHours01) Validate(learner *model.Learner, h rules.ErrorHandler) error {
	if learner == nil {
		return rules.ErrNilLearner
	}
	for _, d := range learner.LearningDeliveries {
		if d != nil && r.ConditionMet(d.FundModel, d.AddHours, d.LearnStartDate) {
			r.reporter.RaiseForDelivery(h, learner, d,
				rules.F("LearnStartDate", d.LearnStartDate),
				rules.F("FundModel", d.FundModel),
				rules.F("AddHours", d.AddHours),
			)
		}
	}
	return nil
}

// ConditionMet combines the individual conditions
func (r *AddHours01) ConditionMet(fundModel int, addHours *int, learnStartDate time.Time) bool {
	return r.FundModelConditionMet(fundModel) &&
		r.AddHoursConditionMet(addHours) &&
		r.LearnStartDateConditionMet(learnStartDate)
}

// FundModelConditionMet is true for adult skills, apprenticeship and other adult funding
func (r *AddHours01) FundModelConditionMet(fundModel int) bool {
	switch fundModel {
	case FundModelAdultSkills, FundModelApprenticeships, FundModelOtherAdult:
		return true
	}
	return false
}

// AddHoursConditionMet is true when hours are returned
func (r *AddHours01) AddHoursConditionMet(addHours *int) bool {
	return addHours != nil
}

// LearnStartDateConditionMet is true before the cutoff
func (r *AddHours01) LearnStartDateConditionMet(learnStartDate time.Time) bool {
	return learnStartDate.Before(AddHours01Cutoff)
}

// AFinType13 requires an apprenticeship programme aim to carry a total
// negotiated price record dated on the aim's start date
type AFinType13 struct {
	reporter rules.Reporter
}

// AFinTypeTotalNegotiatedPrice is the financial record type of a total negotiated price
const AFinTypeTotalNegotiatedPrice = "TNP"

// NewAFinType13 creates the AFinType_13 rule
func NewAFinType13() *AFinType13 {
	return &AFinType13{reporter: rules.NewReporter("AFinType_13")}
}

// Name returns the rule name
func (r *AFinType13) Name() string { return r.reporter.Name() }

// Validate checks each apprenticeship programme aim of the learner. Violations
// are learner level and carry no aim sequence number.
func (r *AFinType13) Validate(learner *model.Learner, h rules.ErrorHandler) error {
	if learner == nil {
		return rules.ErrNilLearner
	}
	for _, d := range learner.LearningDeliveries {
		if d == nil || !r.InScope(d) || r.HasMatchingPrice(d) {
			continue
		}
		r.reporter.Raise(h, learner.LearnRefNumber, nil,
			rules.F("AFinType", AFinTypeTotalNegotiatedPrice),
			rules.F("LearnStartDate", d.LearnStartDate),
		)
	}
	return nil
}

// InScope is true for apprenticeship funded programme aims
func (r *AFinType13) InScope(d *model.LearningDelivery) bool {
	return d.AimType == AimTypeProgramme && d.FundModel == FundModelApprenticeships
}

// HasMatchingPrice reports whether any TNP record satisfies ConditionMet
func (r *AFinType13) HasMatchingPrice(d *model.LearningDelivery) bool {
	for _, rec := range d.AppFinRecords {
		if rec != nil && rec.AFinType == AFinTypeTotalNegotiatedPrice && r.ConditionMet(d, rec) {
			return true
		}
	}
	return false
}

// ConditionMet is true when the record is dated on the delivery's start day.
// A missing delivery passes; a missing record or record date does not.
func (r *AFinType13) ConditionMet(d *model.LearningDelivery, rec *model.AppFinRecord) bool {
	if d == nil {
		return true
	}
	if rec == nil || rec.AFinDate.IsZero() {
		return false
	}
	return sameDay(d.LearnStartDate, rec.AFinDate)
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// CompStatus01 requires every completion status to be a known code
type CompStatus01 struct {
	reporter rules.Reporter
	lookups  lookup.Details
}

// NewCompStatus01 creates the CompStatus_01 rule
func NewCompStatus01(lookups lookup.Details) *CompStatus01 {
	return &CompStatus01{reporter: rules.NewReporter("CompStatus_01"), lookups: lookups}
}

// Name returns the rule name
func (r *CompStatus01) Name() string { return r.reporter.Name() }

// Validate checks each delivery of the learner
func (r *CompStatus01) Validate(learner *model.Learner, h rules.ErrorHandler) error {
	if learner == nil {
		return rules.ErrNilLearner
	}
	for _, d := range learner.LearningDeliveries {
		if d != nil && r.ConditionMet(d.CompStatus) {
			r.reporter.RaiseForDelivery(h, learner, d, rules.F("CompStatus", d.CompStatus))
		}
	}
	return nil
}

// ConditionMet is true when the code is not in the CompStatus lookup
func (r *CompStatus01) ConditionMet(compStatus int) bool {
	return !r.lookups.Contains(lookup.CompStatuses, compStatus)
}

// FundModel09 rejects standard apprenticeship programme aims starting before
// 1 May 2017 unless funded as other adult, or unfunded apprenticeships
type FundModel09 struct {
	reporter rules.Reporter
}

// FundModel09Cutoff is the start date from which the rule no longer applies
var FundModel09Cutoff = time.Date(2017, time.May, 1, 0, 0, 0, 0, time.UTC)

// NewFundModel09 creates the FundModel_09 rule
func NewFundModel09() *FundModel09 {
	return &FundModel09{reporter: rules.NewReporter("FundModel_09")}
}

// Name returns the rule name
func (r *FundModel09) Name() string { return r.reporter.Name() }

// Validate checks each delivery of the learner
func (r *FundModel09) Validate(learner *model.Learner, h rules.ErrorHandler) error {
	if learner == nil {
		return rules.ErrNilLearner
	}
	for _, d := range learner.LearningDeliveries {
		if d != nil && r.ConditionMet(d.AimType, d.FundModel, d.LearnStartDate, d.ProgType) {
			r.reporter.RaiseForDelivery(h, learner, d, rules.F("FundModel", d.FundModel))
		}
	}
	return nil
}

// ConditionMet combines the individual conditions
func (r *FundModel09) ConditionMet(aimType, fundModel int, learnStartDate time.Time, progType *int) bool {
	return r.AimTypeConditionMet(aimType) &&
		r.FundModelConditionMet(fundModel) &&
		r.LearnStartDateConditionMet(learnStartDate) &&
		r.ProgTypeConditionMet(progType) &&
		r.ApprenticeshipConditionMet(fundModel, progType)
}

// AimTypeConditionMet is true for programme aims
func (r *FundModel09) AimTypeConditionMet(aimType int) bool {
	return aimType == AimTypeProgramme
}

// FundModelConditionMet is true for any funding other than other adult
func (r *FundModel09) FundModelConditionMet(fundModel int) bool {
	return fundModel != FundModelOtherAdult
}

// LearnStartDateConditionMet is true before the cutoff
func (r *FundModel09) LearnStartDateConditionMet(learnStartDate time.Time) bool {
	return learnStartDate.Before(FundModel09Cutoff)
}

// ProgTypeConditionMet is true for apprenticeship standards
func (r *FundModel09) ProgTypeConditionMet(progType *int) bool {
	return progType != nil && *progType == ProgTypeStandard
}

// ApprenticeshipConditionMet excludes unfunded apprenticeships
func (r *FundModel09) ApprenticeshipConditionMet(fundModel int, progType *int) bool {
	return !(fundModel == FundModelNonFunded && derived.DD07(progType))
}

// LearnActEndDate04 rejects an actual end date after the file preparation date
type LearnActEndDate04 struct {
	reporter rules.Reporter
	file     *filecache.Cache
}

// NewLearnActEndDate04 creates the LearnActEndDate_04 rule
func NewLearnActEndDate04(file *filecache.Cache) *LearnActEndDate04 {
	return &LearnActEndDate04{reporter: rules.NewReporter("LearnActEndDate_04"), file: file}
}

// Name returns the rule name
func (r *LearnActEndDate04) Name() string { return r.reporter.Name() }

// Validate checks each delivery of the learner
func (r *LearnActEndDate04) Validate(learner *model.Learner, h rules.ErrorHandler) error {
	if learner == nil {
		return rules.ErrNilLearner
	}
	prepared := r.file.FilePreparationDate()
	for _, d := range learner.LearningDeliveries {
		if d != nil && r.ConditionMet(d.LearnActEndDate, prepared) {
			r.reporter.RaiseForDelivery(h, learner, d, rules.F("LearnActEndDate", d.LearnActEndDate))
		}
	}
	return nil
}

// ConditionMet is true when a returned end date falls on a later day than the file was prepared
func (r *LearnActEndDate04) ConditionMet(learnActEndDate *time.Time, filePreparationDate time.Time) bool {
	return learnActEndDate != nil && derived.DaysBetween(filePreparationDate, *learnActEndDate) > 0
}

// ProgType02 forbids a programme type on aims that are not part of a programme
type ProgType02 struct {
	reporter rules.Reporter
}

// NewProgType02 creates the ProgType_02 rule
func NewProgType02() *ProgType02 {
	return &ProgType02{reporter: rules.NewReporter("ProgType_02")}
}

// Name returns the rule name
func (r *ProgType02) Name() string { return r.reporter.Name() }

// Validate checks each delivery of the learner
func (r *ProgType02) Validate(learner *model.Learner, h rules.ErrorHandler) error {
	if learner == nil {
		return rules.ErrNilLearner
	}
	for _, d := range learner.LearningDeliveries {
		if d != nil && r.ConditionMet(d.AimType, d.ProgType) {
			r.reporter.RaiseForDelivery(h, learner, d,
				rules.F("AimType", d.AimType),
				rules.F("ProgType", d.ProgType),
			)
		}
	}
	return nil
}

// ConditionMet is true when a standalone aim returns a programme type
func (r *ProgType02) ConditionMet(aimType int, progType *int) bool {
	return aimType == AimTypeNotProgramme && progType != nil
}
