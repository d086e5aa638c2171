package ruleset

import (
	"strings"
	"time"

	"github.com/liamcoop/ilrvalidation/external"
	"github.com/liamcoop/ilrvalidation/model"
	"github.com/liamcoop/ilrvalidation/rules"
	"github.com/liamcoop/ilrvalidation/rules/derived"
)

// LearnAimRef01 requires every learning aim reference to exist in LARS
type LearnAimRef01 struct {
	reporter rules.Reporter
	external *external.Cache
}

// NewLearnAimRef01 creates the LearnAimRef_01 rule
func NewLearnAimRef01(ext *external.Cache) *LearnAimRef01 {
	return &LearnAimRef01{reporter: rules.NewReporter("LearnAimRef_01"), external: ext}
}

// Name returns the rule name
func (r *LearnAimRef01) Name() string { return r.reporter.Name() }

// Validate checks each delivery of the learner
func (r *LearnAimRef01) Validate(learner *model.Learner, h rules.ErrorHandler) error {
	if learner == nil {
		return rules.ErrNilLearner
	}
	for _, d := range learner.LearningDeliveries {
		if d != nil && r.ConditionMet(d.LearnAimRef) {
			r.reporter.RaiseForDelivery(h, learner, d, rules.F("LearnAimRef", d.LearnAimRef))
		}
	}
	return nil
}

// ConditionMet is true when LARS has no such aim
func (r *LearnAimRef01) ConditionMet(learnAimRef string) bool {
	_, ok := r.external.LearningDelivery(learnAimRef)
	return !ok
}

// PartnerUKPRN01 requires a returned partner UKPRN to be a known organisation
type PartnerUKPRN01 struct {
	reporter rules.Reporter
	external *external.Cache
}

// NewPartnerUKPRN01 creates the PartnerUKPRN_01 rule
func NewPartnerUKPRN01(ext *external.Cache) *PartnerUKPRN01 {
	return &PartnerUKPRN01{reporter: rules.NewReporter("PartnerUKPRN_01"), external: ext}
}

// Name returns the rule name
func (r *PartnerUKPRN01) Name() string { return r.reporter.Name() }

// Validate checks each delivery of the learner
func (r *PartnerUKPRN01) Validate(learner *model.Learner, h rules.ErrorHandler) error {
	if learner == nil {
		return rules.ErrNilLearner
	}
	for _, d := range learner.LearningDeliveries {
		if d != nil && r.ConditionMet(d.PartnerUKPRN) {
			r.reporter.RaiseForDelivery(h, learner, d, rules.F("PartnerUKPRN", d.PartnerUKPRN))
		}
	}
	return nil
}

// ConditionMet is true when a returned partner is not in the organisations data
func (r *PartnerUKPRN01) ConditionMet(partnerUKPRN *int) bool {
	if partnerUKPRN == nil {
		return false
	}
	_, ok := r.external.Organisation(*partnerUKPRN)
	return !ok
}

// DelLocPostCode03 requires a returned delivery location postcode to be known
type DelLocPostCode03 struct {
	reporter rules.Reporter
	external *external.Cache
}

// TemporaryPostcode is returned when the delivery location is not yet known
const TemporaryPostcode = "ZZ99 9ZZ"

// NewDelLocPostCode03 creates the DelLocPostCode_03 rule
func NewDelLocPostCode03(ext *external.Cache) *DelLocPostCode03 {
	return &DelLocPostCode03{reporter: rules.NewReporter("DelLocPostCode_03"), external: ext}
}

// Name returns the rule name
func (r *DelLocPostCode03) Name() string { return r.reporter.Name() }

// Validate checks each delivery of the learner
func (r *DelLocPostCode03) Validate(learner *model.Learner, h rules.ErrorHandler) error {
	if learner == nil {
		return rules.ErrNilLearner
	}
	for _, d := range learner.LearningDeliveries {
		if d != nil && r.ConditionMet(d.DelLocPostCode) {
			r.reporter.RaiseForDelivery(h, learner, d, rules.F("DelLocPostCode", d.DelLocPostCode))
		}
	}
	return nil
}

// ConditionMet is true when a returned, non-temporary postcode is not in the postcode data
func (r *DelLocPostCode03) ConditionMet(postcode string) bool {
	pc := strings.TrimSpace(postcode)
	if pc == "" || strings.EqualFold(pc, TemporaryPostcode) {
		return false
	}
	return !r.external.HasPostcode(pc)
}

// frameworkCodes returns the framework a component aim is delivered under
func frameworkCodes(d *model.LearningDelivery) (progType, fworkCode, pwayCode int, ok bool) {
	if d.AimType != AimTypeComponent || d.ProgType == nil || *d.ProgType == ProgTypeStandard ||
		d.FworkCode == nil || d.PwayCode == nil {
		return 0, 0, 0, false
	}
	return *d.ProgType, *d.FworkCode, *d.PwayCode, true
}

// FworkCode05 requires a framework component aim to belong to its framework
type FworkCode05 struct {
	reporter rules.Reporter
	external *external.Cache
}

// NewFworkCode05 creates the FworkCode_05 rule
func NewFworkCode05(ext *external.Cache) *FworkCode05 {
	return &FworkCode05{reporter: rules.NewReporter("FworkCode_05"), external: ext}
}

// Name returns the rule name
func (r *FworkCode05) Name() string { return r.reporter.Name() }

// Validate checks each delivery of the learner
func (r *FworkCode05) Validate(learner *model.Learner, h rules.ErrorHandler) error {
	if learner == nil {
		return rules.ErrNilLearner
	}
	for _, d := range learner.LearningDeliveries {
		if d != nil && r.ConditionMet(d) {
			r.reporter.RaiseForDelivery(h, learner, d,
				rules.F("LearnAimRef", d.LearnAimRef),
				rules.F("ProgType", d.ProgType),
				rules.F("FworkCode", d.FworkCode),
				rules.F("PwayCode", d.PwayCode),
			)
		}
	}
	return nil
}

// ConditionMet is true for a framework component aim missing from the framework's aims
func (r *FworkCode05) ConditionMet(d *model.LearningDelivery) bool {
	progType, fworkCode, pwayCode, ok := frameworkCodes(d)
	return ok && !r.external.FrameworkAimExists(d.LearnAimRef, progType, fworkCode, pwayCode)
}

// LearnStartDate06 rejects a framework component aim whose programme started
// after the framework closed
type LearnStartDate06 struct {
	reporter rules.Reporter
	external *external.Cache
}

// NewLearnStartDate06 creates the LearnStartDate_06 rule
func NewLearnStartDate06(ext *external.Cache) *LearnStartDate06 {
	return &LearnStartDate06{reporter: rules.NewReporter("LearnStartDate_06"), external: ext}
}

// Name returns the rule name
func (r *LearnStartDate06) Name() string { return r.reporter.Name() }

// Validate checks each delivery of the learner
func (r *LearnStartDate06) Validate(learner *model.Learner, h rules.ErrorHandler) error {
	if learner == nil {
		return rules.ErrNilLearner
	}
	for _, d := range learner.LearningDeliveries {
		if d == nil {
			continue
		}
		progType, fworkCode, pwayCode, ok := frameworkCodes(d)
		if !ok {
			continue
		}
		fw, ok := r.external.Framework(progType, fworkCode, pwayCode)
		if ok && r.ConditionMet(derived.DD04(learner.LearningDeliveries, d), fw.EffectiveTo) {
			r.reporter.RaiseForDelivery(h, learner, d,
				rules.F("LearnStartDate", d.LearnStartDate),
				rules.F("ProgType", d.ProgType),
				rules.F("FworkCode", d.FworkCode),
				rules.F("PwayCode", d.PwayCode),
			)
		}
	}
	return nil
}

// ConditionMet is true when the programme start falls after the framework's last day
func (r *LearnStartDate06) ConditionMet(dd04, effectiveTo *time.Time) bool {
	return dd04 != nil && effectiveTo != nil && derived.DaysBetween(*effectiveTo, *dd04) > 0
}

// ULN05 requires a returned ULN to be on the learner register.
// Zero means not returned; the temporary ULN is checked by ULN_03.
type ULN05 struct {
	reporter rules.Reporter
	external *external.Cache
}

// NewULN05 creates the ULN_05 rule
func NewULN05(ext *external.Cache) *ULN05 {
	return &ULN05{reporter: rules.NewReporter("ULN_05"), external: ext}
}

// Name returns the rule name
func (r *ULN05) Name() string { return r.reporter.Name() }

// Validate checks the learner
func (r *ULN05) Validate(learner *model.Learner, h rules.ErrorHandler) error {
	if learner == nil {
		return rules.ErrNilLearner
	}
	if r.ConditionMet(learner.ULN) {
		r.reporter.Raise(h, learner.LearnRefNumber, nil, rules.F("ULN", learner.ULN))
	}
	return nil
}

// ConditionMet is true for a returned ULN the register does not hold
func (r *ULN05) ConditionMet(uln int64) bool {
	return uln != 0 && uln != TemporaryULN && !r.external.HasULN(uln)
}
