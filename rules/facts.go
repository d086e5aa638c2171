package rules

import (
	"time"

	"github.com/liamcoop/ilrvalidation/model"
)

// LearnerFacts flattens a learner into the map an expression sees as `learner`.
// Absent optional fields are left out, so expressions test them with has().
func LearnerFacts(l *model.Learner) map[string]any {
	facts := map[string]any{
		"LearnRefNumber": l.LearnRefNumber,
		"ULN":            l.ULN,
	}
	putTime(facts, "DateOfBirth", l.DateOfBirth)
	putInt(facts, "PrevUKPRN", l.PrevUKPRN)
	putString(facts, "ProvSpecLearnMonA", l.ProvSpecLearnMonA)
	putString(facts, "ProvSpecLearnMonB", l.ProvSpecLearnMonB)

	if l.LearnerHE != nil {
		he := map[string]any{}
		putInt(he, "TTACCOM", l.LearnerHE.TTACCOM)
		putString(he, "UCASPERID", l.LearnerHE.UCASPERID)
		facts["LearnerHE"] = he
	}

	deliveries := make([]any, 0, len(l.LearningDeliveries))
	var earliest *time.Time
	for _, d := range l.LearningDeliveries {
		if d == nil {
			continue
		}
		deliveries = append(deliveries, DeliveryFacts(d))
		if earliest == nil || d.LearnStartDate.Before(*earliest) {
			start := d.LearnStartDate
			earliest = &start
		}
	}
	facts["LearningDeliveries"] = deliveries
	putTime(facts, "EarliestLearnStartDate", earliest)
	return facts
}

// DeliveryFacts flattens a learning delivery into the map an expression sees as `delivery`
func DeliveryFacts(d *model.LearningDelivery) map[string]any {
	facts := map[string]any{
		"AimSeqNumber":     d.AimSeqNumber,
		"AimType":          d.AimType,
		"LearnAimRef":      d.LearnAimRef,
		"FundModel":        d.FundModel,
		"CompStatus":       d.CompStatus,
		"LearnStartDate":   d.LearnStartDate,
		"LearnPlanEndDate": d.LearnPlanEndDate,
	}
	putInt(facts, "ProgType", d.ProgType)
	putInt(facts, "FworkCode", d.FworkCode)
	putInt(facts, "PwayCode", d.PwayCode)
	putInt(facts, "StdCode", d.StdCode)
	putInt(facts, "PartnerUKPRN", d.PartnerUKPRN)
	putInt(facts, "AddHours", d.AddHours)
	putInt(facts, "Outcome", d.Outcome)
	putTime(facts, "LearnActEndDate", d.LearnActEndDate)
	putString(facts, "DelLocPostCode", d.DelLocPostCode)
	putString(facts, "SWSupAimID", d.SWSupAimID)

	fams := make([]any, 0, len(d.LearningDeliveryFAMs))
	for _, f := range d.LearningDeliveryFAMs {
		if f == nil {
			continue
		}
		fam := map[string]any{
			"LearnDelFAMType": f.LearnDelFAMType,
			"LearnDelFAMCode": f.LearnDelFAMCode,
		}
		putTime(fam, "LearnDelFAMDateFrom", f.LearnDelFAMDateFrom)
		putTime(fam, "LearnDelFAMDateTo", f.LearnDelFAMDateTo)
		fams = append(fams, fam)
	}
	facts["LearningDeliveryFAMs"] = fams

	fin := make([]any, 0, len(d.AppFinRecords))
	for _, r := range d.AppFinRecords {
		if r == nil {
			continue
		}
		fin = append(fin, map[string]any{
			"AFinType":   r.AFinType,
			"AFinCode":   r.AFinCode,
			"AFinDate":   r.AFinDate,
			"AFinAmount": r.AFinAmount,
		})
	}
	facts["AppFinRecords"] = fin
	return facts
}

func putInt(m map[string]any, key string, v *int) {
	if v != nil {
		m[key] = *v
	}
}

func putTime(m map[string]any, key string, v *time.Time) {
	if v != nil {
		m[key] = *v
	}
}

func putString(m map[string]any, key, v string) {
	if v != "" {
		m[key] = v
	}
}
