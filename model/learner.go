package model

import "time"

// Message is the parsed submission: a header plus the learners it carries
type Message struct {
	Header   Header     `json:"Header"`
	Learners []*Learner `json:"Learner"`
}

// Header carries the file-level metadata of a submission
type Header struct {
	UKPRN               int       `json:"UKPRN"`
	FilePreparationDate time.Time `json:"FilePreparationDate"`
}

// Learner is the primary record being validated
type Learner struct {
	LearnRefNumber     string              `json:"LearnRefNumber"`
	ULN                int64               `json:"ULN"`
	DateOfBirth        *time.Time          `json:"DateOfBirth,omitempty"`
	PrevUKPRN          *int                `json:"PrevUKPRN,omitempty"`
	ProvSpecLearnMonA  string              `json:"ProvSpecLearnMonA,omitempty"`
	ProvSpecLearnMonB  string              `json:"ProvSpecLearnMonB,omitempty"`
	LearnerHE          *LearnerHE          `json:"LearnerHE,omitempty"`
	LearningDeliveries []*LearningDelivery `json:"LearningDelivery"`
}

// LearnerHE holds the higher education entity of a learner
type LearnerHE struct {
	TTACCOM   *int   `json:"TTACCOM,omitempty"`
	UCASPERID string `json:"UCASPERID,omitempty"`
}

// LearningDelivery is a single learning aim recorded against a learner
type LearningDelivery struct {
	AimSeqNumber         int                    `json:"AimSeqNumber"`
	AimType              int                    `json:"AimType"`
	LearnAimRef          string                 `json:"LearnAimRef"`
	FundModel            int                    `json:"FundModel"`
	ProgType             *int                   `json:"ProgType,omitempty"`
	FworkCode            *int                   `json:"FworkCode,omitempty"`
	PwayCode             *int                   `json:"PwayCode,omitempty"`
	StdCode              *int                   `json:"StdCode,omitempty"`
	PartnerUKPRN         *int                   `json:"PartnerUKPRN,omitempty"`
	DelLocPostCode       string                 `json:"DelLocPostCode,omitempty"`
	AddHours             *int                   `json:"AddHours,omitempty"`
	CompStatus           int                    `json:"CompStatus"`
	LearnStartDate       time.Time              `json:"LearnStartDate"`
	LearnPlanEndDate     time.Time              `json:"LearnPlanEndDate"`
	LearnActEndDate      *time.Time             `json:"LearnActEndDate,omitempty"`
	Outcome              *int                   `json:"Outcome,omitempty"`
	SWSupAimID           string                 `json:"SWSupAimId,omitempty"`
	LearningDeliveryFAMs []*LearningDeliveryFAM `json:"LearningDeliveryFAM,omitempty"`
	AppFinRecords        []*AppFinRecord        `json:"AppFinRecord,omitempty"`
}

// LearningDeliveryFAM is a funding and monitoring entry of a delivery
type LearningDeliveryFAM struct {
	LearnDelFAMType     string     `json:"LearnDelFAMType"`
	LearnDelFAMCode     string     `json:"LearnDelFAMCode"`
	LearnDelFAMDateFrom *time.Time `json:"LearnDelFAMDateFrom,omitempty"`
	LearnDelFAMDateTo   *time.Time `json:"LearnDelFAMDateTo,omitempty"`
}

// AppFinRecord is an apprenticeship financial record of a delivery
type AppFinRecord struct {
	AFinType   string    `json:"AFinType"`
	AFinCode   int       `json:"AFinCode"`
	AFinDate   time.Time `json:"AFinDate"`
	AFinAmount int       `json:"AFinAmount"`
}

// HasFAMCode reports whether any of the entries has the given type and one of the codes
func HasFAMCode(fams []*LearningDeliveryFAM, famType string, codes ...string) bool {
	for _, fam := range fams {
		if fam == nil || fam.LearnDelFAMType != famType {
			continue
		}
		for _, code := range codes {
			if fam.LearnDelFAMCode == code {
				return true
			}
		}
	}
	return false
}
