package external

import (
	"context"
	"time"
)

// LARSLearningDelivery is the learning aim reference data for one aim reference
type LARSLearningDelivery struct {
	LearnAimRef              string     `json:"learnAimRef" yaml:"learn_aim_ref"`
	LearnAimRefType          string     `json:"learnAimRefType" yaml:"learn_aim_ref_type"`
	NotionalNVQLevel         string     `json:"notionalNVQLevel,omitempty" yaml:"notional_nvq_level"`
	FrameworkCommonComponent *int       `json:"frameworkCommonComponent,omitempty" yaml:"framework_common_component"`
	EffectiveFrom            time.Time  `json:"effectiveFrom" yaml:"effective_from"`
	EffectiveTo              *time.Time `json:"effectiveTo,omitempty" yaml:"effective_to"`
}

// Framework is an apprenticeship framework and the aims it includes
type Framework struct {
	FworkCode     int            `json:"fworkCode" yaml:"fwork_code"`
	ProgType      int            `json:"progType" yaml:"prog_type"`
	PwayCode      int            `json:"pwayCode" yaml:"pway_code"`
	EffectiveFrom time.Time      `json:"effectiveFrom" yaml:"effective_from"`
	EffectiveTo   *time.Time     `json:"effectiveTo,omitempty" yaml:"effective_to"`
	Aims          []FrameworkAim `json:"aims,omitempty" yaml:"aims"`
}

// FrameworkAim is a learning aim that belongs to a framework
type FrameworkAim struct {
	LearnAimRef            string `json:"learnAimRef" yaml:"learn_aim_ref"`
	FrameworkComponentType *int   `json:"frameworkComponentType,omitempty" yaml:"framework_component_type"`
}

// Postcode is a known postcode
type Postcode struct {
	Postcode string `json:"postcode" yaml:"postcode"`
}

// Organisation is a registered provider organisation
type Organisation struct {
	UKPRN        int    `json:"ukprn" yaml:"ukprn"`
	LegalOrgType string `json:"legalOrgType,omitempty" yaml:"legal_org_type"`
	PartnerUKPRN bool   `json:"partnerUKPRN" yaml:"partner_ukprn"`
}

// Retriever fetches one reference data collection
type Retriever[T any] interface {
	Retrieve(ctx context.Context) ([]T, error)
}

// RetrieverFunc adapts a function to Retriever
type RetrieverFunc[T any] func(ctx context.Context) ([]T, error)

// Retrieve calls f
func (f RetrieverFunc[T]) Retrieve(ctx context.Context) ([]T, error) {
	return f(ctx)
}

// Sources groups the five retrieval collaborators of the external cache
type Sources struct {
	LearningDeliveries Retriever[LARSLearningDelivery]
	Frameworks         Retriever[Framework]
	ULNs               Retriever[int64]
	Postcodes          Retriever[Postcode]
	Organisations      Retriever[Organisation]
}

// Data is the plain content of an external cache
type Data struct {
	LearningDeliveries []LARSLearningDelivery `json:"learningDeliveries" yaml:"learning_deliveries"`
	Frameworks         []Framework            `json:"frameworks" yaml:"frameworks"`
	ULNs               []int64                `json:"ulns" yaml:"ulns"`
	Postcodes          []Postcode             `json:"postcodes" yaml:"postcodes"`
	Organisations      []Organisation         `json:"organisations" yaml:"organisations"`
}

// StaticSources serves the collections of d as retrievers
func StaticSources(d Data) Sources {
	return Sources{
		LearningDeliveries: static(d.LearningDeliveries),
		Frameworks:         static(d.Frameworks),
		ULNs:               static(d.ULNs),
		Postcodes:          static(d.Postcodes),
		Organisations:      static(d.Organisations),
	}
}

func static[T any](items []T) Retriever[T] {
	return RetrieverFunc[T](func(ctx context.Context) ([]T, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return items, nil
	})
}
