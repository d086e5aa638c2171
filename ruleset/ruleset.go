// Package ruleset holds the Go-coded validation rules and assembles them into a catalog.
//
// Every rule is stateless once constructed: its collaborators are injected
// through the constructor and it reports violations through the handler it is
// given on each call. Conditions are exposed as separate methods so they can be
// tested on their own.
package ruleset

import (
	"fmt"

	"github.com/liamcoop/ilrvalidation/external"
	"github.com/liamcoop/ilrvalidation/filecache"
	"github.com/liamcoop/ilrvalidation/lookup"
	"github.com/liamcoop/ilrvalidation/rules"
)

// Funding model codes referenced by the rules
const (
	FundModelCommunityLearning = 10
	FundModelAdultSkills       = 35
	FundModelApprenticeships   = 36
	FundModelOtherAdult        = 81
	FundModelNonFunded         = 99
)

// Aim type codes referenced by the rules
const (
	AimTypeProgramme    = 1
	AimTypeComponent    = 3
	AimTypeNotProgramme = 4
)

// ProgTypeStandard is the programme type of an apprenticeship standard
const ProgTypeStandard = 25

// TemporaryULN is returned for a learner whose ULN is not yet known
const TemporaryULN int64 = 9999999999

// Dependencies are the collaborators the rules are constructed with
type Dependencies struct {
	Lookups  lookup.Details
	External *external.Cache
	File     *filecache.Cache
}

func (d Dependencies) validate() error {
	if d.Lookups == nil {
		return fmt.Errorf("lookup details are required")
	}
	if d.External == nil {
		return fmt.Errorf("external reference data is required")
	}
	if d.File == nil {
		return fmt.Errorf("file data is required")
	}
	return nil
}

// Rules constructs every Go-coded rule in catalog order
func Rules(deps Dependencies) ([]rules.Rule, error) {
	if err := deps.validate(); err != nil {
		return nil, fmt.Errorf("invalid rule dependencies: %w", err)
	}
	return newRules(deps), nil
}

// Names lists the Go-coded rule names in catalog order
func Names() []string {
	coded := newRules(Dependencies{})
	names := make([]string, len(coded))
	for i, r := range coded {
		names[i] = r.Name()
	}
	return names
}

func newRules(deps Dependencies) []rules.Rule {
	return []rules.Rule{
		NewAddHours01(),
		NewAFinType13(),
		NewCompStatus01(deps.Lookups),
		NewDateOfBirth12(),
		NewDateOfBirth48(),
		NewDelLocPostCode03(deps.External),
		NewFundModel09(),
		NewFworkCode05(deps.External),
		NewLearnActEndDate04(deps.File),
		NewLearnAimRef01(deps.External),
		NewLearnStartDate06(deps.External),
		NewPartnerUKPRN01(deps.External),
		NewProgType02(),
		NewTTACCOM02(deps.Lookups),
		NewULN03(deps.Lookups, deps.File),
		NewULN05(deps.External),
	}
}

// NewCatalog builds the catalog for version from the Go-coded rules followed by extra
func NewCatalog(version string, deps Dependencies, extra ...rules.Rule) (*rules.Catalog, error) {
	coded, err := Rules(deps)
	if err != nil {
		return nil, err
	}
	return rules.NewCatalog(version, append(coded, extra...)...)
}
