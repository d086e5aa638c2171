package lookup

import "fmt"

// SimpleKey names a time-unbounded integer domain
type SimpleKey int

// CodedKey names a time-unbounded string domain
type CodedKey int

// TimeRestrictedKey names an integer domain whose codes are valid only inside windows
type TimeRestrictedKey int

const (
	AimTypes SimpleKey = iota + 1
	CompStatuses
	EmpOutcomes
	FundModels
	ProgTypes
	OutGrades
)

const (
	QUALENT3s CodedKey = iota + 1
	LearnDelFAMTypes
	AFinTypes
)

const (
	TTAccom TimeRestrictedKey = iota + 1
	LLDDCat
)

var simpleKeyNames = map[SimpleKey]string{
	AimTypes:     "AimType",
	CompStatuses: "CompStatus",
	EmpOutcomes:  "EmpOutcome",
	FundModels:   "FundModel",
	ProgTypes:    "ProgType",
	OutGrades:    "Outcome",
}

var codedKeyNames = map[CodedKey]string{
	QUALENT3s:        "QUALENT3",
	LearnDelFAMTypes: "LearnDelFAMType",
	AFinTypes:        "AFinType",
}

var timeRestrictedKeyNames = map[TimeRestrictedKey]string{
	TTAccom: "TTAccom",
	LLDDCat: "LLDDCat",
}

func (k SimpleKey) String() string {
	if name, ok := simpleKeyNames[k]; ok {
		return name
	}
	return fmt.Sprintf("SimpleKey(%d)", int(k))
}

func (k CodedKey) String() string {
	if name, ok := codedKeyNames[k]; ok {
		return name
	}
	return fmt.Sprintf("CodedKey(%d)", int(k))
}

func (k TimeRestrictedKey) String() string {
	if name, ok := timeRestrictedKeyNames[k]; ok {
		return name
	}
	return fmt.Sprintf("TimeRestrictedKey(%d)", int(k))
}

// AllSimpleKeys returns every declared simple key
func AllSimpleKeys() []SimpleKey {
	return []SimpleKey{AimTypes, CompStatuses, EmpOutcomes, FundModels, ProgTypes, OutGrades}
}

// AllCodedKeys returns every declared coded key
func AllCodedKeys() []CodedKey {
	return []CodedKey{QUALENT3s, LearnDelFAMTypes, AFinTypes}
}

// AllTimeRestrictedKeys returns every declared time restricted key
func AllTimeRestrictedKeys() []TimeRestrictedKey {
	return []TimeRestrictedKey{TTAccom, LLDDCat}
}

// ParseSimpleKey resolves a simple key from its name
func ParseSimpleKey(name string) (SimpleKey, error) {
	for k, n := range simpleKeyNames {
		if n == name {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown simple lookup %q", name)
}

// ParseCodedKey resolves a coded key from its name
func ParseCodedKey(name string) (CodedKey, error) {
	for k, n := range codedKeyNames {
		if n == name {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown coded lookup %q", name)
}

// ParseTimeRestrictedKey resolves a time restricted key from its name
func ParseTimeRestrictedKey(name string) (TimeRestrictedKey, error) {
	for k, n := range timeRestrictedKeyNames {
		if n == name {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown time restricted lookup %q", name)
}
