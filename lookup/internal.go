package lookup

import (
	_ "embed"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed tables.yaml
var bundledTables []byte

type periodEntry struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

type tablesFile struct {
	AcademicYear struct {
		Start string `yaml:"start"`
		End   string `yaml:"end"`
	} `yaml:"academic_year"`
	Simple         map[string][]int                  `yaml:"simple"`
	Coded          map[string][]string               `yaml:"coded"`
	TimeRestricted map[string]map[int][]periodEntry `yaml:"time_restricted"`
}

// InternalFactory builds the internal cache from static reference tables.
// Tables defaults to the tables bundled with the engine.
type InternalFactory struct {
	Tables []byte
}

// Create parses the tables and returns a frozen cache
func (f InternalFactory) Create() (*Cache, error) {
	data := f.Tables
	if data == nil {
		data = bundledTables
	}
	return ParseTables(data)
}

// NewInternalProvider returns a provider over the bundled reference tables
func NewInternalProvider() *Provider {
	return NewProvider(InternalFactory{})
}

// ParseTables builds a frozen cache from a YAML tables document
func ParseTables(data []byte) (*Cache, error) {
	var tf tablesFile
	if err := yaml.Unmarshal(data, &tf); err != nil {
		return nil, fmt.Errorf("failed to parse lookup tables: %w", err)
	}

	cache := NewCache()

	start, err := time.Parse(DateLayout, tf.AcademicYear.Start)
	if err != nil {
		return nil, fmt.Errorf("invalid academic year start: %w", err)
	}
	end, err := time.Parse(DateLayout, tf.AcademicYear.End)
	if err != nil {
		return nil, fmt.Errorf("invalid academic year end: %w", err)
	}
	if err := cache.SetAcademicYear(AcademicYear{Start: start, End: end}); err != nil {
		return nil, err
	}

	for name, values := range tf.Simple {
		key, err := ParseSimpleKey(name)
		if err != nil {
			return nil, err
		}
		if err := cache.SetSimple(key, values...); err != nil {
			return nil, err
		}
	}

	for name, values := range tf.Coded {
		key, err := ParseCodedKey(name)
		if err != nil {
			return nil, err
		}
		if err := cache.SetCoded(key, values...); err != nil {
			return nil, err
		}
	}

	for name, codes := range tf.TimeRestricted {
		key, err := ParseTimeRestrictedKey(name)
		if err != nil {
			return nil, err
		}
		if err := cache.DeclareTimeRestricted(key); err != nil {
			return nil, err
		}
		for code, entries := range codes {
			for _, entry := range entries {
				period, err := NewValidityPeriod(entry.From, entry.To)
				if err != nil {
					return nil, fmt.Errorf("%s code %d: %w", name, code, err)
				}
				if err := cache.AddPeriod(key, code, period); err != nil {
					return nil, err
				}
			}
		}
	}

	return cache.Freeze(), nil
}
