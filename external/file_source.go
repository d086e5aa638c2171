package external

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadFile reads external reference data from a YAML document
func LoadFile(path string) (Data, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Data{}, fmt.Errorf("failed to read reference data %s: %w", path, err)
	}
	return ParseData(raw)
}

// ParseData decodes external reference data from YAML
func ParseData(raw []byte) (Data, error) {
	var d Data
	if err := yaml.Unmarshal(raw, &d); err != nil {
		return Data{}, fmt.Errorf("failed to parse reference data: %w", err)
	}
	return d, nil
}

// FileSources reads the reference data file at path and serves it as population sources
func FileSources(path string) (Sources, error) {
	d, err := LoadFile(path)
	if err != nil {
		return Sources{}, err
	}
	return StaticSources(d), nil
}
