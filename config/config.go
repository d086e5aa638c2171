// Package config loads the service and CLI configuration.
//
// Configuration is read from a YAML file, completed with defaults, overridden
// from ILRV_* environment variables and validated, in that order.
package config

import (
	"fmt"
	"time"

	"github.com/liamcoop/ilrvalidation/rules"
)

// Config is the root configuration
type Config struct {
	Server     ServerConfig      `yaml:"server"`
	Database   DatabaseConfig    `yaml:"database"`
	Engine     EngineConfig      `yaml:"engine"`
	Severities map[string]string `yaml:"severities"`
	Reference  ReferenceConfig   `yaml:"reference"`
	Catalog    CatalogConfig     `yaml:"catalog"`
	Dispatch   DispatchConfig    `yaml:"dispatch"`
}

// ServerConfig configures the HTTP service
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// DatabaseConfig locates the reference data and expression rule database.
// An empty URL runs without a database.
type DatabaseConfig struct {
	URL string `yaml:"url"`
}

// EngineConfig bounds validation runs
type EngineConfig struct {
	MaxConcurrency   int           `yaml:"max_concurrency"`
	ReportRuleFaults bool          `yaml:"report_rule_faults"`
	RunTimeout       time.Duration `yaml:"run_timeout"`
}

// ReferenceConfig points at a YAML reference data file used when there is no database
type ReferenceConfig struct {
	FilePath string `yaml:"file_path"`
}

// CatalogConfig names the catalog versions to load
type CatalogConfig struct {
	DefaultVersion string   `yaml:"default_version"`
	Versions       []string `yaml:"versions"`
}

// DispatchConfig configures distributing a run across workers.
// With no worker URLs the run is split across in-process workers.
type DispatchConfig struct {
	ChunkSize     int           `yaml:"chunk_size"`
	MaxInFlight   int           `yaml:"max_in_flight"`
	WorkerURLs    []string      `yaml:"worker_urls"`
	WorkerTimeout time.Duration `yaml:"worker_timeout"`
}

// RulesEngineConfig converts the engine section for rules.NewEngine
func (c *Config) RulesEngineConfig() rules.EngineConfig {
	return rules.EngineConfig{
		MaxConcurrency:   c.Engine.MaxConcurrency,
		ReportRuleFaults: c.Engine.ReportRuleFaults,
	}
}

// SeverityMap parses the severities section
func (c *Config) SeverityMap() (rules.SeverityMap, error) {
	out := make(rules.SeverityMap, len(c.Severities))
	for name, value := range c.Severities {
		s, err := rules.ParseSeverity(value)
		if err != nil {
			return nil, fmt.Errorf("severity of %s: %w", name, err)
		}
		out[name] = s
	}
	return out, nil
}

// CatalogVersions returns the versions to load, always including the default
func (c *Config) CatalogVersions() []string {
	out := []string{c.Catalog.DefaultVersion}
	for _, v := range c.Catalog.Versions {
		if v != c.Catalog.DefaultVersion {
			out = append(out, v)
		}
	}
	return out
}
