package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Load reads the YAML file at path, applies defaults and validates the result.
// An empty path yields the defaults.
func Load(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
		}
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

// LoadWithEnvOverrides loads path and then applies ILRV_* environment overrides.
// Environment variables take precedence over the file.
func LoadWithEnvOverrides(path string) (*Config, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if val := os.Getenv("ILRV_SERVER_ADDR"); val != "" {
		cfg.Server.Addr = val
	}
	if val := os.Getenv("ILRV_SERVER_WRITE_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Server.WriteTimeout = d
		}
	}

	// DATABASE_URL is honoured for compatibility with the migrate tool
	if val := os.Getenv("DATABASE_URL"); val != "" {
		cfg.Database.URL = val
	}
	if val := os.Getenv("ILRV_DATABASE_URL"); val != "" {
		cfg.Database.URL = val
	}

	if val := os.Getenv("ILRV_ENGINE_MAX_CONCURRENCY"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Engine.MaxConcurrency = i
		}
	}
	if val := os.Getenv("ILRV_ENGINE_REPORT_RULE_FAULTS"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Engine.ReportRuleFaults = b
		}
	}
	if val := os.Getenv("ILRV_ENGINE_RUN_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Engine.RunTimeout = d
		}
	}

	if val := os.Getenv("ILRV_REFERENCE_FILE_PATH"); val != "" {
		cfg.Reference.FilePath = val
	}

	if val := os.Getenv("ILRV_CATALOG_DEFAULT_VERSION"); val != "" {
		cfg.Catalog.DefaultVersion = val
	}

	if val := os.Getenv("ILRV_DISPATCH_CHUNK_SIZE"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Dispatch.ChunkSize = i
		}
	}
	if val := os.Getenv("ILRV_DISPATCH_WORKER_URLS"); val != "" {
		var urls []string
		for _, u := range strings.Split(val, ",") {
			if u = strings.TrimSpace(u); u != "" {
				urls = append(urls, u)
			}
		}
		cfg.Dispatch.WorkerURLs = urls
	}
}
