package config

import (
	"runtime"
	"time"
)

// Default configuration values
const (
	DefaultAddr            = ":8080"
	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 5 * time.Minute
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
	DefaultRunTimeout      = 10 * time.Minute
	DefaultCatalogVersion  = "1718"
	DefaultChunkSize       = 500
	DefaultWorkerTimeout   = 5 * time.Minute
)

// Default returns a configuration holding only defaults
func Default() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults sets every zero valued field to its default.
// It is idempotent.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = DefaultAddr
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}

	if cfg.Engine.MaxConcurrency == 0 {
		cfg.Engine.MaxConcurrency = runtime.GOMAXPROCS(0)
	}
	if cfg.Engine.RunTimeout == 0 {
		cfg.Engine.RunTimeout = DefaultRunTimeout
	}

	if cfg.Severities == nil {
		cfg.Severities = map[string]string{}
	}

	if cfg.Catalog.DefaultVersion == "" {
		cfg.Catalog.DefaultVersion = DefaultCatalogVersion
	}

	if cfg.Dispatch.ChunkSize == 0 {
		cfg.Dispatch.ChunkSize = DefaultChunkSize
	}
	if cfg.Dispatch.MaxInFlight == 0 {
		cfg.Dispatch.MaxInFlight = runtime.GOMAXPROCS(0)
	}
	if cfg.Dispatch.WorkerTimeout == 0 {
		cfg.Dispatch.WorkerTimeout = DefaultWorkerTimeout
	}
}
