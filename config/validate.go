package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/liamcoop/ilrvalidation/rules"
)

// FieldError is a validation failure of one configuration field
type FieldError struct {
	// Field is the dotted path of the field, e.g. engine.max_concurrency
	Field   string
	Message string
}

// Error returns the error message.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError collects every field error of a configuration
type ValidationError struct {
	Errors []FieldError
}

// Error returns the error message.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d errors:", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString("\n  - ")
		sb.WriteString(err.Error())
	}
	return sb.String()
}

// Validate checks the whole configuration and reports every failure together
func Validate(cfg *Config) error {
	var errs []FieldError

	if cfg.Server.Addr == "" {
		errs = append(errs, FieldError{"server.addr", "must not be empty"})
	}
	if cfg.Server.ReadTimeout < 0 || cfg.Server.WriteTimeout < 0 || cfg.Server.IdleTimeout < 0 {
		errs = append(errs, FieldError{"server", "timeouts must not be negative"})
	}

	if cfg.Database.URL != "" {
		if u, err := url.Parse(cfg.Database.URL); err != nil || (u.Scheme != "postgres" && u.Scheme != "postgresql") {
			errs = append(errs, FieldError{"database.url", "must be a postgres:// URL"})
		}
	}

	if cfg.Engine.MaxConcurrency < 1 {
		errs = append(errs, FieldError{"engine.max_concurrency", fmt.Sprintf("must be at least 1, got %d", cfg.Engine.MaxConcurrency)})
	}
	if cfg.Engine.RunTimeout < 0 {
		errs = append(errs, FieldError{"engine.run_timeout", "must not be negative"})
	}

	for name, value := range cfg.Severities {
		if err := rules.ValidateRuleName(name); err != nil {
			errs = append(errs, FieldError{"severities." + name, err.Error()})
			continue
		}
		if _, err := rules.ParseSeverity(value); err != nil {
			errs = append(errs, FieldError{"severities." + name, err.Error()})
		}
	}

	if cfg.Catalog.DefaultVersion == "" {
		errs = append(errs, FieldError{"catalog.default_version", "must not be empty"})
	}

	if cfg.Dispatch.ChunkSize < 1 {
		errs = append(errs, FieldError{"dispatch.chunk_size", fmt.Sprintf("must be at least 1, got %d", cfg.Dispatch.ChunkSize)})
	}
	if cfg.Dispatch.MaxInFlight < 1 {
		errs = append(errs, FieldError{"dispatch.max_in_flight", fmt.Sprintf("must be at least 1, got %d", cfg.Dispatch.MaxInFlight)})
	}
	for i, raw := range cfg.Dispatch.WorkerURLs {
		if u, err := url.Parse(raw); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs = append(errs, FieldError{fmt.Sprintf("dispatch.worker_urls[%d]", i), "must be an http(s) URL"})
		}
	}

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}
	return nil
}
