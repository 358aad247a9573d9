package config

import (
	"fmt"
	"strings"
)

// Validator is the interface for validating configuration.
type Validator interface {
	Validate() error
}

// ValidationError represents a single validation error.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// MultiValidationError represents multiple validation errors.
type MultiValidationError struct {
	Errors []ValidationError
}

// Error implements the error interface.
func (e *MultiValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "no validation errors"
	}

	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}

	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("validation failed with %d errors:\n", len(e.Errors)))
	for i, err := range e.Errors {
		builder.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return builder.String()
}

// Validate checks the configuration for values a scan cannot run with.
func (c *Config) Validate() error {
	var errors []ValidationError

	add := func(field, msg string) {
		errors = append(errors, ValidationError{Field: field, Message: msg})
	}

	if c.Store.Path == "" {
		add("store.path", "store path is required")
	}
	if c.Store.TTL <= 0 {
		add("store.ttl", "ttl must be positive")
	}

	for _, p := range c.Classify.IncomingPorts {
		if p < 1 || p > 65535 {
			add("classify.incoming_ports", fmt.Sprintf("port %d out of range 1-65535", p))
		}
	}

	switch c.Source.Kind {
	case SourceSS:
		if len(c.Source.Command) == 0 {
			add("source.command", "command is required for source kind \"ss\"")
		}
	case SourceGopsutil:
	default:
		add("source.kind", fmt.Sprintf("unknown source kind %q (want %q or %q)", c.Source.Kind, SourceSS, SourceGopsutil))
	}
	if c.Source.Timeout <= 0 {
		add("source.timeout", "timeout must be positive")
	}
	if c.Source.Retries < 0 {
		add("source.retries", "retries cannot be negative")
	}

	if c.Banlist.Enabled {
		if c.Banlist.Client == "" {
			add("banlist.client", "client is required when the ban list is enabled")
		}
		if c.Banlist.Timeout <= 0 {
			add("banlist.timeout", "timeout must be positive")
		}
	}

	if len(c.Notify.Command) > 0 && c.Notify.Timeout <= 0 {
		add("notify.timeout", "timeout must be positive")
	}

	if c.History.Enabled {
		if c.History.Path == "" {
			add("history.path", "path is required when history is enabled")
		}
		if c.History.Retention < 0 {
			add("history.retention", "retention cannot be negative")
		}
	}

	switch c.Logging.Level {
	case "", "trace", "debug", "info", "warn", "error":
	default:
		add("logging.level", fmt.Sprintf("unknown level %q", c.Logging.Level))
	}

	if len(errors) > 0 {
		return &MultiValidationError{Errors: errors}
	}
	return nil
}
