package config

import (
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "comparator.margin").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
// It implements the error interface and provides access to all field errors.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate validates the entire configuration and returns a ValidationError
// if any validation rules fail. It returns nil if the configuration is valid.
// All validation errors are collected and returned together.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateSources(&cfg.Sources)...)
	errs = append(errs, validateComparator(&cfg.Comparator)...)
	errs = append(errs, validateParse(&cfg.Parse)...)
	errs = append(errs, validateHistory(&cfg.History)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)
	errs = append(errs, validateWatch(&cfg.Watch)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}

	return nil
}

// validateSources validates input source configuration.
func validateSources(cfg *SourcesConfig) []FieldError {
	var errs []FieldError

	if cfg.ControlDir == "" && cfg.DataDir == "" {
		errs = append(errs, FieldError{
			Field:   "sources",
			Message: "at least one of control_dir or data_dir is required",
		})
	}
	if cfg.DefaultNamespace == "" {
		errs = append(errs, FieldError{
			Field:   "sources.default_namespace",
			Message: "default namespace is required",
		})
	}

	return errs
}

// validateComparator validates comparator configuration.
func validateComparator(cfg *ComparatorConfig) []FieldError {
	var errs []FieldError

	if cfg.ScalarTolerance < 0 {
		errs = append(errs, FieldError{
			Field:   "comparator.scalar_tolerance",
			Message: "scalar tolerance must be non-negative",
		})
	}
	if cfg.SplitTolerance < 0 || cfg.SplitTolerance > 1.0 {
		errs = append(errs, FieldError{
			Field:   "comparator.split_tolerance",
			Message: "split tolerance must be between 0.0 and 1.0",
		})
	}
	if cfg.Confidence <= 0 {
		errs = append(errs, FieldError{
			Field:   "comparator.confidence",
			Message: "confidence z-score must be positive",
		})
	}
	if cfg.Margin <= 0 || cfg.Margin >= 1.0 {
		errs = append(errs, FieldError{
			Field:   "comparator.margin",
			Message: "margin of error must be between 0.0 and 1.0 exclusive",
		})
	}

	return errs
}

// validateParse validates parsing configuration.
func validateParse(cfg *ParseConfig) []FieldError {
	var errs []FieldError

	if cfg.Workers < 0 {
		errs = append(errs, FieldError{
			Field:   "parse.workers",
			Message: "workers must be non-negative",
		})
	}
	if cfg.Workers > 256 {
		errs = append(errs, FieldError{
			Field:   "parse.workers",
			Message: "workers exceeds reasonable limit (256)",
		})
	}

	return errs
}

// validateHistory validates run history configuration.
func validateHistory(cfg *HistoryConfig) []FieldError {
	var errs []FieldError

	if !cfg.Enabled {
		return errs
	}

	if cfg.Path == "" {
		errs = append(errs, FieldError{
			Field:   "history.path",
			Message: "SQLite path is required when history is enabled",
		})
	}
	if cfg.BusyTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "history.busy_timeout",
			Message: "busy timeout must be positive",
		})
	}

	return errs
}

// validateTelemetry validates telemetry configuration.
func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if cfg.Logging.Level == "" {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: "logging level is required",
		})
	} else if !validLevels[cfg.Logging.Level] {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: fmt.Sprintf("invalid logging level %q: must be 'debug', 'info', 'warn', or 'error'", cfg.Logging.Level),
		})
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if cfg.Logging.Format == "" {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: "logging format is required",
		})
	} else if !validFormats[cfg.Logging.Format] {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: fmt.Sprintf("invalid logging format %q: must be 'json' or 'text'", cfg.Logging.Format),
		})
	}

	if cfg.Metrics.Enabled && cfg.Metrics.ListenAddress == "" {
		errs = append(errs, FieldError{
			Field:   "telemetry.metrics.listen_address",
			Message: "listen address is required when metrics are enabled",
		})
	}

	return errs
}

// validateWatch validates watch mode configuration.
func validateWatch(cfg *WatchConfig) []FieldError {
	var errs []FieldError

	if cfg.DebounceInterval < 0 {
		errs = append(errs, FieldError{
			Field:   "watch.debounce_interval",
			Message: "debounce interval must be positive",
		})
	}

	if cfg.Schedule != "" {
		if _, err := cron.ParseStandard(cfg.Schedule); err != nil {
			errs = append(errs, FieldError{
				Field:   "watch.schedule",
				Message: fmt.Sprintf("invalid cron schedule: %v", err),
			})
		}
	}

	return errs
}
