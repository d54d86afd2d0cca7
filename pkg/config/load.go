package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads configuration from a YAML file at the specified path.
// It applies default values, validates the configuration, and returns any
// errors. The configuration is not modified by environment variables; use
// LoadConfigWithEnvOverrides for that functionality.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	// Booleans that default to true must be set before unmarshaling so an
	// explicit `false` in the file is not clobbered.
	cfg := Config{}
	cfg.Telemetry.Metrics.Enabled = DefaultMetricsEnabled
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. Environment variables follow the naming
// convention MESHLENS_SECTION_FIELD (e.g., MESHLENS_SOURCES_CONTROL_DIR).
// Environment variables always take precedence over file-based configuration.
//
// The loading sequence is:
// 1. Load YAML from file
// 2. Apply default values
// 3. Apply environment variable overrides
// 4. Validate final configuration
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables use the format MESHLENS_SECTION_FIELD.
func applyEnvOverrides(cfg *Config) {
	// Sources overrides
	if val := os.Getenv("MESHLENS_SOURCES_CONTROL_DIR"); val != "" {
		cfg.Sources.ControlDir = val
	}
	if val := os.Getenv("MESHLENS_SOURCES_DATA_DIR"); val != "" {
		cfg.Sources.DataDir = val
	}
	if val := os.Getenv("MESHLENS_SOURCES_TRAFFIC_DIR"); val != "" {
		cfg.Sources.TrafficDir = val
	}
	if val := os.Getenv("MESHLENS_SOURCES_DEFAULT_NAMESPACE"); val != "" {
		cfg.Sources.DefaultNamespace = val
	}

	// Comparator overrides
	if val := os.Getenv("MESHLENS_COMPARATOR_SCALAR_TOLERANCE"); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			cfg.Comparator.ScalarTolerance = f
		}
	}
	if val := os.Getenv("MESHLENS_COMPARATOR_SPLIT_TOLERANCE"); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			cfg.Comparator.SplitTolerance = f
		}
	}
	if val := os.Getenv("MESHLENS_COMPARATOR_CONFIDENCE"); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			cfg.Comparator.Confidence = f
		}
	}
	if val := os.Getenv("MESHLENS_COMPARATOR_MARGIN"); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			cfg.Comparator.Margin = f
		}
	}

	// Parse overrides
	if val := os.Getenv("MESHLENS_PARSE_WORKERS"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Parse.Workers = i
		}
	}

	// History overrides
	if val := os.Getenv("MESHLENS_HISTORY_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.History.Enabled = b
		}
	}
	if val := os.Getenv("MESHLENS_HISTORY_PATH"); val != "" {
		cfg.History.Path = val
	}
	if val := os.Getenv("MESHLENS_HISTORY_BUSY_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.History.BusyTimeout = d
		}
	}

	// Telemetry overrides
	if val := os.Getenv("MESHLENS_TELEMETRY_LOGGING_LEVEL"); val != "" {
		cfg.Telemetry.Logging.Level = val
	}
	if val := os.Getenv("MESHLENS_TELEMETRY_LOGGING_FORMAT"); val != "" {
		cfg.Telemetry.Logging.Format = val
	}
	if val := os.Getenv("MESHLENS_TELEMETRY_METRICS_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Telemetry.Metrics.Enabled = b
		}
	}
	if val := os.Getenv("MESHLENS_TELEMETRY_METRICS_LISTEN_ADDRESS"); val != "" {
		cfg.Telemetry.Metrics.ListenAddress = val
	}

	// Watch overrides
	if val := os.Getenv("MESHLENS_WATCH_DEBOUNCE_INTERVAL"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Watch.DebounceInterval = d
		}
	}
	if val := os.Getenv("MESHLENS_WATCH_SCHEDULE"); val != "" {
		cfg.Watch.Schedule = val
	}
}
