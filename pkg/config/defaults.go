package config

import "time"

// Default values for configuration fields.
const (
	DefaultNamespace = "default"

	// Comparator defaults
	DefaultScalarTolerance = 0.0
	DefaultSplitTolerance  = 0.1
	DefaultConfidence      = 1.96
	DefaultMargin          = 0.05

	// History defaults
	DefaultHistoryPath        = "data/meshlens.db"
	DefaultHistoryBusyTimeout = 5 * time.Second

	// Logging defaults
	DefaultLogLevel  = "info"
	DefaultLogFormat = "text"

	// Metrics defaults
	DefaultMetricsEnabled       = true
	DefaultMetricsListenAddress = "127.0.0.1:9464"
	DefaultMetricsNamespace     = "meshlens"

	// Watch defaults
	DefaultWatchDebounce = 500 * time.Millisecond
)

// ApplyDefaults fills in default values for any fields left at their zero
// value. Booleans with a true default are handled by the loader before
// unmarshaling.
func ApplyDefaults(cfg *Config) {
	if cfg.Sources.DefaultNamespace == "" {
		cfg.Sources.DefaultNamespace = DefaultNamespace
	}

	if cfg.Comparator.SplitTolerance == 0 {
		cfg.Comparator.SplitTolerance = DefaultSplitTolerance
	}
	if cfg.Comparator.Confidence == 0 {
		cfg.Comparator.Confidence = DefaultConfidence
	}
	if cfg.Comparator.Margin == 0 {
		cfg.Comparator.Margin = DefaultMargin
	}

	if cfg.History.Path == "" {
		cfg.History.Path = DefaultHistoryPath
	}
	if cfg.History.BusyTimeout == 0 {
		cfg.History.BusyTimeout = DefaultHistoryBusyTimeout
	}

	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLogLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLogFormat
	}
	if cfg.Telemetry.Metrics.ListenAddress == "" {
		cfg.Telemetry.Metrics.ListenAddress = DefaultMetricsListenAddress
	}
	if cfg.Telemetry.Metrics.Namespace == "" {
		cfg.Telemetry.Metrics.Namespace = DefaultMetricsNamespace
	}

	if cfg.Watch.DebounceInterval == 0 {
		cfg.Watch.DebounceInterval = DefaultWatchDebounce
	}
}

// NewDefault returns a configuration with every default applied, suitable
// when no configuration file is given.
func NewDefault() *Config {
	cfg := &Config{}
	cfg.Telemetry.Metrics.Enabled = DefaultMetricsEnabled
	ApplyDefaults(cfg)
	return cfg
}
