package config

import "time"

// Config is the root configuration structure for Meshlens. It contains
// all configuration sections for document sources, the comparator,
// audit history, telemetry, and watch mode.
type Config struct {
	// Sources tells the loader where control-plane documents, data-plane
	// dumps, and observed traffic samples live.
	Sources SourcesConfig `yaml:"sources"`

	// Comparator configures the statistical comparison strategies.
	Comparator ComparatorConfig `yaml:"comparator"`

	// Parse configures the parse stage.
	Parse ParseConfig `yaml:"parse"`

	// History configures persistent storage of past audit runs.
	History HistoryConfig `yaml:"history"`

	// Telemetry contains observability configuration: logging and metrics.
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// Watch configures continuous audit mode.
	Watch WatchConfig `yaml:"watch"`
}

// SourcesConfig locates the already-materialized input documents.
type SourcesConfig struct {
	// ControlDir is the directory holding control-plane YAML documents
	// (VirtualService, DestinationRule, EnvoyFilter, ...).
	ControlDir string `yaml:"control_dir"`

	// DataDir is the directory holding data-plane JSON dumps
	// (clusters, route tables, listeners).
	DataDir string `yaml:"data_dir"`

	// TrafficDir is the directory holding observed traffic samples.
	// Optional; without samples, traffic splits are checked against
	// realized route weights only.
	TrafficDir string `yaml:"traffic_dir"`

	// DefaultNamespace is applied to documents that carry none.
	// Default: "default"
	DefaultNamespace string `yaml:"default_namespace"`
}

// ComparatorConfig tunes both comparison strategies.
type ComparatorConfig struct {
	// ScalarTolerance is the relative tolerance for numeric scalar
	// fields. Zero means exact match.
	// Default: 0
	ScalarTolerance float64 `yaml:"scalar_tolerance"`

	// SplitTolerance is the maximum per-bucket deviation between an
	// expected traffic proportion and the observed share.
	// Default: 0.1
	SplitTolerance float64 `yaml:"split_tolerance"`

	// Confidence is the z value of the binomial confidence interval
	// behind the minimum-sample-size check.
	// Default: 1.96 (95%)
	Confidence float64 `yaml:"confidence"`

	// Margin is the half-width E of that confidence interval.
	// Default: 0.05
	Margin float64 `yaml:"margin"`
}

// ParseConfig tunes the parse stage.
type ParseConfig struct {
	// Workers is the parse worker pool size. Zero or one parses
	// sequentially; parallel parsing is observationally equivalent.
	// Default: 0
	Workers int `yaml:"workers"`
}

// HistoryConfig configures the audit run store.
type HistoryConfig struct {
	// Enabled turns run persistence on.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Path is the SQLite database file path.
	// Default: "data/meshlens.db"
	Path string `yaml:"path"`

	// BusyTimeout is the duration to wait when the database is locked.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// TelemetryConfig contains observability configuration.
type TelemetryConfig struct {
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	// Default: "info"
	Level string `yaml:"level"`

	// Format is the output format: "json" or "text".
	// Default: "text"
	Format string `yaml:"format"`

	// AddSource includes file:line in log records.
	// Default: false
	AddSource bool `yaml:"add_source"`
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	// Enabled turns metric collection on.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// ListenAddress serves /metrics in watch mode.
	// Default: "127.0.0.1:9464"
	ListenAddress string `yaml:"listen_address"`

	// Namespace prefixes every metric name.
	// Default: "meshlens"
	Namespace string `yaml:"namespace"`
}

// WatchConfig configures continuous audit mode.
type WatchConfig struct {
	// DebounceInterval is the quiet period after a file change before
	// re-running the audit.
	// Default: 500ms
	DebounceInterval time.Duration `yaml:"debounce_interval"`

	// Schedule is an optional cron expression for periodic audits,
	// independent of file changes (e.g. "@every 15m").
	Schedule string `yaml:"schedule"`
}
