package metrics

import (
	"time"

	"tessera-hq/meshlens/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector manages the Prometheus metrics for an audit pipeline. It is
// safe for concurrent use; all metric types are backed by prometheus
// primitives.
type Collector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry

	// Audit run counters
	runsTotal   *prometheus.CounterVec
	runDuration prometheus.Histogram

	// Parse stage
	documentsParsed *prometheus.CounterVec
	parseErrors     *prometheus.CounterVec

	// Verdict gauges, reset on every run so watch mode reports the
	// latest audit rather than an accumulation
	issues   *prometheus.GaugeVec
	services *prometheus.GaugeVec
	pairs    *prometheus.GaugeVec
}

// NewCollector creates a metrics collector with the specified configuration
// and Prometheus registry. If registry is nil, a fresh registry is created.
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	if cfg.Namespace == "" {
		cfg.Namespace = "meshlens"
	}

	c := &Collector{
		config:   cfg,
		registry: registry,

		runsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "audit_runs_total",
				Help:      "Total number of audit runs executed",
			},
			[]string{"status"},
		),

		runDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Name:      "audit_run_duration_seconds",
				Help:      "Duration of audit runs in seconds",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60},
			},
		),

		documentsParsed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "documents_parsed_total",
				Help:      "Total number of documents parsed by plane and kind",
			},
			[]string{"plane", "kind"},
		),

		parseErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "parse_errors_total",
				Help:      "Total number of documents rejected by the parse stage",
			},
			[]string{"plane"},
		),

		issues: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Name:      "issues",
				Help:      "Issues found by the most recent audit, by severity",
			},
			[]string{"severity"},
		),

		services: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Name:      "services",
				Help:      "Services in the most recent audit, by consistency status",
			},
			[]string{"status"},
		),

		pairs: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Name:      "function_pairs",
				Help:      "Aligned function pairs in the most recent audit, by alignment status",
			},
			[]string{"status"},
		),
	}

	registry.MustRegister(
		c.runsTotal,
		c.runDuration,
		c.documentsParsed,
		c.parseErrors,
		c.issues,
		c.services,
		c.pairs,
	)

	return c
}

// RecordRun records a completed audit run.
//
// Parameters:
//   - status: "success" or "error"
//   - duration: wall-clock run duration
func (c *Collector) RecordRun(status string, duration time.Duration) {
	if !c.config.Enabled {
		return
	}

	c.runsTotal.WithLabelValues(status).Inc()
	c.runDuration.Observe(duration.Seconds())
}

// RecordDocument records a successfully parsed document.
func (c *Collector) RecordDocument(plane, kind string) {
	if !c.config.Enabled {
		return
	}

	c.documentsParsed.WithLabelValues(plane, kind).Inc()
}

// RecordParseError records a document rejected by the parse stage.
func (c *Collector) RecordParseError(plane string) {
	if !c.config.Enabled {
		return
	}

	c.parseErrors.WithLabelValues(plane).Inc()
}

// SetIssues resets and records the issue counts of the latest audit.
func (c *Collector) SetIssues(bySeverity map[string]int) {
	if !c.config.Enabled {
		return
	}

	c.issues.Reset()
	for severity, n := range bySeverity {
		c.issues.WithLabelValues(severity).Set(float64(n))
	}
}

// SetServices resets and records the service counts of the latest audit.
func (c *Collector) SetServices(byStatus map[string]int) {
	if !c.config.Enabled {
		return
	}

	c.services.Reset()
	for status, n := range byStatus {
		c.services.WithLabelValues(status).Set(float64(n))
	}
}

// SetPairs resets and records the aligned pair counts of the latest audit.
func (c *Collector) SetPairs(byStatus map[string]int) {
	if !c.config.Enabled {
		return
	}

	c.pairs.Reset()
	for status, n := range byStatus {
		c.pairs.WithLabelValues(status).Set(float64(n))
	}
}

// Registry returns the Prometheus registry used by this collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}
