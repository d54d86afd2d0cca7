package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"tessera-hq/meshlens/pkg/config"
	"tessera-hq/meshlens/pkg/history"
	"tessera-hq/meshlens/pkg/mesh/align"
	"tessera-hq/meshlens/pkg/mesh/ir"
	"tessera-hq/meshlens/pkg/mesh/model"
	"tessera-hq/meshlens/pkg/mesh/parser"
	"tessera-hq/meshlens/pkg/mesh/stats"
	"tessera-hq/meshlens/pkg/telemetry/logging"
	"tessera-hq/meshlens/pkg/telemetry/metrics"
)

// Runner executes the audit pipeline: load, parse, align, build verdicts,
// then persist and export. A Runner is reusable and safe to call from the
// watch loop.
type Runner struct {
	cfg      *config.Config
	registry *parser.Registry
	store    *history.Store
	metrics  *metrics.Collector
	logger   *slog.Logger
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithStore attaches a run history store; each run is persisted.
func WithStore(store *history.Store) RunnerOption {
	return func(r *Runner) { r.store = store }
}

// WithMetrics attaches a metrics collector.
func WithMetrics(collector *metrics.Collector) RunnerOption {
	return func(r *Runner) { r.metrics = collector }
}

// WithRegistry replaces the default parser registry.
func WithRegistry(registry *parser.Registry) RunnerOption {
	return func(r *Runner) { r.registry = registry }
}

// NewRunner creates an audit runner for the given configuration.
func NewRunner(cfg *config.Config, logger *slog.Logger, opts ...RunnerOption) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Runner{
		cfg:    cfg,
		logger: logger.With("component", "audit"),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.registry == nil {
		r.registry = parser.NewDefaultRegistry(r.logger)
	}
	return r
}

// Run executes one audit. The only fatal pipeline condition is an aligned
// pair with neither side populated; malformed inputs are recorded on the
// report instead.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	runID := uuid.New().String()
	startedAt := time.Now()
	ctx = logging.WithRunID(ctx, runID)
	logger := r.logger.With("run_id", runID)

	loader := NewLoader(r.cfg.Sources, logger)
	in, err := loader.Load()
	if err != nil {
		r.recordRun("error", startedAt)
		return nil, fmt.Errorf("loading documents: %w", err)
	}

	pctx := &parser.Context{DefaultNamespace: r.cfg.Sources.DefaultNamespace}
	controlRes := r.registry.ParseParallel(in.Control, pctx, model.PlaneControl, r.cfg.Parse.Workers)
	dataRes := r.registry.ParseParallel(in.Data, pctx, model.PlaneData, r.cfg.Parse.Workers)

	r.recordInputs(in, controlRes, dataRes)

	pairs := align.Align(controlRes.Models, dataRes.Models)

	builder := ir.NewBuilder(stats.Options{
		RelTolerance:   r.cfg.Comparator.ScalarTolerance,
		SplitTolerance: r.cfg.Comparator.SplitTolerance,
		Confidence:     r.cfg.Comparator.Confidence,
		Margin:         r.cfg.Comparator.Margin,
	}, logger)

	system, err := builder.Build(pairs)
	if err != nil {
		r.recordRun("error", startedAt)
		return nil, fmt.Errorf("building verdicts: %w", err)
	}

	report := &Report{
		RunID:       runID,
		StartedAt:   startedAt,
		FinishedAt:  time.Now(),
		ControlDocs: len(in.Control),
		DataDocs:    len(in.Data),
		System:      system,
		Summary:     system.Summarize(),
		Pairs:       pairs,
		ParseErrors: append(controlRes.Errors, dataRes.Errors...),
		LoadErrors:  in.Errors,
	}

	r.recordVerdicts(report)
	r.recordRun("success", startedAt)

	if r.store != nil {
		if err := r.persist(ctx, report); err != nil {
			// Persistence failure does not invalidate the verdicts.
			logger.Error("persisting run failed", "error", err)
		}
	}

	logger.Info("audit complete",
		"services", report.Summary.Services,
		"functions", report.Summary.Functions,
		"issues", report.Summary.Issues,
		"parse_errors", len(report.ParseErrors),
		"duration", report.FinishedAt.Sub(report.StartedAt),
	)

	return report, nil
}

// recordInputs updates document and parse error metrics.
func (r *Runner) recordInputs(in *Inputs, controlRes, dataRes *parser.Result) {
	if r.metrics == nil {
		return
	}

	for _, doc := range in.Control {
		r.metrics.RecordDocument(string(model.PlaneControl), doc.Kind)
	}
	for _, doc := range in.Data {
		r.metrics.RecordDocument(string(model.PlaneData), doc.Kind)
	}
	for range controlRes.Errors {
		r.metrics.RecordParseError(string(model.PlaneControl))
	}
	for range dataRes.Errors {
		r.metrics.RecordParseError(string(model.PlaneData))
	}
}

// recordVerdicts updates the per-run gauges.
func (r *Runner) recordVerdicts(report *Report) {
	if r.metrics == nil {
		return
	}

	issues := make(map[string]int)
	for sev, n := range report.Summary.IssuesBySeverity {
		issues[string(sev)] = n
	}
	r.metrics.SetIssues(issues)

	services := make(map[string]int)
	for status, n := range report.Summary.ServicesByStatus {
		services[string(status)] = n
	}
	r.metrics.SetServices(services)

	pairStatuses := make(map[string]int)
	for _, pair := range report.Pairs {
		pairStatuses[string(pair.Status)]++
	}
	r.metrics.SetPairs(pairStatuses)
}

func (r *Runner) recordRun(status string, startedAt time.Time) {
	if r.metrics == nil {
		return
	}
	r.metrics.RecordRun(status, time.Since(startedAt))
}

// persist saves the run summary, verdict JSON, and issue rows.
func (r *Runner) persist(ctx context.Context, report *Report) error {
	reportJSON, err := json.Marshal(report.System.ToSerializable())
	if err != nil {
		return fmt.Errorf("encoding verdict tree: %w", err)
	}

	summary := report.Summary
	run := &history.RunRecord{
		ID:          report.RunID,
		StartedAt:   report.StartedAt,
		FinishedAt:  report.FinishedAt,
		ControlDocs: report.ControlDocs,
		DataDocs:    report.DataDocs,
		ParseErrors: len(report.ParseErrors) + len(report.LoadErrors),

		Services:      summary.Services,
		Consistent:    summary.ServicesByStatus[ir.StatusConsistent],
		Inconsistent:  summary.ServicesByStatus[ir.StatusInconsistent],
		Partial:       summary.ServicesByStatus[ir.StatusPartial],
		NotApplicable: summary.ServicesByStatus[ir.StatusNotApplicable],

		Errors:   summary.IssuesBySeverity[ir.SeverityError],
		Warnings: summary.IssuesBySeverity[ir.SeverityWarning],
		Infos:    summary.IssuesBySeverity[ir.SeverityInfo],

		Report: reportJSON,
	}

	return r.store.SaveRun(ctx, run, issueRecords(report.System))
}

// issueRecords flattens the verdict tree into per-issue rows, ordered by
// service key then function type.
func issueRecords(system *ir.SystemIR) []history.IssueRecord {
	keys := make([]string, 0, len(system.Services))
	for key := range system.Services {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var out []history.IssueRecord
	for _, key := range keys {
		svc := system.Services[key]
		for _, t := range model.AllFunctionTypes() {
			fn, ok := svc.Functions[t]
			if !ok {
				continue
			}
			for _, issue := range fn.Issues {
				out = append(out, history.IssueRecord{
					Namespace:    svc.Namespace,
					Service:      svc.Service,
					FunctionType: string(t),
					Severity:     string(issue.Severity),
					FieldPath:    issue.FieldPath,
					ControlValue: issue.ControlValue,
					DataValue:    issue.DataValue,
					Description:  issue.Description,
				})
			}
		}
	}
	return out
}
