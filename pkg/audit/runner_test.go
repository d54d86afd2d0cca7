package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"tessera-hq/meshlens/pkg/config"
	"tessera-hq/meshlens/pkg/history"
	"tessera-hq/meshlens/pkg/mesh/ir"
	"tessera-hq/meshlens/pkg/mesh/model"
	"tessera-hq/meshlens/pkg/telemetry/logging"
	"tessera-hq/meshlens/pkg/telemetry/metrics"
)

const checkoutManifests = `
apiVersion: networking.istio.io/v1beta1
kind: VirtualService
metadata:
  name: checkout
  namespace: prod
spec:
  hosts: ["checkout"]
  http:
    - route:
        - destination:
            host: checkout
            subset: v1
          weight: 80
        - destination:
            host: checkout
            subset: v2
          weight: 20
---
apiVersion: networking.istio.io/v1beta1
kind: DestinationRule
metadata:
  name: checkout
  namespace: prod
spec:
  host: checkout
  trafficPolicy:
    connectionPool:
      tcp:
        maxConnections: 100
`

const checkoutClusters = `{
	"clusters": [
		{
			"name": "outbound|80||checkout.prod.svc.cluster.local",
			"circuitBreakers": {
				"thresholds": [{"maxConnections": 50}]
			}
		}
	]
}`

const checkoutTraffic = `{
	"service": "checkout",
	"namespace": "prod",
	"counts": {"v1": 48, "v2": 14}
}`

// fixtureConfig materializes the checkout fixtures and returns a config
// pointing at them.
func fixtureConfig(t *testing.T) *config.Config {
	t.Helper()

	controlDir := t.TempDir()
	dataDir := t.TempDir()
	trafficDir := t.TempDir()
	writeFile(t, controlDir, "checkout.yaml", checkoutManifests)
	writeFile(t, dataDir, "checkout.prod.clusters.json", checkoutClusters)
	writeFile(t, trafficDir, "checkout.json", checkoutTraffic)

	cfg := config.NewDefault()
	cfg.Sources.ControlDir = controlDir
	cfg.Sources.DataDir = dataDir
	cfg.Sources.TrafficDir = trafficDir
	return cfg
}

func checkoutService(t *testing.T, report *Report) *ir.ServiceIR {
	t.Helper()
	svc, ok := report.System.Services["prod.checkout"]
	if !ok {
		t.Fatalf("report has no prod.checkout service; services: %v", report.Summary.Services)
	}
	return svc
}

func TestRunEndToEnd(t *testing.T) {
	runner := NewRunner(fixtureConfig(t), logging.Discard())

	report, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	if report.RunID == "" {
		t.Error("report has no run ID")
	}
	if report.ControlDocs != 2 || report.DataDocs != 2 {
		t.Errorf("input counts = %d control, %d data, want 2/2", report.ControlDocs, report.DataDocs)
	}
	if len(report.LoadErrors) != 0 || len(report.ParseErrors) != 0 {
		t.Errorf("unexpected input errors: load=%v parse=%v", report.LoadErrors, report.ParseErrors)
	}
	if report.Summary.Services != 1 {
		t.Fatalf("Summary.Services = %d, want 1", report.Summary.Services)
	}

	svc := checkoutService(t, report)

	// Declared 100 max connections, proxy enforces 50.
	cb, ok := svc.Functions[model.FunctionCircuitBreak]
	if !ok {
		t.Fatal("no circuit_break verdict")
	}
	if cb.Status != ir.StatusInconsistent {
		t.Errorf("circuit_break status = %s, want inconsistent", cb.Status)
	}
	if cb.Errors() != 1 {
		t.Errorf("circuit_break errors = %d, want 1", cb.Errors())
	}
	if len(cb.Issues) > 0 && cb.Issues[0].FieldPath != model.PathMaxConnections {
		t.Errorf("circuit_break issue path = %q, want %q", cb.Issues[0].FieldPath, model.PathMaxConnections)
	}

	// 48/14 observed matches 80/20 within tolerance, but 62 requests is
	// under the minimum sample size for the default interval.
	ts, ok := svc.Functions[model.FunctionTrafficShift]
	if !ok {
		t.Fatal("no traffic_shift verdict")
	}
	if ts.Status != ir.StatusPartial {
		t.Errorf("traffic_shift status = %s, want partial", ts.Status)
	}
	if ts.Errors() != 0 || ts.Warnings() != 1 {
		t.Errorf("traffic_shift issues = %d errors / %d warnings, want 0/1", ts.Errors(), ts.Warnings())
	}

	// The routing declaration has no data-plane counterpart.
	routing, ok := svc.Functions[model.FunctionRouting]
	if !ok {
		t.Fatal("no routing verdict")
	}
	if routing.Status != ir.StatusNotApplicable {
		t.Errorf("routing status = %s, want not_applicable", routing.Status)
	}

	if svc.Aggregate() != ir.StatusInconsistent {
		t.Errorf("service aggregate = %s, want inconsistent", svc.Aggregate())
	}
	if !report.Failed() {
		t.Error("Failed() = false with an error-severity issue present")
	}
}

func TestRunDeterministicSerialization(t *testing.T) {
	cfg := fixtureConfig(t)

	var outputs [][]byte
	for i := 0; i < 2; i++ {
		runner := NewRunner(cfg, logging.Discard())
		report, err := runner.Run(context.Background())
		if err != nil {
			t.Fatalf("Run() #%d error: %v", i, err)
		}
		data, err := json.Marshal(report.System.ToSerializable())
		if err != nil {
			t.Fatalf("marshal #%d error: %v", i, err)
		}
		outputs = append(outputs, data)
	}

	if !bytes.Equal(outputs[0], outputs[1]) {
		t.Errorf("verdict serialization differs between identical runs:\n%s\n%s", outputs[0], outputs[1])
	}
}

func TestRunEmptyInputs(t *testing.T) {
	cfg := config.NewDefault()
	cfg.Sources.ControlDir = t.TempDir()
	cfg.Sources.DataDir = t.TempDir()

	runner := NewRunner(cfg, logging.Discard())
	report, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	if report.Summary.Services != 0 {
		t.Errorf("Summary.Services = %d, want 0", report.Summary.Services)
	}
	if report.Failed() {
		t.Error("Failed() = true on empty inputs")
	}
}

func TestRunPersistsHistory(t *testing.T) {
	cfg := fixtureConfig(t)
	cfg.History.Enabled = true
	cfg.History.Path = filepath.Join(t.TempDir(), "history.db")

	store, err := history.NewStore(cfg.History, logging.Discard())
	if err != nil {
		t.Fatalf("NewStore() error: %v", err)
	}
	defer store.Close()

	runner := NewRunner(cfg, logging.Discard(), WithStore(store))
	report, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	run, err := store.GetRun(context.Background(), report.RunID)
	if err != nil {
		t.Fatalf("GetRun() error: %v", err)
	}
	if run.Services != 1 || run.Inconsistent != 1 {
		t.Errorf("persisted run = %+v, want 1 service, 1 inconsistent", run)
	}
	if run.Errors != report.Summary.IssuesBySeverity[ir.SeverityError] {
		t.Errorf("persisted errors = %d, want %d", run.Errors, report.Summary.IssuesBySeverity[ir.SeverityError])
	}
	if len(run.Report) == 0 {
		t.Error("persisted run has no report JSON")
	}

	issues, err := store.Issues(context.Background(), report.RunID)
	if err != nil {
		t.Fatalf("Issues() error: %v", err)
	}
	if len(issues) != report.Summary.Issues {
		t.Errorf("persisted %d issues, want %d", len(issues), report.Summary.Issues)
	}
}

func TestRunRecordsMetrics(t *testing.T) {
	cfg := fixtureConfig(t)
	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)

	runner := NewRunner(cfg, logging.Discard(), WithMetrics(collector))
	if _, err := runner.Run(context.Background()); err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	families, err := collector.Registry().Gather()
	if err != nil {
		t.Fatalf("Gather() error: %v", err)
	}

	found := map[string]bool{}
	for _, mf := range families {
		found[mf.GetName()] = true
	}
	for _, want := range []string{
		"meshlens_audit_runs_total",
		"meshlens_documents_parsed_total",
		"meshlens_issues",
		"meshlens_services",
		"meshlens_function_pairs",
	} {
		if !found[want] {
			t.Errorf("metric family %q not gathered; got %v", want, found)
		}
	}
}

func TestReportSerializableEnvelope(t *testing.T) {
	runner := NewRunner(fixtureConfig(t), logging.Discard())
	report, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	var buf bytes.Buffer
	if err := report.WriteJSON(&buf); err != nil {
		t.Fatalf("WriteJSON() error: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("report JSON invalid: %v", err)
	}
	if decoded["run_id"] != report.RunID {
		t.Errorf("run_id = %v, want %v", decoded["run_id"], report.RunID)
	}
	if _, err := time.Parse(time.RFC3339Nano, decoded["started_at"].(string)); err != nil {
		t.Errorf("started_at not RFC3339: %v", err)
	}
	if _, ok := decoded["verdict"].(map[string]any); !ok {
		t.Error("report JSON has no verdict object")
	}
}
