package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"tessera-hq/meshlens/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func testMetricsConfig() *config.MetricsConfig {
	return &config.MetricsConfig{
		Enabled:   true,
		Namespace: "test",
	}
}

func TestNewCollector(t *testing.T) {
	cfg := testMetricsConfig()
	registry := prometheus.NewRegistry()

	collector := NewCollector(cfg, registry)

	if collector == nil {
		t.Fatal("expected non-nil collector")
	}
	if collector.Registry() != registry {
		t.Error("collector registry not set correctly")
	}
}

func TestNewCollectorNilRegistry(t *testing.T) {
	collector := NewCollector(testMetricsConfig(), nil)
	if collector.Registry() == nil {
		t.Fatal("expected collector to create its own registry")
	}
}

func TestRecordRun(t *testing.T) {
	collector := NewCollector(testMetricsConfig(), nil)

	collector.RecordRun("success", 200*time.Millisecond)
	collector.RecordRun("success", 400*time.Millisecond)
	collector.RecordRun("error", 10*time.Millisecond)

	if got := testutil.ToFloat64(collector.runsTotal.WithLabelValues("success")); got != 2 {
		t.Errorf("runs_total{status=success} = %v, want 2", got)
	}
	if got := testutil.ToFloat64(collector.runsTotal.WithLabelValues("error")); got != 1 {
		t.Errorf("runs_total{status=error} = %v, want 1", got)
	}
}

func TestRecordDocumentAndParseError(t *testing.T) {
	collector := NewCollector(testMetricsConfig(), nil)

	collector.RecordDocument("control", "VirtualService")
	collector.RecordDocument("control", "VirtualService")
	collector.RecordDocument("data", "Clusters")
	collector.RecordParseError("control")

	if got := testutil.ToFloat64(collector.documentsParsed.WithLabelValues("control", "VirtualService")); got != 2 {
		t.Errorf("documents_parsed_total{control,VirtualService} = %v, want 2", got)
	}
	if got := testutil.ToFloat64(collector.documentsParsed.WithLabelValues("data", "Clusters")); got != 1 {
		t.Errorf("documents_parsed_total{data,Clusters} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(collector.parseErrors.WithLabelValues("control")); got != 1 {
		t.Errorf("parse_errors_total{control} = %v, want 1", got)
	}
}

func TestGaugesResetBetweenRuns(t *testing.T) {
	collector := NewCollector(testMetricsConfig(), nil)

	collector.SetIssues(map[string]int{"error": 3, "warning": 1})
	collector.SetServices(map[string]int{"consistent": 5, "inconsistent": 2})
	collector.SetPairs(map[string]int{"matched": 7})

	if got := testutil.ToFloat64(collector.issues.WithLabelValues("error")); got != 3 {
		t.Errorf("issues{error} = %v, want 3", got)
	}
	if got := testutil.ToFloat64(collector.services.WithLabelValues("inconsistent")); got != 2 {
		t.Errorf("services{inconsistent} = %v, want 2", got)
	}

	// A second run with fewer label values clears stale series.
	collector.SetIssues(map[string]int{"warning": 2})

	if got := testutil.ToFloat64(collector.issues.WithLabelValues("warning")); got != 2 {
		t.Errorf("issues{warning} = %v, want 2 after reset", got)
	}
	if got := testutil.CollectAndCount(collector.issues); got != 1 {
		t.Errorf("issues series count = %v, want 1 after reset", got)
	}
}

func TestDisabledCollectorRecordsNothing(t *testing.T) {
	cfg := testMetricsConfig()
	cfg.Enabled = false
	collector := NewCollector(cfg, nil)

	collector.RecordRun("success", time.Second)
	collector.RecordDocument("control", "VirtualService")
	collector.RecordParseError("data")
	collector.SetIssues(map[string]int{"error": 1})

	if got := testutil.CollectAndCount(collector.runsTotal); got != 0 {
		t.Errorf("runs_total series count = %v, want 0 when disabled", got)
	}
	if got := testutil.CollectAndCount(collector.issues); got != 0 {
		t.Errorf("issues series count = %v, want 0 when disabled", got)
	}
}

func TestHandlerServesExposition(t *testing.T) {
	collector := NewCollector(testMetricsConfig(), nil)
	collector.RecordRun("success", 100*time.Millisecond)

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	collector.Handler().ServeHTTP(rec, req)

	if rec.Code != 200 {
		t.Fatalf("GET /metrics status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "test_audit_runs_total") {
		t.Errorf("exposition missing run counter:\n%s", body)
	}
}
