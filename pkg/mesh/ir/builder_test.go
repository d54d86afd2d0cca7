package ir

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"tessera-hq/meshlens/pkg/mesh/align"
	"tessera-hq/meshlens/pkg/mesh/model"
	"tessera-hq/meshlens/pkg/mesh/stats"
)

func newTestBuilder() *Builder {
	return NewBuilder(stats.DefaultOptions(), nil)
}

func pairFor(t *testing.T, control, data *model.FunctionModel) align.Pair {
	t.Helper()
	var cs, ds []*model.FunctionModel
	if control != nil {
		cs = append(cs, control)
	}
	if data != nil {
		ds = append(ds, data)
	}
	pairs := align.Align(cs, ds)
	if len(pairs) != 1 {
		t.Fatalf("expected 1 pair, got %d", len(pairs))
	}
	return pairs[0]
}

func TestWorse(t *testing.T) {
	tests := []struct {
		a, b, want Status
	}{
		{StatusConsistent, StatusInconsistent, StatusInconsistent},
		{StatusInconsistent, StatusPartial, StatusInconsistent},
		{StatusPartial, StatusConsistent, StatusPartial},
		{StatusNotApplicable, StatusConsistent, StatusConsistent},
		{StatusNotApplicable, StatusNotApplicable, StatusNotApplicable},
	}
	for _, tt := range tests {
		if got := Worse(tt.a, tt.b); got != tt.want {
			t.Errorf("Worse(%s, %s) = %s, want %s", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestBuildConsistentFunction(t *testing.T) {
	control := model.NewFunctionModel(model.FunctionRetry, "prod", "checkout", model.PlaneControl, "c")
	control.Attrs.Set("retry.attempts", model.IntValue(3))
	data := model.NewFunctionModel(model.FunctionRetry, "prod", "checkout", model.PlaneData, "d")
	data.Attrs.Set("retry.attempts", model.IntValue(3))

	system, err := newTestBuilder().Build([]align.Pair{pairFor(t, control, data)})
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}

	fn := system.Services["prod.checkout"].Functions[model.FunctionRetry]
	if fn.Status != StatusConsistent {
		t.Errorf("status = %s, want consistent", fn.Status)
	}
	if len(fn.Issues) != 0 {
		t.Errorf("issues = %v, want none", fn.Issues)
	}
}

func TestBuildMismatchIsInconsistent(t *testing.T) {
	control := model.NewFunctionModel(model.FunctionCircuitBreak, "prod", "checkout", model.PlaneControl, "c")
	control.Attrs.Set(model.PathMaxConnections, model.IntValue(100))
	data := model.NewFunctionModel(model.FunctionCircuitBreak, "prod", "checkout", model.PlaneData, "d")
	data.Attrs.Set(model.PathMaxConnections, model.IntValue(50))

	system, err := newTestBuilder().Build([]align.Pair{pairFor(t, control, data)})
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}

	fn := system.Services["prod.checkout"].Functions[model.FunctionCircuitBreak]
	if fn.Status != StatusInconsistent {
		t.Errorf("status = %s, want inconsistent", fn.Status)
	}
	if fn.Errors() != 1 {
		t.Fatalf("errors = %d, want 1", fn.Errors())
	}
	issue := fn.Issues[0]
	if issue.FieldPath != model.PathMaxConnections {
		t.Errorf("field path = %q", issue.FieldPath)
	}
	if issue.ControlValue != "100" || issue.DataValue != "50" {
		t.Errorf("values = %q vs %q", issue.ControlValue, issue.DataValue)
	}
}

func TestBuildUnderSampledIsPartialNotInconsistent(t *testing.T) {
	// Observed shares within tolerance but a sample too small to trust:
	// the verdict degrades to partial with a warning, never to
	// inconsistent.
	control := model.NewFunctionModel(model.FunctionTrafficShift, "prod", "checkout", model.PlaneControl, "c")
	control.Attrs.Set(model.PathTrafficSplit, model.DistValue(
		model.NewProportions(map[string]float64{"v1": 0.8, "v2": 0.2})))
	data := model.NewFunctionModel(model.FunctionTrafficShift, "prod", "checkout", model.PlaneData, "d")
	data.Attrs.Set(model.PathTrafficSplit, model.DistValue(
		model.NewCounts(map[string]int64{"v1": 48, "v2": 14})))

	system, err := newTestBuilder().Build([]align.Pair{pairFor(t, control, data)})
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}

	fn := system.Services["prod.checkout"].Functions[model.FunctionTrafficShift]
	if fn.Status != StatusPartial {
		t.Errorf("status = %s, want partial", fn.Status)
	}
	if fn.Errors() != 0 {
		t.Errorf("errors = %d, want 0", fn.Errors())
	}
	if fn.Warnings() != 1 {
		t.Errorf("warnings = %d, want 1", fn.Warnings())
	}
}

func TestBuildOneSidedPairs(t *testing.T) {
	control := model.NewFunctionModel(model.FunctionRouting, "prod", "checkout", model.PlaneControl, "c")
	data := model.NewFunctionModel(model.FunctionRateLimit, "prod", "cart", model.PlaneData, "d")

	system, err := newTestBuilder().Build(align.Align(
		[]*model.FunctionModel{control},
		[]*model.FunctionModel{data},
	))
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}

	routing := system.Services["prod.checkout"].Functions[model.FunctionRouting]
	if routing.Status != StatusNotApplicable {
		t.Errorf("control-only status = %s, want not_applicable", routing.Status)
	}
	if routing.Warnings() != 1 {
		t.Errorf("control-only should carry one plane-presence warning, got %v", routing.Issues)
	}

	rateLimit := system.Services["prod.cart"].Functions[model.FunctionRateLimit]
	if rateLimit.Status != StatusNotApplicable {
		t.Errorf("data-only status = %s, want not_applicable", rateLimit.Status)
	}
}

func TestBuildOneSidedAttributeIsInfo(t *testing.T) {
	control := model.NewFunctionModel(model.FunctionTimeout, "prod", "a", model.PlaneControl, "c")
	control.Attrs.Set("timeout.request", model.DurationValue(5*time.Second))
	control.Attrs.Set("timeout.idle", model.DurationValue(time.Minute))
	data := model.NewFunctionModel(model.FunctionTimeout, "prod", "a", model.PlaneData, "d")
	data.Attrs.Set("timeout.request", model.DurationValue(5*time.Second))

	system, err := newTestBuilder().Build([]align.Pair{pairFor(t, control, data)})
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}

	fn := system.Services["prod.a"].Functions[model.FunctionTimeout]
	if fn.Status != StatusPartial {
		t.Errorf("status = %s, want partial", fn.Status)
	}
	if fn.Errors() != 0 {
		t.Errorf("one-sided attribute must not be an error: %v", fn.Issues)
	}
	if len(fn.Issues) != 1 || fn.Issues[0].Severity != SeverityInfo {
		t.Errorf("want single info issue, got %v", fn.Issues)
	}
}

func TestBuildIncompatibleKindsIsError(t *testing.T) {
	control := model.NewFunctionModel(model.FunctionLoadBalance, "prod", "a", model.PlaneControl, "c")
	control.Attrs.Set("lb.algorithm", model.StringValue("round_robin"))
	data := model.NewFunctionModel(model.FunctionLoadBalance, "prod", "a", model.PlaneData, "d")
	data.Attrs.Set("lb.algorithm", model.IntValue(1))

	system, err := newTestBuilder().Build([]align.Pair{pairFor(t, control, data)})
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	fn := system.Services["prod.a"].Functions[model.FunctionLoadBalance]
	if fn.Status != StatusInconsistent || fn.Errors() != 1 {
		t.Errorf("incompatible kinds should yield one error, got %v", fn.Issues)
	}
}

func TestBuildMergeRecordsSurfaceAsInfo(t *testing.T) {
	m1 := model.NewFunctionModel(model.FunctionTimeout, "prod", "a", model.PlaneControl, "doc-a")
	m1.Attrs.Set("timeout.request", model.DurationValue(5*time.Second))
	m2 := model.NewFunctionModel(model.FunctionTimeout, "prod", "a", model.PlaneControl, "doc-b")
	m2.Attrs.Set("timeout.request", model.DurationValue(10*time.Second))
	data := model.NewFunctionModel(model.FunctionTimeout, "prod", "a", model.PlaneData, "d")
	data.Attrs.Set("timeout.request", model.DurationValue(10*time.Second))

	system, err := newTestBuilder().Build(align.Align(
		[]*model.FunctionModel{m1, m2},
		[]*model.FunctionModel{data},
	))
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}

	fn := system.Services["prod.a"].Functions[model.FunctionTimeout]
	if fn.Errors() != 0 {
		t.Errorf("surviving value matches; merge must not be an error: %v", fn.Issues)
	}
	infos := 0
	for _, issue := range fn.Issues {
		if issue.Severity == SeverityInfo && issue.FieldPath == "merge" {
			infos++
		}
	}
	if infos != 1 {
		t.Errorf("want 1 merge info issue, got %d (%v)", infos, fn.Issues)
	}
}

func TestBuildEmptyPairFails(t *testing.T) {
	_, err := newTestBuilder().Build([]align.Pair{{Key: model.Key{Namespace: "x", Service: "y", Type: model.FunctionRetry}}})
	if !errors.Is(err, ErrEmptyPair) {
		t.Errorf("err = %v, want ErrEmptyPair", err)
	}
}

func TestSummarize(t *testing.T) {
	control := model.NewFunctionModel(model.FunctionRetry, "prod", "a", model.PlaneControl, "c")
	control.Attrs.Set("retry.attempts", model.IntValue(3))
	data := model.NewFunctionModel(model.FunctionRetry, "prod", "a", model.PlaneData, "d")
	data.Attrs.Set("retry.attempts", model.IntValue(5))

	system, err := newTestBuilder().Build([]align.Pair{pairFor(t, control, data)})
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}

	sum := system.Summarize()
	if sum.Services != 1 || sum.Functions != 1 || sum.Issues != 1 {
		t.Errorf("summary = %+v", sum)
	}
	if sum.ServicesByStatus[StatusInconsistent] != 1 {
		t.Errorf("services_by_status = %v", sum.ServicesByStatus)
	}
	if sum.IssuesBySeverity[SeverityError] != 1 {
		t.Errorf("issues_by_severity = %v", sum.IssuesBySeverity)
	}
}

func TestServiceAggregateIsWorstFunction(t *testing.T) {
	consistentC := model.NewFunctionModel(model.FunctionRetry, "prod", "a", model.PlaneControl, "")
	consistentC.Attrs.Set("retry.attempts", model.IntValue(3))
	consistentD := model.NewFunctionModel(model.FunctionRetry, "prod", "a", model.PlaneData, "")
	consistentD.Attrs.Set("retry.attempts", model.IntValue(3))

	brokenC := model.NewFunctionModel(model.FunctionTimeout, "prod", "a", model.PlaneControl, "")
	brokenC.Attrs.Set("timeout.request", model.DurationValue(5*time.Second))
	brokenD := model.NewFunctionModel(model.FunctionTimeout, "prod", "a", model.PlaneData, "")
	brokenD.Attrs.Set("timeout.request", model.DurationValue(30*time.Second))

	system, err := newTestBuilder().Build(align.Align(
		[]*model.FunctionModel{consistentC, brokenC},
		[]*model.FunctionModel{consistentD, brokenD},
	))
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	if got := system.Services["prod.a"].Aggregate(); got != StatusInconsistent {
		t.Errorf("aggregate = %s, want inconsistent", got)
	}
}

func TestToSerializableDeterministic(t *testing.T) {
	build := func() []byte {
		c1 := model.NewFunctionModel(model.FunctionCircuitBreak, "prod", "checkout", model.PlaneControl, "c")
		c1.Attrs.Set(model.PathMaxConnections, model.IntValue(100))
		c2 := model.NewFunctionModel(model.FunctionRetry, "prod", "cart", model.PlaneControl, "c")
		c2.Attrs.Set("retry.attempts", model.IntValue(3))
		d1 := model.NewFunctionModel(model.FunctionCircuitBreak, "prod", "checkout", model.PlaneData, "d")
		d1.Attrs.Set(model.PathMaxConnections, model.IntValue(50))
		d2 := model.NewFunctionModel(model.FunctionRetry, "prod", "cart", model.PlaneData, "d")
		d2.Attrs.Set("retry.attempts", model.IntValue(3))

		system, err := newTestBuilder().Build(align.Align(
			[]*model.FunctionModel{c1, c2},
			[]*model.FunctionModel{d1, d2},
		))
		if err != nil {
			t.Fatalf("Build() error: %v", err)
		}
		out, err := json.Marshal(system.ToSerializable())
		if err != nil {
			t.Fatalf("Marshal() error: %v", err)
		}
		return out
	}

	first := build()
	for i := 0; i < 5; i++ {
		if next := build(); !bytes.Equal(first, next) {
			t.Fatalf("serialization not byte-identical on run %d:\n%s\n%s", i, first, next)
		}
	}
}

func TestIssuesFor(t *testing.T) {
	control := model.NewFunctionModel(model.FunctionRetry, "prod", "a", model.PlaneControl, "c")
	control.Attrs.Set("retry.attempts", model.IntValue(3))
	data := model.NewFunctionModel(model.FunctionRetry, "prod", "a", model.PlaneData, "d")
	data.Attrs.Set("retry.attempts", model.IntValue(5))

	system, err := newTestBuilder().Build([]align.Pair{pairFor(t, control, data)})
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}

	if got := system.IssuesFor("prod", "a"); len(got) != 1 {
		t.Errorf("IssuesFor(prod, a) = %v", got)
	}
	if got := system.IssuesFor("prod", "unknown"); got == nil || len(got) != 0 {
		t.Errorf("unknown service should return empty non-nil slice, got %v", got)
	}
}
