package parser

import (
	"errors"
	"reflect"
	"testing"

	"tessera-hq/meshlens/pkg/mesh/model"
	"tessera-hq/meshlens/pkg/telemetry/logging"
)

func testContext() *Context {
	return &Context{DefaultNamespace: "default"}
}

func vsDoc(name string, spec map[string]any) *Document {
	return &Document{
		Kind:      KindVirtualService,
		Namespace: "prod",
		Name:      name,
		Body:      map[string]any{"spec": spec},
	}
}

func weightedVSDoc(name string) *Document {
	return vsDoc(name, map[string]any{
		"hosts": []any{"checkout.prod.svc.cluster.local"},
		"http": []any{
			map[string]any{
				"route": []any{
					map[string]any{
						"destination": map[string]any{"host": "checkout.prod.svc.cluster.local", "subset": "v1"},
						"weight":      80,
					},
					map[string]any{
						"destination": map[string]any{"host": "checkout.prod.svc.cluster.local", "subset": "v2"},
						"weight":      20,
					},
				},
			},
		},
	})
}

func TestNewDefaultRegistryCoversAllFunctionTypes(t *testing.T) {
	r := NewDefaultRegistry(logging.Discard())
	for _, ft := range model.AllFunctionTypes() {
		if _, ok := r.Parser(ft); !ok {
			t.Errorf("no parser registered for %s", ft)
		}
	}
}

func TestRegisterReplacesSameType(t *testing.T) {
	r := NewRegistry(logging.Discard())
	first := NewTimeoutParser()
	r.Register(first)
	r.Register(NewTimeoutParser())

	p, _ := r.Parser(model.FunctionTimeout)
	if p == first {
		t.Error("second registration should replace the first")
	}
}

func TestParseControlUnknownKindIsSkippedSilently(t *testing.T) {
	r := NewDefaultRegistry(logging.Discard())
	doc := &Document{Kind: "Service", Namespace: "prod", Name: "svc", Body: map[string]any{}}

	res := r.ParseControl([]*Document{doc}, testContext())
	if len(res.Models) != 0 || len(res.Errors) != 0 {
		t.Errorf("unknown kind should produce nothing: models=%d errors=%d", len(res.Models), len(res.Errors))
	}
}

func TestParseControlMalformedDocumentOneErrorNoModels(t *testing.T) {
	// A malformed document records exactly one ParseError, even though
	// several parsers consume the kind, and produces no models.
	r := NewDefaultRegistry(logging.Discard())
	bad := &Document{Kind: KindVirtualService, Namespace: "prod", Name: "broken", Body: map[string]any{}}

	res := r.ParseControl([]*Document{bad, weightedVSDoc("good")}, testContext())
	if len(res.Errors) != 1 {
		t.Fatalf("errors = %d, want 1", len(res.Errors))
	}
	perr := res.Errors[0]
	if perr.Plane != model.PlaneControl {
		t.Errorf("error plane = %s", perr.Plane)
	}
	if perr.Doc != bad.Ref() {
		t.Errorf("error doc = %q, want %q", perr.Doc, bad.Ref())
	}
	if perr.Unwrap() == nil {
		t.Error("ParseError should wrap a cause")
	}

	// The well-formed document still parses.
	if len(res.Models) == 0 {
		t.Error("well-formed sibling should still produce models")
	}
	for _, m := range res.Models {
		if m.Ref == bad.Ref() {
			t.Errorf("malformed document leaked a model: %s", m.Ref)
		}
	}
}

func TestParseErrorMessage(t *testing.T) {
	cause := errors.New("missing spec")
	perr := &ParseError{Doc: "VirtualService/prod/x", Plane: model.PlaneControl, Err: cause}
	want := "parse control plane document VirtualService/prod/x: missing spec"
	if got := perr.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !errors.Is(perr, cause) {
		t.Error("errors.Is should see the cause through Unwrap")
	}
}

func TestContextNamespaceResolution(t *testing.T) {
	ctx := &Context{DefaultNamespace: "mesh"}
	if got := ctx.Namespace(&Document{Namespace: "prod"}); got != "prod" {
		t.Errorf("document namespace should win, got %q", got)
	}
	if got := ctx.Namespace(&Document{}); got != "mesh" {
		t.Errorf("context default should apply, got %q", got)
	}
	var nilCtx *Context
	if got := nilCtx.Namespace(&Document{}); got != "default" {
		t.Errorf("nil context should fall back to default, got %q", got)
	}
}

func TestParseParallelMatchesSequential(t *testing.T) {
	// Parallel parsing must be observationally equivalent to sequential:
	// same models in document order, same errors.
	r := NewDefaultRegistry(logging.Discard())

	var docs []*Document
	for i := 0; i < 6; i++ {
		docs = append(docs, weightedVSDoc("vs-"+string(rune('a'+i))))
	}
	docs = append(docs, &Document{Kind: KindVirtualService, Namespace: "prod", Name: "broken", Body: map[string]any{}})

	sequential := r.ParseParallel(docs, testContext(), model.PlaneControl, 1)
	if len(sequential.Models) == 0 || len(sequential.Errors) != 1 {
		t.Fatalf("unexpected sequential baseline: models=%d errors=%d", len(sequential.Models), len(sequential.Errors))
	}
	for _, workers := range []int{2, 4, 16} {
		parallel := r.ParseParallel(docs, testContext(), model.PlaneControl, workers)
		if !reflect.DeepEqual(sequential.Models, parallel.Models) {
			t.Errorf("workers=%d: models differ from sequential", workers)
		}
		if !reflect.DeepEqual(sequential.Errors, parallel.Errors) {
			t.Errorf("workers=%d: errors differ from sequential", workers)
		}
	}
}

func TestParseParallelZeroWorkersDefaults(t *testing.T) {
	r := NewDefaultRegistry(logging.Discard())
	docs := []*Document{weightedVSDoc("vs")}
	res := r.ParseParallel(docs, testContext(), model.PlaneControl, 0)
	if len(res.Models) == 0 {
		t.Error("zero workers should still parse")
	}
}
