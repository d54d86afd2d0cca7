package parser

import (
	"log/slog"

	"tessera-hq/meshlens/pkg/mesh/model"
)

// Registry holds the parsers for one run. It is an explicit value
// constructed per run and passed into the parse entry points, never a
// package-level singleton: no cross-run leakage, trivial to inject fakes.
type Registry struct {
	parsers []Parser
	byType  map[model.FunctionType]Parser
	logger  *slog.Logger
}

// NewRegistry returns an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		byType: make(map[model.FunctionType]Parser),
		logger: logger,
	}
}

// NewDefaultRegistry returns a registry with every built-in parser
// registered.
func NewDefaultRegistry(logger *slog.Logger) *Registry {
	r := NewRegistry(logger)
	r.Register(NewRoutingParser())
	r.Register(NewTrafficShiftParser())
	r.Register(NewCircuitBreakParser())
	r.Register(NewRateLimitParser())
	r.Register(NewLoadBalanceParser())
	r.Register(NewRetryParser())
	r.Register(NewTimeoutParser())
	r.Register(NewFaultInjectionParser())
	return r
}

// Register adds p, replacing any parser previously registered for the
// same function type. Registration order is preserved and drives the
// deterministic parse walk.
func (r *Registry) Register(p Parser) {
	if prev, ok := r.byType[p.Type()]; ok {
		for i, existing := range r.parsers {
			if existing == prev {
				r.parsers[i] = p
				break
			}
		}
	} else {
		r.parsers = append(r.parsers, p)
	}
	r.byType[p.Type()] = p
}

// Parser returns the parser registered for t.
func (r *Registry) Parser(t model.FunctionType) (Parser, bool) {
	p, ok := r.byType[t]
	return p, ok
}

// Result is the outcome of parsing a set of documents on one plane:
// the produced models plus every recorded per-document failure.
type Result struct {
	Models []*model.FunctionModel
	Errors []*ParseError
}

// ParseControl runs every registered parser over every control-plane
// document, in document order then registration order. Failures are
// recorded and skipped.
func (r *Registry) ParseControl(docs []*Document, ctx *Context) *Result {
	return r.parse(docs, ctx, model.PlaneControl)
}

// ParseData is the data-plane counterpart of ParseControl.
func (r *Registry) ParseData(docs []*Document, ctx *Context) *Result {
	return r.parse(docs, ctx, model.PlaneData)
}

func (r *Registry) parse(docs []*Document, ctx *Context, plane model.Plane) *Result {
	res := &Result{}
	for _, doc := range docs {
		models, perr := r.parseDocument(doc, ctx, plane)
		if perr != nil {
			res.Errors = append(res.Errors, perr)
			continue
		}
		res.Models = append(res.Models, models...)
	}
	return res
}

// parseDocument fans one document out to every parser. A document of an
// unknown kind yields no models from any parser and is silently skipped.
// The first parser failure poisons the whole document: exactly one
// ParseError is recorded and no models are produced for it.
func (r *Registry) parseDocument(doc *Document, ctx *Context, plane model.Plane) ([]*model.FunctionModel, *ParseError) {
	var models []*model.FunctionModel
	for _, p := range r.parsers {
		var (
			out []*model.FunctionModel
			err error
		)
		if plane == model.PlaneControl {
			out, err = p.ParseControl(doc, ctx)
		} else {
			out, err = p.ParseData(doc, ctx)
		}
		if err != nil {
			r.logger.Warn("document skipped", "doc", doc.Ref(), "plane", plane, "error", err)
			return nil, &ParseError{Doc: doc.Ref(), Plane: plane, Err: err}
		}
		models = append(models, out...)
	}
	return models, nil
}
