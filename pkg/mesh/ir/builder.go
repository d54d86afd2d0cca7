package ir

import (
	"fmt"
	"log/slog"
	"strings"

	"tessera-hq/meshlens/pkg/mesh/align"
	"tessera-hq/meshlens/pkg/mesh/model"
	"tessera-hq/meshlens/pkg/mesh/stats"
)

// Builder turns aligned pairs into a SystemIR. A builder is cheap and
// stateless between builds; construct one per run.
type Builder struct {
	opts   stats.Options
	logger *slog.Logger
}

// NewBuilder returns a builder using the given comparator options.
func NewBuilder(opts stats.Options, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{opts: opts, logger: logger}
}

// Build constructs the verdict tree. The only error is a caller contract
// violation: a pair with neither side present, which signals a
// programming error in the aligner, not bad input.
func (b *Builder) Build(pairs []align.Pair) (*SystemIR, error) {
	system := &SystemIR{Services: make(map[string]*ServiceIR)}

	for i := range pairs {
		pair := &pairs[i]
		if pair.Control == nil && pair.Data == nil {
			return nil, fmt.Errorf("aligned pair %s has neither plane: %w", pair.Key, ErrEmptyPair)
		}

		serviceKey := pair.Key.ServiceKey()
		svc, ok := system.Services[serviceKey]
		if !ok {
			svc = &ServiceIR{
				Service:   pair.Key.Service,
				Namespace: pair.Key.Namespace,
				Functions: make(map[model.FunctionType]*FunctionIR),
			}
			system.Services[serviceKey] = svc
		}

		fn := b.buildFunction(pair)
		svc.Functions[pair.Key.Type] = fn
	}

	b.logger.Debug("consistency tree built",
		"services", len(system.Services),
		"pairs", len(pairs))
	return system, nil
}

// buildFunction runs the per-function state machine: not-applicable until
// both planes are present, then classified by the worst issue severity
// the comparator produced.
func (b *Builder) buildFunction(pair *align.Pair) *FunctionIR {
	fn := &FunctionIR{Type: pair.Key.Type, Status: StatusNotApplicable, Pair: pair}

	switch pair.Status {
	case align.StatusControlOnly:
		fn.AddIssue(Issue{
			FieldPath:    "plane",
			ControlValue: "configured",
			DataValue:    "missing",
			Severity:     SeverityWarning,
			Description:  "declared on the control plane but not observed on the data plane",
		})
		return fn
	case align.StatusDataOnly:
		fn.AddIssue(Issue{
			FieldPath:    "plane",
			ControlValue: "missing",
			DataValue:    "configured",
			Severity:     SeverityWarning,
			Description:  "enforced by the data plane without a control-plane declaration (possibly an implicit default)",
		})
		return fn
	}

	b.compareAttributes(pair, fn)
	b.noteMerges(pair, fn)

	switch {
	case fn.Errors() > 0:
		fn.Status = StatusInconsistent
	case len(fn.Issues) > 0:
		fn.Status = StatusPartial
	default:
		fn.Status = StatusConsistent
	}
	return fn
}

// compareAttributes walks the union of attribute paths across both
// planes. Shared paths go through the comparator; one-sided paths are
// noted at info severity since partial schema overlap is expected, not
// wrong.
func (b *Builder) compareAttributes(pair *align.Pair, fn *FunctionIR) {
	control, data := pair.Control.Attrs, pair.Data.Attrs

	for _, path := range control.Paths() {
		cv, _ := control.Get(path)
		dv, ok := data.Get(path)
		if !ok {
			fn.AddIssue(Issue{
				FieldPath:    path,
				ControlValue: cv.String(),
				DataValue:    "",
				Severity:     SeverityInfo,
				Description:  "attribute present only on the control plane",
			})
			continue
		}
		b.compareOne(path, cv, dv, fn)
	}

	for _, path := range data.Paths() {
		if control.Has(path) {
			continue
		}
		dv, _ := data.Get(path)
		fn.AddIssue(Issue{
			FieldPath:    path,
			ControlValue: "",
			DataValue:    dv.String(),
			Severity:     SeverityInfo,
			Description:  "attribute present only on the data plane",
		})
	}
}

func (b *Builder) compareOne(path string, cv, dv model.Value, fn *FunctionIR) {
	res := stats.Compare(cv, dv, b.opts)

	if res.Incompatible != nil {
		fn.AddIssue(Issue{
			FieldPath:    path,
			ControlValue: cv.String(),
			DataValue:    dv.String(),
			Severity:     SeverityError,
			Description:  res.Incompatible.Error(),
		})
		return
	}

	if !res.Equal {
		fn.AddIssue(Issue{
			FieldPath:    path,
			ControlValue: cv.String(),
			DataValue:    dv.String(),
			Severity:     SeverityError,
			Description:  res.Detail,
		})
	}

	// Under-sampling is orthogonal to pass/fail: insufficient data is
	// never silently accepted or rejected.
	if res.UnderSampled {
		fn.AddIssue(Issue{
			FieldPath:    path,
			ControlValue: cv.String(),
			DataValue:    dv.String(),
			Severity:     SeverityWarning,
			Description: fmt.Sprintf("under-sampled: observed %d requests, %d required for ±%g at z=%g",
				res.Sample, res.MinSample, b.opts.Margin, b.opts.Confidence),
		})
	}
}

// noteMerges surfaces duplicate control-plane submissions as
// informational issues.
func (b *Builder) noteMerges(pair *align.Pair, fn *FunctionIR) {
	for _, rec := range pair.Merges {
		desc := fmt.Sprintf("duplicate control-plane documents merged, last writer wins (%s over %s)",
			rec.FromRef, rec.IntoRef)
		if len(rec.Overwritten) > 0 {
			desc += "; overwrote " + strings.Join(rec.Overwritten, ", ")
		}
		fn.AddIssue(Issue{
			FieldPath:   "merge",
			Severity:    SeverityInfo,
			Description: desc,
		})
	}
}
