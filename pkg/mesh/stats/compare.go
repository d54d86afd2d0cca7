package stats

import (
	"fmt"
	"math"

	"tessera-hq/meshlens/pkg/mesh/model"
)

// Options configures both comparison strategies.
type Options struct {
	// RelTolerance is the relative tolerance for numeric scalar fields.
	// Zero means exact match.
	RelTolerance float64

	// SplitTolerance is the maximum allowed per-bucket deviation between
	// expected proportion and observed share. Default 0.1.
	SplitTolerance float64

	// Confidence is the z value of the binomial confidence interval used
	// by the minimum-sample-size check. Default 1.96 (95%).
	Confidence float64

	// Margin is the half-width E of the confidence interval. Default 0.05.
	Margin float64
}

// DefaultOptions returns the defaults: exact scalar match, 10% split
// tolerance, 95% confidence with a 5% margin.
func DefaultOptions() Options {
	return Options{
		RelTolerance:   0,
		SplitTolerance: 0.1,
		Confidence:     1.96,
		Margin:         0.05,
	}
}

// ComparisonError records that two attribute values could not be compared
// because their declared kinds are incompatible across planes. It becomes
// an error-severity issue in the consistency tree; it is never raised.
type ComparisonError struct {
	ControlKind model.Kind
	DataKind    model.Kind
}

// Error returns the error message.
func (e *ComparisonError) Error() string {
	return fmt.Sprintf("incompatible attribute kinds: control=%s data=%s", e.ControlKind, e.DataKind)
}

// Deviation is one bucket's expected-versus-observed gap.
type Deviation struct {
	Label    string
	Expected float64
	Observed float64
	Gap      float64
}

// Result is the outcome of comparing one attribute across planes.
type Result struct {
	// Equal reports whether the two values agree within tolerance.
	Equal bool

	// Incompatible is set when the kinds cannot be compared; Equal is
	// false in that case.
	Incompatible *ComparisonError

	// Detail is a human-readable explanation for issue descriptions.
	Detail string

	// Distribution-only fields.

	// UnderSampled reports that the observed sample is below the binomial
	// minimum for the configured confidence and margin. Orthogonal to
	// Equal: a passing but under-sampled comparison is suspicious, not
	// wrong.
	UnderSampled bool

	// Sample is the observed total count n.
	Sample int64

	// MinSample is the required minimum n.
	MinSample int64

	// Deviations holds per-bucket gaps in label order.
	Deviations []Deviation
}

// Compare compares a control-plane value against a data-plane value. The
// strategy is selected by the declared kinds alone: two distribution
// values take the sampling-aware path, everything else the scalar path.
func Compare(control, data model.Value, opts Options) Result {
	if control.Kind == model.KindDistribution || data.Kind == model.KindDistribution {
		if control.Kind != data.Kind {
			return incompatible(control, data)
		}
		return compareDistribution(control.Dist, data.Dist, opts)
	}
	return compareScalar(control, data, opts)
}

func incompatible(control, data model.Value) Result {
	err := &ComparisonError{ControlKind: control.Kind, DataKind: data.Kind}
	return Result{Incompatible: err, Detail: err.Error()}
}

// compareScalar applies the scalar strategy: numeric fields within
// relative tolerance, durations normalized to nanoseconds, everything
// else exact.
func compareScalar(control, data model.Value, opts Options) Result {
	switch {
	case isNumeric(control.Kind) && isNumeric(data.Kind):
		return compareNumeric(numericValue(control), numericValue(data), opts.RelTolerance)

	case control.Kind == model.KindDuration && data.Kind == model.KindDuration:
		// Durations arrive from heterogeneous source units; both sides are
		// normalized to a single unit before comparing.
		return compareNumeric(control.Duration.Seconds(), data.Duration.Seconds(), opts.RelTolerance)

	case control.Kind != data.Kind:
		return incompatible(control, data)

	case control.Kind == model.KindString:
		if control.Str == data.Str {
			return Result{Equal: true}
		}
		return Result{Detail: fmt.Sprintf("control %q != data %q", control.Str, data.Str)}

	case control.Kind == model.KindBool:
		if control.Bool == data.Bool {
			return Result{Equal: true}
		}
		return Result{Detail: fmt.Sprintf("control %v != data %v", control.Bool, data.Bool)}
	}
	return incompatible(control, data)
}

func compareNumeric(a, b, relTol float64) Result {
	if a == b {
		return Result{Equal: true}
	}
	if relTol > 0 {
		scale := math.Max(math.Abs(a), math.Abs(b))
		if math.Abs(a-b) <= relTol*scale {
			return Result{Equal: true}
		}
	}
	return Result{Detail: fmt.Sprintf("control %g != data %g (relative tolerance %g)", a, b, relTol)}
}

func isNumeric(k model.Kind) bool {
	return k == model.KindInt || k == model.KindFloat
}

func numericValue(v model.Value) float64 {
	if v.Kind == model.KindInt {
		return float64(v.Int)
	}
	return v.Float
}
