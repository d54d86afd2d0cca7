package ir

import (
	"tessera-hq/meshlens/pkg/mesh/align"
	"tessera-hq/meshlens/pkg/mesh/model"
)

// Severity grades one consistency issue.
type Severity string

const (
	// SeverityError marks a definite mismatch between planes.
	SeverityError Severity = "error"

	// SeverityWarning marks something suspicious but possibly
	// intentional, e.g. an implicit default or an under-sampled
	// distribution.
	SeverityWarning Severity = "warning"

	// SeverityInfo marks informational notes such as merge records.
	SeverityInfo Severity = "info"
)

// Status is the per-function (and aggregated per-service) verdict.
type Status string

const (
	StatusConsistent    Status = "consistent"
	StatusInconsistent  Status = "inconsistent"
	StatusPartial       Status = "partial"
	StatusNotApplicable Status = "not_applicable"
)

// rank orders statuses worst-first for aggregation:
// inconsistent > partial > consistent > not_applicable.
func rank(s Status) int {
	switch s {
	case StatusInconsistent:
		return 3
	case StatusPartial:
		return 2
	case StatusConsistent:
		return 1
	}
	return 0
}

// Worse returns the worse of two statuses.
func Worse(a, b Status) Status {
	if rank(b) > rank(a) {
		return b
	}
	return a
}

// Issue records one disagreement (or note) between planes for one field
// path. Issues are created only when the originating pair has both sides,
// except the single plane-presence warning on one-sided pairs.
type Issue struct {
	FieldPath    string   `json:"field_path"`
	ControlValue string   `json:"control_value"`
	DataValue    string   `json:"data_value"`
	Severity     Severity `json:"severity"`
	Description  string   `json:"description"`
}

// FunctionIR is the verdict for one governance capability of one service.
type FunctionIR struct {
	Type   model.FunctionType
	Status Status

	// Issues holds every detected issue in evaluation order.
	Issues []Issue

	// Pair is a non-owning back-reference to the aligned pair this
	// verdict was derived from.
	Pair *align.Pair
}

// AddIssue appends an issue without reclassifying status; the builder
// settles status once per build pass.
func (f *FunctionIR) AddIssue(issue Issue) {
	f.Issues = append(f.Issues, issue)
}

// Errors counts error-severity issues.
func (f *FunctionIR) Errors() int { return f.countSeverity(SeverityError) }

// Warnings counts warning-severity issues.
func (f *FunctionIR) Warnings() int { return f.countSeverity(SeverityWarning) }

func (f *FunctionIR) countSeverity(s Severity) int {
	n := 0
	for _, issue := range f.Issues {
		if issue.Severity == s {
			n++
		}
	}
	return n
}

// ServiceIR groups the function verdicts of one service.
type ServiceIR struct {
	Service   string
	Namespace string
	Functions map[model.FunctionType]*FunctionIR
}

// Aggregate returns the worst status among the service's functions.
func (s *ServiceIR) Aggregate() Status {
	agg := StatusNotApplicable
	for _, f := range s.Functions {
		agg = Worse(agg, f.Status)
	}
	return agg
}

// Issues returns every issue across the service's functions, ordered by
// function type for determinism.
func (s *ServiceIR) Issues() []Issue {
	var out []Issue
	for _, t := range model.AllFunctionTypes() {
		if f, ok := s.Functions[t]; ok {
			out = append(out, f.Issues...)
		}
	}
	return out
}

// SystemIR is the whole verdict tree, keyed "namespace.service".
type SystemIR struct {
	Services map[string]*ServiceIR
}

// Summary counts verdicts and issues across the tree.
type Summary struct {
	Services  int `json:"services"`
	Functions int `json:"functions"`
	Issues    int `json:"issues"`

	ServicesByStatus  map[Status]int   `json:"services_by_status"`
	FunctionsByStatus map[Status]int   `json:"functions_by_status"`
	IssuesBySeverity  map[Severity]int `json:"issues_by_severity"`
}
