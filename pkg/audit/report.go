package audit

import (
	"encoding/json"
	"io"
	"time"

	"tessera-hq/meshlens/pkg/mesh/align"
	"tessera-hq/meshlens/pkg/mesh/ir"
	"tessera-hq/meshlens/pkg/mesh/parser"
)

// Report is the outcome of one audit run.
type Report struct {
	// RunID is the UUID assigned to this run.
	RunID string

	// StartedAt and FinishedAt bound the run wall-clock time.
	StartedAt  time.Time
	FinishedAt time.Time

	// ControlDocs and DataDocs count the loaded input documents.
	ControlDocs int
	DataDocs    int

	// System is the verdict tree.
	System *ir.SystemIR

	// Summary is the precomputed roll-up of System.
	Summary ir.Summary

	// Pairs holds the aligned function pairs the verdicts came from.
	Pairs []align.Pair

	// ParseErrors records documents rejected by the parse stage;
	// LoadErrors records files that could not be read or decoded.
	// Both are informational, never fatal.
	ParseErrors []*parser.ParseError
	LoadErrors  []*LoadError
}

// Failed reports whether the audit found any error-severity issue.
// CI gating keys off this.
func (r *Report) Failed() bool {
	return r.Summary.IssuesBySeverity[ir.SeverityError] > 0
}

// Serializable returns the report as a plain nested structure. Map keys
// sort on encoding, so two runs over semantically identical inputs produce
// byte-identical verdict sections; only the run envelope (ID, timestamps)
// differs.
func (r *Report) Serializable() map[string]any {
	out := map[string]any{
		"run_id":      r.RunID,
		"started_at":  r.StartedAt.UTC().Format(time.RFC3339Nano),
		"finished_at": r.FinishedAt.UTC().Format(time.RFC3339Nano),
		"inputs": map[string]any{
			"control_docs": r.ControlDocs,
			"data_docs":    r.DataDocs,
		},
		"verdict": r.System.ToSerializable(),
	}

	problems := []string{}
	for _, e := range r.LoadErrors {
		problems = append(problems, e.Error())
	}
	for _, e := range r.ParseErrors {
		problems = append(problems, e.Error())
	}
	out["input_errors"] = problems

	return out
}

// WriteJSON writes the report as indented JSON.
func (r *Report) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r.Serializable())
}
