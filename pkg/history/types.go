package history

import "time"

// RunRecord is the persisted summary of one audit run.
type RunRecord struct {
	// ID is the run UUID assigned by the audit runner.
	ID string

	// StartedAt and FinishedAt bound the run wall-clock time.
	StartedAt  time.Time
	FinishedAt time.Time

	// Document counts per plane, plus documents rejected during parsing.
	ControlDocs int
	DataDocs    int
	ParseErrors int

	// Service counts by consistency status.
	Services      int
	Consistent    int
	Inconsistent  int
	Partial       int
	NotApplicable int

	// Issue counts by severity.
	Errors   int
	Warnings int
	Infos    int

	// Report is the serialized verdict tree as JSON. Optional; runs can
	// be stored summary-only.
	Report []byte
}

// IssueRecord is one persisted issue, denormalized with its position in the
// verdict tree so runs can be queried per service without decoding Report.
type IssueRecord struct {
	RunID        string
	Namespace    string
	Service      string
	FunctionType string
	Severity     string
	FieldPath    string
	ControlValue string
	DataValue    string
	Description  string
}

// Query filters ListRuns results.
type Query struct {
	// Since limits results to runs started at or after this time.
	Since *time.Time

	// Limit caps the number of returned runs. Default: 100.
	Limit int
}
