// Package metrics provides Prometheus metrics for the audit pipeline.
//
// All metrics share a configurable namespace (default "meshlens"):
//
//   - meshlens_audit_runs_total{status}: completed audit runs
//   - meshlens_audit_run_duration_seconds: run duration histogram
//   - meshlens_documents_parsed_total{plane,kind}: parsed input documents
//   - meshlens_parse_errors_total{plane}: rejected input documents
//   - meshlens_issues{severity}: issues found by the latest audit
//   - meshlens_services{status}: services by consistency status
//   - meshlens_function_pairs{status}: pairs by alignment status
//
// Counters accumulate across runs; the verdict gauges are reset on every
// run so a scrape always reflects the most recent audit. The collector
// uses its own registry, exposed through Handler() for watch mode.
package metrics
