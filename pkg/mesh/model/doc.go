// Package model defines the canonical function model: one governance
// capability (routing, traffic shifting, circuit breaking, rate limiting,
// load balancing, ...) for one service on one plane, expressed uniformly
// regardless of whether it came from control-plane declarations or
// data-plane proxy state.
//
// Heterogeneous source fields are normalized into a shared vocabulary of
// attribute paths (e.g. "outlier.consecutive-error-threshold",
// "connection-pool.max-connections") so downstream alignment and comparison
// never need plane-specific logic. Attribute values are typed: comparison
// strategy selection is driven by the declared Kind, never by runtime
// inspection of the underlying value.
//
// Models are created fresh per parse invocation and never mutated after
// parsing completes. A ModelSet enforces the identity rule: (namespace,
// service, function type, plane) identifies exactly one model per run, and
// duplicate submissions merge field-by-field instead of duplicating.
package model
