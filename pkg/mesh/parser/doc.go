// Package parser turns raw control-plane and data-plane documents into
// canonical function models.
//
// A parser is registered per function type in a Registry constructed once
// per run and passed into the parse entry points; there is no process-wide
// registry, so injecting fake parsers in tests is trivial. Decomposition
// is by capability, not 1:1 with source documents: a single routing
// declaration fans out into a routing model from its match rules and a
// traffic-shift model from its weighted destinations.
//
// Documents arrive already materialized in memory; this package performs
// no I/O. Unknown document kinds are skipped. A parse failure on one
// document is caught and recorded as a ParseError, producing no model for
// that document and never aborting the run.
package parser
