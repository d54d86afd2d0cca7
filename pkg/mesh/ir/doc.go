// Package ir builds the consistency intermediate representation: a
// Service → Function → Issue verdict tree derived from aligned
// control/data plane pairs.
//
// The builder walks each pair through a small state machine. A pair with
// only one side present stays not-applicable but records a single warning
// note: a declared-but-unenforced policy and an enforced-but-undeclared
// behavior are both suspicious, not automatically wrong. A complete pair
// runs the statistical comparator over the union of attribute paths and
// collects issues by severity. No anomaly unwinds the build; every
// anomaly becomes data in the tree, so callers always receive a complete,
// queryable result even from partially malformed input. The only error
// return is a caller contract violation.
//
// Rebuilding replaces the tree wholesale; there is no incremental update
// or cross-run caching, and identical inputs serialize byte-identically.
package ir
