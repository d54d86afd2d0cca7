// Package audit orchestrates the consistency pipeline.
//
// A Runner executes one audit: the loader materializes control-plane
// manifests, proxy dumps, and traffic samples from the configured source
// directories; the parser registry normalizes them into function models;
// the aligner pairs models across planes; and the verdict builder grades
// every pair. The outcome is a Report carrying the verdict tree, its
// summary, and every input problem encountered along the way.
//
// Malformed inputs never abort a run. Files that cannot be decoded and
// documents the parsers reject are recorded on the report; the only fatal
// pipeline condition is an aligned pair with neither side populated, which
// indicates a bug rather than bad input.
//
// Runs are optionally persisted to a history store and exported as
// Prometheus metrics.
package audit
