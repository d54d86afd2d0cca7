// Package stats decides whether two attribute values are close enough
// given sampling noise. It implements two independently selectable
// strategies keyed off the attribute's declared kind:
//
//   - Scalar comparison: numeric fields within a configurable relative
//     tolerance (default exact), string/enum/bool fields exact, durations
//     normalized to one unit before comparing.
//   - Distribution comparison: expected proportions against observed
//     counts, per-bucket deviation against a tolerance, plus a binomial
//     minimum-sample-size check so a passing result from too little data
//     is tagged under-sampled instead of silently accepted.
//
// New function types can be added without touching this package: the
// strategy dispatch looks only at model.Kind.
package stats
