package stats

import (
	"fmt"
	"math"
	"sort"

	"tessera-hq/meshlens/pkg/mesh/model"
)

// compareDistribution applies the sampling-aware strategy: the expected
// side carries declared proportions, the observed side carries request
// counts. Every bucket in either distribution is checked; a label missing
// from one side counts as zero on that side.
func compareDistribution(expected, observed *model.Distribution, opts Options) Result {
	if expected == nil || observed == nil {
		return Result{Incompatible: &ComparisonError{
			ControlKind: model.KindDistribution,
			DataKind:    model.KindDistribution,
		}, Detail: "empty distribution on one plane"}
	}

	n := observed.Total()
	if n == 0 {
		// A data-plane split derived from proxy route weights carries
		// proportions rather than request counts; compare share to share
		// with no sampling concern.
		if hasProportions(observed) {
			return compareProportions(expected, observed, opts)
		}
		return Result{
			UnderSampled: true,
			MinSample:    MinSampleSize(opts.Confidence, opts.Margin, expected),
			Detail:       "no observed requests",
		}
	}

	labels := unionLabels(expected, observed)
	res := Result{Equal: true, Sample: n}
	var worst Deviation
	for _, label := range labels {
		p, _ := expected.Proportion(label)
		c, _ := observed.Count(label)
		share := float64(c) / float64(n)
		gap := math.Abs(share - p)
		d := Deviation{Label: label, Expected: p, Observed: share, Gap: gap}
		res.Deviations = append(res.Deviations, d)
		if gap > opts.SplitTolerance {
			res.Equal = false
		}
		if gap > worst.Gap {
			worst = d
		}
	}
	if !res.Equal {
		res.Detail = fmt.Sprintf("bucket %q deviates by %.3f (expected %.3f, observed %.3f, tolerance %g)",
			worst.Label, worst.Gap, worst.Expected, worst.Observed, opts.SplitTolerance)
	}

	res.MinSample = MinSampleSize(opts.Confidence, opts.Margin, expected)
	if n < res.MinSample {
		res.UnderSampled = true
		if res.Detail == "" {
			res.Detail = fmt.Sprintf("observed %d requests, %d required for ±%g at z=%g",
				n, res.MinSample, opts.Margin, opts.Confidence)
		}
	}
	return res
}

// MinSampleSize returns the minimum observed total n for a binomial
// confidence interval of half-width margin at confidence level z:
//
//	n ≥ z²·p·(1−p)/E²
//
// using the maximum p·(1−p) across buckets as the conservative variance
// bound.
func MinSampleSize(z, margin float64, expected *model.Distribution) int64 {
	if margin <= 0 || z <= 0 {
		return 0
	}
	var variance float64
	for _, b := range expected.Buckets() {
		p := math.Max(0, math.Min(1, b.Proportion))
		if v := p * (1 - p); v > variance {
			variance = v
		}
	}
	return int64(math.Ceil(z * z * variance / (margin * margin)))
}

func hasProportions(d *model.Distribution) bool {
	for _, b := range d.Buckets() {
		if b.Proportion > 0 {
			return true
		}
	}
	return false
}

// compareProportions checks two declared-proportion distributions bucket
// by bucket against the split tolerance.
func compareProportions(expected, observed *model.Distribution, opts Options) Result {
	res := Result{Equal: true}
	var worst Deviation
	for _, label := range unionLabels(expected, observed) {
		p, _ := expected.Proportion(label)
		q, _ := observed.Proportion(label)
		gap := math.Abs(q - p)
		d := Deviation{Label: label, Expected: p, Observed: q, Gap: gap}
		res.Deviations = append(res.Deviations, d)
		if gap > opts.SplitTolerance {
			res.Equal = false
		}
		if gap > worst.Gap {
			worst = d
		}
	}
	if !res.Equal {
		res.Detail = fmt.Sprintf("bucket %q deviates by %.3f (expected %.3f, observed %.3f, tolerance %g)",
			worst.Label, worst.Gap, worst.Expected, worst.Observed, opts.SplitTolerance)
	}
	return res
}

func unionLabels(a, b *model.Distribution) []string {
	seen := make(map[string]struct{})
	var labels []string
	for _, l := range a.Labels() {
		if _, ok := seen[l]; !ok {
			seen[l] = struct{}{}
			labels = append(labels, l)
		}
	}
	for _, l := range b.Labels() {
		if _, ok := seen[l]; !ok {
			seen[l] = struct{}{}
			labels = append(labels, l)
		}
	}
	sort.Strings(labels)
	return labels
}
