// Package stats holds the pure statistics shared by the intelligence
// engines: quantile-based thresholding and the time-series primitives the
// prediction models are fitted on. Everything here is deterministic and
// side-effect free.
package stats

import "sort"

// QuantileThresholds returns, for each requested quantile q in [0,1], the
// sample value at index floor((n-1)*q) of the ascending-sorted samples.
// The input slices are never modified; an empty sample set yields zeros for
// every requested quantile. Because a full sort is performed, the result
// depends only on the multiset of samples, not their order.
func QuantileThresholds(samples []float64, quantiles []float64) []float64 {
	thresholds := make([]float64, len(quantiles))
	if len(samples) == 0 {
		return thresholds
	}

	sorted := make([]float64, len(samples))
	copy(sorted, samples)
	sort.Float64s(sorted)

	n := len(sorted)
	for i, q := range quantiles {
		if q < 0 {
			q = 0
		} else if q > 1 {
			q = 1
		}
		idx := int(q * float64(n-1))
		thresholds[i] = sorted[idx]
	}
	return thresholds
}

// CutPoints are data-driven classification breakpoints: values below Lower
// are weak, values at or above Upper are strong (and the top quarter very
// strong), the rest moderate. Deriving them from the observed distribution
// instead of fixed constants keeps classification honest on sparse datasets
// where hardcoded cut points would over- or under-classify.
type CutPoints struct {
	Lower  float64 // 25th percentile
	Middle float64 // 50th percentile
	Upper  float64 // 75th percentile
}

// StrengthCutPoints computes the quartile cut points of a sample set.
func StrengthCutPoints(samples []float64) CutPoints {
	t := QuantileThresholds(samples, []float64{0.25, 0.50, 0.75})
	return CutPoints{Lower: t[0], Middle: t[1], Upper: t[2]}
}
