package analytics

// sliceProbability estimates how likely an opening in this bucket is,
// normalized against all observations for the same entity in the same
// weekday+hour slice across every observed month and year. Normalizing
// within the slice keeps a rush-hour bucket from being diluted by off-peak
// observations: the probabilities of one slice's buckets always sum to 1.
func sliceProbability(bucketCount, sliceTotal int) float64 {
	if sliceTotal <= 0 {
		return 0
	}
	p := float64(bucketCount) / float64(sliceTotal)
	if p > 1 {
		return 1
	}
	return p
}

// saturatingConfidence expresses "more observations ⇒ more trust" as
// count/minimum, saturating at 1.0 once the bucket has at least the
// configured minimum sample size.
func saturatingConfidence(count, minimumSampleSize int) float64 {
	if minimumSampleSize <= 0 {
		return 1
	}
	c := float64(count) / float64(minimumSampleSize)
	if c > 1 {
		return 1
	}
	return c
}
