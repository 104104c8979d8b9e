package stats

import "math"

// Mean returns the arithmetic mean, or 0 for an empty series.
func Mean(series []float64) float64 {
	if len(series) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range series {
		sum += v
	}
	return sum / float64(len(series))
}

// Variance returns the population variance around the mean, or 0 for a
// series shorter than two points.
func Variance(series []float64) float64 {
	if len(series) < 2 {
		return 0
	}
	mean := Mean(series)
	sum := 0.0
	for _, v := range series {
		d := v - mean
		sum += d * d
	}
	return sum / float64(len(series))
}

// Autocovariance returns the lag-k autocovariance
// c_k = (1/n) Σ (x_t − μ)(x_{t−k} − μ). Lags at or beyond the series
// length return 0.
func Autocovariance(series []float64, lag int) float64 {
	n := len(series)
	if lag < 0 || lag >= n {
		return 0
	}
	mean := Mean(series)
	sum := 0.0
	for t := lag; t < n; t++ {
		sum += (series[t] - mean) * (series[t-lag] - mean)
	}
	return sum / float64(n)
}

// Autocorrelation returns the lag-k autocorrelation c_k/c_0, or 0 when the
// series has no variance (a constant series correlates with nothing).
func Autocorrelation(series []float64, lag int) float64 {
	c0 := Autocovariance(series, 0)
	if c0 < 1e-12 {
		return 0
	}
	return Autocovariance(series, lag) / c0
}

// RMSE returns the root mean squared value of residuals, or 0 when empty.
func RMSE(residuals []float64) float64 {
	if len(residuals) == 0 {
		return 0
	}
	sum := 0.0
	for _, r := range residuals {
		sum += r * r
	}
	return math.Sqrt(sum / float64(len(residuals)))
}

// Range returns the min and max of a series, or zeros when empty.
func Range(series []float64) (min, max float64) {
	if len(series) == 0 {
		return 0, 0
	}
	min, max = series[0], series[0]
	for _, v := range series[1:] {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	return min, max
}

// Logistic squashes x into (0,1).
func Logistic(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}

// Clamp01 clamps v into [0,1].
func Clamp01(v float64) float64 {
	return math.Min(math.Max(v, 0.0), 1.0)
}

// Clamp clamps v into [lo,hi].
func Clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}
