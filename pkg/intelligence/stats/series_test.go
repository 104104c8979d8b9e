package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMean(t *testing.T) {
	assert.Equal(t, 0.0, Mean(nil))
	assert.Equal(t, 5.0, Mean([]float64{5}))
	assert.Equal(t, 2.0, Mean([]float64{1, 2, 3}))
}

func TestVariance(t *testing.T) {
	assert.Equal(t, 0.0, Variance(nil))
	assert.Equal(t, 0.0, Variance([]float64{7}))
	// Population variance of {2,4,4,4,5,5,7,9} is 4.
	assert.InDelta(t, 4.0, Variance([]float64{2, 4, 4, 4, 5, 5, 7, 9}), 1e-9)
	assert.Equal(t, 0.0, Variance([]float64{3, 3, 3, 3}))
}

func TestAutocovariance(t *testing.T) {
	series := []float64{1, 2, 3, 4, 5}

	// Lag 0 equals the population variance.
	assert.InDelta(t, Variance(series), Autocovariance(series, 0), 1e-9)

	// Out-of-range lags are zero.
	assert.Equal(t, 0.0, Autocovariance(series, 5))
	assert.Equal(t, 0.0, Autocovariance(series, -1))
}

func TestAutocorrelation(t *testing.T) {
	// A strictly increasing series is strongly positively autocorrelated.
	increasing := []float64{1, 2, 3, 4, 5, 6, 7, 8}
	assert.Greater(t, Autocorrelation(increasing, 1), 0.5)

	// A perfect alternation is negatively autocorrelated at lag 1.
	alternating := []float64{1, -1, 1, -1, 1, -1, 1, -1}
	assert.Less(t, Autocorrelation(alternating, 1), -0.5)

	// Constant series has no variance to correlate.
	assert.Equal(t, 0.0, Autocorrelation([]float64{4, 4, 4, 4}, 1))

	// Lag 0 of any varying series is exactly 1.
	assert.InDelta(t, 1.0, Autocorrelation(increasing, 0), 1e-9)
}

func TestRMSE(t *testing.T) {
	assert.Equal(t, 0.0, RMSE(nil))
	// sqrt((9+16)/2) = sqrt(12.5)
	assert.InDelta(t, 3.5355, RMSE([]float64{3, -4}), 1e-3)
}

func TestRange(t *testing.T) {
	min, max := Range([]float64{3, 1, 4, 1, 5})
	assert.Equal(t, 1.0, min)
	assert.Equal(t, 5.0, max)

	min, max = Range(nil)
	assert.Equal(t, 0.0, min)
	assert.Equal(t, 0.0, max)
}

func TestLogistic(t *testing.T) {
	assert.InDelta(t, 0.5, Logistic(0), 1e-9)
	assert.Greater(t, Logistic(10), 0.999)
	assert.Less(t, Logistic(-10), 0.001)
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 0.0, Clamp01(-0.5))
	assert.Equal(t, 1.0, Clamp01(1.5))
	assert.Equal(t, 0.3, Clamp01(0.3))
	assert.Equal(t, 2.0, Clamp(7, 1, 2))
	assert.Equal(t, 1.0, Clamp(-7, 1, 2))
}
