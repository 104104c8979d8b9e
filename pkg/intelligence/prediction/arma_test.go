package prediction

import (
	"context"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PeterJemley/bridget-sub000/pkg/domain"
)

func TestModelOrder(t *testing.T) {
	tests := []struct {
		name string
		tier domain.ComputeTier
		want int
	}{
		{name: "minimal", tier: domain.TierMinimal, want: 1},
		{name: "standard", tier: domain.TierStandard, want: 2},
		{name: "advanced", tier: domain.TierAdvanced, want: 3},
		{name: "expert", tier: domain.TierExpert, want: 4},
		{name: "unknown value acts as standard", tier: domain.ComputeTier(99), want: 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, modelOrder(tt.tier))
		})
	}
}

func TestFitMinimalConstantSeries(t *testing.T) {
	series := []float64{10, 10, 10, 10, 10}

	model := fitMinimal(series)
	assert.Equal(t, domain.TierMinimal, model.tier)
	assert.InDelta(t, 10.0, model.mean, 1e-12)
	require.Len(t, model.phi, 1)
	assert.Zero(t, model.phi[0], "flat series has no autocorrelation")
	assert.InDelta(t, defaultMATheta, model.theta, 1e-12)
	assert.InDelta(t, 1.0, model.fitQuality, 1e-12, "exact reproduction of a flat series")
	assert.InDelta(t, 10.0, model.forecastNext(series), 1e-12)
}

func TestFitSeriesConstantFallsBackToMinimal(t *testing.T) {
	series := []float64{60, 60, 60, 60, 60, 60, 60, 60}

	model := fitSeries(context.Background(), series, domain.TierStandard)
	assert.Equal(t, domain.TierMinimal, model.tier)
	assert.InDelta(t, 1.0, model.fitQuality, 1e-12)
	assert.InDelta(t, 60.0, model.forecastNext(series), 1e-12)
}

func TestFitSeriesShortSeriesDegrades(t *testing.T) {
	series := []float64{3, 5, 4}

	model := fitSeries(context.Background(), series, domain.TierExpert)
	assert.Equal(t, domain.TierMinimal, model.tier)
	assert.Len(t, model.phi, 1)
}

func TestFitSeriesStandardRecoversAR2(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	series := make([]float64, 0, 400)
	prev1, prev2 := 0.0, 0.0
	for i := 0; i < 400; i++ {
		v := 0.5*prev1 - 0.3*prev2 + rng.NormFloat64()
		series = append(series, v)
		prev2, prev1 = prev1, v
	}

	model := fitSeries(context.Background(), series, domain.TierStandard)
	assert.Equal(t, domain.TierStandard, model.tier)
	require.Len(t, model.phi, 2)
	assert.InDelta(t, 0.5, model.phi[0], 0.2)
	assert.InDelta(t, -0.3, model.phi[1], 0.2)
	assert.Greater(t, model.fitQuality, 0.0)
	assert.LessOrEqual(t, model.fitQuality, 1.0)
}

func TestFitSeriesExpertOnLongSeries(t *testing.T) {
	rng := rand.New(rand.NewSource(23))
	series := make([]float64, 0, 120)
	x := 50.0
	for i := 0; i < 120; i++ {
		x = 50 + 0.4*(x-50) + 4*rng.NormFloat64()
		series = append(series, x)
	}

	model := fitSeries(context.Background(), series, domain.TierExpert)
	assert.Equal(t, domain.TierExpert, model.tier)
	require.Len(t, model.phi, 4)
	assert.GreaterOrEqual(t, model.theta, -thetaLimit)
	assert.LessOrEqual(t, model.theta, thetaLimit)

	next := model.forecastNext(series)
	assert.False(t, math.IsNaN(next))
	assert.False(t, math.IsInf(next, 0))
}

func TestForecastNextKnownModel(t *testing.T) {
	series := []float64{2, 14}

	m := armaModel{mean: 10, phi: []float64{0.5}}
	assert.InDelta(t, 12.0, m.forecastNext(series), 1e-12)

	m.theta = 0.5
	m.residuals = []float64{2}
	assert.InDelta(t, 13.0, m.forecastNext(series), 1e-12)
}

func TestArmaResiduals(t *testing.T) {
	tests := []struct {
		name     string
		centered []float64
		phi      []float64
		theta    float64
		want     []float64
	}{
		{
			name:     "zero model passes values through",
			centered: []float64{1, 2, 3},
			phi:      []float64{0},
			want:     []float64{2, 3},
		},
		{
			name:     "unit AR predicts previous value",
			centered: []float64{1, 2, 3},
			phi:      []float64{1},
			want:     []float64{1, 1},
		},
		{
			name:     "MA term feeds prior residual forward",
			centered: []float64{1, 2, 3},
			phi:      []float64{1},
			theta:    1,
			want:     []float64{1, 0},
		},
		{
			name:     "series shorter than order",
			centered: []float64{1},
			phi:      []float64{0.5, 0.2},
			want:     nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := armaResiduals(tt.centered, tt.phi, tt.theta)
			require.Len(t, got, len(tt.want))
			for i := range tt.want {
				assert.InDelta(t, tt.want[i], got[i], 1e-12)
			}
		})
	}
}

func TestFitQuality(t *testing.T) {
	assert.Zero(t, fitQuality([]float64{1, 2}, nil))
	assert.InDelta(t, 1.0, fitQuality([]float64{0, 10}, []float64{0, 0}), 1e-12)
	assert.InDelta(t, 0.5, fitQuality([]float64{0, 10}, []float64{5, -5}), 1e-12)
	assert.Zero(t, fitQuality([]float64{0, 10}, []float64{20}), "error beyond the span clamps to zero")
	assert.InDelta(t, 1.0, fitQuality([]float64{5, 5}, []float64{0}), 1e-12)
	assert.Zero(t, fitQuality([]float64{5, 5}, []float64{1}))
}
