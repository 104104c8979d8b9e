package cascade

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func defaultScorer() scorer {
	return scorer{
		windowMin:     30 * time.Minute,
		windowMax:     90 * time.Minute,
		maxDistanceKm: 5.0,
		weights:       DefaultFactorWeights(),
	}
}

func TestTemporalFactor(t *testing.T) {
	tests := []struct {
		name     string
		delay    time.Duration
		expected float64
	}{
		{
			name:     "window midpoint peaks",
			delay:    60 * time.Minute,
			expected: 1.0,
		},
		{
			name:     "lower edge scores zero",
			delay:    30 * time.Minute,
			expected: 0.0,
		},
		{
			name:     "upper edge scores zero",
			delay:    90 * time.Minute,
			expected: 0.0,
		},
		{
			name:     "halfway to lower edge",
			delay:    45 * time.Minute,
			expected: 0.5,
		},
		{
			name:     "halfway to upper edge",
			delay:    75 * time.Minute,
			expected: 0.5,
		},
	}

	s := defaultScorer()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, s.temporalFactor(tt.delay), 1e-9)
		})
	}
}

func TestTemporalFactorDegenerateWindow(t *testing.T) {
	s := defaultScorer()
	s.windowMin = 45 * time.Minute
	s.windowMax = 45 * time.Minute
	assert.Equal(t, 1.0, s.temporalFactor(45*time.Minute))
}

func TestSpatialFactor(t *testing.T) {
	s := defaultScorer()

	assert.InDelta(t, 1.0, s.spatialFactor(0), 1e-9)
	assert.InDelta(t, 0.6, s.spatialFactor(2.0), 1e-9)
	assert.InDelta(t, 0.0, s.spatialFactor(5.0), 1e-9)
	assert.Equal(t, 0.0, s.spatialFactor(8.0), "beyond the cutoff clamps to zero")
}

func TestDurationFactor(t *testing.T) {
	tests := []struct {
		name     string
		trigger  float64
		target   float64
		expected float64
	}{
		{
			name:     "identical durations",
			trigger:  12,
			target:   12,
			expected: 1.0,
		},
		{
			name:     "half overlap",
			trigger:  10,
			target:   5,
			expected: 0.5,
		},
		{
			name:     "open target contributes zero duration",
			trigger:  10,
			target:   0,
			expected: 0.0,
		},
		{
			name:     "both zero",
			trigger:  0,
			target:   0,
			expected: 1.0,
		},
	}

	s := defaultScorer()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, s.durationFactor(tt.trigger, tt.target), 1e-9)
		})
	}
}

func TestPairHistoryNeutralPrior(t *testing.T) {
	h := newPairHistory()
	assert.Equal(t, 0.5, h.observe("ballard", "fremont", true))
}

func TestPairHistoryRunningFrequency(t *testing.T) {
	h := newPairHistory()

	h.observe("ballard", "fremont", true)
	assert.Equal(t, 1.0, h.observe("ballard", "fremont", false), "one of one qualified so far")
	assert.Equal(t, 0.5, h.observe("ballard", "fremont", true), "one of two qualified so far")
	assert.InDelta(t, 2.0/3.0, h.observe("ballard", "fremont", true), 1e-9)

	// The reverse direction is a distinct pair.
	assert.Equal(t, 0.5, h.observe("fremont", "ballard", true))
}

func TestStrengthEqualWeights(t *testing.T) {
	s := defaultScorer()
	assert.InDelta(t, 0.65, s.strength(0.5, 0.6, 1.0, 0.5), 1e-9)
	assert.Equal(t, 0.0, s.strength(0, 0, 0, 0))
	assert.Equal(t, 1.0, s.strength(1, 1, 1, 1))
}

func TestStrengthUnnormalizedWeights(t *testing.T) {
	s := defaultScorer()
	s.weights = FactorWeights{Temporal: 2, Spatial: 2, Duration: 2, Historical: 2}
	assert.InDelta(t, 0.65, s.strength(0.5, 0.6, 1.0, 0.5), 1e-9)

	s.weights = FactorWeights{}
	assert.Equal(t, 0.0, s.strength(0.5, 0.6, 1.0, 0.5))
}
