package cascade

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PeterJemley/bridget-sub000/pkg/domain"
)

func TestHaversineKm(t *testing.T) {
	tests := []struct {
		name     string
		from     [2]float64
		to       [2]float64
		expected float64
		delta    float64
	}{
		{
			name:     "same point",
			from:     [2]float64{47.6598, -122.3767},
			to:       [2]float64{47.6598, -122.3767},
			expected: 0,
			delta:    1e-9,
		},
		{
			name:     "ballard to fremont",
			from:     [2]float64{47.6598, -122.3767},
			to:       [2]float64{47.6476, -122.3497},
			expected: 2.44,
			delta:    0.05,
		},
		{
			name:     "seattle to portland",
			from:     [2]float64{47.6062, -122.3321},
			to:       [2]float64{45.5152, -122.6784},
			expected: 234,
			delta:    3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := haversineKm(tt.from[0], tt.from[1], tt.to[0], tt.to[1])
			assert.InDelta(t, tt.expected, got, tt.delta)
		})
	}
}

func TestHaversineSymmetric(t *testing.T) {
	forward := haversineKm(47.6598, -122.3767, 47.6476, -122.3497)
	backward := haversineKm(47.6476, -122.3497, 47.6598, -122.3767)
	assert.InDelta(t, forward, backward, 1e-12)
}

func TestBuildProximityGraph(t *testing.T) {
	locations := []domain.EntityLocation{
		{EntityID: "ballard", Latitude: 47.6598, Longitude: -122.3767},
		{EntityID: "fremont", Latitude: 47.6476, Longitude: -122.3497},
		{EntityID: "faraway", Latitude: 47.7498, Longitude: -122.3767}, // ~10km north of ballard
		{EntityID: "", Latitude: 47.65, Longitude: -122.35},
	}

	graph := buildProximityGraph(locations, 5.0)

	d, ok := graph.distance("ballard", "fremont")
	require.True(t, ok)
	assert.InDelta(t, 2.44, d, 0.05)

	// Lookup is direction-independent.
	reverse, ok := graph.distance("fremont", "ballard")
	require.True(t, ok)
	assert.Equal(t, d, reverse)

	_, ok = graph.distance("ballard", "faraway")
	assert.False(t, ok)
	_, ok = graph.distance("ballard", "unknown")
	assert.False(t, ok)

	assert.Equal(t, 1, graph.edgeCount())
}

func TestBuildProximityGraphEmpty(t *testing.T) {
	assert.Equal(t, 0, buildProximityGraph(nil, 5.0).edgeCount())

	solo := []domain.EntityLocation{
		{EntityID: "ballard", Latitude: 47.6598, Longitude: -122.3767},
	}
	assert.Equal(t, 0, buildProximityGraph(solo, 5.0).edgeCount())
}
