package cascade

import (
	"math"
	"time"

	"github.com/PeterJemley/bridget-sub000/pkg/intelligence/stats"
)

// FactorWeights defines the relative importance of the four strength
// factors. Weights are normalized by their sum when combined, so they do
// not need to add up to 1.
type FactorWeights struct {
	Temporal   float64 `yaml:"temporal" json:"temporal"`
	Spatial    float64 `yaml:"spatial" json:"spatial"`
	Duration   float64 `yaml:"duration" json:"duration"`
	Historical float64 `yaml:"historical" json:"historical"`
}

// DefaultFactorWeights returns equal weights for all four factors.
func DefaultFactorWeights() FactorWeights {
	return FactorWeights{
		Temporal:   0.25,
		Spatial:    0.25,
		Duration:   0.25,
		Historical: 0.25,
	}
}

func (w FactorWeights) sum() float64 {
	return w.Temporal + w.Spatial + w.Duration + w.Historical
}

// pairKey identifies an ordered (trigger, target) entity pair.
type pairKey struct {
	trigger string
	target  string
}

// pairCounts tracks how often a pair has been examined during the forward
// scan and how often the examination fell inside the cascade window.
type pairCounts struct {
	qualified int
	total     int
}

// pairHistory is the running qualifying-frequency prior over ordered
// entity pairs. It is rebuilt for every detection run, which keeps Detect
// a pure function of its inputs.
type pairHistory struct {
	counts map[pairKey]*pairCounts
}

func newPairHistory() *pairHistory {
	return &pairHistory{counts: make(map[pairKey]*pairCounts)}
}

// observe returns the qualifying frequency accumulated for the pair before
// this observation, then folds the observation in. A pair with no history
// scores a neutral 0.5.
func (h *pairHistory) observe(trigger, target string, qualified bool) float64 {
	key := pairKey{trigger: trigger, target: target}
	counts, ok := h.counts[key]
	if !ok {
		counts = &pairCounts{}
		h.counts[key] = counts
	}

	prior := 0.5
	if counts.total > 0 {
		prior = float64(counts.qualified) / float64(counts.total)
	}

	counts.total++
	if qualified {
		counts.qualified++
	}
	return prior
}

// scorer computes candidate strengths from the four normalized factors.
type scorer struct {
	windowMin     time.Duration
	windowMax     time.Duration
	maxDistanceKm float64
	weights       FactorWeights
}

// temporalFactor peaks at the window midpoint and decays linearly toward
// both window edges.
func (s scorer) temporalFactor(delay time.Duration) float64 {
	halfWidth := (s.windowMax - s.windowMin).Minutes() / 2
	if halfWidth <= 0 {
		return 1
	}
	midpoint := (s.windowMin + s.windowMax).Minutes() / 2
	return stats.Clamp01(1 - math.Abs(delay.Minutes()-midpoint)/halfWidth)
}

// spatialFactor scores closer pairs higher, reaching 0 at the distance
// cutoff.
func (s scorer) spatialFactor(distanceKm float64) float64 {
	if s.maxDistanceKm <= 0 {
		return 0
	}
	return stats.Clamp01(1 - distanceKm/s.maxDistanceKm)
}

// durationFactor rewards similar opening durations as evidence of a shared
// cause. A still-open span carries a zero duration.
func (s scorer) durationFactor(triggerMinutes, targetMinutes float64) float64 {
	denom := math.Max(triggerMinutes, math.Max(targetMinutes, 1))
	return stats.Clamp01(1 - math.Abs(triggerMinutes-targetMinutes)/denom)
}

// strength combines the four factors under the configured weights.
func (s scorer) strength(temporal, spatial, duration, historical float64) float64 {
	total := s.weights.sum()
	if total <= 0 {
		return 0
	}
	weighted := s.weights.Temporal*temporal +
		s.weights.Spatial*spatial +
		s.weights.Duration*duration +
		s.weights.Historical*historical
	return stats.Clamp01(weighted / total)
}
