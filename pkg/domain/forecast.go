package domain

import "time"

// Forecast is a short-horizon prediction for one entity: how likely it is to
// open inside the horizon, how long the opening would last, and how much the
// fitted model should be trusted. One forecast per entity per invocation.
type Forecast struct {
	ID       string `json:"id" yaml:"id"`
	EntityID string `json:"entity_id" yaml:"entity_id"`

	GeneratedAt    time.Time `json:"generated_at" yaml:"generated_at"`
	HorizonMinutes float64   `json:"horizon_minutes" yaml:"horizon_minutes"`

	Probability             float64     `json:"probability" yaml:"probability"`
	ExpectedDurationMinutes float64     `json:"expected_duration_minutes" yaml:"expected_duration_minutes"`
	Confidence              float64     `json:"confidence" yaml:"confidence"`
	ModelTier               ComputeTier `json:"model_tier" yaml:"model_tier"`

	// Rationale is a human-readable explanation of the forecast. When a
	// recent cascade trigger boosted the probability, the rationale names
	// the triggering entity.
	Rationale string `json:"rationale" yaml:"rationale"`
}
