package domain

import "time"

// CascadeClassification buckets a cascade's strength score. The cut points
// between the buckets are quantiles of the strengths observed in the same
// detection run rather than fixed constants, so the labels stay meaningful
// on sparse and dense datasets alike.
type CascadeClassification string

const (
	CascadeWeak     CascadeClassification = "weak"
	CascadeModerate CascadeClassification = "moderate"
	CascadeStrong   CascadeClassification = "strong"
)

// CascadeTiming tags how quickly the target followed the trigger,
// independent of the strength bucket.
type CascadeTiming string

const (
	CascadeImmediate CascadeTiming = "immediate"
	CascadeDelayed   CascadeTiming = "delayed"
)

// CascadeRecord is one detected trigger -> target relationship instance: the
// target entity opened inside the cascade window after the trigger entity,
// and the two sit close enough for the opening to plausibly propagate.
// The same entity pair may appear in any number of records across different
// event occurrences.
type CascadeRecord struct {
	ID string `json:"id" yaml:"id"`

	TriggerEntityID        string    `json:"trigger_entity_id" yaml:"trigger_entity_id"`
	TriggerTime            time.Time `json:"trigger_time" yaml:"trigger_time"`
	TriggerDurationMinutes float64   `json:"trigger_duration_minutes" yaml:"trigger_duration_minutes"`

	TargetEntityID        string    `json:"target_entity_id" yaml:"target_entity_id"`
	TargetTime            time.Time `json:"target_time" yaml:"target_time"`
	TargetDurationMinutes float64   `json:"target_duration_minutes" yaml:"target_duration_minutes"`

	DelayMinutes   float64               `json:"delay_minutes" yaml:"delay_minutes"`
	Strength       float64               `json:"strength" yaml:"strength"`
	Classification CascadeClassification `json:"classification" yaml:"classification"`
	Timing         CascadeTiming         `json:"timing" yaml:"timing"`
}
