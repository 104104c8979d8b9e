package domain

import "time"

// BucketKey identifies one aggregation bucket: an entity observed in a
// specific calendar year and month, on a specific weekday, at a specific
// hour of day. Buckets with no observations are never materialized.
type BucketKey struct {
	EntityID  string       `json:"entity_id" yaml:"entity_id"`
	Year      int          `json:"year" yaml:"year"`
	Month     time.Month   `json:"month" yaml:"month"`
	DayOfWeek time.Weekday `json:"day_of_week" yaml:"day_of_week"`
	HourOfDay int          `json:"hour_of_day" yaml:"hour_of_day"`
}

// BucketKeyFor derives the bucket an event's open time falls into.
func BucketKeyFor(entityID string, openTime time.Time) BucketKey {
	return BucketKey{
		EntityID:  entityID,
		Year:      openTime.Year(),
		Month:     openTime.Month(),
		DayOfWeek: openTime.Weekday(),
		HourOfDay: openTime.Hour(),
	}
}

// SliceKey is the weekday+hour portion of the key, shared by all buckets of
// one entity across months and years. Opening probability is normalized
// within a slice so rush hours and off-peak hours are never conflated.
type SliceKey struct {
	EntityID  string
	DayOfWeek time.Weekday
	HourOfDay int
}

// Slice returns the weekday+hour slice this bucket belongs to.
func (k BucketKey) Slice() SliceKey {
	return SliceKey{EntityID: k.EntityID, DayOfWeek: k.DayOfWeek, HourOfDay: k.HourOfDay}
}

// AnalyticsRecord is the per-bucket statistical summary derived from span
// events. Records are recomputed wholesale from an event snapshot on every
// aggregation; there is no incremental mutation.
type AnalyticsRecord struct {
	EntityID  string       `json:"entity_id" yaml:"entity_id"`
	Year      int          `json:"year" yaml:"year"`
	Month     time.Month   `json:"month" yaml:"month"`
	DayOfWeek time.Weekday `json:"day_of_week" yaml:"day_of_week"`
	HourOfDay int          `json:"hour_of_day" yaml:"hour_of_day"`

	OpeningCount             int     `json:"opening_count" yaml:"opening_count"`
	TotalMinutesOpen         float64 `json:"total_minutes_open" yaml:"total_minutes_open"`
	AverageMinutesPerOpening float64 `json:"average_minutes_per_opening" yaml:"average_minutes_per_opening"`
	LongestMinutes           float64 `json:"longest_minutes" yaml:"longest_minutes"`
	ShortestMinutes          float64 `json:"shortest_minutes" yaml:"shortest_minutes"`
	ProbabilityOfOpening     float64 `json:"probability_of_opening" yaml:"probability_of_opening"`
	ExpectedDuration         float64 `json:"expected_duration" yaml:"expected_duration"`
	Confidence               float64 `json:"confidence" yaml:"confidence"`
}

// Key returns the bucket key the record was aggregated under.
func (r AnalyticsRecord) Key() BucketKey {
	return BucketKey{
		EntityID:  r.EntityID,
		Year:      r.Year,
		Month:     r.Month,
		DayOfWeek: r.DayOfWeek,
		HourOfDay: r.HourOfDay,
	}
}
