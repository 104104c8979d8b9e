package domain

import (
	"sort"
	"time"
)

// SpanEvent is a single opening of an entity: the span between the moment it
// opened and the moment it closed. Events are produced by the host's event
// source and are never mutated by the engines.
type SpanEvent struct {
	EntityID        string     `json:"entity_id" yaml:"entity_id"`
	EntityLabel     string     `json:"entity_label,omitempty" yaml:"entity_label,omitempty"`
	OpenTime        time.Time  `json:"open_time" yaml:"open_time"`
	CloseTime       *time.Time `json:"close_time,omitempty" yaml:"close_time,omitempty"`
	DurationMinutes float64    `json:"duration_minutes,omitempty" yaml:"duration_minutes,omitempty"`
	Latitude        float64    `json:"latitude,omitempty" yaml:"latitude,omitempty"`
	Longitude       float64    `json:"longitude,omitempty" yaml:"longitude,omitempty"`
}

// Closed reports whether the span has a close time.
func (e SpanEvent) Closed() bool {
	return e.CloseTime != nil
}

// HasDuration reports whether the event carries a usable duration. Durations
// are only defined once the span has closed, and negative values are treated
// as malformed input.
func (e SpanEvent) HasDuration() bool {
	return e.CloseTime != nil && e.DurationMinutes >= 0
}

// Valid reports whether the event is well-formed enough to participate in
// aggregation and cascade detection. A missing entity ID or open time, a
// close time preceding the open time, or a negative duration all disqualify
// the event; the engines drop invalid events instead of failing the run.
func (e SpanEvent) Valid() bool {
	if e.EntityID == "" || e.OpenTime.IsZero() {
		return false
	}
	if e.CloseTime != nil {
		if e.CloseTime.Before(e.OpenTime) {
			return false
		}
		if e.DurationMinutes < 0 {
			return false
		}
	}
	return true
}

// ValidEvents returns the well-formed subset of events, preserving order.
// The input slice is not modified.
func ValidEvents(events []SpanEvent) []SpanEvent {
	valid := make([]SpanEvent, 0, len(events))
	for _, e := range events {
		if e.Valid() {
			valid = append(valid, e)
		}
	}
	return valid
}

// SortedByOpenTime returns a chronologically sorted copy of events. The sort
// is stable so events opening at the same instant keep their input order.
func SortedByOpenTime(events []SpanEvent) []SpanEvent {
	sorted := make([]SpanEvent, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].OpenTime.Before(sorted[j].OpenTime)
	})
	return sorted
}

// EntityLocation is the static position of an entity, supplied by the host.
// Only the cascade engine consumes locations; entities without one simply
// never participate in proximity edges.
type EntityLocation struct {
	EntityID  string  `json:"entity_id" yaml:"entity_id"`
	Latitude  float64 `json:"latitude" yaml:"latitude"`
	Longitude float64 `json:"longitude" yaml:"longitude"`
}
