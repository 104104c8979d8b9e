package analytics

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/PeterJemley/bridget-sub000/pkg/domain"
)

func closedEvent(entity string, open time.Time, minutes float64) domain.SpanEvent {
	closeTime := open.Add(time.Duration(minutes * float64(time.Minute)))
	return domain.SpanEvent{
		EntityID:        entity,
		OpenTime:        open,
		CloseTime:       &closeTime,
		DurationMinutes: minutes,
		Latitude:        47.6598,
		Longitude:       -122.3767,
	}
}

func openEvent(entity string, open time.Time) domain.SpanEvent {
	return domain.SpanEvent{
		EntityID:  entity,
		OpenTime:  open,
		Latitude:  47.6598,
		Longitude: -122.3767,
	}
}

func recordFor(records []domain.AnalyticsRecord, month time.Month, hour int) (domain.AnalyticsRecord, bool) {
	for _, r := range records {
		if r.Month == month && r.HourOfDay == hour {
			return r, true
		}
	}
	return domain.AnalyticsRecord{}, false
}

func TestAggregateEmptyInput(t *testing.T) {
	agg := NewAggregator(zaptest.NewLogger(t), DefaultConfig())

	records := agg.Aggregate(context.Background(), nil)
	assert.Empty(t, records)

	records = agg.Aggregate(context.Background(), []domain.SpanEvent{})
	assert.Empty(t, records)
}

func TestAggregateSingleBucket(t *testing.T) {
	agg := NewAggregator(zaptest.NewLogger(t), DefaultConfig())

	// Tuesdays in June 2025, all in the 08:00 hour.
	events := []domain.SpanEvent{
		closedEvent("ballard", time.Date(2025, time.June, 3, 8, 15, 0, 0, time.UTC), 12),
		closedEvent("ballard", time.Date(2025, time.June, 10, 8, 30, 0, 0, time.UTC), 20),
		closedEvent("ballard", time.Date(2025, time.June, 17, 8, 5, 0, 0, time.UTC), 40),
	}

	records := agg.Aggregate(context.Background(), events)
	require.Len(t, records, 1)

	r := records[0]
	assert.Equal(t, "ballard", r.EntityID)
	assert.Equal(t, 2025, r.Year)
	assert.Equal(t, time.June, r.Month)
	assert.Equal(t, time.Tuesday, r.DayOfWeek)
	assert.Equal(t, 8, r.HourOfDay)
	assert.Equal(t, 3, r.OpeningCount)
	assert.Equal(t, 72.0, r.TotalMinutesOpen)
	assert.Equal(t, 24.0, r.AverageMinutesPerOpening)
	assert.Equal(t, 40.0, r.LongestMinutes)
	assert.Equal(t, 12.0, r.ShortestMinutes)
	assert.Equal(t, 24.0, r.ExpectedDuration)
	assert.Equal(t, 1.0, r.ProbabilityOfOpening)
	assert.Equal(t, 0.3, r.Confidence)
}

func TestAggregateOpenEventsCountedWithoutDurations(t *testing.T) {
	agg := NewAggregator(zaptest.NewLogger(t), DefaultConfig())

	events := []domain.SpanEvent{
		closedEvent("ballard", time.Date(2025, time.June, 3, 8, 0, 0, 0, time.UTC), 10),
		closedEvent("ballard", time.Date(2025, time.June, 10, 8, 0, 0, 0, time.UTC), 30),
		openEvent("ballard", time.Date(2025, time.June, 17, 8, 0, 0, 0, time.UTC)),
	}

	records := agg.Aggregate(context.Background(), events)
	require.Len(t, records, 1)

	r := records[0]
	assert.Equal(t, 3, r.OpeningCount, "open spans still count as openings")
	assert.Equal(t, 40.0, r.TotalMinutesOpen)
	assert.Equal(t, 20.0, r.AverageMinutesPerOpening, "average uses closed spans only")
	assert.Equal(t, 30.0, r.LongestMinutes)
	assert.Equal(t, 10.0, r.ShortestMinutes)
}

func TestAggregateProbabilityNormalizedWithinSlice(t *testing.T) {
	agg := NewAggregator(zaptest.NewLogger(t), DefaultConfig())

	// Same entity, weekday, and hour in two months: one slice, two buckets.
	events := []domain.SpanEvent{
		closedEvent("fremont", time.Date(2025, time.June, 3, 8, 0, 0, 0, time.UTC), 15),
		closedEvent("fremont", time.Date(2025, time.June, 10, 8, 0, 0, 0, time.UTC), 15),
		closedEvent("fremont", time.Date(2025, time.June, 17, 8, 0, 0, 0, time.UTC), 15),
		closedEvent("fremont", time.Date(2025, time.December, 2, 8, 0, 0, 0, time.UTC), 15),
	}

	records := agg.Aggregate(context.Background(), events)
	require.Len(t, records, 2)

	june, ok := recordFor(records, time.June, 8)
	require.True(t, ok)
	december, ok := recordFor(records, time.December, 8)
	require.True(t, ok)

	assert.Equal(t, 0.75, june.ProbabilityOfOpening)
	assert.Equal(t, 0.25, december.ProbabilityOfOpening)
	assert.Equal(t, 1.0, june.ProbabilityOfOpening+december.ProbabilityOfOpening)
}

func TestAggregateConfidenceSaturates(t *testing.T) {
	agg := NewAggregator(zaptest.NewLogger(t), DefaultConfig())

	// 50 events split evenly between two well-separated buckets.
	tuesdays := []int{3, 10, 17, 24}
	fridays := []int{6, 13, 20, 27}
	var events []domain.SpanEvent
	for i := 0; i < 25; i++ {
		events = append(events, closedEvent("ballard",
			time.Date(2025, time.June, tuesdays[i%4], 8, i, 0, 0, time.UTC), 10))
		events = append(events, closedEvent("ballard",
			time.Date(2025, time.June, fridays[i%4], 17, i, 0, 0, time.UTC), 10))
	}

	records := agg.Aggregate(context.Background(), events)
	require.Len(t, records, 2)

	for _, r := range records {
		assert.Equal(t, 25, r.OpeningCount)
		assert.Equal(t, 1.0, r.Confidence, "count past the minimum sample size saturates")
	}
}

func TestAggregateIdempotent(t *testing.T) {
	agg := NewAggregator(zaptest.NewLogger(t), DefaultConfig())

	rng := rand.New(rand.NewSource(42))
	entities := []string{"ballard", "fremont", "university"}
	var events []domain.SpanEvent
	for i := 0; i < 120; i++ {
		open := time.Date(2025, time.Month(1+rng.Intn(12)), 1+rng.Intn(28),
			rng.Intn(24), rng.Intn(60), 0, 0, time.UTC)
		events = append(events, closedEvent(entities[rng.Intn(len(entities))], open, 5+rng.Float64()*55))
	}

	first := agg.Aggregate(context.Background(), events)
	second := agg.Aggregate(context.Background(), events)
	assert.Equal(t, first, second)

	// Input order must not matter either.
	reversed := make([]domain.SpanEvent, len(events))
	for i, ev := range events {
		reversed[len(events)-1-i] = ev
	}
	third := agg.Aggregate(context.Background(), reversed)
	assert.Equal(t, first, third)
}

func TestAggregateDropsMalformedEvents(t *testing.T) {
	agg := NewAggregator(zaptest.NewLogger(t), DefaultConfig())

	bad := closedEvent("ballard", time.Date(2025, time.June, 3, 8, 0, 0, 0, time.UTC), 10)
	bad.DurationMinutes = -10

	events := []domain.SpanEvent{
		closedEvent("ballard", time.Date(2025, time.June, 3, 8, 0, 0, 0, time.UTC), 12),
		bad,
		{OpenTime: time.Date(2025, time.June, 3, 8, 0, 0, 0, time.UTC)}, // missing entity
		closedEvent("ballard", time.Date(2025, time.June, 10, 8, 0, 0, 0, time.UTC), 18),
	}

	records := agg.Aggregate(context.Background(), events)
	require.Len(t, records, 1)
	assert.Equal(t, 2, records[0].OpeningCount)
	assert.Equal(t, 30.0, records[0].TotalMinutesOpen)
}

func TestAggregateBounds(t *testing.T) {
	agg := NewAggregator(zaptest.NewLogger(t), Config{MinimumSampleSize: 7})

	rng := rand.New(rand.NewSource(7))
	entities := []string{"ballard", "fremont", "montlake"}
	var events []domain.SpanEvent
	for i := 0; i < 300; i++ {
		open := time.Date(2024+rng.Intn(2), time.Month(1+rng.Intn(12)), 1+rng.Intn(28),
			rng.Intn(24), rng.Intn(60), 0, 0, time.UTC)
		ev := closedEvent(entities[rng.Intn(len(entities))], open, 1+rng.Float64()*90)
		if rng.Intn(5) == 0 {
			ev = openEvent(ev.EntityID, ev.OpenTime)
		}
		events = append(events, ev)
	}

	records := agg.Aggregate(context.Background(), events)
	require.NotEmpty(t, records)

	for _, r := range records {
		assert.GreaterOrEqual(t, r.ProbabilityOfOpening, 0.0)
		assert.LessOrEqual(t, r.ProbabilityOfOpening, 1.0)
		assert.GreaterOrEqual(t, r.Confidence, 0.0)
		assert.LessOrEqual(t, r.Confidence, 1.0)
		assert.Greater(t, r.OpeningCount, 0)
		if r.TotalMinutesOpen > 0 {
			assert.LessOrEqual(t, r.ShortestMinutes, r.AverageMinutesPerOpening)
			assert.LessOrEqual(t, r.AverageMinutesPerOpening, r.LongestMinutes)
		}
	}
}

func TestAggregateCancelledContext(t *testing.T) {
	agg := NewAggregator(zaptest.NewLogger(t), DefaultConfig())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	events := []domain.SpanEvent{
		closedEvent("ballard", time.Date(2025, time.June, 3, 8, 0, 0, 0, time.UTC), 12),
	}
	assert.Nil(t, agg.Aggregate(ctx, events))
}
