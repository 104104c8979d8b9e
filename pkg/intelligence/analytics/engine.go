// Package analytics aggregates span events into per-entity, per-time-bucket
// statistical summaries. Aggregation is a pure function of the event
// snapshot: identical inputs always produce identical output, which makes
// fingerprint-keyed caching by the host safe.
package analytics

import (
	"context"
	"sort"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/PeterJemley/bridget-sub000/pkg/domain"
)

// cancelCheckStride bounds how many events are processed between context
// checks during accumulation.
const cancelCheckStride = 1024

// Config tunes the aggregator.
type Config struct {
	// MinimumSampleSize is the bucket observation count at which
	// confidence saturates at 1.0.
	MinimumSampleSize int `yaml:"minimum_sample_size" json:"minimum_sample_size"`
}

// DefaultConfig returns production-ready defaults.
func DefaultConfig() Config {
	return Config{
		MinimumSampleSize: 10,
	}
}

// Aggregator groups span events into (entity, year, month, weekday, hour)
// buckets and derives count, duration, probability, and confidence
// statistics per bucket. It holds no state between calls.
type Aggregator struct {
	logger  *zap.Logger
	config  Config
	tracer  trace.Tracer
	metrics *aggregatorMetrics
}

// NewAggregator creates an aggregator. A nil logger is replaced with a nop
// logger; a non-positive minimum sample size falls back to the default.
func NewAggregator(logger *zap.Logger, config Config) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.MinimumSampleSize <= 0 {
		config.MinimumSampleSize = DefaultConfig().MinimumSampleSize
	}

	return &Aggregator{
		logger:  logger,
		config:  config,
		tracer:  otel.Tracer("bridget.analytics"),
		metrics: newAggregatorMetrics(logger),
	}
}

// bucketAccumulator collects one bucket's running totals during a pass over
// the event snapshot.
type bucketAccumulator struct {
	key          domain.BucketKey
	count        int
	closedCount  int
	totalMinutes float64
	longest      float64
	shortest     float64
}

// Aggregate recomputes the full set of analytics records from an event
// snapshot. Buckets with zero observations are not materialized, malformed
// events are dropped rather than failing the run, and still-open events
// count toward opening counts but contribute nothing to duration statistics.
// On cancellation the partial result accumulated so far is returned.
func (a *Aggregator) Aggregate(ctx context.Context, events []domain.SpanEvent) []domain.AnalyticsRecord {
	start := time.Now()
	ctx, span := a.tracer.Start(ctx, "analytics.aggregate",
		trace.WithAttributes(attribute.Int("events.count", len(events))),
	)
	defer span.End()

	buckets := make(map[domain.BucketKey]*bucketAccumulator)
	sliceTotals := make(map[domain.SliceKey]int)

	dropped := 0
	for i, event := range events {
		if i%cancelCheckStride == 0 && ctx.Err() != nil {
			a.logger.Debug("Aggregation cancelled", zap.Int("events_seen", i))
			return nil
		}

		if !event.Valid() {
			dropped++
			continue
		}

		key := domain.BucketKeyFor(event.EntityID, event.OpenTime)
		acc, ok := buckets[key]
		if !ok {
			acc = &bucketAccumulator{key: key}
			buckets[key] = acc
		}

		acc.count++
		sliceTotals[key.Slice()]++

		if event.HasDuration() {
			d := event.DurationMinutes
			acc.totalMinutes += d
			if acc.closedCount == 0 {
				acc.longest = d
				acc.shortest = d
			} else {
				if d > acc.longest {
					acc.longest = d
				}
				if d < acc.shortest {
					acc.shortest = d
				}
			}
			acc.closedCount++
		}
	}

	records := make([]domain.AnalyticsRecord, 0, len(buckets))
	for _, acc := range buckets {
		if ctx.Err() != nil {
			break
		}
		records = append(records, a.buildRecord(acc, sliceTotals[acc.key.Slice()]))
	}

	// A deterministic order makes repeated aggregations comparable
	// byte-for-byte, not just as sets.
	sort.Slice(records, func(i, j int) bool {
		return lessRecord(records[i], records[j])
	})

	elapsed := time.Since(start)
	span.SetAttributes(
		attribute.Int("records.count", len(records)),
		attribute.Int("events.dropped", dropped),
	)
	a.metrics.recordRun(ctx, len(events), len(records), elapsed)
	a.logger.Debug("Aggregated span events",
		zap.Int("events", len(events)),
		zap.Int("dropped", dropped),
		zap.Int("records", len(records)),
		zap.Duration("elapsed", elapsed),
	)

	return records
}

// buildRecord finalizes one bucket's statistics. sliceTotal is the number
// of events for the same entity across all buckets sharing this bucket's
// weekday+hour slice; it is always ≥ the bucket's own count.
func (a *Aggregator) buildRecord(acc *bucketAccumulator, sliceTotal int) domain.AnalyticsRecord {
	record := domain.AnalyticsRecord{
		EntityID:     acc.key.EntityID,
		Year:         acc.key.Year,
		Month:        acc.key.Month,
		DayOfWeek:    acc.key.DayOfWeek,
		HourOfDay:    acc.key.HourOfDay,
		OpeningCount: acc.count,
	}

	if acc.closedCount > 0 {
		record.TotalMinutesOpen = acc.totalMinutes
		record.AverageMinutesPerOpening = acc.totalMinutes / float64(acc.closedCount)
		record.LongestMinutes = acc.longest
		record.ShortestMinutes = acc.shortest
	}

	// Expected duration is the historical average for the bucket; with no
	// closed observations it stays 0.
	record.ExpectedDuration = record.AverageMinutesPerOpening

	record.ProbabilityOfOpening = sliceProbability(acc.count, sliceTotal)
	record.Confidence = saturatingConfidence(acc.count, a.config.MinimumSampleSize)

	return record
}

func lessRecord(a, b domain.AnalyticsRecord) bool {
	if a.EntityID != b.EntityID {
		return a.EntityID < b.EntityID
	}
	if a.Year != b.Year {
		return a.Year < b.Year
	}
	if a.Month != b.Month {
		return a.Month < b.Month
	}
	if a.DayOfWeek != b.DayOfWeek {
		return a.DayOfWeek < b.DayOfWeek
	}
	return a.HourOfDay < b.HourOfDay
}
