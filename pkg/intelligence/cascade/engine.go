// Package cascade infers directed trigger/target relationships between
// entities whose span events cluster in time and space.
//
// Detection is a pure function of the event snapshot and entity locations:
// a proximity graph is built from static coordinates, chronologically
// ordered events are scanned for pairs opening within a bounded window of
// each other, and every candidate is scored on four normalized factors.
// The weak/moderate/strong bands come from quantile cut points over the
// run's own strength distribution, so classification adapts to the dataset
// at hand instead of relying on fixed constants.
package cascade

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/PeterJemley/bridget-sub000/pkg/domain"
	"github.com/PeterJemley/bridget-sub000/pkg/intelligence/stats"
)

// cancelCheckStride bounds how many trigger events are scanned between
// context checks.
const cancelCheckStride = 256

// Config tunes cascade detection.
type Config struct {
	// WindowMin and WindowMax bound the trigger-to-target delay. Both
	// edges are inclusive.
	WindowMin time.Duration `yaml:"window_min" json:"window_min"`
	WindowMax time.Duration `yaml:"window_max" json:"window_max"`

	// MaxDistanceKm is the largest great-circle distance at which two
	// entities are considered proximate.
	MaxDistanceKm float64 `yaml:"max_distance_km" json:"max_distance_km"`

	// ImmediateCutoff splits records into immediate and delayed timing
	// classes, independent of the strength band.
	ImmediateCutoff time.Duration `yaml:"immediate_cutoff" json:"immediate_cutoff"`

	// Weights control the relative contribution of the strength factors.
	Weights FactorWeights `yaml:"weights" json:"weights"`
}

// DefaultConfig returns production-ready defaults.
func DefaultConfig() Config {
	return Config{
		WindowMin:       30 * time.Minute,
		WindowMax:       90 * time.Minute,
		MaxDistanceKm:   5.0,
		ImmediateCutoff: 35 * time.Minute,
		Weights:         DefaultFactorWeights(),
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.WindowMin < 0 {
		c.WindowMin = def.WindowMin
	}
	if c.WindowMax <= c.WindowMin {
		c.WindowMin = def.WindowMin
		c.WindowMax = def.WindowMax
	}
	if c.MaxDistanceKm <= 0 {
		c.MaxDistanceKm = def.MaxDistanceKm
	}
	if c.ImmediateCutoff <= 0 {
		c.ImmediateCutoff = def.ImmediateCutoff
	}
	if c.Weights.sum() <= 0 {
		c.Weights = def.Weights
	}
	return c
}

// Detector finds cascade relationships in an event snapshot. It holds no
// state between calls; the historical pair prior is rebuilt per run.
type Detector struct {
	logger  *zap.Logger
	config  Config
	tracer  trace.Tracer
	metrics *detectorMetrics
}

// NewDetector creates a detector. A nil logger is replaced with a nop
// logger; out-of-range config values fall back to defaults.
func NewDetector(logger *zap.Logger, config Config) *Detector {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Detector{
		logger:  logger,
		config:  config.withDefaults(),
		tracer:  otel.Tracer("bridget.cascade"),
		metrics: newDetectorMetrics(logger),
	}
}

// candidate is a scored trigger/target pair awaiting classification.
type candidate struct {
	trigger  domain.SpanEvent
	target   domain.SpanEvent
	delay    time.Duration
	strength float64
}

// Detect scans an event snapshot for trigger/target pairs whose entities
// are proximate and whose openings fall inside the cascade window, scores
// each pair, and classifies the scores against quantile cut points from
// this run's strength distribution. Malformed events are dropped up front.
// An empty slice comes back when fewer than two valid events, no location
// data, or no proximate pair exists; cancellation returns nil.
func (d *Detector) Detect(ctx context.Context, events []domain.SpanEvent, locations []domain.EntityLocation) []domain.CascadeRecord {
	start := time.Now()
	ctx, span := d.tracer.Start(ctx, "cascade.detect",
		trace.WithAttributes(
			attribute.Int("events.count", len(events)),
			attribute.Int("locations.count", len(locations)),
		),
	)
	defer span.End()

	valid := domain.ValidEvents(events)
	if len(valid) < 2 {
		return []domain.CascadeRecord{}
	}

	graph := buildProximityGraph(locations, d.config.MaxDistanceKm)
	if graph.edgeCount() == 0 {
		d.logger.Debug("No proximate entity pairs", zap.Int("locations", len(locations)))
		return []domain.CascadeRecord{}
	}

	sorted := domain.SortedByOpenTime(valid)
	history := newPairHistory()
	sc := scorer{
		windowMin:     d.config.WindowMin,
		windowMax:     d.config.WindowMax,
		maxDistanceKm: d.config.MaxDistanceKm,
		weights:       d.config.Weights,
	}

	examined := 0
	var candidates []candidate
	for i, trigger := range sorted {
		if i%cancelCheckStride == 0 && ctx.Err() != nil {
			d.logger.Debug("Cascade detection cancelled", zap.Int("events_seen", i))
			return nil
		}

		for j := i + 1; j < len(sorted); j++ {
			target := sorted[j]
			delay := target.OpenTime.Sub(trigger.OpenTime)
			if delay > d.config.WindowMax {
				break
			}
			if delay <= 0 || target.EntityID == trigger.EntityID {
				continue
			}
			distanceKm, proximate := graph.distance(trigger.EntityID, target.EntityID)
			if !proximate {
				continue
			}

			examined++
			qualified := delay >= d.config.WindowMin
			historical := history.observe(trigger.EntityID, target.EntityID, qualified)
			if !qualified {
				continue
			}

			strength := sc.strength(
				sc.temporalFactor(delay),
				sc.spatialFactor(distanceKm),
				sc.durationFactor(trigger.DurationMinutes, target.DurationMinutes),
				historical,
			)
			candidates = append(candidates, candidate{
				trigger:  trigger,
				target:   target,
				delay:    delay,
				strength: strength,
			})
		}
	}

	records := d.classify(ctx, candidates)

	elapsed := time.Since(start)
	span.SetAttributes(
		attribute.Int("pairs.examined", examined),
		attribute.Int("records.count", len(records)),
	)
	d.metrics.recordRun(ctx, examined, records, elapsed)
	d.logger.Debug("Detected cascades",
		zap.Int("events", len(sorted)),
		zap.Int("pairs_examined", examined),
		zap.Int("records", len(records)),
		zap.Duration("elapsed", elapsed),
	)

	return records
}

// classify turns scored candidates into records. Strength bands are cut at
// the 25th and 50th percentiles of this run's strengths: the weakest
// quarter lands in the weak band and everything at or above the median is
// strong.
func (d *Detector) classify(ctx context.Context, candidates []candidate) []domain.CascadeRecord {
	records := make([]domain.CascadeRecord, 0, len(candidates))
	if len(candidates) == 0 {
		return records
	}

	strengths := make([]float64, len(candidates))
	for i, c := range candidates {
		strengths[i] = c.strength
	}
	cuts := stats.StrengthCutPoints(strengths)

	for i, c := range candidates {
		if i%cancelCheckStride == 0 && ctx.Err() != nil {
			return records
		}
		records = append(records, domain.CascadeRecord{
			ID:                     uuid.NewString(),
			TriggerEntityID:        c.trigger.EntityID,
			TriggerTime:            c.trigger.OpenTime,
			TriggerDurationMinutes: c.trigger.DurationMinutes,
			TargetEntityID:         c.target.EntityID,
			TargetTime:             c.target.OpenTime,
			TargetDurationMinutes:  c.target.DurationMinutes,
			DelayMinutes:           c.delay.Minutes(),
			Strength:               c.strength,
			Classification:         classificationFor(c.strength, cuts),
			Timing:                 d.timingFor(c.delay),
		})
	}
	return records
}

func classificationFor(strength float64, cuts stats.CutPoints) domain.CascadeClassification {
	switch {
	case strength < cuts.Lower:
		return domain.CascadeWeak
	case strength < cuts.Middle:
		return domain.CascadeModerate
	default:
		return domain.CascadeStrong
	}
}

func (d *Detector) timingFor(delay time.Duration) domain.CascadeTiming {
	if delay < d.config.ImmediateCutoff {
		return domain.CascadeImmediate
	}
	return domain.CascadeDelayed
}
