// Package prediction fits tiered autoregressive-moving-average models over
// a single entity's span history and emits short-horizon forecasts.
//
// The caller supplies a compute tier that buys model complexity: minimal
// fits AR(1) from the lag-1 correlation, standard and advanced solve
// Yule-Walker systems for AR(2) and AR(3), and expert refines AR(4) plus an
// MA(1) term with a damped Gauss-Newton iteration. Numerical instability
// degrades the fit one tier at a time instead of surfacing an error, so a
// forecast request never fails on a solvable series.
package prediction

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/PeterJemley/bridget-sub000/pkg/domain"
	"github.com/PeterJemley/bridget-sub000/pkg/intelligence/stats"
)

// minimumIntervalMinutes floors the forecast inter-opening interval before
// it divides the horizon.
const minimumIntervalMinutes = 1e-6

// Config tunes the prediction engine.
type Config struct {
	// Horizon is the forecast window when a request does not carry its
	// own.
	Horizon time.Duration `yaml:"horizon" json:"horizon"`

	// MinimumEvents is the entity history length below which no model is
	// fitted and no forecast is produced.
	MinimumEvents int `yaml:"minimum_events" json:"minimum_events"`

	// CascadeWindow is how far back from now a cascade trigger still
	// counts as recent enough to boost the probability.
	CascadeWindow time.Duration `yaml:"cascade_window" json:"cascade_window"`

	// CascadeBoostFactor scales a triggering record's strength into the
	// additive probability boost.
	CascadeBoostFactor float64 `yaml:"cascade_boost_factor" json:"cascade_boost_factor"`

	// ProbabilityCap bounds the boosted probability to avoid false
	// certainty.
	ProbabilityCap float64 `yaml:"probability_cap" json:"probability_cap"`

	// MissingAnalyticsPenalty scales fit quality down when no analytics
	// record exists for the current time bucket.
	MissingAnalyticsPenalty float64 `yaml:"missing_analytics_penalty" json:"missing_analytics_penalty"`

	// PressureSteepness is the logistic steepness applied to the opening
	// pressure score.
	PressureSteepness float64 `yaml:"pressure_steepness" json:"pressure_steepness"`
}

// DefaultConfig returns production-ready defaults.
func DefaultConfig() Config {
	return Config{
		Horizon:                 60 * time.Minute,
		MinimumEvents:           3,
		CascadeWindow:           90 * time.Minute,
		CascadeBoostFactor:      0.15,
		ProbabilityCap:          0.95,
		MissingAnalyticsPenalty: 0.7,
		PressureSteepness:       2.0,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.Horizon <= 0 {
		c.Horizon = def.Horizon
	}
	if c.MinimumEvents <= 0 {
		c.MinimumEvents = def.MinimumEvents
	}
	if c.CascadeWindow <= 0 {
		c.CascadeWindow = def.CascadeWindow
	}
	if c.CascadeBoostFactor <= 0 {
		c.CascadeBoostFactor = def.CascadeBoostFactor
	}
	if c.ProbabilityCap <= 0 || c.ProbabilityCap > 1 {
		c.ProbabilityCap = def.ProbabilityCap
	}
	if c.MissingAnalyticsPenalty <= 0 || c.MissingAnalyticsPenalty > 1 {
		c.MissingAnalyticsPenalty = def.MissingAnalyticsPenalty
	}
	if c.PressureSteepness <= 0 {
		c.PressureSteepness = def.PressureSteepness
	}
	return c
}

// Request carries one entity's forecasting inputs. Events may span many
// entities; the engine filters to the requested one. Analytics and
// Cascades are optional context from the other engines.
type Request struct {
	EntityID  string
	Events    []domain.SpanEvent
	Analytics []domain.AnalyticsRecord
	Cascades  []domain.CascadeRecord
	Tier      domain.ComputeTier

	// Now anchors bucket lookup and cascade recency; the zero value means
	// the wall clock.
	Now time.Time

	// Horizon overrides the configured forecast window when positive.
	Horizon time.Duration
}

// Engine fits per-entity forecast models. It holds no state between calls.
type Engine struct {
	logger  *zap.Logger
	config  Config
	tracer  trace.Tracer
	metrics *engineMetrics
}

// NewEngine creates a prediction engine. A nil logger is replaced with a
// nop logger; out-of-range config values fall back to defaults.
func NewEngine(logger *zap.Logger, config Config) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Engine{
		logger:  logger,
		config:  config.withDefaults(),
		tracer:  otel.Tracer("bridget.prediction"),
		metrics: newEngineMetrics(logger),
	}
}

// Forecast fits the tier's model over the entity's history and produces
// one forecast. It returns nil, never an error, when fewer than the
// minimum number of events exist for the entity or the context is
// cancelled; numerical trouble during fitting degrades the tier instead.
func (e *Engine) Forecast(ctx context.Context, req Request) *domain.Forecast {
	start := time.Now()
	ctx, span := e.tracer.Start(ctx, "prediction.forecast",
		trace.WithAttributes(
			attribute.String("entity.id", req.EntityID),
			attribute.String("tier.requested", req.Tier.String()),
		),
	)
	defer span.End()

	now := req.Now
	if now.IsZero() {
		now = time.Now()
	}
	horizon := req.Horizon
	if horizon <= 0 {
		horizon = e.config.Horizon
	}

	history := entityHistory(req.EntityID, req.Events)
	if len(history) < e.config.MinimumEvents {
		e.logger.Debug("Insufficient history for forecast",
			zap.String("entity_id", req.EntityID),
			zap.Int("events", len(history)),
			zap.Int("minimum", e.config.MinimumEvents),
		)
		e.metrics.recordSkip(ctx)
		return nil
	}
	if ctx.Err() != nil {
		return nil
	}

	tier := req.Tier.Normalize()
	intervals := intervalSeries(history)
	durations := durationSeries(history)

	intervalModel := fitSeries(ctx, intervals, tier)
	durationModel := fitSeries(ctx, durations, tier)
	if ctx.Err() != nil {
		return nil
	}

	nextInterval := intervalModel.forecastNext(intervals)
	if nextInterval < minimumIntervalMinutes {
		nextInterval = minimumIntervalMinutes
	}
	pressure := horizon.Minutes() / nextInterval
	probability := stats.Logistic(e.config.PressureSteepness * (pressure - 1))

	expectedDuration := durationModel.forecastNext(durations)
	if expectedDuration < 0 {
		expectedDuration = 0
	}

	quality := intervalModel.fitQuality
	if len(durations) >= 2 {
		quality = (intervalModel.fitQuality + durationModel.fitQuality) / 2
	}

	confidence := quality * e.config.MissingAnalyticsPenalty
	if bucket, ok := bucketRecordFor(req.EntityID, now, req.Analytics); ok {
		confidence = (bucket.Confidence + quality) / 2
	}
	confidence = stats.Clamp01(confidence)

	rationale := fmt.Sprintf("%s model over %d events; next opening expected in about %.0f minutes",
		modelLabel(intervalModel.tier), len(history), nextInterval)

	if boost, trigger := e.cascadeBoost(req.EntityID, now, req.Cascades); boost > 0 {
		probability = math.Min(probability+boost, e.config.ProbabilityCap)
		rationale += fmt.Sprintf("; recent %s opening raises the odds (boost %.2f)", trigger, boost)
	}

	forecast := &domain.Forecast{
		ID:                      uuid.NewString(),
		EntityID:                req.EntityID,
		GeneratedAt:             now,
		HorizonMinutes:          horizon.Minutes(),
		Probability:             probability,
		ExpectedDurationMinutes: expectedDuration,
		Confidence:              confidence,
		ModelTier:               intervalModel.tier,
		Rationale:               rationale,
	}

	elapsed := time.Since(start)
	span.SetAttributes(
		attribute.String("tier.used", intervalModel.tier.String()),
		attribute.Float64("probability", probability),
	)
	e.metrics.recordForecast(ctx, forecast, tier, elapsed)
	e.logger.Debug("Produced forecast",
		zap.String("entity_id", req.EntityID),
		zap.String("tier_requested", tier.String()),
		zap.String("tier_used", intervalModel.tier.String()),
		zap.Float64("probability", probability),
		zap.Float64("expected_duration_minutes", expectedDuration),
		zap.Float64("confidence", confidence),
		zap.Duration("elapsed", elapsed),
	)

	return forecast
}

// entityHistory filters the snapshot down to the entity's valid events in
// chronological order.
func entityHistory(entityID string, events []domain.SpanEvent) []domain.SpanEvent {
	own := make([]domain.SpanEvent, 0, len(events))
	for _, ev := range events {
		if ev.EntityID != entityID || !ev.Valid() {
			continue
		}
		own = append(own, ev)
	}
	return domain.SortedByOpenTime(own)
}

// intervalSeries is the minutes between consecutive openings.
func intervalSeries(events []domain.SpanEvent) []float64 {
	if len(events) < 2 {
		return nil
	}
	out := make([]float64, 0, len(events)-1)
	for i := 1; i < len(events); i++ {
		out = append(out, events[i].OpenTime.Sub(events[i-1].OpenTime).Minutes())
	}
	return out
}

// durationSeries is the minutes each closed span stayed open, in
// chronological order. Still-open spans are skipped.
func durationSeries(events []domain.SpanEvent) []float64 {
	out := make([]float64, 0, len(events))
	for _, ev := range events {
		if ev.HasDuration() {
			out = append(out, ev.DurationMinutes)
		}
	}
	return out
}

// bucketRecordFor finds the analytics record covering the entity's current
// time bucket, if one was materialized.
func bucketRecordFor(entityID string, now time.Time, records []domain.AnalyticsRecord) (domain.AnalyticsRecord, bool) {
	key := domain.BucketKeyFor(entityID, now)
	for _, r := range records {
		if r.Key() == key {
			return r, true
		}
	}
	return domain.AnalyticsRecord{}, false
}

// cascadeBoost finds the strongest cascade record targeting the entity
// whose trigger opened within the cascade window before now. It returns
// the additive probability boost and the triggering entity's ID.
func (e *Engine) cascadeBoost(entityID string, now time.Time, cascades []domain.CascadeRecord) (float64, string) {
	cutoff := now.Add(-e.config.CascadeWindow)

	best := 0.0
	trigger := ""
	for _, rec := range cascades {
		if rec.TargetEntityID != entityID {
			continue
		}
		if rec.TriggerTime.Before(cutoff) || rec.TriggerTime.After(now) {
			continue
		}
		if rec.Strength > best {
			best = rec.Strength
			trigger = rec.TriggerEntityID
		}
	}
	if trigger == "" {
		return 0, ""
	}
	return best * e.config.CascadeBoostFactor, trigger
}

// modelLabel names the model shape a tier fits.
func modelLabel(tier domain.ComputeTier) string {
	if tier.Normalize() == domain.TierExpert {
		return "AR(4)+MA(1)"
	}
	return fmt.Sprintf("AR(%d)", modelOrder(tier))
}
