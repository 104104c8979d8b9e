package prediction

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/PeterJemley/bridget-sub000/pkg/domain"
)

// engineMetrics holds the OTEL instruments for the prediction engine. A
// nil receiver is valid and records nothing, so instrument-creation
// failures never block forecasting.
type engineMetrics struct {
	forecastsIssued   metric.Int64Counter
	forecastsSkipped  metric.Int64Counter
	tierFallbacks     metric.Int64Counter
	probabilityScores metric.Float64Histogram
	fitSeconds        metric.Float64Histogram
}

func newEngineMetrics(logger *zap.Logger) *engineMetrics {
	meter := otel.Meter("bridget.prediction")

	forecastsIssued, err := meter.Int64Counter(
		"bridget.prediction.forecasts.issued",
		metric.WithDescription("Forecasts produced, partitioned by the tier that fitted them"),
		metric.WithUnit("1"),
	)
	if err != nil {
		logger.Warn("Failed to create prediction metrics", zap.Error(err))
		return nil
	}

	forecastsSkipped, err := meter.Int64Counter(
		"bridget.prediction.forecasts.skipped",
		metric.WithDescription("Forecast requests skipped for insufficient history"),
		metric.WithUnit("1"),
	)
	if err != nil {
		logger.Warn("Failed to create prediction metrics", zap.Error(err))
		return nil
	}

	tierFallbacks, err := meter.Int64Counter(
		"bridget.prediction.tier.fallbacks",
		metric.WithDescription("Forecasts fitted below the requested tier"),
		metric.WithUnit("1"),
	)
	if err != nil {
		logger.Warn("Failed to create prediction metrics", zap.Error(err))
		return nil
	}

	probabilityScores, err := meter.Float64Histogram(
		"bridget.prediction.probability",
		metric.WithDescription("Probabilities of issued forecasts"),
		metric.WithUnit("1"),
	)
	if err != nil {
		logger.Warn("Failed to create prediction metrics", zap.Error(err))
		return nil
	}

	fitSeconds, err := meter.Float64Histogram(
		"bridget.prediction.fit.duration",
		metric.WithDescription("Wall time of one forecast including model fitting"),
		metric.WithUnit("s"),
	)
	if err != nil {
		logger.Warn("Failed to create prediction metrics", zap.Error(err))
		return nil
	}

	return &engineMetrics{
		forecastsIssued:   forecastsIssued,
		forecastsSkipped:  forecastsSkipped,
		tierFallbacks:     tierFallbacks,
		probabilityScores: probabilityScores,
		fitSeconds:        fitSeconds,
	}
}

func (m *engineMetrics) recordForecast(ctx context.Context, forecast *domain.Forecast, requested domain.ComputeTier, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.forecastsIssued.Add(ctx, 1,
		metric.WithAttributes(attribute.String("tier", forecast.ModelTier.String())),
	)
	if forecast.ModelTier < requested {
		m.tierFallbacks.Add(ctx, 1)
	}
	m.probabilityScores.Record(ctx, forecast.Probability)
	m.fitSeconds.Record(ctx, elapsed.Seconds())
}

func (m *engineMetrics) recordSkip(ctx context.Context) {
	if m == nil {
		return
	}
	m.forecastsSkipped.Add(ctx, 1)
}
