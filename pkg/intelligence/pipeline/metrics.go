package pipeline

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// runnerMetrics holds the OTEL instruments for the pipeline runner. A nil
// receiver is valid and records nothing, so instrument-creation failures
// never block a run.
type runnerMetrics struct {
	runsCompleted   metric.Int64Counter
	cacheHits       metric.Int64Counter
	eventsTruncated metric.Int64Counter
	forecastsPerRun metric.Int64Histogram
	runSeconds      metric.Float64Histogram
}

func newRunnerMetrics(logger *zap.Logger) *runnerMetrics {
	meter := otel.Meter("bridget.pipeline")

	runsCompleted, err := meter.Int64Counter(
		"bridget.pipeline.runs.completed",
		metric.WithDescription("Pipeline runs that produced a result"),
		metric.WithUnit("1"),
	)
	if err != nil {
		logger.Warn("Failed to create pipeline metrics", zap.Error(err))
		return nil
	}

	cacheHits, err := meter.Int64Counter(
		"bridget.pipeline.cache.hits",
		metric.WithDescription("Runs served from the memoized result map"),
		metric.WithUnit("1"),
	)
	if err != nil {
		logger.Warn("Failed to create pipeline metrics", zap.Error(err))
		return nil
	}

	eventsTruncated, err := meter.Int64Counter(
		"bridget.pipeline.events.truncated",
		metric.WithDescription("Events dropped by the most-recent sampling policy"),
		metric.WithUnit("1"),
	)
	if err != nil {
		logger.Warn("Failed to create pipeline metrics", zap.Error(err))
		return nil
	}

	forecastsPerRun, err := meter.Int64Histogram(
		"bridget.pipeline.forecasts.per_run",
		metric.WithDescription("Forecasts produced by one pipeline run"),
		metric.WithUnit("1"),
	)
	if err != nil {
		logger.Warn("Failed to create pipeline metrics", zap.Error(err))
		return nil
	}

	runSeconds, err := meter.Float64Histogram(
		"bridget.pipeline.run.duration",
		metric.WithDescription("Wall time of one pipeline run"),
		metric.WithUnit("s"),
	)
	if err != nil {
		logger.Warn("Failed to create pipeline metrics", zap.Error(err))
		return nil
	}

	return &runnerMetrics{
		runsCompleted:   runsCompleted,
		cacheHits:       cacheHits,
		eventsTruncated: eventsTruncated,
		forecastsPerRun: forecastsPerRun,
		runSeconds:      runSeconds,
	}
}

func (m *runnerMetrics) recordRun(ctx context.Context, res Result, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.runsCompleted.Add(ctx, 1)
	m.forecastsPerRun.Record(ctx, int64(len(res.Forecasts)))
	m.runSeconds.Record(ctx, elapsed.Seconds())
}

func (m *runnerMetrics) recordHit(ctx context.Context) {
	if m == nil {
		return
	}
	m.cacheHits.Add(ctx, 1)
}

func (m *runnerMetrics) recordTruncation(ctx context.Context, dropped int) {
	if m == nil {
		return
	}
	m.eventsTruncated.Add(ctx, int64(dropped))
}
