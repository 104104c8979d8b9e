package analytics

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// aggregatorMetrics holds the OTEL instruments for the aggregator. A nil
// receiver is valid and records nothing, so instrument-creation failures
// never block aggregation.
type aggregatorMetrics struct {
	eventsProcessed   metric.Int64Counter
	recordsEmitted    metric.Int64Counter
	processingSeconds metric.Float64Histogram
}

func newAggregatorMetrics(logger *zap.Logger) *aggregatorMetrics {
	meter := otel.Meter("bridget.analytics")

	eventsProcessed, err := meter.Int64Counter(
		"bridget.analytics.events.processed",
		metric.WithDescription("Span events consumed by aggregation runs"),
		metric.WithUnit("1"),
	)
	if err != nil {
		logger.Warn("Failed to create analytics metrics", zap.Error(err))
		return nil
	}

	recordsEmitted, err := meter.Int64Counter(
		"bridget.analytics.records.emitted",
		metric.WithDescription("Analytics records produced by aggregation runs"),
		metric.WithUnit("1"),
	)
	if err != nil {
		logger.Warn("Failed to create analytics metrics", zap.Error(err))
		return nil
	}

	processingSeconds, err := meter.Float64Histogram(
		"bridget.analytics.processing.duration",
		metric.WithDescription("Wall time of one aggregation run"),
		metric.WithUnit("s"),
	)
	if err != nil {
		logger.Warn("Failed to create analytics metrics", zap.Error(err))
		return nil
	}

	return &aggregatorMetrics{
		eventsProcessed:   eventsProcessed,
		recordsEmitted:    recordsEmitted,
		processingSeconds: processingSeconds,
	}
}

func (m *aggregatorMetrics) recordRun(ctx context.Context, events, records int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.eventsProcessed.Add(ctx, int64(events))
	m.recordsEmitted.Add(ctx, int64(records))
	m.processingSeconds.Record(ctx, elapsed.Seconds())
}
