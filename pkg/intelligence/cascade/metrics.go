package cascade

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/PeterJemley/bridget-sub000/pkg/domain"
)

// detectorMetrics holds the OTEL instruments for the detector. A nil
// receiver is valid and records nothing, so instrument-creation failures
// never block detection.
type detectorMetrics struct {
	pairsExamined    metric.Int64Counter
	recordsEmitted   metric.Int64Counter
	strengthScores   metric.Float64Histogram
	detectionSeconds metric.Float64Histogram
}

func newDetectorMetrics(logger *zap.Logger) *detectorMetrics {
	meter := otel.Meter("bridget.cascade")

	pairsExamined, err := meter.Int64Counter(
		"bridget.cascade.pairs.examined",
		metric.WithDescription("Candidate trigger/target pairs examined during detection"),
		metric.WithUnit("1"),
	)
	if err != nil {
		logger.Warn("Failed to create cascade metrics", zap.Error(err))
		return nil
	}

	recordsEmitted, err := meter.Int64Counter(
		"bridget.cascade.records.emitted",
		metric.WithDescription("Cascade records emitted, partitioned by classification"),
		metric.WithUnit("1"),
	)
	if err != nil {
		logger.Warn("Failed to create cascade metrics", zap.Error(err))
		return nil
	}

	strengthScores, err := meter.Float64Histogram(
		"bridget.cascade.strength",
		metric.WithDescription("Strength scores of emitted cascade records"),
		metric.WithUnit("1"),
	)
	if err != nil {
		logger.Warn("Failed to create cascade metrics", zap.Error(err))
		return nil
	}

	detectionSeconds, err := meter.Float64Histogram(
		"bridget.cascade.detect.duration",
		metric.WithDescription("Wall time of one detection run"),
		metric.WithUnit("s"),
	)
	if err != nil {
		logger.Warn("Failed to create cascade metrics", zap.Error(err))
		return nil
	}

	return &detectorMetrics{
		pairsExamined:    pairsExamined,
		recordsEmitted:   recordsEmitted,
		strengthScores:   strengthScores,
		detectionSeconds: detectionSeconds,
	}
}

func (m *detectorMetrics) recordRun(ctx context.Context, examined int, records []domain.CascadeRecord, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.pairsExamined.Add(ctx, int64(examined))
	for _, record := range records {
		m.recordsEmitted.Add(ctx, 1,
			metric.WithAttributes(
				attribute.String("classification", string(record.Classification)),
				attribute.String("timing", string(record.Timing)),
			),
		)
		m.strengthScores.Record(ctx, record.Strength)
	}
	m.detectionSeconds.Record(ctx, elapsed.Seconds())
}
