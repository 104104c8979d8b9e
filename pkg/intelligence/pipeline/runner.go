// Package pipeline runs the intelligence engines over one immutable event
// snapshot: aggregation and cascade detection concurrently, then one
// forecast per entity over their combined output.
//
// The engines are deterministic for a fixed snapshot, so completed runs
// are memoized under a canonical fingerprint and concurrent callers
// presenting the same snapshot share a single computation. Hosts that want
// cache hits across calls should supply a stable Snapshot.Now, for example
// truncated to the minute.
package pipeline

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/PeterJemley/bridget-sub000/pkg/domain"
	"github.com/PeterJemley/bridget-sub000/pkg/intelligence/analytics"
	"github.com/PeterJemley/bridget-sub000/pkg/intelligence/cascade"
	"github.com/PeterJemley/bridget-sub000/pkg/intelligence/prediction"
)

// Config tunes the runner and carries the engine configurations.
type Config struct {
	// MaxEvents bounds the snapshot size; larger snapshots are truncated
	// to the most recent events before the engines run.
	MaxEvents int `yaml:"max_events" json:"max_events"`

	// ForecastWorkers bounds how many per-entity forecasts run at once.
	ForecastWorkers int `yaml:"forecast_workers" json:"forecast_workers"`

	// CacheSize bounds the memoized result map; the oldest entry is
	// evicted first.
	CacheSize int `yaml:"cache_size" json:"cache_size"`

	Analytics  analytics.Config  `yaml:"analytics" json:"analytics"`
	Cascade    cascade.Config    `yaml:"cascade" json:"cascade"`
	Prediction prediction.Config `yaml:"prediction" json:"prediction"`
}

// DefaultConfig returns production-ready defaults.
func DefaultConfig() Config {
	return Config{
		MaxEvents:       5000,
		ForecastWorkers: 4,
		CacheSize:       128,
		Analytics:       analytics.DefaultConfig(),
		Cascade:         cascade.DefaultConfig(),
		Prediction:      prediction.DefaultConfig(),
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.MaxEvents <= 0 {
		c.MaxEvents = def.MaxEvents
	}
	if c.ForecastWorkers <= 0 {
		c.ForecastWorkers = def.ForecastWorkers
	}
	if c.CacheSize <= 0 {
		c.CacheSize = def.CacheSize
	}
	return c
}

// Snapshot is one immutable view of the world to run the engines over.
type Snapshot struct {
	Events    []domain.SpanEvent      `yaml:"events" json:"events"`
	Locations []domain.EntityLocation `yaml:"locations" json:"locations"`

	// Now anchors forecast recency. The zero value means the wall clock
	// at run time, which defeats memoization across calls.
	Now time.Time `yaml:"now" json:"now"`

	// Tier selects the prediction model complexity for every entity in
	// the snapshot.
	Tier domain.ComputeTier `yaml:"tier" json:"tier"`
}

// Result is the combined output of one pipeline run. Results are shared
// between memoized callers and must be treated as read-only.
type Result struct {
	Analytics []domain.AnalyticsRecord `yaml:"analytics" json:"analytics"`
	Cascades  []domain.CascadeRecord   `yaml:"cascades" json:"cascades"`
	Forecasts []domain.Forecast        `yaml:"forecasts" json:"forecasts"`
}

// Runner owns the three engines and the memoization state.
type Runner struct {
	logger     *zap.Logger
	config     Config
	aggregator *analytics.Aggregator
	detector   *cascade.Detector
	predictor  *prediction.Engine
	tracer     trace.Tracer
	metrics    *runnerMetrics

	group singleflight.Group
	mu    sync.Mutex
	cache map[string]Result
	order []string
}

// NewRunner creates a pipeline runner. A nil logger is replaced with a nop
// logger; non-positive bounds fall back to defaults.
func NewRunner(logger *zap.Logger, config Config) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	config = config.withDefaults()

	return &Runner{
		logger:     logger,
		config:     config,
		aggregator: analytics.NewAggregator(logger, config.Analytics),
		detector:   cascade.NewDetector(logger, config.Cascade),
		predictor:  prediction.NewEngine(logger, config.Prediction),
		tracer:     otel.Tracer("bridget.pipeline"),
		metrics:    newRunnerMetrics(logger),
		cache:      make(map[string]Result),
	}
}

// Run executes the engines over the snapshot and returns their combined
// output. Identical snapshots are served from the memoized result map, and
// concurrent callers with the same fingerprint share one computation. The
// only error condition is context cancellation.
func (r *Runner) Run(ctx context.Context, snap Snapshot) (Result, error) {
	start := time.Now()
	if snap.Now.IsZero() {
		snap.Now = time.Now()
	}
	snap.Tier = snap.Tier.Normalize()

	fp := Fingerprint(snap)
	ctx, span := r.tracer.Start(ctx, "pipeline.run",
		trace.WithAttributes(
			attribute.Int("events", len(snap.Events)),
			attribute.String("tier", snap.Tier.String()),
		),
	)
	defer span.End()

	if res, ok := r.cached(fp); ok {
		span.SetAttributes(attribute.Bool("cache.hit", true))
		r.metrics.recordHit(ctx)
		return res, nil
	}

	v, err, shared := r.group.Do(fp, func() (interface{}, error) {
		res, err := r.compute(ctx, snap)
		if err != nil {
			return Result{}, err
		}
		r.remember(fp, res)
		return res, nil
	})
	if err != nil {
		return Result{}, err
	}

	res := v.(Result)
	span.SetAttributes(
		attribute.Bool("cache.shared", shared),
		attribute.Int("forecasts", len(res.Forecasts)),
	)
	r.metrics.recordRun(ctx, res, time.Since(start))
	r.logger.Info("Pipeline run complete",
		zap.String("fingerprint", fp[:12]),
		zap.Int("events", len(snap.Events)),
		zap.Int("analytics_records", len(res.Analytics)),
		zap.Int("cascade_records", len(res.Cascades)),
		zap.Int("forecasts", len(res.Forecasts)),
		zap.Bool("shared", shared),
		zap.Duration("elapsed", time.Since(start)),
	)
	return res, nil
}

func (r *Runner) compute(ctx context.Context, snap Snapshot) (Result, error) {
	events := domain.ValidEvents(snap.Events)
	if len(events) > r.config.MaxEvents {
		r.logger.Info("Truncating snapshot to most recent events",
			zap.Int("events", len(events)),
			zap.Int("max_events", r.config.MaxEvents),
		)
		r.metrics.recordTruncation(ctx, len(events)-r.config.MaxEvents)
		events = mostRecent(events, r.config.MaxEvents)
	}

	var (
		analyticsRecords []domain.AnalyticsRecord
		cascadeRecords   []domain.CascadeRecord
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		analyticsRecords = r.aggregator.Aggregate(gctx, events)
		return gctx.Err()
	})
	g.Go(func() error {
		cascadeRecords = r.detector.Detect(gctx, events, snap.Locations)
		return gctx.Err()
	})
	if err := g.Wait(); err != nil {
		return Result{}, fmt.Errorf("pipeline aborted: %w", err)
	}

	entities := entityIDs(events)
	forecasts := make([]*domain.Forecast, len(entities))
	fg, fctx := errgroup.WithContext(ctx)
	fg.SetLimit(r.config.ForecastWorkers)
	for i, id := range entities {
		fg.Go(func() error {
			forecasts[i] = r.predictor.Forecast(fctx, prediction.Request{
				EntityID:  id,
				Events:    events,
				Analytics: analyticsRecords,
				Cascades:  cascadeRecords,
				Tier:      snap.Tier,
				Now:       snap.Now,
			})
			return fctx.Err()
		})
	}
	if err := fg.Wait(); err != nil {
		return Result{}, fmt.Errorf("pipeline aborted: %w", err)
	}

	kept := make([]domain.Forecast, 0, len(forecasts))
	for _, f := range forecasts {
		if f != nil {
			kept = append(kept, *f)
		}
	}
	return Result{
		Analytics: analyticsRecords,
		Cascades:  cascadeRecords,
		Forecasts: kept,
	}, nil
}

func (r *Runner) cached(fp string) (Result, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	res, ok := r.cache[fp]
	return res, ok
}

func (r *Runner) remember(fp string, res Result) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.cache[fp]; ok {
		return
	}
	for len(r.order) >= r.config.CacheSize {
		oldest := r.order[0]
		r.order = r.order[1:]
		delete(r.cache, oldest)
	}
	r.cache[fp] = res
	r.order = append(r.order, fp)
}

// mostRecent keeps the limit newest events by open time.
func mostRecent(events []domain.SpanEvent, limit int) []domain.SpanEvent {
	if limit <= 0 || len(events) <= limit {
		return events
	}
	sorted := domain.SortedByOpenTime(events)
	return sorted[len(sorted)-limit:]
}

// entityIDs returns the distinct entity IDs in the snapshot, sorted so the
// forecast order is stable.
func entityIDs(events []domain.SpanEvent) []string {
	seen := make(map[string]struct{}, len(events))
	ids := make([]string, 0, len(events))
	for _, ev := range events {
		if _, ok := seen[ev.EntityID]; ok {
			continue
		}
		seen[ev.EntityID] = struct{}{}
		ids = append(ids, ev.EntityID)
	}
	sort.Strings(ids)
	return ids
}
