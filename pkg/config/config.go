// Package config loads and validates the file-facing configuration for
// the engines, the pipeline runner, and the forecast relay. Durations in
// the file are plain minutes so snapshots and configs share the domain's
// units.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/PeterJemley/bridget-sub000/pkg/intelligence/analytics"
	"github.com/PeterJemley/bridget-sub000/pkg/intelligence/cascade"
	"github.com/PeterJemley/bridget-sub000/pkg/intelligence/pipeline"
	"github.com/PeterJemley/bridget-sub000/pkg/intelligence/prediction"
)

// Config is the main configuration structure.
type Config struct {
	Pipeline   PipelineConfig   `yaml:"pipeline" json:"pipeline"`
	Analytics  AnalyticsConfig  `yaml:"analytics" json:"analytics"`
	Cascade    CascadeConfig    `yaml:"cascade" json:"cascade"`
	Prediction PredictionConfig `yaml:"prediction" json:"prediction"`
	Relay      RelayConfig      `yaml:"relay" json:"relay"`
	Logging    LoggingConfig    `yaml:"logging" json:"logging"`
}

// PipelineConfig bounds one pipeline run.
type PipelineConfig struct {
	MaxEvents       int `yaml:"max_events" json:"max_events"`
	ForecastWorkers int `yaml:"forecast_workers" json:"forecast_workers"`
	CacheSize       int `yaml:"cache_size" json:"cache_size"`
}

// AnalyticsConfig tunes the aggregation engine.
type AnalyticsConfig struct {
	MinimumSampleSize int `yaml:"minimum_sample_size" json:"minimum_sample_size"`
}

// CascadeConfig tunes cascade detection.
type CascadeConfig struct {
	WindowMinMinutes       float64               `yaml:"window_min_minutes" json:"window_min_minutes"`
	WindowMaxMinutes       float64               `yaml:"window_max_minutes" json:"window_max_minutes"`
	MaxDistanceKm          float64               `yaml:"max_distance_km" json:"max_distance_km"`
	ImmediateCutoffMinutes float64               `yaml:"immediate_cutoff_minutes" json:"immediate_cutoff_minutes"`
	Weights                cascade.FactorWeights `yaml:"weights" json:"weights"`
}

// PredictionConfig tunes the forecasting engine.
type PredictionConfig struct {
	HorizonMinutes          float64 `yaml:"horizon_minutes" json:"horizon_minutes"`
	MinimumEvents           int     `yaml:"minimum_events" json:"minimum_events"`
	CascadeWindowMinutes    float64 `yaml:"cascade_window_minutes" json:"cascade_window_minutes"`
	CascadeBoostFactor      float64 `yaml:"cascade_boost_factor" json:"cascade_boost_factor"`
	ProbabilityCap          float64 `yaml:"probability_cap" json:"probability_cap"`
	MissingAnalyticsPenalty float64 `yaml:"missing_analytics_penalty" json:"missing_analytics_penalty"`
	PressureSteepness       float64 `yaml:"pressure_steepness" json:"pressure_steepness"`
}

// RelayConfig points the forecast stream at a NATS server.
type RelayConfig struct {
	URL                 string `yaml:"url" json:"url"`
	SubjectPrefix       string `yaml:"subject_prefix" json:"subject_prefix"`
	ClientName          string `yaml:"client_name" json:"client_name"`
	FlushTimeoutSeconds int    `yaml:"flush_timeout_seconds" json:"flush_timeout_seconds"`
}

// LoggingConfig controls the binary's logger.
type LoggingConfig struct {
	Level       string `yaml:"level" json:"level"`
	Development bool   `yaml:"development" json:"development"`
}

// Default returns the configuration used when no file is supplied.
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

// Load reads configuration from a file. The format follows the extension;
// unknown extensions try YAML first, then JSON. Missing fields are filled
// with defaults and the result is validated.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(path))

	config := &Config{}
	switch ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, config)
	case ".json":
		err = json.Unmarshal(data, config)
	default:
		err = yaml.Unmarshal(data, config)
		if err != nil {
			err = json.Unmarshal(data, config)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	config.applyDefaults()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return config, nil
}

// applyDefaults sets default values for missing config fields. Engine
// defaults come from the engine packages so the file layer never drifts
// from them.
func (c *Config) applyDefaults() {
	pdef := pipeline.DefaultConfig()
	if c.Pipeline.MaxEvents == 0 {
		c.Pipeline.MaxEvents = pdef.MaxEvents
	}
	if c.Pipeline.ForecastWorkers == 0 {
		c.Pipeline.ForecastWorkers = pdef.ForecastWorkers
	}
	if c.Pipeline.CacheSize == 0 {
		c.Pipeline.CacheSize = pdef.CacheSize
	}

	adef := analytics.DefaultConfig()
	if c.Analytics.MinimumSampleSize == 0 {
		c.Analytics.MinimumSampleSize = adef.MinimumSampleSize
	}

	cdef := cascade.DefaultConfig()
	if c.Cascade.WindowMinMinutes == 0 {
		c.Cascade.WindowMinMinutes = cdef.WindowMin.Minutes()
	}
	if c.Cascade.WindowMaxMinutes == 0 {
		c.Cascade.WindowMaxMinutes = cdef.WindowMax.Minutes()
	}
	if c.Cascade.MaxDistanceKm == 0 {
		c.Cascade.MaxDistanceKm = cdef.MaxDistanceKm
	}
	if c.Cascade.ImmediateCutoffMinutes == 0 {
		c.Cascade.ImmediateCutoffMinutes = cdef.ImmediateCutoff.Minutes()
	}
	if c.Cascade.Weights == (cascade.FactorWeights{}) {
		c.Cascade.Weights = cascade.DefaultFactorWeights()
	}

	fdef := prediction.DefaultConfig()
	if c.Prediction.HorizonMinutes == 0 {
		c.Prediction.HorizonMinutes = fdef.Horizon.Minutes()
	}
	if c.Prediction.MinimumEvents == 0 {
		c.Prediction.MinimumEvents = fdef.MinimumEvents
	}
	if c.Prediction.CascadeWindowMinutes == 0 {
		c.Prediction.CascadeWindowMinutes = fdef.CascadeWindow.Minutes()
	}
	if c.Prediction.CascadeBoostFactor == 0 {
		c.Prediction.CascadeBoostFactor = fdef.CascadeBoostFactor
	}
	if c.Prediction.ProbabilityCap == 0 {
		c.Prediction.ProbabilityCap = fdef.ProbabilityCap
	}
	if c.Prediction.MissingAnalyticsPenalty == 0 {
		c.Prediction.MissingAnalyticsPenalty = fdef.MissingAnalyticsPenalty
	}
	if c.Prediction.PressureSteepness == 0 {
		c.Prediction.PressureSteepness = fdef.PressureSteepness
	}

	if c.Relay.URL == "" {
		c.Relay.URL = "nats://127.0.0.1:4222"
	}
	if c.Relay.SubjectPrefix == "" {
		c.Relay.SubjectPrefix = "bridget"
	}
	if c.Relay.ClientName == "" {
		c.Relay.ClientName = "bridget-relay"
	}
	if c.Relay.FlushTimeoutSeconds == 0 {
		c.Relay.FlushTimeoutSeconds = 5
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

// Validate rejects configurations no engine could run with.
func (c *Config) Validate() error {
	if c.Pipeline.MaxEvents <= 0 {
		return fmt.Errorf("pipeline: max_events must be positive, got %d", c.Pipeline.MaxEvents)
	}
	if c.Pipeline.ForecastWorkers <= 0 {
		return fmt.Errorf("pipeline: forecast_workers must be positive, got %d", c.Pipeline.ForecastWorkers)
	}
	if c.Pipeline.CacheSize <= 0 {
		return fmt.Errorf("pipeline: cache_size must be positive, got %d", c.Pipeline.CacheSize)
	}
	if c.Analytics.MinimumSampleSize <= 0 {
		return fmt.Errorf("analytics: minimum_sample_size must be positive, got %d", c.Analytics.MinimumSampleSize)
	}
	if c.Cascade.WindowMinMinutes < 0 {
		return fmt.Errorf("cascade: window_min_minutes must not be negative, got %.1f", c.Cascade.WindowMinMinutes)
	}
	if c.Cascade.WindowMaxMinutes <= c.Cascade.WindowMinMinutes {
		return fmt.Errorf("cascade: window_max_minutes %.1f must exceed window_min_minutes %.1f",
			c.Cascade.WindowMaxMinutes, c.Cascade.WindowMinMinutes)
	}
	if c.Cascade.MaxDistanceKm <= 0 {
		return fmt.Errorf("cascade: max_distance_km must be positive, got %.1f", c.Cascade.MaxDistanceKm)
	}
	if c.Cascade.ImmediateCutoffMinutes <= 0 {
		return fmt.Errorf("cascade: immediate_cutoff_minutes must be positive, got %.1f", c.Cascade.ImmediateCutoffMinutes)
	}
	w := c.Cascade.Weights
	if w.Temporal < 0 || w.Spatial < 0 || w.Duration < 0 || w.Historical < 0 {
		return fmt.Errorf("cascade: factor weights must not be negative")
	}
	if w.Temporal+w.Spatial+w.Duration+w.Historical <= 0 {
		return fmt.Errorf("cascade: factor weights must not all be zero")
	}
	if c.Prediction.HorizonMinutes <= 0 {
		return fmt.Errorf("prediction: horizon_minutes must be positive, got %.1f", c.Prediction.HorizonMinutes)
	}
	if c.Prediction.MinimumEvents < 1 {
		return fmt.Errorf("prediction: minimum_events must be at least 1, got %d", c.Prediction.MinimumEvents)
	}
	if c.Prediction.CascadeWindowMinutes <= 0 {
		return fmt.Errorf("prediction: cascade_window_minutes must be positive, got %.1f", c.Prediction.CascadeWindowMinutes)
	}
	if c.Prediction.CascadeBoostFactor < 0 {
		return fmt.Errorf("prediction: cascade_boost_factor must not be negative, got %.2f", c.Prediction.CascadeBoostFactor)
	}
	if c.Prediction.ProbabilityCap <= 0 || c.Prediction.ProbabilityCap > 1 {
		return fmt.Errorf("prediction: probability_cap must be in (0, 1], got %.2f", c.Prediction.ProbabilityCap)
	}
	if c.Prediction.MissingAnalyticsPenalty <= 0 || c.Prediction.MissingAnalyticsPenalty > 1 {
		return fmt.Errorf("prediction: missing_analytics_penalty must be in (0, 1], got %.2f", c.Prediction.MissingAnalyticsPenalty)
	}
	if c.Prediction.PressureSteepness <= 0 {
		return fmt.Errorf("prediction: pressure_steepness must be positive, got %.2f", c.Prediction.PressureSteepness)
	}
	if c.Relay.URL == "" {
		return fmt.Errorf("relay: url must not be empty")
	}
	if c.Relay.SubjectPrefix == "" {
		return fmt.Errorf("relay: subject_prefix must not be empty")
	}
	if c.Relay.FlushTimeoutSeconds <= 0 {
		return fmt.Errorf("relay: flush_timeout_seconds must be positive, got %d", c.Relay.FlushTimeoutSeconds)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging: unknown level %q", c.Logging.Level)
	}
	return nil
}

// ToPipelineConfig assembles the engine-facing configuration from the
// file-facing sections.
func (c *Config) ToPipelineConfig() pipeline.Config {
	return pipeline.Config{
		MaxEvents:       c.Pipeline.MaxEvents,
		ForecastWorkers: c.Pipeline.ForecastWorkers,
		CacheSize:       c.Pipeline.CacheSize,
		Analytics: analytics.Config{
			MinimumSampleSize: c.Analytics.MinimumSampleSize,
		},
		Cascade: cascade.Config{
			WindowMin:       minutes(c.Cascade.WindowMinMinutes),
			WindowMax:       minutes(c.Cascade.WindowMaxMinutes),
			MaxDistanceKm:   c.Cascade.MaxDistanceKm,
			ImmediateCutoff: minutes(c.Cascade.ImmediateCutoffMinutes),
			Weights:         c.Cascade.Weights,
		},
		Prediction: prediction.Config{
			Horizon:                 minutes(c.Prediction.HorizonMinutes),
			MinimumEvents:           c.Prediction.MinimumEvents,
			CascadeWindow:           minutes(c.Prediction.CascadeWindowMinutes),
			CascadeBoostFactor:      c.Prediction.CascadeBoostFactor,
			ProbabilityCap:          c.Prediction.ProbabilityCap,
			MissingAnalyticsPenalty: c.Prediction.MissingAnalyticsPenalty,
			PressureSteepness:       c.Prediction.PressureSteepness,
		},
	}
}

// FlushTimeout returns the relay flush bound as a duration.
func (c RelayConfig) FlushTimeout() time.Duration {
	return time.Duration(c.FlushTimeoutSeconds) * time.Second
}

func minutes(m float64) time.Duration {
	return time.Duration(m * float64(time.Minute))
}
