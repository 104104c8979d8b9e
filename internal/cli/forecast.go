package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/PeterJemley/bridget-sub000/pkg/domain"
	"github.com/PeterJemley/bridget-sub000/pkg/intelligence/pipeline"
)

var (
	forecastSnapshot string
	forecastEntity   string
	forecastTier     string
	forecastJSON     bool
)

var forecastCmd = &cobra.Command{
	Use:   "forecast",
	Short: "Forecast entity openings from a snapshot",
	Long: `Forecast runs the full pipeline over a snapshot file and prints one
forecast per entity. Cascade records detected in the same snapshot feed the
probability boost, so forecasts here can differ from a bare model fit.`,
	RunE: runForecast,
}

func init() {
	forecastCmd.Flags().StringVar(&forecastSnapshot, "snapshot", "", "snapshot file with events and locations (required)")
	forecastCmd.Flags().StringVar(&forecastEntity, "entity", "", "forecast only this entity")
	forecastCmd.Flags().StringVar(&forecastTier, "tier", "standard", "compute tier: minimal, standard, advanced, or expert")
	forecastCmd.Flags().BoolVar(&forecastJSON, "json", false, "print forecasts as JSON instead of a summary")
	forecastCmd.MarkFlagRequired("snapshot")
}

func runForecast(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := buildLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Sync()

	tier := domain.ParseComputeTier(forecastTier)
	snap, err := loadSnapshot(forecastSnapshot, tier)
	if err != nil {
		return err
	}

	runner := pipeline.NewRunner(logger, cfg.ToPipelineConfig())
	result, err := runner.Run(cmd.Context(), snap)
	if err != nil {
		return err
	}

	forecasts := result.Forecasts
	if forecastEntity != "" {
		filtered := make([]domain.Forecast, 0, 1)
		for _, f := range forecasts {
			if f.EntityID == forecastEntity {
				filtered = append(filtered, f)
			}
		}
		if len(filtered) == 0 {
			return fmt.Errorf("no forecast for entity %s: needs at least %d events in the snapshot",
				forecastEntity, cfg.Prediction.MinimumEvents)
		}
		forecasts = filtered
	}

	if forecastJSON {
		return printJSON(forecasts)
	}

	for _, f := range forecasts {
		fmt.Printf("%s: %.0f%% within %.0f min, expected duration %.1f min (confidence %.2f, %s tier)\n",
			f.EntityID, f.Probability*100, f.HorizonMinutes, f.ExpectedDurationMinutes, f.Confidence, f.ModelTier)
		fmt.Printf("  %s\n", f.Rationale)
	}
	return nil
}
