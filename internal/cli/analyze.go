package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/PeterJemley/bridget-sub000/pkg/domain"
	"github.com/PeterJemley/bridget-sub000/pkg/intelligence/analytics"
	"github.com/PeterJemley/bridget-sub000/pkg/intelligence/cascade"
)

var (
	analyzeSnapshot string
	analyzeJSON     bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Aggregate a snapshot into analytics and cascade records",
	Long: `Analyze runs the aggregation and cascade engines over a snapshot file
and prints the resulting records. Forecasting is left to the forecast
command.`,
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeSnapshot, "snapshot", "", "snapshot file with events and locations (required)")
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "print records as JSON instead of a summary")
	analyzeCmd.MarkFlagRequired("snapshot")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := buildLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Sync()

	snap, err := loadSnapshot(analyzeSnapshot, domain.TierStandard)
	if err != nil {
		return err
	}

	pcfg := cfg.ToPipelineConfig()
	aggregator := analytics.NewAggregator(logger, pcfg.Analytics)
	detector := cascade.NewDetector(logger, pcfg.Cascade)

	ctx := cmd.Context()
	records := aggregator.Aggregate(ctx, snap.Events)
	cascades := detector.Detect(ctx, snap.Events, snap.Locations)

	if analyzeJSON {
		return printJSON(map[string]interface{}{
			"analytics": records,
			"cascades":  cascades,
		})
	}

	entities := map[string]bool{}
	for _, rec := range records {
		entities[rec.EntityID] = true
	}
	byClass := map[domain.CascadeClassification]int{}
	for _, c := range cascades {
		byClass[c.Classification]++
	}

	fmt.Printf("Snapshot: %d events, %d locations\n", len(snap.Events), len(snap.Locations))
	fmt.Printf("Analytics: %d records across %d entities\n", len(records), len(entities))
	fmt.Printf("Cascades: %d (strong %d, moderate %d, weak %d)\n",
		len(cascades), byClass[domain.CascadeStrong], byClass[domain.CascadeModerate], byClass[domain.CascadeWeak])
	for _, c := range cascades {
		fmt.Printf("  %s -> %s after %.0f min, strength %.2f (%s, %s)\n",
			c.TriggerEntityID, c.TargetEntityID, c.DelayMinutes, c.Strength, c.Classification, c.Timing)
	}
	return nil
}

func printJSON(v interface{}) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	fmt.Println(string(out))
	return nil
}
