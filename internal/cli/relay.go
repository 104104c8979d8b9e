package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/PeterJemley/bridget-sub000/internal/relay"
	"github.com/PeterJemley/bridget-sub000/pkg/domain"
	"github.com/PeterJemley/bridget-sub000/pkg/intelligence/pipeline"
)

var (
	relaySnapshot string
	relayTier     string
	relayURL      string
)

var relayCmd = &cobra.Command{
	Use:   "relay",
	Short: "Publish snapshot forecasts to NATS",
	Long: `Relay runs the full pipeline over a snapshot file and publishes each
forecast to a per-entity NATS subject, so downstream consumers can subscribe
to the entities they care about.`,
	RunE: runRelay,
}

func init() {
	relayCmd.Flags().StringVar(&relaySnapshot, "snapshot", "", "snapshot file with events and locations (required)")
	relayCmd.Flags().StringVar(&relayTier, "tier", "standard", "compute tier: minimal, standard, advanced, or expert")
	relayCmd.Flags().StringVar(&relayURL, "nats", "", "NATS server URL (overrides config)")
	relayCmd.MarkFlagRequired("snapshot")
}

func runRelay(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := buildLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Sync()

	snap, err := loadSnapshot(relaySnapshot, domain.ParseComputeTier(relayTier))
	if err != nil {
		return err
	}

	runner := pipeline.NewRunner(logger, cfg.ToPipelineConfig())
	result, err := runner.Run(cmd.Context(), snap)
	if err != nil {
		return err
	}
	if len(result.Forecasts) == 0 {
		return fmt.Errorf("snapshot produced no forecasts, nothing to publish")
	}

	url := cfg.Relay.URL
	if relayURL != "" {
		url = relayURL
	}
	rel, err := relay.New(&relay.Config{
		URL:           url,
		Name:          cfg.Relay.ClientName,
		SubjectPrefix: cfg.Relay.SubjectPrefix,
		FlushTimeout:  cfg.Relay.FlushTimeout(),
		Logger:        logger,
	})
	if err != nil {
		return err
	}
	defer rel.Close()

	if err := rel.PublishForecasts(cmd.Context(), result.Forecasts); err != nil {
		return err
	}

	fmt.Printf("Published %d forecasts to %s\n", len(result.Forecasts), url)
	return nil
}
