package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ondc-data/geo-enricher/internal/batch"
	"github.com/ondc-data/geo-enricher/internal/checkpoint"
	"github.com/ondc-data/geo-enricher/internal/dataset"
	"github.com/ondc-data/geo-enricher/internal/service"
)

var geocodeFlags struct {
	input    string
	output   string
	summary  string
	workers  int
	provider string
}

var geocodeCmd = &cobra.Command{
	Use:   "geocode",
	Short: "Refine location coordinates via place search",
	Long: `Reads an xlsx dataset, searches each location with increasingly
specific queries, validates the top candidate against the row's own city,
state and pincode, and writes the refined coordinates back. Interrupt with
Ctrl-C at any point; the next invocation resumes from the checkpoint.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if geocodeFlags.provider != "" {
			cfg.Geocoding.Provider = geocodeFlags.provider
		}
		if geocodeFlags.workers > 0 {
			cfg.Batch.Workers = geocodeFlags.workers
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		ds, err := dataset.Open(geocodeFlags.input)
		if err != nil {
			return err
		}
		defer ds.Close()

		pipeline, err := service.BuildGeocodePipeline(ds, cfg, logger)
		if err != nil {
			return err
		}

		orch := batch.New(ds, checkpoint.NewStore(logger), pipeline, batch.Options{
			Workers:            cfg.Batch.Workers,
			CheckpointInterval: cfg.Batch.CheckpointInterval,
			OutputPath:         geocodeFlags.output,
			SummaryPath:        geocodeFlags.summary,
		}, nil, logger)

		_, err = orch.Run(ctx)
		return err
	},
}

func init() {
	geocodeCmd.Flags().StringVarP(&geocodeFlags.input, "input", "i", "", "input xlsx dataset (required)")
	geocodeCmd.Flags().StringVarP(&geocodeFlags.output, "output", "o", "", "output xlsx path (defaults to in-place)")
	geocodeCmd.Flags().StringVar(&geocodeFlags.summary, "summary", "", "write a JSON run summary to this path")
	geocodeCmd.Flags().IntVar(&geocodeFlags.workers, "workers", 0, "override worker count")
	geocodeCmd.Flags().StringVar(&geocodeFlags.provider, "provider", "", "override search provider (google, nominatim)")
	geocodeCmd.MarkFlagRequired("input")

	rootCmd.AddCommand(geocodeCmd)
}
