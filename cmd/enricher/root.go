package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/ondc-data/geo-enricher/internal/config"
)

var (
	cfgPath string
	verbose bool

	cfg    *config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "enricher",
	Short: "Batch enrichment engine for commercial location datasets",
	Long: `enricher refines location coordinates through place search and
generates traffic-aware delivery zone documents, resuming interrupted
batches from durable checkpoints.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
		slog.SetDefault(logger)

		var err error
		cfg, err = config.Load(cfgPath)
		return err
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "path to YAML config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}
