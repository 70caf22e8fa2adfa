package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/ondc-data/geo-enricher/internal/api"
	"github.com/ondc-data/geo-enricher/internal/database"
	"github.com/ondc-data/geo-enricher/internal/handler"
	"github.com/ondc-data/geo-enricher/internal/metrics"
	"github.com/ondc-data/geo-enricher/internal/repository"
	"github.com/ondc-data/geo-enricher/internal/service"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the enrichment API server",
	Long: `Serves the run-task API: admin clients submit enrichment runs over
HTTP, anyone can poll their progress, and Prometheus scrapes /metrics.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := database.Init(database.Config{Path: cfg.Database.Path}); err != nil {
			return err
		}
		defer database.Close()

		registry := prometheus.NewRegistry()
		registry.MustRegister(collectors.NewGoCollector())
		m := metrics.New(registry)

		runRepo := repository.NewRunRepository(database.GetDB())
		patternRepo := repository.NewTrafficPatternRepository(database.GetDB())
		runService := service.NewRunService(runRepo, patternRepo, cfg, m, logger)
		runHandler := handler.NewRunHandler(runService)

		router := api.SetupRouter(cfg, runHandler, registry, logger)

		srv := &http.Server{
			Addr:    cfg.Server.Port,
			Handler: router,
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		errCh := make(chan error, 1)
		go func() {
			logger.Info("server starting", "addr", cfg.Server.Port)
			if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}()

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
		}

		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
