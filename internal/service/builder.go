package service

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/ondc-data/geo-enricher/internal/apiclient"
	"github.com/ondc-data/geo-enricher/internal/batch"
	"github.com/ondc-data/geo-enricher/internal/config"
	"github.com/ondc-data/geo-enricher/internal/dataset"
	"github.com/ondc-data/geo-enricher/internal/geocode"
	"github.com/ondc-data/geo-enricher/internal/traffic"
	"github.com/ondc-data/geo-enricher/internal/validate"
	"github.com/ondc-data/geo-enricher/internal/zones"
)

// BuildSearcher wires the configured place-search provider.
func BuildSearcher(cfg *config.Config, logger *slog.Logger) (geocode.Searcher, error) {
	client := apiclient.New(
		cfg.Batch.RequestTimeout,
		cfg.Batch.MaxRetries,
		cfg.Geocoding.Pacing,
		logger,
	)

	switch cfg.Geocoding.Provider {
	case "google":
		if cfg.Geocoding.GoogleAPIKey == "" {
			return nil, fmt.Errorf("google provider requires an API key")
		}
		return geocode.NewGooglePlaces(client,
			cfg.Geocoding.GoogleEndpoint,
			cfg.Geocoding.GoogleAPIKey,
			cfg.Geocoding.BiasRadiusMeters), nil
	case "nominatim":
		return geocode.NewNominatim(client, cfg.Geocoding.NominatimBaseURL, ""), nil
	default:
		return nil, fmt.Errorf("unknown geocoding provider %q", cfg.Geocoding.Provider)
	}
}

// BuildTrafficModel creates the traffic model, loading learned patterns from
// the configured sources. Missing pattern files only log a warning so a bare
// deployment still runs on the static tables.
func BuildTrafficModel(cfg *config.Config, logger *slog.Logger) *traffic.Model {
	tables := traffic.DefaultTables()
	tables.BlendThreshold = cfg.Traffic.BlendThreshold

	model := traffic.NewModel(tables, logger)

	if cfg.Traffic.PatternsFile != "" {
		if err := model.Import(cfg.Traffic.PatternsFile); err != nil {
			logger.Warn("failed to load traffic patterns file",
				"path", cfg.Traffic.PatternsFile, "error", err)
		}
	}
	if cfg.Traffic.LearningDataCSV != "" {
		if err := model.LoadLearningCSV(cfg.Traffic.LearningDataCSV); err != nil {
			logger.Warn("failed to load traffic learning data",
				"path", cfg.Traffic.LearningDataCSV, "error", err)
		}
	}

	if n := model.PatternCount(); n > 0 {
		logger.Info("traffic model ready", "learned_patterns", n)
	}
	return model
}

// BuildGeocodePipeline assembles the geocoding flow for an open dataset.
func BuildGeocodePipeline(ds *dataset.Store, cfg *config.Config, logger *slog.Logger) (*batch.GeocodePipeline, error) {
	searcher, err := BuildSearcher(cfg, logger)
	if err != nil {
		return nil, err
	}
	validator := validate.New(cfg.Geocoding.MaxDistanceMeters, logger)
	return batch.NewGeocodePipeline(ds, searcher, validator, logger), nil
}

// BuildZonesPipeline assembles the zone generation flow for an open dataset.
// at fixes the traffic context for the whole run. A nil model is built from
// the configuration.
func BuildZonesPipeline(ds *dataset.Store, cfg *config.Config, model *traffic.Model, at time.Time, logger *slog.Logger) (*batch.ZonesPipeline, error) {
	if err := batch.EnsureOutputDir(cfg.Zones.OutputDir); err != nil {
		return nil, err
	}

	client := apiclient.New(
		cfg.Batch.RequestTimeout,
		cfg.Batch.MaxRetries,
		cfg.Routing.Pacing,
		logger,
	)
	if model == nil {
		model = BuildTrafficModel(cfg, logger)
	}
	gen := zones.NewGenerator(zones.NewValhalla(client, cfg.Routing.IsochroneURL), model, logger)

	return batch.NewZonesPipeline(ds, gen,
		cfg.Zones.OutputDir,
		cfg.Zones.Distances,
		cfg.Zones.Durations,
		cfg.Zones.Mode,
		at, logger), nil
}
