package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all runtime configuration for the enrichment engine.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Geocoding GeocodingConfig `yaml:"geocoding"`
	Routing   RoutingConfig   `yaml:"routing"`
	Batch     BatchConfig     `yaml:"batch"`
	Traffic   TrafficConfig   `yaml:"traffic"`
	Zones     ZonesConfig     `yaml:"zones"`
}

// ServerConfig configures the status/trigger HTTP API.
type ServerConfig struct {
	Port      string `yaml:"port"`
	JWTSecret string `yaml:"jwt_secret"`
}

// DatabaseConfig configures the sqlite store for run records and
// learned traffic patterns.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// GeocodingConfig configures the place-search provider.
type GeocodingConfig struct {
	Provider          string        `yaml:"provider"` // google, nominatim
	GoogleAPIKey      string        `yaml:"google_api_key"`
	GoogleEndpoint    string        `yaml:"google_endpoint"`
	NominatimBaseURL  string        `yaml:"nominatim_base_url"`
	BiasRadiusMeters  float64       `yaml:"bias_radius_meters"`
	MaxDistanceMeters float64       `yaml:"max_distance_meters"`
	Pacing            time.Duration `yaml:"pacing"`
}

// RoutingConfig configures the isochrone service.
type RoutingConfig struct {
	IsochroneURL string        `yaml:"isochrone_url"`
	Pacing       time.Duration `yaml:"pacing"`
}

// BatchConfig configures the orchestrator.
type BatchConfig struct {
	Workers            int           `yaml:"workers"`
	CheckpointInterval int           `yaml:"checkpoint_interval"`
	MaxRetries         int           `yaml:"max_retries"`
	RequestTimeout     time.Duration `yaml:"request_timeout"`
}

// TrafficConfig configures the congestion model.
type TrafficConfig struct {
	BlendThreshold  float64 `yaml:"blend_threshold"`
	LearningDataCSV string  `yaml:"learning_data_csv"`
	PatternsFile    string  `yaml:"patterns_file"`
}

// ZonesConfig configures zone generation defaults.
type ZonesConfig struct {
	Distances []float64 `yaml:"distances"` // km
	Durations []int     `yaml:"durations"` // minutes
	Mode      string    `yaml:"mode"`
	OutputDir string    `yaml:"output_dir"`
}

// Default returns the baseline configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:      ":8080",
			JWTSecret: "change-me-in-production",
		},
		Database: DatabaseConfig{
			Path: "./data/enricher.db",
		},
		Geocoding: GeocodingConfig{
			Provider:          "google",
			GoogleEndpoint:    "https://places.googleapis.com/v1/places:searchText",
			NominatimBaseURL:  "https://nominatim.openstreetmap.org",
			BiasRadiusMeters:  10000,
			MaxDistanceMeters: 10000,
			Pacing:            100 * time.Millisecond,
		},
		Routing: RoutingConfig{
			IsochroneURL: "https://valhalla1.openstreetmap.de/isochrone",
			Pacing:       1500 * time.Millisecond,
		},
		Batch: BatchConfig{
			Workers:            5,
			CheckpointInterval: 20,
			MaxRetries:         2,
			RequestTimeout:     30 * time.Second,
		},
		Traffic: TrafficConfig{
			BlendThreshold: 0.7,
			PatternsFile:   "./data/traffic_patterns.json",
		},
		Zones: ZonesConfig{
			Distances: []float64{3, 4, 5, 6},
			Durations: []int{15, 20, 30},
			Mode:      "motorcycle",
			OutputDir: "./zones",
		},
	}
}

// Load reads configuration from an optional YAML file, applies environment
// overrides, and validates the result. An empty path yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("PORT"); v != "" {
		c.Server.Port = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		c.Server.JWTSecret = v
	}
	if v := os.Getenv("DB_PATH"); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv("GOOGLE_API_KEY"); v != "" {
		c.Geocoding.GoogleAPIKey = v
	}
}

// Validate checks configuration invariants.
func (c *Config) Validate() error {
	if c.Batch.Workers <= 0 {
		return fmt.Errorf("batch.workers must be positive, got %d", c.Batch.Workers)
	}
	if c.Batch.CheckpointInterval <= 0 {
		return fmt.Errorf("batch.checkpoint_interval must be positive, got %d", c.Batch.CheckpointInterval)
	}
	if c.Batch.MaxRetries < 0 {
		return fmt.Errorf("batch.max_retries must not be negative, got %d", c.Batch.MaxRetries)
	}
	if c.Traffic.BlendThreshold < 0 || c.Traffic.BlendThreshold > 1 {
		return fmt.Errorf("traffic.blend_threshold must be in [0,1], got %f", c.Traffic.BlendThreshold)
	}
	switch c.Geocoding.Provider {
	case "google", "nominatim":
	default:
		return fmt.Errorf("geocoding.provider must be google or nominatim, got %q", c.Geocoding.Provider)
	}
	for _, d := range c.Zones.Distances {
		if d <= 0 {
			return fmt.Errorf("zones.distances must be positive, got %f", d)
		}
	}
	for _, m := range c.Zones.Durations {
		if m <= 0 {
			return fmt.Errorf("zones.durations must be positive, got %d", m)
		}
	}
	return nil
}

// Merge overlays non-zero fields of other onto c.
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}
	if other.Server.Port != "" {
		c.Server.Port = other.Server.Port
	}
	if other.Server.JWTSecret != "" {
		c.Server.JWTSecret = other.Server.JWTSecret
	}
	if other.Database.Path != "" {
		c.Database.Path = other.Database.Path
	}
	if other.Geocoding.Provider != "" {
		c.Geocoding.Provider = other.Geocoding.Provider
	}
	if other.Geocoding.GoogleAPIKey != "" {
		c.Geocoding.GoogleAPIKey = other.Geocoding.GoogleAPIKey
	}
	if other.Batch.Workers > 0 {
		c.Batch.Workers = other.Batch.Workers
	}
	if other.Batch.CheckpointInterval > 0 {
		c.Batch.CheckpointInterval = other.Batch.CheckpointInterval
	}
	if len(other.Zones.Distances) > 0 {
		c.Zones.Distances = other.Zones.Distances
	}
	if len(other.Zones.Durations) > 0 {
		c.Zones.Durations = other.Zones.Durations
	}
	if other.Zones.Mode != "" {
		c.Zones.Mode = other.Zones.Mode
	}
	if other.Zones.OutputDir != "" {
		c.Zones.OutputDir = other.Zones.OutputDir
	}
}
