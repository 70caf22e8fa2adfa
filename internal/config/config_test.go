package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 5, cfg.Batch.Workers)
	assert.Equal(t, 20, cfg.Batch.CheckpointInterval)
	assert.Equal(t, 0.7, cfg.Traffic.BlendThreshold)
	assert.Equal(t, []float64{3, 4, 5, 6}, cfg.Zones.Distances)
	assert.Equal(t, []int{15, 20, 30}, cfg.Zones.Durations)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	content := `
batch:
  workers: 8
  checkpoint_interval: 50
zones:
  distances: [2, 4]
  mode: bicycle
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8, cfg.Batch.Workers)
	assert.Equal(t, 50, cfg.Batch.CheckpointInterval)
	assert.Equal(t, []float64{2, 4}, cfg.Zones.Distances)
	assert.Equal(t, "bicycle", cfg.Zones.Mode)
	// untouched values keep defaults
	assert.Equal(t, 2, cfg.Batch.MaxRetries)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	assert.Error(t, err)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("PORT", ":9090")
	t.Setenv("GOOGLE_API_KEY", "test-key")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Port)
	assert.Equal(t, "test-key", cfg.Geocoding.GoogleAPIKey)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults valid", func(c *Config) {}, false},
		{"zero workers", func(c *Config) { c.Batch.Workers = 0 }, true},
		{"negative retries", func(c *Config) { c.Batch.MaxRetries = -1 }, true},
		{"blend threshold too high", func(c *Config) { c.Traffic.BlendThreshold = 1.5 }, true},
		{"unknown provider", func(c *Config) { c.Geocoding.Provider = "bing" }, true},
		{"negative distance band", func(c *Config) { c.Zones.Distances = []float64{-1} }, true},
		{"zero duration band", func(c *Config) { c.Zones.Durations = []int{0} }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestMerge(t *testing.T) {
	base := Default()
	base.Merge(&Config{
		Batch: BatchConfig{Workers: 10},
		Zones: ZonesConfig{Mode: "auto"},
	})

	assert.Equal(t, 10, base.Batch.Workers)
	assert.Equal(t, "auto", base.Zones.Mode)
	assert.Equal(t, 20, base.Batch.CheckpointInterval)
}
