package batch

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/ondc-data/geo-enricher/internal/stats"
)

// TimingStats summarizes per-item processing times in seconds.
type TimingStats struct {
	MeanSeconds float64 `json:"mean_seconds"`
	P50Seconds  float64 `json:"p50_seconds"`
	P95Seconds  float64 `json:"p95_seconds"`
	MaxSeconds  float64 `json:"max_seconds"`
}

// Summary is the final accounting for one run. Dispatched covers only rows
// actually handed to workers; rows settled during classification appear under
// PreviouslyDone, AlreadyPopulated or NoData.
type Summary struct {
	RunID            string    `json:"run_id"`
	Flow             string    `json:"flow"`
	StartedAt        time.Time `json:"started_at"`
	FinishedAt       time.Time `json:"finished_at"`
	DurationSeconds  float64   `json:"duration_seconds"`
	TotalRows        int       `json:"total_rows"`
	PreviouslyDone   int       `json:"previously_done"`
	AlreadyPopulated int       `json:"already_populated"`
	NoData           int       `json:"no_data"`
	Dispatched       int       `json:"dispatched"`
	Succeeded        int       `json:"succeeded"`
	Failed           int       `json:"failed"`
	Skipped          int       `json:"skipped"`
	Interrupted      bool      `json:"interrupted"`
	ItemsPerSecond   float64   `json:"items_per_second"`

	LearnedPatterns int `json:"learned_patterns,omitempty"`

	Timing TimingStats `json:"timing"`

	// Items is populated only when the run records per-item outcomes.
	Items []ItemResult `json:"items,omitempty"`
}

// ItemResult is one row's outcome in a per-item summary.
type ItemResult struct {
	Row      int    `json:"row"`
	Status   string `json:"status"`
	Zones    int    `json:"zones,omitempty"`
	Artifact string `json:"artifact,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

func (s *Summary) finalize(durations []float64) {
	s.DurationSeconds = s.FinishedAt.Sub(s.StartedAt).Seconds()
	if s.DurationSeconds > 0 {
		s.ItemsPerSecond = float64(len(durations)) / s.DurationSeconds
	}
	if len(durations) == 0 {
		return
	}
	s.Timing = TimingStats{
		MeanSeconds: stats.Mean(durations),
		P50Seconds:  stats.Percentile(durations, 50),
		P95Seconds:  stats.Percentile(durations, 95),
		MaxSeconds:  stats.Percentile(durations, 100),
	}
}

// Write persists the summary as indented JSON.
func (s *Summary) Write(path string) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal summary: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write summary: %w", err)
	}
	return nil
}
