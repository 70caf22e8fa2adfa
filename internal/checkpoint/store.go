package checkpoint

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Record tracks enrichment progress for one dataset file. LastRow is
// monotonically non-decreasing within a run and is the single source of
// truth for where a resumed run continues.
type Record struct {
	LastRow        int       `json:"last_row"`
	ProcessedCount int       `json:"processed_count"`
	SuccessCount   int       `json:"success_count"`
	FailCount      int       `json:"fail_count"`
	RunID          string    `json:"run_id"`
	StartedAt      time.Time `json:"started_at"`
	LastUpdated    time.Time `json:"last_updated"`
}

// Store persists Records as JSON sidecar files next to the dataset.
type Store struct {
	logger *slog.Logger
}

// NewStore creates a checkpoint store.
func NewStore(logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{logger: logger}
}

// Path returns the sidecar file for a dataset path.
func (s *Store) Path(datasetPath string) string {
	stem := strings.TrimSuffix(datasetPath, filepath.Ext(datasetPath))
	return stem + "_progress.json"
}

// Load returns the checkpoint for a dataset, or a fresh zeroed record when
// none exists. A corrupt or unreadable file is treated as absent so a bad
// checkpoint can never block a restart.
func (s *Store) Load(datasetPath string) (*Record, error) {
	path := s.Path(datasetPath)

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &Record{StartedAt: time.Now()}, nil
	}
	if err != nil {
		s.logger.Warn("checkpoint unreadable, starting fresh", "path", path, "error", err)
		return &Record{StartedAt: time.Now()}, nil
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		s.logger.Warn("checkpoint corrupt, starting fresh", "path", path, "error", err)
		return &Record{StartedAt: time.Now()}, nil
	}

	s.logger.Info("resuming from checkpoint",
		"path", path, "last_row", rec.LastRow, "processed", rec.ProcessedCount)
	return &rec, nil
}

// Save durably persists the record, refreshing its flush timestamp. The
// write goes to a temporary file first and is renamed into place, so a
// crash mid-write leaves either the old or the new record intact.
func (s *Store) Save(datasetPath string, rec *Record) error {
	path := s.Path(datasetPath)
	rec.LastUpdated = time.Now()

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal checkpoint: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write checkpoint: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace checkpoint: %w", err)
	}

	return nil
}

// Clear removes the checkpoint file. Called only after a run completes with
// nothing left to resume.
func (s *Store) Clear(datasetPath string) error {
	path := s.Path(datasetPath)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove checkpoint: %w", err)
	}
	return nil
}
