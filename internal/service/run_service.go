package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ondc-data/geo-enricher/internal/batch"
	"github.com/ondc-data/geo-enricher/internal/checkpoint"
	"github.com/ondc-data/geo-enricher/internal/config"
	"github.com/ondc-data/geo-enricher/internal/dataset"
	"github.com/ondc-data/geo-enricher/internal/metrics"
	"github.com/ondc-data/geo-enricher/internal/models"
	"github.com/ondc-data/geo-enricher/internal/repository"
	"github.com/ondc-data/geo-enricher/internal/traffic"
)

// RunRequest describes an enrichment run submitted through the API.
type RunRequest struct {
	Flow       string `json:"flow" binding:"required"`
	InputPath  string `json:"input_path" binding:"required"`
	OutputPath string `json:"output_path"`
}

// RunService owns enrichment runs triggered through the API. Runs execute
// in-process on a background goroutine; one at a time, since two runs over
// the same workbook would race on the checkpoint.
type RunService struct {
	repo     *repository.RunRepository
	patterns *repository.TrafficPatternRepository
	cfg      *config.Config
	metrics  *metrics.Metrics
	logger   *slog.Logger

	mu      sync.Mutex
	running bool
}

// NewRunService creates a run service. patterns and metrics may be nil.
func NewRunService(repo *repository.RunRepository, patterns *repository.TrafficPatternRepository, cfg *config.Config, m *metrics.Metrics, logger *slog.Logger) *RunService {
	if logger == nil {
		logger = slog.Default()
	}
	return &RunService{repo: repo, patterns: patterns, cfg: cfg, metrics: m, logger: logger}
}

// CreateTask records a run task and starts executing it in the background.
func (s *RunService) CreateTask(req RunRequest, createdBy string) (*models.RunTask, error) {
	if req.Flow != models.FlowGeocode && req.Flow != models.FlowZones {
		return nil, fmt.Errorf("unknown flow %q", req.Flow)
	}

	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil, fmt.Errorf("another run is already in progress")
	}
	s.running = true
	s.mu.Unlock()

	task := &models.RunTask{
		Flow:      req.Flow,
		Status:    models.TaskStatusPending,
		CreatedBy: createdBy,
	}
	if err := s.repo.Create(task); err != nil {
		s.release()
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	go s.execute(task.ID, req)

	return task, nil
}

func (s *RunService) release() {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}

// execute runs one enrichment task to completion and records the outcome.
func (s *RunService) execute(taskID int, req RunRequest) {
	defer s.release()

	summary, err := s.run(taskID, req)
	if err != nil {
		s.logger.Error("run task failed", "task_id", taskID, "error", err)
		if markErr := s.repo.MarkAsFailed(taskID, err.Error()); markErr != nil {
			s.logger.Error("failed to record task failure", "task_id", taskID, "error", markErr)
		}
		return
	}

	processed := summary.Succeeded + summary.Failed + summary.Skipped
	if err := s.repo.MarkAsCompleted(taskID, processed, summary.Failed); err != nil {
		s.logger.Error("failed to record task completion", "task_id", taskID, "error", err)
	}
}

func (s *RunService) run(taskID int, req RunRequest) (*batch.Summary, error) {
	ds, err := dataset.Open(req.InputPath)
	if err != nil {
		return nil, err
	}
	defer ds.Close()

	var pipeline batch.Pipeline
	switch req.Flow {
	case models.FlowGeocode:
		pipeline, err = BuildGeocodePipeline(ds, s.cfg, s.logger)
	case models.FlowZones:
		pipeline, err = BuildZonesPipeline(ds, s.cfg, s.trafficModel(), time.Now(), s.logger)
	}
	if err != nil {
		return nil, err
	}

	if markErr := s.repo.MarkAsRunning(taskID, ""); markErr != nil {
		s.logger.Warn("failed to mark task as running", "task_id", taskID, "error", markErr)
	}

	orch := batch.New(ds, checkpoint.NewStore(s.logger), pipeline, batch.Options{
		Workers:            s.cfg.Batch.Workers,
		CheckpointInterval: s.cfg.Batch.CheckpointInterval,
		OutputPath:         req.OutputPath,
		RecordItems:        req.Flow == models.FlowZones,
		OnProgress: func(processed, failed, etaSeconds int) {
			if err := s.repo.UpdateProgress(taskID, processed, failed, &etaSeconds); err != nil {
				s.logger.Warn("failed to update task progress", "task_id", taskID, "error", err)
			}
		},
	}, s.metrics, s.logger)

	summary, err := orch.Run(context.Background())
	if err != nil {
		return nil, err
	}

	if markErr := s.repo.SetRunID(taskID, summary.RunID); markErr != nil {
		s.logger.Warn("failed to stamp run id", "task_id", taskID, "error", markErr)
	}
	return summary, nil
}

// trafficModel builds the configured model and overlays patterns persisted
// in the database, syncing back any new ones learned from CSV data.
func (s *RunService) trafficModel() *traffic.Model {
	model := BuildTrafficModel(s.cfg, s.logger)
	if s.patterns == nil {
		return model
	}

	stored, err := s.patterns.LoadAll()
	if err != nil {
		s.logger.Warn("failed to load stored traffic patterns", "error", err)
		return model
	}

	merged := model.Patterns()
	for key, p := range stored {
		if _, ok := merged[key]; !ok {
			merged[key] = p
		}
	}
	model.SetPatterns(merged)

	if len(merged) > len(stored) {
		if err := s.patterns.SaveAll(merged); err != nil {
			s.logger.Warn("failed to persist traffic patterns", "error", err)
		}
	}
	return model
}

// GetTask retrieves a task by ID
func (s *RunService) GetTask(id int) (*models.RunTask, error) {
	return s.repo.GetByID(id)
}

// ListTasks retrieves tasks with optional status and flow filters
func (s *RunService) ListTasks(status, flow string, limit, offset int) ([]*models.RunTask, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.List(status, flow, limit, offset)
}
