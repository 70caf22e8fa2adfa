package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/ondc-data/geo-enricher/internal/models"
)

// RunRepository handles database operations for enrichment run tasks
type RunRepository struct {
	db *sql.DB
}

// NewRunRepository creates a new run repository
func NewRunRepository(db *sql.DB) *RunRepository {
	return &RunRepository{db: db}
}

// Create creates a new run task
func (r *RunRepository) Create(task *models.RunTask) error {
	query := `
		INSERT INTO run_tasks (
			run_id, flow, status, total_items, processed_items, failed_items,
			start_time, end_time, eta_seconds, error_message, created_by
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.Exec(query,
		task.RunID,
		task.Flow,
		task.Status,
		task.TotalItems,
		task.ProcessedItems,
		task.FailedItems,
		task.StartTime,
		task.EndTime,
		task.ETASeconds,
		task.ErrorMessage,
		task.CreatedBy,
	)

	if err != nil {
		return fmt.Errorf("failed to create run task: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	task.ID = int(id)
	return nil
}

// GetByID retrieves a run task by ID
func (r *RunRepository) GetByID(id int) (*models.RunTask, error) {
	query := `
		SELECT id, run_id, flow, status, total_items, processed_items, failed_items,
			   start_time, end_time, eta_seconds, error_message, created_by,
			   created_at, updated_at
		FROM run_tasks
		WHERE id = ?
	`

	task := &models.RunTask{}
	err := r.db.QueryRow(query, id).Scan(
		&task.ID,
		&task.RunID,
		&task.Flow,
		&task.Status,
		&task.TotalItems,
		&task.ProcessedItems,
		&task.FailedItems,
		&task.StartTime,
		&task.EndTime,
		&task.ETASeconds,
		&task.ErrorMessage,
		&task.CreatedBy,
		&task.CreatedAt,
		&task.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run task not found: %d", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run task: %w", err)
	}

	return task, nil
}

// List retrieves run tasks with optional status and flow filters
func (r *RunRepository) List(status, flow string, limit int, offset int) ([]*models.RunTask, error) {
	query := `
		SELECT id, run_id, flow, status, total_items, processed_items, failed_items,
			   start_time, end_time, eta_seconds, error_message, created_by,
			   created_at, updated_at
		FROM run_tasks
	`

	var conditions []string
	args := []interface{}{}
	if status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, status)
	}
	if flow != "" {
		conditions = append(conditions, "flow = ?")
		args = append(args, flow)
	}
	for i, cond := range conditions {
		if i == 0 {
			query += " WHERE " + cond
		} else {
			query += " AND " + cond
		}
	}

	query += " ORDER BY created_at DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list run tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*models.RunTask
	for rows.Next() {
		task := &models.RunTask{}
		err := rows.Scan(
			&task.ID,
			&task.RunID,
			&task.Flow,
			&task.Status,
			&task.TotalItems,
			&task.ProcessedItems,
			&task.FailedItems,
			&task.StartTime,
			&task.EndTime,
			&task.ETASeconds,
			&task.ErrorMessage,
			&task.CreatedBy,
			&task.CreatedAt,
			&task.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run task: %w", err)
		}
		tasks = append(tasks, task)
	}

	return tasks, rows.Err()
}

// UpdateProgress updates the progress counters of a run task
func (r *RunRepository) UpdateProgress(id int, processedItems, failedItems int, etaSeconds *int) error {
	query := `
		UPDATE run_tasks
		SET processed_items = ?, failed_items = ?, eta_seconds = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`

	_, err := r.db.Exec(query, processedItems, failedItems, etaSeconds, id)
	if err != nil {
		return fmt.Errorf("failed to update task progress: %w", err)
	}

	return nil
}

// MarkAsRunning marks a task as running and stamps its start time
func (r *RunRepository) MarkAsRunning(id int, runID string) error {
	now := time.Now()
	query := `
		UPDATE run_tasks
		SET status = ?, run_id = ?, start_time = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`

	_, err := r.db.Exec(query, models.TaskStatusRunning, runID, now, id)
	if err != nil {
		return fmt.Errorf("failed to mark task as running: %w", err)
	}

	return nil
}

// MarkAsCompleted marks a task as completed with its final counters
func (r *RunRepository) MarkAsCompleted(id int, processedItems, failedItems int) error {
	now := time.Now()
	query := `
		UPDATE run_tasks
		SET status = ?, end_time = ?, processed_items = ?, failed_items = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`

	_, err := r.db.Exec(query, models.TaskStatusCompleted, now, processedItems, failedItems, id)
	if err != nil {
		return fmt.Errorf("failed to mark task as completed: %w", err)
	}

	return nil
}

// MarkAsFailed marks a task as failed with an error message
func (r *RunRepository) MarkAsFailed(id int, errorMessage string) error {
	now := time.Now()
	query := `
		UPDATE run_tasks
		SET status = ?, end_time = ?, error_message = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`

	_, err := r.db.Exec(query, models.TaskStatusFailed, now, errorMessage, id)
	if err != nil {
		return fmt.Errorf("failed to mark task as failed: %w", err)
	}

	return nil
}

// SetRunID stamps the batch run identifier once the orchestrator assigns it
func (r *RunRepository) SetRunID(id int, runID string) error {
	query := `UPDATE run_tasks SET run_id = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`
	if _, err := r.db.Exec(query, runID, id); err != nil {
		return fmt.Errorf("failed to set run id: %w", err)
	}
	return nil
}

// CountRunning counts tasks currently in the running state
func (r *RunRepository) CountRunning() (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM run_tasks WHERE status = ?", models.TaskStatusRunning).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count running tasks: %w", err)
	}
	return count, nil
}
