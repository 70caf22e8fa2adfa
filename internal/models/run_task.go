package models

import "time"

// RunFlow identifies which enrichment pipeline a task runs.
const (
	FlowGeocode = "geocode"
	FlowZones   = "zones"
)

// RunTask represents a batch enrichment run triggered through the API.
type RunTask struct {
	ID             int        `json:"id" db:"id"`
	RunID          string     `json:"run_id" db:"run_id"`
	Flow           string     `json:"flow" db:"flow"`     // geocode, zones
	Status         string     `json:"status" db:"status"` // pending, running, completed, failed
	TotalItems     int        `json:"total_items" db:"total_items"`
	ProcessedItems int        `json:"processed_items" db:"processed_items"`
	FailedItems    int        `json:"failed_items" db:"failed_items"`
	StartTime      *time.Time `json:"start_time,omitempty" db:"start_time"`
	EndTime        *time.Time `json:"end_time,omitempty" db:"end_time"`
	ETASeconds     *int       `json:"eta_seconds,omitempty" db:"eta_seconds"`
	ErrorMessage   *string    `json:"error_message,omitempty" db:"error_message"`
	CreatedBy      string     `json:"created_by" db:"created_by"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at" db:"updated_at"`
}

// TaskStatus constants
const (
	TaskStatusPending   = "pending"
	TaskStatusRunning   = "running"
	TaskStatusCompleted = "completed"
	TaskStatusFailed    = "failed"
)

// IsTerminal returns true if the task is in a terminal state
func (t *RunTask) IsTerminal() bool {
	return t.Status == TaskStatusCompleted || t.Status == TaskStatusFailed
}

// Progress returns the completion percentage (0-100)
func (t *RunTask) Progress() float64 {
	if t.TotalItems == 0 {
		return 0
	}
	return float64(t.ProcessedItems) / float64(t.TotalItems) * 100
}
