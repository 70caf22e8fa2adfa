package repository

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/ondc-data/geo-enricher/internal/database"
	"github.com/ondc-data/geo-enricher/internal/models"
	"github.com/ondc-data/geo-enricher/internal/traffic"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.RunMigrations(db))
	return db
}

func TestRunRepositoryLifecycle(t *testing.T) {
	repo := NewRunRepository(openTestDB(t))

	task := &models.RunTask{
		Flow:      models.FlowGeocode,
		Status:    models.TaskStatusPending,
		CreatedBy: "admin",
	}
	require.NoError(t, repo.Create(task))
	require.NotZero(t, task.ID)

	require.NoError(t, repo.MarkAsRunning(task.ID, ""))
	require.NoError(t, repo.SetRunID(task.ID, "run-1"))
	require.NoError(t, repo.UpdateProgress(task.ID, 40, 2, nil))
	require.NoError(t, repo.MarkAsCompleted(task.ID, 100, 3))

	got, err := repo.GetByID(task.ID)
	require.NoError(t, err)
	assert.Equal(t, "run-1", got.RunID)
	assert.Equal(t, models.TaskStatusCompleted, got.Status)
	assert.Equal(t, 100, got.ProcessedItems)
	assert.Equal(t, 3, got.FailedItems)
	require.NotNil(t, got.StartTime)
	require.NotNil(t, got.EndTime)
	assert.True(t, got.IsTerminal())
}

func TestRunRepositoryMarkAsFailed(t *testing.T) {
	repo := NewRunRepository(openTestDB(t))

	task := &models.RunTask{Flow: models.FlowZones, Status: models.TaskStatusPending}
	require.NoError(t, repo.Create(task))
	require.NoError(t, repo.MarkAsFailed(task.ID, "dataset missing"))

	got, err := repo.GetByID(task.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusFailed, got.Status)
	require.NotNil(t, got.ErrorMessage)
	assert.Equal(t, "dataset missing", *got.ErrorMessage)
}

func TestRunRepositoryList(t *testing.T) {
	repo := NewRunRepository(openTestDB(t))

	for _, flow := range []string{models.FlowGeocode, models.FlowZones, models.FlowZones} {
		require.NoError(t, repo.Create(&models.RunTask{Flow: flow, Status: models.TaskStatusPending}))
	}

	all, err := repo.List("", "", 10, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	zonesOnly, err := repo.List("", models.FlowZones, 10, 0)
	require.NoError(t, err)
	assert.Len(t, zonesOnly, 2)

	page, err := repo.List("", "", 2, 2)
	require.NoError(t, err)
	assert.Len(t, page, 1)
}

func TestRunRepositoryGetMissing(t *testing.T) {
	repo := NewRunRepository(openTestDB(t))

	_, err := repo.GetByID(999)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestTrafficPatternRepositoryRoundTrip(t *testing.T) {
	repo := NewTrafficPatternRepository(openTestDB(t))

	patterns := map[traffic.PatternKey]traffic.LearnedPattern{
		{Pincode: "560001", Hour: 8, Day: 0}:  {SpeedKmh: 12.5, Samples: 9, Confidence: 0.9},
		{Pincode: "411001", Hour: 18, Day: 4}: {SpeedKmh: 18.0, Samples: 3, Confidence: 0.3},
	}
	require.NoError(t, repo.SaveAll(patterns))

	count, err := repo.Count()
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	loaded, err := repo.LoadAll()
	require.NoError(t, err)
	assert.Equal(t, patterns, loaded)

	// upsert replaces, never duplicates
	patterns[traffic.PatternKey{Pincode: "560001", Hour: 8, Day: 0}] = traffic.LearnedPattern{SpeedKmh: 14.0, Samples: 12, Confidence: 1.0}
	require.NoError(t, repo.SaveAll(patterns))

	count, err = repo.Count()
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	loaded, err = repo.LoadAll()
	require.NoError(t, err)
	assert.InDelta(t, 14.0, loaded[traffic.PatternKey{Pincode: "560001", Hour: 8, Day: 0}].SpeedKmh, 1e-9)
}
