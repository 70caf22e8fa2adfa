package checkpoint

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingReturnsFresh(t *testing.T) {
	store := NewStore(nil)
	dataset := filepath.Join(t.TempDir(), "stores.xlsx")

	rec, err := store.Load(dataset)
	require.NoError(t, err)
	assert.Equal(t, 0, rec.LastRow)
	assert.Equal(t, 0, rec.ProcessedCount)
	assert.False(t, rec.StartedAt.IsZero())
}

func TestSaveLoadRoundTrip(t *testing.T) {
	store := NewStore(nil)
	dataset := filepath.Join(t.TempDir(), "stores.xlsx")

	rec := &Record{
		LastRow:        42,
		ProcessedCount: 40,
		SuccessCount:   35,
		FailCount:      5,
		RunID:          "run-1",
		StartedAt:      time.Now().Add(-time.Hour),
	}
	require.NoError(t, store.Save(dataset, rec))
	assert.False(t, rec.LastUpdated.IsZero())

	loaded, err := store.Load(dataset)
	require.NoError(t, err)
	assert.Equal(t, 42, loaded.LastRow)
	assert.Equal(t, 40, loaded.ProcessedCount)
	assert.Equal(t, 35, loaded.SuccessCount)
	assert.Equal(t, 5, loaded.FailCount)
	assert.Equal(t, "run-1", loaded.RunID)
}

func TestLoadCorruptTreatedAsAbsent(t *testing.T) {
	store := NewStore(nil)
	dataset := filepath.Join(t.TempDir(), "stores.xlsx")

	require.NoError(t, os.WriteFile(store.Path(dataset), []byte("{not json"), 0o644))

	rec, err := store.Load(dataset)
	require.NoError(t, err)
	assert.Equal(t, 0, rec.LastRow)
}

func TestSaveLeavesNoTempFile(t *testing.T) {
	store := NewStore(nil)
	dir := t.TempDir()
	dataset := filepath.Join(dir, "stores.xlsx")

	require.NoError(t, store.Save(dataset, &Record{LastRow: 1}))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "stores_progress.json", entries[0].Name())
}

func TestClear(t *testing.T) {
	store := NewStore(nil)
	dataset := filepath.Join(t.TempDir(), "stores.xlsx")

	require.NoError(t, store.Save(dataset, &Record{LastRow: 3}))
	require.NoError(t, store.Clear(dataset))

	_, err := os.Stat(store.Path(dataset))
	assert.True(t, os.IsNotExist(err))

	// clearing twice is fine
	assert.NoError(t, store.Clear(dataset))
}
