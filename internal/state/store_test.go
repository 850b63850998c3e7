package state

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"edupulse/pkg/contracts/domain"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	return store
}

func TestRunLifecycle(t *testing.T) {
	store := openTestStore(t)

	require.NoError(t, store.BeginRun("run-1"))

	runs, err := store.RecentRuns(10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "run-1", runs[0].RunID)
	assert.Equal(t, "active", runs[0].Status)
	assert.Nil(t, runs[0].FinishedAt)

	diag := domain.MergeDiagnostics{UnmatchedUsers: 2, ExcludedComponents: 1}
	require.NoError(t, store.FinishRun("run-1", 42, diag, nil))

	runs, err = store.RecentRuns(10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "completed", runs[0].Status)
	assert.Equal(t, 42, runs[0].MergedRows)
	assert.Equal(t, 2, runs[0].UnmatchedUsers)
	assert.Equal(t, 1, runs[0].ExcludedComponents)
	assert.NotNil(t, runs[0].FinishedAt)
	assert.Empty(t, runs[0].LastError)
}

func TestFinishRun_Failure(t *testing.T) {
	store := openTestStore(t)

	require.NoError(t, store.BeginRun("run-1"))
	require.NoError(t, store.FinishRun("run-1", 0, domain.MergeDiagnostics{}, errors.New("merge failed")))

	runs, err := store.RecentRuns(1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "failed", runs[0].Status)
	assert.Equal(t, "merge failed", runs[0].LastError)
}

func TestDatasetStats(t *testing.T) {
	store := openTestStore(t)

	require.NoError(t, store.BeginRun("run-1"))
	require.NoError(t, store.RecordDatasetStat("run-1", domain.DatasetActivityLog, 100, 80))
	require.NoError(t, store.RecordDatasetStat("run-1", domain.DatasetUserLog, 50, 50))

	stats, err := store.DatasetStats("run-1")
	require.NoError(t, err)
	require.Len(t, stats, 2)
	assert.Equal(t, string(domain.DatasetActivityLog), stats[0].Dataset)
	assert.Equal(t, 100, stats[0].TotalRows)
	assert.Equal(t, 80, stats[0].FilteredRows)
	assert.Equal(t, 20, stats[0].RemovedRows)

	stats, err = store.DatasetStats("run-other")
	require.NoError(t, err)
	assert.Empty(t, stats)
}

func TestProcessedFiles(t *testing.T) {
	store := openTestStore(t)

	processed, err := store.IsProcessed("/data/activity.csv")
	require.NoError(t, err)
	assert.False(t, processed)

	require.NoError(t, store.MarkProcessed("/data/activity.csv", domain.DatasetActivityLog, 100))

	processed, err = store.IsProcessed("/data/activity.csv")
	require.NoError(t, err)
	assert.True(t, processed)

	// re-registering the same path updates instead of duplicating
	require.NoError(t, store.MarkProcessed("/data/activity.csv", domain.DatasetActivityLog, 120))

	var count int64
	require.NoError(t, store.db.Model(&ProcessedFile{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}
