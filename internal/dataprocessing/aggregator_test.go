package dataprocessing

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "edupulse/internal/errors"
	"edupulse/pkg/contracts/domain"
)

func TestAggregate(t *testing.T) {
	aggregator := NewAggregator(slog.Default())

	table := &domain.ReshapedTable{
		Granularity: domain.BucketMonthly,
		Components:  []string{"Course", "Quiz"},
		Rows: []domain.ReshapedRow{
			{UserID: 1, Bucket: "2024-01", Counts: map[string]int{"Course": 0, "Quiz": 3}, TotalInteractions: 3},
			{UserID: 1, Bucket: "2024-02", Counts: map[string]int{"Course": 2, "Quiz": 1}, TotalInteractions: 3},
			{UserID: 2, Bucket: "2024-01", Counts: map[string]int{"Course": 4, "Quiz": 0}, TotalInteractions: 4},
		},
	}

	summary, err := aggregator.Aggregate(table)
	require.NoError(t, err)

	assert.Equal(t, 10, summary.TotalInteractions)
	assert.Equal(t, map[int64]int{1: 6, 2: 4}, summary.UserTotals)
	assert.Equal(t, map[string]int{"Course": 6, "Quiz": 4}, summary.ComponentTotals)

	// per-user, per-component and grand totals must agree
	userSum, componentSum := 0, 0
	for _, total := range summary.UserTotals {
		userSum += total
	}
	for _, total := range summary.ComponentTotals {
		componentSum += total
	}
	assert.Equal(t, summary.TotalInteractions, userSum)
	assert.Equal(t, summary.TotalInteractions, componentSum)

	// zero cells never appear in the long-form counts
	for _, count := range summary.Counts {
		assert.Greater(t, count.Count, 0)
	}
	want := []domain.InteractionCount{
		{UserID: 1, Component: "Course", Bucket: "2024-02", Count: 2},
		{UserID: 1, Component: "Quiz", Bucket: "2024-01", Count: 3},
		{UserID: 1, Component: "Quiz", Bucket: "2024-02", Count: 1},
		{UserID: 2, Component: "Course", Bucket: "2024-01", Count: 4},
	}
	assert.Equal(t, want, summary.Counts)

	// two buckets: 2024-01 carries 7 interactions, 2024-02 carries 3
	assert.True(t, summary.Stats.HasData)
	assert.Equal(t, 2, summary.Stats.BucketCount)
	assert.InDelta(t, 5.0, summary.Stats.MeanPerBucket, 0.0001)
	assert.Equal(t, 7, summary.Stats.MaxPerBucket)
}

func TestAggregate_EmptyTable(t *testing.T) {
	aggregator := NewAggregator(slog.Default())

	table := &domain.ReshapedTable{Granularity: domain.BucketMonthly}
	summary, err := aggregator.Aggregate(table)
	require.NoError(t, err)

	assert.Equal(t, 0, summary.TotalInteractions)
	assert.Empty(t, summary.UserTotals)
	assert.Empty(t, summary.Counts)
	assert.False(t, summary.Stats.HasData)
	assert.Equal(t, 0, summary.Stats.BucketCount)
	assert.Zero(t, summary.Stats.MeanPerBucket)
}

func TestAggregate_Errors(t *testing.T) {
	aggregator := NewAggregator(slog.Default())

	t.Run("nil table", func(t *testing.T) {
		_, err := aggregator.Aggregate(nil)
		require.Error(t, err)
		assert.True(t, apperrors.IsType(err, apperrors.ErrTypeAggregation))
	})

	t.Run("negative count", func(t *testing.T) {
		table := &domain.ReshapedTable{
			Components: []string{"Quiz"},
			Rows: []domain.ReshapedRow{
				{UserID: 1, Bucket: "2024-01", Counts: map[string]int{"Quiz": -1}},
			},
		}
		_, err := aggregator.Aggregate(table)
		require.Error(t, err)
		assert.True(t, apperrors.IsType(err, apperrors.ErrTypeAggregation))
	})
}

// End-to-end over the stage functions, mirroring the smallest realistic
// dataset: one user, one Quiz view, monthly buckets.
func TestStages_QuizScenario(t *testing.T) {
	logger := slog.Default()
	merger := NewMerger(logger, map[string]bool{"System": true})

	activity := cleanActivity(
		[]string{"1", "Quiz", "viewed", "2024-01-05 10:00:00"},
	)
	userLog := cleanUserLog([]string{"1", "2024-01-05 09:00:00"})
	codes := cleanCodes(
		[]string{"Quiz", "QZ"},
		[]string{"Course", "CRS"},
	)

	records, diag, err := merger.Merge(activity, userLog, codes)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 0, diag.Dropped())

	table, err := NewReshaper(logger).Reshape(records, domain.BucketMonthly)
	require.NoError(t, err)
	require.Len(t, table.Rows, 1)

	row := table.Rows[0]
	assert.Equal(t, int64(1), row.UserID)
	assert.Equal(t, "2024-01", row.Bucket)
	assert.Equal(t, 1, row.Counts["Quiz"])
	assert.Equal(t, 1, row.TotalInteractions)

	summary, err := NewAggregator(logger).Aggregate(table)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.TotalInteractions)
	assert.Equal(t, 1, summary.UserTotals[1])
	assert.Equal(t, 1, summary.ComponentTotals["Quiz"])
}
