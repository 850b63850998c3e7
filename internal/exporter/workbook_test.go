package exporter

import (
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"edupulse/pkg/contracts/domain"
)

func sampleInput() WorkbookInput {
	ts, _ := time.Parse("2006-01-02 15:04:05", "2024-01-05 10:00:00")
	session, _ := time.Parse("2006-01-02 15:04:05", "2024-01-05 09:00:00")

	return WorkbookInput{
		Processed: &domain.Dataset{
			Kind:    domain.DatasetActivityLog,
			Columns: []string{"User_ID", "Component", "Action", "Date"},
			Rows: [][]string{
				{"1", "Quiz", "viewed", "2024-01-05 10:00:00"},
			},
		},
		Merged: []domain.MergedRecord{
			{
				UserID:        1,
				Component:     "Quiz",
				ComponentCode: "QZ",
				Action:        "viewed",
				Timestamp:     ts,
				SessionTime:   session,
			},
		},
		Diagnostics: domain.MergeDiagnostics{UnmatchedUsers: 2},
		Reshaped: &domain.ReshapedTable{
			Granularity: domain.BucketMonthly,
			Components:  []string{"Quiz"},
			Rows: []domain.ReshapedRow{
				{UserID: 1, Bucket: "2024-01", Counts: map[string]int{"Quiz": 1}, TotalInteractions: 1},
			},
		},
		Summary: &domain.InteractionSummary{
			UserTotals:        map[int64]int{1: 1},
			ComponentTotals:   map[string]int{"Quiz": 1},
			TotalInteractions: 1,
			Counts: []domain.InteractionCount{
				{UserID: 1, Component: "Quiz", Bucket: "2024-01", Count: 1},
			},
			Stats: domain.BucketStats{HasData: true, BucketCount: 1, MeanPerBucket: 1, MaxPerBucket: 1},
		},
	}
}

func TestWorkbookWrite(t *testing.T) {
	writer := NewWorkbookWriter(slog.Default())
	path := filepath.Join(t.TempDir(), "reports", "run.xlsx")

	require.NoError(t, writer.Write(path, sampleInput()))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.ElementsMatch(t,
		[]string{SheetProcessed, SheetMerged, SheetReshaped, SheetSummary},
		f.GetSheetList(), "default Sheet1 must be removed")

	// Processed sheet carries the dataset verbatim
	value, err := f.GetCellValue(SheetProcessed, "A1")
	require.NoError(t, err)
	assert.Equal(t, "User_ID", value)
	value, err = f.GetCellValue(SheetProcessed, "B2")
	require.NoError(t, err)
	assert.Equal(t, "Quiz", value)

	// Merged sheet attaches the component code
	value, err = f.GetCellValue(SheetMerged, "C2")
	require.NoError(t, err)
	assert.Equal(t, "QZ", value)

	// Reshaped sheet: User_ID, Bucket, Quiz, Total_Interactions
	value, err = f.GetCellValue(SheetReshaped, "D1")
	require.NoError(t, err)
	assert.Equal(t, "Total_Interactions", value)
	value, err = f.GetCellValue(SheetReshaped, "C2")
	require.NoError(t, err)
	assert.Equal(t, "1", value)

	// Summary sheet opens with the long-form counts header
	value, err = f.GetCellValue(SheetSummary, "A1")
	require.NoError(t, err)
	assert.Equal(t, "User_ID", value)
}

func TestWorkbookWrite_EmptyInput(t *testing.T) {
	writer := NewWorkbookWriter(slog.Default())
	path := filepath.Join(t.TempDir(), "empty.xlsx")

	require.NoError(t, writer.Write(path, WorkbookInput{}))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	// all four sheets exist even when no stage has produced output
	assert.Len(t, f.GetSheetList(), 4)
}
