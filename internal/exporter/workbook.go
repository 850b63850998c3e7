package exporter

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"edupulse/internal/errors"
	"edupulse/pkg/contracts/domain"
)

// Sheet names, one per pipeline stage output.
const (
	SheetProcessed = "Processed"
	SheetMerged    = "Merged"
	SheetReshaped  = "Reshaped"
	SheetSummary   = "Summary"
)

// WorkbookInput collects the stage outputs that make up one exported run.
// Nil members produce an empty sheet rather than failing: a partially
// advanced pipeline can still be exported.
type WorkbookInput struct {
	Processed   *domain.Dataset
	Merged      []domain.MergedRecord
	Diagnostics domain.MergeDiagnostics
	Reshaped    *domain.ReshapedTable
	Summary     *domain.InteractionSummary
}

// WorkbookWriter persists pipeline outputs as an Excel workbook with one
// sheet per stage.
type WorkbookWriter struct {
	logger *slog.Logger
}

// NewWorkbookWriter creates a workbook writer. A nil logger falls back to
// slog.Default.
func NewWorkbookWriter(logger *slog.Logger) *WorkbookWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &WorkbookWriter{logger: logger}
}

// Write saves the workbook to path, creating parent directories as needed.
func (w *WorkbookWriter) Write(path string, input WorkbookInput) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.NewStorageError("failed to create workbook directory", err).
			WithContext("path", path)
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := w.writeProcessedSheet(f, input.Processed); err != nil {
		return err
	}
	if err := w.writeMergedSheet(f, input.Merged); err != nil {
		return err
	}
	if err := w.writeReshapedSheet(f, input.Reshaped); err != nil {
		return err
	}
	if err := w.writeSummarySheet(f, input.Summary, input.Diagnostics); err != nil {
		return err
	}

	// Drop the default sheet excelize creates with every new file
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return errors.NewStorageError("failed to remove default sheet", err)
	}

	if err := f.SaveAs(path); err != nil {
		return errors.NewStorageError("failed to save workbook", err).
			WithContext("path", path)
	}

	w.logger.Info("exported workbook",
		slog.String("path", path),
		slog.Int("merged_rows", len(input.Merged)))

	return nil
}

// writeProcessedSheet writes the cleaned activity dataset verbatim.
func (w *WorkbookWriter) writeProcessedSheet(f *excelize.File, ds *domain.Dataset) error {
	if _, err := f.NewSheet(SheetProcessed); err != nil {
		return errors.NewStorageError("failed to create Processed sheet", err)
	}
	if ds == nil {
		return nil
	}

	header := make([]interface{}, len(ds.Columns))
	for i, col := range ds.Columns {
		header[i] = col
	}
	if err := setRow(f, SheetProcessed, 1, header); err != nil {
		return err
	}
	for i, row := range ds.Rows {
		cells := make([]interface{}, len(row))
		for j, cell := range row {
			cells[j] = cell
		}
		if err := setRow(f, SheetProcessed, i+2, cells); err != nil {
			return err
		}
	}
	return nil
}

// writeMergedSheet writes the merged record set in long form.
func (w *WorkbookWriter) writeMergedSheet(f *excelize.File, records []domain.MergedRecord) error {
	if _, err := f.NewSheet(SheetMerged); err != nil {
		return errors.NewStorageError("failed to create Merged sheet", err)
	}

	header := []interface{}{"User_ID", "Component", "Code", "Category", "Action", "Target", "Date", "Session"}
	if err := setRow(f, SheetMerged, 1, header); err != nil {
		return err
	}
	for i, record := range records {
		row := []interface{}{
			record.UserID,
			record.Component,
			record.ComponentCode,
			record.Category,
			record.Action,
			record.Target,
			record.Timestamp.Format("2006-01-02 15:04:05"),
			record.SessionTime.Format("2006-01-02 15:04:05"),
		}
		if err := setRow(f, SheetMerged, i+2, row); err != nil {
			return err
		}
	}
	return nil
}

// writeReshapedSheet writes the wide pivot with one column per component
// plus the per-row interaction total.
func (w *WorkbookWriter) writeReshapedSheet(f *excelize.File, table *domain.ReshapedTable) error {
	if _, err := f.NewSheet(SheetReshaped); err != nil {
		return errors.NewStorageError("failed to create Reshaped sheet", err)
	}
	if table == nil {
		return nil
	}

	header := []interface{}{"User_ID", "Bucket"}
	for _, component := range table.Components {
		header = append(header, component)
	}
	header = append(header, "Total_Interactions")
	if err := setRow(f, SheetReshaped, 1, header); err != nil {
		return err
	}

	for i, row := range table.Rows {
		cells := []interface{}{row.UserID, row.Bucket}
		for _, component := range table.Components {
			cells = append(cells, row.Counts[component])
		}
		cells = append(cells, row.TotalInteractions)
		if err := setRow(f, SheetReshaped, i+2, cells); err != nil {
			return err
		}
	}
	return nil
}

// writeSummarySheet writes aggregate metrics: the long-form interaction
// counts, per-user and per-component totals, descriptive statistics, and
// the merge diagnostics tallies.
func (w *WorkbookWriter) writeSummarySheet(f *excelize.File, summary *domain.InteractionSummary, diag domain.MergeDiagnostics) error {
	if _, err := f.NewSheet(SheetSummary); err != nil {
		return errors.NewStorageError("failed to create Summary sheet", err)
	}
	if summary == nil {
		return nil
	}

	rowNum := 1
	write := func(cells []interface{}) error {
		err := setRow(f, SheetSummary, rowNum, cells)
		rowNum++
		return err
	}

	if err := write([]interface{}{"User_ID", "Component", "Bucket", "Interaction_Count"}); err != nil {
		return err
	}
	for _, count := range summary.Counts {
		if err := write([]interface{}{count.UserID, count.Component, count.Bucket, count.Count}); err != nil {
			return err
		}
	}

	stats := [][]interface{}{
		{},
		{"Total_Interactions", summary.TotalInteractions},
		{"Users", len(summary.UserTotals)},
		{"Components", len(summary.ComponentTotals)},
		{"Buckets", summary.Stats.BucketCount},
		{"Mean_Per_Bucket", formatFloat(summary.Stats.MeanPerBucket)},
		{"Max_Per_Bucket", summary.Stats.MaxPerBucket},
		{"Unmatched_Users", diag.UnmatchedUsers},
		{"Unmatched_Components", diag.UnmatchedComponents},
		{"Excluded_Components", diag.ExcludedComponents},
	}
	for _, cells := range stats {
		if err := write(cells); err != nil {
			return err
		}
	}
	return nil
}

// setRow writes one row of cells starting at column A.
func setRow(f *excelize.File, sheet string, row int, cells []interface{}) error {
	if len(cells) == 0 {
		return nil
	}
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return errors.NewStorageError("invalid cell coordinates", err)
	}
	if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
		return errors.NewStorageError(fmt.Sprintf("failed to write row %d of %s sheet", row, sheet), err)
	}
	return nil
}
