package exporter

import (
	"fmt"

	"edupulse/pkg/contracts/domain"
)

// TableExporter writes individual stage tables as CSV files, for operators
// who want the intermediate data outside the workbook.
type TableExporter struct {
	csvWriter *CSVWriter
}

// NewTableExporter creates a table exporter rooted at the given directory.
func NewTableExporter(baseDir string) *TableExporter {
	return &TableExporter{csvWriter: NewCSVWriter(baseDir)}
}

// ExportDataset writes a cleaned dataset verbatim.
func (t *TableExporter) ExportDataset(path string, ds *domain.Dataset) error {
	if ds == nil {
		return fmt.Errorf("dataset is nil")
	}
	return t.csvWriter.WriteSimpleCSV(path, ds.Columns, ds.Rows)
}

// ExportReshaped writes the pivot table in wide form.
func (t *TableExporter) ExportReshaped(path string, table *domain.ReshapedTable) error {
	if table == nil {
		return fmt.Errorf("reshaped table is nil")
	}

	headers := append([]string{"User_ID", "Bucket"}, table.Components...)
	headers = append(headers, "Total_Interactions")

	records := make([][]string, 0, len(table.Rows))
	for _, row := range table.Rows {
		record := []string{formatInt(row.UserID), row.Bucket}
		for _, component := range table.Components {
			record = append(record, fmt.Sprintf("%d", row.Counts[component]))
		}
		record = append(record, fmt.Sprintf("%d", row.TotalInteractions))
		records = append(records, record)
	}

	return t.csvWriter.WriteSimpleCSV(path, headers, records)
}

// ExportInteractionCounts writes the long-form per-(user, component,
// bucket) counts.
func (t *TableExporter) ExportInteractionCounts(path string, summary *domain.InteractionSummary) error {
	if summary == nil {
		return fmt.Errorf("summary is nil")
	}

	headers := []string{"User_ID", "Component", "Month", "Interaction_Count"}
	records := make([][]string, 0, len(summary.Counts))
	for _, count := range summary.Counts {
		records = append(records, []string{
			formatInt(count.UserID),
			count.Component,
			count.Bucket,
			fmt.Sprintf("%d", count.Count),
		})
	}

	return t.csvWriter.WriteSimpleCSV(path, headers, records)
}
