package exporter

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"edupulse/pkg/contracts/domain"
)

func TestWriteSimpleCSV(t *testing.T) {
	dir := t.TempDir()
	writer := NewCSVWriter(dir)

	err := writer.WriteSimpleCSV("out.csv",
		[]string{"User_ID", "Component"},
		[][]string{{"1", "Quiz"}, {"2", "Course"}})
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "out.csv"))
	require.NoError(t, err)

	content := string(data)
	assert.True(t, strings.HasPrefix(content, "\xEF\xBB\xBF"), "expected UTF-8 BOM prefix")
	lines := strings.Split(strings.TrimSpace(strings.TrimPrefix(content, "\xEF\xBB\xBF")), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "User_ID,Component", lines[0])
	assert.Equal(t, "1,Quiz", lines[1])
}

func TestAppendToCSV(t *testing.T) {
	dir := t.TempDir()
	writer := NewCSVWriter(dir)

	require.NoError(t, writer.WriteSimpleCSV("out.csv", []string{"A"}, [][]string{{"1"}}))
	require.NoError(t, writer.AppendToCSV("out.csv", [][]string{{"2"}}))

	data, err := os.ReadFile(filepath.Join(dir, "out.csv"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	assert.Len(t, lines, 3)
}

func TestResolvePath(t *testing.T) {
	writer := NewCSVWriter("/base")

	assert.Equal(t, filepath.Join("/base", "out.csv"), writer.resolvePath("out.csv"))
	assert.Equal(t, "/tmp/abs.csv", writer.resolvePath("/tmp/abs.csv"))
	assert.Equal(t, "out.csv", NewCSVWriter("").resolvePath("out.csv"))
}

func TestTableExporter(t *testing.T) {
	dir := t.TempDir()
	exp := NewTableExporter(dir)

	table := &domain.ReshapedTable{
		Granularity: domain.BucketMonthly,
		Components:  []string{"Course", "Quiz"},
		Rows: []domain.ReshapedRow{
			{UserID: 1, Bucket: "2024-01", Counts: map[string]int{"Course": 0, "Quiz": 2}, TotalInteractions: 2},
		},
	}
	require.NoError(t, exp.ExportReshaped("reshaped.csv", table))

	data, err := os.ReadFile(filepath.Join(dir, "reshaped.csv"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(strings.TrimPrefix(string(data), "\xEF\xBB\xBF")), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "User_ID,Bucket,Course,Quiz,Total_Interactions", lines[0])
	assert.Equal(t, "1,2024-01,0,2,2", lines[1])

	summary := &domain.InteractionSummary{
		Counts: []domain.InteractionCount{
			{UserID: 1, Component: "Quiz", Bucket: "2024-01", Count: 2},
		},
	}
	require.NoError(t, exp.ExportInteractionCounts("counts.csv", summary))

	data, err = os.ReadFile(filepath.Join(dir, "counts.csv"))
	require.NoError(t, err)
	lines = strings.Split(strings.TrimSpace(strings.TrimPrefix(string(data), "\xEF\xBB\xBF")), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "1,Quiz,2024-01,2", lines[1])
}

func TestTableExporter_NilInputs(t *testing.T) {
	exp := NewTableExporter(t.TempDir())

	assert.Error(t, exp.ExportDataset("x.csv", nil))
	assert.Error(t, exp.ExportReshaped("x.csv", nil))
	assert.Error(t, exp.ExportInteractionCounts("x.csv", nil))
}
