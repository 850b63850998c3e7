package dataprocessing

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"regexp"
	"strings"

	"edupulse/internal/errors"
	"edupulse/pkg/contracts/domain"
)

// spaceRe collapses runs of whitespace inside header names. Platform
// exports occasionally double-space column titles.
var spaceRe = regexp.MustCompile(`\s+`)

// SourcePaths names the three CSV files a pipeline run consumes.
type SourcePaths struct {
	ActivityLog    string
	UserLog        string
	ComponentCodes string
}

// Loader reads CSV sources into validated in-memory datasets.
type Loader struct {
	logger *slog.Logger
}

// NewLoader creates a loader. A nil logger falls back to slog.Default.
func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{logger: logger}
}

// LoadDatasets reads all three sources. It fails on the first unreadable
// or malformed file; source files are never modified.
func (l *Loader) LoadDatasets(paths SourcePaths) (activity, userLog, codes *domain.Dataset, err error) {
	activity, err = l.LoadDataset(paths.ActivityLog, domain.DatasetActivityLog)
	if err != nil {
		return nil, nil, nil, err
	}
	userLog, err = l.LoadDataset(paths.UserLog, domain.DatasetUserLog)
	if err != nil {
		return nil, nil, nil, err
	}
	codes, err = l.LoadDataset(paths.ComponentCodes, domain.DatasetComponentCodes)
	if err != nil {
		return nil, nil, nil, err
	}
	return activity, userLog, codes, nil
}

// LoadDataset parses one CSV file into a Dataset and validates that the
// required columns for the given kind are present. A header-only file
// yields a valid empty dataset.
func (l *Loader) LoadDataset(path string, kind domain.DatasetKind) (*domain.Dataset, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.NewLoadError(fmt.Sprintf("cannot open %s file", kind), err).
			WithContext("path", path)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1 // ragged rows are normalized below

	header, err := reader.Read()
	if err == io.EOF {
		return nil, errors.NewLoadError(fmt.Sprintf("%s file is empty", kind), nil).
			WithContext("path", path)
	}
	if err != nil {
		return nil, errors.NewLoadError(fmt.Sprintf("cannot read %s header", kind), err).
			WithContext("path", path)
	}

	columns := cleanHeader(header)
	if err := validateColumns(kind, columns); err != nil {
		return nil, err
	}

	var rows [][]string
	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.NewLoadError(fmt.Sprintf("malformed CSV in %s file", kind), err).
				WithContext("path", path).
				WithContext("line", line)
		}
		row := normalizeRow(record, len(columns))
		if row == nil {
			continue // fully empty row
		}
		rows = append(rows, row)
	}

	ds := &domain.Dataset{Kind: kind, Columns: columns, Rows: rows}
	l.logger.Info("loaded dataset",
		slog.String("kind", string(kind)),
		slog.String("path", path),
		slog.Int("columns", len(columns)),
		slog.Int("rows", len(rows)))

	return ds, nil
}

// cleanHeader trims surrounding whitespace, strips a UTF-8 BOM on the first
// column, and collapses internal whitespace runs to single spaces.
func cleanHeader(header []string) []string {
	columns := make([]string, len(header))
	for i, name := range header {
		if i == 0 {
			name = strings.TrimPrefix(name, "\uFEFF")
		}
		columns[i] = spaceRe.ReplaceAllString(strings.TrimSpace(name), " ")
	}
	return columns
}

// normalizeRow pads short rows and truncates long ones to the header
// width. Returns nil when every cell is empty.
func normalizeRow(record []string, width int) []string {
	row := make([]string, width)
	empty := true
	for i := 0; i < width; i++ {
		if i < len(record) {
			row[i] = strings.TrimSpace(record[i])
		}
		if row[i] != "" {
			empty = false
		}
	}
	if empty {
		return nil
	}
	return row
}

// validateColumns checks the fixed required-column set for the kind.
func validateColumns(kind domain.DatasetKind, columns []string) error {
	present := make(map[string]bool, len(columns))
	for _, col := range columns {
		present[col] = true
	}

	var missing []string
	for _, required := range domain.RequiredColumns(kind) {
		if !present[required] {
			missing = append(missing, required)
		}
	}
	if len(missing) > 0 {
		return errors.NewLoadError(fmt.Sprintf("%s file is missing required columns", kind), nil).
			WithContext("missing_columns", missing)
	}
	return nil
}
