package domain

import (
	"fmt"
)

// DatasetKind identifies one of the three CSV sources the pipeline consumes.
type DatasetKind string

const (
	DatasetActivityLog    DatasetKind = "ACTIVITY_LOG"
	DatasetUserLog        DatasetKind = "USER_LOG"
	DatasetComponentCodes DatasetKind = "COMPONENT_CODES"
)

// Dataset is an immutable in-memory table parsed from a CSV source.
// Stage transforms return a new Dataset; rows of an existing Dataset are
// never mutated in place.
type Dataset struct {
	Kind    DatasetKind `json:"kind"`
	Columns []string    `json:"columns"`
	Rows    [][]string  `json:"rows"`
}

// ColumnIndex returns the position of the named column, or -1 when absent.
func (d *Dataset) ColumnIndex(name string) int {
	for i, col := range d.Columns {
		if col == name {
			return i
		}
	}
	return -1
}

// Value returns the cell at (row, column name). The second return is false
// when the column does not exist or the row index is out of range.
func (d *Dataset) Value(row int, column string) (string, bool) {
	idx := d.ColumnIndex(column)
	if idx < 0 || row < 0 || row >= len(d.Rows) {
		return "", false
	}
	return d.Rows[row][idx], true
}

// RowCount returns the number of data rows.
func (d *Dataset) RowCount() int {
	return len(d.Rows)
}

// Clone returns a deep copy of the dataset. Transform stages clone before
// modifying so callers holding the input keep an unchanged snapshot.
func (d *Dataset) Clone() *Dataset {
	out := &Dataset{
		Kind:    d.Kind,
		Columns: append([]string(nil), d.Columns...),
		Rows:    make([][]string, len(d.Rows)),
	}
	for i, row := range d.Rows {
		out.Rows[i] = append([]string(nil), row...)
	}
	return out
}

// String implements fmt.Stringer for log output.
func (d *Dataset) String() string {
	return fmt.Sprintf("%s(%d cols, %d rows)", d.Kind, len(d.Columns), len(d.Rows))
}

// RequiredColumns returns the fixed required-column set for a dataset kind.
// Column names are the source headers before any canonical renaming.
func RequiredColumns(kind DatasetKind) []string {
	switch kind {
	case DatasetActivityLog:
		return []string{"User Full Name *Anonymized", "Component", "Action", "Date"}
	case DatasetUserLog:
		return []string{"User Full Name *Anonymized", "Date"}
	case DatasetComponentCodes:
		return []string{"Component", "Code"}
	default:
		return nil
	}
}
