package dataprocessing

import (
	"fmt"
	"log/slog"

	"edupulse/internal/errors"
	"edupulse/pkg/contracts/domain"
)

// Cleaner standardizes column names and removes excluded component rows.
// Both operations are pure: each returns a new dataset and leaves the
// input untouched.
type Cleaner struct {
	logger *slog.Logger
}

// NewCleaner creates a cleaner. A nil logger falls back to slog.Default.
func NewCleaner(logger *slog.Logger) *Cleaner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cleaner{logger: logger}
}

// RenameColumns applies the source-name to canonical-name mapping to the
// dataset header. Columns absent from the mapping keep their names. The
// same mapping is applied to all three datasets so downstream joins can
// rely on stable keys.
func (c *Cleaner) RenameColumns(ds *domain.Dataset, mapping map[string]string) (*domain.Dataset, error) {
	out := ds.Clone()

	existing := make(map[string]bool, len(out.Columns))
	for _, col := range out.Columns {
		existing[col] = true
	}

	renamed := 0
	for i, col := range out.Columns {
		target, ok := mapping[col]
		if !ok {
			continue
		}
		if target != col && existing[target] {
			return nil, errors.NewSchemaError(
				fmt.Sprintf("rename target %q collides with an existing column", target), nil).
				WithContext("dataset", string(ds.Kind)).
				WithContext("source_column", col)
		}
		delete(existing, col)
		existing[target] = true
		out.Columns[i] = target
		renamed++
	}

	if renamed > 0 {
		c.logger.Info("renamed columns",
			slog.String("dataset", string(ds.Kind)),
			slog.Int("renamed", renamed))
	}
	return out, nil
}

// RemoveExcluded drops rows whose Component value is in the excluded set.
// The filter is stable: surviving rows keep their input order. Datasets
// without a Component column pass through unchanged.
func (c *Cleaner) RemoveExcluded(ds *domain.Dataset, excluded map[string]bool) *domain.Dataset {
	idx := ds.ColumnIndex("Component")
	if idx < 0 || len(excluded) == 0 {
		return ds.Clone()
	}

	out := &domain.Dataset{
		Kind:    ds.Kind,
		Columns: append([]string(nil), ds.Columns...),
	}
	for _, row := range ds.Rows {
		if excluded[row[idx]] {
			continue
		}
		out.Rows = append(out.Rows, append([]string(nil), row...))
	}

	c.logger.Info("removed excluded components",
		slog.String("dataset", string(ds.Kind)),
		slog.Int("original_rows", ds.RowCount()),
		slog.Int("filtered_rows", out.RowCount()),
		slog.Int("removed_rows", ds.RowCount()-out.RowCount()))

	return out
}
