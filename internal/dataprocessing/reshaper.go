package dataprocessing

import (
	"log/slog"
	"sort"

	"edupulse/internal/errors"
	"edupulse/pkg/contracts/domain"
)

// Reshaper pivots the merged long-form record set into the wide
// analysis-ready layout: one row per (user, time bucket), one column per
// component.
type Reshaper struct {
	logger *slog.Logger
}

// NewReshaper creates a reshaper. A nil logger falls back to slog.Default.
func NewReshaper(logger *slog.Logger) *Reshaper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reshaper{logger: logger}
}

// Reshape builds the pivot table. Each record's timestamp is truncated to
// the configured bucket granularity; cells count the merged records for
// that (user, bucket, component) and missing combinations are filled with
// zero so every row covers every known component column. An empty pivot is
// reported as an error rather than silently producing an empty table.
func (r *Reshaper) Reshape(records []domain.MergedRecord, granularity domain.BucketGranularity) (*domain.ReshapedTable, error) {
	if !granularity.Valid() {
		return nil, errors.NewReshapeError("unsupported bucket granularity", nil).
			WithContext("granularity", string(granularity))
	}
	if len(records) == 0 {
		return nil, errors.NewReshapeError("pivot would produce zero rows", nil)
	}

	type pivotKey struct {
		userID int64
		bucket string
	}

	layout := granularity.Layout()
	cells := make(map[pivotKey]map[string]int)
	componentSet := make(map[string]bool)

	for _, record := range records {
		key := pivotKey{userID: record.UserID, bucket: record.Timestamp.Format(layout)}
		if cells[key] == nil {
			cells[key] = make(map[string]int)
		}
		cells[key][record.Component]++
		componentSet[record.Component] = true
	}

	components := make([]string, 0, len(componentSet))
	for name := range componentSet {
		components = append(components, name)
	}
	sort.Strings(components)

	keys := make([]pivotKey, 0, len(cells))
	for key := range cells {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].userID != keys[j].userID {
			return keys[i].userID < keys[j].userID
		}
		return keys[i].bucket < keys[j].bucket
	})

	rows := make([]domain.ReshapedRow, 0, len(keys))
	for _, key := range keys {
		counts := make(map[string]int, len(components))
		total := 0
		for _, component := range components {
			count := cells[key][component] // zero-fill for absent combinations
			counts[component] = count
			total += count
		}
		rows = append(rows, domain.ReshapedRow{
			UserID:            key.userID,
			Bucket:            key.bucket,
			Counts:            counts,
			TotalInteractions: total,
		})
	}

	r.logger.Info("reshaped merged records",
		slog.Int("input_records", len(records)),
		slog.Int("pivot_rows", len(rows)),
		slog.Int("component_columns", len(components)),
		slog.String("granularity", string(granularity)))

	return &domain.ReshapedTable{
		Granularity: granularity,
		Components:  components,
		Rows:        rows,
	}, nil
}
