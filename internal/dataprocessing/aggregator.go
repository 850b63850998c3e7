package dataprocessing

import (
	"log/slog"
	"sort"

	"edupulse/internal/errors"
	"edupulse/pkg/contracts/domain"
)

// Aggregator derives engagement metrics from the reshaped table.
type Aggregator struct {
	logger *slog.Logger
}

// NewAggregator creates an aggregator. A nil logger falls back to
// slog.Default.
func NewAggregator(logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{logger: logger}
}

// Aggregate computes per-user totals, per-component totals, long-form
// interaction counts and descriptive per-bucket statistics. A table with
// zero rows yields a defined empty summary with Stats.HasData=false; it is
// not an error, so a drained upstream filter surfaces as "no data" rather
// than a division failure.
func (a *Aggregator) Aggregate(table *domain.ReshapedTable) (*domain.InteractionSummary, error) {
	if table == nil {
		return nil, errors.NewAggregationError("reshaped table is nil", nil)
	}

	summary := &domain.InteractionSummary{
		UserTotals:      make(map[int64]int),
		ComponentTotals: make(map[string]int),
	}

	bucketTotals := make(map[string]int)
	for _, row := range table.Rows {
		for _, component := range table.Components {
			count := row.Counts[component]
			if count < 0 {
				return nil, errors.NewAggregationError("negative interaction count", nil).
					WithContext("user_id", row.UserID).
					WithContext("component", component)
			}
			if count == 0 {
				continue
			}
			summary.UserTotals[row.UserID] += count
			summary.ComponentTotals[component] += count
			summary.TotalInteractions += count
			bucketTotals[row.Bucket] += count
			summary.Counts = append(summary.Counts, domain.InteractionCount{
				UserID:    row.UserID,
				Component: component,
				Bucket:    row.Bucket,
				Count:     count,
			})
		}
	}

	sort.Slice(summary.Counts, func(i, j int) bool {
		ci, cj := summary.Counts[i], summary.Counts[j]
		if ci.UserID != cj.UserID {
			return ci.UserID < cj.UserID
		}
		if ci.Component != cj.Component {
			return ci.Component < cj.Component
		}
		return ci.Bucket < cj.Bucket
	})

	summary.Stats = bucketStats(bucketTotals)

	a.logger.Info("aggregated interactions",
		slog.Int("users", len(summary.UserTotals)),
		slog.Int("components", len(summary.ComponentTotals)),
		slog.Int("total_interactions", summary.TotalInteractions),
		slog.Bool("has_data", summary.Stats.HasData))

	return summary, nil
}

// bucketStats computes mean and max interactions per time bucket. An empty
// input returns the zero-valued "no data" result.
func bucketStats(totals map[string]int) domain.BucketStats {
	if len(totals) == 0 {
		return domain.BucketStats{}
	}

	sum, max := 0, 0
	for _, total := range totals {
		sum += total
		if total > max {
			max = total
		}
	}
	return domain.BucketStats{
		HasData:       true,
		BucketCount:   len(totals),
		MeanPerBucket: float64(sum) / float64(len(totals)),
		MaxPerBucket:  max,
	}
}
