package domain

// InteractionCount is one long-form aggregate row: how many times a user
// touched a component within a time bucket.
type InteractionCount struct {
	UserID    int64  `json:"user_id"`
	Component string `json:"component"`
	Bucket    string `json:"bucket"`
	Count     int    `json:"count"`
}

// BucketStats holds descriptive statistics over per-bucket interaction
// totals. HasData is false when the summary was computed over zero rows;
// the numeric fields are then zero by definition rather than an error.
type BucketStats struct {
	HasData       bool    `json:"has_data"`
	BucketCount   int     `json:"bucket_count"`
	MeanPerBucket float64 `json:"mean_per_bucket"`
	MaxPerBucket  int     `json:"max_per_bucket"`
}

// InteractionSummary aggregates a reshaped table into engagement metrics.
// The sum of UserTotals equals the sum of ComponentTotals equals the total
// filtered interaction count.
type InteractionSummary struct {
	UserTotals        map[int64]int      `json:"user_totals"`
	ComponentTotals   map[string]int     `json:"component_totals"`
	Counts            []InteractionCount `json:"counts"`
	TotalInteractions int                `json:"total_interactions"`
	Stats             BucketStats        `json:"stats"`
}
