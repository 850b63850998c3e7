package domain

// BucketGranularity controls how timestamps are truncated into pivot-row
// time buckets.
type BucketGranularity string

const (
	BucketMonthly BucketGranularity = "month"
	BucketDaily   BucketGranularity = "day"
)

// Layout returns the time format that produces the bucket key string.
func (g BucketGranularity) Layout() string {
	if g == BucketDaily {
		return "2006-01-02"
	}
	return "2006-01"
}

// Valid reports whether the granularity is one of the supported values.
func (g BucketGranularity) Valid() bool {
	return g == BucketMonthly || g == BucketDaily
}

// ReshapedRow is one wide-form pivot row: a (user, time bucket) pair with
// one interaction count per known component.
type ReshapedRow struct {
	UserID            int64          `json:"user_id"`
	Bucket            string         `json:"bucket"`
	Counts            map[string]int `json:"counts"`
	TotalInteractions int            `json:"total_interactions"`
}

// ReshapedTable is the wide-form pivot of the merged record set.
// Components is the full, sorted column set; every row carries a count for
// every component, zero when no matching merged record exists.
type ReshapedTable struct {
	Granularity BucketGranularity `json:"granularity"`
	Components  []string          `json:"components"`
	Rows        []ReshapedRow     `json:"rows"`
}

// Count returns the cell for (row index, component); missing components
// read as zero.
func (t *ReshapedTable) Count(row int, component string) int {
	if row < 0 || row >= len(t.Rows) {
		return 0
	}
	return t.Rows[row].Counts[component]
}
