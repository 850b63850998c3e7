package domain

import (
	"time"
)

// ActivityRecord is one logged interaction from the activity log.
// Records are immutable once bound from a cleaned dataset.
type ActivityRecord struct {
	UserID    int64     `json:"user_id" validate:"required,min=0"`
	Component string    `json:"component" validate:"required"`
	Action    string    `json:"action"`
	Target    string    `json:"target,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// UserLogEntry is one user-session timestamp from the user log.
type UserLogEntry struct {
	UserID    int64     `json:"user_id" validate:"required,min=0"`
	Timestamp time.Time `json:"timestamp"`
}

// ComponentCode is one row of the component reference table. Excluded marks
// system/noise components whose activity must not survive the pipeline.
type ComponentCode struct {
	Code     string `json:"code"`
	Name     string `json:"name" validate:"required"`
	Category string `json:"category,omitempty"`
	Excluded bool   `json:"excluded"`
}

// MergedRecord is the join of an activity record with its user-log entry
// and component reference row. One MergedRecord exists per surviving
// activity record; duplicates in the activity log survive as duplicates.
type MergedRecord struct {
	UserID        int64     `json:"user_id"`
	Component     string    `json:"component"`
	ComponentCode string    `json:"component_code"`
	Category      string    `json:"category,omitempty"`
	Action        string    `json:"action"`
	Target        string    `json:"target,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
	SessionTime   time.Time `json:"session_time"`
}

// MergeDiagnostics tallies rows dropped by the merge inner joins. Dropped
// rows are expected behavior, not an error, but the counts must reach the
// operator.
type MergeDiagnostics struct {
	UnmatchedUsers      int `json:"unmatched_users"`
	UnmatchedComponents int `json:"unmatched_components"`
	ExcludedComponents  int `json:"excluded_components"`
}

// Dropped returns the total number of activity rows lost to the joins.
func (d MergeDiagnostics) Dropped() int {
	return d.UnmatchedUsers + d.UnmatchedComponents + d.ExcludedComponents
}
