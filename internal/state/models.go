package state

import "time"

// Run is one pipeline execution, keyed by the service-assigned run id.
type Run struct {
	ID                  uint   `gorm:"primaryKey"`
	RunID               string `gorm:"uniqueIndex;size:36"`
	StartedAt           time.Time
	FinishedAt          *time.Time
	Status              string `gorm:"index;size:16"` // active, completed, failed
	MergedRows          int
	UnmatchedUsers      int
	UnmatchedComponents int
	ExcludedComponents  int
	LastError           string `gorm:"type:text"`
}

// DatasetStat records per-dataset row counts for one run, mirroring the
// statistics shown to the operator after loading and filtering.
type DatasetStat struct {
	ID           uint   `gorm:"primaryKey"`
	RunID        string `gorm:"index;size:36"`
	Dataset      string `gorm:"index;size:32"`
	TotalRows    int
	FilteredRows int
	RemovedRows  int
	RecordedAt   time.Time
}

// ProcessedFile registers a source file that has been loaded, so repeat
// runs can report already-processed inputs.
type ProcessedFile struct {
	ID          uint   `gorm:"primaryKey"`
	Path        string `gorm:"uniqueIndex;size:1024"`
	Dataset     string `gorm:"index;size:32"`
	RowCount    int
	ProcessedAt time.Time `gorm:"index"`
}
