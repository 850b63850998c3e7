// Package state persists run history to a local SQLite database: per-run
// dataset statistics, merge diagnostics and a processed-file registry.
// The store is bookkeeping only; pipeline correctness never depends on it.
package state

import (
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"edupulse/internal/errors"
	"edupulse/pkg/contracts/domain"
)

// Store wraps the run-history database.
type Store struct {
	db *gorm.DB
}

// Open opens (or creates) the SQLite database at path and migrates the
// schema.
func Open(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, errors.NewStorageError("failed to open state database", err).
			WithContext("path", path)
	}
	if err := db.AutoMigrate(&Run{}, &DatasetStat{}, &ProcessedFile{}); err != nil {
		return nil, errors.NewStorageError("failed to migrate state schema", err)
	}
	return &Store{db: db}, nil
}

// BeginRun records the start of a pipeline run.
func (s *Store) BeginRun(runID string) error {
	run := Run{
		RunID:     runID,
		StartedAt: time.Now(),
		Status:    "active",
	}
	if err := s.db.Create(&run).Error; err != nil {
		return errors.NewStorageError("failed to record run start", err)
	}
	return nil
}

// FinishRun marks a run completed or failed and stores the merge
// diagnostics gathered along the way.
func (s *Store) FinishRun(runID string, mergedRows int, diag domain.MergeDiagnostics, runErr error) error {
	now := time.Now()
	updates := map[string]interface{}{
		"finished_at":          &now,
		"status":               "completed",
		"merged_rows":          mergedRows,
		"unmatched_users":      diag.UnmatchedUsers,
		"unmatched_components": diag.UnmatchedComponents,
		"excluded_components":  diag.ExcludedComponents,
	}
	if runErr != nil {
		updates["status"] = "failed"
		updates["last_error"] = runErr.Error()
	}
	if err := s.db.Model(&Run{}).Where("run_id = ?", runID).Updates(updates).Error; err != nil {
		return errors.NewStorageError("failed to record run finish", err)
	}
	return nil
}

// RecordDatasetStat stores row counts for one dataset in one run.
func (s *Store) RecordDatasetStat(runID string, dataset domain.DatasetKind, total, filtered int) error {
	stat := DatasetStat{
		RunID:        runID,
		Dataset:      string(dataset),
		TotalRows:    total,
		FilteredRows: filtered,
		RemovedRows:  total - filtered,
		RecordedAt:   time.Now(),
	}
	if err := s.db.Create(&stat).Error; err != nil {
		return errors.NewStorageError("failed to record dataset stat", err)
	}
	return nil
}

// MarkProcessed registers a loaded source file. Re-loading the same path
// updates the existing entry rather than duplicating it.
func (s *Store) MarkProcessed(path string, dataset domain.DatasetKind, rowCount int) error {
	record := ProcessedFile{
		Path:        path,
		Dataset:     string(dataset),
		RowCount:    rowCount,
		ProcessedAt: time.Now(),
	}
	err := s.db.Where(ProcessedFile{Path: path}).
		Assign(record).
		FirstOrCreate(&ProcessedFile{}).Error
	if err != nil {
		return errors.NewStorageError("failed to register processed file", err)
	}
	return nil
}

// IsProcessed reports whether the path has been loaded before.
func (s *Store) IsProcessed(path string) (bool, error) {
	var count int64
	if err := s.db.Model(&ProcessedFile{}).Where("path = ?", path).Count(&count).Error; err != nil {
		return false, errors.NewStorageError("failed to query processed files", err)
	}
	return count > 0, nil
}

// RecentRuns returns up to limit runs, newest first.
func (s *Store) RecentRuns(limit int) ([]Run, error) {
	var runs []Run
	if err := s.db.Order("started_at desc").Limit(limit).Find(&runs).Error; err != nil {
		return nil, errors.NewStorageError("failed to query runs", err)
	}
	return runs, nil
}

// DatasetStats returns the dataset statistics recorded for a run.
func (s *Store) DatasetStats(runID string) ([]DatasetStat, error) {
	var stats []DatasetStat
	if err := s.db.Where("run_id = ?", runID).Order("id").Find(&stats).Error; err != nil {
		return nil, errors.NewStorageError("failed to query dataset stats", err)
	}
	return stats, nil
}
