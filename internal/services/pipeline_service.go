package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"edupulse/internal/config"
	"edupulse/internal/dataprocessing"
	"edupulse/internal/errors"
	"edupulse/internal/exporter"
	"edupulse/internal/state"
	"edupulse/pkg/contracts/domain"
)

// StageID identifies one pipeline stage operation.
type StageID string

const (
	StageLoad      StageID = "load"
	StageClean     StageID = "clean"
	StageMerge     StageID = "merge"
	StageReshape   StageID = "reshape"
	StageAggregate StageID = "aggregate"
	StageExport    StageID = "export"
)

// stageOrder is the required execution sequence.
var stageOrder = []StageID{StageLoad, StageClean, StageMerge, StageReshape, StageAggregate, StageExport}

// StageStatus represents the current status of a stage
type StageStatus string

const (
	StageStatusPending   StageStatus = "pending"
	StageStatusActive    StageStatus = "active"
	StageStatusCompleted StageStatus = "completed"
	StageStatusFailed    StageStatus = "failed"
)

// StageState is the runtime state of one stage, reported to the driving
// interface after each operation.
type StageState struct {
	ID         StageID     `json:"id"`
	Status     StageStatus `json:"status"`
	StartedAt  *time.Time  `json:"started_at,omitempty"`
	FinishedAt *time.Time  `json:"finished_at,omitempty"`
	RowsIn     int         `json:"rows_in"`
	RowsOut    int         `json:"rows_out"`
	Message    string      `json:"message,omitempty"`
}

// PipelineStatus is a snapshot of the whole run for display.
type PipelineStatus struct {
	RunID       string                  `json:"run_id"`
	Stages      []StageState            `json:"stages"`
	Diagnostics domain.MergeDiagnostics `json:"diagnostics"`
}

// PipelineService sequences the processing stages and holds the latest
// immutable snapshot of each stage's output. It is the single entry point
// for the driving interface: one method per stage operation, each
// consuming the previous stage's snapshot and producing a new one. Stages
// never run concurrently; the mutex only protects snapshot references
// from concurrent status reads.
type PipelineService struct {
	mu     sync.Mutex
	cfg    *config.Config
	logger *slog.Logger
	store  *state.Store // optional; nil disables run history

	loader     *dataprocessing.Loader
	cleaner    *dataprocessing.Cleaner
	merger     *dataprocessing.Merger
	reshaper   *dataprocessing.Reshaper
	aggregator *dataprocessing.Aggregator
	workbook   *exporter.WorkbookWriter

	runID       string
	stages      map[StageID]*StageState
	sourcePaths dataprocessing.SourcePaths

	// Stage snapshots. Each is set exactly once per run by its stage and
	// never mutated afterwards.
	rawActivity    *domain.Dataset
	rawUserLog     *domain.Dataset
	rawCodes       *domain.Dataset
	cleanActivity  *domain.Dataset
	cleanUserLog   *domain.Dataset
	cleanCodes     *domain.Dataset
	merged         []domain.MergedRecord
	diagnostics    domain.MergeDiagnostics
	reshaped       *domain.ReshapedTable
	summary        *domain.InteractionSummary
}

// NewPipelineService creates a pipeline service. The store may be nil.
func NewPipelineService(cfg *config.Config, logger *slog.Logger, store *state.Store) *PipelineService {
	if logger == nil {
		logger = slog.Default()
	}
	s := &PipelineService{
		cfg:        cfg,
		logger:     logger,
		store:      store,
		loader:     dataprocessing.NewLoader(logger),
		cleaner:    dataprocessing.NewCleaner(logger),
		merger:     dataprocessing.NewMerger(logger, cfg.Pipeline.ExcludedSet()),
		reshaper:   dataprocessing.NewReshaper(logger),
		aggregator: dataprocessing.NewAggregator(logger),
		workbook:   exporter.NewWorkbookWriter(logger),
	}
	s.resetLocked()
	return s
}

// Reset discards all snapshots and starts a fresh run.
func (s *PipelineService) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked()
}

func (s *PipelineService) resetLocked() {
	s.runID = uuid.NewString()
	s.stages = make(map[StageID]*StageState, len(stageOrder))
	for _, id := range stageOrder {
		s.stages[id] = &StageState{ID: id, Status: StageStatusPending}
	}
	s.rawActivity, s.rawUserLog, s.rawCodes = nil, nil, nil
	s.cleanActivity, s.cleanUserLog, s.cleanCodes = nil, nil, nil
	s.merged = nil
	s.diagnostics = domain.MergeDiagnostics{}
	s.reshaped = nil
	s.summary = nil
}

// Load reads and validates the three CSV sources.
func (s *PipelineService) Load(ctx context.Context, paths dataprocessing.SourcePaths) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.runStage(ctx, StageLoad, func(st *StageState) error {
		activity, userLog, codes, err := s.loader.LoadDatasets(paths)
		if err != nil {
			return err
		}
		s.rawActivity, s.rawUserLog, s.rawCodes = activity, userLog, codes
		s.sourcePaths = paths
		st.RowsOut = activity.RowCount() + userLog.RowCount() + codes.RowCount()

		if s.store != nil {
			if err := s.store.BeginRun(s.runID); err != nil {
				s.logger.WarnContext(ctx, "failed to record run start", slog.String("error", err.Error()))
			}
			s.markProcessed(ctx, paths.ActivityLog, activity)
			s.markProcessed(ctx, paths.UserLog, userLog)
			s.markProcessed(ctx, paths.ComponentCodes, codes)
		}
		return nil
	})
}

// Clean removes excluded component rows and renames columns to canonical
// keys across all three datasets.
func (s *PipelineService) Clean(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.rawActivity == nil {
		return errors.NewValidationError("clean requires loaded datasets; call load first")
	}

	return s.runStage(ctx, StageClean, func(st *StageState) error {
		st.RowsIn = s.rawActivity.RowCount() + s.rawUserLog.RowCount() + s.rawCodes.RowCount()

		renames := s.cfg.Pipeline.ColumnRenames
		excluded := s.cfg.Pipeline.ExcludedSet()

		clean := func(ds *domain.Dataset) (*domain.Dataset, error) {
			renamed, err := s.cleaner.RenameColumns(ds, renames)
			if err != nil {
				return nil, err
			}
			return s.cleaner.RemoveExcluded(renamed, excluded), nil
		}

		activity, err := clean(s.rawActivity)
		if err != nil {
			return err
		}
		userLog, err := clean(s.rawUserLog)
		if err != nil {
			return err
		}
		codes, err := clean(s.rawCodes)
		if err != nil {
			return err
		}

		s.cleanActivity, s.cleanUserLog, s.cleanCodes = activity, userLog, codes
		st.RowsOut = activity.RowCount() + userLog.RowCount() + codes.RowCount()

		if s.store != nil {
			s.recordStat(ctx, domain.DatasetActivityLog, s.rawActivity.RowCount(), activity.RowCount())
			s.recordStat(ctx, domain.DatasetUserLog, s.rawUserLog.RowCount(), userLog.RowCount())
			s.recordStat(ctx, domain.DatasetComponentCodes, s.rawCodes.RowCount(), codes.RowCount())
		}
		return nil
	})
}

// Merge joins the cleaned datasets into the unified record set.
func (s *PipelineService) Merge(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cleanActivity == nil {
		return errors.NewValidationError("merge requires cleaned datasets; call clean first")
	}

	return s.runStage(ctx, StageMerge, func(st *StageState) error {
		st.RowsIn = s.cleanActivity.RowCount()

		merged, diag, err := s.merger.Merge(s.cleanActivity, s.cleanUserLog, s.cleanCodes)
		if err != nil {
			return err
		}
		s.merged = merged
		s.diagnostics = diag
		st.RowsOut = len(merged)
		st.Message = fmt.Sprintf("dropped %d rows (users=%d, components=%d, excluded=%d)",
			diag.Dropped(), diag.UnmatchedUsers, diag.UnmatchedComponents, diag.ExcludedComponents)

		droppedRows.WithLabelValues("unmatched_user").Add(float64(diag.UnmatchedUsers))
		droppedRows.WithLabelValues("unmatched_component").Add(float64(diag.UnmatchedComponents))
		droppedRows.WithLabelValues("excluded_component").Add(float64(diag.ExcludedComponents))
		return nil
	})
}

// Reshape pivots the merged records into the wide analysis table.
func (s *PipelineService) Reshape(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.merged == nil {
		return errors.NewValidationError("reshape requires merged records; call merge first")
	}

	return s.runStage(ctx, StageReshape, func(st *StageState) error {
		st.RowsIn = len(s.merged)

		table, err := s.reshaper.Reshape(s.merged, s.cfg.Pipeline.Granularity())
		if err != nil {
			return err
		}
		s.reshaped = table
		st.RowsOut = len(table.Rows)
		return nil
	})
}

// Aggregate derives engagement metrics from the reshaped table.
func (s *PipelineService) Aggregate(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.reshaped == nil {
		return errors.NewValidationError("aggregate requires a reshaped table; call reshape first")
	}

	return s.runStage(ctx, StageAggregate, func(st *StageState) error {
		st.RowsIn = len(s.reshaped.Rows)

		summary, err := s.aggregator.Aggregate(s.reshaped)
		if err != nil {
			return err
		}
		s.summary = summary
		st.RowsOut = len(summary.Counts)

		if s.store != nil {
			if err := s.store.FinishRun(s.runID, len(s.merged), s.diagnostics, nil); err != nil {
				s.logger.WarnContext(ctx, "failed to record run finish", slog.String("error", err.Error()))
			}
		}
		return nil
	})
}

// Export writes the workbook with one sheet per completed stage output.
func (s *PipelineService) Export(ctx context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cleanActivity == nil {
		return errors.NewValidationError("export requires at least cleaned datasets; call clean first")
	}

	return s.runStage(ctx, StageExport, func(st *StageState) error {
		input := exporter.WorkbookInput{
			Processed:   s.cleanActivity,
			Merged:      s.merged,
			Diagnostics: s.diagnostics,
			Reshaped:    s.reshaped,
			Summary:     s.summary,
		}
		if err := s.workbook.Write(path, input); err != nil {
			return err
		}
		st.Message = path
		return nil
	})
}

// Status returns a snapshot of all stage states for display.
func (s *PipelineService) Status() PipelineStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := PipelineStatus{
		RunID:       s.runID,
		Diagnostics: s.diagnostics,
		Stages:      make([]StageState, 0, len(stageOrder)),
	}
	for _, id := range stageOrder {
		status.Stages = append(status.Stages, *s.stages[id])
	}
	return status
}

// Diagnostics returns the merge diagnostics tallies of the current run.
func (s *PipelineService) Diagnostics() domain.MergeDiagnostics {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.diagnostics
}

// ProcessedDataset returns the cleaned activity dataset snapshot.
func (s *PipelineService) ProcessedDataset() *domain.Dataset {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cleanActivity
}

// MergedRecords returns the merged record snapshot.
func (s *PipelineService) MergedRecords() []domain.MergedRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.merged
}

// ReshapedTable returns the pivot table snapshot.
func (s *PipelineService) ReshapedTable() *domain.ReshapedTable {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reshaped
}

// Summary returns the interaction summary snapshot.
func (s *PipelineService) Summary() *domain.InteractionSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.summary
}

// runStage executes one stage body with timing, state tracking and
// metrics. Callers must hold the mutex.
func (s *PipelineService) runStage(ctx context.Context, id StageID, fn func(*StageState) error) error {
	st := s.stages[id]
	now := time.Now()
	st.StartedAt = &now
	st.Status = StageStatusActive
	st.Message = ""

	s.logger.InfoContext(ctx, "stage started",
		slog.String("run_id", s.runID),
		slog.String("stage", string(id)))

	err := fn(st)

	finished := time.Now()
	st.FinishedAt = &finished
	stageDuration.WithLabelValues(string(id)).Observe(finished.Sub(now).Seconds())

	if err != nil {
		st.Status = StageStatusFailed
		st.Message = err.Error()
		stageFailures.WithLabelValues(string(id)).Inc()
		s.logger.ErrorContext(ctx, "stage failed",
			slog.String("run_id", s.runID),
			slog.String("stage", string(id)),
			slog.String("error", err.Error()))
		return err
	}

	st.Status = StageStatusCompleted
	stageRows.WithLabelValues(string(id)).Add(float64(st.RowsOut))
	s.logger.InfoContext(ctx, "stage completed",
		slog.String("run_id", s.runID),
		slog.String("stage", string(id)),
		slog.Int("rows_in", st.RowsIn),
		slog.Int("rows_out", st.RowsOut),
		slog.Duration("duration", finished.Sub(now)))
	return nil
}

func (s *PipelineService) markProcessed(ctx context.Context, path string, ds *domain.Dataset) {
	seen, err := s.store.IsProcessed(path)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to query processed files",
			slog.String("path", path),
			slog.String("error", err.Error()))
	} else if seen {
		s.logger.InfoContext(ctx, "source file was processed in an earlier run",
			slog.String("path", path),
			slog.String("kind", string(ds.Kind)))
	}
	if err := s.store.MarkProcessed(path, ds.Kind, ds.RowCount()); err != nil {
		s.logger.WarnContext(ctx, "failed to register processed file",
			slog.String("path", path),
			slog.String("error", err.Error()))
	}
}

func (s *PipelineService) recordStat(ctx context.Context, kind domain.DatasetKind, total, filtered int) {
	if err := s.store.RecordDatasetStat(s.runID, kind, total, filtered); err != nil {
		s.logger.WarnContext(ctx, "failed to record dataset stat",
			slog.String("dataset", string(kind)),
			slog.String("error", err.Error()))
	}
}
