package dataprocessing

import (
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"time"

	"edupulse/internal/errors"
	"edupulse/pkg/contracts/domain"
)

// timestampLayouts lists the date formats seen in platform exports, most
// specific first.
var timestampLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"02/01/2006 15:04:05",
	"02/01/2006 15:04",
	"02/01/2006",
}

// Merger joins the cleaned activity, user-log and component-code datasets
// into one unified record set. Both joins are inner joins on disjoint keys
// (user id, component) so their order does not affect the result.
type Merger struct {
	logger   *slog.Logger
	excluded map[string]bool
}

// NewMerger creates a merger. The excluded set marks component names whose
// records must not survive even when present in the reference table.
func NewMerger(logger *slog.Logger, excluded map[string]bool) *Merger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Merger{logger: logger, excluded: excluded}
}

// Merge binds the three datasets to typed records and performs the two
// inner joins. Every surviving activity record yields exactly one
// MergedRecord; rows dropped by either join are tallied in the returned
// diagnostics. Duplicate activity rows stay duplicated: repeated logged
// interactions are meaningful events.
func (m *Merger) Merge(activity, userLog, codes *domain.Dataset) ([]domain.MergedRecord, domain.MergeDiagnostics, error) {
	activityRecords, err := m.BindActivity(activity)
	if err != nil {
		return nil, domain.MergeDiagnostics{}, err
	}
	entries, err := m.BindUserLog(userLog)
	if err != nil {
		return nil, domain.MergeDiagnostics{}, err
	}
	componentCodes, err := m.BindComponentCodes(codes)
	if err != nil {
		return nil, domain.MergeDiagnostics{}, err
	}

	var diag domain.MergeDiagnostics
	records := seedRecords(activityRecords)
	records = m.JoinUserLog(records, entries, &diag)
	records = m.JoinComponentCodes(records, componentCodes, &diag)

	m.logger.Info("merged datasets",
		slog.Int("activity_rows", len(activityRecords)),
		slog.Int("merged_rows", len(records)),
		slog.Int("unmatched_users", diag.UnmatchedUsers),
		slog.Int("unmatched_components", diag.UnmatchedComponents),
		slog.Int("excluded_components", diag.ExcludedComponents))

	return records, diag, nil
}

// BindActivity converts a cleaned activity dataset into typed records.
// It expects the canonical User_ID column produced by the cleaner.
func (m *Merger) BindActivity(ds *domain.Dataset) ([]domain.ActivityRecord, error) {
	userIdx := ds.ColumnIndex("User_ID")
	componentIdx := ds.ColumnIndex("Component")
	actionIdx := ds.ColumnIndex("Action")
	dateIdx := ds.ColumnIndex("Date")
	targetIdx := ds.ColumnIndex("Target")
	if userIdx < 0 || componentIdx < 0 || actionIdx < 0 || dateIdx < 0 {
		return nil, errors.NewSchemaError("activity dataset is missing canonical columns", nil).
			WithContext("columns", ds.Columns)
	}

	records := make([]domain.ActivityRecord, 0, len(ds.Rows))
	for i, row := range ds.Rows {
		userID, err := parseUserID(row[userIdx])
		if err != nil {
			return nil, errors.NewJoinError("activity row has a non-numeric user id", err).
				WithContext("row", i+1).
				WithContext("value", row[userIdx])
		}
		ts, err := parseTimestamp(row[dateIdx])
		if err != nil {
			return nil, errors.NewJoinError("activity row has an unparsable date", err).
				WithContext("row", i+1).
				WithContext("value", row[dateIdx])
		}
		record := domain.ActivityRecord{
			UserID:    userID,
			Component: row[componentIdx],
			Action:    row[actionIdx],
			Timestamp: ts,
		}
		if targetIdx >= 0 {
			record.Target = row[targetIdx]
		}
		records = append(records, record)
	}
	return records, nil
}

// BindUserLog converts a cleaned user-log dataset into typed entries.
func (m *Merger) BindUserLog(ds *domain.Dataset) ([]domain.UserLogEntry, error) {
	userIdx := ds.ColumnIndex("User_ID")
	dateIdx := ds.ColumnIndex("Date")
	if userIdx < 0 || dateIdx < 0 {
		return nil, errors.NewSchemaError("user-log dataset is missing canonical columns", nil).
			WithContext("columns", ds.Columns)
	}

	entries := make([]domain.UserLogEntry, 0, len(ds.Rows))
	for i, row := range ds.Rows {
		userID, err := parseUserID(row[userIdx])
		if err != nil {
			return nil, errors.NewJoinError("user-log row has a non-numeric user id", err).
				WithContext("row", i+1).
				WithContext("value", row[userIdx])
		}
		ts, err := parseTimestamp(row[dateIdx])
		if err != nil {
			return nil, errors.NewJoinError("user-log row has an unparsable date", err).
				WithContext("row", i+1).
				WithContext("value", row[dateIdx])
		}
		entries = append(entries, domain.UserLogEntry{UserID: userID, Timestamp: ts})
	}
	return entries, nil
}

// BindComponentCodes converts the reference dataset into typed codes,
// marking entries from the excluded set.
func (m *Merger) BindComponentCodes(ds *domain.Dataset) ([]domain.ComponentCode, error) {
	nameIdx := ds.ColumnIndex("Component")
	codeIdx := ds.ColumnIndex("Code")
	categoryIdx := ds.ColumnIndex("Category")
	if nameIdx < 0 || codeIdx < 0 {
		return nil, errors.NewSchemaError("component-code dataset is missing canonical columns", nil).
			WithContext("columns", ds.Columns)
	}

	codes := make([]domain.ComponentCode, 0, len(ds.Rows))
	for _, row := range ds.Rows {
		code := domain.ComponentCode{
			Code:     row[codeIdx],
			Name:     row[nameIdx],
			Excluded: m.excluded[row[nameIdx]],
		}
		if categoryIdx >= 0 {
			code.Category = row[categoryIdx]
		}
		codes = append(codes, code)
	}
	return codes, nil
}

// JoinUserLog keeps records whose user id appears in the user log and
// attaches the session timestamp nearest to the activity timestamp.
// Records without a matching user are dropped and tallied.
func (m *Merger) JoinUserLog(records []domain.MergedRecord, entries []domain.UserLogEntry, diag *domain.MergeDiagnostics) []domain.MergedRecord {
	sessions := make(map[int64][]time.Time, len(entries))
	for _, entry := range entries {
		sessions[entry.UserID] = append(sessions[entry.UserID], entry.Timestamp)
	}
	for _, times := range sessions {
		sort.Slice(times, func(i, j int) bool { return times[i].Before(times[j]) })
	}

	out := make([]domain.MergedRecord, 0, len(records))
	for _, record := range records {
		times, ok := sessions[record.UserID]
		if !ok {
			diag.UnmatchedUsers++
			continue
		}
		record.SessionTime = nearestTime(times, record.Timestamp)
		out = append(out, record)
	}
	return out
}

// JoinComponentCodes keeps records whose component resolves to a known,
// non-excluded reference entry and attaches the code and category.
// Unknown and excluded components are dropped and tallied separately.
func (m *Merger) JoinComponentCodes(records []domain.MergedRecord, codes []domain.ComponentCode, diag *domain.MergeDiagnostics) []domain.MergedRecord {
	index := make(map[string]domain.ComponentCode, len(codes))
	for _, code := range codes {
		index[code.Name] = code
	}

	out := make([]domain.MergedRecord, 0, len(records))
	for _, record := range records {
		code, ok := index[record.Component]
		if !ok {
			diag.UnmatchedComponents++
			continue
		}
		if code.Excluded {
			diag.ExcludedComponents++
			continue
		}
		record.ComponentCode = code.Code
		record.Category = code.Category
		out = append(out, record)
	}
	return out
}

// seedRecords lifts activity records into merged records awaiting joins.
func seedRecords(records []domain.ActivityRecord) []domain.MergedRecord {
	out := make([]domain.MergedRecord, len(records))
	for i, record := range records {
		out[i] = domain.MergedRecord{
			UserID:    record.UserID,
			Component: record.Component,
			Action:    record.Action,
			Target:    record.Target,
			Timestamp: record.Timestamp,
		}
	}
	return out
}

// nearestTime returns the element of the sorted slice closest to target.
func nearestTime(times []time.Time, target time.Time) time.Time {
	idx := sort.Search(len(times), func(i int) bool { return !times[i].Before(target) })
	if idx == 0 {
		return times[0]
	}
	if idx == len(times) {
		return times[len(times)-1]
	}
	before, after := times[idx-1], times[idx]
	if target.Sub(before) <= after.Sub(target) {
		return before
	}
	return after
}

// parseUserID parses a user identifier join key.
func parseUserID(value string) (int64, error) {
	id, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse user id %q: %w", value, err)
	}
	return id, nil
}

// parseTimestamp tries the known export layouts in order.
func parseTimestamp(value string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", value)
}
