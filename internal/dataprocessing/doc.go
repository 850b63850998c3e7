// Package dataprocessing implements the course-activity processing pipeline.
// It turns three CSV exports from the learning platform into a joined,
// reshaped, analysis-ready dataset.
//
// # Architecture
//
// The package is organized as five sequential stages, each taking the
// previous stage's output and returning a new immutable table:
//
//  1. Loader: reads and validates the three CSV sources
//  2. Cleaner: drops excluded component rows, renames columns to canonical keys
//  3. Merger: inner-joins activity, user-log and component-code tables
//  4. Reshaper: pivots merged records into a wide (user, bucket) x component table
//  5. Aggregator: derives interaction counts and engagement statistics
//
// # Data Flow
//
//	CSV files → Datasets → cleaned Datasets → MergedRecords → ReshapedTable → InteractionSummary
//
// # Error Handling
//
// Each stage validates its own preconditions and fails fast with a typed
// error (LOAD, SCHEMA, JOIN, RESHAPE, AGGREGATION). Rows dropped by the
// merge inner joins are tallied as diagnostics, not errors.
//
// # Testing
//
// The package includes comprehensive tests for all stages.
// Use table-driven tests when adding new functionality.
package dataprocessing
