// Package exporter serializes pipeline stage outputs to disk.
//
// Two writers are provided: CSVWriter emits BOM-prefixed CSV files that
// spreadsheet applications open cleanly, and WorkbookWriter persists the
// complete run as an Excel workbook with one sheet per pipeline stage
// (Processed, Merged, Reshaped, Summary).
//
// Formatting is intentionally minimal; the exporter's correctness
// obligation is only that every cell of each stage table lands in the
// output. Rendering concerns belong to whatever opens the files.
package exporter
