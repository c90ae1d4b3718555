// Package metrics defines the minimal metrics surface the extraction
// pipeline emits. Core packages never depend on a concrete backend; cmd
// wiring picks one (Datadog or none).
package metrics

// Labels are free-form metric dimensions ("collection", "status", ...).
type Labels map[string]string

// Canonical metric names emitted by the pipeline.
const (
	// SheetsTotal counts processed sheets, labeled status:ok|failed.
	SheetsTotal = "extract_sheets_total"
	// RecordsTotal counts extracted records, labeled by collection.
	RecordsTotal = "extract_records_total"
	// RowErrorsTotal counts rows that failed assembly, labeled by collection.
	RowErrorsTotal = "extract_row_errors_total"
	// SheetDurationSeconds observes per-sheet wall time, labeled by collection.
	SheetDurationSeconds = "extract_sheet_duration_seconds"
)

// Backend is implemented by metric sinks.
//
// Implementations must tolerate unknown metric names (ignore them) so the
// pipeline can add metrics without breaking older backends.
type Backend interface {
	IncCounter(name string, delta float64, labels Labels)
	ObserveHistogram(name string, value float64, labels Labels)

	// Flush submits buffered metrics now. Close stops any background
	// flushing and flushes one final time.
	Flush() error
	Close() error
}

// Nop is the backend used when metrics are disabled.
type Nop struct{}

func (Nop) IncCounter(string, float64, Labels)       {}
func (Nop) ObserveHistogram(string, float64, Labels) {}
func (Nop) Flush() error                             { return nil }
func (Nop) Close() error                             { return nil }

var _ Backend = Nop{}
