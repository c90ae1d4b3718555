package extract

import (
	"fmt"
	"time"

	"sheetetl/internal/profile"
	"sheetetl/internal/schema"
	"sheetetl/internal/sheetio"
)

// Orchestrator walks the sheet mappings of one workbook and runs extraction
// per sheet, dispatching to either the generic per-row pipeline or the
// participation-matrix path.
//
// The reader functions are seams: production wiring uses sheetio, tests
// swap in fakes. Sheets are processed strictly in input order with no shared
// state between them; cancellation, if wanted, is the caller's concern.
type Orchestrator struct {
	Parse      func(path, sheetName string, opt sheetio.ParseOptions) (*sheetio.ParsedSheet, error)
	OpenMatrix func(path, sheetName string) (MatrixSheet, error)
	Profiles   profile.Store

	// OnSheet, when set, observes each sheet's finished Result and its wall
	// time. Used for progress reporting and metrics; must not mutate res.
	OnSheet func(res Result, elapsed time.Duration)
}

// NewOrchestrator returns an orchestrator wired to the excelize-backed
// reader, with layout overrides from profiles (may be nil).
func NewOrchestrator(profiles profile.Store) *Orchestrator {
	return &Orchestrator{
		Parse: sheetio.ParseSheet,
		OpenMatrix: func(path, sheetName string) (MatrixSheet, error) {
			return sheetio.OpenSheet(path, sheetName)
		},
		Profiles: profiles,
	}
}

// Run extracts every eligible sheet mapping of the workbook at path and
// returns one Result per processed mapping, in input order.
//
// Resilience:
//   - A row that fails assembly is recorded in its sheet's Errors and the
//     remaining rows still run.
//   - A sheet that fails setup or processing yields a single-error Result
//     with zero records; remaining sheets still run.
//   - Sheets flagged skipped, and sheets with no column mappings at all,
//     produce no Result entry (silently omitted, not an error).
//
// There is no aborting error path: extraction is a deterministic function of
// its inputs and retrying without changing them would reproduce the failure.
func (o *Orchestrator) Run(path string, mappings []schema.SheetMapping) []Result {
	var results []Result

	for _, sm := range mappings {
		if sm.Skipped || len(sm.ColumnMappings) == 0 {
			continue
		}

		start := time.Now()
		var res Result
		if IsMatrixSheet(sm.SheetName) {
			res = o.runMatrixSheet(path, sm)
		} else {
			res = o.runGenericSheet(path, sm)
		}
		if o.OnSheet != nil {
			o.OnSheet(res, time.Since(start))
		}
		results = append(results, res)
	}
	return results
}

func (o *Orchestrator) runGenericSheet(path string, sm schema.SheetMapping) Result {
	layout, _ := o.Profiles.Lookup(sm.SheetName)
	opt := sheetio.ParseOptions{
		HeaderRowCount: layout.HeaderRowCount,
		HeaderStartRow: layout.HeaderStartRow,
		DataStartRow:   layout.DataStartRow,
	}

	ps, err := o.Parse(path, sm.SheetName, opt)
	if err != nil {
		return errorResult(sm, fmt.Errorf("parse sheet: %w", err))
	}

	expected := make([]string, 0, len(sm.ColumnMappings))
	for _, cm := range sm.ColumnMappings {
		expected = append(expected, cm.ExcelColumn)
	}
	resolved := ResolveColumns(ps.Headers, expected)

	result := Result{
		SheetName:        sm.SheetName,
		TargetCollection: sm.TargetCollection,
		Stats:            Stats{Total: len(ps.Rows)},
	}

	for i, row := range ps.Rows {
		rec, err := AssembleRecord(row, sm.ColumnMappings, resolved)
		if err != nil {
			result.Stats.Errored++
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: %v", i+1, err))
			continue
		}
		if allNull(rec) {
			continue
		}
		if !AdmitRecord(rec, sm.TargetCollection) {
			continue
		}
		rec[SourceKey] = Source{Sheet: sm.SheetName, Row: i + 1}
		result.Records = append(result.Records, rec)
	}

	result.Stats.Extracted = len(result.Records)
	return result
}

func (o *Orchestrator) runMatrixSheet(path string, sm schema.SheetMapping) Result {
	sheet, err := o.OpenMatrix(path, sm.SheetName)
	if err != nil {
		return errorResult(sm, fmt.Errorf("open matrix sheet: %w", err))
	}
	if c, ok := sheet.(interface{ Close() error }); ok {
		defer c.Close()
	}

	res, err := ExtractMatrix(sheet, sm.SheetName, sm.TargetCollection)
	if err != nil {
		return errorResult(sm, err)
	}
	return *res
}

// errorResult converts a sheet-level failure into its Result: zero records,
// one error, stats marking a single errored unit.
func errorResult(sm schema.SheetMapping, err error) Result {
	return Result{
		SheetName:        sm.SheetName,
		TargetCollection: sm.TargetCollection,
		Errors:           []string{err.Error()},
		Stats:            Stats{Total: 0, Extracted: 0, Errored: 1},
	}
}
