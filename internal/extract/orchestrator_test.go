package extract

import (
	"fmt"
	"strings"
	"testing"

	"sheetetl/internal/profile"
	"sheetetl/internal/schema"
	"sheetetl/internal/sheetio"
)

// fakeParser returns a Parse seam serving canned sheets by name.
func fakeParser(sheets map[string]*sheetio.ParsedSheet) func(string, string, sheetio.ParseOptions) (*sheetio.ParsedSheet, error) {
	return func(_, sheetName string, _ sheetio.ParseOptions) (*sheetio.ParsedSheet, error) {
		ps, ok := sheets[sheetName]
		if !ok {
			return nil, fmt.Errorf("sheet %q: %w", sheetName, sheetio.ErrSheetNotFound)
		}
		return ps, nil
	}
}

func txMappings() []schema.ColumnMapping {
	return []schema.ColumnMapping{
		{ExcelColumn: "날짜", TargetField: "dateTime", Confidence: 0.9, Transform: "normalizeDate"},
		{ExcelColumn: "결제수단", TargetField: "method", Confidence: 0.9, Transform: "normalizePaymentMethod"},
		{ExcelColumn: "금액", TargetField: "amounts.bankAmount", Confidence: 0.9, Transform: "normalizeAmount"},
	}
}

// TestOrchestrator_GenericPath covers the full generic pipeline over one
// sheet: null-row elimination, guardrail rejection, provenance attachment,
// and stats accounting.
func TestOrchestrator_GenericPath(t *testing.T) {
	t.Parallel()

	sheets := map[string]*sheetio.ParsedSheet{
		"거래내역": {
			Headers: []string{"날짜", "결제수단", "금액"},
			Rows: []map[string]any{
				{"날짜": "2024-01-05", "결제수단": "카드", "금액": "1,000"},
				{"날짜": nil, "결제수단": nil, "금액": nil},                    // null row: silent drop
				{"날짜": "2024-01-06", "결제수단": nil, "금액": "2,000"}, // guardrail: no method
			},
		},
	}

	o := &Orchestrator{Parse: fakeParser(sheets), Profiles: profile.Store{}}
	results := o.Run("book.xlsx", []schema.SheetMapping{
		{SheetName: "거래내역", TargetCollection: "transactions", ColumnMappings: txMappings()},
	})

	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	res := results[0]

	if res.Stats.Total != 3 || res.Stats.Extracted != 1 || res.Stats.Errored != 0 {
		t.Fatalf("stats: %#v", res.Stats)
	}
	if len(res.Records) != 1 {
		t.Fatalf("records: %#v", res.Records)
	}
	rec := res.Records[0]
	if rec[SourceKey] != (Source{Sheet: "거래내역", Row: 1}) {
		t.Fatalf("provenance: %#v", rec[SourceKey])
	}
	if rec.at("amounts.bankAmount") != float64(1000) || rec["method"] != "card" {
		t.Fatalf("record: %#v", rec)
	}
}

// TestOrchestrator_PerRowIsolation verifies one row failing a transform does
// not stop the sheet: the error is captured as "Row <n>: ..." and the
// remaining rows extract. Errored counts only thrown rows.
func TestOrchestrator_PerRowIsolation(t *testing.T) {
	t.Parallel()

	sheets := map[string]*sheetio.ParsedSheet{
		"거래내역": {
			Headers: []string{"날짜", "결제수단", "금액"},
			Rows: []map[string]any{
				{"날짜": "2024-01-05", "결제수단": "카드", "금액": "금액아님"}, // transform error
				{"날짜": "2024-01-06", "결제수단": "현금", "금액": "3,000"},
			},
		},
	}

	o := &Orchestrator{Parse: fakeParser(sheets), Profiles: profile.Store{}}
	results := o.Run("book.xlsx", []schema.SheetMapping{
		{SheetName: "거래내역", TargetCollection: "transactions", ColumnMappings: txMappings()},
	})

	res := results[0]
	if res.Stats.Errored != 1 || res.Stats.Extracted != 1 {
		t.Fatalf("stats: %#v", res.Stats)
	}
	if len(res.Errors) != 1 || !strings.HasPrefix(res.Errors[0], "Row 1: ") {
		t.Fatalf("errors: %#v", res.Errors)
	}
	if res.Records[0][SourceKey] != (Source{Sheet: "거래내역", Row: 2}) {
		t.Fatalf("surviving record: %#v", res.Records[0])
	}
}

// TestOrchestrator_SheetLevelIsolation verifies a failing sheet becomes a
// single-error result and the next sheet still runs.
func TestOrchestrator_SheetLevelIsolation(t *testing.T) {
	t.Parallel()

	sheets := map[string]*sheetio.ParsedSheet{
		"멀쩡한시트": {
			Headers: []string{"날짜", "결제수단", "금액"},
			Rows:    []map[string]any{{"날짜": "2024-01-05", "결제수단": "카드", "금액": "1,000"}},
		},
	}

	o := &Orchestrator{Parse: fakeParser(sheets), Profiles: profile.Store{}}
	results := o.Run("book.xlsx", []schema.SheetMapping{
		{SheetName: "깨진시트", TargetCollection: "transactions", ColumnMappings: txMappings()},
		{SheetName: "멀쩡한시트", TargetCollection: "transactions", ColumnMappings: txMappings()},
	})

	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	bad := results[0]
	if len(bad.Records) != 0 || len(bad.Errors) != 1 {
		t.Fatalf("failed sheet result: %#v", bad)
	}
	if bad.Stats != (Stats{Total: 0, Extracted: 0, Errored: 1}) {
		t.Fatalf("failed sheet stats: %#v", bad.Stats)
	}
	if results[1].Stats.Extracted != 1 {
		t.Fatalf("second sheet must still extract: %#v", results[1].Stats)
	}
}

// TestOrchestrator_SkippedAndEmptyOmitted verifies skipped sheets and sheets
// with no column mappings produce no result entry at all.
func TestOrchestrator_SkippedAndEmptyOmitted(t *testing.T) {
	t.Parallel()

	o := &Orchestrator{Parse: fakeParser(nil), Profiles: profile.Store{}}
	results := o.Run("book.xlsx", []schema.SheetMapping{
		{SheetName: "건너뜀", TargetCollection: "projects", Skipped: true, ColumnMappings: txMappings()},
		{SheetName: "매핑없음", TargetCollection: "projects"},
	})

	if len(results) != 0 {
		t.Fatalf("expected no results, got %#v", results)
	}
}

// TestOrchestrator_MatrixDispatch verifies sheet names matching the matrix
// predicate take the matrix path, and that an open failure there is captured
// at sheet level.
func TestOrchestrator_MatrixDispatch(t *testing.T) {
	t.Parallel()

	opened := 0
	o := &Orchestrator{
		Parse: fakeParser(nil),
		OpenMatrix: func(_, sheetName string) (MatrixSheet, error) {
			opened++
			return newMatrixFixture(11), nil
		},
		Profiles: profile.Store{},
	}

	results := o.Run("book.xlsx", []schema.SheetMapping{
		{SheetName: "인력별 참여율", TargetCollection: "participations", ColumnMappings: txMappings()},
	})

	if opened != 1 {
		t.Fatalf("matrix path not taken")
	}
	if len(results) != 1 || results[0].Stats.Extracted != 2 {
		t.Fatalf("matrix result: %#v", results)
	}

	o.OpenMatrix = func(_, _ string) (MatrixSheet, error) {
		return nil, fmt.Errorf("sheet %q: %w", "인력별 참여율", sheetio.ErrSheetNotFound)
	}
	results = o.Run("book.xlsx", []schema.SheetMapping{
		{SheetName: "인력별 참여율", TargetCollection: "participations", ColumnMappings: txMappings()},
	})
	if len(results) != 1 || results[0].Stats.Errored != 1 || len(results[0].Errors) != 1 {
		t.Fatalf("matrix open failure: %#v", results)
	}
}
