package sqlite

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"sheetetl/internal/extract"
	"sheetetl/internal/storage"
)

func testRepo(t *testing.T) (storage.Repository, string) {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "sink.db")
	repo, err := New(context.Background(), storage.Config{Kind: "sqlite", DSN: dsn})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(repo.Close)

	if err := repo.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}
	return repo, dsn
}

func sampleResults() []extract.Result {
	return []extract.Result{
		{
			SheetName:        "거래내역",
			TargetCollection: "transactions",
			Records: []extract.Record{
				{
					"dateTime":          "2024-01-05",
					"method":            "card",
					"amounts":           map[string]any{"bankAmount": float64(1000)},
					extract.SourceKey:   extract.Source{Sheet: "거래내역", Row: 1},
				},
			},
			Errors: []string{"Row 2: normalizeAmount: unparseable amount \"x\""},
			Stats:  extract.Stats{Total: 2, Extracted: 1, Errored: 1},
		},
		{
			SheetName:        "깨진시트",
			TargetCollection: "projects",
			Errors:           []string{"parse sheet: sheet \"깨진시트\": sheet not found"},
			Stats:            extract.Stats{Total: 0, Extracted: 0, Errored: 1},
		},
	}
}

// TestSaveRun_RoundTrip verifies a run, its records, errors, and stats all
// land in their tables with provenance columns populated.
func TestSaveRun_RoundTrip(t *testing.T) {
	t.Parallel()

	repo, dsn := testRepo(t)

	run := storage.Run{ID: "run-1", SourceFile: "book.xlsx", StartedAt: time.Now()}
	if err := repo.SaveRun(context.Background(), run, sampleResults()); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	count := func(q string, args ...any) int {
		var n int
		if err := db.QueryRow(q, args...).Scan(&n); err != nil {
			t.Fatalf("query %q: %v", q, err)
		}
		return n
	}

	if n := count(`SELECT COUNT(*) FROM extraction_runs WHERE run_id = ?`, "run-1"); n != 1 {
		t.Fatalf("runs = %d", n)
	}
	if n := count(`SELECT COUNT(*) FROM extraction_results WHERE run_id = ?`, "run-1"); n != 2 {
		t.Fatalf("results = %d", n)
	}
	if n := count(`SELECT COUNT(*) FROM extracted_records WHERE run_id = ? AND collection = ?`, "run-1", "transactions"); n != 1 {
		t.Fatalf("records = %d", n)
	}
	if n := count(`SELECT COUNT(*) FROM extraction_errors WHERE run_id = ?`, "run-1"); n != 2 {
		t.Fatalf("errors = %d", n)
	}

	var sheet string
	var row int
	if err := db.QueryRow(
		`SELECT sheet_name, row_num FROM extracted_records WHERE run_id = ?`, "run-1",
	).Scan(&sheet, &row); err != nil {
		t.Fatalf("scan record: %v", err)
	}
	if sheet != "거래내역" || row != 1 {
		t.Fatalf("provenance columns: %q row %d", sheet, row)
	}
}

// TestSaveRun_RunRowIdempotent verifies re-saving the same run id does not
// duplicate the run row.
func TestSaveRun_RunRowIdempotent(t *testing.T) {
	t.Parallel()

	repo, dsn := testRepo(t)

	run := storage.Run{ID: "run-2", SourceFile: "book.xlsx", StartedAt: time.Now()}
	if err := repo.SaveRun(context.Background(), run, nil); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}
	if err := repo.SaveRun(context.Background(), run, nil); err != nil {
		t.Fatalf("second SaveRun: %v", err)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM extraction_runs WHERE run_id = ?`, "run-2").Scan(&n); err != nil {
		t.Fatalf("query: %v", err)
	}
	if n != 1 {
		t.Fatalf("run rows = %d, want 1", n)
	}
}
