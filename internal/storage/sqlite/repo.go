package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite"

	"sheetetl/internal/extract"
	"sheetetl/internal/storage"
)

// Repo implements storage.Repository for SQLite.
//
// SQLite has no native timestamp type; run timestamps are stored as RFC3339
// strings for reliable round-trips and easy debugging. Record payloads are
// stored as JSON text.
type Repo struct {
	db *sql.DB
}

func init() {
	storage.Register("sqlite", New)
}

func New(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Repo{db: db}, nil
}

func (r *Repo) Close() { _ = r.db.Close() }

var schemaStmts = []string{
	`CREATE TABLE IF NOT EXISTS extraction_runs (
		run_id      TEXT PRIMARY KEY,
		source_file TEXT NOT NULL,
		started_at  TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS extraction_results (
		run_id            TEXT NOT NULL,
		sheet_name        TEXT NOT NULL,
		target_collection TEXT NOT NULL,
		total             INTEGER NOT NULL,
		extracted         INTEGER NOT NULL,
		errored           INTEGER NOT NULL,
		PRIMARY KEY (run_id, sheet_name)
	)`,
	`CREATE TABLE IF NOT EXISTS extracted_records (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id     TEXT NOT NULL,
		collection TEXT NOT NULL,
		sheet_name TEXT NOT NULL,
		row_num    INTEGER NOT NULL,
		payload    TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS extraction_errors (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id     TEXT NOT NULL,
		sheet_name TEXT NOT NULL,
		message    TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_extracted_records_run
		ON extracted_records (run_id, collection)`,
}

// EnsureSchema creates the sink tables when missing, keeping startup
// idempotent.
func (r *Repo) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStmts {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// SaveRun writes the run and all of its results in one transaction.
// "INSERT OR IGNORE" on the run row makes re-saving a run id a no-op there;
// records append (a re-run under the same id is the caller's bug, but must
// not fail the save).
func (r *Repo) SaveRun(ctx context.Context, run storage.Run, results []extract.Result) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO extraction_runs (run_id, source_file, started_at) VALUES (?, ?, ?)`,
		run.ID, run.SourceFile, run.StartedAt.UTC().Format("2006-01-02T15:04:05.999999999Z07:00"),
	); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for _, res := range results {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO extraction_results
				(run_id, sheet_name, target_collection, total, extracted, errored)
				VALUES (?, ?, ?, ?, ?, ?)`,
			run.ID, res.SheetName, res.TargetCollection,
			res.Stats.Total, res.Stats.Extracted, res.Stats.Errored,
		); err != nil {
			return fmt.Errorf("insert result for %s: %w", res.SheetName, err)
		}

		for _, rec := range res.Records {
			src, _ := rec[extract.SourceKey].(extract.Source)
			payload, err := json.Marshal(rec)
			if err != nil {
				return fmt.Errorf("marshal record %s row %d: %w", src.Sheet, src.Row, err)
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO extracted_records (run_id, collection, sheet_name, row_num, payload)
					VALUES (?, ?, ?, ?, ?)`,
				run.ID, res.TargetCollection, src.Sheet, src.Row, string(payload),
			); err != nil {
				return fmt.Errorf("insert record %s row %d: %w", src.Sheet, src.Row, err)
			}
		}

		for _, msg := range res.Errors {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO extraction_errors (run_id, sheet_name, message) VALUES (?, ?, ?)`,
				run.ID, res.SheetName, msg,
			); err != nil {
				return fmt.Errorf("insert error for %s: %w", res.SheetName, err)
			}
		}
	}

	return tx.Commit()
}

var _ storage.Repository = (*Repo)(nil)
