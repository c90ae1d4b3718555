package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"sheetetl/internal/extract"
	"sheetetl/internal/storage"
)

// Repo implements storage.Repository for Postgres via pgxpool.
// Record payloads are stored as JSONB so the load stage can query into them.
type Repo struct {
	pool *pgxpool.Pool
}

func init() {
	storage.Register("postgres", New)
}

func New(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("db pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return &Repo{pool: pool}, nil
}

func (r *Repo) Close() { r.pool.Close() }

var schemaStmts = []string{
	`CREATE TABLE IF NOT EXISTS extraction_runs (
		run_id      TEXT PRIMARY KEY,
		source_file TEXT NOT NULL,
		started_at  TIMESTAMPTZ NOT NULL
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
		id         BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
		run_id     TEXT NOT NULL,
		collection TEXT NOT NULL,
		sheet_name TEXT NOT NULL,
		row_num    INTEGER NOT NULL,
		payload    JSONB NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS extraction_errors (
		id         BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
		run_id     TEXT NOT NULL,
		sheet_name TEXT NOT NULL,
		message    TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_extracted_records_run
		ON extracted_records (run_id, collection)`,
}

// EnsureSchema creates the sink tables when missing.
func (r *Repo) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStmts {
		if _, err := r.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// SaveRun writes the run and all of its results in one transaction.
// ON CONFLICT DO NOTHING keeps the run row idempotent; result rows upsert on
// (run_id, sheet_name) so a re-save carries the latest stats.
func (r *Repo) SaveRun(ctx context.Context, run storage.Run, results []extract.Result) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`INSERT INTO extraction_runs (run_id, source_file, started_at)
			VALUES ($1, $2, $3) ON CONFLICT (run_id) DO NOTHING`,
		run.ID, run.SourceFile, run.StartedAt,
	); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	batch := &pgx.Batch{}
	for _, res := range results {
		batch.Queue(
			`INSERT INTO extraction_results
				(run_id, sheet_name, target_collection, total, extracted, errored)
				VALUES ($1, $2, $3, $4, $5, $6)
				ON CONFLICT (run_id, sheet_name) DO UPDATE
					SET total = EXCLUDED.total,
					    extracted = EXCLUDED.extracted,
					    errored = EXCLUDED.errored`,
			run.ID, res.SheetName, res.TargetCollection,
			res.Stats.Total, res.Stats.Extracted, res.Stats.Errored,
		)

		for _, rec := range res.Records {
			src, _ := rec[extract.SourceKey].(extract.Source)
			payload, err := json.Marshal(rec)
			if err != nil {
				return fmt.Errorf("marshal record %s row %d: %w", src.Sheet, src.Row, err)
			}
			batch.Queue(
				`INSERT INTO extracted_records (run_id, collection, sheet_name, row_num, payload)
					VALUES ($1, $2, $3, $4, $5)`,
				run.ID, res.TargetCollection, src.Sheet, src.Row, payload,
			)
		}

		for _, msg := range res.Errors {
			batch.Queue(
				`INSERT INTO extraction_errors (run_id, sheet_name, message) VALUES ($1, $2, $3)`,
				run.ID, res.SheetName, msg,
			)
		}
	}

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return tx.Commit(ctx)
}

var _ storage.Repository = (*Repo)(nil)
