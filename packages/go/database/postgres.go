package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nicholaszhao/uptime-report-pdf/packages/go/models"
)

// PostgresDB wraps a PostgreSQL connection pool
type PostgresDB struct {
	pool *pgxpool.Pool
}

// NewPostgresDB creates a new PostgreSQL connection and ensures the ledger table exists
func NewPostgresDB(ctx context.Context, dsn string) (*PostgresDB, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	// Test connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	db := &PostgresDB{pool: pool}
	if err := db.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}

	return db, nil
}

// Close closes the database connection
func (db *PostgresDB) Close() {
	db.pool.Close()
}

func (db *PostgresDB) ensureSchema(ctx context.Context) error {
	batch := &pgx.Batch{}
	batch.Queue(`CREATE TABLE IF NOT EXISTS report_runs (
		id TEXT PRIMARY KEY,
		period TEXT NOT NULL,
		src_bucket TEXT NOT NULL,
		src_key TEXT,
		dest_bucket TEXT NOT NULL,
		dest_html_key TEXT,
		dest_pdf_key TEXT,
		renderer TEXT,
		status TEXT NOT NULL,
		error TEXT,
		pdf_size BIGINT NOT NULL DEFAULT 0,
		started_at TIMESTAMPTZ NOT NULL,
		finished_at TIMESTAMPTZ NOT NULL
	)`)
	batch.Queue(`CREATE INDEX IF NOT EXISTS idx_report_runs_period ON report_runs(period, finished_at)`)
	batch.Queue(`CREATE INDEX IF NOT EXISTS idx_report_runs_status ON report_runs(status)`)

	br := db.pool.SendBatch(ctx, batch)
	defer br.Close()

	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// RecordRun inserts a run record, assigning an ID when it has none
func (db *PostgresDB) RecordRun(ctx context.Context, run *models.RunRecord) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}

	query := `INSERT INTO report_runs (id, period, src_bucket, src_key, dest_bucket, dest_html_key, dest_pdf_key,
		renderer, status, error, pdf_size, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err := db.pool.Exec(ctx, query,
		run.ID, run.Period, run.SrcBucket, run.SrcKey, run.DestBucket, run.DestHTMLKey, run.DestPDFKey,
		run.Renderer, string(run.Status), run.Error, run.PDFSize, run.StartedAt, run.FinishedAt)
	if err != nil {
		return fmt.Errorf("inserting run %s: %w", run.ID, err)
	}
	return nil
}

// LatestRun returns the newest run for a period, or nil if none exists
func (db *PostgresDB) LatestRun(ctx context.Context, period string) (*models.RunRecord, error) {
	query := `SELECT ` + runColumns + ` FROM report_runs WHERE period = $1 ORDER BY finished_at DESC LIMIT 1`

	r, err := scanRun(db.pool.QueryRow(ctx, query, period))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

// CountRunsByStatus returns the number of runs per status
func (db *PostgresDB) CountRunsByStatus(ctx context.Context) (map[models.RunStatus]int, error) {
	rows, err := db.pool.Query(ctx, `SELECT status, COUNT(*) FROM report_runs GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[models.RunStatus]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[models.RunStatus(status)] = n
	}
	return counts, rows.Err()
}
