package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/nicholaszhao/uptime-report-pdf/packages/go/models"
)

// DB wraps a SQLite run ledger used by local tooling
type DB struct {
	conn *sql.DB
}

// New creates a new database connection
func New(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// SQLite allows one writer; a single connection serializes concurrent
	// RecordRun calls from a backfill instead of failing with SQLITE_BUSY
	conn.SetMaxOpenConns(1)

	db := &DB{conn: conn}

	// Initialize schema
	if err := db.initSchema(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}

	return db, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// initSchema creates the database tables
func (db *DB) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS report_runs (
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
		pdf_size INTEGER NOT NULL DEFAULT 0,
		started_at DATETIME NOT NULL,
		finished_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_report_runs_period ON report_runs(period, finished_at);
	CREATE INDEX IF NOT EXISTS idx_report_runs_status ON report_runs(status);
	`

	_, err := db.conn.Exec(schema)
	return err
}

// RecordRun inserts a run record, assigning an ID when it has none
func (db *DB) RecordRun(ctx context.Context, run *models.RunRecord) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}

	query := `
		INSERT INTO report_runs (id, period, src_bucket, src_key, dest_bucket, dest_html_key, dest_pdf_key,
			renderer, status, error, pdf_size, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := db.conn.ExecContext(ctx, query,
		run.ID,
		run.Period,
		run.SrcBucket,
		run.SrcKey,
		run.DestBucket,
		run.DestHTMLKey,
		run.DestPDFKey,
		run.Renderer,
		run.Status,
		run.Error,
		run.PDFSize,
		run.StartedAt.UTC(),
		run.FinishedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("inserting run %s: %w", run.ID, err)
	}
	return nil
}

const runColumns = `id, period, src_bucket, COALESCE(src_key, ''), dest_bucket, COALESCE(dest_html_key, ''),
	COALESCE(dest_pdf_key, ''), COALESCE(renderer, ''), status, COALESCE(error, ''), pdf_size, started_at, finished_at`

// ListRuns returns the most recent runs, newest first
func (db *DB) ListRuns(ctx context.Context, limit int) ([]models.RunRecord, error) {
	query := `SELECT ` + runColumns + ` FROM report_runs ORDER BY finished_at DESC LIMIT ?`

	rows, err := db.conn.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []models.RunRecord
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}

	return runs, rows.Err()
}

// LatestRun returns the newest run for a period, or nil if none exists
func (db *DB) LatestRun(ctx context.Context, period string) (*models.RunRecord, error) {
	query := `SELECT ` + runColumns + ` FROM report_runs WHERE period = ? ORDER BY finished_at DESC LIMIT 1`

	r, err := scanRun(db.conn.QueryRowContext(ctx, query, period))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

// CountRunsByStatus returns the number of runs per status
func (db *DB) CountRunsByStatus(ctx context.Context) (map[models.RunStatus]int, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT status, COUNT(*) FROM report_runs GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[models.RunStatus]int)
	for rows.Next() {
		var status models.RunStatus
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*models.RunRecord, error) {
	var r models.RunRecord
	var startedAt, finishedAt time.Time
	if err := row.Scan(
		&r.ID, &r.Period, &r.SrcBucket, &r.SrcKey, &r.DestBucket, &r.DestHTMLKey,
		&r.DestPDFKey, &r.Renderer, &r.Status, &r.Error, &r.PDFSize, &startedAt, &finishedAt,
	); err != nil {
		return nil, err
	}
	r.StartedAt = startedAt
	r.FinishedAt = finishedAt
	return &r, nil
}
