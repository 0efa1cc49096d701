package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"mediapull/internal/domain"
	"mediapull/internal/repository"
)

const (
	createBatchesTable = `
CREATE TABLE IF NOT EXISTS batches (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	label TEXT NOT NULL,
	attempted INTEGER NOT NULL DEFAULT 0,
	succeeded INTEGER NOT NULL DEFAULT 0,
	failed INTEGER NOT NULL DEFAULT 0,
	elapsed_ms INTEGER NOT NULL DEFAULT 0,
	started_at DATETIME NOT NULL
);
`
	createBatchDownloadsTable = `
CREATE TABLE IF NOT EXISTS batch_downloads (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	batch_id INTEGER NOT NULL,
	task_id TEXT NOT NULL,
	version TEXT NOT NULL DEFAULT '',
	component TEXT NOT NULL DEFAULT '',
	representation TEXT NOT NULL DEFAULT '',
	filename TEXT NOT NULL DEFAULT '',
	success INTEGER NOT NULL DEFAULT 0,
	size INTEGER NOT NULL DEFAULT 0,
	path TEXT NOT NULL DEFAULT '',
	reason TEXT NOT NULL DEFAULT '',
	FOREIGN KEY(batch_id) REFERENCES batches(id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_batch_downloads_batch_id ON batch_downloads(batch_id);
`
)

type BatchRepository struct {
	db *sql.DB
}

func NewBatchRepository(db *sql.DB) repository.BatchRepository {
	return &BatchRepository{db: db}
}

func (r *BatchRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createBatchesTable); err != nil {
		return fmt.Errorf("create batches table: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, createBatchDownloadsTable); err != nil {
		return fmt.Errorf("create batch_downloads table: %w", err)
	}
	return nil
}

// RecordBatch writes the batch row and its per-download rows in one
// transaction and returns the new batch id.
func (r *BatchRepository) RecordBatch(ctx context.Context, label string, report domain.BatchReport, startedAt time.Time) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() // safe no-op on commit

	res, err := tx.ExecContext(ctx, `
INSERT INTO batches (label, attempted, succeeded, failed, elapsed_ms, started_at)
VALUES (?, ?, ?, ?, ?, ?)`,
		label,
		report.Attempted,
		report.Succeeded,
		report.Failed,
		report.Elapsed.Milliseconds(),
		startedAt.UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("insert batch: %w", err)
	}

	batchID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("get last insert id: %w", err)
	}

	for _, outcome := range report.Outcomes {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO batch_downloads (batch_id, task_id, version, component, representation, filename, success, size, path, reason)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			batchID,
			outcome.Task.ID.String(),
			outcome.Task.Version.Label(),
			outcome.Task.Component.Name,
			string(outcome.Task.Representation),
			outcome.Task.Filename,
			outcome.Success,
			outcome.Size,
			outcome.Path,
			outcome.Reason,
		); err != nil {
			return 0, fmt.Errorf("insert download: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit tx: %w", err)
	}
	return batchID, nil
}

func (r *BatchRepository) ListBatches(ctx context.Context, limit int) ([]domain.BatchRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := r.db.QueryContext(ctx, `
SELECT id, label, attempted, succeeded, failed, elapsed_ms, started_at
FROM batches
ORDER BY id DESC
LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query batches: %w", err)
	}
	defer rows.Close()

	var batches []domain.BatchRecord
	for rows.Next() {
		var (
			record    domain.BatchRecord
			elapsedMS int64
		)
		if err := rows.Scan(&record.ID, &record.Label, &record.Attempted, &record.Succeeded, &record.Failed, &elapsedMS, &record.StartedAt); err != nil {
			return nil, fmt.Errorf("scan batch: %w", err)
		}
		record.Elapsed = time.Duration(elapsedMS) * time.Millisecond
		batches = append(batches, record)
	}

	return batches, rows.Err()
}

func (r *BatchRepository) ListDownloads(ctx context.Context, batchID int64) ([]domain.DownloadRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, batch_id, task_id, version, component, representation, filename, success, size, path, reason
FROM batch_downloads
WHERE batch_id=?
ORDER BY id ASC`, batchID)
	if err != nil {
		return nil, fmt.Errorf("query downloads: %w", err)
	}
	defer rows.Close()

	var downloads []domain.DownloadRecord
	for rows.Next() {
		var record domain.DownloadRecord
		if err := rows.Scan(
			&record.ID,
			&record.BatchID,
			&record.TaskID,
			&record.Version,
			&record.Component,
			&record.Representation,
			&record.Filename,
			&record.Success,
			&record.Size,
			&record.Path,
			&record.Reason,
		); err != nil {
			return nil, fmt.Errorf("scan download: %w", err)
		}
		downloads = append(downloads, record)
	}

	return downloads, rows.Err()
}
