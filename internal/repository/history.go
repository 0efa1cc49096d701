package repository

import (
	"context"
	"time"

	"mediapull/internal/domain"
)

// BatchRepository persists batch reports for the history command and the
// status API. History is reporting only; it never drives or skips downloads.
type BatchRepository interface {
	Init(ctx context.Context) error
	RecordBatch(ctx context.Context, label string, report domain.BatchReport, startedAt time.Time) (int64, error)
	ListBatches(ctx context.Context, limit int) ([]domain.BatchRecord, error)
	ListDownloads(ctx context.Context, batchID int64) ([]domain.DownloadRecord, error)
}
