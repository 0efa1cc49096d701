package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mediapull/internal/domain"
)

func newTestRepository(t *testing.T) *BatchRepository {
	t.Helper()

	db, err := Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo := NewBatchRepository(db).(*BatchRepository)
	require.NoError(t, repo.Init(context.Background()))
	return repo
}

func sampleReport() domain.BatchReport {
	version := domain.Version{ID: "v1", Parent: "SHOT010", Asset: "comp", Number: 3}
	okTask := domain.DownloadTask{
		ID:             uuid.New(),
		Filename:       "SHOT010_comp_v003_encoded_720p.mp4",
		Representation: domain.RepresentationEncodedLow,
		Component:      domain.Component{Name: "review-720p"},
		Version:        version,
	}
	badTask := domain.DownloadTask{
		ID:             uuid.New(),
		Filename:       "SHOT010_comp_v003_original.mov",
		Representation: domain.RepresentationOriginal,
		Component:      domain.Component{Name: "main"},
		Version:        version,
	}
	return domain.BatchReport{
		Attempted: 2,
		Succeeded: 1,
		Failed:    1,
		Elapsed:   90 * time.Second,
		Outcomes: []domain.BatchOutcome{
			{Task: okTask, Success: true, Path: "/data/" + okTask.Filename, Size: 1024},
			{Task: badTask, Reason: "unexpected http status 404"},
		},
	}
}

func TestBatchRepository_RecordAndList(t *testing.T) {
	repo := newTestRepository(t)
	startedAt := time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC)

	id, err := repo.RecordBatch(context.Background(), "20260314-103000", sampleReport(), startedAt)
	require.NoError(t, err)
	require.Positive(t, id)

	batches, err := repo.ListBatches(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, batches, 1)

	batch := batches[0]
	assert.Equal(t, id, batch.ID)
	assert.Equal(t, "20260314-103000", batch.Label)
	assert.Equal(t, 2, batch.Attempted)
	assert.Equal(t, 1, batch.Succeeded)
	assert.Equal(t, 1, batch.Failed)
	assert.Equal(t, 90*time.Second, batch.Elapsed)
	assert.True(t, batch.StartedAt.Equal(startedAt))

	downloads, err := repo.ListDownloads(context.Background(), id)
	require.NoError(t, err)
	require.Len(t, downloads, 2)

	assert.True(t, downloads[0].Success)
	assert.Equal(t, "SHOT010_comp_v003_encoded_720p.mp4", downloads[0].Filename)
	assert.Equal(t, int64(1024), downloads[0].Size)
	assert.Equal(t, "SHOT010 comp v003", downloads[0].Version)

	assert.False(t, downloads[1].Success)
	assert.Equal(t, "unexpected http status 404", downloads[1].Reason)
	assert.Equal(t, "original", downloads[1].Representation)
}

func TestBatchRepository_ListBatchesNewestFirstWithLimit(t *testing.T) {
	repo := newTestRepository(t)

	for i := 0; i < 3; i++ {
		label := time.Date(2026, 3, 14+i, 0, 0, 0, 0, time.UTC).Format("20060102-150405")
		_, err := repo.RecordBatch(context.Background(), label, domain.BatchReport{Attempted: i}, time.Now())
		require.NoError(t, err)
	}

	batches, err := repo.ListBatches(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, batches, 2)
	assert.Greater(t, batches[0].ID, batches[1].ID)
	assert.Equal(t, 2, batches[0].Attempted)
}

func TestBatchRepository_ListDownloadsUnknownBatch(t *testing.T) {
	repo := newTestRepository(t)

	downloads, err := repo.ListDownloads(context.Background(), 42)
	require.NoError(t, err)
	assert.Empty(t, downloads)
}
