package domain

import (
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

type TransferStatus string

const (
	TransferStatusPending     TransferStatus = "pending"
	TransferStatusDownloading TransferStatus = "downloading"
	TransferStatusCompleted   TransferStatus = "completed"
	TransferStatusFailed      TransferStatus = "failed"
)

// DownloadTask is a single source to destination transfer request. It is
// consumed exactly once; a fallback retry builds a new task.
type DownloadTask struct {
	ID             uuid.UUID
	URL            string
	Headers        map[string]string
	Dir            string
	Filename       string
	Size           int64
	Representation RepresentationType
	Component      Component
	Version        Version
}

func (t DownloadTask) Path() string {
	return filepath.Join(t.Dir, t.Filename)
}

// TransferProgress is the live record for one in-flight transfer. It is
// transient: the registry drops it once the transfer reaches a terminal
// status.
type TransferProgress struct {
	TaskID   uuid.UUID
	Filename string
	Bytes    int64
	Total    int64
	Status   TransferStatus
}

// Percent reports completion as a percentage. The second return is false
// when the total size is unknown and no percentage can be computed.
func (p TransferProgress) Percent() (float64, bool) {
	if p.Total <= 0 {
		return 0, false
	}
	return float64(p.Bytes) / float64(p.Total) * 100, true
}

// TransferResult is the terminal state of one successful transfer.
type TransferResult struct {
	Path  string
	Bytes int64
}

// BatchOutcome is the per-task result collected by the scheduler. Reason is
// set only on failure and is suitable for direct display.
type BatchOutcome struct {
	Task    DownloadTask
	Success bool
	Path    string
	Size    int64
	Reason  string
}

// BatchReport aggregates one batch run.
type BatchReport struct {
	Attempted int
	Succeeded int
	Failed    int
	Elapsed   time.Duration
	Outcomes  []BatchOutcome
}

// FailedDownload hands a failed item to the fallback workflow. FailedType is
// the representation that was tried and lost; it is empty when selection
// found nothing to try.
type FailedDownload struct {
	Version    Version
	FailedType RepresentationType
	Reason     string
}
