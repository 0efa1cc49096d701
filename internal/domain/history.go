package domain

import "time"

// BatchRecord is one persisted batch report row.
type BatchRecord struct {
	ID        int64
	Label     string
	Attempted int
	Succeeded int
	Failed    int
	Elapsed   time.Duration
	StartedAt time.Time
}

// DownloadRecord is one persisted per-task outcome belonging to a batch.
type DownloadRecord struct {
	ID             int64
	BatchID        int64
	TaskID         string
	Version        string
	Component      string
	Representation string
	Filename       string
	Success        bool
	Size           int64
	Path           string
	Reason         string
}
