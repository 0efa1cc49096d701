package storage

import (
	"context"
	"time"
)

type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified *time.Time
}

// UploadOptions conveys the mirror destination. The progress callback, when
// set, receives cumulative done/total byte counts across the whole upload.
type UploadOptions struct {
	Bucket           string
	KeyPrefix        string
	ProgressCallback func(done, total int64)
}

// Service mirrors completed downloads to remote object storage.
type Service interface {
	UploadFiles(ctx context.Context, paths []string, opts UploadOptions) (string, error)
	ListObjects(ctx context.Context, bucket, prefix string) ([]ObjectInfo, error)
}
