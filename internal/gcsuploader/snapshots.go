package gcsuploader

import (
	"context"
	"errors"
	"fmt"
	"path"
)

// SnapshotStore keeps run snapshots under <prefix>/<run_id>.json in one bucket.
type SnapshotStore struct {
	storage StorageService
	bucket  string
	prefix  string
}

// NewSnapshotStore creates a snapshot store writing under runs/ in bucket.
func NewSnapshotStore(storage StorageService, bucket string) (*SnapshotStore, error) {
	if bucket == "" {
		return nil, errors.New("NewSnapshotStore: bucket is required")
	}
	return &SnapshotStore{storage: storage, bucket: bucket, prefix: "runs"}, nil
}

// ObjectName is the object a run's snapshot is written to.
func (s *SnapshotStore) ObjectName(runID string) string {
	return path.Join(s.prefix, runID+".json")
}

// UploadSnapshot writes the snapshot and returns its gs:// URI.
func (s *SnapshotStore) UploadSnapshot(ctx context.Context, runID string, data []byte) (string, error) {
	if runID == "" {
		return "", errors.New("UploadSnapshot: run ID is required")
	}
	object := s.ObjectName(runID)
	if err := s.storage.UploadBytes(ctx, s.bucket, object, data, "application/json"); err != nil {
		return "", fmt.Errorf("UploadSnapshot: %w", err)
	}
	return fmt.Sprintf("gs://%s/%s", s.bucket, object), nil
}
