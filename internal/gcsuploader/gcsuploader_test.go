package gcsuploader

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockStorageService is a mock implementation of StorageService.
type MockStorageService struct {
	UploadBytesFunc  func(ctx context.Context, bucketName, objectName string, data []byte, contentType string) error
	FetchFromGCSFunc func(ctx context.Context, gcsURI string) ([]byte, error)
}

func (m *MockStorageService) UploadBytes(ctx context.Context, bucketName, objectName string, data []byte, contentType string) error {
	if m.UploadBytesFunc != nil {
		return m.UploadBytesFunc(ctx, bucketName, objectName, data, contentType)
	}
	return nil
}

func (m *MockStorageService) FetchFromGCS(ctx context.Context, gcsURI string) ([]byte, error) {
	if m.FetchFromGCSFunc != nil {
		return m.FetchFromGCSFunc(ctx, gcsURI)
	}
	return nil, nil
}

func TestParseGCSURI(t *testing.T) {
	tests := []struct {
		uri        string
		wantBucket string
		wantObject string
		wantErr    bool
	}{
		{uri: "gs://bucket/rules/tax.yaml", wantBucket: "bucket", wantObject: "rules/tax.yaml"},
		{uri: "gs://bucket/file.json", wantBucket: "bucket", wantObject: "file.json"},
		{uri: "gs://bucket", wantErr: true},
		{uri: "gs://bucket/", wantErr: true},
		{uri: "s3://bucket/file", wantErr: true},
		{uri: "/local/file.yaml", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			bucket, object, err := ParseGCSURI(tt.uri)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantBucket, bucket)
			assert.Equal(t, tt.wantObject, object)
		})
	}
}

func TestSnapshotStoreUpload(t *testing.T) {
	var gotBucket, gotObject, gotType string
	var gotData []byte
	mock := &MockStorageService{
		UploadBytesFunc: func(ctx context.Context, bucketName, objectName string, data []byte, contentType string) error {
			gotBucket, gotObject, gotType, gotData = bucketName, objectName, contentType, data
			return nil
		},
	}

	store, err := NewSnapshotStore(mock, "ingresos-snapshots")
	require.NoError(t, err)

	uri, err := store.UploadSnapshot(context.Background(), "run-1", []byte(`{"facts":[]}`))
	require.NoError(t, err)
	assert.Equal(t, "gs://ingresos-snapshots/runs/run-1.json", uri)
	assert.Equal(t, "ingresos-snapshots", gotBucket)
	assert.Equal(t, "runs/run-1.json", gotObject)
	assert.Equal(t, "application/json", gotType)
	assert.JSONEq(t, `{"facts":[]}`, string(gotData))
}

func TestSnapshotStoreErrors(t *testing.T) {
	_, err := NewSnapshotStore(&MockStorageService{}, "")
	assert.Error(t, err)

	store, err := NewSnapshotStore(&MockStorageService{
		UploadBytesFunc: func(ctx context.Context, bucketName, objectName string, data []byte, contentType string) error {
			return errors.New("permission denied")
		},
	}, "b")
	require.NoError(t, err)

	_, err = store.UploadSnapshot(context.Background(), "", nil)
	assert.ErrorContains(t, err, "run ID is required")

	_, err = store.UploadSnapshot(context.Background(), "run-2", []byte("{}"))
	assert.ErrorContains(t, err, "permission denied")
}

func TestReadURI(t *testing.T) {
	mock := &MockStorageService{
		FetchFromGCSFunc: func(ctx context.Context, gcsURI string) ([]byte, error) {
			assert.Equal(t, "gs://b/rules.yaml", gcsURI)
			return []byte("remote"), nil
		},
	}

	data, err := ReadURI(context.Background(), mock, "gs://b/rules.yaml")
	require.NoError(t, err)
	assert.Equal(t, "remote", string(data))

	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte("local"), 0o644))
	data, err = ReadURI(context.Background(), mock, path)
	require.NoError(t, err)
	assert.Equal(t, "local", string(data))

	_, err = ReadURI(context.Background(), mock, filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
