package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"raggate/internal/config"
)

func TestDocumentKey(t *testing.T) {
	assert.Equal(t, "datasets/ds1/doc1/report.pdf", DocumentKey("ds1", "doc1", "report.pdf"))
	assert.Equal(t, "datasets/ds1/doc1/evil.txt", DocumentKey("ds1", "doc1", "../../evil.txt"))
	assert.Equal(t, "datasets/ds1/doc1/a.txt", DocumentKey("ds1", "doc1", `C:\tmp\a.txt`))
}

func TestNew(t *testing.T) {
	store, err := New(context.Background(), &config.StorageConfig{Enabled: false})
	require.NoError(t, err)
	assert.Nil(t, store)

	_, err = New(context.Background(), &config.StorageConfig{Enabled: true, Backend: "s3"})
	assert.Error(t, err)

	_, err = New(context.Background(), &config.StorageConfig{Enabled: true, Backend: BackendMinIO})
	assert.EqualError(t, err, "minio endpoint is required")

	store, err = New(context.Background(), &config.StorageConfig{
		Enabled: true,
		Backend: BackendMinIO,
		MinIO:   config.MinIOConfig{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "b", Bucket: "docs"},
	})
	require.NoError(t, err)
	assert.Equal(t, "docs", store.Bucket())

	_, err = New(context.Background(), &config.StorageConfig{Enabled: true, Backend: BackendGCS})
	assert.EqualError(t, err, "gcs bucket is required")
}
