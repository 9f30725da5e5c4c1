/**
 * 对象存储
 * @date 2026.10.16
 * @description 上传文档的归档存储，后端为 MinIO 或 Google Cloud Storage，由 storage.backend 选择。
 * @func ObjectStore, New, DocumentKey
 */
package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"raggate/internal/config"
)

// 支持的后端
const (
	BackendMinIO = "minio"
	BackendGCS   = "gcs"
)

// ObjectStore 对象存储的统一操作
type ObjectStore interface {
	EnsureBucket(ctx context.Context) error
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	Bucket() string
}

// New 按配置创建存储后端，未启用时返回 nil
func New(ctx context.Context, cfg *config.StorageConfig) (ObjectStore, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, nil
	}
	switch strings.ToLower(cfg.Backend) {
	case BackendMinIO, "":
		store, err := NewMinioStore(cfg.MinIO)
		if err != nil {
			return nil, err
		}
		return store, nil
	case BackendGCS:
		store, err := NewGCSStore(ctx, cfg.GCS)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported storage backend: %s", cfg.Backend)
	}
}

// DocumentKey 文档归档对象键 datasets/{dataset}/{document}/{name}
func DocumentKey(datasetID, documentID, filename string) string {
	name := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	if name == "." || name == "/" {
		name = documentID
	}
	return path.Join("datasets", datasetID, documentID, name)
}
