package storage

import (
	"context"
	"fmt"

	"github.com/ishpreet160/CertFlow/internal/config"
)

// NewFromConfig creates the BlobStore selected by STORAGE_BACKEND.
func NewFromConfig(ctx context.Context, cfg *config.Config) (BlobStore, error) {
	switch cfg.StorageBackend {
	case "memory":
		return NewMemoryStore(), nil
	case "filesystem", "":
		if cfg.StoragePath == "" {
			return nil, fmt.Errorf("filesystem storage requires STORAGE_PATH to be set")
		}
		return NewFileSystemStore(cfg.StoragePath)
	case "s3":
		return NewS3Store(ctx, S3Options{
			Bucket:          cfg.S3Bucket,
			Prefix:          cfg.S3Prefix,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
		})
	case "cloudinary":
		return NewCloudinaryStore(cfg.CloudinaryURL, cfg.CloudinaryFolder)
	default:
		return nil, fmt.Errorf("unknown storage backend: %s", cfg.StorageBackend)
	}
}
