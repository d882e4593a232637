package storage

import (
	"context"
	"fmt"
	"net/http"
)

// Config selects and configures a storage backend.
type Config struct {
	Provider   string
	Cloudinary CloudinaryConfig
	S3         S3Config
}

// New creates the configured ObjectStorage.
func New(ctx context.Context, cfg Config, client *http.Client) (ObjectStorage, error) {
	switch cfg.Provider {
	case "cloudinary", "":
		return NewCloudinary(cfg.Cloudinary, client)
	case "s3":
		return NewS3Storage(ctx, cfg.S3)
	default:
		return nil, fmt.Errorf("unsupported storage provider: %q", cfg.Provider)
	}
}
