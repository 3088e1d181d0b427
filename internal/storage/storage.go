package storage

import (
	"context"
	"fmt"
	"io"

	"livechat-backend/internal/env"
)

// Storage persists one uploaded attachment and returns its public URL.
// The implementation is chosen once at startup from configuration; no
// runtime plugin lookup.
type Storage interface {
	Upload(ctx context.Context, name string, contentType string, r io.Reader) (string, error)
}

func FromEnv() (Storage, error) {
	provider := env.GetOrDefault(env.StorageProvider, "local")
	switch provider {
	case "local":
		return NewLocal(
			env.GetOrDefault(env.StorageLocalDir, "./uploads"),
			env.MustGet(env.StoragePublicURL),
		), nil
	case "s3":
		return NewS3(env.MustGet(env.S3Bucket), env.MustGet(env.StoragePublicURL))
	default:
		return nil, fmt.Errorf("storage: unknown provider %q", provider)
	}
}
