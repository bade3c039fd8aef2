package interfaces

import (
	"context"
	"time"
)

type StorageService interface {
	Put(ctx context.Context, data []byte, key, contentType string) (string, error)
	Presign(ctx context.Context, key string, ttl time.Duration) (string, error)
}
