package services

import (
	"context"
	"time"
)

// CacheService is the slice of redis the services use: counters for
// rate limiting. Nil-safe; a nil cache disables the limits.
type CacheService interface {
	Increment(ctx context.Context, key string, expiration time.Duration) (int64, error)
	Delete(ctx context.Context, keys ...string) error
}
