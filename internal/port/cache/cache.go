package cache

import (
	"context"
	"time"
)

// Cache stores serialised values with a TTL. Get returns an error wrapping
// ErrNotFound-style misses; callers treat any error as a miss.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Invalidate(ctx context.Context, key string) error
}
