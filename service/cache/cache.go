// Package cache defines the in-process cache port used for immutable lookups.
package cache

import (
	"context"
	"time"
)

// Cache stores opaque values by key. A zero ttl means no expiry.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
