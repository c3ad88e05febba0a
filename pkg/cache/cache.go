package cache

import (
	"context"
	"time"
)

// Valkey is the caching surface the engine needs: plain byte storage for the
// API limiter plus atomic counters for the notification rate-limit windows.
// Implementations: single-node Valkey/Redis and an in-memory fallback.
type Valkey interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error

	// Increment atomically bumps a counter, applying ttl when the key is
	// created, and returns the post-increment value. Rate-limit windows
	// are built on this; Decrement refunds a reservation that lost the
	// race against the window limit.
	Increment(ctx context.Context, key string, ttl time.Duration) (int64, error)
	Decrement(ctx context.Context, key string) (int64, error)
}
