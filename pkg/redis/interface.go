package redis

import (
	"context"
	"time"
)

// ClientInterface defines the interface for Redis operations
type ClientInterface interface {
	SetWithExpiration(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	GetString(ctx context.Context, key string) (string, error)
	MGetStrings(ctx context.Context, keys ...string) ([]string, error)
	Delete(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, key string) (bool, error)
	Expire(ctx context.Context, key string, expiration time.Duration) error

	// Sliding-window operations for velocity tracking
	AddToWindow(ctx context.Context, key, member string, at time.Time) error
	TrimWindow(ctx context.Context, key string, cutoff time.Time) error
	CountWindow(ctx context.Context, key string) (int64, error)

	Close() error
}

// Ensure Client implements ClientInterface
var _ ClientInterface = (*Client)(nil)
