// Package ports holds the infrastructure contracts shared by use cases and
// the worker; redis backs both in production.
package ports

import (
	"context"
	"time"
)

// LockPort is a best-effort distributed mutex with a TTL. Acquire reports
// false without error when another holder owns the key.
type LockPort interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
	Ping(ctx context.Context) error
	Close() error
}

// CachePort stores JSON-encoded values. Get reports a miss as (false, nil).
type CachePort interface {
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Close() error
}
