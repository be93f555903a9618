// Package cache provides the cross-request result cache consulted before
// fan-out and populated after. The engine treats a hit as equivalent to a
// fresh successful fetch.
package cache

import (
	"context"
	"time"
)

// Cache is an opaque namespaced key/value store with TTL.
type Cache interface {
	Get(ctx context.Context, namespace, key string) ([]byte, bool, error)
	Set(ctx context.Context, namespace, key string, value []byte, ttl time.Duration) error
	DeleteExpired(ctx context.Context) (int64, error)
	Close() error
}

// Noop is a Cache that stores nothing. Used when caching is disabled.
type Noop struct{}

func (Noop) Get(context.Context, string, string) ([]byte, bool, error) { return nil, false, nil }

func (Noop) Set(context.Context, string, string, []byte, time.Duration) error { return nil }

func (Noop) DeleteExpired(context.Context) (int64, error) { return 0, nil }

func (Noop) Close() error { return nil }
