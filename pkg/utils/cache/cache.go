// Package cache defines the read cache used in front of slow session sources.
package cache

import (
	"context"
	"errors"
)

// based on github.com/kittpat1413/go-common/framework/cache/cache.go

// ErrCacheMiss is returned by Get if the key is unknown and cannot be loaded
var ErrCacheMiss = errors.New("cache miss")

// Cache holds loaded values by key.
// The Postgres session source keeps its loaded inputs keyed by session
// selection and invalidates the selection whenever it stores a new capture.
// Returned values are shared between callers and must not be modified.
type Cache[K comparable, V any] interface {
	// Get returns the cached value or loads it. Load errors are not cached.
	Get(ctx context.Context, key K) (*V, error)
	// Invalidate drops the entry so the next Get loads it again.
	Invalidate(ctx context.Context, key K)
}
