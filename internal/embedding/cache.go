package embedding

import (
	"context"
	"errors"
	"time"
)

// ErrCacheMiss is returned by Cache.Get when the key is absent.
var ErrCacheMiss = errors.New("cache miss")

// Cache is the opportunistic key/value collaborator used by embedding
// lookups. Absence of a cache (or any cache failure) must never change
// correctness, only latency; callers treat every cache error as a miss.
type Cache interface {
	// Get returns the cached value for key, or ErrCacheMiss.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key. A zero ttl means no expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes key and reports whether it was present.
	Delete(ctx context.Context, key string) (bool, error)
}
