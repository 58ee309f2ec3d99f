// Package cache is the fast key-value layer in front of the durable store. It holds derived
// integers (token versions, active-session counts) and is never the source of truth.
package cache

import (
	"context"
	"time"
)

// DefaultTTL bounds how long a populated entry may live without a write-through.
const DefaultTTL = 10 * time.Minute

// Store is an integer key-value cache.
type Store interface {
	// Get returns the cached value and true, or false on a miss.
	Get(ctx context.Context, key string) (int64, bool, error)
	// Raise sets key to v unless the cached value is already >= v. Used for monotonic counters.
	Raise(ctx context.Context, key string, v int64) error
	// Populate sets key to v only if the key is absent. Used after a read miss.
	Populate(ctx context.Context, key string, v int64) error
	// Delete drops the key.
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
}

// TokenVersionKey is the cache key for a user's current token version.
func TokenVersionKey(userID string) string { return "auth:tv:" + userID }

// SessionCountKey is the cache key for a user's active-session count.
func SessionCountKey(userID string) string { return "auth:sc:" + userID }
