package budgetguard

import (
	"context"
	"time"
)

// LocalStore is the in-process cache tier. It sits on the request path,
// so every method is expected to be near-instant and must be safe for
// concurrent use. Increment must be atomic: concurrent increments to the
// same key may never lose updates.
//
// TTLs passed to Set and Increment rotate the spend window: a key read
// after its TTL elapsed behaves as if it were absent.
type LocalStore interface {
	// Get returns the value for key and whether it exists.
	Get(key string) (float64, bool)

	// BatchGet returns the values for all keys that exist.
	BatchGet(keys []string) map[string]float64

	// Set overwrites the value for key. A ttl <= 0 means no expiry.
	Set(key string, value float64, ttl time.Duration)

	// Increment atomically adds delta to key and returns the new value.
	// A missing or expired key starts a fresh window at delta.
	Increment(key string, delta float64, ttl time.Duration) float64
}

// SharedStore is the optional cross-instance cache tier. Absence is a
// valid, degraded configuration; with no shared store the local tier
// operates alone and no reconciliation runs.
//
// Implementations live in the store/redis and store/postgres subpackages.
type SharedStore interface {
	// BatchGet returns the values for all keys that exist.
	BatchGet(ctx context.Context, keys []string) (map[string]float64, error)

	// Increment atomically adds delta to key and returns the new value.
	// The ttl is applied on the first write of a key and left untouched
	// afterwards, so the window expires relative to its first spend.
	Increment(ctx context.Context, key string, delta float64, ttl time.Duration) (float64, error)
}
