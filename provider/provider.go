// Package provider defines the byte-store abstraction behind the transient
// response cache.
//
// Implementations MUST be byte-for-byte transparent: Get must return exactly
// the same []byte previously passed to Set for a key - no prepended metadata,
// no re-encoding, no mutation. Internal transforms (compression, sharding)
// must be fully reversed before bytes are returned.
//
// The "resp:" keyspace is owned by the transient response cache; foreign
// writes under it may fail record validation and be deleted as corrupt.
package provider

import (
	"context"
	"time"
)

// Provider is a minimal byte store with TTLs. Must be safe for concurrent
// use.
type Provider interface {
	// Get returns (value, true, nil) on hit; (nil, false, nil) on miss.
	// IO/remote errors come back as (nil, false, err).
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value with the given TTL. Cost may be ignored by stores
	// that do not track it. ok=false means the store rejected the write
	// under pressure; that is backpressure, not an error.
	Set(ctx context.Context, key string, value []byte, cost int64, ttl time.Duration) (ok bool, err error)

	// Del removes a key (best-effort).
	Del(ctx context.Context, key string) error

	// Close releases resources.
	Close(ctx context.Context) error
}
