// Package provider defines the byte store used to persist cache entries.
//
// Implementations MUST be byte-for-byte transparent: Get must return exactly the
// same []byte that was previously passed to Set for a key (no prepended/appended
// metadata, no re-encoding, no mutation). If a store performs internal transforms
// (e.g., compression), they MUST be fully reversed so that the bytes returned by
// Get are identical to the bytes provided to Set.
//
// Important: the keyspaces "entry:" and "gen:" are owned by pluginplay; the
// namespace part of those keys is escaped so it never contains ':'. External
// code MUST NOT write values under these prefixes. Foreign writes are treated
// as corruption by strict wire-format validation and deleted.
package provider

import (
	"context"
	"time"
)

// Provider is a minimal byte store with TTLs.
// Must be safe for concurrent use and must be byte-for-byte
// transparent: Get must return exactly the []byte previously passed to Set for
// the same key. Implementations must not prepend/append metadata, transcode, or
// otherwise mutate values.
type Provider interface {
	// Get returns (value, true, nil) on hit; (nil, false, nil) on miss.
	// If an IO/remote error happens, return (nil, false, err).
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value with the given TTL (0 = no expiry). May ignore cost if
	// unsupported. Returns ok=false when the store rejected the write under
	// pressure.
	Set(ctx context.Context, key string, value []byte, cost int64, ttl time.Duration) (ok bool, err error)

	// Del removes a key (best-effort). Deleting a missing key is not an error.
	Del(ctx context.Context, key string) error

	// Close releases resources.
	Close(ctx context.Context) error
}

// Walker is implemented by providers that can enumerate their keys. Store.Load
// and the ppcache tool use it; lookups never scan.
type Walker interface {
	// Walk calls fn for every key starting with prefix until fn returns false
	// or an error. Order is provider specific.
	Walk(ctx context.Context, prefix string, fn func(key string, value []byte) (bool, error)) error
}
