// Package genstore keeps per-namespace generation counters.
//
// Every persisted cache entry is stamped with the generation of its namespace
// at write time. Clearing a namespace bumps the counter, which turns every
// older entry stale at once; stale entries are deleted lazily the next time
// they are read.
package genstore

import "context"

// GenStore abstracts where generations live.
// Use LocalGenStore for in-process gens, ProviderGenStore to keep them next to
// the entries (the default for persistent stores), or RedisGenStore for gens
// shared by many processes.
type GenStore interface {
	// Snapshot returns the current generation; missing => 0.
	Snapshot(ctx context.Context, namespace string) (uint64, error)
	// SnapshotMany returns gens for many namespaces; missing => 0.
	SnapshotMany(ctx context.Context, namespaces []string) (map[string]uint64, error)
	// Bump increments and returns the new generation.
	Bump(ctx context.Context, namespace string) (uint64, error)
	// Close releases resources (no-op ok).
	Close(context.Context) error
}
