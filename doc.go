// Package pluginplay implements the memoization core of a modular
// computational framework: content-addressed caches that remember the results
// a module produced for a given set of inputs.
//
// Components:
//   - anyvalue.Value: one value of any type, held by value or by reference.
//   - hasher: stable digests over sequences of values; the digest of an input
//     set is its cache key.
//   - Store: hash-string keyed, reference-counted value store, optionally
//     written through to a Provider (badger, redis, bigcache, ristretto).
//   - ModuleCache: InputSet -> ResultSet memoization for one module.
//   - UserCache: free-form scratch cache for one module.
//   - ModuleManagerCache: hands out exactly one ModuleCache and one UserCache
//     per module id and decides where they persist.
//
// Provider keys:
//
//	entry:<ns>:<key>  - one persisted value, framed with its namespace generation
//	gen:<ns>:         - namespace generation (ProviderGenStore only)
//
// Namespaces are "module:<id>" and "user:<id>". Clearing a namespace bumps its
// generation; older entries are dropped the next time they are read.
//
// Stores are not safe for concurrent use. ModuleManagerCache is.
package pluginplay
