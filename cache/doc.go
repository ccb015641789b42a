// Package cache provides the cache capability used by the catalog repository
// together with key serialization and the cache-aside helpers built on it.
//
// # Overview
//
// The package exports two interfaces and their default implementations:
//
//   - CacheService: get, set with EntryOptions, and remove
//   - KeySerializer: builds deterministic keys from a prefix and arguments
//
// CacheService is an explicit dependency. Nothing in this package holds
// global cache state, so tests can pass a fake that fails chosen keys.
//
// # Basic Usage
//
//	svc, err := cache.NewCacheService(cache.DefaultConfig())
//	keys := cache.NewDefaultKeySerializer()
//
//	key := keys.SerializeKey("Product_Id", id)
//	snap, source, err := cache.GetOrFetch(ctx, svc, key, cache.DefaultEntryOptions(),
//		func(ctx context.Context) (catalog.Snapshot, bool, error) {
//			return store.GetByID(ctx, id)
//		})
//
// # Read And Write Policies
//
// The two sides of the cache treat failures differently:
//
//   - GetOrFetch returns cache errors to the caller wrapped in *OpError.
//   - Invalidate and InvalidatePrefix are advisory. They remove each key on
//     its own, log what they could not remove and never return an error,
//     even when the service panics.
//   - Peek reads an entry before a write. It goes through Peeker when the
//     service has it, so the entry keeps its idle window and the read is not
//     counted, and it turns a panic into an error.
//
// # Key Grammar
//
// The default serializer joins segments with "_". Absent values render as
// the empty string and booleans as True or False, so
//
//	keys.SerializeKey("Search", "milk", nil, nil, 0, 50, "", true)
//
// yields "Search_milk___0_50__True".
//
// # Expiration
//
// The default service is backed by sturdyc. The configured TTL bounds the
// lifetime of every entry. EntryOptions.SlidingExpiration additionally drops
// an entry that has not been read within the window.
package cache
