// Package repositorycache provides ProductRepository, a cache-aside product
// repository over a transactional store.
//
// # Overview
//
// The repository sits between callers and a store.Store. Reads check a
// cache.CacheService first and fall back to the store; writes go to the
// store and then drop the cache keys that could now be stale. The cache has
// no transactional relationship with the store: the store is the source of
// truth and a stale entry lives at most for its sliding expiration window.
//
// # Basic Usage
//
//	svc, _ := cache.NewCacheService(cache.DefaultConfig())
//	repo, _ := repositorycache.New(memstore.New(), svc,
//		repositorycache.WithLogger(logger),
//	)
//
//	p, _ := catalog.NewBuilder().WithName("Milk").WithCategory("Dairy").Build()
//	if err := repo.Add(ctx, p); err != nil {
//		return err
//	}
//	got, err := repo.GetByID(ctx, p.ID())
//
// # Read Path
//
// GetByID, GetByBarcode, GetByName, GetAll, Search, ExistsByID and
// ExistsByBarcode:
//
//  1. Build the key for the call (see Keys)
//  2. Return the cached value on a hit
//  3. On a miss, query the store and cache what it found using the
//     repository's entry options (five minute sliding window, unit size)
//  4. Return the value
//
// Products are cached as catalog.Snapshot values and every read returns
// fresh copies, so mutating a returned product never changes the cache.
// A failing cache call is returned as a CACHE_FAILURE error. A cancelled
// context degrades to an empty result (nil, an empty slice or false)
// instead of an error.
//
// # Write Path
//
// Add, Update and Remove, and their Range variants, reject nil input with
// ARGUMENT_NULL and run Product.ValidateInvariant before an insert or
// update. Store errors, including CONCURRENCY_CONFLICT and DUPLICATE_KEY,
// are returned unchanged. After a successful write the repository removes,
// for every product:
//
//   - AllProducts
//   - Product_Id_{id} and Exists_Id_{id}
//   - Products_Name_{name}
//   - Product_Barcode_{code} and Exists_Barcode_{code} when it has a barcode
//
// and, when the cache can remove by prefix, every Search_ and Products_Name_
// key. Removal is advisory: failures are logged at warn level and counted,
// never returned.
//
// # Transactional Batches
//
// UpdateBatchTransactional applies a set of updates in one store
// transaction and reports the outcome as a result.Result. Expected
// failures (cancellation, conflicts, invariant violations) roll back and
// become failure codes rather than errors; only bad input and a transaction
// that cannot be opened are returned as errors.
//
// # Key Grammar
//
// Keys are shared with other producers of the same cache and must match
// them exactly:
//
//	Product_Id_{id}
//	Product_Barcode_{code}
//	Products_Name_{name}
//	Exists_Id_{id}
//	Exists_Barcode_{code}
//	AllProducts
//	Search_{name}_{category}_{supplier}_{skip}_{take}_{orderBy}_{ascending}
//
// Absent search values render as empty segments and booleans as True or
// False.
//
// # See Also
//
// For cache configuration and key serialization details, see the cache package.
// For dependency injection setup, see the pkg/di package.
package repositorycache
