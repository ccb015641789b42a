package repositorycache

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/goliatone/go-catalog-cache/cache"
	"github.com/goliatone/go-catalog-cache/catalog"
	"github.com/goliatone/go-catalog-cache/store"
)

// readThrough runs the cache-aside read for one key. Cache failures are
// returned as CACHE_FAILURE errors. A cancelled context degrades to the
// zero value; other store errors are returned unchanged.
func readThrough[T any](ctx context.Context, r *ProductRepository, op, key string, fetch cache.FetchFn[T]) (T, error) {
	var zero T

	value, source, err := cache.GetOrFetch(ctx, r.cache, key, r.entryOptions, func(ctx context.Context) (T, bool, error) {
		if err := ctx.Err(); err != nil {
			return zero, false, err
		}
		return fetch(ctx)
	})
	if err != nil {
		if cerr := cacheFailure(err); cerr != nil {
			r.metrics.CacheError(op)
			r.logger.ErrorContext(ctx, "cache read failed", "operation", op, "key", key, "error", err)
			return zero, cerr
		}
		if store.IsCancellation(err) {
			r.logger.DebugContext(ctx, "read cancelled", "operation", op, "key", key)
			return zero, nil
		}
		return zero, err
	}

	hit := source == cache.SourceCache
	r.metrics.CacheLookup(op, hit)
	r.logger.DebugContext(ctx, "cache lookup", "operation", op, "key", key, "hit", hit)
	return value, nil
}

func (r *ProductRepository) readOne(ctx context.Context, op, key string, find func(context.Context) (*catalog.Product, error)) (*catalog.Product, error) {
	snap, err := readThrough(ctx, r, op, key, func(ctx context.Context) (catalog.Snapshot, bool, error) {
		p, err := find(ctx)
		if err != nil || p == nil {
			return catalog.Snapshot{}, false, err
		}
		return p.Snapshot(), true, nil
	})
	if err != nil || snap.ID == uuid.Nil {
		return nil, err
	}
	return catalog.Rehydrate(snap, r.clock), nil
}

func (r *ProductRepository) readMany(ctx context.Context, op, key string, find func(context.Context) ([]*catalog.Product, error)) ([]*catalog.Product, error) {
	snaps, err := readThrough(ctx, r, op, key, func(ctx context.Context) ([]catalog.Snapshot, bool, error) {
		products, err := find(ctx)
		if err != nil {
			return nil, false, err
		}
		return snapshots(products), true, nil
	})
	if err != nil {
		return nil, err
	}
	return r.rehydrate(snaps), nil
}

func (r *ProductRepository) readExists(ctx context.Context, op, key string, exists func(context.Context) (bool, error)) (bool, error) {
	return readThrough(ctx, r, op, key, func(ctx context.Context) (bool, bool, error) {
		ok, err := exists(ctx)
		return ok, err == nil, err
	})
}

// GetByID returns the product with id, or nil when there is none. Deleted
// and archived products are returned too.
func (r *ProductRepository) GetByID(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
	return r.readOne(ctx, OpGetByID, r.Keys().ProductID(id), func(ctx context.Context) (*catalog.Product, error) {
		return r.store.GetByID(ctx, id)
	})
}

// GetByBarcode returns the product carrying code, or nil when there is none.
func (r *ProductRepository) GetByBarcode(ctx context.Context, code string) (*catalog.Product, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, nil
	}
	return r.readOne(ctx, OpGetByBarcode, r.Keys().ProductBarcode(code), func(ctx context.Context) (*catalog.Product, error) {
		return r.store.GetByBarcode(ctx, code)
	})
}

// GetByName returns the active products whose name contains namePart,
// ignoring case. A blank namePart returns an empty slice.
func (r *ProductRepository) GetByName(ctx context.Context, namePart string) ([]*catalog.Product, error) {
	namePart = strings.TrimSpace(namePart)
	if namePart == "" {
		return []*catalog.Product{}, nil
	}
	return r.readMany(ctx, OpGetByName, r.Keys().ProductsName(namePart), func(ctx context.Context) ([]*catalog.Product, error) {
		return r.store.FindByName(ctx, namePart)
	})
}

// GetAll returns every active product ordered by name.
func (r *ProductRepository) GetAll(ctx context.Context) ([]*catalog.Product, error) {
	return r.readMany(ctx, OpGetAll, r.Keys().AllProducts(), r.store.List)
}

// Search returns one page of active products matching criteria. Invalid
// paging fails with OUT_OF_RANGE and an unknown order column with
// INVALID_ORDER_BY.
func (r *ProductRepository) Search(ctx context.Context, criteria SearchCriteria) ([]*catalog.Product, error) {
	if err := criteria.Validate(); err != nil {
		return nil, err
	}
	q, err := criteria.query()
	if err != nil {
		return nil, err
	}
	return r.readMany(ctx, OpSearch, r.Keys().Search(criteria), func(ctx context.Context) ([]*catalog.Product, error) {
		return r.store.Search(ctx, q)
	})
}

// ExistsByID reports whether a product with id is stored.
func (r *ProductRepository) ExistsByID(ctx context.Context, id uuid.UUID) (bool, error) {
	return r.readExists(ctx, OpExistsByID, r.Keys().ExistsID(id), func(ctx context.Context) (bool, error) {
		return r.store.ExistsByID(ctx, id)
	})
}

// ExistsByBarcode reports whether a product carrying code is stored.
func (r *ProductRepository) ExistsByBarcode(ctx context.Context, code string) (bool, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return false, nil
	}
	return r.readExists(ctx, OpExistsByBarcode, r.Keys().ExistsBarcode(code), func(ctx context.Context) (bool, error) {
		return r.store.ExistsByBarcode(ctx, code)
	})
}
