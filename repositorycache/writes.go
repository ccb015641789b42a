package repositorycache

import (
	"context"
	"fmt"

	"github.com/goliatone/go-catalog-cache/cache"
	"github.com/goliatone/go-catalog-cache/catalog"
)

// Families of keys whose content depends on more than one product. They are
// dropped by prefix after every write when the cache supports it.
var derivedKeyPrefixes = []string{
	PrefixSearch + cache.KeySeparator,
	PrefixProductsName + cache.KeySeparator,
}

// Add inserts product. On success the product carries its new version token.
func (r *ProductRepository) Add(ctx context.Context, product *catalog.Product) error {
	return r.AddRange(ctx, product)
}

// AddRange inserts products as one atomic group.
func (r *ProductRepository) AddRange(ctx context.Context, products ...*catalog.Product) error {
	return r.write(ctx, products, true, r.store.Insert)
}

// Update persists product. It fails with CONCURRENCY_CONFLICT when the
// stored version differs from the product's token.
func (r *ProductRepository) Update(ctx context.Context, product *catalog.Product) error {
	return r.UpdateRange(ctx, product)
}

// UpdateRange persists products as one atomic group.
func (r *ProductRepository) UpdateRange(ctx context.Context, products ...*catalog.Product) error {
	return r.write(ctx, products, true, r.store.Update)
}

// Remove deletes product from the store. Soft deletion is an Update of a
// product marked with MarkAsDeleted.
func (r *ProductRepository) Remove(ctx context.Context, product *catalog.Product) error {
	return r.RemoveRange(ctx, product)
}

// RemoveRange deletes products as one atomic group.
func (r *ProductRepository) RemoveRange(ctx context.Context, products ...*catalog.Product) error {
	return r.write(ctx, products, false, r.store.Delete)
}

// write runs one store write and then invalidates the affected keys. Input
// and invariant failures and store errors are returned before the cache is
// touched.
func (r *ProductRepository) write(ctx context.Context, products []*catalog.Product, validate bool, apply func(context.Context, ...*catalog.Product) error) error {
	check := checkNotNil
	if validate {
		check = checkWritable
	}
	if err := check(products); err != nil {
		return err
	}
	if len(products) == 0 {
		return nil
	}

	stale := r.staleKeys(ctx, products)
	if err := apply(ctx, products...); err != nil {
		return err
	}
	r.invalidate(ctx, stale)
	return nil
}

func checkNotNil(products []*catalog.Product) error {
	if products == nil {
		return catalog.NewArgumentNullError("products")
	}
	for i, p := range products {
		if p == nil {
			return catalog.NewArgumentNullError(fmt.Sprintf("products[%d]", i))
		}
	}
	return nil
}

// checkWritable rejects nil input and products breaking an invariant, so an
// archived product that was never deleted can not be persisted.
func checkWritable(products []*catalog.Product) error {
	if err := checkNotNil(products); err != nil {
		return err
	}
	for _, p := range products {
		if err := p.ValidateInvariant(); err != nil {
			return err
		}
	}
	return nil
}

// staleKeys collects the keys describing products in their new state plus
// the barcode and name keys of the state currently cached under their id,
// since a changed barcode leaves the old barcode keys pointing at the
// product. The cached state is peeked, so a failing cache only costs the
// old keys.
func (r *ProductRepository) staleKeys(ctx context.Context, products []*catalog.Product) []string {
	keys := r.Keys()
	var out []string
	for _, p := range products {
		out = append(out, keys.ForProduct(p)...)

		key := keys.ProductID(p.ID())
		prev, ok, err := cache.Peek[catalog.Snapshot](ctx, r.cache, key)
		if err != nil {
			r.logger.WarnContext(ctx, "cache peek failed", "key", key, "error", err)
			continue
		}
		if !ok {
			continue
		}
		if prev.Barcode != "" && prev.Barcode != p.Barcode().String() {
			out = append(out, keys.ProductBarcode(prev.Barcode), keys.ExistsBarcode(prev.Barcode))
		}
		if prev.Name != p.Name() {
			out = append(out, keys.ProductsName(prev.Name))
		}
	}
	return out
}

// invalidate removes keys on a best-effort basis. Failures are logged and
// counted, never returned.
func (r *ProductRepository) invalidate(ctx context.Context, keys []string) cache.Invalidation {
	res := cache.Invalidate(ctx, r.cache, r.logger, keys...)
	for _, prefix := range derivedKeyPrefixes {
		cache.InvalidatePrefix(ctx, r.cache, r.logger, prefix)
	}
	if n := len(res.Failed); n > 0 {
		r.metrics.InvalidationFailed(n)
	}
	return res
}
