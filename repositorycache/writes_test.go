package repositorycache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-catalog-cache/catalog"
	"github.com/goliatone/go-catalog-cache/pkg/testsupport"
	"github.com/goliatone/go-catalog-cache/store"
)

// warm reads p through every point and list operation so its keys are cached.
func warm(t *testing.T, f *fixture, p *catalog.Product) {
	t.Helper()
	ctx := context.Background()

	_, err := f.repo.GetByID(ctx, p.ID())
	require.NoError(t, err)
	_, err = f.repo.GetByName(ctx, p.Name())
	require.NoError(t, err)
	_, err = f.repo.GetAll(ctx)
	require.NoError(t, err)
	_, err = f.repo.ExistsByID(ctx, p.ID())
	require.NoError(t, err)
	_, err = f.repo.Search(ctx, DefaultSearchCriteria())
	require.NoError(t, err)
	if p.HasBarcode() {
		_, err = f.repo.GetByBarcode(ctx, p.Barcode().String())
		require.NoError(t, err)
		_, err = f.repo.ExistsByBarcode(ctx, p.Barcode().String())
		require.NoError(t, err)
	}
}

func TestWrites_RejectNilInput(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name string
		call func() error
	}{
		{"add", func() error { return f.repo.Add(ctx, nil) }},
		{"add range without products", func() error { return f.repo.AddRange(ctx) }},
		{"update", func() error { return f.repo.Update(ctx, nil) }},
		{"update range with nil item", func() error {
			return f.repo.UpdateRange(ctx, testsupport.NewProduct(t, "Jam"), nil)
		}},
		{"remove", func() error { return f.repo.Remove(ctx, nil) }},
		{"remove range without products", func() error { return f.repo.RemoveRange(ctx) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			require.Error(t, err)
			assert.True(t, catalog.IsKind(err, catalog.KindArgumentNull), "got %v", err)
		})
	}

	assert.Zero(t, f.store.Calls("Insert"))
	assert.Zero(t, f.store.Calls("Update"))
	assert.Zero(t, f.store.Calls("Delete"))
}

func TestWrites_EmptyRangeIsNoop(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.repo.AddRange(context.Background(), []*catalog.Product{}...))
	assert.Zero(t, f.store.Calls("Insert"))
	assert.Empty(t, f.cache.Calls())
}

func TestUpdate_RejectsArchivedProductThatWasNotDeleted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p := testsupport.NewProduct(t, "Honey")
	require.NoError(t, f.repo.Add(ctx, p))

	p.MarkAsArchived()
	err := f.repo.Update(ctx, p)
	require.Error(t, err)
	assert.True(t, catalog.IsKind(err, catalog.KindInvalidStateTransition))
	assert.Zero(t, f.store.Calls("Update"))

	stored, err := f.repo.GetByID(ctx, p.ID())
	require.NoError(t, err)
	assert.False(t, stored.IsArchived())
}

func TestUpdate_ArchiveAfterDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p := testsupport.NewProduct(t, "Honey")
	require.NoError(t, f.repo.Add(ctx, p))

	p.MarkAsDeleted()
	p.MarkAsArchived()
	require.NoError(t, f.repo.Update(ctx, p))

	stored, err := f.repo.GetByID(ctx, p.ID())
	require.NoError(t, err)
	assert.True(t, stored.IsDeleted())
	assert.True(t, stored.IsArchived())
}

func TestUpdate_InvalidatesEveryKeyOfTheProduct(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p := testsupport.NewProduct(t, "Whole Milk", func(b *catalog.Builder) {
		b.WithBarcode("4006381333931")
	})
	require.NoError(t, f.repo.Add(ctx, p))
	warm(t, f, p)

	keys := f.repo.Keys().ForProduct(p)
	require.Len(t, keys, 6)
	for _, key := range keys {
		require.True(t, f.cache.Has(key), key)
	}
	require.True(t, f.cache.Has("Search____0_50__True"))

	require.NoError(t, p.SetQuantity(3))
	require.NoError(t, f.repo.Update(ctx, p))

	for _, key := range keys {
		assert.False(t, f.cache.Has(key), key)
	}
	assert.False(t, f.cache.Has("Search____0_50__True"))
}

func TestUpdate_IsNeverServedThePreUpdateSnapshot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p := testsupport.NewProduct(t, "Cream")
	require.NoError(t, f.repo.Add(ctx, p))

	cached, err := f.repo.GetByID(ctx, p.ID())
	require.NoError(t, err)
	require.Equal(t, 25, cached.Quantity())

	updated := cached.Clone()
	require.NoError(t, updated.SetQuantity(99))
	require.NoError(t, f.repo.Update(ctx, updated))

	// Change the row behind the repository's back.
	underneath := updated.Clone()
	require.NoError(t, underneath.SetQuantity(7))
	require.NoError(t, f.mem.Update(ctx, underneath))

	got, err := f.repo.GetByID(ctx, p.ID())
	require.NoError(t, err)
	assert.NotEqual(t, 25, got.Quantity())
	assert.NotEqual(t, catalog.VersionToken(1), got.Version())
	assert.Equal(t, 7, got.Quantity())
}

func TestUpdate_ChangedBarcodeDropsOldBarcodeKeys(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p := testsupport.NewProduct(t, "Oat Milk", func(b *catalog.Builder) {
		b.WithBarcode("5901234123457")
	})
	require.NoError(t, f.repo.Add(ctx, p))
	warm(t, f, p)

	oldKeys := []string{
		f.repo.Keys().ProductBarcode("5901234123457"),
		f.repo.Keys().ExistsBarcode("5901234123457"),
		f.repo.Keys().ProductsName("Oat Milk"),
	}

	require.NoError(t, p.SetBarcode("4006381333931"))
	require.NoError(t, p.SetName("Oat Drink"))
	require.NoError(t, f.repo.Update(ctx, p))

	for _, key := range oldKeys {
		assert.False(t, f.cache.Has(key), key)
	}

	got, err := f.repo.GetByBarcode(ctx, "5901234123457")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestUpdate_StaleVersionConflicts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p := testsupport.NewProduct(t, "Eggs")
	require.NoError(t, f.repo.Add(ctx, p))
	stale := p.Clone()

	require.NoError(t, p.SetQuantity(12))
	require.NoError(t, f.repo.Update(ctx, p))

	warm(t, f, p)
	f.cache.ClearCalls()

	require.NoError(t, stale.SetQuantity(6))
	err := f.repo.Update(ctx, stale)
	require.Error(t, err)
	assert.True(t, catalog.IsKind(err, catalog.KindConcurrencyConflict))
	assert.ErrorIs(t, err, store.ErrConcurrencyConflict)

	for _, call := range f.cache.Calls() {
		assert.NotContains(t, call, "Remove", "a failed write must not invalidate")
	}
}

func TestAdd_DuplicateKey(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p := testsupport.NewProduct(t, "Flour")
	require.NoError(t, f.repo.Add(ctx, p))

	err := f.repo.Add(ctx, p.Clone())
	assert.True(t, catalog.IsKind(err, catalog.KindDuplicateKey))
}

func TestRemove(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p := testsupport.NewProduct(t, "Sugar", func(b *catalog.Builder) {
		b.WithBarcode("4012345678901")
	})
	require.NoError(t, f.repo.Add(ctx, p))
	warm(t, f, p)

	require.NoError(t, f.repo.Remove(ctx, p))

	got, err := f.repo.GetByID(ctx, p.ID())
	require.NoError(t, err)
	assert.Nil(t, got)

	exists, err := f.repo.ExistsByBarcode(ctx, "4012345678901")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestRangeWritesAreAtomic(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a := testsupport.NewProduct(t, "Salt")
	b := testsupport.NewProduct(t, "Pepper")
	require.NoError(t, f.repo.AddRange(ctx, a, b))
	assert.Equal(t, catalog.VersionToken(1), b.Version())

	stale := b.Clone()
	require.NoError(t, f.repo.Update(ctx, b))

	require.NoError(t, a.SetQuantity(1))
	err := f.repo.UpdateRange(ctx, a, stale)
	assert.True(t, catalog.IsKind(err, catalog.KindConcurrencyConflict))

	got, err := f.repo.GetByID(ctx, a.ID())
	require.NoError(t, err)
	assert.Equal(t, 25, got.Quantity())

	require.NoError(t, f.repo.RemoveRange(ctx, a, b))
	all, err := f.repo.GetAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestWrites_InvalidationFailuresAreAdvisory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p := testsupport.NewProduct(t, "Rice")
	require.NoError(t, f.repo.Add(ctx, p))
	warm(t, f, p)

	keys := f.repo.Keys()
	f.cache.FailRemove(keys.ProductID(p.ID()), nil).
		PanicOnRemove(keys.AllProducts()).
		FailRemoveByPrefix(nil)

	require.NoError(t, p.SetQuantity(2))
	require.NoError(t, f.repo.Update(ctx, p))

	assert.Equal(t, 2, f.metrics.failures())
	assert.False(t, f.cache.Has(keys.ExistsID(p.ID())), "other keys are still removed")
	assert.Contains(t, f.logs.String(), "cache invalidation failed")
	assert.Contains(t, f.logs.String(), "cache prefix invalidation failed")

	stored, err := f.mem.GetByID(ctx, p.ID())
	require.NoError(t, err)
	assert.Equal(t, 2, stored.Quantity())
}

func TestWrites_CacheWithoutPrefixRemoval(t *testing.T) {
	fc := testsupport.NewFaultyCache()
	f := newFixture(t)
	repo, err := New(f.store, fc.WithoutPrefixRemoval())
	require.NoError(t, err)
	ctx := context.Background()

	p := testsupport.NewProduct(t, "Tea")
	require.NoError(t, repo.Add(ctx, p))
	_, err = repo.GetByID(ctx, p.ID())
	require.NoError(t, err)

	require.NoError(t, p.SetQuantity(4))
	require.NoError(t, repo.Update(ctx, p))
	assert.False(t, fc.Has(repo.Keys().ProductID(p.ID())))
	assert.Zero(t, fc.CallCount("RemoveByPrefix:Search_"))
}

func TestWrites_PanickingPeekDoesNotBlockWrite(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p := testsupport.NewProduct(t, "Whole Milk")
	f.cache.PanicOnGet(f.repo.Keys().ProductID(p.ID()))

	var err error
	require.NotPanics(t, func() { err = f.repo.Add(ctx, p) })
	require.NoError(t, err)

	stored, err := f.mem.GetByID(ctx, p.ID())
	require.NoError(t, err)
	require.NotNil(t, stored, "row should be committed")
	assert.Equal(t, catalog.VersionToken(1), p.Version())
	assert.Contains(t, f.logs.String(), "cache peek failed")
}

func TestWrites_PeekErrorIsLogged(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p := seed(t, f, "Butter")[0]
	warm(t, f, p)
	f.cache.FailGet(f.repo.Keys().ProductID(p.ID()), nil)

	require.NoError(t, p.SetQuantity(4))
	require.NoError(t, f.repo.Update(ctx, p))

	stored, err := f.mem.GetByID(ctx, p.ID())
	require.NoError(t, err)
	assert.Equal(t, 4, stored.Quantity())
	assert.False(t, f.cache.Has(f.repo.Keys().ProductID(p.ID())))
	assert.Contains(t, f.logs.String(), "cache peek failed")
}

func TestWrites_PanickingPrefixRemovalDoesNotFailWrite(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p := seed(t, f, "Cheddar")[0]
	warm(t, f, p)
	f.cache.PanicOnRemoveByPrefix()

	require.NoError(t, p.SetQuantity(7))
	var err error
	require.NotPanics(t, func() { err = f.repo.Update(ctx, p) })
	require.NoError(t, err)

	stored, err := f.mem.GetByID(ctx, p.ID())
	require.NoError(t, err)
	assert.Equal(t, 7, stored.Quantity())
	assert.Equal(t, catalog.VersionToken(2), stored.Version())
	assert.False(t, f.cache.Has(f.repo.Keys().ProductID(p.ID())))
	assert.Contains(t, f.logs.String(), "cache prefix invalidation failed")
}
