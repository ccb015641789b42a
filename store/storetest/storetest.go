// Package storetest holds the behaviour every store.Store implementation
// must show. Implementations call Run from their own tests.
package storetest

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-catalog-cache/catalog"
	"github.com/goliatone/go-catalog-cache/store"
)

// Factory returns an empty store. It is called once per subtest.
type Factory func(t *testing.T) store.Store

var seq atomic.Int64

// Product builds a valid product with a unique display code. Optional
// mutators adjust the builder before Build.
func Product(t *testing.T, name string, mutate ...func(*catalog.Builder)) *catalog.Product {
	t.Helper()

	n := seq.Add(1)
	b := catalog.NewBuilder().
		WithDisplayCode(fmt.Sprintf("%08d", n)).
		WithName(name).
		WithCategory("Dairy").
		WithWholesalePrice(decimal.RequireFromString("1.50")).
		WithSalePrice(decimal.RequireFromString("2.25")).
		WithQuantity(10).
		WithArrivalDate(time.Now().UTC().Add(-time.Hour).Truncate(time.Second))
	for _, m := range mutate {
		m(b)
	}

	p, err := b.Build()
	require.NoError(t, err)
	return p
}

// Run executes the conformance suite.
func Run(t *testing.T, newStore Factory) {
	tests := []struct {
		name string
		fn   func(t *testing.T, s store.Store)
	}{
		{"InsertAndGet", testInsertAndGet},
		{"DuplicateKeys", testDuplicateKeys},
		{"UpdateBumpsVersion", testUpdateBumpsVersion},
		{"StaleUpdateConflicts", testStaleUpdateConflicts},
		{"MissingRowConflicts", testMissingRowConflicts},
		{"Delete", testDelete},
		{"GroupWritesAreAtomic", testGroupWritesAreAtomic},
		{"TxCommit", testTxCommit},
		{"TxRollback", testTxRollback},
		{"TxAtomicity", testTxAtomicity},
		{"TxDone", testTxDone},
		{"ListExcludesDeleted", testListExcludesDeleted},
		{"FindByName", testFindByName},
		{"Search", testSearch},
		{"Exists", testExists},
		{"Cancellation", testCancellation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newStore(t)
			t.Cleanup(func() { _ = s.Close() })
			tt.fn(t, s)
		})
	}
}

func testInsertAndGet(t *testing.T, s store.Store) {
	ctx := context.Background()
	supplier := uuid.New()
	expiry := time.Now().UTC().AddDate(1, 0, 0).Truncate(time.Second)

	p := Product(t, "Whole Milk", func(b *catalog.Builder) {
		b.WithBarcode("4006381333931").
			WithUnit(catalog.UnitLiter).
			WithSupplier(supplier).
			WithExpirationDate(expiry)
	})
	require.NoError(t, s.Insert(ctx, p))
	assert.NotZero(t, p.Version())

	got, err := s.GetByID(ctx, p.ID())
	require.NoError(t, err)
	require.NotNil(t, got)
	AssertSameProduct(t, p, got)

	byCode, err := s.GetByBarcode(ctx, "4006381333931")
	require.NoError(t, err)
	require.NotNil(t, byCode)
	assert.Equal(t, p.ID(), byCode.ID())

	missing, err := s.GetByID(ctx, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, missing)

	noCode, err := s.GetByBarcode(ctx, "5901234123457")
	require.NoError(t, err)
	assert.Nil(t, noCode)
}

func testDuplicateKeys(t *testing.T, s store.Store) {
	ctx := context.Background()

	p := Product(t, "Butter", func(b *catalog.Builder) { b.WithBarcode("5901234123457") })
	require.NoError(t, s.Insert(ctx, p))

	sameID := Product(t, "Butter", func(b *catalog.Builder) { b.WithID(p.ID()) })
	assert.ErrorIs(t, s.Insert(ctx, sameID), store.ErrDuplicateKey)

	sameCode := Product(t, "Butter", func(b *catalog.Builder) { b.WithDisplayCode(p.DisplayCode()) })
	assert.ErrorIs(t, s.Insert(ctx, sameCode), store.ErrDuplicateKey)

	sameBarcode := Product(t, "Butter", func(b *catalog.Builder) { b.WithBarcode("5901234123457") })
	err := s.Insert(ctx, sameBarcode)
	assert.ErrorIs(t, err, store.ErrDuplicateKey)
	assert.Equal(t, catalog.KindDuplicateKey, catalog.KindOf(err))
}

func testUpdateBumpsVersion(t *testing.T, s store.Store) {
	ctx := context.Background()

	p := Product(t, "Cheese")
	require.NoError(t, s.Insert(ctx, p))
	before := p.Version()

	require.NoError(t, p.SetName("Aged Cheese"))
	require.NoError(t, s.Update(ctx, p))
	assert.NotEqual(t, before, p.Version())

	got, err := s.GetByID(ctx, p.ID())
	require.NoError(t, err)
	assert.Equal(t, "Aged Cheese", got.Name())
	assert.Equal(t, p.Version(), got.Version())
}

func testStaleUpdateConflicts(t *testing.T, s store.Store) {
	ctx := context.Background()

	p := Product(t, "Yogurt")
	require.NoError(t, s.Insert(ctx, p))

	first, err := s.GetByID(ctx, p.ID())
	require.NoError(t, err)
	second, err := s.GetByID(ctx, p.ID())
	require.NoError(t, err)

	require.NoError(t, first.SetQuantity(1))
	require.NoError(t, s.Update(ctx, first))

	require.NoError(t, second.SetQuantity(2))
	staleVersion := second.Version()
	err = s.Update(ctx, second)
	assert.ErrorIs(t, err, store.ErrConcurrencyConflict)
	assert.Equal(t, catalog.KindConcurrencyConflict, catalog.KindOf(err))
	assert.Equal(t, staleVersion, second.Version())

	got, err := s.GetByID(ctx, p.ID())
	require.NoError(t, err)
	assert.Equal(t, 1, got.Quantity())
}

func testMissingRowConflicts(t *testing.T, s store.Store) {
	ctx := context.Background()

	ghost := Product(t, "Ghost")
	assert.ErrorIs(t, s.Update(ctx, ghost), store.ErrConcurrencyConflict)
	assert.ErrorIs(t, s.Delete(ctx, ghost), store.ErrConcurrencyConflict)
}

func testDelete(t *testing.T, s store.Store) {
	ctx := context.Background()

	p := Product(t, "Cream")
	require.NoError(t, s.Insert(ctx, p))

	stale := catalog.Rehydrate(p.Snapshot(), nil)
	stale.SetVersion(p.Version() + 10)
	assert.ErrorIs(t, s.Delete(ctx, stale), store.ErrConcurrencyConflict)

	require.NoError(t, s.Delete(ctx, p))
	got, err := s.GetByID(ctx, p.ID())
	require.NoError(t, err)
	assert.Nil(t, got)
}

func testGroupWritesAreAtomic(t *testing.T, s store.Store) {
	ctx := context.Background()

	a := Product(t, "Apple")
	b := Product(t, "Banana")
	require.NoError(t, s.Insert(ctx, a, b))

	versionA := a.Version()
	require.NoError(t, a.SetQuantity(3))
	b.SetVersion(b.Version() + 5)

	assert.ErrorIs(t, s.Update(ctx, a, b), store.ErrConcurrencyConflict)
	assert.Equal(t, versionA, a.Version())

	got, err := s.GetByID(ctx, a.ID())
	require.NoError(t, err)
	assert.Equal(t, 10, got.Quantity())
}

func testTxCommit(t *testing.T, s store.Store) {
	ctx := context.Background()

	p := Product(t, "Bread")
	require.NoError(t, s.Insert(ctx, p))
	before := p.Version()

	tx, err := s.Begin(ctx)
	require.NoError(t, err)

	require.NoError(t, p.SetQuantity(42))
	require.NoError(t, tx.Update(ctx, p))
	assert.Equal(t, before, p.Version(), "version must not move before commit")

	require.NoError(t, tx.Commit(ctx))
	assert.NotEqual(t, before, p.Version())

	got, err := s.GetByID(ctx, p.ID())
	require.NoError(t, err)
	assert.Equal(t, 42, got.Quantity())
}

func testTxRollback(t *testing.T, s store.Store) {
	ctx := context.Background()

	tx, err := s.Begin(ctx)
	require.NoError(t, err)

	p := Product(t, "Bagel")
	require.NoError(t, tx.Insert(ctx, p))
	require.NoError(t, tx.Rollback(ctx))
	assert.Zero(t, p.Version())

	got, err := s.GetByID(ctx, p.ID())
	require.NoError(t, err)
	assert.Nil(t, got)
}

func testTxAtomicity(t *testing.T, s store.Store) {
	ctx := context.Background()

	a := Product(t, "Carrot")
	b := Product(t, "Celery")
	require.NoError(t, s.Insert(ctx, a, b))
	versionA := a.Version()

	tx, err := s.Begin(ctx)
	require.NoError(t, err)

	require.NoError(t, a.SetQuantity(1))
	b.SetVersion(b.Version() + 5)

	err = tx.Update(ctx, a, b)
	if err == nil {
		err = tx.Commit(ctx)
	} else {
		_ = tx.Rollback(ctx)
	}
	assert.ErrorIs(t, err, store.ErrConcurrencyConflict)
	assert.Equal(t, versionA, a.Version())

	got, err := s.GetByID(ctx, a.ID())
	require.NoError(t, err)
	assert.Equal(t, 10, got.Quantity())
}

func testTxDone(t *testing.T, s store.Store) {
	ctx := context.Background()

	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.Commit(ctx))

	assert.ErrorIs(t, tx.Commit(ctx), store.ErrTxDone)
	assert.ErrorIs(t, tx.Rollback(ctx), store.ErrTxDone)
	assert.ErrorIs(t, tx.Insert(ctx, Product(t, "Late")), store.ErrTxDone)
}

func testListExcludesDeleted(t *testing.T, s store.Store) {
	ctx := context.Background()

	active := Product(t, "Alpha")
	deleted := Product(t, "Beta")
	deleted.MarkAsDeleted()
	require.NoError(t, s.Insert(ctx, active, deleted))

	all, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, active.ID(), all[0].ID())

	got, err := s.GetByID(ctx, deleted.ID())
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.IsDeleted())
}

func testFindByName(t *testing.T, s store.Store) {
	ctx := context.Background()

	require.NoError(t, s.Insert(ctx,
		Product(t, "Whole Milk"),
		Product(t, "Oat Milk"),
		Product(t, "Orange Juice"),
		Product(t, "100% Juice"),
	))

	milk, err := s.FindByName(ctx, "MILK")
	require.NoError(t, err)
	require.Len(t, milk, 2)
	assert.Equal(t, "Oat Milk", milk[0].Name())
	assert.Equal(t, "Whole Milk", milk[1].Name())

	percent, err := s.FindByName(ctx, "%")
	require.NoError(t, err)
	require.Len(t, percent, 1)
	assert.Equal(t, "100% Juice", percent[0].Name())
}

func testSearch(t *testing.T, s store.Store) {
	ctx := context.Background()
	supplier := uuid.New()

	price := func(v string) func(*catalog.Builder) {
		return func(b *catalog.Builder) {
			b.WithSalePrice(decimal.RequireFromString(v))
		}
	}
	fromSupplier := func(b *catalog.Builder) { b.WithSupplier(supplier) }
	bakery := func(b *catalog.Builder) { b.WithCategory("Bakery") }

	require.NoError(t, s.Insert(ctx,
		Product(t, "Rye Bread", bakery, price("4.00"), fromSupplier),
		Product(t, "White Bread", bakery, price("2.00")),
		Product(t, "Bread Sticks", bakery, price("3.00"), fromSupplier),
		Product(t, "Milk", price("1.75")),
	))

	category := "bakery"
	byCategory, err := s.Search(ctx, store.SearchQuery{Category: &category, Take: 50, OrderBy: store.SortSalePrice, Ascending: true})
	require.NoError(t, err)
	require.Len(t, byCategory, 3)
	assert.Equal(t, "White Bread", byCategory[0].Name())
	assert.Equal(t, "Bread Sticks", byCategory[1].Name())
	assert.Equal(t, "Rye Bread", byCategory[2].Name())

	descending, err := s.Search(ctx, store.SearchQuery{Category: &category, Take: 50, OrderBy: store.SortSalePrice})
	require.NoError(t, err)
	require.Len(t, descending, 3)
	assert.Equal(t, "Rye Bread", descending[0].Name())

	bySupplier, err := s.Search(ctx, store.SearchQuery{SupplierID: &supplier, Take: 50, Ascending: true})
	require.NoError(t, err)
	require.Len(t, bySupplier, 2)
	assert.Equal(t, "Bread Sticks", bySupplier[0].Name())

	name := "bread"
	paged, err := s.Search(ctx, store.SearchQuery{Name: &name, Skip: 1, Take: 1, Ascending: true})
	require.NoError(t, err)
	require.Len(t, paged, 1)
	assert.Equal(t, "Rye Bread", paged[0].Name())

	beyond, err := s.Search(ctx, store.SearchQuery{Skip: 100, Take: 10, Ascending: true})
	require.NoError(t, err)
	assert.Empty(t, beyond)
}

func testExists(t *testing.T, s store.Store) {
	ctx := context.Background()

	p := Product(t, "Honey", func(b *catalog.Builder) { b.WithBarcode("4006381333931") })
	p.MarkAsDeleted()
	require.NoError(t, s.Insert(ctx, p))

	ok, err := s.ExistsByID(ctx, p.ID())
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.ExistsByBarcode(ctx, "4006381333931")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.ExistsByID(ctx, uuid.New())
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = s.ExistsByBarcode(ctx, "")
	require.NoError(t, err)
	assert.False(t, ok)
}

func testCancellation(t *testing.T, s store.Store) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.GetByID(ctx, uuid.New())
	assert.True(t, store.IsCancellation(err), "got %v", err)

	_, err = s.List(ctx)
	assert.True(t, store.IsCancellation(err), "got %v", err)

	err = s.Insert(ctx, Product(t, "Too Late"))
	assert.True(t, store.IsCancellation(err), "got %v", err)
}

// AssertSameProduct compares every observable field of two products.
func AssertSameProduct(t *testing.T, want, got *catalog.Product) {
	t.Helper()

	w, g := want.Snapshot(), got.Snapshot()
	assert.Equal(t, w.ID, g.ID)
	assert.Equal(t, w.DisplayCode, g.DisplayCode)
	assert.Equal(t, w.Name, g.Name)
	assert.Equal(t, w.Category, g.Category)
	assert.True(t, w.WholesalePrice.Equal(g.WholesalePrice), "wholesale %s != %s", w.WholesalePrice, g.WholesalePrice)
	assert.True(t, w.SalePrice.Equal(g.SalePrice), "sale %s != %s", w.SalePrice, g.SalePrice)
	assert.Equal(t, w.Quantity, g.Quantity)
	assert.Equal(t, w.Barcode, g.Barcode)
	assert.Equal(t, w.Unit, g.Unit)
	assert.Equal(t, w.SupplierID, g.SupplierID)
	assert.Equal(t, w.ManufacturerID, g.ManufacturerID)
	assert.True(t, w.ArrivalDate.Equal(g.ArrivalDate), "arrival %s != %s", w.ArrivalDate, g.ArrivalDate)
	if w.ExpirationDate == nil {
		assert.Nil(t, g.ExpirationDate)
	} else if assert.NotNil(t, g.ExpirationDate) {
		assert.True(t, w.ExpirationDate.Equal(*g.ExpirationDate))
	}
	assert.Equal(t, w.IsDeleted, g.IsDeleted)
	assert.Equal(t, w.IsArchived, g.IsArchived)
	assert.Equal(t, w.Version, g.Version)
}
