package repositorycache

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-catalog-cache/catalog"
	"github.com/goliatone/go-catalog-cache/pkg/clock"
	"github.com/goliatone/go-catalog-cache/pkg/correlationid"
	"github.com/goliatone/go-catalog-cache/pkg/testsupport"
	"github.com/goliatone/go-catalog-cache/result"
	"github.com/goliatone/go-catalog-cache/store"
)

// seed stores n products through the repository and returns them.
func seed(t *testing.T, f *fixture, names ...string) []*catalog.Product {
	t.Helper()
	products := make([]*catalog.Product, 0, len(names))
	for _, name := range names {
		products = append(products, testsupport.NewProduct(t, name))
	}
	require.NoError(t, f.repo.AddRange(context.Background(), products...))
	return products
}

func TestBatch_RejectsNilInput(t *testing.T) {
	f := newFixture(t)

	res, err := f.repo.UpdateBatchTransactional(context.Background(), nil)
	assert.Nil(t, res)
	assert.True(t, catalog.IsKind(err, catalog.KindArgumentNull))

	p := testsupport.NewProduct(t, "Bread")
	res, err = f.repo.UpdateBatchTransactional(context.Background(), []*catalog.Product{p, nil})
	assert.Nil(t, res)
	assert.True(t, catalog.IsKind(err, catalog.KindArgumentNull))
	assert.Zero(t, f.store.Calls("Begin"))
}

func TestBatch_EmptyIsSuccess(t *testing.T) {
	f := newFixture(t)

	res, err := f.repo.UpdateBatchTransactional(context.Background(), []*catalog.Product{})
	require.NoError(t, err)
	assert.True(t, res.Succeeded())
	assert.Equal(t, 0, res.Trace().ItemCount)
	assert.NotEmpty(t, res.Trace().CorrelationID)
	assert.Zero(t, f.store.Calls("Begin"))
}

func TestBatch_Success(t *testing.T) {
	mock := clock.NewMockClock(time.Now())
	f := newFixture(t, WithClock(mock))
	ctx := correlationid.NewContext(context.Background(), "req-42")

	products := seed(t, f, "Apples", "Pears")
	for _, p := range products {
		warm(t, f, p)
	}

	f.store.Before("Commit", func(context.Context) { mock.Advance(250 * time.Millisecond) })

	require.NoError(t, products[0].SetQuantity(1))
	require.NoError(t, products[1].SetQuantity(2))
	res, err := f.repo.UpdateBatchTransactional(ctx, products)
	require.NoError(t, err)

	assert.True(t, res.Succeeded())
	assert.Empty(t, res.Errors())
	assert.Equal(t, result.Trace{
		CorrelationID: "req-42",
		ItemCount:     2,
		Elapsed:       250 * time.Millisecond,
	}, res.Trace())

	assert.Equal(t, catalog.VersionToken(2), products[0].Version())
	for _, p := range products {
		for _, key := range f.repo.Keys().ForProduct(p) {
			assert.False(t, f.cache.Has(key), key)
		}
	}

	got, err := f.repo.GetByID(ctx, products[1].ID())
	require.NoError(t, err)
	assert.Equal(t, 2, got.Quantity())

	events := f.metrics.batchEvents()
	require.Len(t, events, 1)
	assert.Equal(t, batchEvent{code: "", items: 2}, events[0])
	assert.Contains(t, f.logs.String(), "batch update committed")
}

func TestBatch_ValidationFailureRollsBack(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	products := seed(t, f, "Butter", "Cheese")

	require.NoError(t, products[0].SetQuantity(5))
	products[1].MarkAsArchived()

	res, err := f.repo.UpdateBatchTransactional(ctx, products)
	require.NoError(t, err)
	require.True(t, res.Failed())
	assert.Equal(t, string(catalog.KindInvalidStateTransition), res.FirstCode())
	require.Len(t, res.Errors(), 1)
	assert.True(t, strings.HasPrefix(res.Errors()[0], MsgBatchValidationPrefix), res.Errors()[0])
	assert.Equal(t, 1, f.store.Calls("Rollback"))
	assert.Zero(t, f.store.Calls("Commit"))

	stored, err := f.mem.GetByID(ctx, products[0].ID())
	require.NoError(t, err)
	assert.Equal(t, 25, stored.Quantity())
}

func TestBatch_StaleVersionConflicts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	products := seed(t, f, "Yogurt")

	stale := products[0].Clone()
	require.NoError(t, f.repo.Update(ctx, products[0]))

	res, err := f.repo.UpdateBatchTransactional(ctx, []*catalog.Product{stale})
	require.NoError(t, err)
	assert.Equal(t, string(catalog.KindConcurrencyConflict), res.FirstCode())
	assert.Equal(t, []string{MsgBatchConflict}, res.Errors())

	logs := f.logs.String()
	assert.Contains(t, logs, "batch update failed")
	assert.Contains(t, logs, `"code":"CONCURRENCY_CONFLICT"`)

	events := f.metrics.batchEvents()
	require.Len(t, events, 1)
	assert.Equal(t, "CONCURRENCY_CONFLICT", events[0].code)
}

func TestBatch_ConcurrentBatchesOnSameVersion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	original := seed(t, f, "Coffee")[0]

	quantities := []int{40, 60}
	results := make([]*result.Result, len(quantities))

	var wg sync.WaitGroup
	for i, qty := range quantities {
		clone := original.Clone()
		require.NoError(t, clone.SetQuantity(qty))

		wg.Add(1)
		go func(i int, p *catalog.Product) {
			defer wg.Done()
			res, err := f.repo.UpdateBatchTransactional(ctx, []*catalog.Product{p})
			assert.NoError(t, err)
			results[i] = res
		}(i, clone)
	}
	wg.Wait()

	winner := -1
	conflicts := 0
	for i, res := range results {
		require.NotNil(t, res)
		switch {
		case res.Succeeded():
			winner = i
		case res.HasCode(string(catalog.KindConcurrencyConflict)):
			conflicts++
		}
	}
	require.NotEqual(t, -1, winner, "one batch must win")
	assert.Equal(t, 1, conflicts)

	stored, err := f.mem.GetByID(ctx, original.ID())
	require.NoError(t, err)
	assert.Equal(t, quantities[winner], stored.Quantity())
	assert.Equal(t, catalog.VersionToken(2), stored.Version())
}

func TestBatch_CancelledBeforeBegin(t *testing.T) {
	f := newFixture(t)
	products := seed(t, f, "Tea")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := f.repo.UpdateBatchTransactional(ctx, products)
	require.NoError(t, err)
	assert.Equal(t, string(catalog.KindUnknown), res.FirstCode())
	assert.Equal(t, []string{MsgBatchCancelled}, res.Errors())
	assert.Zero(t, f.store.Calls("Begin"))
}

func TestBatch_CommitFailures(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode catalog.Kind
		wantMsg  string
	}{
		{
			name:     "cancelled",
			err:      context.Canceled,
			wantCode: catalog.KindUnknown,
			wantMsg:  MsgBatchCancelled,
		},
		{
			name:     "deadline",
			err:      context.DeadlineExceeded,
			wantCode: catalog.KindUnknown,
			wantMsg:  MsgBatchCancelled,
		},
		{
			name:     "duplicate key",
			err:      store.ErrDuplicateKey,
			wantCode: catalog.KindDuplicateKey,
			wantMsg:  MsgBatchDuplicateKey,
		},
		{
			name:     "domain",
			err:      catalog.NewError(catalog.KindNotEnoughStock, goerrors.CategoryConflict, "stock reserved elsewhere"),
			wantCode: catalog.KindDomain,
			wantMsg:  "stock reserved elsewhere",
		},
		{
			name:     "infrastructure",
			err:      errors.New("connection reset by peer"),
			wantCode: catalog.KindUnknownInfrastructure,
			wantMsg:  MsgBatchInfrastructure,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			products := seed(t, f, "Oats")

			f.store.Fail("Commit", tt.err)
			require.NoError(t, products[0].SetQuantity(9))

			res, err := f.repo.UpdateBatchTransactional(ctx, products)
			require.NoError(t, err)
			assert.True(t, res.Failed())
			assert.Equal(t, string(tt.wantCode), res.FirstCode())
			assert.Equal(t, []string{tt.wantMsg}, res.Errors())
			assert.Equal(t, 1, f.store.Calls("Rollback"))
			assert.Equal(t, 1, res.Trace().ItemCount)

			stored, err := f.mem.GetByID(ctx, products[0].ID())
			require.NoError(t, err)
			assert.Equal(t, 25, stored.Quantity())
		})
	}
}

func TestBatch_RollbackFailureKeepsClassification(t *testing.T) {
	f := newFixture(t)
	products := seed(t, f, "Rice")

	f.store.Fail("Commit", errors.New("disk full")).Fail("Rollback", nil)

	res, err := f.repo.UpdateBatchTransactional(context.Background(), products)
	require.NoError(t, err)
	assert.Equal(t, string(catalog.KindUnknownInfrastructure), res.FirstCode())
	assert.Contains(t, f.logs.String(), "batch rollback failed")
}

func TestBatch_BeginFailureIsReturned(t *testing.T) {
	f := newFixture(t)
	products := seed(t, f, "Salt")

	f.store.Fail("Begin", nil)
	ctx := correlationid.NewContext(context.Background(), "req-7")
	res, err := f.repo.UpdateBatchTransactional(ctx, products)
	assert.Nil(t, res)
	require.Error(t, err)
	assert.True(t, catalog.IsKind(err, catalog.KindUnknownInfrastructure))
	assert.ErrorIs(t, err, testsupport.ErrInjected)

	assert.Equal(t, []batchEvent{{code: string(catalog.KindUnknownInfrastructure), items: 1}}, f.metrics.batchEvents())
	logs := f.logs.String()
	assert.Contains(t, logs, "batch transaction could not be opened")
	assert.Contains(t, logs, `"correlation_id":"req-7"`)
	assert.Contains(t, logs, `"items":1`)
}

func TestBatch_PanickingPeekKeepsCommit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	products := seed(t, f, "Mustard")
	warm(t, f, products[0])

	f.cache.PanicOnGet(f.repo.Keys().ProductID(products[0].ID()))
	require.NoError(t, products[0].SetQuantity(9))

	var res *result.Result
	var err error
	require.NotPanics(t, func() {
		res, err = f.repo.UpdateBatchTransactional(ctx, products)
	})
	require.NoError(t, err)
	assert.True(t, res.Succeeded(), "got %v", res)

	stored, err := f.mem.GetByID(ctx, products[0].ID())
	require.NoError(t, err)
	assert.Equal(t, 9, stored.Quantity())
	assert.Equal(t, 1, f.store.Calls("Commit"))
	assert.Contains(t, f.logs.String(), "cache peek failed")
}

func TestBatch_BeginCancellationIsClassified(t *testing.T) {
	f := newFixture(t)
	products := seed(t, f, "Pepper")

	f.store.Fail("Begin", context.DeadlineExceeded)
	res, err := f.repo.UpdateBatchTransactional(context.Background(), products)
	require.NoError(t, err)
	assert.Equal(t, string(catalog.KindUnknown), res.FirstCode())
}

func TestBatch_InvalidationFailureKeepsSuccess(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	products := seed(t, f, "Vinegar")
	warm(t, f, products[0])

	f.cache.FailRemove(f.repo.Keys().ProductID(products[0].ID()), nil)
	require.NoError(t, products[0].SetQuantity(3))

	res, err := f.repo.UpdateBatchTransactional(ctx, products)
	require.NoError(t, err)
	assert.True(t, res.Succeeded())
	assert.Equal(t, 1, f.metrics.failures())
}
