package repositorycache

import (
	"context"
	"errors"
	"log/slog"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-catalog-cache/catalog"
	"github.com/goliatone/go-catalog-cache/pkg/correlationid"
	"github.com/goliatone/go-catalog-cache/result"
	"github.com/goliatone/go-catalog-cache/store"
)

// Messages reported by UpdateBatchTransactional.
const (
	MsgBatchCancelled        = "operation was cancelled"
	MsgBatchConflict         = "one or more products were modified by another transaction"
	MsgBatchDuplicateKey     = "one or more products violate a unique key"
	MsgBatchValidationPrefix = "Validation failed: "
	MsgBatchInfrastructure   = "an unexpected infrastructure error occurred"
)

// UpdateBatchTransactional updates products in a single transaction.
//
// A nil slice fails with ARGUMENT_NULL and an empty one succeeds without
// touching the store. Failing to open the transaction is logged, recorded
// in the batch metrics and returned as an error. Every other failure rolls
// the transaction back and is reported in the returned Result instead:
//
//   - cancellation: UNKNOWN_ERROR
//   - version mismatch: CONCURRENCY_CONFLICT
//   - unique key violation: DUPLICATE_KEY
//   - invariant violation: the violation's own kind
//   - other catalog errors: DOMAIN_ERROR
//   - anything else: UNKNOWN_INFRASTRUCTURE_ERROR
//
// The Result trace carries the correlation id of ctx (a new one when ctx has
// none), the number of products and the elapsed time.
func (r *ProductRepository) UpdateBatchTransactional(ctx context.Context, products []*catalog.Product) (*result.Result, error) {
	if err := checkNotNil(products); err != nil {
		return nil, err
	}

	ctx, correlation := correlationid.Ensure(ctx)
	start := r.clock.Now()
	record := func(code string) result.Trace {
		elapsed := r.clock.Now().Sub(start)
		r.metrics.BatchCompleted(code, len(products), elapsed)
		return result.Trace{
			CorrelationID: correlation,
			ItemCount:     len(products),
			Elapsed:       elapsed,
		}
	}
	finish := func(res *result.Result) *result.Result {
		return res.WithTrace(record(res.FirstCode()))
	}

	if len(products) == 0 {
		return finish(result.Success()), nil
	}
	if err := ctx.Err(); err != nil {
		return finish(r.batchFailure(ctx, err)), nil
	}

	tx, err := r.store.Begin(ctx)
	if err != nil {
		if store.IsCancellation(err) {
			return finish(r.batchFailure(ctx, err)), nil
		}
		werr := catalog.WrapError(err, catalog.KindUnknownInfrastructure, goerrors.CategoryExternal, "could not open transaction")
		trace := record(string(catalog.KindUnknownInfrastructure))
		r.logger.ErrorContext(ctx, "batch transaction could not be opened",
			"correlation_id", trace.CorrelationID,
			"items", trace.ItemCount,
			"elapsed", trace.Elapsed,
			"error", err,
		)
		return nil, werr
	}

	stale := r.staleKeys(ctx, products)
	if err := r.applyBatch(ctx, tx, products); err != nil {
		r.rollback(ctx, tx)
		return finish(r.batchFailure(ctx, err)), nil
	}

	res := r.invalidate(ctx, stale)
	r.logger.InfoContext(ctx, "batch update committed",
		"items", len(products),
		"keys_removed", len(res.Removed),
		"keys_failed", len(res.Failed),
	)
	return finish(result.Success()), nil
}

func (r *ProductRepository) applyBatch(ctx context.Context, tx store.Tx, products []*catalog.Product) error {
	for _, p := range products {
		if err := p.ValidateInvariant(); err != nil {
			return err
		}
	}
	if err := tx.Update(ctx, products...); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// rollback undoes tx even when ctx is already cancelled. A transaction the
// store already finished is not an error.
func (r *ProductRepository) rollback(ctx context.Context, tx store.Tx) {
	err := tx.Rollback(context.WithoutCancel(ctx))
	if err != nil && !errors.Is(err, store.ErrTxDone) {
		r.logger.WarnContext(ctx, "batch rollback failed", "error", err)
	}
}

// batchFailure classifies err into a failed Result.
func (r *ProductRepository) batchFailure(ctx context.Context, err error) *result.Result {
	var res *result.Result
	switch kind := catalog.KindOf(err); {
	case store.IsCancellation(err):
		res = result.Failure(string(catalog.KindUnknown), MsgBatchCancelled)
	case kind == catalog.KindConcurrencyConflict:
		res = result.Failure(string(kind), MsgBatchConflict)
	case kind == catalog.KindDuplicateKey:
		res = result.Failure(string(kind), MsgBatchDuplicateKey)
	case catalog.IsValidation(err) && kind != "":
		res = result.Failure(string(kind), MsgBatchValidationPrefix+catalog.MessageOf(err))
	case kind != "":
		res = result.Failure(string(catalog.KindDomain), catalog.MessageOf(err))
	default:
		res = result.Failure(string(catalog.KindUnknownInfrastructure), MsgBatchInfrastructure)
	}

	attrs := []slog.Attr{
		slog.String("code", res.FirstCode()),
		slog.String("error", err.Error()),
	}
	attrs = append(attrs, goerrors.ToSlogAttributes(err)...)
	r.logger.LogAttrs(ctx, slog.LevelError, "batch update failed", attrs...)
	return res
}
