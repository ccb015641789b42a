// Package store defines the transactional product table the repository
// reads from and writes to.
package store

import (
	"context"
	"errors"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"

	"github.com/goliatone/go-catalog-cache/catalog"
)

// SearchQuery holds the filters and paging of a product search. Nil filters
// are not applied. OrderBy is a column name from SortColumns; empty means
// name order.
type SearchQuery struct {
	Name       *string
	Category   *string
	SupplierID *uuid.UUID
	Skip       int
	Take       int
	OrderBy    string
	Ascending  bool
}

// Sort columns understood by every store.
const (
	SortName           = "name"
	SortCategory       = "category"
	SortSalePrice      = "sale_price"
	SortWholesalePrice = "wholesale_price"
	SortQuantity       = "quantity"
	SortArrivalDate    = "arrival_date"
	SortDisplayCode    = "display_code"
)

// SortColumns lists the accepted OrderBy values.
var SortColumns = []string{
	SortName,
	SortCategory,
	SortSalePrice,
	SortWholesalePrice,
	SortQuantity,
	SortArrivalDate,
	SortDisplayCode,
}

// Reader is the query side of the store. Lookups return nil and no error
// when nothing matches. List shaped queries leave out soft-deleted rows.
type Reader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*catalog.Product, error)
	GetByBarcode(ctx context.Context, code string) (*catalog.Product, error)
	FindByName(ctx context.Context, namePart string) ([]*catalog.Product, error)
	List(ctx context.Context) ([]*catalog.Product, error)
	Search(ctx context.Context, q SearchQuery) ([]*catalog.Product, error)
	ExistsByID(ctx context.Context, id uuid.UUID) (bool, error)
	ExistsByBarcode(ctx context.Context, code string) (bool, error)
}

// Writer mutates products. Update and Delete compare the product's version
// token with the stored one and fail with ErrConcurrencyConflict on a
// mismatch or a missing row. Successful writes assign the new token to the
// product.
type Writer interface {
	Insert(ctx context.Context, products ...*catalog.Product) error
	Update(ctx context.Context, products ...*catalog.Product) error
	Delete(ctx context.Context, products ...*catalog.Product) error
}

// Tx is a unit of work. Writes become visible to other callers only after
// Commit; version tokens are assigned to products on Commit as well.
type Tx interface {
	Writer
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Store is the full transactional table. Writer calls made directly on the
// Store are atomic as a group.
type Store interface {
	Reader
	Writer
	Begin(ctx context.Context) (Tx, error)
	Close() error
}

var (
	// ErrConcurrencyConflict reports a version token mismatch.
	ErrConcurrencyConflict = catalog.NewError(catalog.KindConcurrencyConflict, goerrors.CategoryConflict, "product was modified or removed concurrently")

	// ErrDuplicateKey reports a unique constraint violation on id, display
	// code or barcode.
	ErrDuplicateKey = catalog.NewError(catalog.KindDuplicateKey, goerrors.CategoryConflict, "product violates a unique key")

	// ErrClosed is returned by a store that has been closed.
	ErrClosed = errors.New("store: closed")

	// ErrTxDone is returned when a finished transaction is used again.
	ErrTxDone = errors.New("store: transaction has already been committed or rolled back")
)

// IsCancellation reports whether err stems from a cancelled or expired context.
func IsCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
