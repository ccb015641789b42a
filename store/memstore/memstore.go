// Package memstore is an in-process implementation of store.Store. Writes
// are staged and applied to a copy of the table, which replaces the live
// table only when every staged write succeeds.
package memstore

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/goliatone/go-catalog-cache/catalog"
	"github.com/goliatone/go-catalog-cache/pkg/clock"
	"github.com/goliatone/go-catalog-cache/store"
)

type opKind int

const (
	opInsert opKind = iota
	opUpdate
	opDelete
)

type op struct {
	kind    opKind
	product *catalog.Product
	row     catalog.Snapshot
}

// Option configures a Store.
type Option func(*Store)

// WithClock sets the clock handed to rehydrated products.
func WithClock(clk clock.Clock) Option {
	return func(s *Store) {
		s.clock = clock.OrReal(clk)
	}
}

// Store keeps products in memory. It is safe for concurrent use.
type Store struct {
	mu     sync.RWMutex
	rows   map[uuid.UUID]catalog.Snapshot
	clock  clock.Clock
	closed bool
}

var _ store.Store = (*Store)(nil)

// New returns an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		rows:  make(map[uuid.UUID]catalog.Snapshot),
		clock: clock.NewRealClock(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Close releases the table. Later calls fail.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.rows = nil
	return nil
}

// Begin starts a transaction.
func (s *Store) Begin(ctx context.Context) (store.Tx, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	return &tx{store: s}, nil
}

func (s *Store) Insert(ctx context.Context, products ...*catalog.Product) error {
	return s.write(ctx, opInsert, products)
}

func (s *Store) Update(ctx context.Context, products ...*catalog.Product) error {
	return s.write(ctx, opUpdate, products)
}

func (s *Store) Delete(ctx context.Context, products ...*catalog.Product) error {
	return s.write(ctx, opDelete, products)
}

func (s *Store) write(ctx context.Context, kind opKind, products []*catalog.Product) error {
	ops, err := stage(kind, products)
	if err != nil {
		return err
	}
	return s.apply(ctx, ops)
}

func stage(kind opKind, products []*catalog.Product) ([]op, error) {
	ops := make([]op, 0, len(products))
	for _, p := range products {
		if p == nil {
			return nil, catalog.NewArgumentNullError("product")
		}
		ops = append(ops, op{kind: kind, product: p, row: p.Snapshot()})
	}
	return ops, nil
}

// apply runs ops against a copy of the table and swaps it in on success.
// Version tokens are handed back to the products only after the swap.
func (s *Store) apply(ctx context.Context, ops []op) error {
	if len(ops) == 0 {
		return ctx.Err()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return store.ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	next := make(map[uuid.UUID]catalog.Snapshot, len(s.rows)+len(ops))
	for id, row := range s.rows {
		next[id] = row
	}

	versions := make([]catalog.VersionToken, len(ops))
	for i, o := range ops {
		v, err := applyOne(next, o)
		if err != nil {
			return err
		}
		versions[i] = v
	}

	s.rows = next
	for i, o := range ops {
		if o.kind != opDelete {
			o.product.SetVersion(versions[i])
		}
	}
	return nil
}

func applyOne(rows map[uuid.UUID]catalog.Snapshot, o op) (catalog.VersionToken, error) {
	row := o.row
	current, exists := rows[row.ID]

	switch o.kind {
	case opInsert:
		if exists {
			return 0, fmt.Errorf("insert %s: %w", row.ID, store.ErrDuplicateKey)
		}
		if err := checkUnique(rows, row); err != nil {
			return 0, err
		}
		row.Version = 1
		rows[row.ID] = row
		return row.Version, nil

	case opUpdate:
		if !exists || current.Version != row.Version {
			return 0, fmt.Errorf("update %s: %w", row.ID, store.ErrConcurrencyConflict)
		}
		if err := checkUnique(rows, row); err != nil {
			return 0, err
		}
		row.Version = current.Version + 1
		rows[row.ID] = row
		return row.Version, nil

	default:
		if !exists || current.Version != row.Version {
			return 0, fmt.Errorf("delete %s: %w", row.ID, store.ErrConcurrencyConflict)
		}
		delete(rows, row.ID)
		return current.Version, nil
	}
}

func checkUnique(rows map[uuid.UUID]catalog.Snapshot, row catalog.Snapshot) error {
	for id, other := range rows {
		if id == row.ID {
			continue
		}
		if other.DisplayCode == row.DisplayCode {
			return fmt.Errorf("display code %s: %w", row.DisplayCode, store.ErrDuplicateKey)
		}
		if row.Barcode != "" && other.Barcode == row.Barcode {
			return fmt.Errorf("barcode %s: %w", row.Barcode, store.ErrDuplicateKey)
		}
	}
	return nil
}

func (s *Store) ready(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return store.ErrClosed
	}
	return nil
}

// GetByID returns the product with id, soft-deleted or not.
func (s *Store) GetByID(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
	return s.findOne(ctx, func(row catalog.Snapshot) bool { return row.ID == id })
}

// GetByBarcode returns the product carrying code, soft-deleted or not.
func (s *Store) GetByBarcode(ctx context.Context, code string) (*catalog.Product, error) {
	if code == "" {
		return nil, ctx.Err()
	}
	return s.findOne(ctx, func(row catalog.Snapshot) bool { return row.Barcode == code })
}

func (s *Store) ExistsByID(ctx context.Context, id uuid.UUID) (bool, error) {
	p, err := s.GetByID(ctx, id)
	return p != nil, err
}

func (s *Store) ExistsByBarcode(ctx context.Context, code string) (bool, error) {
	p, err := s.GetByBarcode(ctx, code)
	return p != nil, err
}

// FindByName returns active products whose name contains namePart, ignoring case.
func (s *Store) FindByName(ctx context.Context, namePart string) ([]*catalog.Product, error) {
	needle := strings.ToLower(namePart)
	return s.findMany(ctx, store.SortName, true, func(row catalog.Snapshot) bool {
		return strings.Contains(strings.ToLower(row.Name), needle)
	})
}

// List returns every active product ordered by name.
func (s *Store) List(ctx context.Context) ([]*catalog.Product, error) {
	return s.findMany(ctx, store.SortName, true, func(catalog.Snapshot) bool { return true })
}

// Search filters, orders and pages active products.
func (s *Store) Search(ctx context.Context, q store.SearchQuery) ([]*catalog.Product, error) {
	orderBy := q.OrderBy
	if orderBy == "" {
		orderBy = store.SortName
	}
	if !slices.Contains(store.SortColumns, orderBy) {
		return nil, fmt.Errorf("memstore: unknown sort column %q", orderBy)
	}

	matches, err := s.findMany(ctx, orderBy, q.Ascending, func(row catalog.Snapshot) bool {
		if q.Name != nil && !strings.Contains(strings.ToLower(row.Name), strings.ToLower(*q.Name)) {
			return false
		}
		if q.Category != nil && !strings.EqualFold(row.Category, *q.Category) {
			return false
		}
		if q.SupplierID != nil && (row.SupplierID == nil || *row.SupplierID != *q.SupplierID) {
			return false
		}
		return true
	})
	if err != nil {
		return nil, err
	}

	if q.Skip >= len(matches) {
		return []*catalog.Product{}, nil
	}
	end := len(matches)
	if q.Take > 0 && q.Skip+q.Take < end {
		end = q.Skip + q.Take
	}
	return matches[q.Skip:end], nil
}

func (s *Store) findOne(ctx context.Context, match func(catalog.Snapshot) bool) (*catalog.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, store.ErrClosed
	}

	for _, row := range s.rows {
		if match(row) {
			return catalog.Rehydrate(row, s.clock), nil
		}
	}
	return nil, nil
}

func (s *Store) findMany(ctx context.Context, orderBy string, ascending bool, match func(catalog.Snapshot) bool) ([]*catalog.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	rows := make([]catalog.Snapshot, 0, len(s.rows))
	closed := s.closed
	for _, row := range s.rows {
		if !row.IsDeleted && match(row) {
			rows = append(rows, row)
		}
	}
	s.mu.RUnlock()
	if closed {
		return nil, store.ErrClosed
	}

	slices.SortFunc(rows, func(a, b catalog.Snapshot) int {
		c := compareColumn(a, b, orderBy)
		if !ascending {
			c = -c
		}
		if c != 0 {
			return c
		}
		return strings.Compare(a.ID.String(), b.ID.String())
	})

	out := make([]*catalog.Product, len(rows))
	for i, row := range rows {
		out[i] = catalog.Rehydrate(row, s.clock)
	}
	return out, nil
}

func compareColumn(a, b catalog.Snapshot, column string) int {
	switch column {
	case store.SortCategory:
		return strings.Compare(a.Category, b.Category)
	case store.SortSalePrice:
		return a.SalePrice.Cmp(b.SalePrice)
	case store.SortWholesalePrice:
		return a.WholesalePrice.Cmp(b.WholesalePrice)
	case store.SortQuantity:
		return cmp.Compare(a.Quantity, b.Quantity)
	case store.SortArrivalDate:
		return a.ArrivalDate.Compare(b.ArrivalDate)
	case store.SortDisplayCode:
		return strings.Compare(a.DisplayCode, b.DisplayCode)
	default:
		return strings.Compare(a.Name, b.Name)
	}
}

type tx struct {
	store *Store
	mu    sync.Mutex
	ops   []op
	done  bool
}

func (t *tx) Insert(ctx context.Context, products ...*catalog.Product) error {
	return t.stage(ctx, opInsert, products)
}

func (t *tx) Update(ctx context.Context, products ...*catalog.Product) error {
	return t.stage(ctx, opUpdate, products)
}

func (t *tx) Delete(ctx context.Context, products ...*catalog.Product) error {
	return t.stage(ctx, opDelete, products)
}

func (t *tx) stage(ctx context.Context, kind opKind, products []*catalog.Product) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	ops, err := stage(kind, products)
	if err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return store.ErrTxDone
	}
	t.ops = append(t.ops, ops...)
	return nil
}

// Commit applies every staged write or none of them.
func (t *tx) Commit(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return store.ErrTxDone
	}
	t.done = true
	return t.store.apply(ctx, t.ops)
}

func (t *tx) Rollback(context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return store.ErrTxDone
	}
	t.done = true
	t.ops = nil
	return nil
}
