// Package bunstore implements store.Store on a relational database through
// uptrace/bun. SQLite (mattn/go-sqlite3) and PostgreSQL (lib/pq) are
// supported. Optimistic concurrency is enforced with a version column: every
// update and delete is guarded by the version the caller read, and a write
// that affects no row is reported as a concurrency conflict.
package bunstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	"github.com/goliatone/go-catalog-cache/catalog"
	"github.com/goliatone/go-catalog-cache/pkg/clock"
	"github.com/goliatone/go-catalog-cache/store"
)

// Supported drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

const pgUniqueViolation = "23505"

// Option configures a Store.
type Option func(*Store)

// WithClock sets the clock handed to rehydrated products.
func WithClock(clk clock.Clock) Option {
	return func(s *Store) {
		s.clock = clock.OrReal(clk)
	}
}

// Store is a store.Store backed by bun.
type Store struct {
	db    *bun.DB
	clock clock.Clock
}

var _ store.Store = (*Store)(nil)

// New wraps an existing bun database.
func New(db *bun.DB, opts ...Option) *Store {
	s := &Store{db: db, clock: clock.NewRealClock()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open connects to dsn with the given driver and pings the database.
func Open(ctx context.Context, driver, dsn string, opts ...Option) (*Store, error) {
	var db *bun.DB

	switch driver {
	case DriverSQLite:
		sqldb, err := sql.Open("sqlite3", dsn)
		if err != nil {
			return nil, fmt.Errorf("bunstore: open sqlite: %w", err)
		}
		if strings.Contains(dsn, ":memory:") {
			// every connection would otherwise see its own empty database
			sqldb.SetMaxOpenConns(1)
		}
		db = bun.NewDB(sqldb, sqlitedialect.New())

	case DriverPostgres:
		sqldb, err := sql.Open("postgres", dsn)
		if err != nil {
			return nil, fmt.Errorf("bunstore: open postgres: %w", err)
		}
		db = bun.NewDB(sqldb, pgdialect.New())

	default:
		return nil, fmt.Errorf("bunstore: unsupported driver %q", driver)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bunstore: ping %s: %w", driver, err)
	}

	return New(db, opts...), nil
}

// DB exposes the underlying bun database.
func (s *Store) DB() *bun.DB { return s.db }

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

// CreateSchema creates the products table and its indexes when missing.
func (s *Store) CreateSchema(ctx context.Context) error {
	if _, err := s.db.NewCreateTable().
		Model((*productRow)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		return fmt.Errorf("bunstore: create products table: %w", err)
	}

	if _, err := s.db.NewCreateIndex().
		Model((*productRow)(nil)).
		Index("products_name_idx").
		Column("name").
		IfNotExists().
		Exec(ctx); err != nil {
		return fmt.Errorf("bunstore: create name index: %w", err)
	}

	return nil
}

// Begin starts a database transaction.
func (s *Store) Begin(ctx context.Context) (store.Tx, error) {
	btx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, translate(err)
	}
	return &tx{tx: btx}, nil
}

func (s *Store) Insert(ctx context.Context, products ...*catalog.Product) error {
	return s.inTx(ctx, func(w *writer) error { return w.insert(ctx, products) })
}

func (s *Store) Update(ctx context.Context, products ...*catalog.Product) error {
	return s.inTx(ctx, func(w *writer) error { return w.update(ctx, products) })
}

func (s *Store) Delete(ctx context.Context, products ...*catalog.Product) error {
	return s.inTx(ctx, func(w *writer) error { return w.delete(ctx, products) })
}

// inTx runs fn in its own transaction so a group of direct writes is atomic.
func (s *Store) inTx(ctx context.Context, fn func(*writer) error) error {
	w := &writer{}
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, btx bun.Tx) error {
		w.idb = &btx
		return fn(w)
	})
	if err != nil {
		return translate(err)
	}
	w.publish()
	return nil
}

// GetByID returns the product with id, soft-deleted or not.
func (s *Store) GetByID(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
	return s.findOne(ctx, "?TableAlias.id = ?", id)
}

// GetByBarcode returns the product carrying code, soft-deleted or not.
func (s *Store) GetByBarcode(ctx context.Context, code string) (*catalog.Product, error) {
	if code == "" {
		return nil, ctx.Err()
	}
	return s.findOne(ctx, "?TableAlias.barcode = ?", code)
}

func (s *Store) ExistsByID(ctx context.Context, id uuid.UUID) (bool, error) {
	ok, err := s.db.NewSelect().
		Model((*productRow)(nil)).
		Where("?TableAlias.id = ?", id).
		Exists(ctx)
	return ok, translate(err)
}

func (s *Store) ExistsByBarcode(ctx context.Context, code string) (bool, error) {
	if code == "" {
		return false, ctx.Err()
	}
	ok, err := s.db.NewSelect().
		Model((*productRow)(nil)).
		Where("?TableAlias.barcode = ?", code).
		Exists(ctx)
	return ok, translate(err)
}

// FindByName returns active products whose name contains namePart, ignoring case.
func (s *Store) FindByName(ctx context.Context, namePart string) ([]*catalog.Product, error) {
	return s.search(ctx, store.SearchQuery{Name: &namePart, Ascending: true})
}

// List returns every active product ordered by name.
func (s *Store) List(ctx context.Context) ([]*catalog.Product, error) {
	return s.search(ctx, store.SearchQuery{Ascending: true})
}

// Search filters, orders and pages active products.
func (s *Store) Search(ctx context.Context, q store.SearchQuery) ([]*catalog.Product, error) {
	return s.search(ctx, q)
}

func (s *Store) search(ctx context.Context, q store.SearchQuery) ([]*catalog.Product, error) {
	orderBy := q.OrderBy
	if orderBy == "" {
		orderBy = store.SortName
	}
	if !isSortColumn(orderBy) {
		return nil, fmt.Errorf("bunstore: unknown sort column %q", orderBy)
	}
	direction := "ASC"
	if !q.Ascending {
		direction = "DESC"
	}

	var rows []productRow
	query := s.db.NewSelect().
		Model(&rows).
		Where("?TableAlias.is_deleted = ?", false)

	if q.Name != nil {
		query = query.Where("LOWER(?TableAlias.name) LIKE ? ESCAPE '!'", "%"+escapeLike(strings.ToLower(*q.Name))+"%")
	}
	if q.Category != nil {
		query = query.Where("LOWER(?TableAlias.category) = ?", strings.ToLower(*q.Category))
	}
	if q.SupplierID != nil {
		query = query.Where("?TableAlias.supplier_id = ?", *q.SupplierID)
	}

	query = query.
		OrderExpr("?TableAlias.? "+direction, bun.Ident(orderBy)).
		OrderExpr("?TableAlias.id ASC")
	if q.Take > 0 {
		query = query.Limit(q.Take)
	}
	if q.Skip > 0 {
		query = query.Offset(q.Skip)
	}

	if err := query.Scan(ctx); err != nil {
		return nil, translate(err)
	}

	out := make([]*catalog.Product, len(rows))
	for i := range rows {
		out[i] = catalog.Rehydrate(rows[i].snapshot(), s.clock)
	}
	return out, nil
}

func (s *Store) findOne(ctx context.Context, where string, arg any) (*catalog.Product, error) {
	var row productRow
	err := s.db.NewSelect().
		Model(&row).
		Where(where, arg).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, translate(err)
	}
	return catalog.Rehydrate(row.snapshot(), s.clock), nil
}

type pendingVersion struct {
	product *catalog.Product
	version catalog.VersionToken
}

// writer issues version guarded statements and remembers the tokens to hand
// back once the surrounding transaction commits.
type writer struct {
	idb     bun.IDB
	pending []pendingVersion
}

func (w *writer) insert(ctx context.Context, products []*catalog.Product) error {
	for _, p := range products {
		if p == nil {
			return catalog.NewArgumentNullError("product")
		}
		row := rowFromProduct(p)
		row.Version = 1

		if _, err := w.idb.NewInsert().Model(row).Exec(ctx); err != nil {
			return translate(err)
		}
		w.pending = append(w.pending, pendingVersion{product: p, version: catalog.VersionToken(row.Version)})
	}
	return nil
}

func (w *writer) update(ctx context.Context, products []*catalog.Product) error {
	for _, p := range products {
		if p == nil {
			return catalog.NewArgumentNullError("product")
		}
		row := rowFromProduct(p)
		expected := row.Version
		row.Version = expected + 1

		res, err := w.idb.NewUpdate().
			Model(row).
			WherePK().
			Where("?TableAlias.version = ?", expected).
			Exec(ctx)
		if err := affectedOne(res, err, "update", row.ID); err != nil {
			return err
		}
		w.pending = append(w.pending, pendingVersion{product: p, version: catalog.VersionToken(row.Version)})
	}
	return nil
}

func (w *writer) delete(ctx context.Context, products []*catalog.Product) error {
	for _, p := range products {
		if p == nil {
			return catalog.NewArgumentNullError("product")
		}
		row := rowFromProduct(p)

		res, err := w.idb.NewDelete().
			Model(row).
			WherePK().
			Where("?TableAlias.version = ?", row.Version).
			Exec(ctx)
		if err := affectedOne(res, err, "delete", row.ID); err != nil {
			return err
		}
	}
	return nil
}

func (w *writer) publish() {
	for _, pv := range w.pending {
		pv.product.SetVersion(pv.version)
	}
	w.pending = nil
}

func affectedOne(res sql.Result, err error, op string, id uuid.UUID) error {
	if err != nil {
		return translate(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return translate(err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", op, id, store.ErrConcurrencyConflict)
	}
	return nil
}

type tx struct {
	mu   sync.Mutex
	tx   bun.Tx
	w    writer
	done bool
}

func (t *tx) Insert(ctx context.Context, products ...*catalog.Product) error {
	return t.run(func(w *writer) error { return w.insert(ctx, products) })
}

func (t *tx) Update(ctx context.Context, products ...*catalog.Product) error {
	return t.run(func(w *writer) error { return w.update(ctx, products) })
}

func (t *tx) Delete(ctx context.Context, products ...*catalog.Product) error {
	return t.run(func(w *writer) error { return w.delete(ctx, products) })
}

func (t *tx) run(fn func(*writer) error) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return store.ErrTxDone
	}
	t.w.idb = &t.tx
	return fn(&t.w)
}

// Commit commits the transaction and hands out the new version tokens.
func (t *tx) Commit(context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return store.ErrTxDone
	}
	t.done = true

	if err := t.tx.Commit(); err != nil {
		return translate(err)
	}
	t.w.publish()
	return nil
}

func (t *tx) Rollback(context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return store.ErrTxDone
	}
	t.done = true
	t.w.pending = nil
	return translate(t.tx.Rollback())
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrConcurrencyConflict),
		errors.Is(err, store.ErrDuplicateKey),
		errors.Is(err, store.ErrTxDone):
		return err
	case errors.Is(err, sql.ErrTxDone):
		return fmt.Errorf("bunstore: %v: %w", err, store.ErrTxDone)
	case isUniqueViolation(err):
		return fmt.Errorf("bunstore: %v: %w", err, store.ErrDuplicateKey)
	default:
		return err
	}
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}

	var pgErr *pq.Error
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}

	return false
}

func isSortColumn(column string) bool {
	for _, c := range store.SortColumns {
		if c == column {
			return true
		}
	}
	return false
}

func escapeLike(s string) string {
	return strings.NewReplacer("!", "!!", "%", "!%", "_", "!_").Replace(s)
}
