// Command catalogd wires the catalog from environment configuration and
// walks through every repository operation, logging what the cache does.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/goliatone/go-catalog-cache/cache"
	"github.com/goliatone/go-catalog-cache/catalog"
	"github.com/goliatone/go-catalog-cache/internal/config"
	"github.com/goliatone/go-catalog-cache/internal/logging"
	"github.com/goliatone/go-catalog-cache/pkg/correlationid"
	"github.com/goliatone/go-catalog-cache/pkg/di"
	"github.com/goliatone/go-catalog-cache/repositorycache"
)

func main() {
	if err := run(); err != nil {
		fmt.Printf("error running catalogd: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}

	logger := logging.NewSlogLogger(cfg.Log)

	container, err := di.NewContainer(ctx, cfg, di.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("error building container: %w", err)
	}
	defer func() {
		if err := container.Close(); err != nil {
			logger.ErrorContext(ctx, "error closing container", slog.Any("error", err))
		}
	}()

	ctx = correlationid.NewContext(ctx, correlationid.New())
	return demo(ctx, logger, container)
}

func demo(ctx context.Context, logger *slog.Logger, container *di.Container) error {
	repo := container.ProductRepository()

	products, err := sampleProducts()
	if err != nil {
		return fmt.Errorf("error building sample products: %w", err)
	}

	logger.InfoContext(ctx, "seeding catalog", slog.Int("products", len(products)))
	if err := repo.AddRange(ctx, products...); err != nil {
		return fmt.Errorf("error seeding catalog: %w", err)
	}

	milk := products[0]
	for i := 1; i <= 2; i++ {
		p, err := repo.GetByID(ctx, milk.ID())
		if err != nil {
			return fmt.Errorf("get by id: %w", err)
		}
		logger.InfoContext(ctx, "get by id", slog.Int("attempt", i), slog.String("name", p.Name()))
	}

	byBarcode, err := repo.GetByBarcode(ctx, milk.Barcode().String())
	if err != nil {
		return fmt.Errorf("get by barcode: %w", err)
	}
	logger.InfoContext(ctx, "get by barcode", slog.String("name", byBarcode.Name()))

	matches, err := repo.GetByName(ctx, "milk")
	if err != nil {
		return fmt.Errorf("get by name: %w", err)
	}
	logger.InfoContext(ctx, "get by name", slog.Int("matches", len(matches)))

	all, err := repo.GetAll(ctx)
	if err != nil {
		return fmt.Errorf("get all: %w", err)
	}
	logger.InfoContext(ctx, "get all", slog.Int("products", len(all)))

	criteria := repositorycache.DefaultSearchCriteria()
	criteria.OrderBy = "SalePrice"
	criteria.Ascending = false
	page, err := repo.Search(ctx, criteria)
	if err != nil {
		return fmt.Errorf("search: %w", err)
	}
	for _, p := range page {
		logger.InfoContext(ctx, "search result", slog.String("name", p.Name()), slog.String("sale_price", p.SalePrice().StringFixed(2)))
	}

	exists, err := repo.ExistsByBarcode(ctx, "5901234123457")
	if err != nil {
		return fmt.Errorf("exists by barcode: %w", err)
	}
	logger.InfoContext(ctx, "exists by barcode", slog.Bool("exists", exists))

	if err := milk.ReduceQuantity(10); err != nil {
		return err
	}
	if err := repo.Update(ctx, milk); err != nil {
		return fmt.Errorf("update: %w", err)
	}
	logger.InfoContext(ctx, "updated stock", slog.Int("quantity", milk.Quantity()), slog.Int64("version", int64(milk.Version())))

	stale := milk.Clone()
	stale.SetVersion(stale.Version() - 1)
	if err := repo.Update(ctx, stale); catalog.IsKind(err, catalog.KindConcurrencyConflict) {
		logger.InfoContext(ctx, "stale update rejected", slog.String("code", string(catalog.KindOf(err))))
	}

	for _, p := range products {
		if err := p.IncreaseQuantity(5); err != nil {
			return err
		}
	}
	res, err := repo.UpdateBatchTransactional(ctx, products)
	if err != nil {
		return fmt.Errorf("batch update: %w", err)
	}
	logger.InfoContext(ctx, "batch update", slog.String("result", res.String()), slog.Duration("elapsed", res.Trace().Elapsed))

	bread := products[1]
	bread.MarkAsDeleted()
	bread.MarkAsArchived()
	if err := repo.Update(ctx, bread); err != nil {
		return fmt.Errorf("archive: %w", err)
	}
	if err := repo.Remove(ctx, products[2]); err != nil {
		return fmt.Errorf("remove: %w", err)
	}

	remaining, err := repo.GetAll(ctx)
	if err != nil {
		return fmt.Errorf("get all: %w", err)
	}
	logger.InfoContext(ctx, "active products", slog.Int("products", len(remaining)))

	if stats, ok := cache.StatsOf(container.CacheService()); ok {
		logger.InfoContext(ctx, "cache statistics",
			slog.Int64("hits", stats.Hits),
			slog.Int64("misses", stats.Misses),
			slog.Int64("sets", stats.Sets),
			slog.Int64("removes", stats.Removes),
			slog.Int("entries", stats.Size),
		)
	}
	return nil
}

func sampleProducts() ([]*catalog.Product, error) {
	now := time.Now().UTC().Truncate(time.Second)
	supplier := uuid.New()

	specs := []struct {
		code, name, category, barcode string
		wholesale, sale               string
		quantity                      int
		unit                          catalog.Unit
		arrived                       time.Duration
		shelfLife                     time.Duration
	}{
		{"30000001", "Whole Milk", "Dairy", "4006381333931", "0.80", "1.19", 120, catalog.UnitLiter, 48 * time.Hour, 240 * time.Hour},
		{"30000002", "Rye Bread", "Bakery", "", "1.50", "2.75", 15, catalog.UnitPiece, 6 * time.Hour, 72 * time.Hour},
		{"30000003", "Oat Milk", "Dairy", "5901234123457", "1.10", "1.99", 40, catalog.UnitLiter, 24 * time.Hour, 2160 * time.Hour},
		{"30000004", "Arabica Coffee Beans", "Pantry", "4012345678901", "6.40", "11.90", 32, catalog.UnitKilogram, 720 * time.Hour, 0},
	}

	out := make([]*catalog.Product, 0, len(specs))
	for _, s := range specs {
		arrival := now.Add(-s.arrived)
		b := catalog.NewBuilder().
			WithDisplayCode(s.code).
			WithName(s.name).
			WithCategory(s.category).
			WithWholesalePrice(decimal.RequireFromString(s.wholesale)).
			WithSalePrice(decimal.RequireFromString(s.sale)).
			WithQuantity(s.quantity).
			WithBarcode(s.barcode).
			WithUnit(s.unit).
			WithSupplier(supplier).
			WithArrivalDate(arrival)
		if s.shelfLife > 0 {
			b.WithExpirationDate(arrival.Add(s.shelfLife))
		}

		p, err := b.Build()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", s.name, err)
		}
		out = append(out, p)
	}
	return out, nil
}
