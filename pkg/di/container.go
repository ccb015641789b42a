package di

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/goliatone/go-catalog-cache/cache"
	"github.com/goliatone/go-catalog-cache/internal/config"
	"github.com/goliatone/go-catalog-cache/internal/logging"
	"github.com/goliatone/go-catalog-cache/pkg/clock"
	"github.com/goliatone/go-catalog-cache/pkg/metrics"
	"github.com/goliatone/go-catalog-cache/repositorycache"
	"github.com/goliatone/go-catalog-cache/store"
	"github.com/goliatone/go-catalog-cache/store/bunstore"
	"github.com/goliatone/go-catalog-cache/store/memstore"
)

// Option customises a Container before its components are built.
type Option func(*Container)

// WithLogger replaces the logger built from the Log config.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Container) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithRegisterer sets where metrics are registered when they are enabled.
// The default is the Prometheus default registerer.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(c *Container) {
		c.registerer = reg
	}
}

// WithClock sets the clock shared by the cache, the store and the repository.
func WithClock(clk clock.Clock) Option {
	return func(c *Container) {
		c.clock = clock.OrReal(clk)
	}
}

// Container wires configuration into the catalog components: logger, cache
// service, key serializer, product store, metrics sink and the cached
// product repository. Every component is built once and shared.
type Container struct {
	config        config.Config
	logger        *slog.Logger
	registerer    prometheus.Registerer
	clock         clock.Clock
	cacheService  cache.CacheService
	keySerializer cache.KeySerializer
	store         store.Store
	metrics       repositorycache.Metrics
	repository    *repositorycache.ProductRepository
}

// NewContainer builds every component described by cfg. The store is opened
// and, when cfg.Store.AutoMigrate is set, its schema is created.
func NewContainer(ctx context.Context, cfg config.Config, opts ...Option) (*Container, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Container{
		config: cfg,
		clock:  clock.NewRealClock(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logging.New(os.Stdout, cfg.Log)
	}

	cacheService, err := cache.NewCacheService(cfg.Cache.ToCacheConfig(), cache.WithClock(c.clock))
	if err != nil {
		return nil, fmt.Errorf("cache service: %w", err)
	}
	c.cacheService = cacheService
	c.keySerializer = cache.NewDefaultKeySerializer()

	if err := c.initMetrics(); err != nil {
		return nil, err
	}

	s, err := openStore(ctx, cfg.Store, c.clock)
	if err != nil {
		return nil, err
	}
	c.store = s

	repo, err := repositorycache.New(c.store, c.cacheService,
		repositorycache.WithLogger(c.logger.With("component", "repository")),
		repositorycache.WithMetrics(c.metrics),
		repositorycache.WithEntryOptions(cfg.Cache.ToCacheConfig().EntryOptions()),
		repositorycache.WithKeySerializer(c.keySerializer),
		repositorycache.WithClock(c.clock),
	)
	if err != nil {
		_ = c.store.Close()
		return nil, err
	}
	c.repository = repo

	c.logger.InfoContext(ctx, "catalog container ready",
		"store_driver", string(cfg.Store.Driver),
		"metrics_enabled", cfg.Metrics.Enabled,
	)
	return c, nil
}

func (c *Container) initMetrics() error {
	if !c.config.Metrics.Enabled {
		c.metrics = repositorycache.NoopMetrics{}
		return nil
	}

	m := metrics.New(c.config.Metrics.Namespace)
	if err := m.Register(c.registerer); err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}
	if err := metrics.RegisterCacheStats(c.registerer, c.config.Metrics.Namespace, c.cacheService); err != nil {
		return fmt.Errorf("register cache metrics: %w", err)
	}
	c.metrics = m
	return nil
}

func openStore(ctx context.Context, cfg config.Store, clk clock.Clock) (store.Store, error) {
	var driver string
	switch cfg.Driver {
	case config.StoreDriverMemory:
		return memstore.New(memstore.WithClock(clk)), nil
	case config.StoreDriverSQLite:
		driver = bunstore.DriverSQLite
	case config.StoreDriverPostgres:
		driver = bunstore.DriverPostgres
	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.Driver)
	}

	s, err := bunstore.Open(ctx, driver, cfg.DSN, bunstore.WithClock(clk))
	if err != nil {
		return nil, err
	}
	if cfg.AutoMigrate {
		if err := s.CreateSchema(ctx); err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("create schema: %w", err)
		}
	}
	return s, nil
}

// Config returns a copy of the configuration the container was built from.
func (c *Container) Config() config.Config {
	return c.config
}

// Logger returns the shared logger.
func (c *Container) Logger() *slog.Logger {
	return c.logger
}

// CacheService returns the singleton cache service instance.
func (c *Container) CacheService() cache.CacheService {
	return c.cacheService
}

// KeySerializer returns the singleton key serializer instance.
func (c *Container) KeySerializer() cache.KeySerializer {
	return c.keySerializer
}

// Store returns the product store behind the repository.
func (c *Container) Store() store.Store {
	return c.store
}

// Metrics returns the repository metrics sink.
func (c *Container) Metrics() repositorycache.Metrics {
	return c.metrics
}

// ProductRepository returns the cached product repository.
func (c *Container) ProductRepository() *repositorycache.ProductRepository {
	return c.repository
}

// Close releases the store. The container must not be used afterwards.
func (c *Container) Close() error {
	var errs []error
	if c.store != nil {
		if err := c.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close store: %w", err))
		}
	}
	return errors.Join(errs...)
}
