package repositorycache

import (
	"errors"
	"io"
	"log/slog"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-catalog-cache/cache"
	"github.com/goliatone/go-catalog-cache/catalog"
	"github.com/goliatone/go-catalog-cache/pkg/clock"
	"github.com/goliatone/go-catalog-cache/store"
)

// ProductRepository puts a cache-aside layer in front of a product store.
// Reads are served from the cache when possible and populate it on a miss.
// Writes go to the store first and then drop every cache key that could
// describe the written products. It is safe for concurrent use as long as
// the store and the cache are.
type ProductRepository struct {
	store         store.Store
	cache         cache.CacheService
	keySerializer cache.KeySerializer
	entryOptions  cache.EntryOptions
	logger        *slog.Logger
	metrics       Metrics
	clock         clock.Clock
}

// Option configures a ProductRepository.
type Option func(*ProductRepository)

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *slog.Logger) Option {
	return func(r *ProductRepository) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m Metrics) Option {
	return func(r *ProductRepository) {
		if m != nil {
			r.metrics = m
		}
	}
}

// WithEntryOptions replaces the options used when populating the cache.
func WithEntryOptions(opts cache.EntryOptions) Option {
	return func(r *ProductRepository) {
		r.entryOptions = opts
	}
}

// WithKeySerializer replaces the key serializer. Keys are shared with every
// other producer of the same cache, so a replacement must keep the grammar.
func WithKeySerializer(ks cache.KeySerializer) Option {
	return func(r *ProductRepository) {
		if ks != nil {
			r.keySerializer = ks
		}
	}
}

// WithClock sets the clock handed to products served from the cache and
// used to time batch updates.
func WithClock(clk clock.Clock) Option {
	return func(r *ProductRepository) {
		r.clock = clock.OrReal(clk)
	}
}

// New creates a ProductRepository over s and c.
func New(s store.Store, c cache.CacheService, opts ...Option) (*ProductRepository, error) {
	if s == nil {
		return nil, catalog.NewArgumentNullError("store")
	}
	if c == nil {
		return nil, catalog.NewArgumentNullError("cache")
	}

	r := &ProductRepository{
		store:         s,
		cache:         c,
		keySerializer: cache.NewDefaultKeySerializer(),
		entryOptions:  cache.DefaultEntryOptions(),
		logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
		metrics:       NoopMetrics{},
		clock:         clock.NewRealClock(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Keys exposes the key builder used by r, for callers that share the cache.
func (r *ProductRepository) Keys() Keys {
	return Keys{serializer: r.keySerializer}
}

// cacheFailure turns a cache error into the kinded error surfaced by reads.
func cacheFailure(err error) error {
	var opErr *cache.OpError
	if !errors.As(err, &opErr) {
		return nil
	}
	return catalog.WrapError(err, catalog.KindCacheFailure, goerrors.CategoryExternal, "cache "+opErr.Op+" failed").
		WithMetadata(map[string]any{"key": opErr.Key})
}

func (r *ProductRepository) rehydrate(snaps []catalog.Snapshot) []*catalog.Product {
	out := make([]*catalog.Product, len(snaps))
	for i, s := range snaps {
		out[i] = catalog.Rehydrate(s, r.clock)
	}
	return out
}

func snapshots(products []*catalog.Product) []catalog.Snapshot {
	out := make([]catalog.Snapshot, len(products))
	for i, p := range products {
		out[i] = p.Snapshot()
	}
	return out
}
