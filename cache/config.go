package cache

import (
	"context"
	"time"

	"github.com/goliatone/go-catalog-cache/internal/cacheinfra"
	"github.com/goliatone/go-catalog-cache/pkg/clock"
)

// Config exposes cache configuration options for consumers of the cache package.
type Config struct {
	Capacity           int
	NumShards          int
	TTL                time.Duration
	EvictionPercentage int
	EvictionInterval   time.Duration
	SlidingExpiration  time.Duration
}

// Stats mirrors the counters kept by the default cache service.
type Stats = cacheinfra.Stats

// Option configures the default cache service.
type Option = cacheinfra.Option

// WithClock sets the clock that drives sliding expiration.
func WithClock(clk clock.Clock) Option {
	return cacheinfra.WithClock(clk)
}

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() Config {
	return convertFromInternal(cacheinfra.DefaultConfig())
}

// Validate checks whether the configuration values are valid.
func (c Config) Validate() error {
	return c.toInternal().Validate()
}

// EntryOptions returns the per entry options derived from c.
func (c Config) EntryOptions() EntryOptions {
	return EntryOptions{SlidingExpiration: c.SlidingExpiration, Size: 1}
}

// NewCacheService constructs the default cache service implementation using the provided configuration.
func NewCacheService(cfg Config, opts ...Option) (CacheService, error) {
	return cacheinfra.NewSturdycService(cfg.toInternal(), opts...)
}

// StatsOf returns the counters of service when it keeps any.
func StatsOf(service CacheService) (Stats, bool) {
	s, ok := service.(interface{ Stats() Stats })
	if !ok {
		return Stats{}, false
	}
	return s.Stats(), true
}

// PrefixRemover is implemented by services that can drop a whole key family.
type PrefixRemover interface {
	RemoveByPrefix(ctx context.Context, prefix string) (int, error)
}

var (
	_ PrefixRemover = (*cacheinfra.Service)(nil)
	_ Peeker        = (*cacheinfra.Service)(nil)
)

func (c Config) toInternal() cacheinfra.Config {
	return cacheinfra.Config{
		Capacity:           c.Capacity,
		NumShards:          c.NumShards,
		TTL:                c.TTL,
		EvictionPercentage: c.EvictionPercentage,
		EvictionInterval:   c.EvictionInterval,
		SlidingExpiration:  c.SlidingExpiration,
	}
}

func convertFromInternal(cfg cacheinfra.Config) Config {
	return Config{
		Capacity:           cfg.Capacity,
		NumShards:          cfg.NumShards,
		TTL:                cfg.TTL,
		EvictionPercentage: cfg.EvictionPercentage,
		EvictionInterval:   cfg.EvictionInterval,
		SlidingExpiration:  cfg.SlidingExpiration,
	}
}
