package config

import (
	"time"

	"github.com/goliatone/go-catalog-cache/cache"
)

type Cache struct {
	Capacity           int           `env:"CACHE_CAPACITY" envDefault:"10000"`
	Shards             int           `env:"CACHE_SHARDS" envDefault:"256"`
	TTL                time.Duration `env:"CACHE_TTL" envDefault:"1h"`
	EvictionPercentage int           `env:"CACHE_EVICTION_PERCENTAGE" envDefault:"10"`
	EvictionInterval   time.Duration `env:"CACHE_EVICTION_INTERVAL" envDefault:"0s"`
	SlidingExpiration  time.Duration `env:"CACHE_SLIDING_EXPIRATION" envDefault:"5m"`
}

// ToCacheConfig converts the environment settings into a cache.Config.
func (c Cache) ToCacheConfig() cache.Config {
	return cache.Config{
		Capacity:           c.Capacity,
		NumShards:          c.Shards,
		TTL:                c.TTL,
		EvictionPercentage: c.EvictionPercentage,
		EvictionInterval:   c.EvictionInterval,
		SlidingExpiration:  c.SlidingExpiration,
	}
}
