package cacheinfra

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
	"github.com/viccon/sturdyc"

	"github.com/goliatone/go-catalog-cache/pkg/clock"
)

// Config holds the configuration for the sturdyc cache adapter.
type Config struct {
	// Capacity defines the maximum number of entries that the cache can store.
	// Must be greater than 0.
	Capacity int

	// NumShards determines the number of cache shards for concurrent access.
	// Must be greater than 0. Default: 256
	NumShards int

	// TTL is the absolute lifetime of an entry, regardless of access.
	// Must be greater than 0.
	TTL time.Duration

	// EvictionPercentage specifies what percentage of entries to evict
	// when the cache reaches its capacity. Must be between 1-100.
	EvictionPercentage int

	// EvictionInterval sets how often the cache checks for expired entries.
	// Zero value uses the sturdyc default.
	EvictionInterval time.Duration

	// SlidingExpiration is the idle window applied to entries stored without
	// an explicit one. Must not exceed TTL.
	SlidingExpiration time.Duration
}

// EntryOptions controls how a single entry is stored.
type EntryOptions struct {
	// SlidingExpiration evicts the entry once it has not been read for this
	// long. Zero falls back to Config.SlidingExpiration.
	SlidingExpiration time.Duration

	// Size is the weight of the entry. Capacity is counted in entries, so the
	// only supported weights are 1 and 0, which means 1.
	Size int
}

// DefaultConfig returns a Config with sensible defaults for most use cases.
func DefaultConfig() Config {
	return Config{
		Capacity:           10000,
		NumShards:          256,
		TTL:                time.Hour,
		EvictionPercentage: 10,
		EvictionInterval:   0,
		SlidingExpiration:  5 * time.Minute,
	}
}

// ToSturdycOptions converts the Config to sturdyc.Option slice. Capacity,
// NumShards, TTL and EvictionPercentage go to sturdyc.New directly.
func (c Config) ToSturdycOptions() []sturdyc.Option {
	var options []sturdyc.Option

	if c.EvictionInterval > 0 {
		options = append(options, sturdyc.WithEvictionInterval(c.EvictionInterval))
	}

	return options
}

// Validate checks if the configuration values are valid.
func (c Config) Validate() error {
	if c.Capacity <= 0 {
		return &ConfigError{Field: "Capacity", Message: "must be greater than 0"}
	}

	if c.NumShards <= 0 {
		return &ConfigError{Field: "NumShards", Message: "must be greater than 0"}
	}

	if c.TTL <= 0 {
		return &ConfigError{Field: "TTL", Message: "must be greater than 0"}
	}

	if c.EvictionPercentage < 1 || c.EvictionPercentage > 100 {
		return &ConfigError{Field: "EvictionPercentage", Message: "must be between 1 and 100"}
	}

	if c.EvictionInterval < 0 {
		return &ConfigError{Field: "EvictionInterval", Message: "must be non-negative"}
	}

	if c.SlidingExpiration < 0 {
		return &ConfigError{Field: "SlidingExpiration", Message: "must be non-negative"}
	}

	if c.SlidingExpiration > c.TTL {
		return &ConfigError{Field: "SlidingExpiration", Message: "must not exceed TTL"}
	}

	return nil
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return "config error in field " + e.Field + ": " + e.Message
}

// Stats is a point in time view of the cache counters.
type Stats struct {
	Hits        int64
	Misses      int64
	Sets        int64
	Removes     int64
	Expirations int64
	Size        int
}

// Option configures a Service.
type Option func(*Service)

// WithClock replaces the clock used to track idle time.
func WithClock(clk clock.Clock) Option {
	return func(s *Service) {
		s.clock = clock.OrReal(clk)
	}
}

type entry struct {
	value      any
	sliding    time.Duration
	lastAccess atomic.Int64
}

func (e *entry) idle(now time.Time) bool {
	if e.sliding <= 0 {
		return false
	}
	return now.UnixNano()-e.lastAccess.Load() > int64(e.sliding)
}

// Service wraps a sturdyc client and layers per entry sliding expiration on
// top of the client's absolute TTL.
type Service struct {
	client         *sturdyc.Client[*entry]
	clock          clock.Clock
	defaultSliding time.Duration

	hits        *xsync.Counter
	misses      *xsync.Counter
	sets        *xsync.Counter
	removes     *xsync.Counter
	expirations *xsync.Counter
}

// NewSturdycService creates a new sturdyc cache service adapter.
func NewSturdycService(cfg Config, opts ...Option) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client := sturdyc.New[*entry](
		cfg.Capacity,
		cfg.NumShards,
		cfg.TTL,
		cfg.EvictionPercentage,
		cfg.ToSturdycOptions()...,
	)

	s := &Service{
		client:         client,
		clock:          clock.NewRealClock(),
		defaultSliding: cfg.SlidingExpiration,
		hits:           xsync.NewCounter(),
		misses:         xsync.NewCounter(),
		sets:           xsync.NewCounter(),
		removes:        xsync.NewCounter(),
		expirations:    xsync.NewCounter(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Get returns the value stored under key. Reading an entry resets its idle
// window; an entry idle for longer than its window is dropped and reported
// as a miss.
func (s *Service) Get(_ context.Context, key string) (any, bool, error) {
	e, ok := s.client.Get(key)
	if !ok || e == nil {
		s.misses.Inc()
		return nil, false, nil
	}

	now := s.clock.Now()
	if e.idle(now) {
		s.client.Delete(key)
		s.expirations.Inc()
		s.misses.Inc()
		return nil, false, nil
	}

	e.lastAccess.Store(now.UnixNano())
	s.hits.Inc()
	return e.value, true, nil
}

// Peek returns the value stored under key without refreshing its idle
// window or touching the counters. An idle entry reads as missing.
func (s *Service) Peek(_ context.Context, key string) (any, bool, error) {
	e, ok := s.client.Get(key)
	if !ok || e == nil || e.idle(s.clock.Now()) {
		return nil, false, nil
	}
	return e.value, true, nil
}

// Set stores value under key.
func (s *Service) Set(_ context.Context, key string, value any, opts EntryOptions) error {
	if opts.SlidingExpiration < 0 {
		return &ConfigError{Field: "SlidingExpiration", Message: "must be non-negative"}
	}
	if opts.Size < 0 || opts.Size > 1 {
		return &ConfigError{Field: "Size", Message: "must be 0 or 1"}
	}

	sliding := opts.SlidingExpiration
	if sliding == 0 {
		sliding = s.defaultSliding
	}
	e := &entry{value: value, sliding: sliding}
	e.lastAccess.Store(s.clock.Now().UnixNano())

	s.client.Set(key, e)
	s.sets.Inc()
	return nil
}

// Remove deletes key. Removing a missing key is a no-op.
func (s *Service) Remove(_ context.Context, key string) error {
	s.client.Delete(key)
	s.removes.Inc()
	return nil
}

// RemoveByPrefix deletes every key starting with prefix and returns how many
// keys were removed.
func (s *Service) RemoveByPrefix(_ context.Context, prefix string) (int, error) {
	removed := 0
	for _, key := range s.client.ScanKeys() {
		if strings.HasPrefix(key, prefix) {
			s.client.Delete(key)
			s.removes.Inc()
			removed++
		}
	}
	return removed, nil
}

// Stats returns the current counters.
func (s *Service) Stats() Stats {
	return Stats{
		Hits:        s.hits.Value(),
		Misses:      s.misses.Value(),
		Sets:        s.sets.Value(),
		Removes:     s.removes.Value(),
		Expirations: s.expirations.Value(),
		Size:        s.client.Size(),
	}
}
