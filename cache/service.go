package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goliatone/go-catalog-cache/internal/cacheinfra"
)

// DefaultSlidingExpiration is the idle window used for read-through entries.
const DefaultSlidingExpiration = 5 * time.Minute

// EntryOptions controls how a single entry is stored.
type EntryOptions = cacheinfra.EntryOptions

// DefaultEntryOptions returns the options used by the read path: a five
// minute sliding window and a unit size weight.
func DefaultEntryOptions() EntryOptions {
	return EntryOptions{SlidingExpiration: DefaultSlidingExpiration, Size: 1}
}

// ErrInvalidResultType is returned when a cached value does not have the
// type the caller asked for.
var ErrInvalidResultType = errors.New("cache: cached value has unexpected type")

// CacheService is the capability the repository depends on. Implementations
// must be safe for concurrent use. Operations are synchronous; the context
// only carries request scoped values.
type CacheService interface {
	Get(ctx context.Context, key string) (any, bool, error)
	Set(ctx context.Context, key string, value any, opts EntryOptions) error
	Remove(ctx context.Context, key string) error
}

// KeySerializer builds a cache key from a prefix and the arguments of the
// logical query. It must be deterministic.
type KeySerializer interface {
	SerializeKey(prefix string, args ...any) string
}

// FetchFn loads a value from the source of truth. found is false when there
// is nothing to cache.
type FetchFn[T any] func(ctx context.Context) (value T, found bool, err error)

// Source tells where a GetOrFetch value came from.
type Source int

const (
	SourceNone Source = iota
	SourceCache
	SourceStore
)

func (s Source) String() string {
	switch s {
	case SourceCache:
		return "cache"
	case SourceStore:
		return "store"
	default:
		return "none"
	}
}

// OpError reports a failing cache operation.
type OpError struct {
	Op  string
	Key string
	Err error
}

func (e *OpError) Error() string {
	return fmt.Sprintf("cache %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *OpError) Unwrap() error { return e.Err }

// Get is a type-safe wrapper around CacheService.Get. A nil value counts as
// a miss.
func Get[T any](ctx context.Context, service CacheService, key string) (T, bool, error) {
	value, ok, err := service.Get(ctx, key)
	return typed[T]("get", key, value, ok, err)
}

func typed[T any](op, key string, value any, ok bool, err error) (T, bool, error) {
	var zero T
	if err != nil {
		return zero, false, &OpError{Op: op, Key: key, Err: err}
	}
	if !ok || value == nil {
		return zero, false, nil
	}

	v, ok := value.(T)
	if !ok {
		return zero, false, &OpError{Op: op, Key: key, Err: ErrInvalidResultType}
	}
	return v, true, nil
}

// GetOrFetch implements the cache-aside read: a hit short-circuits fetch,
// a miss calls fetch and stores what it found. Cache failures are returned,
// not swallowed.
func GetOrFetch[T any](ctx context.Context, service CacheService, key string, opts EntryOptions, fetch FetchFn[T]) (T, Source, error) {
	var zero T

	cached, hit, err := Get[T](ctx, service, key)
	if err != nil {
		return zero, SourceNone, err
	}
	if hit {
		return cached, SourceCache, nil
	}

	value, found, err := fetch(ctx)
	if err != nil {
		return zero, SourceNone, err
	}
	if !found {
		return value, SourceNone, nil
	}

	if err := service.Set(ctx, key, value, opts); err != nil {
		return zero, SourceNone, &OpError{Op: "set", Key: key, Err: err}
	}
	return value, SourceStore, nil
}
