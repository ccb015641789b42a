package cache

import (
	"context"
	"fmt"
	"log/slog"
)

// KeyFailure is one key an invalidation could not remove.
type KeyFailure struct {
	Key string
	Err error
}

// Invalidation summarises an advisory invalidation.
type Invalidation struct {
	Removed []string
	Failed  []KeyFailure
}

// Complete reports whether every key was removed.
func (i Invalidation) Complete() bool { return len(i.Failed) == 0 }

// Invalidate removes keys from service on a best-effort basis. Each key is
// attempted independently; a failing or panicking removal is logged at warn
// level and skipped. Invalidate never returns an error. Duplicate and empty
// keys are ignored.
func Invalidate(ctx context.Context, service CacheService, logger *slog.Logger, keys ...string) Invalidation {
	var out Invalidation
	if service == nil {
		return out
	}

	seen := make(map[string]struct{}, len(keys))
	for _, key := range keys {
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		if err := removeGuarded(ctx, service, key); err != nil {
			out.Failed = append(out.Failed, KeyFailure{Key: key, Err: err})
			if logger != nil {
				logger.WarnContext(ctx, "cache invalidation failed", "key", key, "error", err)
			}
			continue
		}
		out.Removed = append(out.Removed, key)
	}

	return out
}

// InvalidatePrefix drops every key under prefix when service supports it.
// Like Invalidate, failing or panicking removals are logged and otherwise
// ignored.
func InvalidatePrefix(ctx context.Context, service CacheService, logger *slog.Logger, prefix string) int {
	remover, ok := service.(PrefixRemover)
	if !ok {
		return 0
	}

	removed, err := removePrefixGuarded(ctx, remover, prefix)
	if err != nil && logger != nil {
		logger.WarnContext(ctx, "cache prefix invalidation failed", "prefix", prefix, "error", err)
	}
	return removed
}

// Peeker is implemented by services that can read an entry without
// refreshing its idle window or counting the read.
type Peeker interface {
	Peek(ctx context.Context, key string) (any, bool, error)
}

// Peek reads key like Get, going through Peeker when service has it. A
// panicking read is returned as an error.
func Peek[T any](ctx context.Context, service CacheService, key string) (value T, found bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			var zero T
			value, found = zero, false
			err = &OpError{Op: "peek", Key: key, Err: fmt.Errorf("cache get panicked: %v", r)}
		}
	}()

	if service == nil {
		return value, false, nil
	}
	if p, ok := service.(Peeker); ok {
		raw, hit, perr := p.Peek(ctx, key)
		return typed[T]("peek", key, raw, hit, perr)
	}
	return Get[T](ctx, service, key)
}

func removeGuarded(ctx context.Context, service CacheService, key string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("cache remove panicked: %v", r)
		}
	}()
	return service.Remove(ctx, key)
}

func removePrefixGuarded(ctx context.Context, remover PrefixRemover, prefix string) (removed int, err error) {
	defer func() {
		if r := recover(); r != nil {
			removed, err = 0, fmt.Errorf("cache prefix remove panicked: %v", r)
		}
	}()
	return remover.RemoveByPrefix(ctx, prefix)
}
