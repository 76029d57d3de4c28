package cache

import (
	"context"
	"errors"
)

// ErrInvalidResultType is returned when a cached value does not have the type
// the caller asked for, which happens when two call sites share a key.
var ErrInvalidResultType = errors.New("cache: cached value has unexpected type")

// Fetcher loads the value for a key from the source of truth.
type Fetcher func(ctx context.Context) (any, error)

// FetchFn is the typed form of Fetcher used by the generic helpers.
type FetchFn[T any] func(ctx context.Context) (T, error)

// Erase adapts a typed fetch function to a Fetcher.
func (f FetchFn[T]) Erase() Fetcher {
	return func(ctx context.Context) (any, error) {
		v, err := f(ctx)
		if err != nil {
			return nil, err
		}
		return v, nil
	}
}

// CacheService exposes the query cache operations used by the coordinators
// and UI adapters. It is implemented by *Client; tests may provide their own.
type CacheService interface {
	Read(ctx context.Context, key Key, fetch Fetcher, opts ...ReadOption) *Result
	Invalidate(ctx context.Context, key Key) error
	InvalidatePrefix(ctx context.Context, prefix Key) error
	Remove(ctx context.Context, key Key) error
}

// GetOrFetch reads key and returns its value, blocking only when no usable
// data is cached yet. Stale data is returned immediately while the refetch
// runs in the background.
func GetOrFetch[T any](ctx context.Context, service CacheService, key Key, fetchFn FetchFn[T], opts ...ReadOption) (T, error) {
	var zero T

	res := service.Read(ctx, key, fetchFn.Erase(), opts...)
	snap := res.Snapshot()
	if !snap.HasData || snap.Status == StatusError {
		var err error
		if snap, err = res.Wait(ctx); err != nil {
			return zero, err
		}
	}
	return valueAs[T](snap.Data)
}

func valueAs[T any](v any) (T, error) {
	var zero T
	if v == nil {
		return zero, nil
	}
	typed, ok := v.(T)
	if !ok {
		return zero, ErrInvalidResultType
	}
	return typed, nil
}
