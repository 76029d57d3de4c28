package cacheinfra

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/viccon/sturdyc"

	"github.com/goliatone/go-query-cache/internal/validate"
)

// ErrMissing is returned for keys whose last fetch reported the record as
// not found, while that result is still cached.
var ErrMissing = errors.New("cacheinfra: record is missing")

// Config holds the configuration for the sturdyc backed store.
type Config struct {
	// Capacity defines the maximum number of entries that the cache can store.
	Capacity int `mapstructure:"capacity" validate:"gt=0"`

	// NumShards determines the number of cache shards for concurrent access.
	// Higher values improve concurrency but increase memory overhead.
	NumShards int `mapstructure:"num_shards" validate:"gt=0"`

	// TTL is the default time-to-live for cached entries.
	TTL time.Duration `mapstructure:"ttl" validate:"gt=0"`

	// EvictionPercentage specifies what percentage of entries to evict
	// when the cache reaches its capacity.
	EvictionPercentage int `mapstructure:"eviction_percentage" validate:"min=1,max=100"`

	// EarlyRefresh configures early refresh behavior for cached entries.
	// If nil, early refresh is disabled.
	EarlyRefresh *EarlyRefreshConfig `mapstructure:"early_refresh"`

	// MissingRecordStorage remembers keys that returned not found so repeated
	// lookups of a deleted article do not hit the API.
	MissingRecordStorage bool `mapstructure:"missing_record_storage"`

	// EvictionInterval sets how often the cache checks for expired entries.
	// Zero value uses the default interval.
	EvictionInterval time.Duration `mapstructure:"eviction_interval" validate:"gte=0"`
}

// EarlyRefreshConfig configures early refresh behavior.
// Early refresh prevents cache stampedes by refreshing entries
// before they expire when they're frequently accessed.
type EarlyRefreshConfig struct {
	MinAsyncRefreshTime time.Duration `mapstructure:"min_async_refresh_time" validate:"gte=0"`
	MaxAsyncRefreshTime time.Duration `mapstructure:"max_async_refresh_time" validate:"gte=0"`
	SyncRefreshTime     time.Duration `mapstructure:"sync_refresh_time" validate:"gte=0"`
	RetryBaseDelay      time.Duration `mapstructure:"retry_base_delay" validate:"gte=0"`
}

// DefaultConfig returns the settings used for article detail caching.
func DefaultConfig() Config {
	return Config{
		Capacity:           2000,
		NumShards:          16,
		TTL:                5 * time.Minute,
		EvictionPercentage: 10,
		EarlyRefresh: &EarlyRefreshConfig{
			MinAsyncRefreshTime: 2 * time.Minute,
			MaxAsyncRefreshTime: 3 * time.Minute,
			SyncRefreshTime:     4 * time.Minute,
			RetryBaseDelay:      250 * time.Millisecond,
		},
		MissingRecordStorage: true,
	}
}

// ToSturdycOptions converts the Config to sturdyc options. Capacity,
// NumShards, TTL and EvictionPercentage are constructor arguments and are not
// included.
func (c Config) ToSturdycOptions() []sturdyc.Option {
	var options []sturdyc.Option

	if c.EarlyRefresh != nil {
		options = append(options, sturdyc.WithEarlyRefreshes(
			c.EarlyRefresh.MinAsyncRefreshTime,
			c.EarlyRefresh.MaxAsyncRefreshTime,
			c.EarlyRefresh.SyncRefreshTime,
			c.EarlyRefresh.RetryBaseDelay,
		))
	}

	if c.MissingRecordStorage {
		options = append(options, sturdyc.WithMissingRecordStorage())
	}

	if c.EvictionInterval > 0 {
		options = append(options, sturdyc.WithEvictionInterval(c.EvictionInterval))
	}

	return options
}

// Validate checks if the configuration values are valid.
func (c Config) Validate() error {
	return validate.Struct(c)
}

// ConfigError represents a configuration validation error.
type ConfigError = validate.FieldError

// Store is a typed, TTL based cache in front of a slow lookup.
type Store[T any] struct {
	client   *sturdyc.Client[T]
	notFound func(error) bool
}

// StoreOption configures a Store.
type StoreOption[T any] func(*Store[T])

// WithNotFound marks errors that mean the record does not exist. With
// MissingRecordStorage enabled those results are cached and reported as
// ErrMissing until they expire.
func WithNotFound[T any](fn func(error) bool) StoreOption[T] {
	return func(s *Store[T]) {
		s.notFound = fn
	}
}

// NewStore validates cfg and builds a sturdyc client for values of type T.
func NewStore[T any](cfg Config, opts ...StoreOption[T]) (*Store[T], error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Store[T]{
		client: sturdyc.New[T](
			cfg.Capacity,
			cfg.NumShards,
			cfg.TTL,
			cfg.EvictionPercentage,
			cfg.ToSturdycOptions()...,
		),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// GetOrFetch returns the cached value for key or calls fetch, caching its
// result. Concurrent calls for the same key share one fetch.
func (s *Store[T]) GetOrFetch(ctx context.Context, key string, fetch func(ctx context.Context) (T, error)) (T, error) {
	v, err := s.client.GetOrFetch(ctx, key, func(ctx context.Context) (T, error) {
		v, err := fetch(ctx)
		if err != nil && s.notFound != nil && s.notFound(err) {
			var zero T
			return zero, sturdyc.ErrNotFound
		}
		return v, err
	})
	if errors.Is(err, sturdyc.ErrMissingRecord) || errors.Is(err, sturdyc.ErrNotFound) {
		return v, ErrMissing
	}
	return v, err
}

// Get returns the cached value without fetching.
func (s *Store[T]) Get(key string) (T, bool) {
	return s.client.Get(key)
}

// Set stores v under key.
func (s *Store[T]) Set(key string, v T) {
	s.client.Set(key, v)
}

// Delete removes a single entry.
func (s *Store[T]) Delete(key string) {
	s.client.Delete(key)
}

// DeleteByPrefix removes every entry whose key starts with prefix.
func (s *Store[T]) DeleteByPrefix(prefix string) {
	for _, key := range s.client.ScanKeys() {
		if strings.HasPrefix(key, prefix) {
			s.client.Delete(key)
		}
	}
}

// Size returns the number of cached entries, missing records included.
func (s *Store[T]) Size() int {
	return s.client.Size()
}
