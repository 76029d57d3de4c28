// Package config loads the news portal client configuration.
//
// Values are layered: built in defaults, then an optional YAML file, then
// environment variables prefixed with NEWSPORTAL_ (optionally read from a
// .env file). Nested keys map to variables by replacing dots with
// underscores, so cache.stale_window is NEWSPORTAL_CACHE_STALE_WINDOW.
package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/goliatone/go-query-cache/cache"
	"github.com/goliatone/go-query-cache/internal/cacheinfra"
	"github.com/goliatone/go-query-cache/internal/validate"
	"github.com/goliatone/go-query-cache/newsapi"
	"github.com/goliatone/go-query-cache/pkg/logging"
	"github.com/goliatone/go-query-cache/session"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "NEWSPORTAL"

// Session storage backends.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// ConfigError represents a configuration validation error.
type ConfigError = validate.FieldError

// SessionConfig selects where the session token is persisted.
type SessionConfig struct {
	Backend string              `mapstructure:"backend" validate:"oneof=memory redis"`
	Redis   session.RedisConfig `mapstructure:"redis"`
}

// AppConfig is the full client configuration.
type AppConfig struct {
	Name        string            `mapstructure:"name" validate:"required"`
	Log         logging.Config    `mapstructure:"log"`
	Cache       cache.Config      `mapstructure:"cache"`
	API         newsapi.Config    `mapstructure:"api"`
	Session     SessionConfig     `mapstructure:"session"`
	DetailCache cacheinfra.Config `mapstructure:"detail_cache"`

	// DetailCacheEnabled puts the sturdyc detail cache in front of the API.
	DetailCacheEnabled bool `mapstructure:"detail_cache_enabled"`
}

// Default returns the configuration used when nothing is overridden.
func Default() AppConfig {
	return AppConfig{
		Name:  "newsportal",
		Log:   logging.DefaultConfig(),
		Cache: cache.DefaultConfig(),
		API: newsapi.Config{
			BaseURL: "http://localhost:8080",
		},
		Session: SessionConfig{
			Backend: BackendMemory,
			Redis: session.RedisConfig{
				Addr: "localhost:6379",
				Key:  session.DefaultKey,
			},
		},
		DetailCache:        cacheinfra.DefaultConfig(),
		DetailCacheEnabled: true,
	}
}

// Validate checks every section.
func (c AppConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.Session.Backend == BackendRedis && c.Session.Redis.Addr == "" {
		return &ConfigError{Field: "session.redis.addr", Message: "is required"}
	}
	return nil
}

type loader struct {
	configFile string
	envFile    string
}

// Option configures Load.
type Option func(*loader)

// WithConfigFile reads path as YAML. A missing file is an error.
func WithConfigFile(path string) Option {
	return func(l *loader) { l.configFile = path }
}

// WithEnvFile loads path into the environment before overrides are read.
// Variables already set take precedence.
func WithEnvFile(path string) Option {
	return func(l *loader) { l.envFile = path }
}

// Load builds and validates the configuration.
func Load(opts ...Option) (AppConfig, error) {
	var l loader
	for _, opt := range opts {
		opt(&l)
	}

	v := viper.New()
	setDefaults(v, Default())

	if l.configFile != "" {
		v.SetConfigFile(l.configFile)
		if err := v.ReadInConfig(); err != nil {
			return AppConfig{}, fmt.Errorf("config: read %s: %w", l.configFile, err)
		}
	}

	if l.envFile != "" {
		if err := godotenv.Load(l.envFile); err != nil {
			return AppConfig{}, fmt.Errorf("config: load env file %s: %w", l.envFile, err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return AppConfig{}, fmt.Errorf("config: decode: %w", err)
	}
	cfg.Log.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return AppConfig{}, err
	}
	return cfg, nil
}

// setDefaults registers every key so environment overrides are picked up by
// Unmarshal.
func setDefaults(v *viper.Viper, d AppConfig) {
	v.SetDefault("name", d.Name)
	v.SetDefault("detail_cache_enabled", d.DetailCacheEnabled)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("log.output", d.Log.Output)
	v.SetDefault("log.no_color", d.Log.NoColor)
	v.SetDefault("log.timestamp", d.Log.Timestamp)
	v.SetDefault("log.caller", d.Log.Caller)

	v.SetDefault("cache.stale_window", d.Cache.StaleWindow)
	v.SetDefault("cache.retry_limit", d.Cache.RetryLimit)
	v.SetDefault("cache.retry_delay", d.Cache.RetryDelay)

	v.SetDefault("api.base_url", d.API.BaseURL)
	v.SetDefault("api.timeout", d.API.Timeout)

	v.SetDefault("session.backend", d.Session.Backend)
	v.SetDefault("session.redis.addr", d.Session.Redis.Addr)
	v.SetDefault("session.redis.password", d.Session.Redis.Password)
	v.SetDefault("session.redis.db", d.Session.Redis.DB)
	v.SetDefault("session.redis.pool_size", d.Session.Redis.PoolSize)
	v.SetDefault("session.redis.key", d.Session.Redis.Key)
	v.SetDefault("session.redis.ttl", d.Session.Redis.TTL)

	v.SetDefault("detail_cache.capacity", d.DetailCache.Capacity)
	v.SetDefault("detail_cache.num_shards", d.DetailCache.NumShards)
	v.SetDefault("detail_cache.ttl", d.DetailCache.TTL)
	v.SetDefault("detail_cache.eviction_percentage", d.DetailCache.EvictionPercentage)
	v.SetDefault("detail_cache.missing_record_storage", d.DetailCache.MissingRecordStorage)
	v.SetDefault("detail_cache.eviction_interval", d.DetailCache.EvictionInterval)
	if er := d.DetailCache.EarlyRefresh; er != nil {
		v.SetDefault("detail_cache.early_refresh.min_async_refresh_time", er.MinAsyncRefreshTime)
		v.SetDefault("detail_cache.early_refresh.max_async_refresh_time", er.MaxAsyncRefreshTime)
		v.SetDefault("detail_cache.early_refresh.sync_refresh_time", er.SyncRefreshTime)
		v.SetDefault("detail_cache.early_refresh.retry_base_delay", er.RetryBaseDelay)
	}
}
