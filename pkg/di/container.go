// Package di is the composition root of the news portal client. A Container
// builds every service once from an AppConfig and hands out the same
// instances for the life of the process.
package di

import (
	"context"
	"errors"
	"net/http"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/goliatone/go-query-cache/cache"
	"github.com/goliatone/go-query-cache/newsapi"
	"github.com/goliatone/go-query-cache/pkg/config"
	"github.com/goliatone/go-query-cache/pkg/logging"
	"github.com/goliatone/go-query-cache/portal"
	"github.com/goliatone/go-query-cache/session"
)

// Container provides dependency injection for the portal services.
type Container struct {
	config config.AppConfig
	logger zerolog.Logger

	cache   *cache.Client
	session *session.Store
	client  *newsapi.Client
	cached  *newsapi.CachedAPI
	api     newsapi.API

	feed       *portal.NewsFeed
	auth       *portal.Auth
	navigation *portal.Navigation

	redis *redis.Client
}

// Option overrides a dependency the container would otherwise build.
type Option func(*options)

type options struct {
	logger     *zerolog.Logger
	storage    session.Storage
	httpClient *http.Client
}

// WithLogger replaces the logger built from the log section.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) { o.logger = &logger }
}

// WithSessionStorage replaces the storage selected by the session section.
func WithSessionStorage(s session.Storage) Option {
	return func(o *options) { o.storage = s }
}

// WithHTTPClient replaces the API client's *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) { o.httpClient = hc }
}

// NewContainer validates cfg and builds every service. A persisted session
// token is restored before it returns.
func NewContainer(ctx context.Context, cfg config.AppConfig, opts ...Option) (*Container, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Container{config: cfg}

	if o.logger != nil {
		c.logger = *o.logger
	} else {
		logger, err := logging.New(cfg.Log, cfg.Name)
		if err != nil {
			return nil, err
		}
		c.logger = logger
	}

	cacheClient, err := cache.NewClient(cfg.Cache, cache.WithLogger(c.logger))
	if err != nil {
		return nil, err
	}
	c.cache = cacheClient

	storage := o.storage
	if storage == nil {
		if storage, err = c.buildStorage(ctx); err != nil {
			return nil, err
		}
	}
	c.session = session.NewStore(storage, session.WithLogger(c.logger))
	if err := c.session.Restore(ctx); err != nil {
		c.logger.Warn().Err(err).Msg("continuing without a restored session")
	}

	clientOpts := []newsapi.Option{
		newsapi.WithTokenSource(c.session),
		newsapi.WithLogger(c.logger),
	}
	if o.httpClient != nil {
		clientOpts = append(clientOpts, newsapi.WithHTTPClient(o.httpClient))
	}
	c.client = newsapi.NewClient(cfg.API, clientOpts...)
	c.api = c.client

	if cfg.DetailCacheEnabled {
		cached, err := newsapi.NewCachedAPI(c.client, cfg.DetailCache)
		if err != nil {
			c.closeRedis()
			return nil, err
		}
		c.cached = cached
		c.api = cached
	}

	c.feed = portal.NewNewsFeed(c.cache, c.api, portal.WithFeedLogger(c.logger))
	c.auth = portal.NewAuth(c.api, c.session, portal.WithAuthLogger(c.logger))
	c.navigation = portal.NewNavigation(c.session)

	c.logger.Debug().
		Str("api", cfg.API.BaseURL).
		Str("session_backend", cfg.Session.Backend).
		Bool("detail_cache", cfg.DetailCacheEnabled).
		Msg("container ready")

	return c, nil
}

func (c *Container) buildStorage(ctx context.Context) (session.Storage, error) {
	switch c.config.Session.Backend {
	case config.BackendRedis:
		rc := c.config.Session.Redis
		client, err := session.NewRedisClient(ctx, rc)
		if err != nil {
			return nil, err
		}
		c.redis = client
		return session.NewRedisStorage(client, rc.Key, rc.TTL), nil
	default:
		return session.NewMemoryStorage(), nil
	}
}

// Config returns the configuration the container was built from.
func (c *Container) Config() config.AppConfig { return c.config }

// Logger returns the root logger.
func (c *Container) Logger() zerolog.Logger { return c.logger }

// Cache returns the query cache.
func (c *Container) Cache() *cache.Client { return c.cache }

// Session returns the session store.
func (c *Container) Session() *session.Store { return c.session }

// API returns the API the portal services use, cached when the detail cache
// is enabled.
func (c *Container) API() newsapi.API { return c.api }

// DetailCache returns the article detail decorator, or nil when disabled.
func (c *Container) DetailCache() *newsapi.CachedAPI { return c.cached }

// Feed returns the home page feed.
func (c *Container) Feed() *portal.NewsFeed { return c.feed }

// Auth returns the login/logout service.
func (c *Container) Auth() *portal.Auth { return c.auth }

// Navigation returns the navigation bar.
func (c *Container) Navigation() *portal.Navigation { return c.navigation }

// Close releases the navigation subscription and the Redis connection.
func (c *Container) Close() error {
	c.navigation.Close()
	return c.closeRedis()
}

func (c *Container) closeRedis() error {
	if c.redis == nil {
		return nil
	}
	err := c.redis.Close()
	c.redis = nil
	if err != nil && !errors.Is(err, redis.ErrClosed) {
		return err
	}
	return nil
}
