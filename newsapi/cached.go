package newsapi

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/goliatone/go-query-cache/apperr"
	"github.com/goliatone/go-query-cache/internal/cacheinfra"
	"github.com/goliatone/go-query-cache/pagination"
)

var _ API = (*CachedAPI)(nil)

const detailKeyPrefix = "news:detail:"

// CachedAPI decorates an API with a TTL cache for article details. Reads of
// an article that does not exist are remembered for the TTL as well.
type CachedAPI struct {
	base    API
	details *cacheinfra.Store[Article]
}

// NewCachedAPI wraps base. cfg configures the detail store.
func NewCachedAPI(base API, cfg cacheinfra.Config) (*CachedAPI, error) {
	details, err := cacheinfra.NewStore(cfg, cacheinfra.WithNotFound[Article](func(err error) bool {
		return apperr.IsCode(err, apperr.CodeNotFound)
	}))
	if err != nil {
		return nil, err
	}
	return &CachedAPI{base: base, details: details}, nil
}

// ListNews passes through; list pages are cached by the query cache.
func (c *CachedAPI) ListNews(ctx context.Context, params ListParams) (pagination.Page[Article], error) {
	return c.base.ListNews(ctx, params)
}

// GetNewsByID serves the article from the detail store when present.
func (c *CachedAPI) GetNewsByID(ctx context.Context, id int64) (Article, error) {
	article, err := c.details.GetOrFetch(ctx, detailKey(id), func(ctx context.Context) (Article, error) {
		return c.base.GetNewsByID(ctx, id)
	})
	if errors.Is(err, cacheinfra.ErrMissing) {
		return Article{}, apperr.NotFound(fmt.Sprintf("news %d not found", id))
	}
	return article, err
}

// Login passes through; credentials are never cached.
func (c *CachedAPI) Login(ctx context.Context, creds Credentials) (AuthResponse, error) {
	return c.base.Login(ctx, creds)
}

// Forget drops the cached copy of an article.
func (c *CachedAPI) Forget(id int64) {
	c.details.Delete(detailKey(id))
}

// ForgetAll drops every cached article.
func (c *CachedAPI) ForgetAll() {
	c.details.DeleteByPrefix(detailKeyPrefix)
}

func detailKey(id int64) string {
	return detailKeyPrefix + strconv.FormatInt(id, 10)
}
