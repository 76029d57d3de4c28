// Package portal wires the query cache, mutation runner, session store and
// pagination coordinator into the services the news portal screens use:
// the home page feed, the article detail, login/logout and the navigation
// bar with its route guard.
package portal

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/goliatone/go-query-cache/cache"
	"github.com/goliatone/go-query-cache/newsapi"
	"github.com/goliatone/go-query-cache/pagination"
)

const (
	// NewsNamespace is the first component of every news cache key.
	NewsNamespace = "news"

	// FeedPageSize is the home page listing size.
	FeedPageSize = 12
)

// FeedPage is one page of the news listing.
type FeedPage = pagination.Page[newsapi.Article]

// DetailForgetter drops article copies kept below the query cache.
// *newsapi.CachedAPI implements it.
type DetailForgetter interface {
	Forget(id int64)
	ForgetAll()
}

// NewsFeed is the paged listing on the home page.
type NewsFeed struct {
	cache   cache.CacheService
	api     newsapi.API
	details DetailForgetter
	pages  *pagination.Coordinator[newsapi.Article, newsapi.ListFilters]
	logger zerolog.Logger
}

// FeedOption configures a NewsFeed.
type FeedOption func(*feedOptions)

type feedOptions struct {
	pageSize int
	status   string
	logger   zerolog.Logger
}

// WithPageSize overrides FeedPageSize.
func WithPageSize(n int) FeedOption {
	return func(o *feedOptions) {
		o.pageSize = n
	}
}

// WithStatus sets the initial status filter. Defaults to PUBLISHED.
func WithStatus(status string) FeedOption {
	return func(o *feedOptions) {
		o.status = status
	}
}

// WithFeedLogger sets the feed logger.
func WithFeedLogger(logger zerolog.Logger) FeedOption {
	return func(o *feedOptions) {
		o.logger = logger
	}
}

// NewNewsFeed builds a feed positioned on the first page of published news.
// When api also caches article details, Refresh and RefreshArticle drop
// those copies so the refetch reaches the server.
func NewNewsFeed(svc cache.CacheService, api newsapi.API, opts ...FeedOption) *NewsFeed {
	o := feedOptions{
		pageSize: FeedPageSize,
		status:   newsapi.StatusPublished,
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	fetch := func(ctx context.Context, req pagination.Request[newsapi.ListFilters]) (FeedPage, error) {
		return api.ListNews(ctx, newsapi.ListParams{
			Page:   req.PageIndex,
			Size:   req.PageSize,
			Status: req.Filters.Status,
		})
	}

	details, _ := api.(DetailForgetter)

	return &NewsFeed{
		cache:   svc,
		api:     api,
		details: details,
		pages: pagination.New(NewsNamespace, o.pageSize, fetch,
			pagination.WithFilters[newsapi.Article](newsapi.ListFilters{Status: o.status}),
			pagination.WithLogger[newsapi.Article, newsapi.ListFilters](o.logger),
		),
		logger: o.logger.With().Str("component", "feed").Logger(),
	}
}

// Load reads the current page. listener, when not nil, receives every
// transition of that page's cache entry.
func (f *NewsFeed) Load(ctx context.Context, listener func(cache.State[FeedPage]), opts ...cache.ReadOption) *cache.Query[FeedPage] {
	return f.pages.Load(ctx, f.cache, listener, opts...)
}

// Page returns the current 0-based page index.
func (f *NewsFeed) Page() int { return f.pages.PageIndex() }

// TotalPages returns the last known page count.
func (f *NewsFeed) TotalPages() (int, bool) { return f.pages.TotalPages() }

// Next moves to the following page.
func (f *NewsFeed) Next() int { return f.pages.Next() }

// Previous moves to the preceding page.
func (f *NewsFeed) Previous() int { return f.pages.Previous() }

// GoTo moves to page, clamped into the known range.
func (f *NewsFeed) GoTo(page int) int { return f.pages.GoTo(page) }

// Status returns the active status filter.
func (f *NewsFeed) Status() string { return f.pages.Filters().Status }

// SetStatus changes the status filter and returns to the first page.
func (f *NewsFeed) SetStatus(status string) {
	f.pages.SetFilters(newsapi.ListFilters{Status: status})
}

// Key returns the cache key of the current page.
func (f *NewsFeed) Key() cache.Key { return f.pages.Key() }

// Refresh marks every cached listing page and article as stale.
func (f *NewsFeed) Refresh(ctx context.Context) error {
	f.logger.Debug().Msg("refreshing news")
	if f.details != nil {
		f.details.ForgetAll()
	}
	return f.cache.InvalidatePrefix(ctx, cache.NewKey(NewsNamespace))
}

// RefreshArticle marks one article as stale.
func (f *NewsFeed) RefreshArticle(ctx context.Context, id int64) error {
	if f.details != nil {
		f.details.Forget(id)
	}
	return f.cache.Invalidate(ctx, ArticleKey(id))
}

// ArticleKey is the cache key of an article detail.
func ArticleKey(id int64) cache.Key {
	return cache.NewKey(NewsNamespace, "detail", id)
}

// Article reads one article through the query cache.
func (f *NewsFeed) Article(ctx context.Context, id int64, listener func(cache.State[newsapi.Article]), opts ...cache.ReadOption) *cache.Query[newsapi.Article] {
	fetch := func(ctx context.Context) (newsapi.Article, error) {
		return f.api.GetNewsByID(ctx, id)
	}
	return cache.Observe(ctx, f.cache, ArticleKey(id), fetch, listener, opts...)
}
