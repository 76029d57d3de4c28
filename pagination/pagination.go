// Package pagination derives cache keys and fetch functions for paged
// listings and keeps the current page inside the known bounds.
//
// Every (page, size, filters) combination is its own cache entry, so moving
// between pages never invalidates what was already fetched and going back is
// served from cache.
package pagination

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/goliatone/go-query-cache/cache"
)

// Window describes one fetched page. TotalElements and TotalPages are only
// authoritative as of the last successful fetch for a filter state.
type Window struct {
	PageIndex     int `json:"number"`
	PageSize      int `json:"size"`
	TotalElements int `json:"totalElements"`
	TotalPages    int `json:"totalPages"`
}

// Page is a Window plus its content.
type Page[T any] struct {
	Window
	Content []T `json:"content"`
}

// Request is what a FetchPage receives.
type Request[F comparable] struct {
	PageIndex int
	PageSize  int
	Filters   F
}

// FetchPage loads one page from the remote listing.
type FetchPage[T any, F comparable] func(ctx context.Context, req Request[F]) (Page[T], error)

// Query is the pair handed to the query cache.
type Query[T any] struct {
	Key   cache.Key
	Fetch cache.FetchFn[Page[T]]
}

// Coordinator tracks the current page of one listing.
type Coordinator[T any, F comparable] struct {
	namespace string
	pageSize  int
	fetch     FetchPage[T, F]
	logger    zerolog.Logger

	mu         sync.Mutex
	pageIndex  int
	filters    F
	totalPages int
	known      bool
}

// Option configures a Coordinator.
type Option[T any, F comparable] func(*Coordinator[T, F])

// WithFilters sets the initial filters.
func WithFilters[T any, F comparable](filters F) Option[T, F] {
	return func(c *Coordinator[T, F]) {
		c.filters = filters
	}
}

// WithLogger sets the logger used for navigation events.
func WithLogger[T any, F comparable](logger zerolog.Logger) Option[T, F] {
	return func(c *Coordinator[T, F]) {
		c.logger = logger.With().Str("component", "pagination").Logger()
	}
}

// New builds a coordinator positioned on page 0. pageSize values below 1 are
// raised to 1.
func New[T any, F comparable](namespace string, pageSize int, fetch FetchPage[T, F], opts ...Option[T, F]) *Coordinator[T, F] {
	if pageSize < 1 {
		pageSize = 1
	}
	c := &Coordinator[T, F]{
		namespace: namespace,
		pageSize:  pageSize,
		fetch:     fetch,
		logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// PageIndex returns the current 0-based page.
func (c *Coordinator[T, F]) PageIndex() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pageIndex
}

// PageSize returns the page size.
func (c *Coordinator[T, F]) PageSize() int {
	return c.pageSize
}

// Filters returns the current filters.
func (c *Coordinator[T, F]) Filters() F {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.filters
}

// TotalPages returns the last observed page count and whether one is known
// for the current filters.
func (c *Coordinator[T, F]) TotalPages() (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.totalPages, c.known
}

// Key returns the cache key of the current page.
func (c *Coordinator[T, F]) Key() cache.Key {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.keyLocked()
}

func (c *Coordinator[T, F]) keyLocked() cache.Key {
	return cache.NewKey(c.namespace, c.pageIndex, c.pageSize, c.filters)
}

// Query returns the key and a fetch bound to the current page. Later
// navigation does not change an already returned Query.
func (c *Coordinator[T, F]) Query() Query[T] {
	c.mu.Lock()
	defer c.mu.Unlock()

	req := Request[F]{PageIndex: c.pageIndex, PageSize: c.pageSize, Filters: c.filters}
	fetch := c.fetch
	return Query[T]{
		Key: c.keyLocked(),
		Fetch: func(ctx context.Context) (Page[T], error) {
			return fetch(ctx, req)
		},
	}
}

// Next moves forward one page. It is a no-op on the last page or when the
// page count is unknown.
func (c *Coordinator[T, F]) Next() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pageIndex < c.lastPageLocked() {
		c.pageIndex++
	}
	return c.pageIndex
}

// Previous moves back one page. It is a no-op on page 0.
func (c *Coordinator[T, F]) Previous() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pageIndex > 0 {
		c.pageIndex--
	}
	return c.pageIndex
}

// GoTo moves to pageIndex, clamped into [0, totalPages-1]. Out of range
// requests are clamped silently.
func (c *Coordinator[T, F]) GoTo(pageIndex int) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pageIndex = clamp(pageIndex, 0, c.lastPageLocked())
	if c.pageIndex != pageIndex {
		c.logger.Debug().Int("requested", pageIndex).Int("page", c.pageIndex).Msg("page clamped")
	}
	return c.pageIndex
}

// SetFilters changes the filters, returns to page 0 and forgets the page
// count until the next successful fetch.
func (c *Coordinator[T, F]) SetFilters(filters F) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if filters == c.filters {
		return
	}
	c.filters = filters
	c.pageIndex = 0
	c.totalPages = 0
	c.known = false
}

// Observe records the totals reported by a successful fetch of the current
// filters. The current page is pulled back in range if the listing shrank.
func (c *Coordinator[T, F]) Observe(w Window) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.totalPages = max(w.TotalPages, 0)
	c.known = true
	c.pageIndex = clamp(c.pageIndex, 0, c.lastPageLocked())
}

// Load reads the current page through svc. Totals are fed back from every
// successful snapshot of this read before listener, which may be nil, sees it.
func (c *Coordinator[T, F]) Load(ctx context.Context, svc cache.CacheService, listener func(cache.State[Page[T]]), opts ...cache.ReadOption) *cache.Query[Page[T]] {
	c.mu.Lock()
	filters := c.filters
	c.mu.Unlock()

	feed := func(s cache.State[Page[T]]) {
		if s.Status == cache.StatusSuccess && s.HasData {
			c.observeFor(filters, s.Data.Window)
		}
		if listener != nil {
			listener(s)
		}
	}

	q := c.Query()
	query := cache.Observe(ctx, svc, q.Key, q.Fetch, feed, opts...)
	// Pages served from cache produce no transition.
	if st := query.State(); st.Status == cache.StatusSuccess && st.HasData {
		c.observeFor(filters, st.Data.Window)
	}
	return query
}

// observeFor ignores totals of a filter state that is no longer current.
func (c *Coordinator[T, F]) observeFor(filters F, w Window) {
	c.mu.Lock()
	current := c.filters == filters
	c.mu.Unlock()
	if current {
		c.Observe(w)
	}
}

func (c *Coordinator[T, F]) lastPageLocked() int {
	if !c.known || c.totalPages < 1 {
		return 0
	}
	return c.totalPages - 1
}

func clamp(v, lo, hi int) int {
	return min(max(v, lo), hi)
}
