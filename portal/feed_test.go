package portal_test

import (
	"context"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-query-cache/apperr"
	"github.com/goliatone/go-query-cache/cache"
	"github.com/goliatone/go-query-cache/internal/cacheinfra"
	"github.com/goliatone/go-query-cache/internal/stubapi"
	"github.com/goliatone/go-query-cache/newsapi"
	"github.com/goliatone/go-query-cache/portal"
	"github.com/goliatone/go-query-cache/session"
)

type harness struct {
	stub  *stubapi.Server
	api   *newsapi.Client
	cache *cache.Client
	store *session.Store
}

func newHarness(t *testing.T, opts ...stubapi.Option) *harness {
	t.Helper()
	stub := stubapi.New(opts...)
	srv := httptest.NewServer(stub)
	t.Cleanup(srv.Close)

	client, err := cache.NewClient(cache.Config{StaleWindow: 5 * time.Minute})
	if err != nil {
		t.Fatalf("cache.NewClient() failed: %v", err)
	}
	store := session.NewStore(nil)
	return &harness{
		stub:  stub,
		api:   newsapi.NewClient(newsapi.Config{BaseURL: srv.URL}, newsapi.WithTokenSource(store)),
		cache: client,
		store: store,
	}
}

func wait[T any](t *testing.T, q *cache.Query[T]) (cache.State[T], error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	st, err := q.Wait(ctx)
	if ctx.Err() != nil {
		t.Fatal("timed out waiting for query")
	}
	return st, err
}

func TestNewsFeed_Defaults(t *testing.T) {
	h := newHarness(t)
	feed := portal.NewNewsFeed(h.cache, h.api)

	want := cache.NewKey("news", 0, 12, newsapi.ListFilters{Status: newsapi.StatusPublished})
	if diff := cmp.Diff(want, feed.Key()); diff != "" {
		t.Errorf("key mismatch (-want +got):\n%s", diff)
	}
	if feed.Status() != newsapi.StatusPublished || feed.Page() != 0 {
		t.Errorf("unexpected defaults: status=%s page=%d", feed.Status(), feed.Page())
	}
}

func TestNewsFeed_Navigation(t *testing.T) {
	h := newHarness(t)
	feed := portal.NewNewsFeed(h.cache, h.api)
	ctx := context.Background()

	st, err := wait(t, feed.Load(ctx, nil))
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if len(st.Data.Content) != 12 || st.Data.Content[0].Title != "Noticia 1" {
		t.Errorf("unexpected first page: %d items", len(st.Data.Content))
	}
	if total, known := feed.TotalPages(); !known || total != 3 {
		t.Fatalf("TotalPages() = %d, %v; want 3, true", total, known)
	}

	if got := feed.GoTo(5); got != 2 {
		t.Fatalf("GoTo(5) = %d, want 2", got)
	}
	if got := feed.Next(); got != 2 {
		t.Errorf("Next() on the last page = %d, want 2", got)
	}
	st, err = wait(t, feed.Load(ctx, nil))
	if err != nil {
		t.Fatal(err)
	}
	if len(st.Data.Content) != 1 || st.Data.Content[0].ID != 25 {
		t.Errorf("unexpected last page: %+v", st.Data.Content)
	}

	feed.Previous()
	if _, err := wait(t, feed.Load(ctx, nil)); err != nil {
		t.Fatal(err)
	}
	feed.Previous()
	st, _ = wait(t, feed.Load(ctx, nil))
	if st.Data.PageIndex != 0 {
		t.Errorf("expected page 0 from cache, got %d", st.Data.PageIndex)
	}

	if got := h.stub.ListCalls(); got != 3 {
		t.Errorf("expected 3 listing requests (pages 0, 2, 1), got %d", got)
	}
}

func TestNewsFeed_ListenerSeesTransitions(t *testing.T) {
	h := newHarness(t)
	feed := portal.NewNewsFeed(h.cache, h.api)

	var (
		mu       sync.Mutex
		statuses []cache.Status
	)
	q := feed.Load(context.Background(), func(s cache.State[portal.FeedPage]) {
		mu.Lock()
		defer mu.Unlock()
		statuses = append(statuses, s.Status)
	})
	wait(t, q)

	mu.Lock()
	defer mu.Unlock()
	if diff := cmp.Diff([]cache.Status{cache.StatusLoading, cache.StatusSuccess}, statuses); diff != "" {
		t.Errorf("transitions mismatch (-want +got):\n%s", diff)
	}
}

func TestNewsFeed_SetStatus(t *testing.T) {
	h := newHarness(t, stubapi.WithArticles(append(
		stubapi.SeedArticles(25, newsapi.StatusPublished),
		newsapi.Article{ID: 100, Title: "Borrador", Status: newsapi.StatusDraft},
	)))
	feed := portal.NewNewsFeed(h.cache, h.api)
	ctx := context.Background()

	wait(t, feed.Load(ctx, nil))
	feed.GoTo(2)

	feed.SetStatus(newsapi.StatusDraft)
	if feed.Page() != 0 {
		t.Errorf("filter change should reset the page, got %d", feed.Page())
	}
	if _, known := feed.TotalPages(); known {
		t.Error("totals of the previous filter must be forgotten")
	}

	st, err := wait(t, feed.Load(ctx, nil))
	if err != nil {
		t.Fatal(err)
	}
	if len(st.Data.Content) != 1 || st.Data.Content[0].ID != 100 {
		t.Errorf("unexpected draft listing: %+v", st.Data.Content)
	}
	if got := feed.GoTo(3); got != 0 {
		t.Errorf("GoTo(3) with one page = %d, want 0", got)
	}
}

func TestNewsFeed_Refresh(t *testing.T) {
	h := newHarness(t)
	feed := portal.NewNewsFeed(h.cache, h.api)
	ctx := context.Background()

	wait(t, feed.Load(ctx, nil))
	wait(t, feed.Article(ctx, 3, nil))

	if err := feed.Refresh(ctx); err != nil {
		t.Fatal(err)
	}

	q := feed.Load(ctx, nil)
	if st := q.State(); !st.HasData || st.Status != cache.StatusSuccess {
		t.Errorf("refresh should keep data while refetching: %+v", st.Status)
	}
	wait(t, q)
	wait(t, feed.Article(ctx, 3, nil))

	if h.stub.ListCalls() != 2 || h.stub.DetailCalls() != 2 {
		t.Errorf("expected a refetch of both: list=%d detail=%d", h.stub.ListCalls(), h.stub.DetailCalls())
	}
}

func TestNewsFeed_RefreshReachesDetailCache(t *testing.T) {
	tests := []struct {
		name    string
		refresh func(ctx context.Context, feed *portal.NewsFeed) error
	}{
		{
			name:    "refresh all",
			refresh: func(ctx context.Context, feed *portal.NewsFeed) error { return feed.Refresh(ctx) },
		},
		{
			name:    "refresh article",
			refresh: func(ctx context.Context, feed *portal.NewsFeed) error { return feed.RefreshArticle(ctx, 3) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			cached, err := newsapi.NewCachedAPI(h.api, cacheinfra.Config{
				Capacity:           100,
				NumShards:          1,
				TTL:                time.Hour,
				EvictionPercentage: 10,
			})
			if err != nil {
				t.Fatalf("NewCachedAPI() failed: %v", err)
			}
			feed := portal.NewNewsFeed(h.cache, cached)
			ctx := context.Background()

			if _, err := wait(t, feed.Article(ctx, 3, nil)); err != nil {
				t.Fatal(err)
			}
			if err := tt.refresh(ctx, feed); err != nil {
				t.Fatal(err)
			}
			st, err := wait(t, feed.Article(ctx, 3, nil))
			if err != nil {
				t.Fatal(err)
			}

			if st.Data.ID != 3 {
				t.Errorf("unexpected article %+v", st.Data)
			}
			if got := h.stub.DetailCalls(); got != 2 {
				t.Errorf("refresh should reach the API, detail calls=%d", got)
			}
		})
	}
}

func TestNewsFeed_Article(t *testing.T) {
	h := newHarness(t)
	feed := portal.NewNewsFeed(h.cache, h.api)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		st, err := wait(t, feed.Article(ctx, 5, nil))
		if err != nil {
			t.Fatalf("Article() failed: %v", err)
		}
		if st.Data.ID != 5 || st.Data.Title != "Noticia 5" {
			t.Errorf("unexpected article %+v", st.Data)
		}
	}
	if h.stub.DetailCalls() != 1 {
		t.Errorf("expected one detail request, got %d", h.stub.DetailCalls())
	}

	st, err := wait(t, feed.Article(ctx, 999, nil, cache.WithRetryLimit(0)))
	if !apperr.IsCode(err, apperr.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if st.Status != cache.StatusError {
		t.Errorf("status = %v, want error", st.Status)
	}
	if msg, _ := apperr.MessageOf(st.Err); msg != stubapi.MsgNewsNotFound {
		t.Errorf("message = %q, want %q", msg, stubapi.MsgNewsNotFound)
	}
}

func TestArticleKey(t *testing.T) {
	want := cache.NewKey("news", "detail", int64(7))
	if diff := cmp.Diff(want, portal.ArticleKey(7)); diff != "" {
		t.Errorf("key mismatch (-want +got):\n%s", diff)
	}
}
