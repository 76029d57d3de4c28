package pagination

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-query-cache/cache"
)

type filters struct {
	Status string
}

// listing serves n items split into pages of the requested size.
type listing struct {
	n     int
	calls atomic.Int32
}

func (l *listing) fetch(ctx context.Context, req Request[filters]) (Page[int], error) {
	l.calls.Add(1)
	totalPages := (l.n + req.PageSize - 1) / req.PageSize
	start := req.PageIndex * req.PageSize
	end := min(start+req.PageSize, l.n)

	var content []int
	for i := start; i < end; i++ {
		content = append(content, i)
	}
	return Page[int]{
		Window: Window{
			PageIndex:     req.PageIndex,
			PageSize:      req.PageSize,
			TotalElements: l.n,
			TotalPages:    totalPages,
		},
		Content: content,
	}, nil
}

func newThreePageCoordinator() *Coordinator[int, filters] {
	l := &listing{n: 25}
	c := New("news", 12, l.fetch, WithFilters[int](filters{Status: "PUBLISHED"}))
	c.Observe(Window{PageIndex: 0, PageSize: 12, TotalElements: 25, TotalPages: 3})
	return c
}

func TestGoTo_Clamps(t *testing.T) {
	tests := []struct {
		name string
		goTo int
		want int
	}{
		{name: "negative", goTo: -5, want: 0},
		{name: "first", goTo: 0, want: 0},
		{name: "middle", goTo: 1, want: 1},
		{name: "last", goTo: 2, want: 2},
		{name: "past end", goTo: 99, want: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newThreePageCoordinator()
			if got := c.GoTo(tt.goTo); got != tt.want {
				t.Errorf("GoTo(%d) = %d, want %d", tt.goTo, got, tt.want)
			}
			if c.PageIndex() != tt.want {
				t.Errorf("PageIndex() = %d, want %d", c.PageIndex(), tt.want)
			}
		})
	}
}

func TestNextPrevious_Bounds(t *testing.T) {
	c := newThreePageCoordinator()

	if got := c.Previous(); got != 0 {
		t.Errorf("Previous() on first page = %d, want 0", got)
	}

	var pages []int
	for i := 0; i < 5; i++ {
		pages = append(pages, c.Next())
	}
	if diff := cmp.Diff([]int{1, 2, 2, 2, 2}, pages); diff != "" {
		t.Errorf("Next() sequence mismatch (-want +got):\n%s", diff)
	}

	if got := c.Previous(); got != 1 {
		t.Errorf("Previous() = %d, want 1", got)
	}
}

func TestUnknownTotalsClampToFirstPage(t *testing.T) {
	l := &listing{n: 25}
	c := New[int, filters]("news", 12, l.fetch)

	if got := c.GoTo(3); got != 0 {
		t.Errorf("GoTo() before any fetch = %d, want 0", got)
	}
	if got := c.Next(); got != 0 {
		t.Errorf("Next() before any fetch = %d, want 0", got)
	}
	if _, known := c.TotalPages(); known {
		t.Error("totals should be unknown before Observe")
	}
}

func TestEmptyListing(t *testing.T) {
	c := newThreePageCoordinator()
	c.GoTo(2)
	c.Observe(Window{TotalPages: 0})

	if c.PageIndex() != 0 {
		t.Errorf("empty listing should clamp to page 0, got %d", c.PageIndex())
	}
}

func TestObserve_ShrinkingListing(t *testing.T) {
	c := newThreePageCoordinator()
	c.GoTo(2)
	c.Observe(Window{TotalPages: 2})

	if c.PageIndex() != 1 {
		t.Errorf("page should be pulled back into range, got %d", c.PageIndex())
	}
}

func TestSetFilters_ResetsPage(t *testing.T) {
	c := newThreePageCoordinator()
	c.GoTo(2)

	c.SetFilters(filters{Status: "DRAFT"})

	if c.PageIndex() != 0 {
		t.Errorf("expected page 0 after filter change, got %d", c.PageIndex())
	}
	if _, known := c.TotalPages(); known {
		t.Error("totals should be forgotten after filter change")
	}
	if c.Filters().Status != "DRAFT" {
		t.Errorf("unexpected filters %+v", c.Filters())
	}
}

func TestSetFilters_SameFiltersKeepsPage(t *testing.T) {
	c := newThreePageCoordinator()
	c.GoTo(1)
	c.SetFilters(filters{Status: "PUBLISHED"})

	if c.PageIndex() != 1 {
		t.Errorf("unchanged filters should keep the page, got %d", c.PageIndex())
	}
}

func TestKey_ChangesWithPageAndFilters(t *testing.T) {
	serializer := cache.NewDefaultKeySerializer()
	c := newThreePageCoordinator()

	k0 := serializer.SerializeKey(c.Key())
	c.Next()
	k1 := serializer.SerializeKey(c.Key())
	c.Previous()
	k0again := serializer.SerializeKey(c.Key())
	c.SetFilters(filters{Status: "DRAFT"})
	kDraft := serializer.SerializeKey(c.Key())

	if k0 == k1 || k0 == kDraft {
		t.Errorf("keys should differ: %q %q %q", k0, k1, kDraft)
	}
	if k0 != k0again {
		t.Errorf("same page should derive the same key: %q != %q", k0, k0again)
	}

	want := cache.NewKey("news", 0, 12, filters{Status: "DRAFT"})
	if diff := cmp.Diff(want, c.Key()); diff != "" {
		t.Errorf("key mismatch (-want +got):\n%s", diff)
	}
}

func TestQuery_BoundToPageAtCreation(t *testing.T) {
	c := newThreePageCoordinator()
	q := c.Query()
	c.GoTo(2)

	page, err := q.Fetch(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if page.PageIndex != 0 {
		t.Errorf("query fetched page %d, want the page it was created for", page.PageIndex)
	}
}

func TestNew_MinimumPageSize(t *testing.T) {
	c := New[int, filters]("news", 0, (&listing{}).fetch)
	if c.PageSize() != 1 {
		t.Errorf("PageSize() = %d, want 1", c.PageSize())
	}
}

func TestLoad_FeedsTotalsAndReusesPages(t *testing.T) {
	client, err := cache.NewClient(cache.Config{StaleWindow: 5 * time.Minute})
	if err != nil {
		t.Fatal(err)
	}
	l := &listing{n: 25}
	c := New("news", 12, l.fetch, WithFilters[int](filters{Status: "PUBLISHED"}))
	ctx := context.Background()

	st, err := c.Load(ctx, client, nil).Wait(ctx)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if st.Data.TotalPages != 3 || len(st.Data.Content) != 12 {
		t.Errorf("unexpected first page: %+v", st.Data.Window)
	}
	if total, known := c.TotalPages(); !known || total != 3 {
		t.Fatalf("totals not fed back: %d %v", total, known)
	}

	if got := c.GoTo(5); got != 2 {
		t.Fatalf("GoTo(5) = %d, want 2", got)
	}
	st, err = c.Load(ctx, client, nil).Wait(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]int{24}, st.Data.Content); diff != "" {
		t.Errorf("last page content mismatch (-want +got):\n%s", diff)
	}

	// Back navigation is served from cache.
	c.GoTo(0)
	st, _ = c.Load(ctx, client, nil).Wait(ctx)
	if st.Data.PageIndex != 0 {
		t.Errorf("expected page 0, got %d", st.Data.PageIndex)
	}
	if got := l.calls.Load(); got != 2 {
		t.Errorf("expected 2 fetches (pages 0 and 2), got %d", got)
	}
}
