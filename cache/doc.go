// Package cache provides a keyed query cache for asynchronous reads against a
// remote service.
//
// # Overview
//
// The package exports:
//
//   - Client: the cache itself, safe for concurrent use
//   - CacheService: the interface consumers depend on
//   - KeySerializer: canonicalizes Keys so structurally equal keys share an entry
//   - Query / Observe / GetOrFetch: typed helpers built on Read
//
// # Reads
//
// Read never blocks. It returns a *Result immediately and, when needed,
// starts a fetch in the background:
//
//	res := client.Read(ctx, cache.NewKey("news", 0, "PUBLISHED"), fetch,
//		cache.WithListener(func(s cache.Snapshot) {
//			render(s.Status, s.Data, s.Err)
//		}),
//	)
//
// The decision table is:
//
//   - no entry, failed entry, invalidated entry: fetch
//   - entry younger than the stale window: serve cached data, no fetch
//   - stale entry: serve cached data and refetch in the background
//   - fetch already in flight: join it
//
// At most one fetch per key is in flight at any time. A failed fetch is
// retried up to RetryLimit more times, sequentially, before the entry moves to
// StatusError; subscribers never see the intermediate failures.
//
// # Subscribers
//
// Listeners registered with WithListener are called in subscription order for
// every transition of their entry, and transitions of one key are delivered in
// the order they happened. Delivery happens outside the entry lock, so a
// listener may read the entry or start another read of the same key; it must
// not wait on the Done of the fetch it is being notified about.
//
// Unsubscribing does not cancel the fetch: it completes and updates the cache
// for other readers. Fetches run on a context detached from the caller's
// cancellation for the same reason.
//
// # Keys
//
// Keys are ordered tuples. The default serializer tags every scalar with its
// dynamic type, walks slices, arrays, maps (in sorted key order) and exported
// struct fields, and uses MarshalText for types that implement it:
//
//	NewKey("news", 1)        // string:"news"::int:1
//	NewKey("news", int64(1)) // string:"news"::int64:1, a different entry
//
// Function and channel components are identified by address and are only
// stable within a process.
//
// # Invalidation
//
// Entries are never evicted for staleness. Invalidate and InvalidatePrefix
// mark entries so the next read refetches; Remove drops an entry entirely.
package cache
