package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/newmo-oss/ctxtime"
	"github.com/puzpuzpuz/xsync/v3"
	"github.com/rs/zerolog"

	"github.com/goliatone/go-query-cache/apperr"
)

var _ CacheService = (*Client)(nil)

// Client is the query cache. Entries live for the lifetime of the Client
// unless removed; staleness only decides whether a read triggers a fetch.
type Client struct {
	config     Config
	serializer KeySerializer
	logger     zerolog.Logger
	entries    *xsync.MapOf[string, *entry]
}

// NewClient validates cfg and builds an empty cache.
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Client{
		config:     cfg,
		serializer: NewDefaultKeySerializer(),
		logger:     zerolog.Nop(),
		entries:    xsync.NewMapOf[string, *entry](),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Config returns the configuration the client was built with.
func (c *Client) Config() Config {
	return c.config
}

// Read returns immediately with a handle on key's entry. A fetch is started
// when the entry is missing, failed, invalidated or stale, unless one is
// already in flight, in which case the read joins it.
func (c *Client) Read(ctx context.Context, key Key, fetch Fetcher, opts ...ReadOption) *Result {
	ro := readOptions{
		staleWindow: c.config.StaleWindow,
		retryLimit:  c.config.RetryLimit,
	}
	for _, opt := range opts {
		opt(&ro)
	}

	e := c.lockEntry(key)

	res := &Result{entry: e, done: closedDone}
	if ro.listener != nil {
		res.sub = e.subscribeLocked(ro.listener)
	}

	if e.flight != nil {
		res.done = e.flight.done
		e.mu.Unlock()
		return res
	}

	if !e.needsFetchLocked(ctxtime.Now(ctx), ro.staleWindow) {
		e.mu.Unlock()
		return res
	}

	fl := e.beginLocked()
	res.done = fl.done
	c.logger.Debug().Str("key", e.hash).Bool("has_data", e.hasData).Msg("fetch started")
	go c.run(context.WithoutCancel(ctx), e, fl, fetch, ro.retryLimit)
	e.publishLocked(nil)

	return res
}

// lockEntry returns key's entry with mu held, creating it when missing. An
// entry removed between the lookup and the lock is skipped.
func (c *Client) lockEntry(key Key) *entry {
	hash := c.serializer.SerializeKey(key)
	for {
		e, _ := c.entries.LoadOrCompute(hash, func() *entry {
			return newEntry(key, hash)
		})
		e.mu.Lock()
		if !e.removed {
			return e
		}
		e.mu.Unlock()
	}
}

// run executes fetch with bounded sequential retries and settles the entry.
func (c *Client) run(ctx context.Context, e *entry, fl *flight, fetch Fetcher, retryLimit int) {
	logger := c.logger.With().Str("key", e.hash).Logger()
	attempts := 0

	data, err := backoff.Retry(ctx, func() (any, error) {
		attempts++
		v, err := safeFetch(ctx, fetch)
		if err != nil && !retryable(err) {
			return nil, backoff.Permanent(err)
		}
		return v, err
	},
		backoff.WithBackOff(backoff.NewConstantBackOff(c.config.RetryDelay)),
		backoff.WithMaxTries(uint(retryLimit)+1),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(err error, next time.Duration) {
			logger.Debug().Err(err).Int("attempt", attempts).Dur("next", next).Msg("fetch failed, retrying")
		}),
	)
	if perm, ok := err.(*backoff.PermanentError); ok {
		err = perm.Err
	}

	e.mu.Lock()
	e.settleLocked(fl, ctxtime.Now(ctx), data, err, attempts)
	if err != nil {
		logger.Warn().Err(err).Int("attempts", attempts).Msg("fetch failed")
	} else {
		logger.Debug().Int("attempts", attempts).Msg("fetch succeeded")
	}
	e.publishLocked(func() { close(fl.done) })
}

// safeFetch converts a panicking fetcher into an error so the entry never
// stays in flight forever.
func safeFetch(ctx context.Context, fetch Fetcher) (v any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("cache: fetcher panicked: %v", r)
		}
	}()
	return fetch(ctx)
}

func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return !apperr.IsValidation(err)
}

// Peek returns the entry snapshot for key without fetching.
func (c *Client) Peek(key Key) (Snapshot, bool) {
	e, ok := c.entries.Load(c.serializer.SerializeKey(key))
	if !ok {
		return Snapshot{}, false
	}
	return e.snapshot(), true
}

// SetData stores v under key as a successful result and notifies
// subscribers. It is used for optimistic updates after mutations.
func (c *Client) SetData(ctx context.Context, key Key, v any) {
	e := c.lockEntry(key)
	e.setDataLocked(ctxtime.Now(ctx), v)
	e.publishLocked(nil)
}

// Invalidate forces the next Read of key to refetch regardless of staleness.
// Cached data stays available until the refetch settles.
func (c *Client) Invalidate(ctx context.Context, key Key) error {
	if e, ok := c.entries.Load(c.serializer.SerializeKey(key)); ok {
		e.mu.Lock()
		e.invalidated = true
		e.mu.Unlock()
	}
	return nil
}

// InvalidatePrefix invalidates every entry whose key starts with prefix. An
// empty prefix matches every entry.
func (c *Client) InvalidatePrefix(ctx context.Context, prefix Key) error {
	p := c.serializer.SerializeKey(prefix)
	c.entries.Range(func(hash string, e *entry) bool {
		if hasSerializedPrefix(hash, p) {
			e.mu.Lock()
			e.invalidated = true
			e.mu.Unlock()
		}
		return true
	})
	return nil
}

// Remove drops key's entry. When a fetch for key is still running the entry
// stays until it settles so later reads join that fetch; its cached data is
// forgotten at once and the settled result counts as invalidated.
func (c *Client) Remove(ctx context.Context, key Key) error {
	hash := c.serializer.SerializeKey(key)
	e, ok := c.entries.Load(hash)
	if !ok {
		return nil
	}

	e.mu.Lock()
	if e.removed {
		e.mu.Unlock()
		return nil
	}
	if e.flight != nil {
		e.forgetLocked()
		e.publishLocked(nil)
		return nil
	}
	e.removed = true
	c.entries.Delete(hash)
	e.mu.Unlock()
	return nil
}

// Len returns the number of entries.
func (c *Client) Len() int {
	return c.entries.Size()
}
