package cache

import (
	"time"

	"github.com/rs/zerolog"
)

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger used for fetch lifecycle events.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = logger.With().Str("component", "query_cache").Logger()
	}
}

// WithKeySerializer replaces the default reflection based serializer.
func WithKeySerializer(s KeySerializer) Option {
	return func(c *Client) {
		if s != nil {
			c.serializer = s
		}
	}
}

// ReadOption tunes a single Read.
type ReadOption func(*readOptions)

type readOptions struct {
	staleWindow time.Duration
	retryLimit  int
	listener    Listener
}

// WithStaleWindow overrides Config.StaleWindow for this read.
func WithStaleWindow(d time.Duration) ReadOption {
	return func(o *readOptions) {
		if d >= 0 {
			o.staleWindow = d
		}
	}
}

// WithRetryLimit overrides Config.RetryLimit for a fetch started by this read.
func WithRetryLimit(n int) ReadOption {
	return func(o *readOptions) {
		if n >= 0 {
			o.retryLimit = n
		}
	}
}

// WithListener subscribes fn to the entry before the read can start a fetch,
// so fn observes the loading transition.
func WithListener(fn Listener) ReadOption {
	return func(o *readOptions) {
		o.listener = fn
	}
}
