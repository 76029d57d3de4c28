package mutation

import (
	"context"

	"github.com/rs/zerolog"
)

// Option configures a Mutation.
type Option[I, O any] func(*Mutation[I, O])

// WithValidator rejects input before the operation starts.
func WithValidator[I, O any](fn func(I) error) Option[I, O] {
	return func(m *Mutation[I, O]) {
		m.validator = fn
	}
}

// OnSuccess registers a hook that receives the operation's result.
func OnSuccess[I, O any](fn func(ctx context.Context, out O, in I)) Option[I, O] {
	return func(m *Mutation[I, O]) {
		m.onSuccess = append(m.onSuccess, fn)
	}
}

// OnError registers a hook that receives the normalized failure message.
func OnError[I, O any](fn func(ctx context.Context, message string, err error, in I)) Option[I, O] {
	return func(m *Mutation[I, O]) {
		m.onError = append(m.onError, fn)
	}
}

// OnSettled registers a hook that runs after success and error hooks.
func OnSettled[I, O any](fn func(ctx context.Context, state State[O])) Option[I, O] {
	return func(m *Mutation[I, O]) {
		m.onSettled = append(m.onSettled, fn)
	}
}

// WithStateListener observes every transition of every invocation.
func WithStateListener[I, O any](fn func(State[O])) Option[I, O] {
	return func(m *Mutation[I, O]) {
		m.listeners = append(m.listeners, fn)
	}
}

// WithFallbackMessage replaces DefaultFailureMessage.
func WithFallbackMessage[I, O any](msg string) Option[I, O] {
	return func(m *Mutation[I, O]) {
		if msg != "" {
			m.fallback = msg
		}
	}
}

// WithLogger sets the logger used for invocation lifecycle events.
func WithLogger[I, O any](logger zerolog.Logger) Option[I, O] {
	return func(m *Mutation[I, O]) {
		m.logger = logger.With().Str("component", "mutation").Logger()
	}
}
