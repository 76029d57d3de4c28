// Package session holds the process-wide session token.
//
// The Store is the only writer of the token. Set and Clear are visible to Get
// as soon as they return, and every registered listener is notified exactly
// once per call, in registration order. The token is then written through to
// the injected Storage so a restarted process can Restore it.
package session

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/goliatone/go-query-cache/apperr"
)

// ChangeListener receives the new token. ok is false after Clear.
type ChangeListener func(token string, ok bool)

type listener struct {
	id uuid.UUID
	fn ChangeListener
}

// Store is the session token holder.
type Store struct {
	storage Storage
	logger  zerolog.Logger

	// writeMu serializes Set, Clear and Restore so the persisted value always
	// matches the last in-memory write.
	writeMu sync.Mutex

	mu        sync.RWMutex
	token     string
	ok        bool
	listeners []listener

	notifyMu sync.Mutex
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for persistence failures.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Store) {
		s.logger = logger.With().Str("component", "session").Logger()
	}
}

// NewStore builds an empty store backed by storage. A nil storage keeps the
// token in memory only.
func NewStore(storage Storage, opts ...Option) *Store {
	if storage == nil {
		storage = NewMemoryStorage()
	}
	s := &Store{storage: storage, logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns the current token.
func (s *Store) Get() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token, s.ok
}

// Authenticated reports whether a token is present.
func (s *Store) Authenticated() bool {
	_, ok := s.Get()
	return ok
}

// Token implements newsapi.TokenSource.
func (s *Store) Token(ctx context.Context) (string, bool) {
	return s.Get()
}

// Set stores token, notifies listeners and persists it. The in-memory value
// is updated even when persistence fails; the persistence error is returned.
func (s *Store) Set(ctx context.Context, token string) error {
	if token == "" {
		return apperr.Validation("session token must not be empty", nil)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	s.token, s.ok = token, true
	s.publishLocked()

	if err := s.storage.Save(ctx, token); err != nil {
		s.logger.Error().Err(err).Msg("failed to persist session token")
		return err
	}
	return nil
}

// Clear removes the token, notifies listeners and deletes the persisted copy.
func (s *Store) Clear(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	s.token, s.ok = "", false
	s.publishLocked()

	if err := s.storage.Delete(ctx); err != nil {
		s.logger.Error().Err(err).Msg("failed to delete persisted session token")
		return err
	}
	return nil
}

// Restore loads a persisted token into memory. Listeners are notified only
// when a token was found.
func (s *Store) Restore(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	token, ok, err := s.storage.Load(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to restore session token")
		return err
	}
	if !ok || token == "" {
		return nil
	}

	s.mu.Lock()
	s.token, s.ok = token, true
	s.publishLocked()
	s.logger.Debug().Msg("session restored")
	return nil
}

// OnChange registers fn and returns a function that removes it. Listeners
// must not call Set or Clear.
func (s *Store) OnChange(fn ChangeListener) (unsubscribe func()) {
	id := uuid.New()

	s.mu.Lock()
	s.listeners = append(s.listeners, listener{id: id, fn: fn})
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			for i, l := range s.listeners {
				if l.id == id {
					s.listeners = append(s.listeners[:i:i], s.listeners[i+1:]...)
					return
				}
			}
		})
	}
}

// publishLocked must be called with mu held and returns with mu released.
func (s *Store) publishLocked() {
	token, ok := s.token, s.ok
	listeners := make([]listener, len(s.listeners))
	copy(listeners, s.listeners)

	s.notifyMu.Lock()
	s.mu.Unlock()
	defer s.notifyMu.Unlock()

	for _, l := range listeners {
		l.fn(token, ok)
	}
}
