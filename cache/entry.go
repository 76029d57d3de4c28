package cache

import (
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/goliatone/go-query-cache/internal/notify"
)

// entry is owned by the Client. mu guards every field. Transitions are
// delivered outside mu in the order they happened, so listeners may read
// the entry.
type entry struct {
	key  Key
	hash string

	mu           sync.Mutex
	data         any
	hasData      bool
	fetchedAt    time.Time
	status       Status
	err          error
	failureCount int
	invalidated  bool
	flight       *flight
	subscribers  []*subscriber
	// removed is set once the entry has left the Client's map.
	removed bool

	notifications notify.Queue
}

// flight is the outstanding fetch of an entry. Readers that attach to it
// wait on done; the entry drops its reference once the fetch settles.
type flight struct {
	done chan struct{}
}

type subscriber struct {
	id     uuid.UUID
	fn     Listener
	active atomic.Bool
}

func newEntry(key Key, hash string) *entry {
	return &entry{key: key, hash: hash, status: StatusIdle}
}

func (e *entry) snapshotLocked() Snapshot {
	return Snapshot{
		Key:          e.key,
		Data:         e.data,
		HasData:      e.hasData,
		Status:       e.status,
		Err:          e.err,
		FetchedAt:    e.fetchedAt,
		IsFetching:   e.flight != nil,
		FailureCount: e.failureCount,
	}
}

func (e *entry) snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

func (e *entry) subscribeLocked(fn Listener) *subscriber {
	s := &subscriber{id: uuid.New(), fn: fn}
	s.active.Store(true)
	e.subscribers = append(e.subscribers, s)
	return s
}

func (e *entry) unsubscribe(id uuid.UUID) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i, s := range e.subscribers {
		if s.id == id {
			s.active.Store(false)
			e.subscribers = append(e.subscribers[:i:i], e.subscribers[i+1:]...)
			return
		}
	}
}

// needsFetchLocked decides whether a read at now must start a fetch. It is
// only consulted when no flight is running.
func (e *entry) needsFetchLocked(now time.Time, staleWindow time.Duration) bool {
	switch e.status {
	case StatusIdle, StatusError, StatusLoading:
		return true
	}
	if e.invalidated {
		return true
	}
	return now.Sub(e.fetchedAt) >= staleWindow
}

// beginLocked registers a new flight. Entries without data move to loading;
// entries with data keep their status and only report IsFetching.
func (e *entry) beginLocked() *flight {
	fl := &flight{done: make(chan struct{})}
	e.flight = fl
	e.invalidated = false
	if !e.hasData {
		e.status = StatusLoading
	}
	return fl
}

func (e *entry) settleLocked(fl *flight, now time.Time, data any, err error, attempts int) {
	if e.flight == fl {
		e.flight = nil
	}
	if err != nil {
		e.status = StatusError
		e.err = err
		e.failureCount = attempts
		return
	}
	e.data = data
	e.hasData = true
	e.fetchedAt = now
	e.status = StatusSuccess
	e.err = nil
	e.failureCount = 0
}

func (e *entry) setDataLocked(now time.Time, data any) {
	e.data = data
	e.hasData = true
	e.fetchedAt = now
	e.status = StatusSuccess
	e.err = nil
	e.failureCount = 0
	e.invalidated = false
}

// forgetLocked drops the cached result of an entry whose fetch is still
// running. The settled result counts as invalidated.
func (e *entry) forgetLocked() {
	e.data = nil
	e.hasData = false
	e.fetchedAt = time.Time{}
	e.status = StatusLoading
	e.err = nil
	e.failureCount = 0
	e.invalidated = true
}

// publishLocked queues the current state for every active subscriber. It
// must be called with mu held and returns with mu released. after, when not
// nil, runs once every subscriber has received the state.
func (e *entry) publishLocked(after func()) {
	snap := e.snapshotLocked()
	subs := slices.Clone(e.subscribers)

	e.notifications.PublishLocked(&e.mu, func() {
		for _, s := range subs {
			if s.active.Load() {
				s.fn(snap)
			}
		}
		if after != nil {
			after()
		}
	})
}
