package cache

import (
	"context"
	"time"
)

// State is the typed view of a Snapshot handed to UI adapters.
type State[T any] struct {
	Data       T
	HasData    bool
	Status     Status
	Err        error
	IsFetching bool
	FetchedAt  time.Time
}

// Query is a typed subscription to a cache entry: the Go counterpart of a
// useQuery hook. It reports {data, status, error} and pushes every
// transition to its listener.
type Query[T any] struct {
	result *Result
}

// Observe reads key through service and subscribes listener (which may be
// nil) to its transitions.
func Observe[T any](ctx context.Context, service CacheService, key Key, fetch FetchFn[T], listener func(State[T]), opts ...ReadOption) *Query[T] {
	if listener != nil {
		opts = append(opts, WithListener(func(s Snapshot) {
			listener(stateOf[T](s))
		}))
	}
	return &Query[T]{result: service.Read(ctx, key, fetch.Erase(), opts...)}
}

// State returns the current typed state.
func (q *Query[T]) State() State[T] {
	return stateOf[T](q.result.Snapshot())
}

// Wait blocks until the fetch behind this query settles.
func (q *Query[T]) Wait(ctx context.Context) (State[T], error) {
	snap, err := q.result.Wait(ctx)
	return stateOf[T](snap), err
}

// Result exposes the untyped handle.
func (q *Query[T]) Result() *Result {
	return q.result
}

// Unsubscribe stops listener delivery.
func (q *Query[T]) Unsubscribe() {
	q.result.Unsubscribe()
}

func stateOf[T any](s Snapshot) State[T] {
	st := State[T]{
		HasData:    s.HasData,
		Status:     s.Status,
		Err:        s.Err,
		IsFetching: s.IsFetching,
		FetchedAt:  s.FetchedAt,
	}
	if s.HasData {
		v, err := valueAs[T](s.Data)
		if err != nil {
			st.HasData = false
			st.Err = err
			return st
		}
		st.Data = v
	}
	return st
}
