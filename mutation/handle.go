package mutation

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Handle tracks a single invocation.
type Handle[O any] struct {
	id   uuid.UUID
	done chan struct{}

	mu    sync.Mutex
	state State[O]
}

func newHandle[O any]() *Handle[O] {
	id := uuid.New()
	return &Handle[O]{
		id:    id,
		done:  make(chan struct{}),
		state: State[O]{InvocationID: id, Status: StatusPending},
	}
}

// ID identifies the invocation in logs and states.
func (h *Handle[O]) ID() uuid.UUID {
	return h.id
}

// State returns pending until the operation settles.
func (h *Handle[O]) State() State[O] {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// Done is closed after the terminal transition and every hook has returned.
func (h *Handle[O]) Done() <-chan struct{} {
	return h.done
}

// Wait blocks until Done or ctx ends and returns the invocation's state. The
// error is the operation's error, or ctx's when it ended first.
func (h *Handle[O]) Wait(ctx context.Context) (State[O], error) {
	select {
	case <-h.done:
	case <-ctx.Done():
		return h.State(), ctx.Err()
	}
	st := h.State()
	return st, st.Err
}

func (h *Handle[O]) settle(s State[O]) {
	h.mu.Lock()
	h.state = s
	h.mu.Unlock()
}
