// Package mutation runs one-shot write operations and reports their lifecycle.
//
// Unlike queries, mutations are never cached, deduplicated or retried: every
// call to Mutate invokes the operation exactly once.
//
//	login := mutation.New(api.Login,
//		mutation.WithValidator[Credentials, AuthResponse](validateCredentials),
//		mutation.OnSuccess(func(ctx context.Context, out AuthResponse, in Credentials) {
//			store.Set(ctx, out.Token)
//		}),
//	)
//	h, err := login.Mutate(ctx, creds)
//
// State moves idle → pending → success|error. Hooks run after the terminal
// state is visible, so a hook reading State sees success or error.
package mutation

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/goliatone/go-query-cache/apperr"
	"github.com/goliatone/go-query-cache/internal/notify"
)

// DefaultFailureMessage is shown when a failed operation carries no message
// of its own.
const DefaultFailureMessage = "No se pudo completar la operación. Inténtalo de nuevo."

// Status is the lifecycle state of a mutation.
type Status int

const (
	StatusIdle Status = iota
	StatusPending
	StatusSuccess
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusPending:
		return "pending"
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// State describes one invocation.
type State[O any] struct {
	InvocationID uuid.UUID
	Status       Status
	Data         O
	Err          error
	// Message is the normalized failure message, set only in StatusError.
	Message string
}

// Operation performs the write.
type Operation[I, O any] func(ctx context.Context, input I) (O, error)

// Mutation is the useMutation counterpart: it owns the operation, the hooks
// and the state of the latest invocation.
type Mutation[I, O any] struct {
	op        Operation[I, O]
	validator func(I) error
	onSuccess []func(ctx context.Context, out O, in I)
	onError   []func(ctx context.Context, message string, err error, in I)
	onSettled []func(ctx context.Context, state State[O])
	listeners []func(State[O])
	fallback  string
	logger    zerolog.Logger

	mu            sync.Mutex
	state         State[O]
	notifications notify.Queue
}

// New builds a mutation around op.
func New[I, O any](op Operation[I, O], opts ...Option[I, O]) *Mutation[I, O] {
	m := &Mutation[I, O]{
		op:       op,
		fallback: DefaultFailureMessage,
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// State returns the state of the latest invocation, or idle when the mutation
// has not run since construction or the last Reset.
func (m *Mutation[I, O]) State() State[O] {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Mutate validates input and, when valid, starts the operation in the
// background. A validation failure returns an apperr validation error and
// leaves the state untouched.
func (m *Mutation[I, O]) Mutate(ctx context.Context, input I) (*Handle[O], error) {
	if m.validator != nil {
		if err := m.validator(input); err != nil {
			if !apperr.IsValidation(err) {
				err = apperr.Validation(err.Error(), err)
			}
			return nil, err
		}
	}

	h := newHandle[O]()
	logger := m.logger.With().Str("invocation_id", h.id.String()).Logger()

	m.mu.Lock()
	m.state = State[O]{InvocationID: h.id, Status: StatusPending}
	logger.Debug().Msg("mutation started")
	go m.run(context.WithoutCancel(ctx), h, input, logger)
	m.publishLocked(m.state)

	return h, nil
}

func (m *Mutation[I, O]) run(ctx context.Context, h *Handle[O], input I, logger zerolog.Logger) {
	defer close(h.done)

	out, err := m.safeRun(ctx, input)

	final := State[O]{InvocationID: h.id}
	if err != nil {
		final.Status = StatusError
		final.Err = err
		final.Message = Message(err, m.fallback)
		logger.Warn().Err(err).Msg("mutation failed")
	} else {
		final.Status = StatusSuccess
		final.Data = out
		logger.Debug().Msg("mutation succeeded")
	}
	h.settle(final)

	m.mu.Lock()
	// An older invocation settling late must not hide a newer pending one.
	if m.state.InvocationID == h.id {
		m.state = final
	}
	deliver, delivered := notify.Delivered(m.deliverer(final))
	m.notifications.PublishLocked(&m.mu, deliver)
	<-delivered

	if err != nil {
		for _, fn := range m.onError {
			fn(ctx, final.Message, err, input)
		}
	} else {
		for _, fn := range m.onSuccess {
			fn(ctx, out, input)
		}
	}
	for _, fn := range m.onSettled {
		fn(ctx, final)
	}
}

func (m *Mutation[I, O]) safeRun(ctx context.Context, input I) (out O, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("mutation: operation panicked: %v", r)
		}
	}()
	return m.op(ctx, input)
}

// Reset returns the latest state to idle and notifies listeners. Running
// invocations still complete and run their hooks.
func (m *Mutation[I, O]) Reset() {
	m.mu.Lock()
	m.state = State[O]{Status: StatusIdle}
	m.publishLocked(m.state)
}

// publishLocked queues s for the state listeners. It must be called with mu
// held and returns with mu released.
func (m *Mutation[I, O]) publishLocked(s State[O]) {
	m.notifications.PublishLocked(&m.mu, m.deliverer(s))
}

func (m *Mutation[I, O]) deliverer(s State[O]) func() {
	return func() {
		for _, fn := range m.listeners {
			fn(s)
		}
	}
}

// Message normalizes err for display: the structured message carried by an
// apperr.Error when present, fallback otherwise.
func Message(err error, fallback string) string {
	if msg, ok := apperr.MessageOf(err); ok {
		return msg
	}
	return fallback
}
