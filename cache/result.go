package cache

import "context"

var closedDone = func() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}()

// Result is the handle returned by Read.
type Result struct {
	entry *entry
	sub   *subscriber
	done  <-chan struct{}
}

// Key returns the key the result was read for.
func (r *Result) Key() Key {
	return r.entry.key
}

// Snapshot returns the entry's current state.
func (r *Result) Snapshot() Snapshot {
	return r.entry.snapshot()
}

// Done is closed once the fetch this read started or joined has settled. It
// is already closed when the read was served from fresh data.
func (r *Result) Done() <-chan struct{} {
	return r.done
}

// Wait blocks until Done or ctx ends. It returns the entry error when the
// fetch settled as an error.
func (r *Result) Wait(ctx context.Context) (Snapshot, error) {
	select {
	case <-r.done:
	case <-ctx.Done():
		return r.Snapshot(), ctx.Err()
	}

	snap := r.Snapshot()
	if snap.Status == StatusError {
		return snap, snap.Err
	}
	return snap, nil
}

// Unsubscribe stops delivery to the listener registered with this read. The
// underlying fetch is not cancelled.
func (r *Result) Unsubscribe() {
	if r.sub == nil {
		return
	}
	r.sub.active.Store(false)
	r.entry.unsubscribe(r.sub.id)
}
