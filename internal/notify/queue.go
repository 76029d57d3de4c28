// Package notify delivers state transitions to listeners in the order they
// were published without holding the owner's lock while listeners run.
package notify

import "sync"

// Queue is a FIFO of pending deliveries. The owner's mutex guards it; the
// zero value is ready to use.
type Queue struct {
	pending    []func()
	delivering bool
}

// PublishLocked queues deliver. mu must be held and is released on return.
//
// The first publisher to find the queue idle runs every queued delivery,
// releasing mu around each one, so listeners may read the owner's state and
// publish again. Publishers arriving while a delivery runs return at once;
// their deliveries run later on the delivering goroutine.
func (q *Queue) PublishLocked(mu sync.Locker, deliver func()) {
	q.pending = append(q.pending, deliver)
	if q.delivering {
		mu.Unlock()
		return
	}

	q.delivering = true
	defer func() {
		q.delivering = false
		mu.Unlock()
	}()

	for len(q.pending) > 0 {
		next := q.pending[0]
		q.pending[0] = nil
		q.pending = q.pending[1:]

		mu.Unlock()
		func() {
			defer mu.Lock()
			next()
		}()
	}
	q.pending = nil
}

// Delivered returns a delivery that runs deliver and then closes the
// returned channel, for publishers that must wait for their own turn.
func Delivered(deliver func()) (func(), <-chan struct{}) {
	done := make(chan struct{})
	return func() {
		defer close(done)
		deliver()
	}, done
}
