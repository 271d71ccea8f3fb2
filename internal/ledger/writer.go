package ledger

import (
	"context"
	"errors"
	"sync"
)

// ErrClosed is returned for work submitted after Close.
var ErrClosed = errors.New("ledger service closed")

type job struct {
	ctx  context.Context
	fn   func(context.Context) error
	resp chan error
}

// writer runs every submitted unit of work on one goroutine, in submission
// order, so concurrent load-modify-persist cycles never interleave.
type writer struct {
	mu     sync.RWMutex
	closed bool
	jobs   chan job
	done   chan struct{}
}

func newWriter(queueSize int) *writer {
	if queueSize < 0 {
		queueSize = 0
	}
	w := &writer{
		jobs: make(chan job, queueSize),
		done: make(chan struct{}),
	}
	go w.run()
	return w
}

func (w *writer) run() {
	defer close(w.done)
	for j := range w.jobs {
		if err := j.ctx.Err(); err != nil {
			j.resp <- err
			continue
		}
		j.resp <- j.fn(j.ctx)
	}
}

// do blocks until fn has run. Once queued, the job is not abandoned: the
// caller always learns whether the mutation happened.
func (w *writer) do(ctx context.Context, fn func(context.Context) error) error {
	j := job{ctx: ctx, fn: fn, resp: make(chan error, 1)}

	w.mu.RLock()
	if w.closed {
		w.mu.RUnlock()
		return ErrClosed
	}
	select {
	case w.jobs <- j:
	case <-ctx.Done():
		w.mu.RUnlock()
		return ctx.Err()
	}
	w.mu.RUnlock()

	return <-j.resp
}

// close stops accepting work and waits for queued jobs to finish.
func (w *writer) close() {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.jobs)
	}
	w.mu.Unlock()
	<-w.done
}
