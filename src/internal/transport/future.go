// FILE: src/internal/transport/future.go
package transport

import (
	"context"
	"sync"
)

// Future is the pending result of one submission. It completes exactly once.
type Future struct {
	mu        sync.Mutex
	done      chan struct{}
	completed bool
	ack       Ack
	err       error
	callbacks []func(Ack, error)
}

func NewFuture() *Future {
	return &Future{done: make(chan struct{})}
}

// Complete settles the future and runs attached callbacks on the calling
// goroutine. Later calls are ignored and return false.
func (f *Future) Complete(ack Ack, err error) bool {
	f.mu.Lock()
	if f.completed {
		f.mu.Unlock()
		return false
	}
	f.completed = true
	f.ack, f.err = ack, err
	callbacks := f.callbacks
	f.callbacks = nil
	f.mu.Unlock()

	for _, fn := range callbacks {
		fn(ack, err)
	}
	close(f.done)
	return true
}

// OnComplete attaches a continuation. If the future already completed, fn
// runs on a new goroutine.
func (f *Future) OnComplete(fn func(Ack, error)) {
	f.mu.Lock()
	if !f.completed {
		f.callbacks = append(f.callbacks, fn)
		f.mu.Unlock()
		return
	}
	ack, err := f.ack, f.err
	f.mu.Unlock()
	go fn(ack, err)
}

// Done is closed after completion and callbacks have run
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Wait blocks for the result or ctx cancellation
func (f *Future) Wait(ctx context.Context) (Ack, error) {
	select {
	case <-f.done:
		f.mu.Lock()
		defer f.mu.Unlock()
		return f.ack, f.err
	case <-ctx.Done():
		return Ack{}, ctx.Err()
	}
}
