// Package future provides a single-assignment result that many goroutines
// can wait on.
package future

import (
	"context"
	"sync"
)

// Future holds a value or error that is settled exactly once.
type Future[T any] struct {
	once  sync.Once
	done  chan struct{}
	value T
	err   error
}

// Settle completes the future. It reports false when the future was already
// settled, in which case v and err are discarded.
type Settle[T any] func(v T, err error) bool

func New[T any]() (*Future[T], Settle[T]) {
	f := &Future[T]{done: make(chan struct{})}
	return f, f.settle
}

// Failed returns a future already settled with err.
func Failed[T any](err error) *Future[T] {
	f, settle := New[T]()
	var zero T
	settle(zero, err)
	return f
}

func (f *Future[T]) settle(v T, err error) bool {
	won := false
	f.once.Do(func() {
		f.value = v
		f.err = err
		won = true
		close(f.done)
	})
	return won
}

func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the future settles or ctx ends. A ctx error does not
// settle the future.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Result returns the settled value without blocking; ok is false while pending.
func (f *Future[T]) Result() (T, bool, error) {
	select {
	case <-f.done:
		return f.value, true, f.err
	default:
		var zero T
		return zero, false, nil
	}
}
