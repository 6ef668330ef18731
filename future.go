package mosaic

import (
	"context"
	"sync"
)

// Future is the pending result of a bridge request. It settles exactly once.
type Future[T any] struct {
	done chan struct{}
	log  Logger

	mu      sync.Mutex
	settled bool
	val     T
	err     error
	onError []func(error)
}

func newFuture[T any]() *Future[T] {
	return newLoggedFuture[T](nil)
}

// newLoggedFuture reports callback panics to log.
func newLoggedFuture[T any](log Logger) *Future[T] {
	return &Future[T]{done: make(chan struct{}), log: orNop(log)}
}

func (f *Future[T]) settle(val T, err error) bool {
	f.mu.Lock()
	if f.settled {
		f.mu.Unlock()
		return false
	}
	f.settled = true
	f.val = val
	f.err = err
	callbacks := f.onError
	f.onError = nil
	close(f.done)
	f.mu.Unlock()

	if err != nil {
		for _, cb := range callbacks {
			f.call(cb, err)
		}
	}
	return true
}

// Done is closed once the future has settled.
func (f *Future[T]) Done() <-chan struct{} { return f.done }

// Result returns the outcome without blocking. ok is false while pending.
func (f *Future[T]) Result() (val T, ok bool, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.settled {
		return val, false, nil
	}
	return f.val, true, f.err
}

// Wait blocks until the future settles or ctx is done.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		val, _, err := f.Result()
		return val, err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// OnError registers fn to run if the future is rejected. fn runs on the
// goroutine that settles the future, or immediately if it already has.
func (f *Future[T]) OnError(fn func(error)) *Future[T] {
	f.mu.Lock()
	if !f.settled {
		f.onError = append(f.onError, fn)
		f.mu.Unlock()
		return f
	}
	err := f.err
	f.mu.Unlock()
	if err != nil {
		f.call(fn, err)
	}
	return f
}

// call runs one callback. A panicking callback is logged and does not stop
// the others.
func (f *Future[T]) call(fn func(error), err error) {
	defer func() {
		if r := recover(); r != nil {
			f.log.Errorf("future: callback panicked: %v", r)
		}
	}()
	fn(err)
}
