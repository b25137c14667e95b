package client

import "context"

// Future is the pending result of an asynchronous call.
type Future[T any] struct {
	done   <-chan struct{}
	cancel context.CancelFunc
	val    T
	err    error
}

// Done returns a channel that is closed when the call completes.
func (f *Future[T]) Done() <-chan struct{} { return f.done }

// Wait blocks until the call completes and returns its result.
func (f *Future[T]) Wait() (T, error) {
	<-f.done
	return f.val, f.err
}

// Err blocks until the call completes and returns its error.
func (f *Future[T]) Err() error {
	<-f.done
	return f.err
}

// Cancel cancels the call's context. It does not wait for completion.
func (f *Future[T]) Cancel() {
	f.cancel()
}

func startFuture[T any](ctx context.Context, g *Group, fn func(ctx context.Context) (T, error)) *Future[T] {
	f := &Future[T]{}
	f.done, f.cancel = g.start(ctx,
		func(ctx context.Context) error {
			f.val, f.err = fn(ctx)
			return f.err
		},
		func(err error) {
			f.err = err
		},
	)

	return f
}
