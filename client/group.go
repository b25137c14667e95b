package client

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

// ErrShutdown is returned by calls started after [Group.Shutdown].
var ErrShutdown = errors.New("client shut down")

// Group runs asynchronous calls with an optional concurrency limit and
// collects their errors.
type Group struct {
	wg       sync.WaitGroup
	mu       sync.Mutex
	sem      chan struct{}
	shutdown atomic.Bool
	errs     []error
}

// NewGroup returns a Group running at most limit calls at once. A limit
// of zero or less means unlimited.
func NewGroup(limit int) *Group {
	g := &Group{}
	if limit > 0 {
		g.sem = make(chan struct{}, limit)
	}

	return g
}

// Wait blocks until every started call has completed and returns the
// errors collected since the previous Wait, joined. The collected errors
// are released, so a later Wait reports only newer failures.
func (g *Group) Wait() error {
	g.wg.Wait()

	g.mu.Lock()
	defer g.mu.Unlock()

	err := errors.Join(g.errs...)
	g.errs = nil

	return err
}

// Shutdown makes calls that have not yet begun fail with ErrShutdown.
// Calls already running are unaffected.
func (g *Group) Shutdown() {
	g.shutdown.Store(true)
}

// start runs fn in its own goroutine. If fn never gets to run, because
// ctx ended while waiting for a slot or the group was shut down, fail is
// called with the reason instead. done is closed afterwards.
func (g *Group) start(ctx context.Context, fn func(ctx context.Context) error, fail func(error)) (done <-chan struct{}, cancel context.CancelFunc) {
	ctx, cancel = context.WithCancel(ctx)
	ch := make(chan struct{})

	abort := func(err error) {
		fail(err)
		g.recordErr(err)
	}

	g.wg.Add(1)
	go func() {
		defer func() {
			cancel()
			close(ch)
			g.wg.Done()
		}()

		if g.sem != nil {
			select {
			case g.sem <- struct{}{}:
				defer func() {
					<-g.sem
				}()
			case <-ctx.Done():
				abort(ctx.Err())
				return
			}
		}

		if g.shutdown.Load() {
			abort(ErrShutdown)
			return
		}

		g.recordErr(fn(ctx))
	}()

	return ch, cancel
}

func (g *Group) recordErr(err error) {
	if err == nil {
		return
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	g.errs = append(g.errs, err)
}
