package client

import (
	"context"
	"errors"
	"io"
)

// AsyncClient executes requests through an [AsyncBackend]. Every call
// returns a [Future] and runs under the client's [Group].
type AsyncClient struct {
	s     *session
	group *Group
}

// NewAsync returns an AsyncClient that sends through backend.
func NewAsync[R any](backend AsyncBackend[R], optFns ...Option) (*AsyncClient, error) {
	if backend == nil {
		return nil, errors.New("backend must not be nil")
	}

	s, opts, err := newSession(nil, optFns)
	if err != nil {
		return nil, err
	}
	s.send = asyncSend(backend, s.release)

	return &AsyncClient{s: s, group: NewGroup(opts.concurrency)}, nil
}

// Config returns a copy of the session configuration.
func (c *AsyncClient) Config() Config {
	return c.s.cfg.Clone()
}

// Prepare resolves op against the session configuration without sending
// it. It panics if op's method is unsupported.
func (c *AsyncClient) Prepare(op Operation) RequestParts {
	return c.s.prepare(op)
}

// Wait blocks until every call started on c has completed and returns
// the errors since the previous Wait joined. Errors are kept until then,
// so long-lived clients should call Wait periodically or rely on each
// Future's own result.
func (c *AsyncClient) Wait() error {
	return c.group.Wait()
}

// Shutdown makes calls that have not yet begun fail with ErrShutdown.
func (c *AsyncClient) Shutdown() {
	c.group.Shutdown()
}

// Go starts req and returns its pending result.
func Go[T any](ctx context.Context, c *AsyncClient, req Request[T]) *Future[T] {
	return startFuture(ctx, c.group, func(ctx context.Context) (T, error) {
		return run(ctx, c.s, "client.do", req, parseHandler(c.s, req.Parser))
	})
}

// Stream starts op and resolves to the response with its body unread. The
// caller must close the body. Cancelling the future before it resolves
// aborts the call; afterwards the body is governed by ctx alone.
func (c *AsyncClient) Stream(ctx context.Context, op Operation) *Future[*Response[io.ReadCloser]] {
	return startFuture(ctx, c.group, func(gctx context.Context) (*Response[io.ReadCloser], error) {
		// The group cancels gctx when this func returns, which must not
		// end the stream.
		sctx, cancel := context.WithCancel(ctx)
		stop := context.AfterFunc(gctx, cancel)

		resp, err := run(sctx, c.s, "client.stream", op, c.s.streamHandler)
		if err != nil {
			cancel()
			return nil, err
		}

		if !stop() {
			// gctx ended while the headers were arriving.
			c.s.closeBody(resp.Body)
			return nil, newError(op.Method(), resp.InitialURL, KindSend, gctx.Err())
		}

		resp.Body = &cancelBody{ReadCloser: resp.Body, cancel: cancel}
		return resp, nil
	})
}

// PaginateAsync returns a Pager whose pages are fetched through c.
func PaginateAsync[T any](c *AsyncClient, req PaginatedRequest[T]) *Pager[T] {
	return &Pager[T]{
		req: req,
		fetch: func(ctx context.Context, op Request[Page[T]]) (Page[T], error) {
			return Go(ctx, c, op).Wait()
		},
	}
}
