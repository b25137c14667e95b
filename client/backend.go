package client

import (
	"context"
	"io"
	"net/http"
	"net/url"
)

// BackendResponse is the response of a backend send. Body may be read
// once and is closed by the client.
type BackendResponse interface {
	// URL is the final URL after any redirects. A nil URL means the
	// request URL.
	URL() *url.URL
	StatusCode() int
	Header() http.Header
	Body() io.ReadCloser
}

// Backend is a blocking transport. R is the backend's native request type.
//
// PrepareRequest translates parts and must not fail; a combination the
// backend cannot represent is a programming error and may panic.
//
// Send performs the exchange and returns when the response headers have
// arrived. It takes ownership of body and must close it. Send may be
// called concurrently.
type Backend[R any] interface {
	PrepareRequest(parts RequestParts) R
	Send(ctx context.Context, req R, body io.ReadCloser) (BackendResponse, error)
}

// BackendResult is the outcome of an asynchronous send.
type BackendResult struct {
	Response BackendResponse
	Err      error
}

// AsyncBackend is a transport whose Send returns immediately. Exactly one
// result must be delivered on the returned channel, which should be
// buffered so abandoned sends do not leak.
type AsyncBackend[R any] interface {
	PrepareRequest(parts RequestParts) R
	Send(ctx context.Context, req R, body io.ReadCloser) <-chan BackendResult
}

// sendFunc is the suspension strategy shared by both execution models.
type sendFunc func(ctx context.Context, parts RequestParts, body io.ReadCloser) (BackendResponse, error)

func blockingSend[R any](b Backend[R]) sendFunc {
	return func(ctx context.Context, parts RequestParts, body io.ReadCloser) (BackendResponse, error) {
		return b.Send(ctx, b.PrepareRequest(parts), body)
	}
}

func asyncSend[R any](b AsyncBackend[R], release func(BackendResponse)) sendFunc {
	return func(ctx context.Context, parts RequestParts, body io.ReadCloser) (BackendResponse, error) {
		ch := b.Send(ctx, b.PrepareRequest(parts), body)

		select {
		case res := <-ch:
			return res.Response, res.Err
		case <-ctx.Done():
			go func() {
				if res := <-ch; res.Err == nil && res.Response != nil {
					release(res.Response)
				}
			}()
			return nil, ctx.Err()
		}
	}
}
