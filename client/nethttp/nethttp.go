package nethttp

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/adamwoolhether/reqpipe/client"
	"github.com/adamwoolhether/reqpipe/client/throttle"
)

// Backend sends requests with an [http.Client]. It is safe for concurrent
// use.
type Backend struct {
	c      *http.Client
	logger *slog.Logger
}

// New builds a Backend. Without options it uses a client with
// [http.DefaultTransport] and no timeout.
func New(optFns ...Option) (*Backend, error) {
	b := &Backend{
		c:      &http.Client{},
		logger: slog.Default(),
	}

	var opts options
	for _, opt := range optFns {
		if err := opt(&opts); err != nil {
			return nil, fmt.Errorf("applying backend option: %w", err)
		}
	}

	if opts.client != nil {
		cpy := *opts.client
		b.c = &cpy
	}

	if opts.logger != nil {
		b.logger = opts.logger
	}

	if opts.timeout != nil {
		b.c.Timeout = *opts.timeout
	}

	if opts.noFollowRedirects {
		b.c.CheckRedirect = func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}

	var transport http.RoundTripper
	switch {
	case opts.rt != nil:
		transport = opts.rt
	case b.c.Transport != nil:
		transport = b.c.Transport
	default:
		transport = http.DefaultTransport
	}
	if opts.throttle != nil {
		rt, err := throttle.NewRoundTripper(*opts.throttle, func() *slog.Logger { return b.logger }, transport)
		if err != nil {
			return nil, fmt.Errorf("configuring throttle: %w", err)
		}
		transport = rt
	}
	b.c.Transport = transport

	return b, nil
}

// PrepareRequest translates parts into an [http.Request] without a body or
// context. A Content-Length header becomes the request's ContentLength and
// a Host header its Host.
func (b *Backend) PrepareRequest(parts client.RequestParts) *http.Request {
	h := parts.Header.Clone()
	if h == nil {
		h = http.Header{}
	}

	u := *parts.URL
	req := &http.Request{
		Method:        string(parts.Method),
		URL:           &u,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        h,
		Host:          u.Host,
		ContentLength: -1,
	}

	if v := h.Get("Content-Length"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n < 0 {
			panic(fmt.Sprintf("nethttp: invalid Content-Length %q", v))
		}
		req.ContentLength = n
	}
	h.Del("Content-Length")

	if host := h.Get("Host"); host != "" {
		req.Host = host
	}
	h.Del("Host")

	return req
}

// Send performs the exchange. It always closes body.
func (b *Backend) Send(ctx context.Context, req *http.Request, body io.ReadCloser) (client.BackendResponse, error) {
	req = req.WithContext(ctx)

	if req.ContentLength == 0 {
		if err := body.Close(); err != nil {
			b.logger.Error("failed to close request body", "error", err)
		}
		req.Body = http.NoBody
	} else {
		req.Body = body
	}

	resp, err := b.c.Do(req)
	if err != nil {
		return nil, fmt.Errorf("exec http do: %w", err)
	}

	return response{r: resp}, nil
}

// Async returns an [AsyncBackend] sharing b's client.
func (b *Backend) Async() *AsyncBackend {
	return &AsyncBackend{b: b}
}

// response adapts an [http.Response].
type response struct {
	r *http.Response
}

func (r response) URL() *url.URL {
	if r.r.Request == nil {
		return nil
	}

	return r.r.Request.URL
}

func (r response) StatusCode() int     { return r.r.StatusCode }
func (r response) Header() http.Header { return r.r.Header }
func (r response) Body() io.ReadCloser { return r.r.Body }

// =============================================================================

// AsyncBackend runs each send on its own goroutine.
type AsyncBackend struct {
	b *Backend
}

// NewAsync builds an AsyncBackend. It accepts the same options as [New].
func NewAsync(optFns ...Option) (*AsyncBackend, error) {
	b, err := New(optFns...)
	if err != nil {
		return nil, err
	}

	return b.Async(), nil
}

// PrepareRequest is the same as [Backend.PrepareRequest].
func (a *AsyncBackend) PrepareRequest(parts client.RequestParts) *http.Request {
	return a.b.PrepareRequest(parts)
}

// Send starts the exchange and delivers its outcome on the returned
// channel.
func (a *AsyncBackend) Send(ctx context.Context, req *http.Request, body io.ReadCloser) <-chan client.BackendResult {
	ch := make(chan client.BackendResult, 1)

	go func() {
		resp, err := a.b.Send(ctx, req, body)
		ch <- client.BackendResult{Response: resp, Err: err}
	}()

	return ch
}
