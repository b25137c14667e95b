// Package clienttest provides a scripted in-memory backend for testing
// code built on the client package.
package clienttest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/adamwoolhether/reqpipe/client"
)

// ErrNoReply is returned by a Sequence backend that has run out of replies.
var ErrNoReply = errors.New("clienttest: no reply scripted")

// Reply scripts the outcome of one send.
type Reply struct {
	Status int // defaults to 200
	Header http.Header
	Body   string

	// URL overrides the final URL, as if the request was redirected.
	URL *url.URL

	// Err fails the send with a transport error.
	Err error

	// BodyErr is returned by the body reader after Body is exhausted.
	BodyErr error

	// Delay holds the reply back. The send fails early if its context ends.
	Delay time.Duration
}

// Sent records one send.
type Sent struct {
	Parts client.RequestParts
	Body  []byte
	At    time.Time
}

// Handler produces the reply for a send.
type Handler func(parts client.RequestParts, body []byte) Reply

// Backend is a scripted [client.Backend] with native request type
// [client.RequestParts]. It is safe for concurrent use.
type Backend struct {
	handler Handler

	mu   sync.Mutex
	sent []Sent
}

// New returns a Backend that answers every send with h.
func New(h Handler) *Backend {
	return &Backend{handler: h}
}

// Sequence returns a Backend that answers the nth send with the nth reply.
// Sends past the last reply fail with ErrNoReply.
func Sequence(replies ...Reply) *Backend {
	var mu sync.Mutex
	var n int

	return New(func(client.RequestParts, []byte) Reply {
		mu.Lock()
		defer mu.Unlock()

		if n >= len(replies) {
			return Reply{Err: ErrNoReply}
		}
		r := replies[n]
		n++

		return r
	})
}

// JSON is a 200 reply with a JSON content type.
func JSON(body string) Reply {
	return Reply{
		Status: http.StatusOK,
		Header: http.Header{"Content-Type": {"application/json"}},
		Body:   body,
	}
}

// PrepareRequest returns a copy of parts.
func (b *Backend) PrepareRequest(parts client.RequestParts) client.RequestParts {
	return parts.Clone()
}

// Send reads and records the whole body, then answers with the scripted
// reply.
func (b *Backend) Send(ctx context.Context, parts client.RequestParts, body io.ReadCloser) (client.BackendResponse, error) {
	data, err := io.ReadAll(body)
	if cerr := body.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return nil, fmt.Errorf("reading request body: %w", err)
	}

	b.mu.Lock()
	b.sent = append(b.sent, Sent{Parts: parts, Body: data, At: time.Now()})
	b.mu.Unlock()

	reply := b.handler(parts, data)

	if reply.Delay > 0 {
		t := time.NewTimer(reply.Delay)
		defer t.Stop()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-t.C:
		}
	}

	if reply.Err != nil {
		return nil, reply.Err
	}

	status := reply.Status
	if status == 0 {
		status = http.StatusOK
	}

	var r io.Reader = bytes.NewReader([]byte(reply.Body))
	if reply.BodyErr != nil {
		r = io.MultiReader(r, errReader{reply.BodyErr})
	}

	resp := &response{
		url:    reply.URL,
		status: status,
		header: reply.Header.Clone(),
		body:   io.NopCloser(ctxReader{ctx: ctx, r: r}),
	}
	if resp.header == nil {
		resp.header = http.Header{}
	}

	return resp, nil
}

// Calls returns every send recorded so far, in order.
func (b *Backend) Calls() []Sent {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]Sent, len(b.sent))
	copy(out, b.sent)

	return out
}

// Async returns an [AsyncBackend] answering from the same script.
func (b *Backend) Async() *AsyncBackend {
	return &AsyncBackend{b: b}
}

// AsyncBackend is the suspend-based counterpart of [Backend].
type AsyncBackend struct {
	b *Backend
}

func (a *AsyncBackend) PrepareRequest(parts client.RequestParts) client.RequestParts {
	return a.b.PrepareRequest(parts)
}

func (a *AsyncBackend) Send(ctx context.Context, parts client.RequestParts, body io.ReadCloser) <-chan client.BackendResult {
	ch := make(chan client.BackendResult, 1)

	go func() {
		resp, err := a.b.Send(ctx, parts, body)
		ch <- client.BackendResult{Response: resp, Err: err}
	}()

	return ch
}

// Calls is the same as [Backend.Calls].
func (a *AsyncBackend) Calls() []Sent {
	return a.b.Calls()
}

type response struct {
	url    *url.URL
	status int
	header http.Header
	body   io.ReadCloser
}

func (r *response) URL() *url.URL       { return r.url }
func (r *response) StatusCode() int     { return r.status }
func (r *response) Header() http.Header { return r.header }
func (r *response) Body() io.ReadCloser { return r.body }

type errReader struct {
	err error
}

func (e errReader) Read([]byte) (int, error) {
	return 0, e.err
}

// ctxReader fails reads once ctx has ended.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}

	return c.r.Read(p)
}
