package client

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
)

// ErrBodyConsumed is returned when a one-shot request body is opened a
// second time, e.g. on a retry.
var ErrBodyConsumed = errors.New("request body already consumed")

// RequestBody produces the bytes sent with a request. Header returns any
// headers derived from the body; Open returns a fresh stream for one
// attempt. A failing Open surfaces as a ReadRequestBody error.
type RequestBody interface {
	Header() http.Header
	Open() (io.ReadCloser, error)
}

// EmptyBody sends no bytes and sets Content-Length: 0.
type EmptyBody struct{}

func (EmptyBody) Header() http.Header {
	return lengthHeader(0)
}

func (EmptyBody) Open() (io.ReadCloser, error) {
	return http.NoBody, nil
}

// JSONBody serializes Value as JSON and sets Content-Type: application/json.
type JSONBody struct {
	Value any
}

func (JSONBody) Header() http.Header {
	return http.Header{"Content-Type": {"application/json"}}
}

func (b JSONBody) Open() (io.ReadCloser, error) {
	data, err := json.Marshal(b.Value)
	if err != nil {
		return nil, fmt.Errorf("encoding request payload: %w", err)
	}

	return io.NopCloser(bytes.NewReader(data)), nil
}

// BytesBody sends the buffer as-is.
type BytesBody []byte

func (b BytesBody) Header() http.Header {
	return lengthHeader(int64(len(b)))
}

func (b BytesBody) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(b)), nil
}

// TextBody sends the string as UTF-8 bytes.
type TextBody string

func (b TextBody) Header() http.Header {
	return lengthHeader(int64(len(b)))
}

func (b TextBody) Open() (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader(string(b))), nil
}

// FileBody streams the file at the given path without buffering it.
// Content-Length is set from the file size when the file can be stat'ed.
type FileBody string

func (b FileBody) Header() http.Header {
	info, err := os.Stat(string(b))
	if err != nil || !info.Mode().IsRegular() {
		return nil
	}

	return lengthHeader(info.Size())
}

func (b FileBody) Open() (io.ReadCloser, error) {
	f, err := os.Open(string(b))
	if err != nil {
		return nil, fmt.Errorf("opening request body file: %w", err)
	}

	return f, nil
}

// ReaderBody wraps r as a body that can be opened once. Retrying a request
// that carries a ReaderBody fails with ErrBodyConsumed.
func ReaderBody(r io.Reader) RequestBody {
	return &readerBody{r: r}
}

type readerBody struct {
	mu   sync.Mutex
	r    io.Reader
	used bool
}

func (*readerBody) Header() http.Header {
	return nil
}

func (b *readerBody) Open() (io.ReadCloser, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.used {
		return nil, ErrBodyConsumed
	}
	b.used = true

	if rc, ok := b.r.(io.ReadCloser); ok {
		return rc, nil
	}

	return io.NopCloser(b.r), nil
}

func lengthHeader(n int64) http.Header {
	return http.Header{"Content-Length": {strconv.FormatInt(n, 10)}}
}

// trackedBody records the first read failure of an outgoing body so a
// failed send can be attributed to the body rather than the transport.
type trackedBody struct {
	rc  io.ReadCloser
	mu  sync.Mutex
	err error
}

func (t *trackedBody) Read(p []byte) (int, error) {
	n, err := t.rc.Read(p)
	if err != nil && !errors.Is(err, io.EOF) {
		t.mu.Lock()
		if t.err == nil {
			t.err = err
		}
		t.mu.Unlock()
	}

	return n, err
}

func (t *trackedBody) Close() error {
	return t.rc.Close()
}

func (t *trackedBody) readErr() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.err
}
