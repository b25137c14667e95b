package client

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// RequestParts is the fully resolved description of a single send attempt.
// The client builds a fresh value for every attempt and never mutates it
// once handed to a backend.
type RequestParts struct {
	URL     *url.URL
	Method  Method
	Header  http.Header
	Timeout time.Duration // zero means no timeout
}

// Clone returns a deep copy of p.
func (p RequestParts) Clone() RequestParts {
	return RequestParts{
		URL:     cloneURL(p.URL),
		Method:  p.Method,
		Header:  p.Header.Clone(),
		Timeout: p.Timeout,
	}
}

// ResponseParts is the backend-independent metadata of a completed exchange.
type ResponseParts struct {
	InitialURL *url.URL // URL the request was sent to, before redirects
	URL        *url.URL // final URL after redirects
	Method     Method
	StatusCode int
	Header     http.Header
}

// Clone returns a deep copy of p.
func (p ResponseParts) Clone() ResponseParts {
	return ResponseParts{
		InitialURL: cloneURL(p.InitialURL),
		URL:        cloneURL(p.URL),
		Method:     p.Method,
		StatusCode: p.StatusCode,
		Header:     p.Header.Clone(),
	}
}

// Status renders the status code with its reason phrase, e.g. "404 Not Found".
func (p ResponseParts) Status() string {
	if text := http.StatusText(p.StatusCode); text != "" {
		return fmt.Sprintf("%d %s", p.StatusCode, text)
	}

	return strconv.Itoa(p.StatusCode)
}

// IsError reports whether the status code is a 4xx or 5xx.
func (p ResponseParts) IsError() bool {
	return p.StatusCode >= 400 && p.StatusCode < 600
}

// ContentLength returns the parsed Content-Length header, or -1 if absent
// or malformed.
func (p ResponseParts) ContentLength() int64 {
	return contentLength(p.Header)
}

// Response pairs ResponseParts with a body. When B is an io.ReadCloser the
// body may be read exactly once and must be closed by the caller.
type Response[B any] struct {
	ResponseParts
	Body B
}

func contentLength(h http.Header) int64 {
	v := h.Get("Content-Length")
	if v == "" {
		return -1
	}

	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n < 0 {
		return -1
	}

	return n
}
