package client

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
)

// ErrorKind classifies where in the pipeline a request failed.
type ErrorKind int

const (
	// KindSend is a transport failure, including timeouts and cancellation.
	KindSend ErrorKind = iota + 1
	// KindStatus is a completed exchange with a 4xx or 5xx status.
	KindStatus
	// KindReadRequestBody is a local failure producing the outgoing body.
	KindReadRequestBody
	// KindReadResponse is a local failure reading the incoming body.
	KindReadResponse
	// KindParse is a failure reported by the response parser.
	KindParse
)

var (
	ErrSend            = errors.New("failed to send request")
	ErrStatus          = errors.New("unsuccessful status")
	ErrReadRequestBody = errors.New("error reading request body")
	ErrReadResponse    = errors.New("error reading response body")
	ErrParse           = errors.New("error parsing response body")

	// ErrAuthFailure matches Status errors with 401 Unauthorized or
	// 403 Forbidden.
	ErrAuthFailure = errors.New("auth failure")
)

func (k ErrorKind) sentinel() error {
	switch k {
	case KindSend:
		return ErrSend
	case KindStatus:
		return ErrStatus
	case KindReadRequestBody:
		return ErrReadRequestBody
	case KindReadResponse:
		return ErrReadResponse
	case KindParse:
		return ErrParse
	}

	return nil
}

func (k ErrorKind) String() string {
	switch k {
	case KindSend:
		return "Send"
	case KindStatus:
		return "Status"
	case KindReadRequestBody:
		return "ReadRequestBody"
	case KindReadResponse:
		return "ReadResponse"
	case KindParse:
		return "Parse"
	}

	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// Error is returned by every client operation that fails. Err holds the
// payload: the backend error for KindSend, an *ErrorResponse for
// KindStatus, and the underlying I/O or parser error otherwise.
type Error struct {
	Method Method
	URL    *url.URL
	Kind   ErrorKind
	Err    error
}

func newError(method Method, u *url.URL, kind ErrorKind, err error) *Error {
	return &Error{Method: method, URL: u, Kind: kind, Err: err}
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s request to %s failed: %s", e.Method, e.URL, e.summary())
}

func (e *Error) summary() string {
	if e.Kind == KindStatus {
		if resp := e.Response(); resp != nil {
			return resp.Error()
		}
	}

	if s := e.Kind.sentinel(); s != nil {
		return fmt.Sprintf("%v: %v", s, e.Err)
	}

	return fmt.Sprint(e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the sentinel for e.Kind, and ErrAuthFailure for 401/403.
func (e *Error) Is(target error) bool {
	if s := e.Kind.sentinel(); s != nil && target == s {
		return true
	}

	if target == ErrAuthFailure {
		code := e.StatusCode()
		return code == http.StatusUnauthorized || code == http.StatusForbidden
	}

	return false
}

// Response returns the captured error response of a Status error, or nil.
func (e *Error) Response() *ErrorResponse {
	var resp *ErrorResponse
	if errors.As(e.Err, &resp) {
		return resp
	}

	return nil
}

// StatusCode returns the response status of a Status error, or 0.
func (e *Error) StatusCode() int {
	if resp := e.Response(); resp != nil {
		return resp.StatusCode
	}

	return 0
}

// ErrorResponseBody returns the captured body of a Status error as text,
// with JSON pretty-printed. It reports false for other kinds and for
// empty bodies.
func (e *Error) ErrorResponseBody() (string, bool) {
	resp := e.Response()
	if resp == nil {
		return "", false
	}

	return resp.Body.PrettyText()
}
