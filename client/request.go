package client

import (
	"errors"
	"net/http"
	"time"
)

// Operation describes everything about a request except how to interpret
// its response.
type Operation interface {
	Endpoint() Endpoint
	Method() Method
	Header() http.Header
	Params() Params
	// Timeout overrides the session timeout when positive.
	Timeout() time.Duration
	Body() RequestBody
}

// Request is an Operation whose response is parsed into T. Parser must
// return a fresh instance on every call.
type Request[T any] interface {
	Operation
	Parser() Parser[T]
}

// RequestDefaults can be embedded to supply the optional parts of an
// Operation: no headers, no params, no timeout override and an empty body.
type RequestDefaults struct{}

func (RequestDefaults) Header() http.Header    { return nil }
func (RequestDefaults) Params() Params         { return nil }
func (RequestDefaults) Timeout() time.Duration { return 0 }
func (RequestDefaults) Body() RequestBody      { return EmptyBody{} }

// RequestOption is a functional option for [NewRequest].
type RequestOption func(*requestOpts) error

type requestOpts struct {
	header  http.Header
	params  Params
	timeout time.Duration
	body    RequestBody
}

// WithHeaders adds headers to the request. They replace same-named session
// headers.
func WithHeaders(h http.Header) RequestOption {
	return func(o *requestOpts) error {
		for k, vs := range h {
			for _, v := range vs {
				if err := validHeader(k, v); err != nil {
					return err
				}
				o.header.Add(k, v)
			}
		}
		return nil
	}
}

// WithRequestHeader adds a single header to the request.
func WithRequestHeader(key, value string) RequestOption {
	return func(o *requestOpts) error {
		if err := validHeader(key, value); err != nil {
			return err
		}
		o.header.Add(key, value)
		return nil
	}
}

// WithParams appends query parameters.
func WithParams(params ...Param) RequestOption {
	return func(o *requestOpts) error {
		for _, p := range params {
			if p.Key == "" {
				return errors.New("param key must not be empty")
			}
		}
		o.params = append(o.params, params...)
		return nil
	}
}

// WithParam appends a single key=value query parameter.
func WithParam(key, value string) RequestOption {
	return WithParams(Param{Key: key, Value: value})
}

// WithRequestTimeout overrides the session timeout for this request.
func WithRequestTimeout(d time.Duration) RequestOption {
	return func(o *requestOpts) error {
		if d < 0 {
			return errors.New("timeout must not be negative")
		}
		o.timeout = d
		return nil
	}
}

// WithBody sets the request body.
func WithBody(body RequestBody) RequestOption {
	return func(o *requestOpts) error {
		if body == nil {
			return errors.New("body must not be nil")
		}
		o.body = body
		return nil
	}
}

// WithPayload sets a JSON-encoded request body.
func WithPayload(v any) RequestOption {
	return WithBody(JSONBody{Value: v})
}

func buildRequestOpts(opts []RequestOption) (requestOpts, error) {
	o := requestOpts{header: http.Header{}, body: EmptyBody{}}
	for _, opt := range opts {
		if err := opt(&o); err != nil {
			return requestOpts{}, err
		}
	}

	return o, nil
}

// NewRequest builds a Request from its parts. newParser is called once per
// attempt.
func NewRequest[T any](method Method, endpoint Endpoint, newParser func() Parser[T], opts ...RequestOption) (Request[T], error) {
	if !method.Valid() {
		return nil, ErrUnsupportedMethod
	}
	if newParser == nil {
		return nil, errors.New("parser factory must not be nil")
	}

	o, err := buildRequestOpts(opts)
	if err != nil {
		return nil, err
	}

	return &request[T]{
		method:    method,
		endpoint:  endpoint,
		opts:      o,
		newParser: newParser,
	}, nil
}

type request[T any] struct {
	method    Method
	endpoint  Endpoint
	opts      requestOpts
	newParser func() Parser[T]
}

func (r *request[T]) Endpoint() Endpoint     { return r.endpoint }
func (r *request[T]) Method() Method         { return r.method }
func (r *request[T]) Header() http.Header    { return r.opts.header }
func (r *request[T]) Params() Params         { return r.opts.params }
func (r *request[T]) Timeout() time.Duration { return r.opts.timeout }
func (r *request[T]) Body() RequestBody      { return r.opts.body }
func (r *request[T]) Parser() Parser[T]      { return r.newParser() }

// PaginatedRequest describes a paginated GET endpoint whose pages hold
// items of type T. It has no body.
type PaginatedRequest[T any] interface {
	Endpoint() Endpoint
	Header() http.Header
	Params() Params
	Timeout() time.Duration
	// PageParser returns a fresh parser for one page.
	PageParser() Parser[Page[T]]
}

// NewPageRequest builds a PaginatedRequest whose pages are decoded with
// [NewPageParser]. WithBody and WithPayload are rejected.
func NewPageRequest[T any](endpoint Endpoint, opts ...RequestOption) (PaginatedRequest[T], error) {
	o, err := buildRequestOpts(opts)
	if err != nil {
		return nil, err
	}
	if _, ok := o.body.(EmptyBody); !ok {
		return nil, errors.New("paginated requests cannot carry a body")
	}

	return &pageRequest[T]{endpoint: endpoint, opts: o}, nil
}

type pageRequest[T any] struct {
	endpoint Endpoint
	opts     requestOpts
}

func (r *pageRequest[T]) Endpoint() Endpoint          { return r.endpoint }
func (r *pageRequest[T]) Header() http.Header         { return r.opts.header }
func (r *pageRequest[T]) Params() Params              { return r.opts.params }
func (r *pageRequest[T]) Timeout() time.Duration      { return r.opts.timeout }
func (r *pageRequest[T]) PageParser() Parser[Page[T]] { return NewPageParser[T]() }

// pageOperation is the GET for one page. url is set for every page after
// the first.
type pageOperation[T any] struct {
	req PaginatedRequest[T]
	url *Endpoint
}

func (o pageOperation[T]) Endpoint() Endpoint {
	if o.url != nil {
		return *o.url
	}
	return o.req.Endpoint()
}

func (o pageOperation[T]) Method() Method         { return MethodGet }
func (o pageOperation[T]) Header() http.Header    { return o.req.Header() }
func (o pageOperation[T]) Timeout() time.Duration { return o.req.Timeout() }
func (o pageOperation[T]) Body() RequestBody      { return EmptyBody{} }
func (o pageOperation[T]) Parser() Parser[Page[T]] {
	return o.req.PageParser()
}

func (o pageOperation[T]) Params() Params {
	if o.url != nil {
		return nil
	}
	return o.req.Params()
}
