package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"slices"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Client executes requests through a blocking [Backend]. It holds no
// mutable state besides its configuration and is safe for concurrent use
// when the backend is.
type Client struct {
	s *session
}

// New returns a Client that sends through backend.
func New[R any](backend Backend[R], optFns ...Option) (*Client, error) {
	if backend == nil {
		return nil, errors.New("backend must not be nil")
	}

	s, _, err := newSession(blockingSend(backend), optFns)
	if err != nil {
		return nil, err
	}

	return &Client{s: s}, nil
}

// Config returns a copy of the session configuration.
func (c *Client) Config() Config {
	return c.s.cfg.Clone()
}

// Prepare resolves op against the session configuration without sending
// it. It panics if op's method is unsupported.
func (c *Client) Prepare(op Operation) RequestParts {
	return c.s.prepare(op)
}

// Stream sends op and returns the response with its body unread. The
// caller must close the body, which also releases the request timeout.
// Error statuses are still reported as Status errors.
func (c *Client) Stream(ctx context.Context, op Operation) (*Response[io.ReadCloser], error) {
	return run(ctx, c.s, "client.stream", op, c.s.streamHandler)
}

// Do sends req and parses the response with a fresh parser from
// req.Parser. Every failure is returned as an *Error.
func Do[T any](ctx context.Context, c *Client, req Request[T]) (T, error) {
	return run(ctx, c.s, "client.do", req, parseHandler(c.s, req.Parser))
}

// =============================================================================

// session is the orchestration core shared by Client and AsyncClient.
type session struct {
	cfg         Config
	baseURL     *url.URL
	logger      *slog.Logger
	tracer      trace.Tracer
	reqIDHeader string
	send        sendFunc
}

func newSession(send sendFunc, optFns []Option) (*session, options, error) {
	opts := defaultOptions()
	for _, opt := range optFns {
		if err := opt(&opts); err != nil {
			return nil, options{}, fmt.Errorf("applying client option: %w", err)
		}
	}

	if err := validateConfig(opts.cfg); err != nil {
		return nil, options{}, err
	}

	base, err := url.Parse(opts.cfg.BaseURL)
	if err != nil {
		return nil, options{}, fmt.Errorf("parsing base url: %w", err)
	}
	if err := checkHTTP(base); err != nil {
		return nil, options{}, err
	}

	for k, vs := range opts.cfg.Headers {
		for _, v := range vs {
			if err := validHeader(k, v); err != nil {
				return nil, options{}, err
			}
		}
	}

	s := &session{
		cfg:         opts.cfg.Clone(),
		baseURL:     base,
		logger:      opts.logger,
		tracer:      opts.tracer,
		reqIDHeader: opts.reqIDHeader,
		send:        send,
	}
	if s.tracer == nil {
		s.tracer = noop.NewTracerProvider().Tracer("no-op tracer")
	}

	return s, opts, nil
}

// prepare builds the parts for one attempt. Headers are applied in order:
// configured headers, built-in headers, body headers, request headers.
// Each layer replaces same-named headers of the layers before it.
func (s *session) prepare(op Operation) RequestParts {
	method := op.Method()
	if !method.Valid() {
		panic(fmt.Sprintf("client: %v %q", ErrUnsupportedMethod, method))
	}

	u := op.Endpoint().resolve(s.baseURL)
	u.RawQuery = op.Params().encode(u.RawQuery)

	h := s.cfg.defaultHeaders()
	if body := op.Body(); body != nil {
		mergeHeader(h, body.Header())
	}
	mergeHeader(h, op.Header())

	timeout := s.cfg.Timeout
	if t := op.Timeout(); t > 0 {
		timeout = t
	}

	return RequestParts{
		URL:     u,
		Method:  method,
		Header:  h,
		Timeout: timeout,
	}
}

func mergeHeader(dst, src http.Header) {
	for k, vs := range src {
		dst[http.CanonicalHeaderKey(k)] = slices.Clone(vs)
	}
}

// handler consumes a successful response. It owns body and cancel.
type handler[T any] func(ctx context.Context, parts ResponseParts, body io.ReadCloser, cancel context.CancelFunc) (T, ErrorKind, error)

func parseHandler[T any](s *session, newParser func() Parser[T]) handler[T] {
	return func(ctx context.Context, parts ResponseParts, body io.ReadCloser, cancel context.CancelFunc) (T, ErrorKind, error) {
		defer cancel()
		defer s.closeBody(body)

		return parseBody(ctx, newParser(), parts, body)
	}
}

func (s *session) streamHandler(_ context.Context, parts ResponseParts, body io.ReadCloser, cancel context.CancelFunc) (*Response[io.ReadCloser], ErrorKind, error) {
	return &Response[io.ReadCloser]{
		ResponseParts: parts,
		Body:          &cancelBody{ReadCloser: body, cancel: cancel},
	}, 0, nil
}

// run executes op with retries.
func run[T any](ctx context.Context, s *session, spanName string, op Operation, handle handler[T]) (T, error) {
	ctx, span := s.startSpan(ctx, spanName, op)
	defer span.End()

	policy := s.cfg.Retry

	var bo *backoff.ExponentialBackOff
	for attempt := 1; ; attempt++ {
		parts := s.prepare(op)

		v, err := once(ctx, s, parts, op.Body(), handle)
		if err == nil {
			return v, nil
		}

		if attempt >= policy.attempts() || !policy.shouldRetry(err) {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return v, err
		}

		if bo == nil {
			bo = policy.newBackOff()
		}
		wait := policy.wait(bo, err)

		s.logger.Info("retrying request", "method", parts.Method, "url", parts.URL.String(), "attempt", attempt, "backoff", wait.String(), "error", err)
		span.AddEvent("retry", trace.WithAttributes(
			attribute.Int("attempt", attempt),
			attribute.String("error.kind", err.Kind.String()),
		))

		if sleep(ctx, wait) != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return v, err
		}
	}
}

// once performs a single attempt.
func once[T any](ctx context.Context, s *session, parts RequestParts, reqBody RequestBody, handle handler[T]) (T, *Error) {
	var zero T
	fail := func(kind ErrorKind, err error) (T, *Error) {
		return zero, newError(parts.Method, parts.URL, kind, err)
	}

	if parts.Method.IsMutating() && s.cfg.MutationDelay > 0 {
		s.logger.Debug("applying mutation delay", "method", parts.Method, "delay", s.cfg.MutationDelay.String())
		if err := sleep(ctx, s.cfg.MutationDelay); err != nil {
			return fail(KindSend, err)
		}
	}

	if reqBody == nil {
		reqBody = EmptyBody{}
	}
	rc, err := reqBody.Open()
	if err != nil {
		return fail(KindReadRequestBody, err)
	}
	body := &trackedBody{rc: rc}

	var cancel context.CancelFunc
	if parts.Timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, parts.Timeout)
	} else {
		ctx, cancel = context.WithCancel(ctx)
	}

	s.stamp(ctx, parts.Header)

	resp, err := s.send(ctx, parts, body)
	if err != nil {
		cancel()
		if rerr := body.readErr(); rerr != nil {
			return fail(KindReadRequestBody, rerr)
		}
		return fail(KindSend, err)
	}

	rp := ResponseParts{
		InitialURL: parts.URL,
		URL:        resp.URL(),
		Method:     parts.Method,
		StatusCode: resp.StatusCode(),
		Header:     resp.Header(),
	}
	if rp.URL == nil {
		rp.URL = cloneURL(parts.URL)
	}
	if rp.Header == nil {
		rp.Header = http.Header{}
	}

	respBody := resp.Body()
	if respBody == nil {
		respBody = http.NoBody
	}

	if rp.IsError() {
		defer cancel()
		defer s.closeBody(respBody)

		er, kind, err := parseBody(ctx, &errorResponseParser{}, rp, respBody)
		if err != nil {
			return fail(kind, err)
		}
		return fail(KindStatus, er)
	}

	v, kind, err := handle(ctx, rp, respBody, cancel)
	if err != nil {
		return fail(kind, err)
	}

	return v, nil
}

// stamp adds the per-attempt request ID and trace context to h.
func (s *session) stamp(ctx context.Context, h http.Header) {
	if s.reqIDHeader != "" {
		h.Set(s.reqIDHeader, uuid.NewString())
	}

	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(h))
}

func (s *session) startSpan(ctx context.Context, name string, op Operation) (context.Context, trace.Span) {
	ctx, span := s.tracer.Start(ctx, name, trace.WithSpanKind(trace.SpanKindClient))
	span.SetAttributes(
		attribute.String("http.request.method", string(op.Method())),
		attribute.String("endpoint", op.Endpoint().String()),
	)

	return ctx, span
}

// closeBody drains and closes a response body.
func (s *session) closeBody(body io.ReadCloser) {
	if _, err := io.Copy(io.Discard, body); err != nil {
		s.logger.Error("failed to discard unused body", "error", err)
	}
	if err := body.Close(); err != nil {
		s.logger.Error("failed to close response body", "error", err)
	}
}

// release disposes of a response nobody is waiting for.
func (s *session) release(resp BackendResponse) {
	if body := resp.Body(); body != nil {
		s.closeBody(body)
	}
}

// cancelBody ends the attempt's context when the caller closes the body.
type cancelBody struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (b *cancelBody) Close() error {
	defer b.cancel()
	return b.ReadCloser.Close()
}
