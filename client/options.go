package client

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/trace"
	"golang.org/x/net/http/httpguts"
)

// Option is a functional option for configuring a [Client] or
// [AsyncClient].
type Option func(*options) error

type options struct {
	cfg         Config
	logger      *slog.Logger
	tracer      trace.Tracer
	reqIDHeader string
	concurrency int
}

func defaultOptions() options {
	return options{
		cfg:    DefaultConfig(),
		logger: slog.Default(),
	}
}

// WithConfig replaces the whole session configuration. Options applied
// after it still take effect.
func WithConfig(cfg Config) Option {
	return func(o *options) error {
		o.cfg = cfg.Clone()
		return nil
	}
}

// WithBaseURL sets the URL relative endpoints are resolved against.
func WithBaseURL(base string) Option {
	return func(o *options) error {
		u, err := url.Parse(base)
		if err != nil {
			return fmt.Errorf("parsing base url: %w", err)
		}
		if err := checkHTTP(u); err != nil {
			return err
		}
		o.cfg.BaseURL = base
		return nil
	}
}

// WithAuthToken sends "Authorization: Bearer <token>" with every request.
func WithAuthToken(token string) Option {
	return func(o *options) error {
		if !httpguts.ValidHeaderFieldValue(token) {
			return errors.New("auth token is not a valid header value")
		}
		o.cfg.AuthToken = token
		return nil
	}
}

// WithUserAgent replaces the default User-Agent. An empty value disables it.
func WithUserAgent(ua string) Option {
	return func(o *options) error {
		if !httpguts.ValidHeaderFieldValue(ua) {
			return errors.New("user agent is not a valid header value")
		}
		o.cfg.UserAgent = ua
		return nil
	}
}

// WithAccept replaces the default Accept header. An empty value disables it.
func WithAccept(accept string) Option {
	return func(o *options) error {
		if !httpguts.ValidHeaderFieldValue(accept) {
			return errors.New("accept is not a valid header value")
		}
		o.cfg.Accept = accept
		return nil
	}
}

// WithAPIVersion sets the API version header name and value. An empty
// value disables it.
func WithAPIVersion(header, version string) Option {
	return func(o *options) error {
		if version != "" && !httpguts.ValidHeaderFieldName(header) {
			return fmt.Errorf("invalid header name %q", header)
		}
		if !httpguts.ValidHeaderFieldValue(version) {
			return errors.New("api version is not a valid header value")
		}
		o.cfg.APIVersionHeader = header
		o.cfg.APIVersion = version
		return nil
	}
}

// WithHeader adds a static header sent with every request.
func WithHeader(key, value string) Option {
	return func(o *options) error {
		if err := validHeader(key, value); err != nil {
			return err
		}
		if o.cfg.Headers == nil {
			o.cfg.Headers = http.Header{}
		}
		o.cfg.Headers.Add(key, value)
		return nil
	}
}

// WithMutationDelay pauses before every POST, PUT, PATCH and DELETE send.
func WithMutationDelay(d time.Duration) Option {
	return func(o *options) error {
		if d < 0 {
			return errors.New("mutation delay must not be negative")
		}
		o.cfg.MutationDelay = d
		return nil
	}
}

// WithRetry sets the retry policy.
func WithRetry(p RetryPolicy) Option {
	return func(o *options) error {
		p.RetryStatuses = append([]int(nil), p.RetryStatuses...)
		o.cfg.Retry = p
		return nil
	}
}

// WithTimeout sets the default per-attempt timeout.
func WithTimeout(d time.Duration) Option {
	return func(o *options) error {
		if d < 0 {
			return errors.New("timeout must not be negative")
		}
		o.cfg.Timeout = d
		return nil
	}
}

// WithLogger injects a custom [slog.Logger].
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) error {
		if logger == nil {
			return errors.New("logger must not be nil")
		}
		o.logger = logger
		return nil
	}
}

// WithTracer records a span for every call. The trace context is also
// propagated in the outgoing headers using the global propagator.
func WithTracer(tracer trace.Tracer) Option {
	return func(o *options) error {
		if tracer == nil {
			return errors.New("tracer must not be nil")
		}
		o.tracer = tracer
		return nil
	}
}

// WithRequestIDHeader sends a fresh UUID in the named header on every
// attempt.
func WithRequestIDHeader(name string) Option {
	return func(o *options) error {
		if !httpguts.ValidHeaderFieldName(name) {
			return fmt.Errorf("invalid header name %q", name)
		}
		o.reqIDHeader = name
		return nil
	}
}

// WithConcurrency limits how many calls an [AsyncClient] runs at once.
// Zero means unlimited. It has no effect on a [Client].
func WithConcurrency(n int) Option {
	return func(o *options) error {
		if n < 0 {
			return errors.New("concurrency must not be negative")
		}
		o.concurrency = n
		return nil
	}
}

func validHeader(key, value string) error {
	if !httpguts.ValidHeaderFieldName(key) {
		return fmt.Errorf("invalid header name %q", key)
	}
	if !httpguts.ValidHeaderFieldValue(value) {
		return fmt.Errorf("invalid value for header %q", key)
	}
	if http.CanonicalHeaderKey(key) == "Content-Length" {
		if n, err := strconv.ParseInt(value, 10, 64); err != nil || n < 0 {
			return fmt.Errorf("content length %q is not a non-negative integer", value)
		}
	}

	return nil
}
