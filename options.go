package reqpipe

import (
	"errors"

	"github.com/adamwoolhether/reqpipe/client"
	"github.com/adamwoolhether/reqpipe/client/nethttp"
)

// Option configures NewClient and NewAsyncClient.
type Option func(*options) error

type options struct {
	backend []nethttp.Option
	client  []client.Option
}

// WithBackend configures the net/http backend: its client, transport,
// timeout, throttle and redirect policy.
func WithBackend(opts ...nethttp.Option) Option {
	return func(o *options) error {
		for _, opt := range opts {
			if opt == nil {
				return errors.New("backend option must not be nil")
			}
		}
		o.backend = append(o.backend, opts...)
		return nil
	}
}

// WithClientOptions configures the session: base URL, auth, default
// headers, retries and the like.
func WithClientOptions(opts ...client.Option) Option {
	return func(o *options) error {
		for _, opt := range opts {
			if opt == nil {
				return errors.New("client option must not be nil")
			}
		}
		o.client = append(o.client, opts...)
		return nil
	}
}
