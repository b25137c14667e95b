// Package reqpipe builds clients that send through net/http.
//
// It wires the client package to the nethttp backend with a dialer and
// connection pool suited to talking to a single API host. For other
// transports, build a backend and call client.New directly.
package reqpipe

import (
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/adamwoolhether/reqpipe/client"
	"github.com/adamwoolhether/reqpipe/client/nethttp"
)

// NewClient returns a blocking client backed by net/http. If no transport
// is given with WithBackend, a dedicated transport with a 5s dial timeout
// is used.
func NewClient(optFns ...Option) (*client.Client, error) {
	opts, err := buildOptions(optFns)
	if err != nil {
		return nil, err
	}

	backend, err := nethttp.New(opts.backend...)
	if err != nil {
		return nil, fmt.Errorf("building backend: %w", err)
	}

	return client.New(backend, opts.client...)
}

// NewAsyncClient is NewClient for the Future-based [client.AsyncClient].
func NewAsyncClient(optFns ...Option) (*client.AsyncClient, error) {
	opts, err := buildOptions(optFns)
	if err != nil {
		return nil, err
	}

	backend, err := nethttp.NewAsync(opts.backend...)
	if err != nil {
		return nil, fmt.Errorf("building backend: %w", err)
	}

	return client.NewAsync(backend, opts.client...)
}

func buildOptions(optFns []Option) (options, error) {
	var opts options
	for _, opt := range optFns {
		if err := opt(&opts); err != nil {
			return options{}, fmt.Errorf("applying option: %w", err)
		}
	}

	// Prepended so a caller-supplied client or transport wins.
	base := &http.Client{Transport: defaultTransport()}
	opts.backend = append([]nethttp.Option{nethttp.WithClient(base)}, opts.backend...)

	return opts, nil
}

func defaultTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout: 5 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          5,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: time.Second,
	}
}
