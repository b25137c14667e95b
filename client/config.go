package client

import (
	"net/http"
	"time"
)

// Default session settings.
const (
	DefaultBaseURL          = "https://api.github.com"
	DefaultAccept           = "application/vnd.github+json"
	DefaultAPIVersionHeader = "X-GitHub-Api-Version"
	DefaultAPIVersion       = "2022-11-28"
	DefaultUserAgent        = "reqpipe/" + Version + " (https://github.com/adamwoolhether/reqpipe)"
)

// Version is the library version reported in the default User-Agent.
const Version = "0.1.0"

// Config holds the session-wide settings applied to every request. It is
// read at preparation time and never pushed into the backend.
type Config struct {
	BaseURL   string `json:"baseURL" validate:"required,url"`
	AuthToken string `json:"-"`
	UserAgent string `json:"userAgent"`
	Accept    string `json:"accept"`

	// APIVersion is sent in APIVersionHeader when both are non-empty.
	APIVersion       string `json:"apiVersion"`
	APIVersionHeader string `json:"apiVersionHeader"`

	// Headers are sent with every request. Built-in and per-request
	// headers with the same name replace them.
	Headers http.Header `json:"headers"`

	// MutationDelay is waited before every POST, PUT, PATCH or DELETE send.
	MutationDelay time.Duration `json:"mutationDelay" validate:"gte=0s"`

	// Timeout bounds each attempt, including reading the body. Zero
	// disables it.
	Timeout time.Duration `json:"timeout" validate:"gte=0s"`

	Retry RetryPolicy `json:"retry"`
}

// DefaultConfig returns the settings used when no options are given.
func DefaultConfig() Config {
	return Config{
		BaseURL:          DefaultBaseURL,
		UserAgent:        DefaultUserAgent,
		Accept:           DefaultAccept,
		APIVersion:       DefaultAPIVersion,
		APIVersionHeader: DefaultAPIVersionHeader,
		Headers:          http.Header{},
		Retry:            RetryPolicy{MaxAttempts: 1},
	}
}

// Clone returns a copy of c that shares no mutable state with it.
func (c Config) Clone() Config {
	c.Headers = canonicalHeader(c.Headers)
	c.Retry.RetryStatuses = append([]int(nil), c.Retry.RetryStatuses...)

	return c
}

// defaultHeaders returns the configured headers followed by the built-in
// ones, in application order.
func (c Config) defaultHeaders() http.Header {
	h := canonicalHeader(c.Headers)

	if c.AuthToken != "" {
		h.Set("Authorization", "Bearer "+c.AuthToken)
	}
	if c.UserAgent != "" {
		h.Set("User-Agent", c.UserAgent)
	}
	if c.Accept != "" {
		h.Set("Accept", c.Accept)
	}
	if c.APIVersion != "" && c.APIVersionHeader != "" {
		h.Set(c.APIVersionHeader, c.APIVersion)
	}

	return h
}

// canonicalHeader copies h with every key in canonical form, so that later
// layers replace configured headers regardless of how they were spelled.
func canonicalHeader(h http.Header) http.Header {
	out := make(http.Header, len(h))
	for k, vs := range h {
		for _, v := range vs {
			out.Add(k, v)
		}
	}

	return out
}
