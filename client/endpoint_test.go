package client_test

import (
	"errors"
	"net/url"
	"testing"

	"github.com/adamwoolhether/reqpipe/client"
	"github.com/adamwoolhether/reqpipe/client/clienttest"
)

func TestParseMethod(t *testing.T) {
	tests := []struct {
		in       string
		exp      client.Method
		mutating bool
		expErr   bool
	}{
		{in: "get", exp: client.MethodGet},
		{in: "POST", exp: client.MethodPost, mutating: true},
		{in: "Put", exp: client.MethodPut, mutating: true},
		{in: "patch", exp: client.MethodPatch, mutating: true},
		{in: "DELETE", exp: client.MethodDelete, mutating: true},
		{in: "HEAD", expErr: true},
		{in: "", expErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			m, err := client.ParseMethod(tt.in)
			if tt.expErr {
				if !errors.Is(err, client.ErrUnsupportedMethod) {
					t.Fatalf("expected ErrUnsupportedMethod, got: %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("expected no error, got: %v", err)
			}
			if m != tt.exp || m.IsMutating() != tt.mutating {
				t.Errorf("expected %s (mutating=%v), got %s (mutating=%v)", tt.exp, tt.mutating, m, m.IsMutating())
			}
		})
	}
}

func TestEndpointResolution(t *testing.T) {
	tests := []struct {
		name     string
		base     string
		endpoint func(t *testing.T) client.Endpoint
		params   client.Params
		exp      string
	}{
		{
			name:     "segments joined on base path",
			base:     "https://ghe.test/api/v3",
			endpoint: func(*testing.T) client.Endpoint { return client.PathEndpoint("repos", "o", "r") },
			exp:      "https://ghe.test/api/v3/repos/o/r",
		},
		{
			name:     "trailing slash on base",
			base:     "https://ghe.test/api/v3/",
			endpoint: func(*testing.T) client.Endpoint { return client.PathEndpoint("user") },
			exp:      "https://ghe.test/api/v3/user",
		},
		{
			name:     "segment with slash is escaped",
			base:     testBase,
			endpoint: func(*testing.T) client.Endpoint { return client.PathEndpoint("contents", "dir/file.txt") },
			exp:      testBase + "/contents/dir%2Ffile.txt",
		},
		{
			name:     "parsed relative path",
			base:     testBase,
			endpoint: func(t *testing.T) client.Endpoint { return mustEndpoint(t, "/repos//o/r/") },
			exp:      testBase + "/repos/o/r",
		},
		{
			name:     "empty endpoint",
			base:     testBase,
			endpoint: func(*testing.T) client.Endpoint { return client.PathEndpoint() },
			exp:      testBase + "/",
		},
		{
			name: "url endpoint",
			base: testBase,
			endpoint: func(t *testing.T) client.Endpoint {
				u, err := url.Parse("http://uploads.test/assets?name=a")
				if err != nil {
					t.Fatal(err)
				}
				return client.URLEndpoint(u)
			},
			params: client.Params{}.Add("label", "x y").AddKey("raw"),
			exp:    "http://uploads.test/assets?name=a&label=x+y&raw",
		},
		{
			name:     "params escaped",
			base:     testBase,
			endpoint: func(*testing.T) client.Endpoint { return client.PathEndpoint("search") },
			params:   client.Params{}.Add("q", "a&b=c").Add("q", "é"),
			exp:      testBase + "/search?q=a%26b%3Dc&q=%C3%A9",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := client.New(clienttest.Sequence(), client.WithBaseURL(tt.base))
			if err != nil {
				t.Fatalf("failed to create client: %v", err)
			}

			req := mustRequest(t, client.MethodGet, tt.endpoint(t), client.Discard, client.WithParams(tt.params...))

			if got := c.Prepare(req).URL.String(); got != tt.exp {
				t.Errorf("expected %q, got %q", tt.exp, got)
			}
		})
	}
}

func TestParseEndpoint(t *testing.T) {
	tests := []struct {
		in     string
		isURL  bool
		expErr error
		fail   bool
	}{
		{in: "repos/o/r"},
		{in: "https://api.example.test/x?page=2", isURL: true},
		{in: "ftp://files.test/x", expErr: client.ErrNotHTTP, fail: true},
		{in: "repos?x=1", fail: true},
		{in: "https:///nohost", fail: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			e, err := client.ParseEndpoint(tt.in)
			if tt.fail {
				if err == nil {
					t.Fatal("expected error")
				}
				if tt.expErr != nil && !errors.Is(err, tt.expErr) {
					t.Errorf("expected %v, got: %v", tt.expErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("expected no error, got: %v", err)
			}
			if e.IsURL() != tt.isURL {
				t.Errorf("expected IsURL=%v", tt.isURL)
			}
			if e.String() != tt.in {
				t.Errorf("expected String %q, got %q", tt.in, e.String())
			}
		})
	}
}
