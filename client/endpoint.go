package client

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"
)

// ErrNotHTTP is returned when a URL does not use the http or https scheme.
var ErrNotHTTP = errors.New("url scheme must be http or https")

// Endpoint identifies the target of a request. An endpoint is either an
// absolute URL, which replaces the client's base URL entirely, or a list
// of path segments appended to the base URL.
type Endpoint struct {
	url  *url.URL
	path []string
}

// URLEndpoint returns an Endpoint targeting u as-is.
func URLEndpoint(u *url.URL) Endpoint {
	return Endpoint{url: cloneURL(u)}
}

// PathEndpoint returns an Endpoint whose segments are joined onto the base
// URL. Each segment is escaped individually, so a segment may contain '/'.
func PathEndpoint(segments ...string) Endpoint {
	return Endpoint{path: slices.Clone(segments)}
}

// ParseEndpoint parses s into an absolute URL endpoint when it carries a
// scheme, or into path segments otherwise. Relative endpoints must not
// carry a query string; use Params instead.
func ParseEndpoint(s string) (Endpoint, error) {
	u, err := url.Parse(s)
	if err != nil {
		return Endpoint{}, fmt.Errorf("parsing endpoint: %w", err)
	}

	if u.IsAbs() {
		if err := checkHTTP(u); err != nil {
			return Endpoint{}, err
		}
		return Endpoint{url: u}, nil
	}

	if u.RawQuery != "" || u.Fragment != "" {
		return Endpoint{}, fmt.Errorf("relative endpoint %q must not carry a query or fragment", s)
	}

	var segments []string
	for seg := range strings.SplitSeq(u.Path, "/") {
		if seg != "" {
			segments = append(segments, seg)
		}
	}

	return Endpoint{path: segments}, nil
}

// IsURL reports whether e is an absolute URL endpoint.
func (e Endpoint) IsURL() bool {
	return e.url != nil
}

func (e Endpoint) String() string {
	if e.url != nil {
		return e.url.String()
	}

	return strings.Join(e.path, "/")
}

// resolve joins e onto base. Absolute endpoints ignore base.
func (e Endpoint) resolve(base *url.URL) *url.URL {
	if e.url != nil {
		return cloneURL(e.url)
	}

	b := cloneURL(base)
	if b.Path == "" {
		b.Path = "/"
	}

	escaped := make([]string, len(e.path))
	for i, seg := range e.path {
		escaped[i] = url.PathEscape(seg)
	}

	return b.JoinPath(escaped...)
}

// Param is a single query parameter. A Bare parameter renders as its key
// alone, without '='.
type Param struct {
	Key   string
	Value string
	Bare  bool
}

// Params is an ordered list of query parameters. Keys may repeat.
type Params []Param

// Add appends key=value and returns the extended list.
func (p Params) Add(key, value string) Params {
	return append(p, Param{Key: key, Value: value})
}

// AddKey appends a valueless key and returns the extended list.
func (p Params) AddKey(key string) Params {
	return append(p, Param{Key: key, Bare: true})
}

// encode appends p to an existing raw query string.
func (p Params) encode(rawQuery string) string {
	var b strings.Builder
	b.WriteString(rawQuery)

	for _, prm := range p {
		if b.Len() > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(prm.Key))
		if !prm.Bare {
			b.WriteByte('=')
			b.WriteString(url.QueryEscape(prm.Value))
		}
	}

	return b.String()
}

func checkHTTP(u *url.URL) error {
	switch u.Scheme {
	case "http", "https":
		if u.Host == "" {
			return fmt.Errorf("url %q has no host", u)
		}
		return nil
	}

	return fmt.Errorf("%w: %q", ErrNotHTTP, u)
}

func cloneURL(u *url.URL) *url.URL {
	if u == nil {
		return nil
	}

	cpy := *u
	if u.User != nil {
		user := *u.User
		cpy.User = &user
	}

	return &cpy
}
