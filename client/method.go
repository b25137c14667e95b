package client

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Method is an HTTP request method. Only GET, POST, PUT, PATCH and DELETE
// are supported.
type Method string

const (
	MethodGet    Method = http.MethodGet
	MethodPost   Method = http.MethodPost
	MethodPut    Method = http.MethodPut
	MethodPatch  Method = http.MethodPatch
	MethodDelete Method = http.MethodDelete
)

// ErrUnsupportedMethod is returned when a method outside of the supported
// set is parsed or used to build a request.
var ErrUnsupportedMethod = errors.New("unsupported method")

// ParseMethod parses s case-insensitively.
func ParseMethod(s string) (Method, error) {
	m := Method(strings.ToUpper(s))
	if !m.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedMethod, s)
	}

	return m, nil
}

// Valid reports whether m is one of the supported methods.
func (m Method) Valid() bool {
	switch m {
	case MethodGet, MethodPost, MethodPut, MethodPatch, MethodDelete:
		return true
	}

	return false
}

// IsMutating reports whether m changes server-side state.
// Mutating requests are subject to the client's mutation delay.
func (m Method) IsMutating() bool {
	switch m {
	case MethodPost, MethodPut, MethodPatch, MethodDelete:
		return true
	}

	return false
}

func (m Method) String() string {
	return string(m)
}
