package client

import (
	"bytes"
	"encoding/json"
	"mime"
	"strings"
	"unicode/utf8"
)

// maxErrBodySize caps the amount of response body captured when a request
// fails with an error status.
const maxErrBodySize = 64 << 10

// ErrorBodyKind describes how a captured error body was interpreted.
type ErrorBodyKind int

const (
	ErrorBodyEmpty ErrorBodyKind = iota
	ErrorBodyText
	ErrorBodyJSON
	ErrorBodyBytes
)

// ErrorBody is the best-effort capture of an error response's body.
type ErrorBody struct {
	Kind  ErrorBodyKind
	Text  string          // ErrorBodyText
	JSON  json.RawMessage // ErrorBodyJSON
	Bytes []byte          // ErrorBodyBytes, body was not valid UTF-8
}

// PrettyText renders the body for display. JSON is indented with two
// spaces. It reports false when there is nothing to show.
func (b ErrorBody) PrettyText() (string, bool) {
	switch b.Kind {
	case ErrorBodyText:
		return b.Text, true
	case ErrorBodyJSON:
		var buf bytes.Buffer
		if err := json.Indent(&buf, b.JSON, "", "  "); err != nil {
			return string(b.JSON), true
		}
		return buf.String(), true
	case ErrorBodyBytes:
		return strings.ToValidUTF8(string(b.Bytes), "�"), true
	}

	return "", false
}

// ErrorResponse is a response whose status indicated failure. It is
// captured before the connection is released.
type ErrorResponse struct {
	ResponseParts
	Body ErrorBody
}

func (r *ErrorResponse) Error() string {
	return "server responded with status " + r.Status()
}

// ErrorResponseBody is shorthand for r.Body.PrettyText.
func (r *ErrorResponse) ErrorResponseBody() (string, bool) {
	return r.Body.PrettyText()
}

// errorResponseParser captures up to maxErrBodySize bytes of an error
// response and classifies them.
type errorResponseParser struct {
	parts ResponseParts
	buf   bytes.Buffer
}

func (p *errorResponseParser) Init(parts ResponseParts) {
	p.parts = parts
}

func (p *errorResponseParser) Feed(chunk []byte) {
	if room := maxErrBodySize - p.buf.Len(); room > 0 {
		p.buf.Write(chunk[:min(len(chunk), room)])
	}
}

func (p *errorResponseParser) End() (*ErrorResponse, error) {
	return &ErrorResponse{ResponseParts: p.parts, Body: classifyErrorBody(p.parts, p.buf.Bytes())}, nil
}

func classifyErrorBody(parts ResponseParts, data []byte) ErrorBody {
	if isJSONContent(parts.Header.Get("Content-Type")) && json.Valid(data) {
		return ErrorBody{Kind: ErrorBodyJSON, JSON: json.RawMessage(bytes.Clone(data))}
	}

	if !utf8.Valid(data) {
		return ErrorBody{Kind: ErrorBodyBytes, Bytes: bytes.Clone(data)}
	}

	if strings.TrimSpace(string(data)) == "" {
		return ErrorBody{Kind: ErrorBodyEmpty}
	}

	return ErrorBody{Kind: ErrorBodyText, Text: string(data)}
}

func isJSONContent(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}

	return mt == "application/json" || strings.HasSuffix(mt, "+json")
}
