package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

const readBlockSize = 2048

// ErrInvalidUTF8 is returned by ReadText when the body is not valid UTF-8.
var ErrInvalidUTF8 = errors.New("response body is not valid UTF-8")

// Parser incrementally consumes a response body. Init is called exactly
// once with the response metadata, Feed is called zero or more times with
// successive non-empty chunks, and End is called once after the final chunk.
// Parsers are single use; calling Feed or End before Init may panic.
//
// Feed must not retain chunk: the caller reuses its buffer once Feed
// returns. Parsers that keep data must copy it.
type Parser[T any] interface {
	Init(parts ResponseParts)
	Feed(chunk []byte)
	End() (T, error)
}

// Aborter is implemented by parsers that hold resources which must be
// released when reading the body fails and End will not be called.
type Aborter interface {
	Abort(err error)
}

// parseBody drives p over body. The returned kind classifies a failure.
func parseBody[T any](ctx context.Context, p Parser[T], parts ResponseParts, body io.Reader) (T, ErrorKind, error) {
	var zero T

	p.Init(parts)

	buf := make([]byte, readBlockSize)
	for {
		n, err := body.Read(buf)
		if n > 0 {
			p.Feed(buf[:n])
		}

		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			if a, ok := p.(Aborter); ok {
				a.Abort(err)
			}

			if ctx.Err() != nil {
				return zero, KindSend, fmt.Errorf("%w: %w", ctx.Err(), err)
			}

			return zero, KindReadResponse, err
		}
	}

	v, err := p.End()
	if err != nil {
		return zero, KindParse, err
	}

	return v, 0, nil
}

// Discard returns a parser that ignores the body.
func Discard() Parser[struct{}] {
	return discardParser{}
}

type discardParser struct{}

func (discardParser) Init(ResponseParts)     {}
func (discardParser) Feed([]byte)            {}
func (discardParser) End() (struct{}, error) { return struct{}{}, nil }

// ReadBytes returns a parser that collects the whole body.
func ReadBytes() Parser[[]byte] {
	return &bytesParser{}
}

type bytesParser struct {
	buf bytes.Buffer
}

func (p *bytesParser) Init(parts ResponseParts) {
	if n := parts.ContentLength(); n > 0 && n <= maxPresize {
		p.buf.Grow(int(n))
	}
}

func (p *bytesParser) Feed(chunk []byte) {
	p.buf.Write(chunk)
}

func (p *bytesParser) End() ([]byte, error) {
	return p.buf.Bytes(), nil
}

const maxPresize = 8 << 20

// ReadText returns a parser that decodes the body as strict UTF-8.
func ReadText() Parser[string] {
	return TryMap(ReadBytes(), func(b []byte) (string, error) {
		if !utf8.Valid(b) {
			return "", ErrInvalidUTF8
		}
		return string(b), nil
	})
}

// ReadLossyText returns a parser that decodes the body as UTF-8, replacing
// invalid sequences with U+FFFD.
func ReadLossyText() Parser[string] {
	return Map(ReadBytes(), func(b []byte) string {
		return strings.ToValidUTF8(string(b), "\uFFFD")
	})
}

// DecodeJSON returns a parser that decodes the body as a single JSON value.
func DecodeJSON[T any]() Parser[T] {
	return &jsonParser[T]{}
}

// DecodeJSONNumber is DecodeJSON with numbers decoded as json.Number when
// the target is an interface.
func DecodeJSONNumber[T any]() Parser[T] {
	return &jsonParser[T]{useNumber: true}
}

type jsonParser[T any] struct {
	buf       bytes.Buffer
	useNumber bool
}

func (p *jsonParser[T]) Init(parts ResponseParts) {
	if n := parts.ContentLength(); n > 0 && n <= maxPresize {
		p.buf.Grow(int(n))
	}
}

func (p *jsonParser[T]) Feed(chunk []byte) {
	p.buf.Write(chunk)
}

func (p *jsonParser[T]) End() (T, error) {
	var v T

	dec := json.NewDecoder(&p.buf)
	if p.useNumber {
		dec.UseNumber()
	}

	if err := dec.Decode(&v); err != nil {
		return v, fmt.Errorf("decoding body: %w", err)
	}

	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return v, errors.New("decoding body: unexpected data after top-level value")
	}

	return v, nil
}

// WithParts wraps inner so that its result is returned together with the
// response metadata.
func WithParts[T any](inner Parser[T]) Parser[Response[T]] {
	return &partsParser[T]{inner: inner}
}

type partsParser[T any] struct {
	inner Parser[T]
	parts *ResponseParts
}

func (p *partsParser[T]) Init(parts ResponseParts) {
	c := parts.Clone()
	p.parts = &c
	p.inner.Init(parts)
}

func (p *partsParser[T]) Feed(chunk []byte) {
	p.inner.Feed(chunk)
}

func (p *partsParser[T]) End() (Response[T], error) {
	if p.parts == nil {
		panic("client: WithParts parser ended before Init")
	}

	v, err := p.inner.End()
	if err != nil {
		return Response[T]{}, err
	}

	return Response[T]{ResponseParts: *p.parts, Body: v}, nil
}

func (p *partsParser[T]) Abort(err error) {
	if a, ok := p.inner.(Aborter); ok {
		a.Abort(err)
	}
}

// ToWriter returns a parser that copies the body into w and yields the
// number of bytes written. The first write error is reported by End.
func ToWriter(w io.Writer) Parser[int64] {
	return &writerParser{w: w}
}

type writerParser struct {
	w   io.Writer
	n   int64
	err error
}

func (p *writerParser) Init(ResponseParts) {}

func (p *writerParser) Feed(chunk []byte) {
	if p.err != nil {
		return
	}

	n, err := p.w.Write(chunk)
	p.n += int64(n)
	if err == nil && n < len(chunk) {
		err = io.ErrShortWrite
	}
	p.err = err
}

func (p *writerParser) End() (int64, error) {
	if p.err != nil {
		return p.n, fmt.Errorf("writing body: %w", p.err)
	}

	return p.n, nil
}

// Map returns a parser that transforms the result of inner with fn.
func Map[T, U any](inner Parser[T], fn func(T) U) Parser[U] {
	return &mapParser[T, U]{inner: inner, fn: func(v T) (U, error) { return fn(v), nil }}
}

// TryMap is Map with a fallible transform. An error from fn is reported
// as a parse failure.
func TryMap[T, U any](inner Parser[T], fn func(T) (U, error)) Parser[U] {
	return &mapParser[T, U]{inner: inner, fn: fn}
}

type mapParser[T, U any] struct {
	inner Parser[T]
	fn    func(T) (U, error)
}

func (p *mapParser[T, U]) Init(parts ResponseParts) { p.inner.Init(parts) }
func (p *mapParser[T, U]) Feed(chunk []byte)        { p.inner.Feed(chunk) }

func (p *mapParser[T, U]) End() (U, error) {
	v, err := p.inner.End()
	if err != nil {
		var zero U
		return zero, err
	}

	return p.fn(v)
}

func (p *mapParser[T, U]) Abort(err error) {
	if a, ok := p.inner.(Aborter); ok {
		a.Abort(err)
	}
}

// MapErr returns a parser that rewrites errors from inner with fn.
func MapErr[T any](inner Parser[T], fn func(error) error) Parser[T] {
	return &mapErrParser[T]{inner: inner, fn: fn}
}

type mapErrParser[T any] struct {
	inner Parser[T]
	fn    func(error) error
}

func (p *mapErrParser[T]) Init(parts ResponseParts) { p.inner.Init(parts) }
func (p *mapErrParser[T]) Feed(chunk []byte)        { p.inner.Feed(chunk) }

func (p *mapErrParser[T]) End() (T, error) {
	v, err := p.inner.End()
	if err != nil {
		return v, p.fn(err)
	}

	return v, nil
}

func (p *mapErrParser[T]) Abort(err error) {
	if a, ok := p.inner.(Aborter); ok {
		a.Abort(err)
	}
}
