package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"net/url"
	"strconv"
)

// ErrPaginationDone is returned by [Pager.NextPage] once the last page has
// been fetched or a fetch has failed.
var ErrPaginationDone = errors.New("pagination done")

// PageInfo holds the optional position hints of a page. Fields are nil
// when the server did not report them.
type PageInfo struct {
	CurrentPage       *uint64
	LastPage          *uint64
	TotalCount        *uint64
	IncompleteResults *bool
}

// Page is one batch of items along with the link to the next batch.
type Page[T any] struct {
	Items []T
	Next  *url.URL
	Links Links
	Info  PageInfo
}

// NewPageParser returns a parser for one page of a JSON API. The body is
// either an array of items or an object holding exactly one array, which
// may sit next to "total_count" and "incomplete_results" fields. The next
// link is taken from the Link header.
func NewPageParser[T any]() Parser[Page[T]] {
	return &pageParser[T]{}
}

type pageParser[T any] struct {
	parts *ResponseParts
	buf   bytes.Buffer
}

func (p *pageParser[T]) Init(parts ResponseParts) {
	p.parts = &parts
	if n := parts.ContentLength(); n > 0 && n <= maxPresize {
		p.buf.Grow(int(n))
	}
}

func (p *pageParser[T]) Feed(chunk []byte) {
	p.buf.Write(chunk)
}

func (p *pageParser[T]) End() (Page[T], error) {
	if p.parts == nil {
		panic("client: page parser ended before Init")
	}

	items, info, err := decodePage[T](p.buf.Bytes())
	if err != nil {
		return Page[T]{}, err
	}

	links := ParseLinks(p.parts.Header, p.parts.URL)

	if n, ok := PageNumber(p.parts.URL); ok {
		info.CurrentPage = &n
	}
	if n, ok := PageNumber(links.Last); ok {
		info.LastPage = &n
	}
	if info.TotalCount == nil {
		if n, err := strconv.ParseUint(p.parts.Header.Get("X-Total-Count"), 10, 64); err == nil {
			info.TotalCount = &n
		}
	}

	return Page[T]{Items: items, Next: links.Next, Links: links, Info: info}, nil
}

func decodePage[T any](data []byte) ([]T, PageInfo, error) {
	var info PageInfo

	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var items []T
		if err := json.Unmarshal(data, &items); err != nil {
			return nil, info, fmt.Errorf("decoding page: %w", err)
		}
		return items, info, nil
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, info, fmt.Errorf("decoding page: %w", err)
	}

	var lists []json.RawMessage
	for _, v := range obj {
		if len(v) > 0 && v[0] == '[' {
			lists = append(lists, v)
		}
	}
	if len(lists) != 1 {
		return nil, info, fmt.Errorf("decoding page: expected exactly one array of items in object, got %d", len(lists))
	}

	var items []T
	if err := json.Unmarshal(lists[0], &items); err != nil {
		return nil, info, fmt.Errorf("decoding page items: %w", err)
	}

	if raw, ok := obj["total_count"]; ok {
		var n uint64
		if json.Unmarshal(raw, &n) == nil {
			info.TotalCount = &n
		}
	}
	if raw, ok := obj["incomplete_results"]; ok {
		var b bool
		if json.Unmarshal(raw, &b) == nil {
			info.IncompleteResults = &b
		}
	}

	return items, info, nil
}

// WithPageNumber requests a specific starting page.
func WithPageNumber(n uint64) RequestOption {
	return WithParam("page", strconv.FormatUint(n, 10))
}

// PagerState is the progress of a [Pager].
type PagerState int

const (
	PagerNotStarted PagerState = iota
	PagerPaging
	PagerEnded
)

func (s PagerState) String() string {
	switch s {
	case PagerNotStarted:
		return "NotStarted"
	case PagerPaging:
		return "Paging"
	case PagerEnded:
		return "Ended"
	}

	return "PagerState(" + strconv.Itoa(int(s)) + ")"
}

type fetchFunc[T any] func(ctx context.Context, op Request[Page[T]]) (Page[T], error)

// Pager walks a paginated endpoint by following next links. The request's
// params are sent with the first page only; later pages use the server's
// links as-is. A Pager is single use and not safe for concurrent use.
type Pager[T any] struct {
	req     PaginatedRequest[T]
	fetch   fetchFunc[T]
	state   PagerState
	next    *url.URL
	info    PageInfo
	pending []T
}

// Paginate returns a Pager that fetches pages through c.
func Paginate[T any](c *Client, req PaginatedRequest[T]) *Pager[T] {
	return &Pager[T]{
		req: req,
		fetch: func(ctx context.Context, op Request[Page[T]]) (Page[T], error) {
			return run(ctx, c.s, "client.page", op, parseHandler(c.s, op.Parser))
		},
	}
}

// State reports whether paging has started or ended.
func (p *Pager[T]) State() PagerState {
	return p.state
}

// Info returns the position hints of the most recent page.
func (p *Pager[T]) Info() PageInfo {
	return p.info
}

// NextPage fetches the next page. After the last page, or after an error,
// it returns ErrPaginationDone.
func (p *Pager[T]) NextPage(ctx context.Context) (Page[T], error) {
	op := pageOperation[T]{req: p.req}

	switch p.state {
	case PagerEnded:
		return Page[T]{}, ErrPaginationDone
	case PagerPaging:
		e := URLEndpoint(p.next)
		op.url = &e
	}

	page, err := p.fetch(ctx, op)
	if err != nil {
		p.state = PagerEnded
		p.next = nil
		return Page[T]{}, err
	}

	p.info = page.Info
	if page.Next == nil {
		p.state = PagerEnded
		p.next = nil
	} else {
		p.state = PagerPaging
		p.next = page.Next
	}

	return page, nil
}

// All yields every remaining item in server order. A failed fetch is
// yielded once as an error and ends the sequence. The context is checked
// only between pages, so a page is never cut short.
func (p *Pager[T]) All(ctx context.Context) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		for {
			for len(p.pending) > 0 {
				item := p.pending[0]
				p.pending = p.pending[1:]
				if !yield(item, nil) {
					return
				}
			}

			if p.state == PagerEnded {
				return
			}

			var zero T
			if err := ctx.Err(); err != nil {
				yield(zero, err)
				return
			}

			page, err := p.NextPage(ctx)
			if err != nil {
				yield(zero, err)
				return
			}
			p.pending = page.Items
		}
	}
}
