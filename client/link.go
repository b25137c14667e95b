package client

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/tomnomnom/linkheader"
)

// Links holds the pagination relations advertised in a Link header.
// Missing relations are nil.
type Links struct {
	First *url.URL
	Prev  *url.URL
	Next  *url.URL
	Last  *url.URL
}

// ParseLinks extracts the first, prev, next and last relations from every
// Link header in h. Relative references are resolved against base, which
// may be nil. Links that are not absolute HTTP(S) URLs are ignored.
func ParseLinks(h http.Header, base *url.URL) Links {
	var links Links

	for _, lnk := range linkheader.ParseMultiple(h.Values("Link")) {
		u, err := url.Parse(strings.TrimSpace(lnk.URL))
		if err != nil {
			continue
		}
		if base != nil {
			u = base.ResolveReference(u)
		}
		if checkHTTP(u) != nil {
			continue
		}

		for rel := range strings.FieldsSeq(strings.ToLower(lnk.Rel)) {
			var dst **url.URL
			switch rel {
			case "first":
				dst = &links.First
			case "prev", "previous":
				dst = &links.Prev
			case "next":
				dst = &links.Next
			case "last":
				dst = &links.Last
			default:
				continue
			}

			if *dst == nil {
				*dst = u
			}
		}
	}

	return links
}

// PageNumber returns the value of the last "page" query parameter of u
// when it is a non-negative integer.
func PageNumber(u *url.URL) (uint64, bool) {
	if u == nil {
		return 0, false
	}

	vals := u.Query()["page"]
	if len(vals) == 0 {
		return 0, false
	}

	n, err := strconv.ParseUint(vals[len(vals)-1], 10, 64)
	if err != nil {
		return 0, false
	}

	return n, true
}
