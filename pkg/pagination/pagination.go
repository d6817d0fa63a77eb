// Package pagination implements the catalog's page-number pagination:
// a fixed page size, and requests outside the valid range snapped onto a
// real page instead of failing.
package pagination

import (
	"net/http"
	"strconv"
	"strings"
)

// DefaultPageSize is the number of books per catalog page.
const DefaultPageSize = 4

// Request is a page number as sent by the client. Valid is false when the
// parameter was absent or not an integer.
type Request struct {
	Number int
	Valid  bool
}

// ParsePage reads the page query parameter. Absent or non-integer values
// yield an invalid Request, which Resolve maps to the first page.
func ParsePage(raw string) Request {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return Request{}
	}
	return Request{Number: n, Valid: true}
}

// FromRequest is ParsePage over r's "page" query parameter.
func FromRequest(r *http.Request) Request {
	return ParsePage(r.URL.Query().Get("page"))
}

// Window is a resolved page: which page is served, how many exist, and the
// LIMIT/OFFSET that select it.
type Window struct {
	Page   int
	Pages  int
	Limit  int
	Offset int
}

// Resolve computes the window for req over total items. There is always at
// least one page, even when total is zero. An invalid request serves the
// first page; a number outside [1, pages] serves the last page.
func Resolve(req Request, total, size int) Window {
	if size <= 0 {
		size = DefaultPageSize
	}
	pages := (total + size - 1) / size
	if pages < 1 {
		pages = 1
	}

	page := 1
	switch {
	case !req.Valid:
	case req.Number < 1 || req.Number > pages:
		page = pages
	default:
		page = req.Number
	}

	return Window{
		Page:   page,
		Pages:  pages,
		Limit:  size,
		Offset: (page - 1) * size,
	}
}
