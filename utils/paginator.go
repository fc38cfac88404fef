package utils

import (
	"strconv"
	"strings"
)

// PostsPerPage is the number of posts shown on one feed page.
const PostsPerPage = 10

// Page describes one page of a paginated collection.
type Page struct {
	Number         int   `json:"number"`
	NumPages       int   `json:"num_pages"`
	PerPage        int   `json:"per_page"`
	Total          int64 `json:"count"`
	HasPrevious    bool  `json:"has_previous"`
	HasNext        bool  `json:"has_next"`
	PreviousNumber int   `json:"previous_page_number,omitempty"`
	NextNumber     int   `json:"next_page_number,omitempty"`
}

// Paginate resolves the requested page number against a collection of total items.
// A missing, non-numeric or non-positive page yields the first page, a page past the end
// yields the last one, and an empty collection still has a single empty page.
func Paginate(total int64, perPage int, requested string) Page {
	if perPage < 1 {
		perPage = PostsPerPage
	}
	if total < 0 {
		total = 0
	}

	numPages := int((total + int64(perPage) - 1) / int64(perPage))
	if numPages < 1 {
		numPages = 1
	}

	number, err := strconv.Atoi(strings.TrimSpace(requested))
	if err != nil || number < 1 {
		number = 1
	}
	if number > numPages {
		number = numPages
	}

	p := Page{
		Number:      number,
		NumPages:    numPages,
		PerPage:     perPage,
		Total:       total,
		HasPrevious: number > 1,
		HasNext:     number < numPages,
	}
	if p.HasPrevious {
		p.PreviousNumber = number - 1
	}
	if p.HasNext {
		p.NextNumber = number + 1
	}
	return p
}

// Offset is the index of the first item on the page.
func (p Page) Offset() int {
	return (p.Number - 1) * p.PerPage
}

// Len is the number of items on the page.
func (p Page) Len() int {
	remaining := p.Total - int64(p.Offset())
	if remaining <= 0 {
		return 0
	}
	if remaining > int64(p.PerPage) {
		return p.PerPage
	}
	return int(remaining)
}
