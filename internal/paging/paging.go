// Package paging slices materialized lists into fixed-size pages.
//
// Every dataset shown to a user is fetched once and kept in the session as a
// Cursor. Page changes re-slice the held list and never go back to upstream.
package paging

// PageSize is shared by every dataset.
const PageSize = 10

// Page is one slice of a list together with the clamped position.
type Page[T any] struct {
	Items      []T
	Page       int
	TotalPages int
}

// HasPrev reports whether a previous page exists.
func (p Page[T]) HasPrev() bool { return p.Page > 1 }

// HasNext reports whether a next page exists.
func (p Page[T]) HasNext() bool { return p.Page < p.TotalPages }

// Offset is the zero-based index of the first item on the page.
func (p Page[T]) Offset(size int) int {
	if size <= 0 {
		size = PageSize
	}
	return (p.Page - 1) * size
}

// TotalPages returns ceil(n/size), and 1 for an empty list.
func TotalPages(n, size int) int {
	if size <= 0 {
		size = PageSize
	}
	if n <= 0 {
		return 1
	}
	return (n + size - 1) / size
}

// Clamp moves page into [1, total].
func Clamp(page, total int) int {
	if total < 1 {
		total = 1
	}
	if page < 1 {
		return 1
	}
	if page > total {
		return total
	}
	return page
}

// Paginate returns the requested page of items, clamping out-of-range
// requests. The returned Items alias the input slice.
func Paginate[T any](items []T, page, size int) Page[T] {
	if size <= 0 {
		size = PageSize
	}
	total := TotalPages(len(items), size)
	page = Clamp(page, total)
	if len(items) == 0 {
		return Page[T]{Items: []T{}, Page: page, TotalPages: total}
	}
	start := (page - 1) * size
	end := start + size
	if end > len(items) {
		end = len(items)
	}
	return Page[T]{Items: items[start:end:end], Page: page, TotalPages: total}
}

// Cursor is the per-dataset paging state held in a session.
type Cursor[T any] struct {
	Items []T
	Page  int
}

// NewCursor starts a cursor on the first page.
func NewCursor[T any](items []T) *Cursor[T] {
	return &Cursor[T]{Items: items, Page: 1}
}

// Current returns the page the cursor points at.
func (c *Cursor[T]) Current() Page[T] {
	return Paginate(c.Items, c.Page, PageSize)
}

// Goto moves the cursor to page, clamped, and returns that page.
func (c *Cursor[T]) Goto(page int) Page[T] {
	p := Paginate(c.Items, page, PageSize)
	c.Page = p.Page
	return p
}

// Find returns the first item matching fn.
func (c *Cursor[T]) Find(fn func(T) bool) (T, bool) {
	var zero T
	if c == nil {
		return zero, false
	}
	for _, it := range c.Items {
		if fn(it) {
			return it, true
		}
	}
	return zero, false
}
