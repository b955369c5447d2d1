// Package pagination slices a sequence into fixed-size pages the way the
// list views page through their tables.
package pagination

const DefaultRowsPerPage = 100

// RowsPerPageOptions are the page sizes offered to users
var RowsPerPageOptions = []int{100, 150, 200}

// IsRowsPerPageOption reports whether size is one of RowsPerPageOptions
func IsRowsPerPageOption(size int) bool {
	for _, opt := range RowsPerPageOptions {
		if opt == size {
			return true
		}
	}
	return false
}

// Engine tracks the page window over a sequence of items. Paginate does not
// clamp; only Prev and Next respect the bounds. Call Reclamp after the item
// list shrinks to pull the page back into range.
type Engine[T any] struct {
	items       []T
	currentPage int
	rowsPerPage int
}

// New returns an engine over items at page 1 with the default page size
func New[T any](items []T) *Engine[T] {
	return &Engine[T]{
		items:       items,
		currentPage: 1,
		rowsPerPage: DefaultRowsPerPage,
	}
}

// SetItems replaces the sequence being paged. The page index is unchanged.
func (e *Engine[T]) SetItems(items []T) {
	e.items = items
}

func (e *Engine[T]) Items() []T {
	return e.items
}

func (e *Engine[T]) CurrentPage() int {
	return e.currentPage
}

func (e *Engine[T]) RowsPerPage() int {
	return e.rowsPerPage
}

// Paginate jumps to page n as given
func (e *Engine[T]) Paginate(n int) {
	e.currentPage = n
}

// HandleRowsPerPageChange sets the page size and returns to page 1.
// Non-positive sizes are ignored.
func (e *Engine[T]) HandleRowsPerPageChange(size int) {
	if size <= 0 {
		return
	}
	e.rowsPerPage = size
	e.currentPage = 1
}

// TotalPages is ceil(len(items) / rowsPerPage)
func (e *Engine[T]) TotalPages() int {
	return TotalPages(len(e.items), e.rowsPerPage)
}

// CurrentRecords returns the items on the current page. Out-of-range pages
// give a short or empty slice.
func (e *Engine[T]) CurrentRecords() []T {
	start, end := Window(len(e.items), e.currentPage, e.rowsPerPage)
	return e.items[start:end]
}

// HasPrev reports whether the previous-page control is enabled
func (e *Engine[T]) HasPrev() bool {
	return e.currentPage != 1
}

// HasNext reports whether the next-page control is enabled
func (e *Engine[T]) HasNext() bool {
	return e.currentPage != e.TotalPages()
}

// Prev moves back one page unless already on the first page
func (e *Engine[T]) Prev() {
	if e.HasPrev() {
		e.Paginate(e.currentPage - 1)
	}
}

// Next moves forward one page unless already on the last page
func (e *Engine[T]) Next() {
	if e.HasNext() {
		e.Paginate(e.currentPage + 1)
	}
}

// Reclamp moves the current page back into [1, TotalPages()], using 1 when
// there are no items. It reports whether the page changed.
func (e *Engine[T]) Reclamp() bool {
	last := e.TotalPages()
	if last < 1 {
		last = 1
	}

	page := e.currentPage
	switch {
	case page < 1:
		page = 1
	case page > last:
		page = last
	}
	if page == e.currentPage {
		return false
	}
	e.currentPage = page
	return true
}

// TotalPages is ceil(total / size); 0 when size is not positive
func TotalPages(total, size int) int {
	if size <= 0 || total <= 0 {
		return 0
	}
	return (total + size - 1) / size
}

// Window returns the [start, end) bounds of page within total items,
// clipped to [0, total]
func Window(total, page, size int) (int, int) {
	if total <= 0 || size <= 0 {
		return 0, 0
	}
	if page < 1 {
		return 0, 0
	}
	// bounds check before multiplying so huge pages cannot wrap around
	if page > TotalPages(total, size) {
		return total, total
	}
	start := (page - 1) * size
	end := page * size
	start = clip(start, 0, total)
	end = clip(end, start, total)
	return start, end
}

func clip(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}
