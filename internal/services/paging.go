package services

// Page is one slice of a table plus what the pager needs to render.
type Page[T any] struct {
	Items []T `json:"items"`
	Page  int `json:"page"`
	Size  int `json:"size"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

func (p Page[T]) HasPrev() bool { return p.Page > 1 }
func (p Page[T]) HasNext() bool { return p.Page < p.Pages }

// Paginate returns page (1-based) of items. Out-of-range pages clamp to the
// nearest valid one; size is clamped to [1, MaxPageSize].
func Paginate[T any](items []T, page, size int) Page[T] {
	if size <= 0 {
		size = DefaultPageSize
	}
	size = min(size, MaxPageSize)

	total := len(items)
	pages := max((total+size-1)/size, 1)
	page = min(max(page, 1), pages)

	start := min((page-1)*size, total)
	end := min(start+size, total)

	out := make([]T, end-start)
	copy(out, items[start:end])

	return Page[T]{
		Items: out,
		Page:  page,
		Size:  size,
		Total: total,
		Pages: pages,
	}
}
