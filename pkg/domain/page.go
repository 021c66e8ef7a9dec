package domain

// Page is one page of a list endpoint.
type Page[T any] struct {
	Items     []T `json:"items" yaml:"items"`
	PageIndex int `json:"pageIndex" yaml:"page_index"`
	PageSize  int `json:"pageSize" yaml:"page_size"`
	Total     int `json:"total" yaml:"total"`
	LastPage  int `json:"lastPage" yaml:"last_page"`
}

// HasNext reports whether a later page exists.
func (p Page[T]) HasNext() bool { return p.PageIndex < p.LastPage }

// HasPrev reports whether an earlier page exists.
func (p Page[T]) HasPrev() bool { return p.PageIndex > 1 }

// RawPage captures every pagination shape the API has been seen to return.
type RawPage[T any] struct {
	Data          []T  `json:"data"`
	CurrentPage   *int `json:"current_page"`
	PageIndex     *int `json:"pageIndex"`
	PageSize      *int `json:"pageSize"`
	PageSizeSnake *int `json:"page_size"`
	Total         *int `json:"total"`
	Count         *int `json:"count"`
	LastPage      *int `json:"last_page"`
	LastPageCamel *int `json:"lastPage"`
}

// Normalize folds the raw shape into a Page. requestedSize is used when the
// response carries no page size. The last page is derived from the total when
// absent and is never below 1.
func (r RawPage[T]) Normalize(requestedSize int) Page[T] {
	p := Page[T]{
		Items:     r.Data,
		PageIndex: firstInt(1, r.CurrentPage, r.PageIndex),
		PageSize:  firstInt(requestedSize, r.PageSize, r.PageSizeSnake),
		Total:     firstInt(len(r.Data), r.Total, r.Count),
	}
	if p.Items == nil {
		p.Items = []T{}
	}
	if p.PageSize <= 0 {
		p.PageSize = 10
	}
	derived := max(1, (p.Total+p.PageSize-1)/p.PageSize)
	p.LastPage = firstInt(derived, r.LastPage, r.LastPageCamel)
	return p
}

func firstInt(fallback int, vals ...*int) int {
	for _, v := range vals {
		if v != nil {
			return *v
		}
	}
	return fallback
}
