package domain

import (
	"net/url"
	"strconv"
)

// Course list paging limits.
const (
	DefaultCoursePageSize     = 9
	MaxCoursePageSize         = 30
	DefaultInstructorPageSize = 10
)

// CourseSort is the API's Sort query value.
type CourseSort int

const (
	SortPriceAsc CourseSort = iota + 1
	SortPriceDesc
	SortRatingAsc
	SortRatingDesc
	SortNewest
	SortOldest
)

func (s CourseSort) String() string {
	switch s {
	case SortPriceAsc:
		return "price ↑"
	case SortPriceDesc:
		return "price ↓"
	case SortRatingAsc:
		return "rating ↑"
	case SortRatingDesc:
		return "rating ↓"
	case SortNewest:
		return "newest"
	case SortOldest:
		return "oldest"
	}
	return "sort(" + strconv.Itoa(int(s)) + ")"
}

// Next cycles through the sort orders.
func (s CourseSort) Next() CourseSort {
	if s < SortPriceAsc || s >= SortOldest {
		return SortPriceAsc
	}
	return s + 1
}

// CourseFilters is the query state of the course list.
type CourseFilters struct {
	PageSize     int        `json:"pageSize"`
	PageIndex    int        `json:"pageIndex"`
	Search       string     `json:"search,omitempty"`
	Sort         CourseSort `json:"sort,omitempty"`
	InstructorID int        `json:"instructorId,omitempty"`
	Categories   []int      `json:"categories,omitempty"`
}

// DefaultCourseFilters is the first page, nine per page, newest first.
func DefaultCourseFilters() CourseFilters {
	return CourseFilters{PageSize: DefaultCoursePageSize, PageIndex: 1, Sort: SortNewest}
}

// EffectivePageSize applies the default and the server-side cap.
func (f CourseFilters) EffectivePageSize() int {
	size := f.PageSize
	if size <= 0 {
		size = DefaultCoursePageSize
	}
	return min(size, MaxCoursePageSize)
}

// Query encodes the filters as /Courses query parameters.
func (f CourseFilters) Query() url.Values {
	q := url.Values{}
	q.Set("PageSize", strconv.Itoa(f.EffectivePageSize()))
	q.Set("PageIndex", strconv.Itoa(max(f.PageIndex, 1)))
	if f.Search != "" {
		q.Set("Search", f.Search)
	}
	if f.Sort != 0 {
		q.Set("Sort", strconv.Itoa(int(f.Sort)))
	}
	if f.InstructorID != 0 {
		q.Set("InstructorId", strconv.Itoa(f.InstructorID))
	}
	for _, c := range f.Categories {
		q.Add("Categories", strconv.Itoa(c))
	}
	return q
}

// WithSearch changes the search term and returns to the first page.
func (f CourseFilters) WithSearch(s string) CourseFilters {
	f.Search = s
	f.PageIndex = 1
	return f
}

// WithSort changes the order and returns to the first page.
func (f CourseFilters) WithSort(s CourseSort) CourseFilters {
	f.Sort = s
	f.PageIndex = 1
	return f
}

// WithCategories replaces the category filter and returns to the first page.
func (f CourseFilters) WithCategories(ids ...int) CourseFilters {
	f.Categories = append([]int(nil), ids...)
	f.PageIndex = 1
	return f
}

// WithInstructor filters by instructor and returns to the first page.
func (f CourseFilters) WithInstructor(id int) CourseFilters {
	f.InstructorID = id
	f.PageIndex = 1
	return f
}

// WithPage moves to page n, keeping every other filter.
func (f CourseFilters) WithPage(n int) CourseFilters {
	f.PageIndex = max(n, 1)
	return f
}

// InstructorFilters is the query state of the instructor list.
type InstructorFilters struct {
	PageSize  int    `json:"pageSize"`
	PageIndex int    `json:"pageIndex"`
	Search    string `json:"search,omitempty"`
}

// DefaultInstructorFilters is the first page, ten per page.
func DefaultInstructorFilters() InstructorFilters {
	return InstructorFilters{PageSize: DefaultInstructorPageSize, PageIndex: 1}
}

// Query encodes the filters as /instructors query parameters.
func (f InstructorFilters) Query() url.Values {
	size := f.PageSize
	if size <= 0 {
		size = DefaultInstructorPageSize
	}
	q := url.Values{}
	q.Set("pageSize", strconv.Itoa(size))
	q.Set("pageIndex", strconv.Itoa(max(f.PageIndex, 1)))
	if f.Search != "" {
		q.Set("search", f.Search)
	}
	return q
}

// WithSearch changes the search term and returns to the first page.
func (f InstructorFilters) WithSearch(s string) InstructorFilters {
	f.Search = s
	f.PageIndex = 1
	return f
}

// WithPage moves to page n, keeping the search term.
func (f InstructorFilters) WithPage(n int) InstructorFilters {
	f.PageIndex = max(n, 1)
	return f
}
