package domain

import (
	"math"

	"github.com/shopspring/decimal"
)

// DashboardStats summarizes the catalogue for the dashboard cards.
type DashboardStats struct {
	InstructorsCount int             `json:"instructorsCount" yaml:"instructors_count"`
	CoursesCount     int             `json:"coursesCount" yaml:"courses_count"`
	CategoriesCount  int             `json:"categoriesCount" yaml:"categories_count"`
	TotalRevenue     decimal.Decimal `json:"totalRevenue" yaml:"total_revenue"`
	Distribution     Distribution    `json:"distribution" yaml:"distribution"`
}

// Distribution is each count's share of the three counts combined, in whole percent.
type Distribution struct {
	Instructors int `json:"instructors" yaml:"instructors"`
	Categories  int `json:"categories" yaml:"categories"`
	Courses     int `json:"courses" yaml:"courses"`
}

// NewDashboardStats aggregates the sampled course page and the totals.
// Revenue is the sum of the sampled course prices.
func NewDashboardStats(courses Page[Course], categories []Category, instructors Page[Instructor]) DashboardStats {
	s := DashboardStats{
		InstructorsCount: instructors.Total,
		CoursesCount:     courses.Total,
		CategoriesCount:  len(categories),
		TotalRevenue:     decimal.Zero,
	}
	for _, c := range courses.Items {
		s.TotalRevenue = s.TotalRevenue.Add(c.Price)
	}

	total := s.InstructorsCount + s.CategoriesCount + s.CoursesCount
	if total == 0 {
		total = 1
	}
	pct := func(n int) int {
		return int(math.Round(float64(n) / float64(total) * 100))
	}
	s.Distribution = Distribution{
		Instructors: pct(s.InstructorsCount),
		Categories:  pct(s.CategoriesCount),
		Courses:     pct(s.CoursesCount),
	}
	return s
}
