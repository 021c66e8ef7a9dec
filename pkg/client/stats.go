package client

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/byway-lms/byway-admin/pkg/domain"
)

// Sample sizes for the dashboard aggregate.
const (
	statsCoursePageSize     = 30
	statsInstructorPageSize = 20
)

// DashboardStats fetches courses, categories and instructors concurrently and
// aggregates them. Any failure fails the whole call.
func (c *Client) DashboardStats(ctx context.Context) (domain.DashboardStats, error) {
	var (
		courses     domain.Page[domain.Course]
		categories  []domain.Category
		instructors domain.Page[domain.Instructor]
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		courses, err = c.ListCourses(ctx, domain.CourseFilters{PageSize: statsCoursePageSize, PageIndex: 1})
		return err
	})
	g.Go(func() error {
		var err error
		categories, err = c.ListCategories(ctx)
		return err
	})
	g.Go(func() error {
		var err error
		instructors, err = c.ListInstructors(ctx, domain.InstructorFilters{PageSize: statsInstructorPageSize, PageIndex: 1})
		return err
	})
	if err := g.Wait(); err != nil {
		return domain.DashboardStats{}, fmt.Errorf("client.DashboardStats: %w", err)
	}
	return domain.NewDashboardStats(courses, categories, instructors), nil
}
