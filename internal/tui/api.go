package tui

import (
	"context"

	"github.com/byway-lms/byway-admin/pkg/domain"
	"github.com/byway-lms/byway-admin/pkg/session"
)

// API is the part of the REST client the dashboard calls. *client.Client
// implements it.
type API interface {
	DashboardStats(ctx context.Context) (domain.DashboardStats, error)

	ListCourses(ctx context.Context, f domain.CourseFilters) (domain.Page[domain.Course], error)
	GetCourse(ctx context.Context, id int) (*domain.Course, error)
	CreateCourse(ctx context.Context, d domain.CourseDetails, sections []domain.CourseSection) (*domain.Course, error)
	UpdateCourse(ctx context.Context, id int, d domain.CourseDetails, sections []domain.CourseSection) (*domain.Course, error)
	DeleteCourse(ctx context.Context, id int) (string, error)
	ListCategories(ctx context.Context) ([]domain.Category, error)
	ListLevels(ctx context.Context) ([]domain.LevelOption, error)

	ListInstructors(ctx context.Context, f domain.InstructorFilters) (domain.Page[domain.Instructor], error)
	GetInstructor(ctx context.Context, id int) (*domain.Instructor, error)
	CreateInstructor(ctx context.Context, in domain.InstructorInput) (*domain.Instructor, error)
	UpdateInstructor(ctx context.Context, id int, in domain.InstructorInput) (*domain.Instructor, error)
	DeleteInstructor(ctx context.Context, id int) (string, error)
	ListJobTitles(ctx context.Context) ([]domain.JobTitle, error)

	ResolveURL(p string) string
}

// Authenticator signs the administrator in and out. *auth.Service implements it.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (session.User, error)
	Logout() error
}
